package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "firestore", cfg.StoreBackend)
	assert.Equal(t, 12*time.Second, cfg.CommitTimeout)
	assert.Equal(t, 3, cfg.CommitMaxAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.CommitBackoff)
	assert.Equal(t, time.Hour, cfg.ReminderLead)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("COMMIT_TIMEOUT", "15s")
	t.Setenv("STORE_BACKEND", "mongo")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.168.1.4")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, 15*time.Second, cfg.CommitTimeout)
	assert.Equal(t, "mongo", cfg.StoreBackend)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.4"}, cfg.TrustedProxies)
}

func TestIsProduction(t *testing.T) {
	prev := AppConfig
	defer func() { AppConfig = prev }()

	AppConfig.Env = "production"
	assert.True(t, IsProduction())
	AppConfig.Env = "development"
	assert.False(t, IsProduction())
}
