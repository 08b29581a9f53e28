package utils

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunHealthChecks(t *testing.T) {
	status := RunHealthChecks(context.Background(), map[string]HealthCheck{
		"store": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("down") },
	})

	assert.True(t, status.Services["store"])
	assert.False(t, status.Services["redis"])
	assert.Equal(t, status, GetHealthStatus())
}
