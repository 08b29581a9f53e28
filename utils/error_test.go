package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func withObservedLogger(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	GetLogger()
	prev := Logger
	Logger = zap.New(core)
	t.Cleanup(func() { Logger = prev })
	return logs
}

func TestErrorHandlerRecoversWithRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := withObservedLogger(t)

	r := gin.New()
	r.Use(RequestLogger(), ErrorHandler())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Internal Server Error", body.Message)
	assert.Equal(t, "req-42", body.RequestID)

	entries := logs.FilterMessage("Unhandled panic").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["requestId"])
	assert.Equal(t, "/boom", fields["path"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "kaboom", fields["error"])
}

func TestRequestLoggerAssignsID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	withObservedLogger(t)

	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/", func(c *gin.Context) {
		LoggerFrom(c).Info("handled")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}

func TestBrokenPipe(t *testing.T) {
	assert.True(t, brokenPipe(fmt.Errorf("write: %w", syscall.EPIPE)))
	assert.True(t, brokenPipe(syscall.ECONNRESET))
	assert.False(t, brokenPipe(fmt.Errorf("boom")))
}
