package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/charlesng35/sosrelay/pkg/logger"
)

func TestLoggerMiddlewareQuietsProbes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	t.Cleanup(logger.ReplaceForTest(zap.New(core)))

	r := gin.New()
	r.Use(Logger())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/alerts/active", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/alerts/active", nil))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	require.Equal(t, "/api/alerts/active", entries[0].ContextMap()["path"])
}

func TestAccessLevel(t *testing.T) {
	require.Equal(t, zapcore.ErrorLevel, accessLevel("/health", http.StatusServiceUnavailable))
	require.Equal(t, zapcore.WarnLevel, accessLevel("/api/contacts", http.StatusConflict))
	require.Equal(t, zapcore.DebugLevel, accessLevel("/metrics", http.StatusOK))
	require.Equal(t, zapcore.InfoLevel, accessLevel("/api/alerts", http.StatusCreated))
}

func TestLoggerMiddlewareRecordsUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	restore := logger.ReplaceForTest(zap.New(core))
	defer restore()

	r := gin.New()
	r.Use(Logger())
	r.GET("/alerts", func(c *gin.Context) {
		c.Set(CtxUserIDKey, "user-1")
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/alerts", nil))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.WarnLevel, entries[0].Level)
	require.Equal(t, "user-1", entries[0].ContextMap()["user_id"])
}
