package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORS())
	r.POST("/functions/v1/send-emergency-email", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.OPTIONS("/functions/v1/send-emergency-email", func(c *gin.Context) {
		c.String(http.StatusTeapot, "unreachable")
	})

	preflight := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/send-emergency-email", nil)
	r.ServeHTTP(preflight, req)
	require.Equal(t, http.StatusOK, preflight.Code)
	require.Equal(t, "*", preflight.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "authorization, x-client-info, apikey, content-type", preflight.Header().Get("Access-Control-Allow-Headers"))
	require.Empty(t, preflight.Body.String())

	w := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/functions/v1/send-emergency-email", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSCustomHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(CORS("authorization"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, "authorization", w.Header().Get("Access-Control-Allow-Headers"))
}
