package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/charlesng35/sosrelay/internal/auth"
	"github.com/charlesng35/sosrelay/internal/realtime"
)

func newRealtimeTestHandler(t *testing.T) (*RealtimeHandler, *iauth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret"})
	require.NoError(t, err)
	return NewRealtimeHandler(realtime.NewHub(), jwtSvc, realtime.StreamEmergencyAlerts), jwtSvc
}

func serveRealtime(handler *RealtimeHandler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	handler.Stream(c)
	return rec
}

func TestRealtimeHandlerUnauthorizedWithoutToken(t *testing.T) {
	handler, _ := newRealtimeTestHandler(t)

	rec := serveRealtime(handler, "/api/realtime")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRealtimeHandlerRejectsInvalidToken(t *testing.T) {
	handler, _ := newRealtimeTestHandler(t)

	rec := serveRealtime(handler, "/api/realtime?token=not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRealtimeHandlerRejectsUnknownStream(t *testing.T) {
	handler, jwtSvc := newRealtimeTestHandler(t)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	rec := serveRealtime(handler, "/api/realtime?streams=unknown&token="+token)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRealtimeHandlerRejectsServiceTokens(t *testing.T) {
	handler, jwtSvc := newRealtimeTestHandler(t)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{Role: iauth.RoleService})
	require.NoError(t, err)

	rec := serveRealtime(handler, "/api/realtime?access_token="+token)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequestedStreamsMergesSources(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/realtime?stream=Emergency_Alerts&streams=emergency_alerts,%20other,", nil)

	require.Equal(t, []string{"emergency_alerts", "other"}, requestedStreams(c))
}
