package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/sosrelay/internal/handlers/testutil"
)

func TestHealthReportsDatabaseState(t *testing.T) {
	env := testutil.NewEnv(t)

	rec := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, testutil.DecodeResponse(t, rec).Success)

	sqlDB, err := env.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec = env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	payload := testutil.DecodeResponse(t, rec)
	require.Equal(t, "UNAVAILABLE", payload.Error.Code)
}
