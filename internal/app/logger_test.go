package app

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/charlesng35/sosrelay/pkg/logger"
)

func TestConfigureLoggingDefaultsToInfo(t *testing.T) {
	t.Cleanup(logger.ReplaceForTest(zap.NewNop()))

	require.NoError(t, ConfigureLogging("", "console"))
	require.True(t, logger.Logger().Core().Enabled(zap.InfoLevel))
	require.False(t, logger.Logger().Core().Enabled(zap.DebugLevel))

	require.NoError(t, ConfigureLogging(" debug "))
	require.True(t, logger.Logger().Core().Enabled(zap.DebugLevel))
}
