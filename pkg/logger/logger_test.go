package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	t.Cleanup(ReplaceForTest(zap.NewNop()))

	require.NoError(t, Init("debug"))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))

	require.NoError(t, Init("not-a-level", "console"))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
}

func TestWithAlertAttachesFields(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(ReplaceForTest(zap.New(core)))

	WithAlert("fanout", "alert-1").Info("dispatch")
	WithModule("records").Warn("queue full")

	entries := recorded.All()
	require.Len(t, entries, 2)
	require.Equal(t, "fanout", entries[0].ContextMap()["module"])
	require.Equal(t, "alert-1", entries[0].ContextMap()["alert_id"])
	require.Equal(t, "records", entries[1].ContextMap()["module"])
	require.NotContains(t, entries[1].ContextMap(), "alert_id")
}

func TestReplaceForTestRestores(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	restore := ReplaceForTest(zap.New(core))

	WithAlert("fanout", "a1").Info("scoped")
	restore()
	Logger().Info("after restore")

	require.Equal(t, 1, recorded.Len())
	require.Equal(t, "a1", recorded.All()[0].ContextMap()["alert_id"])
}
