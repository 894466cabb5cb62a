package logging_test

import (
	"testing"

	"github.com/SignpostApp/landing/internal/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, zapcore.DebugLevel, logging.ParseLevel("debug"))
	require.Equal(t, zapcore.WarnLevel, logging.ParseLevel("warning"))
	require.Equal(t, zapcore.ErrorLevel, logging.ParseLevel("error"))
	require.Equal(t, zapcore.InfoLevel, logging.ParseLevel("verbose"))
}

func TestNew(t *testing.T) {
	t.Parallel()

	logger, err := logging.New("production", "warn", "json")
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = logging.New("development", "debug", "console")
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
