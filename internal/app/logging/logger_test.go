package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	for _, development := range []bool{true, false} {
		logger, err := NewLogger(development)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	}
}

func TestNewWritesToRotatingFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "smart-audio.log")

	loggers, err := New(false, logFile)
	require.NoError(t, err)

	loggers.Zap.Info("stage finished")
	loggers.Slog.Info("request handled")
	require.NoError(t, loggers.Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stage finished")
	assert.Contains(t, string(data), "request handled")
}

func TestNewWithoutFile(t *testing.T) {
	loggers, err := New(true, "")
	require.NoError(t, err)
	assert.NotNil(t, loggers.Slog)
	assert.NoError(t, loggers.Close())
}
