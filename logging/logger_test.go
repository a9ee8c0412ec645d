package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/amirphl/drift-bottle/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "console", Output: "stdout"})
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("file output is written", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "app.log")
		logger, err := NewLogger(config.LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "file",
			FilePath: path,
			MaxSize:  1,
		})
		require.NoError(t, err)

		logger.Info("bottle created")
		_ = logger.Sync()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"bottle created"`)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := NewLogger(config.LoggingConfig{Level: "loud", Output: "stdout"})
		assert.Error(t, err)
	})

	t.Run("file output requires a path", func(t *testing.T) {
		_, err := NewLogger(config.LoggingConfig{Level: "info", Output: "file"})
		assert.Error(t, err)
	})

	t.Run("unknown output", func(t *testing.T) {
		_, err := NewLogger(config.LoggingConfig{Level: "info", Output: "syslog"})
		assert.Error(t, err)
	})
}
