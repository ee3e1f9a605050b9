package container_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/serroba/url-shortener/internal/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("writes json lines to rotated file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "app.log")

		logger, closeFile, err := container.NewLogger(container.LogConfig{
			Level:      "info",
			Format:     "console",
			File:       path,
			MaxSizeMB:  1,
			MaxBackups: 1,
			MaxAgeDays: 1,
		})
		require.NoError(t, err)

		logger.Debug("hidden")
		logger.Info("visible")
		require.NoError(t, closeFile())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"visible"`)
		assert.NotContains(t, string(data), "hidden")
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		_, _, err := container.NewLogger(container.LogConfig{Level: "loud"})

		assert.Error(t, err)
	})
}
