package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pneumonia-risk-mcp-server/internal/domain"
)

func TestNewWithOutput(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantLevel logrus.Level
		wantJSON  bool
	}{
		{"json debug", "debug", "json", logrus.DebugLevel, true},
		{"text warn", "warn", "TEXT", logrus.WarnLevel, false},
		{"unknown level", "verbose", "", logrus.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithOutput(tt.level, tt.format, &buf)
			assert.Equal(t, tt.wantLevel, logger.GetLevel())

			logger.Warn("hello")
			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"hello"`)
			} else {
				assert.Contains(t, buf.String(), "msg=hello")
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	logger, closer, err := FromConfig(domain.LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	logger.Info("written to file")
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "written to file")

	logger, closer, err = FromConfig(domain.LoggingConfig{Level: "error", Output: "stdout"})
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, logger.Out)
	assert.NoError(t, closer.Close())

	_, _, err = FromConfig(domain.LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}
