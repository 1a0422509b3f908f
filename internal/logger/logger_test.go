package logger

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbench/taqload/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "INFO", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "warning", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "unknown", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "level %q", tt.input)
	}
}

func TestVerbosityLevel(t *testing.T) {
	assert.Equal(t, slog.LevelError, VerbosityLevel(0))
	assert.Equal(t, slog.LevelInfo, VerbosityLevel(1))
	assert.Equal(t, slog.LevelDebug, VerbosityLevel(2))
	assert.Equal(t, slog.LevelDebug, VerbosityLevel(5))
	assert.Equal(t, slog.LevelError, VerbosityLevel(-1))
}

func TestSetup_StderrAndFile(t *testing.T) {
	log, closer, err := Setup(config.LoggingConfig{Level: "info", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	require.NotNil(t, log)
	require.NoError(t, closer.Close())

	path := filepath.Join(t.TempDir(), "logs", "taqload.log")
	log, closer, err = Setup(config.LoggingConfig{
		Level:    "debug",
		Format:   "json",
		Output:   "file",
		FilePath: path,
		MaxSize:  1,
	})
	require.NoError(t, err)
	log.Info("test entry")
	require.NoError(t, closer.Close())
}

func TestSetup_FileOutputRequiresPath(t *testing.T) {
	_, _, err := Setup(config.LoggingConfig{Level: "info", Format: "text", Output: "file"})
	assert.Error(t, err)
}
