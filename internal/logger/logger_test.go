package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"err", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	require.Error(t, err)
}

func TestNewPlainWriter(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, slog.LevelInfo)

	log.Debug("hidden")
	log.Info("snapshot written", "path", "testlog/DiskInfo.json")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, `msg="snapshot written"`)
	assert.Contains(t, out, "path=testlog/DiskInfo.json")
}

func TestTee(t *testing.T) {
	var info, debug bytes.Buffer
	log := slog.New(Tee(
		slog.NewTextHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)).With("tool", "diskinfo")

	log.Debug("detail")
	log.Info("done")

	assert.NotContains(t, info.String(), "detail")
	assert.Contains(t, info.String(), "done")
	assert.Contains(t, debug.String(), "detail")
	assert.Contains(t, debug.String(), "tool=diskinfo")
}

func TestSetupWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "qual.log")

	log, closeFn, err := Setup(Options{Level: "debug", File: path})
	require.NoError(t, err)
	log.Debug("written to file", "n", 1)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `msg="written to file"`)
	assert.Contains(t, string(data), "n=1")
}

func TestSetupRejectsLevel(t *testing.T) {
	_, _, err := Setup(Options{Level: "verbose"})
	require.Error(t, err)
}
