package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConsoleLevel(t *testing.T) {
	cases := []struct {
		verbosity int
		want      zapcore.Level
	}{
		{0, zapcore.WarnLevel},
		{1, zapcore.InfoLevel},
		{2, zapcore.DebugLevel},
		{5, zapcore.DebugLevel},
		{-1, zapcore.WarnLevel},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ConsoleLevel(tc.verbosity), "verbosity %d", tc.verbosity)
	}
}

func TestBuildConsoleOnly(t *testing.T) {
	logger, err := Build(1, "")
	require.NoError(t, err)
	logger.Info("console only")
	_ = logger.Sync()
}

func TestBuildFileRecordsDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "megamirror.log")

	logger, err := Build(0, path)
	require.NoError(t, err)
	logger.Debug("below console level")
	logger.Warn("visible everywhere")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)

	// The file core records debug even when the console is at warn.
	assert.Contains(t, content, "below console level")
	assert.Contains(t, content, `"DEBUG"`)
	assert.Contains(t, content, "visible everywhere")
}

func TestBuildAppendsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "megamirror.log")

	first, err := Build(0, path)
	require.NoError(t, err)
	first.Warn("first run")
	_ = first.Sync()

	second, err := Build(0, path)
	require.NoError(t, err)
	second.Warn("second run")
	_ = second.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "first run")
	assert.Contains(t, string(raw), "second run")
}

func TestBuildRejectsUnopenablePath(t *testing.T) {
	_, err := Build(0, t.TempDir())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "open log file"))
}
