package obslog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "coach.log")
	require.NoError(t, Init(Options{Level: "debug", ToFile: true, FilePath: path, Format: "json"}))
	t.Cleanup(func() { _ = Init(Options{}) })

	Named("session").Info("turn_submitted")
	Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"logger":"session"`)
	assert.Contains(t, string(b), `"msg":"turn_submitted"`)
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_TO_FILE", "false")
	t.Setenv("LOG_FORMAT", "console")
	o := OptionsFromEnv()
	assert.Equal(t, "warn", o.Level)
	assert.False(t, o.ToFile)
	assert.True(t, o.Console)
	assert.Equal(t, filepath.Join("logs", "coach.log"), o.FilePath)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel(" DEBUG "))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("loud"))
}
