package logging

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		path := filepath.Join(t.TempDir(), format+".log")
		l, err := NewLogger(Config{Level: "debug", Format: format, OutputPaths: []string{path}})
		require.NoError(t, err)
		l.Info("hello", String("format", format))
		assert.NoError(t, l.Sync())
		assert.FileExists(t, path)
	}
}

func TestNewLogger_BadPath(t *testing.T) {
	_, err := NewLogger(Config{OutputPaths: []string{filepath.Join(t.TempDir(), "missing", "dir", "x.log")}})
	assert.Error(t, err)
}

func TestFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewFromCore(core).Named("pack").With(String("species", "H1"))

	l.Info("placed",
		Int("copies", 2),
		Int64("step", 40000),
		Float64("box", 14),
		Bool("hit", false),
		Duration("elapsed", 2*time.Second),
		Err(errors.New("boom")),
	)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "pack", entry.LoggerName)
	fields := entry.ContextMap()
	assert.Equal(t, "H1", fields["species"])
	assert.Equal(t, int64(2), fields["copies"])
	assert.Equal(t, int64(40000), fields["step"])
	assert.Equal(t, 14.0, fields["box"])
	assert.Equal(t, false, fields["hit"])
	assert.Equal(t, 2*time.Second, fields["elapsed"])
	assert.Equal(t, "boom", fields["error"])
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"WARN":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"":      zapcore.InfoLevel,
		"noise": zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNop(t *testing.T) {
	l := OrNop(nil)
	l.Debug("x")
	l.With(Int("a", 1)).Named("n").Error("y")
	assert.NoError(t, l.Sync())
}
