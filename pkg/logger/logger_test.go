package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitFileAndTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	l := Init(Config{Level: "info", Output: "file", File: path, MaxSize: 1})

	for i := 0; i < 5; i++ {
		Info("line %d", i)
	}
	require.NoError(t, l.Sync())

	lines, err := Tail(2)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "line 3")
	assert.Contains(t, lines[1], "line 4")
	assert.Equal(t, path, FilePath())

	require.NoError(t, Rotate())
	lines, err = Tail(10)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestHook(t *testing.T) {
	var got []string
	SetHook(func(e zapcore.Entry) error {
		got = append(got, e.Level.String()+":"+e.Message)
		return nil
	})
	defer SetHook(nil)

	Init(Config{Level: "info", Output: "file", File: filepath.Join(t.TempDir(), "hook.log")})
	Info("started")
	Warn("balance %s", "low")

	assert.Equal(t, []string{"info:started", "warn:balance low"}, got)
}
