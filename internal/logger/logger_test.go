package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestRotator_RotatesWhenFull(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "terminal.log")

	r := &Rotator{Filename: name, MaxSize: 16, MaxBackups: 2}

	_, err := r.Write([]byte("0123456789\n"))
	require.NoError(t, err)
	// Second write overflows 16 bytes and pushes the first file to .1
	_, err = r.Write([]byte("abcdefghij\n"))
	require.NoError(t, err)
	_, err = r.Write([]byte("klmnopqrst\n"))
	require.NoError(t, err)

	current, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Equal(t, "klmnopqrst\n", string(current))

	first, err := os.ReadFile(name + ".1")
	require.NoError(t, err)
	require.Equal(t, "abcdefghij\n", string(first))

	second, err := os.ReadFile(name + ".2")
	require.NoError(t, err)
	require.Equal(t, "0123456789\n", string(second))

	require.NoError(t, r.Sync())
}

func TestRotator_KeepsFileWhenRenameFails(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "terminal.log")
	// A non-empty directory where the first backup should go makes the rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join(name+".1", "keep"), 0o755))

	r := &Rotator{Filename: name, MaxSize: 16, MaxBackups: 1}
	_, err := r.Write([]byte("0123456789\n"))
	require.NoError(t, err)

	require.Error(t, r.rotate())

	_, err = r.Write([]byte("abcdefghij\n"))
	require.NoError(t, err)

	current, err := os.ReadFile(name)
	require.NoError(t, err)
	require.Equal(t, "0123456789\nabcdefghij\n", string(current))
	require.NoError(t, r.Sync())
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "terminal.log")

	l := Setup("debug", name, 1, 1)
	l.Sugar().Infow("portfolio refreshed", "broker", "b-1")
	_ = l.Sync()

	b, err := os.ReadFile(name)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(b), `"msg":"portfolio refreshed"`), string(b))
	require.True(t, strings.Contains(string(b), `"broker":"b-1"`), string(b))
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	require.Equal(t, zapcore.WarnLevel, ParseLevel("WARNING"))
	require.Equal(t, zapcore.ErrorLevel, ParseLevel("ERROR"))
	require.Equal(t, zapcore.InfoLevel, ParseLevel("loud"))
}
