package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTailLogKeepsNewestBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	l, err := openTailLog(path)
	require.NoError(t, err)
	l.maxBytes = 64
	l.keep = 16

	_, err = l.Write(bytes.Repeat([]byte("a"), 60))
	require.NoError(t, err)
	_, err = l.Write([]byte("0123456789abcdef"))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "0123456789abcdef", string(data))
}

func TestTailLogAppendsBelowLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	l, err := openTailLog(path)
	require.NoError(t, err)
	_, err = l.Write([]byte("new\n"))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "old\nnew\n", string(data))
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, "DEBUG", parseLogLevel("debug").String())
	require.Equal(t, "WARN", parseLogLevel("warn").String())
	require.Equal(t, "INFO", parseLogLevel("bogus").String())
}
