package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRotatingWriter(t *testing.T) {
	t.Run("create rotating writer", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "agent.log")

		rw, err := NewRotatingWriter(logFile, 10, 7, false)
		require.NoError(t, err)
		defer rw.Close()

		_, err = os.Stat(logFile)
		assert.NoError(t, err)
	})

	t.Run("create directory if not exists", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "agent.log")

		rw, err := NewRotatingWriter(logFile, 10, 7, false)
		require.NoError(t, err)
		defer rw.Close()

		_, err = os.Stat(filepath.Dir(logFile))
		assert.NoError(t, err)
	})

	t.Run("resume size of existing file", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "agent.log")
		require.NoError(t, os.WriteFile(logFile, []byte("previous\n"), 0644))

		rw, err := NewRotatingWriter(logFile, 10, 7, false)
		require.NoError(t, err)
		defer rw.Close()

		assert.Equal(t, int64(9), rw.currentSize)
	})
}

func TestRotatingWriterWrite(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "agent.log")

	rw, err := NewRotatingWriter(logFile, 1, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	data := []byte("cycle completed\n")
	n, err := rw.Write(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "cycle completed")
}

func TestRotatingWriterRotation(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "agent.log")

	rw, err := NewRotatingWriter(logFile, 1, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rw.now = func() time.Time { return clock }

	first := []byte(strings.Repeat("a", 700*1024))
	second := []byte(strings.Repeat("b", 700*1024))

	_, err = rw.Write(first)
	require.NoError(t, err)
	_, err = rw.Write(second)
	require.NoError(t, err)

	rotated := logFile + "." + clock.Format(rotationTimeFormat)
	content, err := os.ReadFile(rotated)
	require.NoError(t, err)
	assert.Equal(t, first, content)

	content, err = os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Equal(t, second, content)
}

func TestRotatingWriterClose(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "agent.log")

	rw, err := NewRotatingWriter(logFile, 10, 7, false)
	require.NoError(t, err)

	assert.NoError(t, rw.Close())
	assert.NoError(t, rw.Close())

	_, err = rw.Write([]byte("late"))
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestCompressFile(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "agent.log.1")
	require.NoError(t, os.WriteFile(testFile, []byte("test content"), 0644))

	rw := &RotatingWriter{compress: true}
	require.NoError(t, rw.compressFile(testFile))

	_, err := os.Stat(testFile + ".gz")
	assert.NoError(t, err)

	_, err = os.Stat(testFile)
	assert.True(t, os.IsNotExist(err))
}

func TestCleanup(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "agent.log")

	oldFile := logFile + ".20200101-120000.000"
	require.NoError(t, os.WriteFile(oldFile, []byte("old log"), 0644))
	oldTime := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))

	recentFile := logFile + ".20991231-120000.000"
	require.NoError(t, os.WriteFile(recentFile, []byte("recent log"), 0644))

	rw, err := NewRotatingWriter(logFile, 10, 7, false)
	require.NoError(t, err)
	defer rw.Close()

	_, err = os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(recentFile)
	assert.NoError(t, err)
}
