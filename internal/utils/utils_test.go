package utils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/maxgio92/pyperf/internal/utils"
)

func TestPidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pyperf.pid")

	_, err := utils.ReadPidFile(path)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, utils.WritePidFile(path, 4242))
	pid, err := utils.ReadPidFile(path)
	require.NoError(t, err)
	require.Equal(t, 4242, pid)

	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	_, err = utils.ReadPidFile(path)
	require.Error(t, err)
}

func TestFileInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.vsp")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o644))
	mtime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	size, age := utils.FileInfo(path, mtime.Add(3*time.Hour))
	require.Equal(t, "2.0 kB", size)
	require.Equal(t, "3 hours ago", age)

	size, _ = utils.FileInfo(dir, mtime)
	require.Equal(t, "dir", size)

	size, age = utils.FileInfo(filepath.Join(dir, "missing"), mtime)
	require.Equal(t, "missing", size)
	require.Equal(t, "-", age)
}
