package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCrashFile(t *testing.T) {
	previous := CrashLogDir
	t.Cleanup(func() { CrashLogDir = previous })

	dir := filepath.Join(t.TempDir(), "logs")
	InstallCrashHandler(dir)
	require.DirExists(t, dir)

	path := WriteCrashFile(errors.New("boom"), GetStackTrace())
	require.NotEmpty(t, path)
	assert.Equal(t, dir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "=== MEDGUARD CRASH REPORT ===")
	assert.Contains(t, string(data), "boom")
	assert.Contains(t, string(data), "TestWriteCrashFile")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
