package fetch

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyDirMirrorsTreeAndSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires elevated privileges on windows")
	}

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "root.lua"), []byte("return {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "nested.lua"), []byte("return 1"), 0o644))
	require.NoError(t, os.Symlink("nested.lua", filepath.Join(src, "sub", "alias.lua")))

	dest := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, copyDir(src, dest))

	assert.FileExists(t, filepath.Join(dest, "root.lua"))
	assert.FileExists(t, filepath.Join(dest, "sub", "nested.lua"))

	target, err := os.Readlink(filepath.Join(dest, "sub", "alias.lua"))
	require.NoError(t, err)
	assert.Equal(t, "nested.lua", target)
}

func TestCopyFilePreservesContent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.lua")
	require.NoError(t, os.WriteFile(src, []byte("return 42"), 0o644))

	dest := filepath.Join(dir, "b.lua")
	require.NoError(t, copyFile(src, dest, 0o644))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "return 42", string(data))
}
