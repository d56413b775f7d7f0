package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/ysyunhei/internal/config"
)

func TestEnsureGitignore(t *testing.T) {
	t.Parallel()

	t.Run("creates nested dir and protects secrets", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "a", ".ysyunhei")

		created, err := config.EnsureGitignore(dir)
		require.NoError(t, err)
		assert.True(t, created)

		data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
		require.NoError(t, err)
		assert.Equal(t, config.GitignoreContent(), string(data))
		assert.Contains(t, string(data), "config.yaml")
		assert.Contains(t, string(data), "config.local.yaml")
	})

	t.Run("second call is a no-op", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()

		created, err := config.EnsureGitignore(dir)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = config.EnsureGitignore(dir)
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("keeps an existing file", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		path := filepath.Join(dir, ".gitignore")
		require.NoError(t, os.WriteFile(path, []byte("bin/\n"), 0o644))

		created, err := config.EnsureGitignore(dir)
		require.NoError(t, err)
		assert.False(t, created)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "bin/\n", string(data))
	})

	t.Run("read-only dir", func(t *testing.T) {
		t.Parallel()
		if runtime.GOOS == "windows" || os.Geteuid() == 0 {
			t.Skip("permission bits not enforced")
		}
		dir := filepath.Join(t.TempDir(), "ro")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.Chmod(dir, 0o444))
		t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

		created, err := config.EnsureGitignore(dir)
		require.Error(t, err)
		assert.False(t, created)
	})
}
