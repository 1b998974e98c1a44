package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	root := t.TempDir()
	r, err := NewResolver(root)
	require.NoError(t, err)

	t.Run("plain pointer resolves under root", func(t *testing.T) {
		got, err := r.Resolve("documents/abc.pdf")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, r.Root()))
		assert.Equal(t, filepath.Join(r.Root(), "documents", "abc.pdf"), got)
	})

	t.Run("rejected pointers", func(t *testing.T) {
		rejected := []string{
			"",
			"../outside.txt",
			"documents/../../outside.txt",
			"documents/../..",
			"/etc/passwd",
			"..",
			"../../..",
			"a/b/../../../c",
		}
		for _, p := range rejected {
			_, err := r.Resolve(p)
			assert.Error(t, err, "pointer %q must be rejected", p)
		}
	})

	t.Run("inner dot segments that stay inside are allowed", func(t *testing.T) {
		got, err := r.Resolve("documents/sub/../abc.pdf")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(r.Root(), "documents", "abc.pdf"), got)
	})

	t.Run("symlink escape is rejected", func(t *testing.T) {
		outside := t.TempDir()
		secret := filepath.Join(outside, "secret.txt")
		require.NoError(t, os.WriteFile(secret, []byte("x"), 0o600))
		require.NoError(t, os.MkdirAll(filepath.Join(root, "documents"), 0o750))
		link := filepath.Join(root, "documents", "escape")
		if err := os.Symlink(secret, link); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}

		_, err := r.Resolve("documents/escape")
		assert.Error(t, err)
	})
}

func TestNewResolver(t *testing.T) {
	t.Run("empty root rejected", func(t *testing.T) {
		_, err := NewResolver("")
		assert.Error(t, err)
	})

	t.Run("relative root becomes absolute", func(t *testing.T) {
		r, err := NewResolver(".")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(r.Root()))
	})
}
