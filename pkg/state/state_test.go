package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathsFor(t *testing.T) {
	p := PathsFor("/data")
	assert.Equal(t, "/data/store", p.Store)
	assert.Equal(t, "/data/state/retention", p.Retention)
	assert.Equal(t, "/data/state/crash", p.Crash)
	assert.Equal(t, "/data/state/abort", p.Abort)
}

func TestEnsureStateDirs(t *testing.T) {
	p := PathsFor(filepath.Join(t.TempDir(), "nv"))
	require.NoError(t, EnsureStateDirs(p))
	for _, dir := range []string{p.Store, p.Retention} {
		fi, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, fi.IsDir())
	}
	require.NoError(t, EnsureStateDirs(p), "idempotent")
}

func TestEnsureStateDirs_RejectsFile(t *testing.T) {
	p := PathsFor(t.TempDir())
	require.NoError(t, os.WriteFile(p.Store, []byte("x"), 0o600))
	assert.Error(t, EnsureStateDirs(p))
}

func TestEnsureStateDirs_RejectsSymlink(t *testing.T) {
	p := PathsFor(t.TempDir())
	target := filepath.Join(t.TempDir(), "elsewhere")
	require.NoError(t, os.MkdirAll(target, 0o700))
	require.NoError(t, os.Symlink(target, p.Store))
	assert.Error(t, EnsureStateDirs(p))
}
