package lock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLock_Exclusive(t *testing.T) {
	// Given: two locks on the same directory
	dir := filepath.Join(t.TempDir(), "nested")
	first := New(dir)
	second := New(dir)

	// When: the first is held
	ok, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, first.IsLocked())

	// Then: the second cannot take it
	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, second.IsLocked())

	// When: released, it can
	require.NoError(t, first.Unlock())
	ok, err = second.TryLock()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, second.Unlock())
}

func TestFileLock_UnlockIdempotent(t *testing.T) {
	l := New(t.TempDir())
	assert.NoError(t, l.Unlock())

	require.NoError(t, l.Lock())
	assert.NoError(t, l.Unlock())
	assert.NoError(t, l.Unlock())
	assert.Equal(t, FileName, filepath.Base(l.Path()))
}
