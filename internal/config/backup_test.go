package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupFile(t *testing.T) {
	// Given: an existing config
	path := filepath.Join(t.TempDir(), ProjectConfigFile)

	backup, err := BackupFile(path)
	require.NoError(t, err)
	assert.Empty(t, backup, "nothing to back up")

	writeFile(t, path, "search:\n  page_size: 5\n")

	// When: backed up more often than MaxBackups
	for i := 0; i < MaxBackups+2; i++ {
		backup, err = BackupFile(path)
		require.NoError(t, err)
		require.NotEmpty(t, backup)
	}

	// Then: only the newest are kept, newest first
	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)
	assert.Equal(t, backup, backups[0])
}

func TestRestoreFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectConfigFile)
	writeFile(t, path, "version: 1\n")
	backup, err := BackupFile(path)
	require.NoError(t, err)
	writeFile(t, path, "version: 2\n")

	require.NoError(t, RestoreFile(path, backup))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))

	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, 2, "current file backed up before restore")
}
