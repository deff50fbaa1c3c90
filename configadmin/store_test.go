package configadmin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreSaveLoadDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	snap := Snapshot{PID: "com.example.thing", Properties: map[string]string{"k": "v"}}
	require.NoError(t, store.Save(snap.PID, snap))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Contains(t, loaded, snap.PID)
	assert.Equal(t, "v", loaded[snap.PID].Properties["k"])

	require.NoError(t, store.Delete(snap.PID))
	loaded, err = store.Load()
	require.NoError(t, err)
	assert.NotContains(t, loaded, snap.PID)
}

func TestFileStoreDropsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(corrupt, []byte("not: [valid: yaml"), 0o644))

	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, loaded)
	_, statErr := os.Stat(corrupt)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFileStoreDeleteMissingIsNotError(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	assert.NoError(t, store.Delete("never-existed"))
}
