package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")

	require.NoError(t, WriteFileAtomic(Default, path, []byte("hello"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// Overwrite replaces contents fully.
	require.NoError(t, WriteFileAtomic(Default, path, []byte("world"), 0o644))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))

	// No temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileAtomicFaultLeavesOldFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")

	require.NoError(t, WriteFileAtomic(Default, path, []byte("old"), 0o644))

	faulty := NewFaultyFS(nil)
	faulty.AddRule("data.bin", Fault{FailOnWrite: true})

	err := WriteFileAtomic(faulty, path, []byte("new"), 0o644)
	require.Error(t, err)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "old", string(data))
}

func TestFaultyFSSyncAndClose(t *testing.T) {
	dir := t.TempDir()

	faulty := NewFaultyFS(nil)
	faulty.AddRule("sync", Fault{FailOnSync: true})
	faulty.AddRule("close", Fault{FailOnClose: true})

	f, err := faulty.OpenFile(filepath.Join(dir, "sync.bin"), os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	assert.Error(t, f.Sync())
	_ = f.Close()

	f, err = faulty.OpenFile(filepath.Join(dir, "close.bin"), os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	assert.Error(t, f.Close())
}
