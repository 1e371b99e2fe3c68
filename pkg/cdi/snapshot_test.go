package cdi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSaveLoad(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "testlog"), "DiskInfo.json")
	rec := ParseText(loadFixture(t))

	assert.False(t, store.Exists("Before_"))
	path, err := store.Save("Before_", rec)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Dir(), "Before_DiskInfo.json"), path)
	assert.Equal(t, path, store.Path("Before_"))
	assert.True(t, store.Exists("Before_"))

	loaded, err := store.Load("Before_")
	require.NoError(t, err)
	assert.Equal(t, path, loaded.Source)
	loaded.Source = ""
	assert.Equal(t, rec, loaded)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files may be left behind")
}

func TestStoreList(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, "DiskInfo")

	prefixes, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, prefixes)

	rec := ParseText(minimalReport)
	for _, prefix := range []string{"After_", "Before_", ""} {
		_, err := store.Save(prefix, rec)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Other.json"), []byte("{}"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Nested_DiskInfo.json"), 0o755))

	prefixes, err = store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"", "After_", "Before_"}, prefixes)

	missing := NewStore(filepath.Join(dir, "missing"), "DiskInfo.json")
	prefixes, err = missing.List()
	require.NoError(t, err)
	assert.Empty(t, prefixes)
}

func TestStoreLoadMissing(t *testing.T) {
	store := NewStore(t.TempDir(), "DiskInfo.json")
	_, err := store.Load("Before_")
	assert.True(t, os.IsNotExist(err))
}

func TestStoreCompare(t *testing.T) {
	store := NewStore(t.TempDir(), "DiskInfo.json")
	c := quietComparator()

	_, err := store.Save("Before_", smartRecord("C:", "Power Cycles", "000000000001", "Media Errors", "000000000000"))
	require.NoError(t, err)
	_, err = store.Save("After_", smartRecord("C:", "Power Cycles", "00000000000E", "Media Errors", "000000000000"))
	require.NoError(t, err)

	ok, msg, err := store.CompareDelta(c, "Before_", "After_", "C:", []string{"Power Cycles"}, 13)
	require.NoError(t, err)
	assert.True(t, ok, msg)

	ok, msg, err = store.CompareNoIncrease(c, "Before_", "After_", "C:", []string{"Media Errors"})
	require.NoError(t, err)
	assert.True(t, ok, msg)

	ok, msg, err = store.CompareEquals(c, "After_", "C:", []string{"Power Cycles"}, 14)
	require.NoError(t, err)
	assert.True(t, ok, msg)

	_, _, err = store.CompareDelta(c, "Before_", "Missing_", "C:", []string{"Power Cycles"}, 13)
	assert.Error(t, err)

	_, _, err = store.CompareEquals(c, "After_", "Z:", []string{"Power Cycles"}, 14)
	assert.ErrorIs(t, err, ErrDriveNotFound)
	assert.Contains(t, err.Error(), store.Path("After_"))
}

func TestReadRecordInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"disks":[{"Model":7}]}`), 0o644))

	_, err := ReadRecord(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode snapshot")
}
