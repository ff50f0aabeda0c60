package marker_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"f0oster/zbxsync/marker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAbsentMarkerIsZeroTime(t *testing.T) {
	store := marker.NewStore(filepath.Join(t.TempDir(), "last_import"))

	got, err := store.Read()
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_import")
	store := marker.NewStore(path)

	stamp := time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC)
	require.NoError(t, store.Write(stamp))

	got, err := store.Read()
	require.NoError(t, err)
	assert.True(t, stamp.Equal(got))

	// No temp files are left behind after the atomic replace.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadEmptyFileIsZeroTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_import")
	require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))

	got, err := marker.NewStore(path).Read()
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestReadGarbageFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_import")
	require.NoError(t, os.WriteFile(path, []byte("not-a-time"), 0o644))

	_, err := marker.NewStore(path).Read()
	assert.Error(t, err)
}
