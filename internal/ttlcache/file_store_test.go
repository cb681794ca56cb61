package ttlcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := NewFileStore(dir, testLogger())
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, Entry{Key: "weather:1:1", Payload: []byte(`{"temperature":22}`), StoredAt: epoch, TTL: 30 * time.Minute}))

	second, err := NewFileStore(dir, testLogger())
	require.NoError(t, err)
	got, found, err := second.Load(ctx, "weather:1:1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte(`{"temperature":22}`), got.Payload)
	assert.Equal(t, 30*time.Minute, got.TTL)
	assert.Equal(t, dir, second.Dir())
}

func TestFileStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")

	s, err := NewFileStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileStorePingFailsWhenDirectoryVanishes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	s, err := NewFileStore(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(dir))
	assert.Error(t, s.Ping(context.Background()))
}

func TestFileStoreIgnoresHashCollision(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, Entry{Key: "a", Payload: []byte("1"), StoredAt: epoch, TTL: time.Minute}))

	// Copy entry "a" into the slot for "b"
	data, err := os.ReadFile(s.path("a"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.path("b"), data, 0o644))

	_, found, err := s.Load(ctx, "b")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFileStoreCorruptFile(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.path("sun:0:0:0"), []byte("{truncated"), 0o644))

	_, _, err = s.Load(ctx, "sun:0:0:0")
	assert.Error(t, err)

	// A sweep treats unreadable entries as expired
	n, err := s.Sweep(ctx, epoch)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = os.Stat(s.path("sun:0:0:0"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreSweepRemovesStaleTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir, testLogger())
	require.NoError(t, err)

	stale := filepath.Join(dir, tempPrefix+"stale")
	fresh := filepath.Join(dir, tempPrefix+"fresh")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	n, err := s.Sweep(ctx, epoch)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "temp files are not counted as evictions")

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err, "a write in progress must be left alone")
}

func TestFileStoreClearLeavesForeignFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, Entry{Key: "k", Payload: []byte("v"), StoredAt: epoch, TTL: time.Minute}))
	readme := filepath.Join(dir, "README.txt")
	require.NoError(t, os.WriteFile(readme, []byte("keep"), 0o644))

	n, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = os.Stat(readme)
	assert.NoError(t, err)
}
