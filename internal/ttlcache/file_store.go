package ttlcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	fileSuffix      = ".json"
	tempPrefix      = ".tmp-"
	tombstoneInfix  = ".sweep-"
	staleTempMaxAge = 10 * time.Minute
)

// fileRecord is the on-disk form of an Entry
type fileRecord struct {
	Key        string    `json:"key"`
	StoredAt   time.Time `json:"storedAt"`
	TTLSeconds float64   `json:"ttlSeconds"`
	Payload    []byte    `json:"payload"`
}

// FileStore keeps one JSON file per entry in a directory. Writes go to a
// temporary file that is renamed over the entry, so readers only ever see a
// complete old or complete new entry.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore creates dir if needed and returns a store rooted there
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Dir returns the directory the store writes to
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+fileSuffix)
}

func (s *FileStore) Load(ctx context.Context, key string) (Entry, bool, error) {
	rec, err := readRecord(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	if rec.Key != key {
		return Entry{}, false, nil
	}
	return rec.entry(), true, nil
}

func (s *FileStore) Save(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(fileRecord{
		Key:        entry.Key,
		StoredAt:   entry.StoredAt,
		TTLSeconds: entry.TTL.Seconds(),
		Payload:    entry.Payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", entry.Key, err)
	}

	tmp := filepath.Join(s.dir, tempPrefix+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write cache entry %s: %w", entry.Key, err)
	}
	if err := os.Rename(tmp, s.path(entry.Key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace cache entry %s: %w", entry.Key, err)
	}
	return nil
}

// DeleteIfStoredBefore moves the entry aside before deciding, so the
// decision is made on exactly the file that gets deleted. A fresh entry is
// linked back into place; if a newer Save landed meanwhile the link fails
// and the newer file is kept.
func (s *FileStore) DeleteIfStoredBefore(ctx context.Context, key string, cutoff time.Time) (bool, error) {
	return s.deleteIfStoredBefore(s.path(key), cutoff)
}

func (s *FileStore) deleteIfStoredBefore(path string, cutoff time.Time) (bool, error) {
	tomb := path + tombstoneInfix + uuid.NewString()
	if err := os.Rename(path, tomb); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim cache file %s: %w", filepath.Base(path), err)
	}
	defer os.Remove(tomb)

	rec, err := readRecord(tomb)
	if err != nil || rec.StoredAt.Before(cutoff) {
		// Unreadable entries are garbage either way
		return true, nil
	}

	if err := os.Link(tomb, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		// No hard links on this filesystem; a rename may clobber a newer
		// entry, which at worst costs one extra miss
		if renameErr := os.Rename(tomb, path); renameErr != nil {
			return false, fmt.Errorf("failed to restore cache file %s: %w", filepath.Base(path), renameErr)
		}
	}
	return false, nil
}

func (s *FileStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache directory %s: %w", s.dir, err)
	}

	evicted := 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return evicted, err
		}
		if f.IsDir() {
			continue
		}
		name := f.Name()
		path := filepath.Join(s.dir, name)

		if !isEntryFile(name) {
			s.removeStale(path, f)
			continue
		}

		rec, err := readRecord(path)
		if err == nil && !rec.StoredAt.Before(cutoff) {
			continue
		}

		deleted, err := s.deleteIfStoredBefore(path, cutoff)
		if err != nil {
			s.logger.Warn("Failed to evict cache file", "file", name, "error", err)
			continue
		}
		if deleted {
			evicted++
		}
	}
	return evicted, nil
}

// removeStale deletes temp files and tombstones left behind by a crash
func (s *FileStore) removeStale(path string, f fs.DirEntry) {
	name := f.Name()
	if !strings.HasPrefix(name, tempPrefix) && !strings.Contains(name, tombstoneInfix) {
		return
	}
	info, err := f.Info()
	if err != nil || time.Since(info.ModTime()) < staleTempMaxAge {
		return
	}
	if err := os.Remove(path); err == nil {
		s.logger.Debug("Removed stale cache temp file", "file", name)
	}
}

func (s *FileStore) Clear(ctx context.Context) (int, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache directory %s: %w", s.dir, err)
	}

	removed := 0
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || (!isEntryFile(name) && !strings.HasPrefix(name, tempPrefix) && !strings.Contains(name, tombstoneInfix)) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("failed to remove cache file %s: %w", name, err)
		}
		if isEntryFile(name) {
			removed++
		}
	}
	return removed, nil
}

func (s *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("cache directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cache path %s is not a directory", s.dir)
	}
	return nil
}

func isEntryFile(name string) bool {
	return strings.HasSuffix(name, fileSuffix) && !strings.HasPrefix(name, ".")
}

func readRecord(path string) (fileRecord, error) {
	var rec fileRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode cache file %s: %w", filepath.Base(path), err)
	}
	return rec, nil
}

func (r fileRecord) entry() Entry {
	return Entry{
		Key:      r.Key,
		Payload:  r.Payload,
		StoredAt: r.StoredAt,
		TTL:      time.Duration(r.TTLSeconds * float64(time.Second)),
	}
}
