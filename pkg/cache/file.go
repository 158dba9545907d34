package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileCache stores pipeline results on disk, one JSON file per entry,
// sharded into a subdirectory per pipeline stage (timelines, layout,
// artifact). The stage is taken from the key prefix the Keyer writes, so
// cache inspection and clearing can report per stage.
type FileCache struct {
	dir string
}

// NewFileCache creates a file cache rooted at dir, creating it if needed.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// fileEntry is the on-disk envelope around a cached stage payload.
type fileEntry struct {
	Stage     string    `json:"stage,omitempty"`
	Payload   []byte    `json:"payload"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Get returns the payload for key. Expired and unreadable entries are
// removed and reported as misses, never as errors.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = os.Remove(path)
		return nil, false, nil
	}
	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false, nil
	}

	return entry.Payload, true, nil
}

// Set stores a payload under key. A zero ttl stores without expiration;
// a negative ttl stores an already-expired entry.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	entry := fileEntry{
		Stage:   stageOf(key),
		Payload: data,
	}
	if ttl != 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0644)
}

// Delete removes the entry for key. A missing entry is not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close is a no-op; entries persist across runs.
func (c *FileCache) Close() error {
	return nil
}

// path maps a key to <dir>/<stage>/<sha256(key)>.json. Keys without a
// stage prefix land in a misc bucket.
func (c *FileCache) path(key string) string {
	stage := stageOf(key)
	if stage == "" {
		stage = "misc"
	}
	return filepath.Join(c.dir, stage, Hash([]byte(key))+".json")
}

// stageOf extracts the stage segment of a key ("layout:abc" -> "layout").
func stageOf(key string) string {
	if stage, _, ok := strings.Cut(key, ":"); ok {
		return stage
	}
	return ""
}

// Ensure FileCache implements Cache.
var _ Cache = (*FileCache)(nil)
