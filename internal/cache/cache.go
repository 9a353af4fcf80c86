// Package cache stores analysis reports on disk, keyed by a BLAKE3 digest
// of the analyzed source and the options that shaped the report.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/panbanda/pymetrics/pkg/report"
)

// Cache is a directory of report entries. A nil *Cache is a valid,
// disabled cache.
type Cache struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

type entry struct {
	Key       string          `json:"key"`
	Timestamp time.Time       `json:"timestamp"`
	Report    json.RawMessage `json:"report"`
}

// New opens (creating if needed) a cache rooted at dir. A ttl of zero
// never expires entries.
func New(dir string, ttl time.Duration) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir, ttl: ttl, now: time.Now}, nil
}

// Key derives the cache key for source analyzed under salt, which should
// capture every option that affects the report.
func Key(source []byte, salt string) string {
	h := blake3.New()
	_, _ = h.Write([]byte(salt))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(source)
	return hex.EncodeToString(h.Sum(nil))
}

// Load returns the cached report for key. Expired or unreadable entries
// are removed and reported as misses.
func (c *Cache) Load(key string) (*report.MetricsReport, bool) {
	if c == nil {
		return nil, false
	}
	path := c.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Key != key {
		_ = os.Remove(path)
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.Timestamp) > c.ttl {
		_ = os.Remove(path)
		return nil, false
	}

	var r report.MetricsReport
	if err := json.Unmarshal(e.Report, &r); err != nil {
		_ = os.Remove(path)
		return nil, false
	}
	return &r, true
}

// Store writes r under key. The file label is not part of the entry's
// identity; callers overwrite it after Load.
func (c *Cache) Store(key string, r *report.MetricsReport) error {
	if c == nil {
		return nil
	}
	body, err := r.JSON(false)
	if err != nil {
		return err
	}
	data, err := json.Marshal(entry{Key: key, Timestamp: c.now(), Report: body})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	// Write then rename so concurrent readers never see a partial entry.
	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return os.Rename(tmp.Name(), c.path(key))
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	if err := os.RemoveAll(c.dir); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// Stats describes the cache contents.
type Stats struct {
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	OldestAge time.Duration `json:"oldest_age"`
	NewestAge time.Duration `json:"newest_age"`
}

// Stats walks the cache directory.
func (c *Cache) Stats() (*Stats, error) {
	if c == nil {
		return &Stats{}, nil
	}

	stats := &Stats{}
	var oldest, newest time.Time
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		stats.Entries++
		stats.TotalSize += info.Size()
		mod := info.ModTime()
		if oldest.IsZero() || mod.Before(oldest) {
			oldest = mod
		}
		if newest.IsZero() || mod.After(newest) {
			newest = mod
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	now := c.now()
	if !oldest.IsZero() {
		stats.OldestAge = now.Sub(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = now.Sub(newest)
	}
	return stats, nil
}
