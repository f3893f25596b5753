// Package cache implements the best-effort disk cache for downloaded files.
//
// Entries are keyed by an xxHash64 fingerprint of the request descriptor.
// Writes land in a temp file and are renamed into place, so a concurrent
// reader never observes a partial entry and concurrent writers of the same
// key settle on last-writer-wins. No cross-process lock is taken: eviction
// races under heavy multi-process use are an accepted limitation.
package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/earthkit/fieldkit/config"
	"github.com/earthkit/fieldkit/internal/hash"
)

var log = logrus.WithField("component", "cache")

// Cache is a fingerprint-keyed file cache rooted at one directory.
// A nil *Cache is valid and caches nothing.
type Cache struct {
	dir   string
	limit int64 // bytes, 0 = unlimited
}

// New creates a cache per the configuration. With cache-policy "off" it
// returns nil, which all methods accept.
func New(cfg *config.Config) (*Cache, error) {
	dir := cfg.CacheDirectory()
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}

	return &Cache{dir: dir, limit: cfg.MaximumCacheDiskUsage}, nil
}

// Fingerprint derives the cache key for a request descriptor.
func Fingerprint(parts ...string) string {
	var joined string
	for _, p := range parts {
		joined += p + "\x00"
	}

	return fmt.Sprintf("%016x", hash.ID(joined))
}

// Dir returns the cache root, or "" for a nil cache.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}

	return c.dir
}

// Get returns the path of a cached entry and whether it exists. A hit
// refreshes the entry's timestamps so eviction treats it as recently used.
func (c *Cache) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}

	path := filepath.Join(c.dir, key)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}

	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		log.WithError(err).WithField("entry", key).Warn("failed to touch cache entry")
	}

	return path, true
}

// Put materializes an entry by streaming fill into a temp file and renaming
// it into place, then evicts oldest entries if the cache exceeds its limit.
// On a nil cache the fill function is not called and "" is returned.
func (c *Cache) Put(key string, fill func(w io.Writer) error) (string, error) {
	if c == nil {
		return "", nil
	}

	path := filepath.Join(c.dir, key)

	tmp, err := os.CreateTemp(c.dir, key+".part*")
	if err != nil {
		return "", err
	}

	if err := fill(tmp); err != nil {
		tmp.Close()
		// A failed fill never leaves a partial entry behind.
		os.Remove(tmp.Name())

		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}

	c.evict()

	return path, nil
}

// entry is one cache file during an eviction scan.
type entry struct {
	path string
	size int64
	used time.Time
}

// evict removes oldest-accessed entries until usage drops below the limit.
// Failures are logged, never raised: caching is an optimization.
func (c *Cache) evict() {
	if c == nil || c.limit <= 0 {
		return
	}

	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		log.WithError(err).Warn("cache eviction scan failed")
		return
	}

	var total int64
	entries := make([]entry, 0, len(dirents))
	for _, d := range dirents {
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		total += info.Size()
		entries = append(entries, entry{
			path: filepath.Join(c.dir, d.Name()),
			size: info.Size(),
			used: info.ModTime(),
		})
	}

	if total <= c.limit {
		return
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].used.Before(entries[j].used)
	})

	for _, e := range entries {
		if total <= c.limit {
			return
		}
		if err := os.Remove(e.path); err != nil {
			log.WithError(err).WithField("entry", e.path).Warn("cache eviction failed")
			continue
		}
		total -= e.size
	}
}
