package cache

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/earthkit/fieldkit/config"
)

func testCache(t *testing.T, limit int64) *Cache {
	t.Helper()

	cfg := config.Default()
	cfg.CachePolicy = config.CacheUser
	cfg.UserCacheDirectory = t.TempDir()
	cfg.MaximumCacheDiskUsage = limit

	c, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, c)

	return c
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("url", "https://example.org/a.grib")
	b := Fingerprint("url", "https://example.org/b.grib")

	require.Len(t, a, 16)
	require.NotEqual(t, a, b)

	// Deterministic across calls.
	require.Equal(t, a, Fingerprint("url", "https://example.org/a.grib"))

	// Part boundaries matter: ("ab","c") differs from ("a","bc").
	require.NotEqual(t, Fingerprint("ab", "c"), Fingerprint("a", "bc"))
}

func TestPutGet(t *testing.T) {
	c := testCache(t, 0)
	key := Fingerprint("url", "https://example.org/data.grib")

	_, ok := c.Get(key)
	require.False(t, ok)

	path, err := c.Put(key, func(w io.Writer) error {
		_, err := w.Write([]byte("payload"))
		return err
	})
	require.NoError(t, err)

	got, ok := c.Get(key)
	require.True(t, ok)
	require.Equal(t, path, got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)
}

func TestPutFailedFillLeavesNothing(t *testing.T) {
	c := testCache(t, 0)
	key := Fingerprint("url", "https://example.org/broken.grib")

	boom := errors.New("boom")
	_, err := c.Put(key, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, ok := c.Get(key)
	require.False(t, ok)

	// No temp debris either.
	entries, err := os.ReadDir(c.Dir())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestEviction(t *testing.T) {
	// Limit fits two 100-byte entries but not three.
	c := testCache(t, 250)

	payload := make([]byte, 100)
	put := func(name string) string {
		path, err := c.Put(Fingerprint("url", name), func(w io.Writer) error {
			_, err := w.Write(payload)
			return err
		})
		require.NoError(t, err)

		return path
	}

	oldest := put("first")
	// Make mtimes clearly ordered.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(oldest, past, past))

	put("second")
	put("third")

	// The oldest entry is gone, the cache fits the limit again.
	_, err := os.Stat(oldest)
	require.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(c.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestGetTouchesEntry(t *testing.T) {
	c := testCache(t, 0)
	key := Fingerprint("url", "touched")

	path, err := c.Put(key, func(w io.Writer) error {
		_, err := w.Write([]byte("x"))
		return err
	})
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))

	_, ok := c.Get(key)
	require.True(t, ok)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), info.ModTime(), time.Minute)
}

func TestNilCache(t *testing.T) {
	cfg := config.Default()
	cfg.CachePolicy = config.CacheOff

	c, err := New(cfg)
	require.NoError(t, err)
	require.Nil(t, c)

	require.Empty(t, c.Dir())

	_, ok := c.Get("anything")
	require.False(t, ok)

	called := false
	path, err := c.Put("anything", func(io.Writer) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.Empty(t, path)
	require.False(t, called)
}

func TestDirCreated(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")

	cfg := config.Default()
	cfg.CachePolicy = config.CacheUser
	cfg.UserCacheDirectory = dir

	c, err := New(cfg)
	require.NoError(t, err)
	require.Equal(t, dir, c.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
