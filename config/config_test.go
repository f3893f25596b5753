package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()

	require.Equal(t, CacheTemporary, c.CachePolicy)
	require.Equal(t, int64(5<<30), c.MaximumCacheDiskUsage)
	require.Equal(t, 5, c.NumberOfDownloadThreads)
	require.Equal(t, 30*time.Second, c.Timeout())
	require.Equal(t, 3, c.DownloadRetries)
	require.Equal(t, DefaultSampleBaseURL, c.SampleBaseURL)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, CacheTemporary, c.CachePolicy)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "settings.yaml")

	c, err := Load(path)
	require.NoError(t, err)

	c.CachePolicy = CacheUser
	c.NumberOfDownloadThreads = 9
	c.SampleBaseURL = "https://example.org/samples"
	require.NoError(t, c.Save())

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, CacheUser, reloaded.CachePolicy)
	require.Equal(t, 9, reloaded.NumberOfDownloadThreads)
	require.Equal(t, "https://example.org/samples", reloaded.SampleBaseURL)
}

func TestSetAutosaves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	c, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, c.Set("number-of-download-threads", "7"))

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7, reloaded.NumberOfDownloadThreads)
}

func TestSetValidation(t *testing.T) {
	c := Default()
	c.SetAutosave(false)

	tests := []struct {
		key   string
		value string
		ok    bool
	}{
		{"cache-policy", "user", true},
		{"cache-policy", "bogus", false},
		{"number-of-download-threads", "4", true},
		{"number-of-download-threads", "0", false},
		{"url-download-timeout", "15", true},
		{"url-download-timeout", "x", false},
		{"download-retries", "0", true},
		{"download-retries", "-1", false},
		{"maximum-cache-disk-usage", "1048576", true},
		{"no-such-key", "1", false},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			err := c.Set(tt.key, tt.value)
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FIELDKIT_NUMBER_OF_DOWNLOAD_THREADS", "11")
	t.Setenv("FIELDKIT_CACHE_POLICY", "off")

	c := Default()
	require.Equal(t, 11, c.NumberOfDownloadThreads)
	require.Equal(t, CacheOff, c.CachePolicy)
}

func TestBadEnvIgnored(t *testing.T) {
	t.Setenv("FIELDKIT_NUMBER_OF_DOWNLOAD_THREADS", "not-a-number")

	c := Default()
	require.Equal(t, 5, c.NumberOfDownloadThreads)
}

func TestTemporary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Set("download-retries", "2"))

	tmp, restore := c.Temporary()
	defer restore()

	tmp.DownloadRetries = 99
	require.NoError(t, tmp.Set("number-of-download-threads", "42"))

	// Temporary copies never persist.
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.DownloadRetries)
	require.Equal(t, 5, reloaded.NumberOfDownloadThreads)

	// The original object is unaffected too.
	require.Equal(t, 2, c.DownloadRetries)
}

func TestCacheDirectory(t *testing.T) {
	t.Run("off", func(t *testing.T) {
		c := Default()
		c.CachePolicy = CacheOff
		require.Empty(t, c.CacheDirectory())
	})

	t.Run("temporary", func(t *testing.T) {
		c := Default()
		c.CachePolicy = CacheTemporary
		require.Equal(t, filepath.Join(os.TempDir(), "fieldkit-cache"), c.CacheDirectory())
	})

	t.Run("user with explicit directory", func(t *testing.T) {
		dir := t.TempDir()
		c := Default()
		c.CachePolicy = CacheUser
		c.UserCacheDirectory = dir
		require.Equal(t, dir, c.CacheDirectory())
	})
}
