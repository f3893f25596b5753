package download

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/earthkit/fieldkit/cache"
	"github.com/earthkit/fieldkit/config"
	"github.com/earthkit/fieldkit/errs"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.CachePolicy = config.CacheUser
	cfg.UserCacheDirectory = t.TempDir()
	cfg.DownloadRetries = 2

	return cfg
}

func testCache(t *testing.T, cfg *config.Config) *cache.Cache {
	t.Helper()

	c, err := cache.New(cfg)
	require.NoError(t, err)

	return c
}

func TestFetchAllOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "body of %s", r.URL.Path)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.NumberOfDownloadThreads = 3
	client := NewClient(cfg)

	urls := make([]string, 10)
	for i := range urls {
		urls[i] = fmt.Sprintf("%s/file-%d", srv.URL, i)
	}

	paths, err := client.FetchAll(context.Background(), testCache(t, cfg), urls)
	require.NoError(t, err)
	require.Len(t, paths, len(urls))

	// Results come back in request order regardless of worker scheduling.
	for i, path := range paths {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, fmt.Sprintf("body of /file-%d", i), string(data))
	}
}

func TestFetchWithUnsetThreadCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	// A config built by hand rather than through Default() leaves the thread
	// count at zero; downloads must still proceed.
	cfg := &config.Config{URLDownloadTimeout: 10}
	client := NewClient(cfg)

	paths, err := client.FetchAll(context.Background(), nil, []string{srv.URL + "/a", srv.URL + "/b"})
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, path := range paths {
		t.Cleanup(func() { os.Remove(path) })
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, []byte("payload"), data)
	}
}

func TestFetchUsesCache(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	client := NewClient(cfg)
	cch := testCache(t, cfg)

	url := srv.URL + "/cached"
	first, err := client.Fetch(context.Background(), cch, url)
	require.NoError(t, err)

	second, err := client.Fetch(context.Background(), cch, url)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, int64(1), hits.Load())
}

func TestFetchWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	client := NewClient(cfg)

	path, err := client.Fetch(context.Background(), nil, srv.URL+"/nocache")
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(path) })

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), data)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "try later", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("finally"))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.DownloadRetries = 3
	client := NewClient(cfg)

	path, err := client.Fetch(context.Background(), testCache(t, cfg), srv.URL+"/flaky")
	require.NoError(t, err)
	require.Equal(t, int64(3), calls.Load())

	// Failed attempts never leak partial bytes into the result.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("finally"), data)
}

func TestClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such file", http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.DownloadRetries = 5
	client := NewClient(cfg)

	_, err := client.Fetch(context.Background(), testCache(t, cfg), srv.URL+"/missing")
	require.ErrorIs(t, err, errs.ErrDownload)

	// 4xx is not retried.
	require.Equal(t, int64(1), calls.Load())
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(3 * time.Second)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.URLDownloadTimeout = 1
	cfg.DownloadRetries = 0
	client := NewClient(cfg)

	_, err := client.Fetch(context.Background(), testCache(t, cfg), srv.URL+"/slow")
	require.ErrorIs(t, err, errs.ErrDownloadTimeout)
	require.ErrorIs(t, err, errs.ErrDownload)
}

func TestFirstFailureCancelsBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			http.Error(w, "nope", http.StatusForbidden)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.DownloadRetries = 0
	client := NewClient(cfg)

	_, err := client.FetchAll(context.Background(), testCache(t, cfg),
		[]string{srv.URL + "/good", srv.URL + "/bad"})
	require.ErrorIs(t, err, errs.ErrDownload)
}
