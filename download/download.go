// Package download fetches remote files through a bounded worker pool with
// bounded retries and per-request timeouts.
//
// Downloads land in the cache (or a temp file when caching is off) and are
// handed back as local paths in the originally requested order, regardless
// of the order workers finish in.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/earthkit/fieldkit/cache"
	"github.com/earthkit/fieldkit/config"
	"github.com/earthkit/fieldkit/errs"
	"github.com/earthkit/fieldkit/internal/pool"
)

var log = logrus.WithField("component", "download")

// Client downloads URLs per the configured thread count, timeout and retry
// policy.
type Client struct {
	threads int
	timeout time.Duration
	retries int
	http    *http.Client
}

// NewClient builds a download client from the configuration.
func NewClient(cfg *config.Config) *Client {
	threads := cfg.NumberOfDownloadThreads
	if threads < 1 {
		// errgroup.SetLimit(0) admits no work at all; a zero-value
		// configuration must still download.
		threads = 1
	}

	return &Client{
		threads: threads,
		timeout: cfg.Timeout(),
		retries: cfg.DownloadRetries,
		http:    &http.Client{},
	}
}

// FetchAll downloads every URL concurrently (bounded by the thread count)
// and returns local file paths in request order. Cached entries are reused;
// with a nil cache each download goes to a fresh temp file.
//
// The first failure cancels outstanding work and is returned. Timeouts
// surface as errs.ErrDownloadTimeout, other failures as errs.ErrDownload.
func (c *Client) FetchAll(ctx context.Context, cch *cache.Cache, urls []string) ([]string, error) {
	paths := make([]string, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.threads)

	for i, url := range urls {
		g.Go(func() error {
			path, err := c.fetch(gctx, cch, url)
			if err != nil {
				return err
			}
			paths[i] = path

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return paths, nil
}

// Fetch downloads one URL and returns its local path.
func (c *Client) Fetch(ctx context.Context, cch *cache.Cache, url string) (string, error) {
	return c.fetch(ctx, cch, url)
}

func (c *Client) fetch(ctx context.Context, cch *cache.Cache, url string) (string, error) {
	key := cache.Fingerprint("url", url)
	if path, ok := cch.Get(key); ok {
		return path, nil
	}

	if cch != nil {
		return cch.Put(key, func(w io.Writer) error {
			return c.retrieve(ctx, url, w)
		})
	}

	tmp, err := os.CreateTemp("", "fieldkit-download-*")
	if err != nil {
		return "", err
	}
	if err := c.retrieve(ctx, url, tmp); err != nil {
		tmp.Close()
		// A partial download is invalid, never reused.
		os.Remove(tmp.Name())

		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	return tmp.Name(), nil
}

// retrieve performs the HTTP GET with per-attempt timeout and bounded
// exponential-backoff retries. Attempts accumulate into a pooled buffer that
// is reset between tries, so a partial attempt never reaches the writer.
func (c *Client) retrieve(ctx context.Context, url string, w io.Writer) error {
	buf := pool.GetDownloadBuffer()
	defer pool.PutDownloadBuffer(buf)

	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			log.WithField("url", url).WithField("attempt", attempt).Debug("retrying download")
		}
		buf.Reset()

		return c.attempt(ctx, url, buf)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.retries)), //nolint:gosec
		ctx,
	)

	if err := backoff.Retry(op, policy); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())

	return err
}

func (c *Client) attempt(ctx context.Context, url string, w io.Writer) error {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("%w: %s: %w", errs.ErrDownload, url, err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || actx.Err() != nil {
			return fmt.Errorf("%w: %s after %s", errs.ErrDownloadTimeout, url, c.timeout)
		}

		return fmt.Errorf("%w: %s: %w", errs.ErrDownload, url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		// Server-side hiccups are worth retrying.
		return fmt.Errorf("%w: %s: status %s", errs.ErrDownload, url, resp.Status)
	case resp.StatusCode >= 400:
		return backoff.Permanent(fmt.Errorf("%w: %s: status %s", errs.ErrDownload, url, resp.Status))
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || actx.Err() != nil {
			return fmt.Errorf("%w: %s after %s", errs.ErrDownloadTimeout, url, c.timeout)
		}

		return fmt.Errorf("%w: %s: %w", errs.ErrDownload, url, err)
	}

	return nil
}
