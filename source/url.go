package source

import (
	"context"
	"fmt"
	"os"

	"github.com/earthkit/fieldkit/cache"
	"github.com/earthkit/fieldkit/compress"
	"github.com/earthkit/fieldkit/config"
	"github.com/earthkit/fieldkit/download"
	"github.com/earthkit/fieldkit/fieldlist"
)

// URL downloads remote files through the cache and download pool, then reads
// them with file semantics. The compression codec is chosen from the URL, not
// the local cache path, since cache entries carry fingerprint names.
type URL struct {
	cfg  *config.Config
	urls []string
}

// NewURL creates a URL source. cfg controls the cache policy, thread count,
// timeout and retries.
func NewURL(cfg *config.Config, urls ...string) *URL {
	return &URL{cfg: cfg, urls: urls}
}

func urlFactory(cfg *config.Config, args Args) (Source, error) {
	urls, err := stringsArg(args, "url")
	if err != nil {
		return nil, err
	}

	return NewURL(cfg, urls...), nil
}

// FieldList downloads every URL (bounded concurrency, request-order results)
// and concatenates the fields of the local copies.
func (s *URL) FieldList(ctx context.Context) (*fieldlist.FieldList, error) {
	cch, err := cache.New(s.cfg)
	if err != nil {
		return nil, err
	}

	paths, err := download.NewClient(s.cfg).FetchAll(ctx, cch, s.urls)
	if err != nil {
		return nil, err
	}

	fl := fieldlist.New()
	for i, path := range paths {
		part, err := openLocal(path, s.urls[i])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.urls[i], err)
		}
		fl.Append(part.Fields()...)
	}

	return fl, nil
}

// openLocal opens a downloaded file whose compression is indicated by the
// original remote name rather than the local path.
func openLocal(path, remote string) (*fieldlist.FieldList, error) {
	codec, _ := compress.ForPath(remote)
	if _, noop := codec.(compress.NoOpCodec); noop {
		return openPlain(path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data, err := codec.Decompress(raw)
	if err != nil {
		return nil, err
	}

	return openBytes(data, "remote")
}
