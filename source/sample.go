package source

import (
	"context"
	"strings"

	"github.com/earthkit/fieldkit/config"
	"github.com/earthkit/fieldkit/fieldlist"
)

// Sample fetches named example files from the configured sample base URL.
// It exists for documentation and tests; under the hood it is a URL source.
type Sample struct {
	cfg   *config.Config
	names []string
}

// NewSample creates a sample source for the given example file names, e.g.
// "test.grib".
func NewSample(cfg *config.Config, names ...string) *Sample {
	return &Sample{cfg: cfg, names: names}
}

func sampleFactory(cfg *config.Config, args Args) (Source, error) {
	names, err := stringsArg(args, "name")
	if err != nil {
		return nil, err
	}

	return NewSample(cfg, names...), nil
}

// FieldList downloads the named samples and concatenates their fields.
func (s *Sample) FieldList(ctx context.Context) (*fieldlist.FieldList, error) {
	base := strings.TrimRight(s.cfg.SampleBaseURL, "/")
	urls := make([]string, len(s.names))
	for i, name := range s.names {
		urls[i] = base + "/" + strings.TrimLeft(name, "/")
	}

	return NewURL(s.cfg, urls...).FieldList(ctx)
}
