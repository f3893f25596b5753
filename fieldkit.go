// Package fieldkit provides a uniform object model for accessing
// meteorological and climate data.
//
// Fieldkit reads GRIB and NetCDF data from files, URLs, S3 objects and
// in-memory arrays into a single abstraction (Field / FieldList), supports
// metadata-driven selection and ordering, exports to flat arrays, lat/lon
// point tables and Arrow records, and writes fieldlists back to files.
//
// # Core Features
//
//   - Lazy GRIB access: files are scanned for message offsets only; packed
//     values are decoded on first use and memoized
//   - Metadata selection (Sel), ordering (OrderBy) and batching over
//     fieldlists, backed by a lazy per-key index
//   - Copy-on-write metadata overrides that never mutate the source field
//   - Sources: file (with globs and transparent .gz/.zst/.lz4
//     decompression), url, s3, sample, stream, memory, plus a plugin registry
//   - Targets: single file and {key} path patterns, GRIB and NetCDF encoders
//   - Disk cache with fingerprint keys and oldest-first eviction, bounded
//     concurrent downloads with retries
//
// # Basic Usage
//
// Reading a GRIB file and selecting fields:
//
//	import "github.com/earthkit/fieldkit"
//
//	fl, _ := fieldkit.FromFile("data.grib")
//
//	// Temperature on two pressure levels, ordered by level.
//	sub := fl.Sel(fieldlist.Filters{"shortName": "t", "level": []int{500, 850}})
//	sub = sub.OrderBy("level")
//
//	for _, f := range sub.All() {
//	    values, _ := f.Values()
//	    fmt.Println(f.Metadata().GetDefault("level", nil), len(values))
//	}
//
// Building a fieldlist from arrays and writing it out:
//
//	grid := geo.NewRegularLatLon(12, 7, 90, 0, -90, 330)
//	md := field.NewKV(map[string]any{"shortName": "t", "level": 500})
//	fl, _ := fieldlist.FromArray([][]float64{values}, []field.Metadata{md}, grid)
//	_ = fieldkit.WriteTo("out.grib", fl)
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the source,
// target and fieldlist packages, simplifying the most common use cases. For
// fine-grained control (registries, encoders, streams, caching), use those
// packages directly.
package fieldkit

import (
	"context"
	"io"

	"github.com/earthkit/fieldkit/config"
	"github.com/earthkit/fieldkit/field"
	"github.com/earthkit/fieldkit/fieldlist"
	"github.com/earthkit/fieldkit/source"
	"github.com/earthkit/fieldkit/target"
)

// FromSource resolves a named source through the registry and loads its
// fields. args are source-specific; see the source package built-ins.
func FromSource(ctx context.Context, name string, args source.Args) (*fieldlist.FieldList, error) {
	src, err := source.New(config.Default(), name, args)
	if err != nil {
		return nil, err
	}

	return src.FieldList(ctx)
}

// FromFile loads local GRIB or NetCDF files. Paths may contain glob
// patterns; compressed files are decompressed transparently.
func FromFile(paths ...string) (*fieldlist.FieldList, error) {
	return source.NewFile(paths...).FieldList(context.Background())
}

// FromURL downloads URLs through the default-configured cache and download
// pool and loads the local copies.
func FromURL(ctx context.Context, urls ...string) (*fieldlist.FieldList, error) {
	return source.NewURL(config.Default(), urls...).FieldList(ctx)
}

// FromReader wraps a non-seekable GRIB byte stream into a one-shot stream of
// fields.
func FromReader(r io.Reader) *fieldlist.Stream {
	return source.NewStreamSource(r).Stream()
}

// NewFieldList creates an in-memory fieldlist from existing fields.
func NewFieldList(fields ...field.Field) *fieldlist.FieldList {
	return fieldlist.New(fields...)
}

// WriteTo writes fl to a single file. The format follows the path extension
// (.nc means NetCDF, anything else GRIB) unless a write option forces it.
func WriteTo(path string, fl *fieldlist.FieldList, opts ...target.WriteOption) error {
	return target.NewFile(path).Write(fl, opts...)
}
