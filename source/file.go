package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/earthkit/fieldkit/compress"
	"github.com/earthkit/fieldkit/config"
	"github.com/earthkit/fieldkit/errs"
	"github.com/earthkit/fieldkit/field"
	"github.com/earthkit/fieldkit/fieldlist"
	"github.com/earthkit/fieldkit/grib"
	"github.com/earthkit/fieldkit/netcdf"
)

// File reads local GRIB or NetCDF files. Paths may contain glob patterns;
// compressed files (.gz, .zst, .lz4) are decompressed transparently before
// format detection.
type File struct {
	paths []string
}

// NewFile creates a file source over one or more paths or glob patterns.
func NewFile(paths ...string) *File {
	return &File{paths: paths}
}

func fileFactory(_ *config.Config, args Args) (Source, error) {
	paths, err := stringsArg(args, "path")
	if err != nil {
		return nil, err
	}

	return NewFile(paths...), nil
}

// FieldList expands globs and concatenates the fields of every matched file
// in lexical order. GRIB files yield lazy fields that keep the file handle
// open for the lifetime of the list; NetCDF files are materialized.
func (s *File) FieldList(_ context.Context) (*fieldlist.FieldList, error) {
	paths, err := expandGlobs(s.paths)
	if err != nil {
		return nil, err
	}

	fl := fieldlist.New()
	for _, path := range paths {
		part, err := openPath(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		fl.Append(part.Fields()...)
	}

	return fl, nil
}

func expandGlobs(patterns []string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			// A literal path with no glob meta should fail loudly rather
			// than silently yield nothing.
			if _, serr := os.Stat(pattern); serr != nil {
				return nil, fmt.Errorf("no files match %q", pattern)
			}
			matches = []string{pattern}
		}
		paths = append(paths, matches...)
	}

	return paths, nil
}

// openPath loads one local file, decompressing by extension first.
func openPath(path string) (*fieldlist.FieldList, error) {
	codec, stripped := compress.ForPath(path)
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

	return openBytes(data, filepath.Base(stripped))
}

// openPlain detects the format by magic and opens the file in place.
func openPlain(path string) (*fieldlist.FieldList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	head := make([]byte, 4)
	if _, err := io.ReadFull(f, head); err != nil {
		f.Close()

		return nil, fmt.Errorf("%w: file too short", errs.ErrInvalidMessage)
	}

	switch format(head) {
	case "grib":
		info, err := f.Stat()
		if err != nil {
			f.Close()

			return nil, err
		}

		// Lazy fields hold the descriptor open for the list's lifetime.
		return gribFields(f, info.Size())
	case "netcdf":
		f.Close()

		return netcdf.Open(path)
	default:
		f.Close()

		return nil, fmt.Errorf("%w: unrecognized format in %s", errs.ErrInvalidMessage, path)
	}
}

// openBytes detects the format of an in-memory payload, as produced by
// decompression or a consumed stream.
func openBytes(data []byte, name string) (*fieldlist.FieldList, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: payload too short", errs.ErrInvalidMessage)
	}

	switch format(data[:4]) {
	case "grib":
		return gribFields(bytes.NewReader(data), int64(len(data)))
	case "netcdf":
		// The NetCDF reader wants a file; spill the payload to a temp one.
		tmp, err := os.CreateTemp("", "fieldkit-"+name+"-*")
		if err != nil {
			return nil, err
		}
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())

			return nil, err
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmp.Name())

			return nil, err
		}

		return netcdf.Open(tmp.Name())
	default:
		return nil, fmt.Errorf("%w: unrecognized format", errs.ErrInvalidMessage)
	}
}

// spillToTemp streams fill into a fresh temp file, used when caching is off.
func spillToTemp(fill func(io.Writer) error) (string, error) {
	tmp, err := os.CreateTemp("", "fieldkit-source-*")
	if err != nil {
		return "", err
	}
	if err := fill(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return "", err
	}

	return tmp.Name(), nil
}

// format classifies the leading magic bytes.
func format(head []byte) string {
	switch {
	case bytes.Equal(head[:4], []byte("GRIB")):
		return "grib"
	case bytes.Equal(head[:3], []byte("CDF")) && (head[3] == 1 || head[3] == 2):
		return "netcdf"
	case bytes.Equal(head[:4], []byte{0x89, 'H', 'D', 'F'}):
		return "netcdf"
	default:
		return ""
	}
}

// gribFields scans r and builds one lazy field per framed message. Messages
// of editions the codec cannot decode are skipped with a warning, so a mixed
// edition-1/edition-2 archive still opens.
func gribFields(r io.ReaderAt, size int64) (*fieldlist.FieldList, error) {
	refs, err := grib.ScanOffsets(io.NewSectionReader(r, 0, size))
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no GRIB messages found", errs.ErrInvalidMessage)
	}

	fields := make([]field.Field, 0, len(refs))
	skipped := 0
	for _, ref := range refs {
		if ref.Edition != 2 {
			skipped++
			log.WithField("offset", ref.Offset).WithField("edition", ref.Edition).
				Warn("skipping GRIB message of undecodable edition")

			continue
		}

		f, err := grib.NewField(r, ref)
		if err != nil {
			return nil, fmt.Errorf("message at offset %d: %w", ref.Offset, err)
		}
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: all %d messages are edition 1", errs.ErrUnsupportedEdition, skipped)
	}

	return fieldlist.New(fields...), nil
}
