// Package errs defines the sentinel errors shared across fieldkit packages.
//
// All errors returned by fieldkit wrap one of these sentinels, so callers can
// classify failures with errors.Is regardless of the extra context attached
// at the failure site:
//
//	fl, err := fieldkit.FromSource(ctx, "file", source.Args{"path": "missing.grib"})
//	if errors.Is(err, errs.ErrUnknownSource) { ... }
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned when a metadata key is absent and not
	// computable, and no default was supplied.
	ErrKeyNotFound = errors.New("metadata key not found")

	// ErrRestrictedKey is returned when a value-derived key (average, min,
	// max, ...) is requested from a headers-only metadata clone. It wraps
	// ErrKeyNotFound so errors.Is(err, ErrKeyNotFound) also reports true.
	ErrRestrictedKey = fmt.Errorf("%w: key not retained by headers-only clone", ErrKeyNotFound)

	// ErrGeometryMismatch is returned by fieldlist-wide operations that
	// require a common grid (ToArray, ToLatLon) when fields disagree.
	ErrGeometryMismatch = errors.New("fields do not share a common geometry")

	// ErrUnknownSource is returned when a source name is not registered.
	ErrUnknownSource = errors.New("unknown source")

	// ErrUnknownTarget is returned when a target name is not registered.
	ErrUnknownTarget = errors.New("unknown target")

	// ErrStreamExhausted is returned when reading from a one-shot stream
	// that has already been consumed.
	ErrStreamExhausted = errors.New("stream exhausted")

	// ErrDownload is returned when a remote retrieval fails after the
	// configured retries.
	ErrDownload = errors.New("download failed")

	// ErrDownloadTimeout is returned when a download exceeds the configured
	// per-request timeout. It wraps ErrDownload.
	ErrDownloadTimeout = fmt.Errorf("%w: timeout", ErrDownload)

	// ErrEncoding is returned when a field cannot be serialized to the
	// requested format, e.g. a non-encodable metadata key for GRIB.
	ErrEncoding = errors.New("encoding failed")

	// ErrLengthMismatch is returned when a value array length disagrees with
	// the point count implied by the geometry, or when FromArray receives
	// mismatched array/metadata counts.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrInvalidMessage is returned when message framing or a section walk
	// fails on malformed bytes.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrUnsupportedEdition is returned when values are requested from a
	// GRIB edition the built-in codec does not decode.
	ErrUnsupportedEdition = errors.New("unsupported GRIB edition")

	// ErrEmptyFieldList is returned by operations that need at least one
	// field (ToArray on an empty list is fine and returns an empty array;
	// encoder auto-detection is not).
	ErrEmptyFieldList = errors.New("empty fieldlist")
)
