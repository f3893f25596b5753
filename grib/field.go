package grib

import (
	"io"
	"sync"

	"github.com/earthkit/fieldkit/field"
	"github.com/earthkit/fieldkit/geo"
)

// Field is a lazy, format-backed field: the message header is parsed at
// construction, the packed values stay on disk until first access.
type Field struct {
	r   io.ReaderAt
	ref MessageRef
	msg *Message

	// First-access decode is guarded so concurrent readers of a shared
	// fieldlist cannot race the memoization.
	mu     sync.Mutex
	values []float64
}

var _ field.Field = (*Field)(nil)

// NewField parses the message header at ref in r and returns a lazy field
// over it. The data section is not read.
func NewField(r io.ReaderAt, ref MessageRef) (*Field, error) {
	msg, err := ParseHeader(r, ref.Offset)
	if err != nil {
		return nil, err
	}

	return &Field{r: r, ref: ref, msg: msg}, nil
}

// Values decodes the data section on first call and memoizes the result.
// The returned slice is shared; callers must not modify it.
func (f *Field) Values() ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.values != nil {
		return f.values, nil
	}

	values, err := decodeValues(f.r, f.msg)
	if err != nil {
		return nil, err
	}
	f.values = values

	return f.values, nil
}

// Metadata returns a handle-backed metadata view of the message headers.
// Value-derived keys (average, ...) trigger a decode through the field.
func (f *Field) Metadata() field.Metadata {
	return &Metadata{field: f}
}

// Geometry returns the regular lat/lon grid from the grid section.
func (f *Field) Geometry() (geo.Geometry, error) {
	return f.msg.Geometry(), nil
}

// Message exposes the parsed header, mainly for the encoder and tests.
func (f *Field) Message() *Message {
	return f.msg
}

// Offset returns the byte offset of the message in its source.
func (f *Field) Offset() int64 {
	return f.ref.Offset
}
