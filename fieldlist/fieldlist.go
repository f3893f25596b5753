// Package fieldlist implements the ordered field collection at the heart of
// fieldkit: selection (Sel), stable multi-key ordering (OrderBy), batched
// iteration, bulk export to stacked arrays and Arrow records, and the
// one-shot Stream state machine for sources that cannot be re-read.
//
// A FieldList never copies field payloads: Sel and OrderBy return new lists
// sharing the same field objects, and lazy fields stay lazy until their
// values are actually needed.
package fieldlist

import (
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/earthkit/fieldkit/errs"
	"github.com/earthkit/fieldkit/field"
	"github.com/earthkit/fieldkit/geo"
)

// FieldList is an ordered, insertion-order-significant sequence of fields.
//
// The zero value is an empty list. FieldList methods are safe for concurrent
// readers; Append must not race with other use.
type FieldList struct {
	fields []field.Field

	// Lazy selection index: one extracted column per metadata key, built on
	// first Sel/OrderBy touching that key and dropped on Append.
	mu      sync.Mutex
	columns map[string][]any
}

// New builds a FieldList over the given fields, preserving their order.
func New(fields ...field.Field) *FieldList {
	return &FieldList{fields: slices.Clone(fields)}
}

// FromArray builds an in-memory FieldList from value arrays and matching
// metadata. mds must have the same length as arrays, or length 1 to
// broadcast one metadata object to every field. A nil geom gives each field
// a coordinate-less Shaped geometry of its array length.
func FromArray(arrays [][]float64, mds []field.Metadata, geom geo.Geometry) (*FieldList, error) {
	if len(mds) != len(arrays) && len(mds) != 1 {
		return nil, fmt.Errorf("%w: %d metadata objects for %d arrays",
			errs.ErrLengthMismatch, len(mds), len(arrays))
	}

	fields := make([]field.Field, 0, len(arrays))
	for i, values := range arrays {
		md := mds[0]
		if len(mds) > 1 {
			md = mds[i]
		}

		f, err := field.NewArray(values, md, geom)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	return New(fields...), nil
}

// Len returns the number of fields.
func (fl *FieldList) Len() int {
	return len(fl.fields)
}

// At returns the field at position i.
func (fl *FieldList) At(i int) field.Field {
	return fl.fields[i]
}

// Fields returns the fields as a slice. The slice is cloned; the fields are
// shared.
func (fl *FieldList) Fields() []field.Field {
	return slices.Clone(fl.fields)
}

// All returns an iterator over (position, field).
func (fl *FieldList) All() iter.Seq2[int, field.Field] {
	return func(yield func(int, field.Field) bool) {
		for i, f := range fl.fields {
			if !yield(i, f) {
				return
			}
		}
	}
}

// Append adds fields to the end of the list, invalidating the selection
// index. It mutates the receiver; lists returned by Sel/OrderBy share field
// objects but not index state, so they are unaffected.
func (fl *FieldList) Append(fields ...field.Field) {
	fl.fields = append(fl.fields, fields...)

	fl.mu.Lock()
	fl.columns = nil
	fl.mu.Unlock()
}

// Batched yields consecutive sub-lists of size n; the last batch may be
// shorter. Every field appears in exactly one batch.
func (fl *FieldList) Batched(n int) iter.Seq[*FieldList] {
	return func(yield func(*FieldList) bool) {
		if n < 1 {
			return
		}
		for start := 0; start < len(fl.fields); start += n {
			stop := min(start+n, len(fl.fields))
			if !yield(New(fl.fields[start:stop]...)) {
				return
			}
		}
	}
}

// Array is a stacked value array: Shape[0] is the field count, the remaining
// dimensions are the common geometry's shape. Data is row-major.
type Array struct {
	Data  []float64
	Shape []int
}

// FieldData returns the flat values of field i within the stack.
func (a Array) FieldData(i int) []float64 {
	n := 1
	for _, d := range a.Shape[1:] {
		n *= d
	}

	return a.Data[i*n : (i+1)*n]
}

// ToArray stacks all field values into one array, field index first.
// All fields must share a common geometry; otherwise the call fails with
// errs.ErrGeometryMismatch. An empty list yields an empty array.
func (fl *FieldList) ToArray() (Array, error) {
	if len(fl.fields) == 0 {
		return Array{Shape: []int{0}}, nil
	}

	common, err := fl.commonGeometry()
	if err != nil {
		return Array{}, err
	}

	shape := append([]int{len(fl.fields)}, common.Shape()...)
	data := make([]float64, 0, len(fl.fields)*common.PointCount())
	for _, f := range fl.fields {
		values, err := f.Values()
		if err != nil {
			return Array{}, err
		}
		data = append(data, values...)
	}

	return Array{Data: data, Shape: shape}, nil
}

// ToLatLon returns the per-point coordinates of the common geometry.
// Fails with errs.ErrGeometryMismatch when fields disagree, and with an
// error when the common geometry carries no coordinates.
func (fl *FieldList) ToLatLon() (lats, lons []float64, err error) {
	if len(fl.fields) == 0 {
		return nil, nil, fmt.Errorf("%w: no fields", errs.ErrEmptyFieldList)
	}

	common, err := fl.commonGeometry()
	if err != nil {
		return nil, nil, err
	}

	lats, lons = common.LatLon()
	if lats == nil {
		return nil, nil, fmt.Errorf("%w: geometry %T has no coordinates", errs.ErrGeometryMismatch, common)
	}

	return lats, lons, nil
}

// MetadataColumns extracts the given keys for every field, one row per
// field. Missing keys yield nil cells.
func (fl *FieldList) MetadataColumns(keys ...string) [][]any {
	rows := make([][]any, len(fl.fields))
	for i, f := range fl.fields {
		row := make([]any, len(keys))
		for j, key := range keys {
			row[j] = f.Metadata().GetDefault(key, nil)
		}
		rows[i] = row
	}

	return rows
}

func (fl *FieldList) commonGeometry() (geo.Geometry, error) {
	common, err := fl.fields[0].Geometry()
	if err != nil {
		return nil, err
	}

	for _, f := range fl.fields[1:] {
		g, err := f.Geometry()
		if err != nil {
			return nil, err
		}
		if !common.Equal(g) {
			return nil, fmt.Errorf("%w: %v vs %v", errs.ErrGeometryMismatch, common.Shape(), g.Shape())
		}
	}

	return common, nil
}

// column returns the extracted metadata column for key, building and caching
// it on first use. This is the lazy selection index: Sel and OrderBy share
// the cached columns until Append invalidates them.
func (fl *FieldList) column(key string) []any {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if col, ok := fl.columns[key]; ok {
		return col
	}

	col := make([]any, len(fl.fields))
	for i, f := range fl.fields {
		col[i] = f.Metadata().GetDefault(key, nil)
	}

	if fl.columns == nil {
		fl.columns = make(map[string][]any)
	}
	fl.columns[key] = col

	return col
}
