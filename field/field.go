// Package field defines the Field abstraction shared by every data source:
// one logical record pairing a metadata namespace with a dense value array
// and a geometry describing how the array maps onto the globe.
//
// Two families of implementation exist. ArrayField (this package) holds
// fully materialized values in memory. Format-backed lazy fields (e.g. the
// GRIB message field in the grib package) defer value extraction to first
// access and memoize the result. Both are used interchangeably through the
// Field interface.
package field

import (
	"fmt"

	"github.com/earthkit/fieldkit/errs"
	"github.com/earthkit/fieldkit/geo"
)

// Field is one logical data record. Implementations are immutable:
// "modification" always produces a new field.
type Field interface {
	// Values returns the field's value array. Lazy implementations decode
	// on first call and memoize; the returned slice must not be modified.
	Values() ([]float64, error)

	// Metadata returns the field's metadata namespace.
	Metadata() Metadata

	// Geometry returns the field's spatial layout.
	Geometry() (geo.Geometry, error)
}

// ArrayField pairs an in-memory value array with detached metadata.
type ArrayField struct {
	values []float64
	md     Metadata
	geom   geo.Geometry
}

var _ Field = (*ArrayField)(nil)

// NewArray builds a materialized field from a value array, metadata and
// geometry. The value slice is stored directly, not copied.
//
// Returns an error wrapping errs.ErrLengthMismatch when the array length
// disagrees with the geometry's point count.
func NewArray(values []float64, md Metadata, geom geo.Geometry) (*ArrayField, error) {
	if geom != nil && geom.PointCount() != len(values) {
		return nil, fmt.Errorf("%w: %d values for %d grid points",
			errs.ErrLengthMismatch, len(values), geom.PointCount())
	}
	if geom == nil {
		geom = geo.Shaped{Dims: []int{len(values)}}
	}
	if md == nil {
		md = NewKV(nil)
	}

	return &ArrayField{values: values, md: md, geom: geom}, nil
}

// Values returns the stored array directly, without copying.
func (f *ArrayField) Values() ([]float64, error) {
	return f.values, nil
}

// Metadata returns the field's metadata.
func (f *ArrayField) Metadata() Metadata {
	return f.md
}

// Geometry returns the field's geometry.
func (f *ArrayField) Geometry() (geo.Geometry, error) {
	return f.geom, nil
}

// WithMetadata returns a new field sharing this field's values and geometry
// but carrying the given metadata. The receiver is unchanged.
func (f *ArrayField) WithMetadata(md Metadata) *ArrayField {
	return &ArrayField{values: f.values, md: md, geom: f.geom}
}

// Materialize decodes any field into an ArrayField with detached metadata.
// Already-materialized fields still get a fresh wrapper, so the result never
// aliases a native handle.
func Materialize(f Field) (*ArrayField, error) {
	values, err := f.Values()
	if err != nil {
		return nil, err
	}

	geom, err := f.Geometry()
	if err != nil {
		return nil, err
	}

	return NewArray(values, CloneDetached(f.Metadata(), false), geom)
}
