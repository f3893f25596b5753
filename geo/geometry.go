// Package geo describes the spatial layout of a field's value array.
//
// A Geometry maps a flat value slice onto points on the globe. Two concrete
// layouts are provided: RegularLatLon for rectangular latitude/longitude
// grids (the common GRIB case) and Points for unstructured point clouds.
// Geometry objects are immutable and may be shared by any number of fields;
// the longest holder keeps them alive.
package geo

import (
	"math"
	"slices"
)

// Geometry describes how a field's flat value slice maps onto the globe.
type Geometry interface {
	// PointCount returns the number of data points the geometry implies.
	// A field's value array length must always equal this count.
	PointCount() int

	// Shape returns the dimensions of the value array, outermost first.
	// A regular grid returns [Nj, Ni]; a point cloud returns [n].
	Shape() []int

	// LatLon returns per-point latitude and longitude slices, each of
	// length PointCount(), in value-array order.
	LatLon() (lats, lons []float64)

	// Equal reports whether the other geometry describes the same layout.
	Equal(other Geometry) bool
}

// RegularLatLon is a rectangular latitude/longitude grid scanned row by row,
// west to east within a row. Rows run from FirstLat towards LastLat, so a
// north-to-south grid simply has FirstLat > LastLat.
type RegularLatLon struct {
	Ni       int     // points per row (longitude direction)
	Nj       int     // number of rows (latitude direction)
	FirstLat float64 // latitude of the first row, degrees
	FirstLon float64 // longitude of the first point in a row, degrees
	LastLat  float64 // latitude of the last row, degrees
	LastLon  float64 // longitude of the last point in a row, degrees
}

var _ Geometry = RegularLatLon{}

// NewRegularLatLon builds a grid from its corner coordinates.
func NewRegularLatLon(ni, nj int, firstLat, firstLon, lastLat, lastLon float64) RegularLatLon {
	return RegularLatLon{
		Ni:       ni,
		Nj:       nj,
		FirstLat: firstLat,
		FirstLon: firstLon,
		LastLat:  lastLat,
		LastLon:  lastLon,
	}
}

// PointCount returns Ni*Nj.
func (g RegularLatLon) PointCount() int {
	return g.Ni * g.Nj
}

// Shape returns [Nj, Ni].
func (g RegularLatLon) Shape() []int {
	return []int{g.Nj, g.Ni}
}

// LatIncrement returns the signed step between consecutive rows.
// Zero when the grid has a single row.
func (g RegularLatLon) LatIncrement() float64 {
	if g.Nj <= 1 {
		return 0
	}

	return (g.LastLat - g.FirstLat) / float64(g.Nj-1)
}

// LonIncrement returns the signed step between consecutive points in a row.
// Zero when the grid has a single column.
func (g RegularLatLon) LonIncrement() float64 {
	if g.Ni <= 1 {
		return 0
	}

	return (g.LastLon - g.FirstLon) / float64(g.Ni-1)
}

// LatLon expands the grid corners into per-point coordinate slices in
// value-array order (row major).
func (g RegularLatLon) LatLon() ([]float64, []float64) {
	n := g.PointCount()
	lats := make([]float64, 0, n)
	lons := make([]float64, 0, n)

	dlat := g.LatIncrement()
	dlon := g.LonIncrement()

	for j := 0; j < g.Nj; j++ {
		lat := g.FirstLat + float64(j)*dlat
		for i := 0; i < g.Ni; i++ {
			lats = append(lats, lat)
			lons = append(lons, g.FirstLon+float64(i)*dlon)
		}
	}

	return lats, lons
}

// Equal reports whether other is a RegularLatLon with the same dimensions
// and corners (within a small tolerance, since corners round-trip through
// millidegree encodings).
func (g RegularLatLon) Equal(other Geometry) bool {
	o, ok := other.(RegularLatLon)
	if !ok {
		return false
	}

	return g.Ni == o.Ni && g.Nj == o.Nj &&
		closeEnough(g.FirstLat, o.FirstLat) &&
		closeEnough(g.FirstLon, o.FirstLon) &&
		closeEnough(g.LastLat, o.LastLat) &&
		closeEnough(g.LastLon, o.LastLon)
}

// Points is an unstructured set of coordinates, one per value.
// Both slices must have the same length.
type Points struct {
	Lats []float64
	Lons []float64
}

var _ Geometry = Points{}

// PointCount returns the number of coordinates.
func (g Points) PointCount() int {
	return len(g.Lats)
}

// Shape returns a single dimension [n].
func (g Points) Shape() []int {
	return []int{len(g.Lats)}
}

// LatLon returns the stored coordinate slices directly, without copying.
func (g Points) LatLon() ([]float64, []float64) {
	return g.Lats, g.Lons
}

// Equal reports whether other is a Points geometry with identical coordinates.
func (g Points) Equal(other Geometry) bool {
	o, ok := other.(Points)
	if !ok {
		return false
	}

	return slices.Equal(g.Lats, o.Lats) && slices.Equal(g.Lons, o.Lons)
}

// Shaped is a geometry with known dimensions but no coordinates, used for
// fields built from bare arrays. LatLon returns nil slices; operations that
// need coordinates fail on such fields.
type Shaped struct {
	Dims []int
}

var _ Geometry = Shaped{}

// PointCount returns the product of the dimensions.
func (g Shaped) PointCount() int {
	n := 1
	for _, d := range g.Dims {
		n *= d
	}

	return n
}

// Shape returns the stored dimensions.
func (g Shaped) Shape() []int {
	return g.Dims
}

// LatLon returns nil slices; a Shaped geometry carries no coordinates.
func (g Shaped) LatLon() ([]float64, []float64) {
	return nil, nil
}

// Equal reports whether other is a Shaped geometry with the same dimensions.
func (g Shaped) Equal(other Geometry) bool {
	o, ok := other.(Shaped)
	if !ok {
		return false
	}

	return slices.Equal(g.Dims, o.Dims)
}

// coordTolerance absorbs the rounding introduced by storing coordinates as
// integer microdegrees on the wire, with slack for increments recomputed
// from rounded corners.
const coordTolerance = 5e-4

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) <= coordTolerance
}
