package netcdf

import (
	"fmt"
	"os"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/earthkit/fieldkit/errs"
	"github.com/earthkit/fieldkit/field"
	"github.com/earthkit/fieldkit/fieldlist"
	"github.com/earthkit/fieldkit/geo"
)

// Write serializes the fieldlist to a classic-format NetCDF file: shared
// latitude/longitude coordinate variables plus one data variable per field.
// All fields must share a regular lat/lon geometry.
func Write(path string, fl *fieldlist.FieldList) error {
	if fl.Len() == 0 {
		return fmt.Errorf("%w: nothing to write", errs.ErrEmptyFieldList)
	}

	geom, err := fl.At(0).Geometry()
	if err != nil {
		return err
	}
	grid, ok := geom.(geo.RegularLatLon)
	if !ok {
		return fmt.Errorf("%w: NetCDF layout needs a regular lat/lon geometry, got %T", errs.ErrEncoding, geom)
	}

	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errs.ErrEncoding, path, err)
	}

	if err := writeVars(cw, fl, grid); err != nil {
		// A half-written file must not survive as plausible output.
		cw.Close()
		os.Remove(path)

		return err
	}

	if err := cw.Close(); err != nil {
		os.Remove(path)

		return fmt.Errorf("%w: %w", errs.ErrEncoding, err)
	}

	return nil
}

func writeVars(cw api.Writer, fl *fieldlist.FieldList, grid geo.RegularLatLon) error {
	lats, lons := axes(grid)
	if err := cw.AddVar("latitude", api.Variable{
		Values:     lats,
		Dimensions: []string{"latitude"},
	}); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrEncoding, err)
	}
	if err := cw.AddVar("longitude", api.Variable{
		Values:     lons,
		Dimensions: []string{"longitude"},
	}); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrEncoding, err)
	}

	used := map[string]int{"latitude": 1, "longitude": 1}
	for _, f := range fl.Fields() {
		if err := writeField(cw, f, grid, used); err != nil {
			return err
		}
	}

	return nil
}

func writeField(cw api.Writer, f field.Field, grid geo.RegularLatLon, used map[string]int) error {
	geom, err := f.Geometry()
	if err != nil {
		return err
	}
	if !grid.Equal(geom) {
		return fmt.Errorf("%w: mixed geometries in NetCDF output", errs.ErrGeometryMismatch)
	}

	values, err := f.Values()
	if err != nil {
		return err
	}

	rows := make([][]float64, grid.Nj)
	for j := range rows {
		rows[j] = values[j*grid.Ni : (j+1)*grid.Ni]
	}

	md := f.Metadata()
	name := field.AsString(md.GetDefault("shortName", "field"))
	if name == "" {
		name = "field"
	}
	used[name]++
	if used[name] > 1 {
		name = fmt.Sprintf("%s_%d", name, used[name])
	}

	attrs, err := variableAttrs(md)
	if err != nil {
		return err
	}

	if err := cw.AddVar(name, api.Variable{
		Values:     rows,
		Dimensions: []string{"latitude", "longitude"},
		Attributes: attrs,
	}); err != nil {
		return fmt.Errorf("%w: variable %s: %w", errs.ErrEncoding, name, err)
	}

	return nil
}

// variableAttrs carries the field's scalar metadata into variable
// attributes. Classic NetCDF holds strings, ints and doubles; anything else
// is rendered as a string.
func variableAttrs(md field.Metadata) (api.AttributeMap, error) {
	keys := make([]string, 0)
	values := make(map[string]any)
	for _, key := range md.Keys() {
		v, err := md.Get(key)
		if err != nil {
			continue
		}
		switch t := v.(type) {
		case string, float64:
			values[key] = t
		case int:
			values[key] = int32(t) //nolint:gosec // metadata ints fit
		case int64:
			values[key] = t
		default:
			values[key] = field.AsString(t)
		}
		keys = append(keys, key)
	}

	attrs, err := util.NewOrderedMap(keys, values)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrEncoding, err)
	}

	return attrs, nil
}

// axes expands the grid corners into coordinate axes.
func axes(grid geo.RegularLatLon) (lats, lons []float64) {
	lats = make([]float64, grid.Nj)
	for j := range lats {
		lats[j] = grid.FirstLat + float64(j)*grid.LatIncrement()
	}

	lons = make([]float64, grid.Ni)
	for i := range lons {
		lons[i] = grid.FirstLon + float64(i)*grid.LonIncrement()
	}

	return lats, lons
}
