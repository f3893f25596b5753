// Package netcdf adapts NetCDF files to the field model using the pure-Go
// go-native-netcdf library (classic and HDF5-backed groups).
//
// Reading maps every non-coordinate variable on a (lat, lon) grid — with an
// optional leading level dimension — to one field per 2D slice. Writing is
// the inverse: the "netcdf" encoder lays a fieldlist out as one variable per
// field over shared coordinate variables.
package netcdf

import (
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/earthkit/fieldkit/errs"
	"github.com/earthkit/fieldkit/field"
	"github.com/earthkit/fieldkit/fieldlist"
	"github.com/earthkit/fieldkit/geo"
)

// latNames and lonNames are the coordinate variable spellings accepted.
var (
	latNames = []string{"latitude", "lat"}
	lonNames = []string{"longitude", "lon"}
)

// Open reads path and returns a materialized FieldList.
func Open(path string) (*fieldlist.FieldList, error) {
	group, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errs.ErrInvalidMessage, path, err)
	}
	defer group.Close()

	return fromGroup(group)
}

func fromGroup(group api.Group) (*fieldlist.FieldList, error) {
	lats, latName, err := coordinate(group, latNames)
	if err != nil {
		return nil, err
	}
	lons, lonName, err := coordinate(group, lonNames)
	if err != nil {
		return nil, err
	}

	grid := geo.NewRegularLatLon(len(lons), len(lats),
		lats[0], lons[0], lats[len(lats)-1], lons[len(lons)-1])

	fl := fieldlist.New()
	for _, name := range group.ListVariables() {
		if name == latName || name == lonName || name == "level" {
			continue
		}

		v, err := group.GetVariable(name)
		if err != nil {
			return nil, err
		}

		fields, err := variableFields(name, v, grid)
		if err != nil {
			return nil, err
		}
		fl.Append(fields...)
	}

	return fl, nil
}

// variableFields slices a variable into fields: one for a (lat, lon)
// variable, one per leading index for (level, lat, lon).
func variableFields(name string, v *api.Variable, grid geo.RegularLatLon) ([]field.Field, error) {
	base := map[string]any{
		"shortName": name,
		"gridType":  "regular_ll",
	}
	for _, key := range v.Attributes.Keys() {
		if val, has := v.Attributes.Get(key); has {
			base[key] = normalizeAttr(val)
		}
	}

	switch len(v.Dimensions) {
	case 2:
		values, err := flatten2(v.Values, grid)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}
		f, err := field.NewArray(values, field.NewKV(base), grid)
		if err != nil {
			return nil, err
		}

		return []field.Field{f}, nil
	case 3:
		slabs, err := flatten3(v.Values, grid)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", name, err)
		}

		fields := make([]field.Field, 0, len(slabs))
		for i, values := range slabs {
			md := field.NewKV(base)
			withLevel, err := md.Override(map[string]any{"level": i})
			if err != nil {
				return nil, err
			}
			f, err := field.NewArray(values, withLevel, grid)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}

		return fields, nil
	default:
		// Scalars and exotic shapes are skipped, not an error.
		return nil, nil
	}
}

func coordinate(group api.Group, names []string) ([]float64, string, error) {
	for _, name := range names {
		v, err := group.GetVariable(name)
		if err != nil {
			continue
		}
		vals, err := toFloats(v.Values)
		if err != nil {
			return nil, "", fmt.Errorf("coordinate %s: %w", name, err)
		}

		return vals, name, nil
	}

	return nil, "", fmt.Errorf("%w: no latitude/longitude coordinate variable", errs.ErrInvalidMessage)
}

func toFloats(values any) ([]float64, error) {
	switch t := values.(type) {
	case []float64:
		return t, nil
	case []float32:
		out := make([]float64, len(t))
		for i, v := range t {
			out[i] = float64(v)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(t))
		for i, v := range t {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", values)
	}
}

func flatten2(values any, grid geo.RegularLatLon) ([]float64, error) {
	rows, err := toRows(values)
	if err != nil {
		return nil, err
	}

	out := make([]float64, 0, grid.PointCount())
	for _, row := range rows {
		out = append(out, row...)
	}
	if len(out) != grid.PointCount() {
		return nil, fmt.Errorf("%w: %d values for %d grid points", errs.ErrLengthMismatch, len(out), grid.PointCount())
	}

	return out, nil
}

func flatten3(values any, grid geo.RegularLatLon) ([][]float64, error) {
	switch t := values.(type) {
	case [][][]float64:
		out := make([][]float64, len(t))
		for i, slab := range t {
			flat, err := flatten2(slab, grid)
			if err != nil {
				return nil, err
			}
			out[i] = flat
		}
		return out, nil
	case [][][]float32:
		out := make([][]float64, len(t))
		for i, slab := range t {
			flat, err := flatten2(slab, grid)
			if err != nil {
				return nil, err
			}
			out[i] = flat
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", values)
	}
}

func toRows(values any) ([][]float64, error) {
	switch t := values.(type) {
	case [][]float64:
		return t, nil
	case [][]float32:
		out := make([][]float64, len(t))
		for i, row := range t {
			conv, err := toFloats(row)
			if err != nil {
				return nil, err
			}
			out[i] = conv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", values)
	}
}

func normalizeAttr(v any) any {
	switch t := v.(type) {
	case float32:
		return float64(t)
	case int32:
		return int(t)
	case int64:
		return t
	default:
		return t
	}
}
