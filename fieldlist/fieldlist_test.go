package fieldlist

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/earthkit/fieldkit/errs"
	"github.com/earthkit/fieldkit/field"
	"github.com/earthkit/fieldkit/geo"
)

// scenarioList builds the canonical 4-field list: t and u on 500 and 850 hPa.
func scenarioList(t *testing.T) *FieldList {
	t.Helper()

	grid := geo.NewRegularLatLon(12, 7, 90, 0, -90, 330)

	var fields []field.Field
	for _, spec := range []struct {
		name  string
		level int
		base  float64
	}{
		{"t", 850, 270},
		{"u", 850, -10},
		{"t", 500, 250},
		{"u", 500, -30},
	} {
		values := make([]float64, grid.PointCount())
		for i := range values {
			values[i] = spec.base + 0.1*float64(i)
		}
		md := field.NewKV(map[string]any{"shortName": spec.name, "level": spec.level})
		f, err := field.NewArray(values, md, grid)
		require.NoError(t, err)
		fields = append(fields, f)
	}

	return New(fields...)
}

func TestNewPreservesOrder(t *testing.T) {
	fl := scenarioList(t)

	require.Equal(t, 4, fl.Len())
	require.Equal(t, "t", fl.At(0).Metadata().GetDefault("shortName", nil))
	require.Equal(t, 850, fl.At(0).Metadata().GetDefault("level", nil))
	require.Equal(t, "u", fl.At(3).Metadata().GetDefault("shortName", nil))
}

func TestAllIterator(t *testing.T) {
	fl := scenarioList(t)

	var positions []int
	for i, f := range fl.All() {
		positions = append(positions, i)
		require.NotNil(t, f)
	}
	require.Equal(t, []int{0, 1, 2, 3}, positions)

	// Repeated iteration works; an in-memory list is not one-shot.
	count := 0
	for range fl.All() {
		count++
	}
	require.Equal(t, 4, count)
}

func TestFromArray(t *testing.T) {
	grid := geo.NewRegularLatLon(12, 7, 90, 0, -90, 330)
	values := make([]float64, grid.PointCount())
	for i := range values {
		values[i] = float64(i)
	}

	t.Run("shape (7,12) round trip", func(t *testing.T) {
		md := field.NewKV(map[string]any{"shortName": "t"})
		fl, err := FromArray([][]float64{values}, []field.Metadata{md}, grid)
		require.NoError(t, err)
		require.Equal(t, 1, fl.Len())

		geom, err := fl.At(0).Geometry()
		require.NoError(t, err)
		require.Equal(t, []int{7, 12}, geom.Shape())

		got, err := fl.At(0).Values()
		require.NoError(t, err)
		require.Equal(t, values, got)
	})

	t.Run("metadata broadcast", func(t *testing.T) {
		md := field.NewKV(map[string]any{"shortName": "t"})
		fl, err := FromArray([][]float64{values, values, values}, []field.Metadata{md}, grid)
		require.NoError(t, err)
		require.Equal(t, 3, fl.Len())
		for _, f := range fl.Fields() {
			require.Equal(t, "t", f.Metadata().GetDefault("shortName", nil))
		}
	})

	t.Run("metadata count mismatch", func(t *testing.T) {
		md := field.NewKV(nil)
		_, err := FromArray([][]float64{values, values, values}, []field.Metadata{md, md}, grid)
		require.ErrorIs(t, err, errs.ErrLengthMismatch)
	})

	t.Run("array length mismatch", func(t *testing.T) {
		_, err := FromArray([][]float64{{1, 2, 3}}, []field.Metadata{field.NewKV(nil)}, grid)
		require.ErrorIs(t, err, errs.ErrLengthMismatch)
	})
}

func TestOverrideScenario(t *testing.T) {
	// Build a (7,12) array field, override one key headers-only, and verify
	// the original is untouched while derived keys fail on the clone.
	grid := geo.NewRegularLatLon(12, 7, 90, 0, -90, 330)
	values := make([]float64, grid.PointCount())
	for i := range values {
		values[i] = float64(i)
	}

	md := field.NewKV(map[string]any{"shortName": "t", "level": 500, "average": 41.5})
	fl, err := FromArray([][]float64{values}, []field.Metadata{md}, grid)
	require.NoError(t, err)

	clone, err := fl.At(0).Metadata().OverrideHeadersOnly(map[string]any{"level": 850})
	require.NoError(t, err)

	require.Equal(t, 850, clone.GetDefault("level", nil))
	_, err = clone.Get("average")
	require.ErrorIs(t, err, errs.ErrRestrictedKey)

	require.Equal(t, 500, fl.At(0).Metadata().GetDefault("level", nil))
	orig, err := fl.At(0).Metadata().Get("average")
	require.NoError(t, err)
	require.Equal(t, 41.5, orig)
}

func TestBatched(t *testing.T) {
	fl := scenarioList(t)

	t.Run("exact coverage", func(t *testing.T) {
		var sizes []int
		total := 0
		for batch := range fl.Batched(3) {
			sizes = append(sizes, batch.Len())
			total += batch.Len()
		}
		require.Equal(t, []int{3, 1}, sizes)
		require.Equal(t, fl.Len(), total)
	})

	t.Run("batch larger than list", func(t *testing.T) {
		var sizes []int
		for batch := range fl.Batched(10) {
			sizes = append(sizes, batch.Len())
		}
		require.Equal(t, []int{4}, sizes)
	})

	t.Run("order preserved across batches", func(t *testing.T) {
		var names []string
		for batch := range fl.Batched(2) {
			for _, f := range batch.Fields() {
				names = append(names, field.AsString(f.Metadata().GetDefault("shortName", nil)))
			}
		}
		require.Equal(t, []string{"t", "u", "t", "u"}, names)
	})

	t.Run("invalid batch size", func(t *testing.T) {
		count := 0
		for range fl.Batched(0) {
			count++
		}
		require.Zero(t, count)
	})
}

func TestToArray(t *testing.T) {
	fl := scenarioList(t)

	stacked, err := fl.ToArray()
	require.NoError(t, err)
	require.Equal(t, []int{4, 7, 12}, stacked.Shape)
	require.Len(t, stacked.Data, 4*84)

	first, err := fl.At(0).Values()
	require.NoError(t, err)
	require.Equal(t, first, stacked.FieldData(0))

	last, err := fl.At(3).Values()
	require.NoError(t, err)
	require.Equal(t, last, stacked.FieldData(3))
}

func TestToArrayGeometryMismatch(t *testing.T) {
	fl := scenarioList(t)

	other, err := field.NewArray(make([]float64, 6), nil, geo.NewRegularLatLon(3, 2, 60, 0, 30, 20))
	require.NoError(t, err)
	fl.Append(other)

	_, err = fl.ToArray()
	require.ErrorIs(t, err, errs.ErrGeometryMismatch)
}

func TestToLatLon(t *testing.T) {
	fl := scenarioList(t)

	lats, lons, err := fl.ToLatLon()
	require.NoError(t, err)
	require.Len(t, lats, 84)
	require.Len(t, lons, 84)
	require.Equal(t, 90.0, lats[0])
	require.Equal(t, 0.0, lons[0])
	require.Equal(t, -90.0, lats[83])
	require.Equal(t, 330.0, lons[83])

	t.Run("no coordinates", func(t *testing.T) {
		f, err := field.NewArray([]float64{1, 2, 3}, nil, nil)
		require.NoError(t, err)
		_, _, err = New(f).ToLatLon()
		require.ErrorIs(t, err, errs.ErrGeometryMismatch)
	})

	t.Run("empty list", func(t *testing.T) {
		_, _, err := New().ToLatLon()
		require.ErrorIs(t, err, errs.ErrEmptyFieldList)
	})
}

func TestMetadataColumns(t *testing.T) {
	fl := scenarioList(t)

	rows := fl.MetadataColumns("shortName", "level", "missing")
	require.Len(t, rows, 4)
	require.Equal(t, []any{"t", 850, nil}, rows[0])
	require.Equal(t, []any{"u", 500, nil}, rows[3])
}
