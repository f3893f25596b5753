package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegularLatLonShape(t *testing.T) {
	g := NewRegularLatLon(12, 7, 90, 0, -90, 330)

	require.Equal(t, 84, g.PointCount())
	require.Equal(t, []int{7, 12}, g.Shape())
}

func TestRegularLatLonIncrements(t *testing.T) {
	g := NewRegularLatLon(12, 7, 90, 0, -90, 330)

	require.InDelta(t, -30.0, g.LatIncrement(), 1e-12)
	require.InDelta(t, 30.0, g.LonIncrement(), 1e-12)

	single := NewRegularLatLon(1, 1, 45, 10, 45, 10)
	require.Equal(t, 0.0, single.LatIncrement())
	require.Equal(t, 0.0, single.LonIncrement())
}

func TestRegularLatLonExpansion(t *testing.T) {
	g := NewRegularLatLon(3, 2, 60, 0, 30, 20)

	lats, lons := g.LatLon()
	require.Len(t, lats, 6)
	require.Len(t, lons, 6)

	// Row major: first row at FirstLat, west to east.
	require.Equal(t, []float64{60, 60, 60, 30, 30, 30}, lats)
	require.Equal(t, []float64{0, 10, 20, 0, 10, 20}, lons)
}

func TestRegularLatLonEqual(t *testing.T) {
	g := NewRegularLatLon(12, 7, 90, 0, -90, 330)

	t.Run("identical", func(t *testing.T) {
		require.True(t, g.Equal(NewRegularLatLon(12, 7, 90, 0, -90, 330)))
	})

	t.Run("within wire tolerance", func(t *testing.T) {
		require.True(t, g.Equal(NewRegularLatLon(12, 7, 90.0002, 0, -90, 330)))
	})

	t.Run("different corners", func(t *testing.T) {
		require.False(t, g.Equal(NewRegularLatLon(12, 7, 89, 0, -90, 330)))
	})

	t.Run("different dimensions", func(t *testing.T) {
		require.False(t, g.Equal(NewRegularLatLon(7, 12, 90, 0, -90, 330)))
	})

	t.Run("different kind", func(t *testing.T) {
		require.False(t, g.Equal(Points{Lats: []float64{1}, Lons: []float64{2}}))
	})
}

func TestPoints(t *testing.T) {
	g := Points{Lats: []float64{10, 20}, Lons: []float64{30, 40}}

	require.Equal(t, 2, g.PointCount())
	require.Equal(t, []int{2}, g.Shape())

	lats, lons := g.LatLon()
	require.Equal(t, g.Lats, lats)
	require.Equal(t, g.Lons, lons)

	require.True(t, g.Equal(Points{Lats: []float64{10, 20}, Lons: []float64{30, 40}}))
	require.False(t, g.Equal(Points{Lats: []float64{10, 21}, Lons: []float64{30, 40}}))
}

func TestShaped(t *testing.T) {
	g := Shaped{Dims: []int{7, 12}}

	require.Equal(t, 84, g.PointCount())
	require.Equal(t, []int{7, 12}, g.Shape())

	lats, lons := g.LatLon()
	require.Nil(t, lats)
	require.Nil(t, lons)

	require.True(t, g.Equal(Shaped{Dims: []int{7, 12}}))
	require.False(t, g.Equal(Shaped{Dims: []int{12, 7}}))
	require.False(t, g.Equal(Points{}))
}
