package field

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/earthkit/fieldkit/errs"
)

func TestKVMetadataGet(t *testing.T) {
	md := NewKV(map[string]any{"shortName": "t", "level": 500})

	t.Run("present key", func(t *testing.T) {
		v, err := md.Get("shortName")
		require.NoError(t, err)
		require.Equal(t, "t", v)
	})

	t.Run("absent key", func(t *testing.T) {
		_, err := md.Get("nope")
		require.ErrorIs(t, err, errs.ErrKeyNotFound)
	})

	t.Run("default fallback", func(t *testing.T) {
		require.Equal(t, 500, md.GetDefault("level", -1))
		require.Equal(t, -1, md.GetDefault("nope", -1))
	})

	t.Run("has and keys", func(t *testing.T) {
		require.True(t, md.Has("level"))
		require.False(t, md.Has("nope"))
		require.Equal(t, []string{"level", "shortName"}, md.Keys())
	})
}

func TestOverrideDoesNotMutateSource(t *testing.T) {
	original := NewKV(map[string]any{"shortName": "t", "level": 500})

	over, err := original.Override(map[string]any{"level": 850, "step": 6})
	require.NoError(t, err)

	// The copy sees the changes.
	require.Equal(t, 850, over.GetDefault("level", nil))
	require.Equal(t, 6, over.GetDefault("step", nil))

	// The original is untouched.
	require.Equal(t, 500, original.GetDefault("level", nil))
	require.False(t, original.Has("step"))
}

func TestOverrideInputMapDetached(t *testing.T) {
	entries := map[string]any{"level": 500}
	md := NewKV(entries)

	entries["level"] = 999
	require.Equal(t, 500, md.GetDefault("level", nil))
}

func TestRestrictedClone(t *testing.T) {
	md := NewKV(map[string]any{"shortName": "t", "average": 273.5})

	headers, err := md.OverrideHeadersOnly(map[string]any{"shortName": "q"})
	require.NoError(t, err)

	t.Run("header keys survive", func(t *testing.T) {
		v, err := headers.Get("shortName")
		require.NoError(t, err)
		require.Equal(t, "q", v)
	})

	t.Run("value-derived keys fail", func(t *testing.T) {
		_, err := headers.Get("average")
		require.ErrorIs(t, err, errs.ErrRestrictedKey)
		// ErrRestrictedKey is a kind of key-not-found, so generic handling
		// still works.
		require.ErrorIs(t, err, errs.ErrKeyNotFound)
	})

	t.Run("GetDefault yields default", func(t *testing.T) {
		require.Equal(t, "n/a", headers.GetDefault("average", "n/a"))
	})

	t.Run("restriction is sticky across overrides", func(t *testing.T) {
		again, err := headers.Override(map[string]any{"level": 500})
		require.NoError(t, err)
		_, err = again.Get("average")
		require.ErrorIs(t, err, errs.ErrRestrictedKey)
	})
}

func TestIsValueDerived(t *testing.T) {
	require.True(t, IsValueDerived("average"))
	require.True(t, IsValueDerived("minimum"))
	require.True(t, IsValueDerived("maximum"))
	require.False(t, IsValueDerived("shortName"))
}

func TestSnapshotSkipsRestricted(t *testing.T) {
	md := NewRestrictedKV(map[string]any{"shortName": "t", "average": 1.0})

	snap := Snapshot(md)
	require.Equal(t, map[string]any{"shortName": "t"}, snap)
}

func TestCloneDetached(t *testing.T) {
	md := NewKV(map[string]any{"shortName": "t", "average": 1.0})

	full := CloneDetached(md, false)
	v, err := full.Get("average")
	require.NoError(t, err)
	require.Equal(t, 1.0, v)

	headers := CloneDetached(md, true)
	_, err = headers.Get("average")
	require.ErrorIs(t, err, errs.ErrRestrictedKey)
}
