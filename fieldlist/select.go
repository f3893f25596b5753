package fieldlist

import (
	"slices"
	"sort"

	"github.com/earthkit/fieldkit/field"
)

// Filters constrains metadata keys for Sel and record export. A constraint
// value is matched as:
//
//   - Range: inclusive bounds (either side may be nil for open-ended)
//   - a slice: membership, e.g. []any{"t", "u"} or []int{500, 850}
//   - anything else: scalar equality across numeric representations
type Filters map[string]any

// Range is an inclusive metadata value range, the counterpart of a Python
// slice in selection filters. Nil bounds are open.
type Range struct {
	Min any
	Max any
}

// matches reports whether the constraint accepts v.
func matches(constraint, v any) bool {
	switch c := constraint.(type) {
	case Range:
		if v == nil {
			return false
		}
		if c.Min != nil && field.CompareValues(v, c.Min) < 0 {
			return false
		}
		if c.Max != nil && field.CompareValues(v, c.Max) > 0 {
			return false
		}
		return true
	case []any:
		return slices.ContainsFunc(c, func(item any) bool { return field.ValuesEqual(item, v) })
	case []string:
		return slices.ContainsFunc(c, func(item string) bool { return field.ValuesEqual(item, v) })
	case []int:
		return slices.ContainsFunc(c, func(item int) bool { return field.ValuesEqual(item, v) })
	case []float64:
		return slices.ContainsFunc(c, func(item float64) bool { return field.ValuesEqual(item, v) })
	default:
		return field.ValuesEqual(c, v)
	}
}

// Sel returns a new FieldList holding the fields whose metadata matches all
// filters, preserving their original relative order. No match yields an
// empty list, not an error, so exploratory filter chains compose freely.
func (fl *FieldList) Sel(filters Filters) *FieldList {
	if len(filters) == 0 {
		return New(fl.fields...)
	}

	// Pull each filtered column through the lazy index once, then test
	// positions; fields are never touched again for repeated keys.
	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	cols := make([][]any, len(keys))
	for i, key := range keys {
		cols[i] = fl.column(key)
	}

	var out []field.Field
	for pos, f := range fl.fields {
		ok := true
		for i, key := range keys {
			if !matches(filters[key], cols[i][pos]) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, f)
		}
	}

	return New(out...)
}

// OrderBy returns a new FieldList sorted ascending by the given metadata
// keys, most significant first. The sort is stable: fields comparing equal
// keep their original relative order. Missing keys sort before present ones.
func (fl *FieldList) OrderBy(keys ...string) *FieldList {
	if len(keys) == 0 {
		return New(fl.fields...)
	}

	cols := make([][]any, len(keys))
	for i, key := range keys {
		cols[i] = fl.column(key)
	}

	positions := make([]int, len(fl.fields))
	for i := range positions {
		positions[i] = i
	}

	sort.SliceStable(positions, func(a, b int) bool {
		for i := range keys {
			va, vb := cols[i][positions[a]], cols[i][positions[b]]
			switch {
			case va == nil && vb == nil:
				continue
			case va == nil:
				return true
			case vb == nil:
				return false
			}
			if c := field.CompareValues(va, vb); c != 0 {
				return c < 0
			}
		}

		return false
	})

	out := make([]field.Field, len(positions))
	for i, pos := range positions {
		out[i] = fl.fields[pos]
	}

	return New(out...)
}
