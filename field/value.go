package field

import (
	"fmt"
	"strconv"
)

// AsString renders a metadata value the way it appears in file names and
// log lines: integers without a decimal point, floats in shortest form.
func AsString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// AsFloat converts a numeric metadata value to float64.
// Returns false for non-numeric values.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	default:
		return 0, false
	}
}

// AsInt converts a numeric metadata value to int64.
// Floats convert only when integral. Returns false otherwise.
func AsInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		if t == float64(int64(t)) {
			return int64(t), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// ValuesEqual compares two metadata values across numeric representations,
// so Sel(level=500) matches whether the source stored an int or a float.
func ValuesEqual(a, b any) bool {
	if a == b {
		return true
	}

	af, aok := AsFloat(a)
	bf, bok := AsFloat(b)
	if aok && bok {
		return af == bf
	}

	return AsString(a) == AsString(b)
}

// CompareValues orders two metadata values: numerics numerically, everything
// else lexically by rendered string. Mixed numeric/string pairs order the
// numeric first, keeping multi-key sorts deterministic.
func CompareValues(a, b any) int {
	af, aok := AsFloat(a)
	bf, bok := AsFloat(b)

	switch {
	case aok && bok:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case aok:
		return -1
	case bok:
		return 1
	}

	as, bs := AsString(a), AsString(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}
