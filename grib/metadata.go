package grib

import (
	"fmt"
	"slices"

	"github.com/earthkit/fieldkit/errs"
	"github.com/earthkit/fieldkit/field"
)

// headerKeys are the keys computable from message headers alone, in the
// order Keys() reports them.
var headerKeys = []string{
	"edition",
	"centre",
	"subCentre",
	"dataDate",
	"dataTime",
	"step",
	"shortName",
	"discipline",
	"parameterCategory",
	"parameterNumber",
	"typeOfLevel",
	"level",
	"gridType",
	"Ni",
	"Nj",
	"latitudeOfFirstGridPointInDegrees",
	"longitudeOfFirstGridPointInDegrees",
	"latitudeOfLastGridPointInDegrees",
	"longitudeOfLastGridPointInDegrees",
	"numberOfDataPoints",
	"bitsPerValue",
}

// Metadata adapts a parsed GRIB message to the field.Metadata interface.
// It owns no copy of the header data: it reads through to the field's
// message handle, so it stays valid exactly as long as the field does.
// Override and OverrideHeadersOnly detach from the handle.
type Metadata struct {
	field *Field
}

var _ field.Metadata = (*Metadata)(nil)

// Get returns the value for an ecCodes-style key. Value-derived keys
// decode the data section through the owning field.
func (m *Metadata) Get(key string) (any, error) {
	if v, ok := m.headerValue(key); ok {
		return v, nil
	}

	if field.IsValueDerived(key) {
		return m.derivedValue(key)
	}

	return nil, fmt.Errorf("%w: %q", errs.ErrKeyNotFound, key)
}

// GetDefault returns the value for key, or def when absent or failing.
func (m *Metadata) GetDefault(key string, def any) any {
	v, err := m.Get(key)
	if err != nil {
		return def
	}

	return v
}

// Has reports whether key is present or computable.
func (m *Metadata) Has(key string) bool {
	if _, ok := m.headerValue(key); ok {
		return true
	}

	return field.IsValueDerived(key)
}

// Keys returns the header keys followed by the value-derived keys.
func (m *Metadata) Keys() []string {
	return append(slices.Clone(headerKeys), field.ValueDerivedKeys...)
}

// Override returns a detached full clone with changes applied. The clone
// preserves value-derived keys, which forces a decode of the data section;
// the receiver and its message handle are untouched.
func (m *Metadata) Override(changes map[string]any) (field.Metadata, error) {
	snap := make(map[string]any, len(headerKeys)+len(field.ValueDerivedKeys))
	for _, key := range headerKeys {
		if v, ok := m.headerValue(key); ok {
			snap[key] = v
		}
	}
	for _, key := range field.ValueDerivedKeys {
		v, err := m.derivedValue(key)
		if err != nil {
			return nil, err
		}
		snap[key] = v
	}

	return field.NewKV(snap).Override(changes)
}

// OverrideHeadersOnly returns a detached clone with changes applied that
// drops the value section entirely. No data is decoded; value-derived keys
// on the clone fail with errs.ErrRestrictedKey.
func (m *Metadata) OverrideHeadersOnly(changes map[string]any) (field.Metadata, error) {
	snap := make(map[string]any, len(headerKeys)+len(changes))
	for _, key := range headerKeys {
		if v, ok := m.headerValue(key); ok {
			snap[key] = v
		}
	}

	return field.NewRestrictedKV(snap).Override(changes)
}

func (m *Metadata) headerValue(key string) (any, bool) {
	msg := m.field.msg

	switch key {
	case "edition":
		return msg.Edition, true
	case "centre":
		return msg.ident.Centre, true
	case "subCentre":
		return msg.ident.SubCentre, true
	case "dataDate":
		return msg.DataDate(), true
	case "dataTime":
		return msg.DataTime(), true
	case "step":
		return msg.prod.StepHours, true
	case "shortName":
		return shortNameFor(paramKey{
			Discipline: msg.prod.Discipline,
			Category:   msg.prod.ParameterCategory,
			Number:     msg.prod.ParameterNumber,
		}), true
	case "discipline":
		return msg.prod.Discipline, true
	case "parameterCategory":
		return msg.prod.ParameterCategory, true
	case "parameterNumber":
		return msg.prod.ParameterNumber, true
	case "typeOfLevel":
		if name, ok := levelTypeNames[msg.prod.LevelType]; ok {
			return name, true
		}
		return fmt.Sprintf("code%d", msg.prod.LevelType), true
	case "level":
		return msg.prod.Level, true
	case "gridType":
		return "regular_ll", true
	case "Ni":
		return msg.grid.Ni, true
	case "Nj":
		return msg.grid.Nj, true
	case "latitudeOfFirstGridPointInDegrees":
		return msg.grid.FirstLat, true
	case "longitudeOfFirstGridPointInDegrees":
		return msg.grid.FirstLon, true
	case "latitudeOfLastGridPointInDegrees":
		return msg.grid.LastLat, true
	case "longitudeOfLastGridPointInDegrees":
		return msg.grid.LastLon, true
	case "numberOfDataPoints":
		return msg.grid.NumberOfDataPoints, true
	case "bitsPerValue":
		return msg.pack.Bits, true
	default:
		return nil, false
	}
}

func (m *Metadata) derivedValue(key string) (any, error) {
	values, err := m.field.Values()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %q on empty field", errs.ErrKeyNotFound, key)
	}

	switch key {
	case "average":
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values)), nil
	case "minimum":
		return slices.Min(values), nil
	case "maximum":
		return slices.Max(values), nil
	default:
		return nil, fmt.Errorf("%w: %q", errs.ErrKeyNotFound, key)
	}
}
