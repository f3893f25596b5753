package field

import (
	"fmt"
	"maps"
	"slices"

	"github.com/earthkit/fieldkit/errs"
)

// Metadata is the uniform key-value namespace attached to every field.
//
// Implementations either compute values from a native handle (the GRIB
// message metadata in the grib package) or hold a plain detached map
// (KVMetadata). Metadata objects are never mutated in place: Override and
// OverrideHeadersOnly return new, independent objects.
type Metadata interface {
	// Get returns the typed value for key. It fails with an error wrapping
	// errs.ErrKeyNotFound when the key is absent and not computable.
	Get(key string) (any, error)

	// GetDefault returns the value for key, or def when the key is absent.
	// It never fails; a restricted key also yields def.
	GetDefault(key string, def any) any

	// Has reports whether key is present or computable.
	Has(key string) bool

	// Keys returns all present keys in a stable order.
	Keys() []string

	// Override returns a deep, independent copy with changes applied.
	// Value-derived keys (average, min, ...) remain available on the copy,
	// which may require decoding the value section of a handle-backed
	// implementation. The receiver is never modified.
	Override(changes map[string]any) (Metadata, error)

	// OverrideHeadersOnly is the cheaper form of Override: the copy drops
	// the value section, so value-derived keys subsequently fail with
	// errs.ErrRestrictedKey. This is an intentional speed/memory trade-off.
	OverrideHeadersOnly(changes map[string]any) (Metadata, error)
}

// ValueDerivedKeys are the metadata keys computed from a field's value
// array rather than its headers. A headers-only clone cannot serve them.
var ValueDerivedKeys = []string{"average", "minimum", "maximum"}

// IsValueDerived reports whether key is computed from the value array.
func IsValueDerived(key string) bool {
	return slices.Contains(ValueDerivedKeys, key)
}

// KVMetadata is a detached, map-backed Metadata implementation. It is the
// result of overriding a handle-backed metadata object, and the natural
// choice when constructing array fields from scratch.
type KVMetadata struct {
	entries    map[string]any
	restricted bool // headers-only clone: value-derived keys are gone
}

var _ Metadata = (*KVMetadata)(nil)

// NewKV builds a detached metadata object from the given entries.
// The map is copied; later changes to it do not affect the result.
func NewKV(entries map[string]any) *KVMetadata {
	return &KVMetadata{entries: maps.Clone(entries)}
}

// NewRestrictedKV builds a headers-only metadata object. Value-derived keys
// present in entries are dropped, and requesting them afterwards fails with
// errs.ErrRestrictedKey. Handle-backed metadata implementations use this to
// clone without decoding their value section.
func NewRestrictedKV(entries map[string]any) *KVMetadata {
	m := maps.Clone(entries)
	for _, key := range ValueDerivedKeys {
		delete(m, key)
	}

	return &KVMetadata{entries: m, restricted: true}
}

// Get returns the value for key.
//
// On a headers-only clone, value-derived keys fail with errs.ErrRestrictedKey
// rather than silently returning wrong data. Other absent keys fail with
// errs.ErrKeyNotFound.
func (m *KVMetadata) Get(key string) (any, error) {
	if v, ok := m.entries[key]; ok {
		return v, nil
	}

	if m.restricted && IsValueDerived(key) {
		return nil, fmt.Errorf("%w: %q", errs.ErrRestrictedKey, key)
	}

	return nil, fmt.Errorf("%w: %q", errs.ErrKeyNotFound, key)
}

// GetDefault returns the value for key, or def when absent.
func (m *KVMetadata) GetDefault(key string, def any) any {
	if v, ok := m.entries[key]; ok {
		return v
	}

	return def
}

// Has reports whether key is present.
func (m *KVMetadata) Has(key string) bool {
	_, ok := m.entries[key]
	return ok
}

// Keys returns the present keys, sorted for determinism.
func (m *KVMetadata) Keys() []string {
	keys := slices.Collect(maps.Keys(m.entries))
	slices.Sort(keys)

	return keys
}

// Override returns an independent copy with changes applied.
// The receiver keeps its restriction status: overriding a headers-only clone
// yields another headers-only clone, since the value section cannot be
// resurrected from a detached map.
func (m *KVMetadata) Override(changes map[string]any) (Metadata, error) {
	out := maps.Clone(m.entries)
	maps.Copy(out, changes)

	return &KVMetadata{entries: out, restricted: m.restricted}, nil
}

// OverrideHeadersOnly returns an independent copy with changes applied and
// value-derived keys dropped.
func (m *KVMetadata) OverrideHeadersOnly(changes map[string]any) (Metadata, error) {
	out := maps.Clone(m.entries)
	maps.Copy(out, changes)

	return NewRestrictedKV(out), nil
}

// Snapshot copies all entries of any Metadata into a plain map.
// Restricted keys are skipped rather than failing.
func Snapshot(md Metadata) map[string]any {
	out := make(map[string]any, len(md.Keys()))
	for _, key := range md.Keys() {
		v, err := md.Get(key)
		if err != nil {
			continue
		}
		out[key] = v
	}

	return out
}

// CloneDetached builds a detached KVMetadata from any Metadata
// implementation. When headersOnly is true the clone drops value-derived
// keys and marks them restricted.
func CloneDetached(md Metadata, headersOnly bool) *KVMetadata {
	snap := Snapshot(md)
	if headersOnly {
		return NewRestrictedKV(snap)
	}

	return NewKV(snap)
}
