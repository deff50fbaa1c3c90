// Package props implements the ordered, case-insensitive-keyed property
// map used for service properties and configuration dictionaries
// (spec §4.C), grounded on the source framework's ctkServiceProperties.
package props

import (
	"strings"

	"github.com/corectk/pluginfw/fwerr"
)

// Map is an ordered (key, value) property list. Keys are compared
// case-insensitively for lookup, but the original casing of the first
// insertion is preserved for iteration and serialization.
//
// A Map is immutable after construction via New; callers that need to
// change properties build a new Map (mirroring the source framework's
// construct-time duplicate check, which only runs once).
type Map struct {
	keys   []string
	values []Value
}

// New builds a Map from an ordered list of entries, in the order given.
// It returns an InvalidArgument error if two entries have keys that are
// equal case-insensitively (case variants of the same key).
func New(entries ...Entry) (*Map, error) {
	m := &Map{}
	for _, e := range entries {
		if m.Find(e.Key) != -1 {
			return nil, fwerr.InvalidArgumentf("props", "New", "duplicate property key (case-insensitive): %s", e.Key)
		}
		m.keys = append(m.keys, e.Key)
		m.values = append(m.values, e.Value)
	}
	return m, nil
}

// Entry is one (key, value) pair passed to New.
type Entry struct {
	Key   string
	Value Value
}

// E is a convenience constructor for an Entry.
func E(key string, value Value) Entry {
	return Entry{Key: key, Value: value}
}

// Find returns the index of key using a case-insensitive comparison, or -1
// if absent.
func (m *Map) Find(key string) int {
	for i, k := range m.keys {
		if strings.EqualFold(k, key) {
			return i
		}
	}
	return -1
}

// FindCaseSensitive returns the index of key using an exact comparison, or
// -1 if absent.
func (m *Map) FindCaseSensitive(key string) int {
	for i, k := range m.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// Get returns the value stored for key (case-insensitive) and whether it
// was present.
func (m *Map) Get(key string) (Value, bool) {
	i := m.Find(key)
	if i < 0 {
		return Value{}, false
	}
	return m.values[i], true
}

// Keys returns the property keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of properties.
func (m *Map) Len() int {
	return len(m.keys)
}

// Entries returns all (key, value) pairs in insertion order.
func (m *Map) Entries() []Entry {
	out := make([]Entry, len(m.keys))
	for i := range m.keys {
		out[i] = Entry{Key: m.keys[i], Value: m.values[i]}
	}
	return out
}

// With returns a new Map with key set to value, replacing any existing
// case-insensitive match in place, or appending if absent.
func (m *Map) With(key string, value Value) *Map {
	out := &Map{keys: append([]string(nil), m.keys...), values: append([]Value(nil), m.values...)}
	if i := out.Find(key); i >= 0 {
		out.values[i] = value
	} else {
		out.keys = append(out.keys, key)
		out.values = append(out.values, value)
	}
	return out
}

// AsStringMap renders every value via AsString, for consumers (like the
// LDAP filter engine) that only need string comparisons.
func (m *Map) AsStringMap() map[string]string {
	out := make(map[string]string, len(m.keys))
	for i, k := range m.keys {
		out[k] = m.values[i].AsString()
	}
	return out
}
