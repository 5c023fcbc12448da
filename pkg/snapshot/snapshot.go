// Package snapshot holds the point-in-time view of a streamed record and the
// differ that decides which top-level fields changed between two views.
//
// Values are the closed JSON variant produced by encoding/json decoding into
// an empty interface: nil, bool, float64, json.Number, string, []any and
// map[string]any.
package snapshot

import (
	"encoding/json"
	"maps"
	"slices"
)

// Snapshot is a mapping from field name to value that also remembers the
// order in which keys were first encountered.
type Snapshot struct {
	keys   []string
	values map[string]any
}

// New returns an empty Snapshot.
func New() Snapshot {
	return Snapshot{values: map[string]any{}}
}

// FromMap builds a Snapshot from m with keys in sorted order. It is intended
// for callers that have no encounter order to preserve.
func FromMap(m map[string]any) Snapshot {
	s := New()
	for _, k := range slices.Sorted(maps.Keys(m)) {
		s.Set(k, m[k])
	}
	return s
}

// Set stores value under key. A key that already exists keeps its original
// position.
func (s *Snapshot) Set(key string, value any) {
	if s.values == nil {
		s.values = map[string]any{}
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns the value stored under key.
func (s Snapshot) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Keys returns the keys in encounter order.
func (s Snapshot) Keys() []string {
	return slices.Clone(s.keys)
}

// Len returns the number of keys.
func (s Snapshot) Len() int {
	return len(s.keys)
}

// Map returns a shallow copy of the values as a plain map.
func (s Snapshot) Map() map[string]any {
	out := make(map[string]any, len(s.values))
	maps.Copy(out, s.values)
	return out
}

// Merge returns the union of s and other. Values from other win on conflict;
// keys only present in other are appended in other's order.
func (s Snapshot) Merge(other Snapshot) Snapshot {
	out := New()
	for _, k := range s.keys {
		out.Set(k, s.values[k])
	}
	for _, k := range other.keys {
		out.Set(k, other.values[k])
	}
	return out
}

// MarshalJSON encodes the snapshot as a JSON object in encounter order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range s.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(s.values[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	return append(buf, '}'), nil
}
