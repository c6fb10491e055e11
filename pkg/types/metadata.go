package types

import "sort"

// Metadata is the side-channel mapping attached to a table, plan or column.
// Values are plain data: nil, booleans, strings, integers, finite floats, and
// slices or string-keyed maps of those. Values are treated as immutable once
// stored, so copies of a Metadata share them.
type Metadata map[string]any

// Clone returns a shallow copy of m. Clone of a nil Metadata is an empty,
// non-nil Metadata.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge copies every key of other into m, overwriting existing keys.
// m must be non-nil.
func (m Metadata) Merge(other Metadata) {
	for k, v := range other {
		m[k] = v
	}
}

// Keys returns the keys of m in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value stored under key and whether it was present.
func (m Metadata) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}
