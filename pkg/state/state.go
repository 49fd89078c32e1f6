// Package state holds the page state: the flat record a view renders from,
// kept as a bounded history of snapshots.
package state

import (
	"maps"
	"slices"
)

// State is a flat key/value record.
type State map[string]any

// Clone returns a shallow copy of s. A nil State clones to an empty one.
func (s State) Clone() State {
	out := make(State, len(s))
	maps.Copy(out, s)
	return out
}

// Keys returns the sorted keys of s.
func (s State) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// Merge returns a new State holding base overlaid by each patch in order.
// The merge is top-level only; nested values are replaced, not merged.
func Merge(base State, patches ...State) State {
	out := base.Clone()
	for _, p := range patches {
		maps.Copy(out, p)
	}
	return out
}
