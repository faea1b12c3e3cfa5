// Package store provides the typed component arena: a single
// ComponentType's payloads packed into one contiguous, growable slice of
// slices, kept sorted by the unique half of ComponentID. This replaces the
// teacher's map-of-maps ComponentStore (storage/component_store.go) and
// swap-with-last SparseSet (storage/sparse_set.go) — neither preserves
// insertion order, which the group index (package query) relies on to walk
// components in a stable sequence.
package store

import (
	"sort"

	"ecsruntime/internal/ecs"
)

const initialCapacity = 64

// ComponentArena holds every live component of one ComponentType, sorted
// ascending by ComponentID.Unique. Payloads are opaque bytes; package
// reflect is what gives them meaning.
type ComponentArena struct {
	componentType ecs.ComponentType
	ids           []ecs.ComponentID
	payloads      [][]byte
}

// NewComponentArena creates an empty arena for the given component type.
func NewComponentArena(t ecs.ComponentType) *ComponentArena {
	return &ComponentArena{
		componentType: t,
		ids:           make([]ecs.ComponentID, 0, initialCapacity),
		payloads:      make([][]byte, 0, initialCapacity),
	}
}

// Len returns the number of components currently stored.
func (a *ComponentArena) Len() int {
	return len(a.ids)
}

// Emplace inserts a new component. id must strictly exceed the largest ID
// currently stored — components are only ever allocated with a monotonic
// counter by the entity manager, so an out-of-order Emplace is a logic
// invariant violation, not a recoverable error.
func (a *ComponentArena) Emplace(id ecs.ComponentID, payload []byte) {
	if id.Type != a.componentType {
		ecs.FatalInvariantError("component id %s does not match arena type %08x", id, uint32(a.componentType))
	}
	if n := len(a.ids); n > 0 && !a.ids[n-1].Less(id) {
		ecs.FatalInvariantError("component arena emplace out of order: id %s does not exceed last %s", id, a.ids[n-1])
	}
	a.ids = append(a.ids, id)
	a.payloads = append(a.payloads, payload)
}

// Find returns the dense index of id via binary search over the
// counter-sorted ids.
func (a *ComponentArena) Find(id ecs.ComponentID) (int, bool) {
	idx := sort.Search(len(a.ids), func(i int) bool {
		return !a.ids[i].Less(id)
	})
	if idx < len(a.ids) && a.ids[idx] == id {
		return idx, true
	}
	return -1, false
}

// Get returns the payload stored at id.
func (a *ComponentArena) Get(id ecs.ComponentID) ([]byte, bool) {
	idx, ok := a.Find(id)
	if !ok {
		return nil, false
	}
	return a.payloads[idx], true
}

// At returns the (ComponentID, payload) pair at a dense index, for callers
// walking the arena in order (group index rebuilds).
func (a *ComponentArena) At(index int) (ecs.ComponentID, []byte) {
	return a.ids[index], a.payloads[index]
}

// SetPayload overwrites the payload stored at an already-present id without
// touching its position — the replication decoder uses this to apply a
// delta record against a component it already holds, as distinct from
// Emplace, which only ever appends a brand new id.
func (a *ComponentArena) SetPayload(id ecs.ComponentID, payload []byte) bool {
	idx, ok := a.Find(id)
	if !ok {
		return false
	}
	a.payloads[idx] = payload
	return true
}

// Remove deletes the component with the given id, if present, shifting
// later elements down to preserve order. Unlike the teacher's
// SparseSet.Remove, this is never a swap-with-last: ordering is the whole
// point of this type.
func (a *ComponentArena) Remove(id ecs.ComponentID) bool {
	idx, ok := a.Find(id)
	if !ok {
		return false
	}
	a.removeAt(idx)
	return true
}

// RemoveSorted removes every id in ids, which must already be sorted
// ascending, in a single linear scan rather than one binary search per id.
func (a *ComponentArena) RemoveSorted(ids []ecs.ComponentID) int {
	if len(ids) == 0 {
		return 0
	}
	removed := 0
	w, r, next := 0, 0, 0
	for r < len(a.ids) {
		if next < len(ids) && a.ids[r] == ids[next] {
			next++
			r++
			removed++
			continue
		}
		if r != w {
			a.ids[w] = a.ids[r]
			a.payloads[w] = a.payloads[r]
		}
		w++
		r++
	}
	a.ids = a.ids[:w]
	a.payloads = a.payloads[:w]
	return removed
}

func (a *ComponentArena) removeAt(idx int) {
	a.ids = append(a.ids[:idx], a.ids[idx+1:]...)
	a.payloads = append(a.payloads[:idx], a.payloads[idx+1:]...)
}

// Swap exchanges the (id, payload) entries stored at two dense indices in
// place, for every binding kind alike. It does not re-sort the arena
// afterwards.
func (a *ComponentArena) Swap(i, j int) {
	a.ids[i], a.ids[j] = a.ids[j], a.ids[i]
	a.payloads[i], a.payloads[j] = a.payloads[j], a.payloads[i]
}

// All returns the arena's ids in storage order, for callers building a
// view over the whole arena without copying payloads.
func (a *ComponentArena) All() []ecs.ComponentID {
	return a.ids
}
