package query

import (
	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/entitymgr"
)

// Tuple is one matched entity's component references for a GroupIndex's
// required types, in the same order the GroupIndex was built with.
type Tuple struct {
	Entity     ecs.EntityID
	Components []ecs.ComponentID
}

// GroupIndex is a system's precomputed view over every entity carrying a
// fixed set of component types, per spec §4.6: entries are sorted by the
// arena slot of the tuple's primary (first-listed) component, not by
// EntityID, so a system iterating the group walks that component's arena
// in storage order rather than jumping around by identity. It is
// append-only between rebuilds and only recomputed when Invalidate has
// been called since the last Entries call.
type GroupIndex struct {
	required []ecs.ComponentType
	valid    bool
	tuples   []Tuple
}

// NewGroupIndex creates a group index over the given required component
// types. The first type in the list is the primary type that determines
// sort order.
func NewGroupIndex(required ...ecs.ComponentType) *GroupIndex {
	return &GroupIndex{required: append([]ecs.ComponentType(nil), required...)}
}

// Invalidate marks the index stale; the next call to Entries rebuilds it.
// World's scheduler callback calls this once per tick, after that tick's
// deferred mutations are applied, for groups registered against a type a
// component add/remove touched, and for every registered group when an
// entity was created or destroyed.
func (g *GroupIndex) Invalidate() {
	g.valid = false
}

// Entries returns the group's tuples, rebuilding first if stale. Rebuild is
// O(entities carrying the primary type), using the manager's ComponentID
// owner index rather than a scan over every live entity.
func (g *GroupIndex) Entries(m *entitymgr.Manager) []Tuple {
	if !g.valid {
		g.rebuild(m)
	}
	return g.tuples
}

func (g *GroupIndex) rebuild(m *entitymgr.Manager) {
	if len(g.required) == 0 {
		g.tuples = nil
		g.valid = true
		return
	}

	primary, ok := m.TryArena(g.required[0])
	if !ok {
		g.tuples = nil
		g.valid = true
		return
	}

	// Walking the primary arena front-to-back already visits slots in
	// ascending order, so tuples come out sorted by construction — no
	// separate sort step is needed.
	tuples := make([]Tuple, 0, primary.Len())

	for i := 0; i < primary.Len(); i++ {
		cid, _ := primary.At(i)
		entityID, ok := m.Owner(cid)
		if !ok {
			continue
		}
		entity, ok := m.Entity(entityID)
		if !ok {
			continue
		}

		ids := make([]ecs.ComponentID, len(g.required))
		ids[0] = cid
		matched := true
		for j := 1; j < len(g.required); j++ {
			other, ok := entity.FindComponentID(g.required[j])
			if !ok {
				matched = false
				break
			}
			ids[j] = other
		}
		if !matched {
			continue
		}
		tuples = append(tuples, Tuple{Entity: entityID, Components: ids})
	}

	g.tuples = tuples
	g.valid = true
}
