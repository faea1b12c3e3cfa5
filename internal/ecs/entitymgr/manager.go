// Package entitymgr owns entity identity and lifecycle: allocation,
// parent/child hierarchy, and the ComponentType-to-arena mapping, the Go
// generalization of the teacher's DefaultEntityManager
// (internal/core/ecs/entity_manager.go). It composes package store (typed
// arenas) and package reflect (construct/serialize function tables),
// which is why it cannot live in the root ecs package: both of those
// import ecs for EntityID/ComponentID, and ecs importing back would be a
// cycle.
package entitymgr

import (
	"sort"
	"sync"

	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/reflect"
	"ecsruntime/internal/ecs/store"
)

// Manager owns every live entity and component arena in a world.
type Manager struct {
	mu         sync.RWMutex
	reflector  *reflect.Reflector
	entities   map[ecs.EntityID]*ecs.Entity
	arenas     map[ecs.ComponentType]*store.ComponentArena
	owners     map[ecs.ComponentID]ecs.EntityID
	nextEntity ecs.EntityID
	nextUnique ecs.ComponentUniqueID

	// Transmitting mode only: per-tick dirty tracking, reported by
	// TransmissionDelta and cleared by ClearTransmissionBuffers; the
	// replication encoder builds whole snapshots and does not read it. A
	// manager constructed with transmitting=false leaves these nil and
	// pays no bookkeeping cost, matching §3's Lifecycle note that buffering
	// is a replication-server-only concern.
	transmitting                   bool
	componentsAddedSinceLastSend   map[ecs.ComponentID]struct{}
	componentsRemovedSinceLastSend map[ecs.ComponentID]struct{}
	entitiesAddedSinceLastSend     map[ecs.EntityID]struct{}
	entitiesRemovedSinceLastSend   map[ecs.EntityID]struct{}
}

// New creates an entity manager bound to the given reflector. When
// transmitting is true, component/entity churn is tracked per tick and
// reported by TransmissionDelta.
func New(r *reflect.Reflector, transmitting bool) *Manager {
	m := &Manager{
		reflector:  r,
		entities:   make(map[ecs.EntityID]*ecs.Entity),
		arenas:     make(map[ecs.ComponentType]*store.ComponentArena),
		owners:     make(map[ecs.ComponentID]ecs.EntityID),
		nextEntity: ecs.InvalidEntityID + 1,
		nextUnique: ecs.InvalidComponentUniqueID + 1,
	}
	if transmitting {
		m.transmitting = true
		m.resetTransmissionBuffers()
	}
	return m
}

func (m *Manager) resetTransmissionBuffers() {
	m.componentsAddedSinceLastSend = make(map[ecs.ComponentID]struct{})
	m.componentsRemovedSinceLastSend = make(map[ecs.ComponentID]struct{})
	m.entitiesAddedSinceLastSend = make(map[ecs.EntityID]struct{})
	m.entitiesRemovedSinceLastSend = make(map[ecs.EntityID]struct{})
}

// CreateEntity allocates a new entity with a monotonic ID; IDs are never
// reused within a session, unlike the teacher's recycled-ID pool — a
// replicated system must not let a reused ID collide with a client's
// lingering reference to the entity it used to name.
func (m *Manager) CreateEntity() ecs.EntityID {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextEntity
	m.nextEntity++
	m.entities[id] = &ecs.Entity{ID: id}

	if m.transmitting {
		m.entitiesAddedSinceLastSend[id] = struct{}{}
	}
	return id
}

// IsValid reports whether id names a live entity.
func (m *Manager) IsValid(id ecs.EntityID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entities[id]
	return ok
}

// EntityCount returns the number of live entities.
func (m *Manager) EntityCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entities)
}

// DeleteEntities removes the given entities along with every descendant
// reachable through the parent/child forest, per §4.3's transitive-closure
// rule: deleting a node implicitly deletes its whole subtree.
func (m *Manager) DeleteEntities(ids []ecs.EntityID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	closure := make(map[ecs.EntityID]struct{})
	var collect func(ecs.EntityID)
	collect = func(id ecs.EntityID) {
		if _, ok := closure[id]; ok {
			return
		}
		e, ok := m.entities[id]
		if !ok {
			return
		}
		closure[id] = struct{}{}
		for _, child := range e.Children {
			collect(child)
		}
	}
	for _, id := range ids {
		collect(id)
	}

	for id := range closure {
		m.deleteOne(id)
	}
}

func (m *Manager) deleteOne(id ecs.EntityID) {
	e, ok := m.entities[id]
	if !ok {
		return
	}

	if e.Parent != ecs.InvalidEntityID {
		if parent, ok := m.entities[e.Parent]; ok {
			parent.removeChild(id)
		}
	}

	for _, cid := range e.ComponentIDs {
		if arena, ok := m.arenas[cid.Type]; ok {
			arena.Remove(cid)
		}
		delete(m.owners, cid)
		if m.transmitting {
			delete(m.componentsAddedSinceLastSend, cid)
			m.componentsRemovedSinceLastSend[cid] = struct{}{}
		}
	}

	delete(m.entities, id)
	if m.transmitting {
		delete(m.entitiesAddedSinceLastSend, id)
		m.entitiesRemovedSinceLastSend[id] = struct{}{}
	}
}

// SetParent reparents child under parent. It is a logic invariant
// violation — panics, per §7 — for either entity to be unknown or for the
// reparent to introduce a cycle; both the teacher's wouldCreateCycle and
// the original engine's hierarchy code treat this as a programmer error,
// never a recoverable one, since only game code ever calls it.
func (m *Manager) SetParent(child, parent ecs.EntityID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	childEntity, ok := m.entities[child]
	if !ok {
		ecs.FatalInvariantError("SetParent: child entity %d does not exist", child)
	}
	if _, ok := m.entities[parent]; !ok {
		ecs.FatalInvariantError("SetParent: parent entity %d does not exist", parent)
	}
	if m.wouldCreateCycle(child, parent) {
		ecs.FatalInvariantError("SetParent: %d -> %d would create a cycle", child, parent)
	}

	if childEntity.Parent != ecs.InvalidEntityID {
		if oldParent, ok := m.entities[childEntity.Parent]; ok {
			oldParent.removeChild(child)
		}
	}
	childEntity.Parent = parent
	m.entities[parent].Children = append(m.entities[parent].Children, child)
}

func (m *Manager) wouldCreateCycle(child, parent ecs.EntityID) bool {
	current := parent
	for current != ecs.InvalidEntityID {
		if current == child {
			return true
		}
		e, ok := m.entities[current]
		if !ok {
			break
		}
		current = e.Parent
	}
	return false
}

// Parent returns the parent of id, if any.
func (m *Manager) Parent(id ecs.EntityID) (ecs.EntityID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[id]
	if !ok || e.Parent == ecs.InvalidEntityID {
		return ecs.InvalidEntityID, false
	}
	return e.Parent, true
}

// Children returns a copy of id's child list.
func (m *Manager) Children(id ecs.EntityID) []ecs.EntityID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[id]
	if !ok {
		return nil
	}
	out := make([]ecs.EntityID, len(e.Children))
	copy(out, e.Children)
	return out
}

// AddComponent constructs a new component of componentType on entity id
// via the reflector, assigns it the next unique ComponentID, and emplaces
// it into that type's arena.
func (m *Manager) AddComponent(id ecs.EntityID, componentType ecs.ComponentType) ecs.ComponentID {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[id]
	if !ok {
		ecs.FatalInvariantError("AddComponent: entity %d does not exist", id)
	}
	if e.HasComponent(componentType) {
		ecs.FatalInvariantError("AddComponent: entity %d already has component type %08x", id, uint32(componentType))
	}

	entry := m.reflector.MustFind(componentType)
	arena, ok := m.arenas[componentType]
	if !ok {
		arena = store.NewComponentArena(componentType)
		m.arenas[componentType] = arena
	}

	cid := ecs.ComponentID{Type: componentType, Unique: m.nextUnique}
	m.nextUnique++

	var payload []byte
	if entry.Construct != nil {
		payload = entry.Construct()
	}
	arena.Emplace(cid, payload)
	e.addComponentID(cid)
	m.owners[cid] = id

	if m.transmitting {
		m.componentsAddedSinceLastSend[cid] = struct{}{}
	}
	return cid
}

// RemoveComponent removes entity id's component of componentType, if any.
func (m *Manager) RemoveComponent(id ecs.EntityID, componentType ecs.ComponentType) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[id]
	if !ok {
		return
	}
	cid, ok := e.FindComponentID(componentType)
	if !ok {
		return
	}
	if arena, ok := m.arenas[componentType]; ok {
		arena.Remove(cid)
	}
	e.removeComponentID(componentType)
	delete(m.owners, cid)

	if m.transmitting {
		delete(m.componentsAddedSinceLastSend, cid)
		m.componentsRemovedSinceLastSend[cid] = struct{}{}
	}
}

// ApplyEntity ensures an entity with the given id exists, creating it with
// no parent if it does not, and sets its networked flag. Replication decode
// uses this instead of CreateEntity because it must reconstruct entities
// under the id the sender transmitted, not the next id this manager's own
// counter would allocate.
func (m *Manager) ApplyEntity(id ecs.EntityID, networked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[id]
	if !ok {
		e = &ecs.Entity{ID: id}
		m.entities[id] = e
	}
	if networked {
		e.Flags |= ecs.FlagNetworked
	} else {
		e.Flags &^= ecs.FlagNetworked
	}
	if id >= m.nextEntity {
		m.nextEntity = id + 1
	}
}

// ApplyComponent creates or overwrites the component named by cid on entity
// id with payload, bypassing the reflector's Construct function and the
// manager's own unique-ID counter — both the id and the payload come from a
// replication snapshot the decoder already reconstructed.
func (m *Manager) ApplyComponent(id ecs.EntityID, cid ecs.ComponentID, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entities[id]
	if !ok {
		e = &ecs.Entity{ID: id}
		m.entities[id] = e
	}

	arena, ok := m.arenas[cid.Type]
	if !ok {
		arena = store.NewComponentArena(cid.Type)
		m.arenas[cid.Type] = arena
	}

	if !arena.SetPayload(cid, payload) {
		arena.Emplace(cid, payload)
		e.addComponentID(cid)
	}
	m.owners[cid] = id

	if cid.Unique >= m.nextUnique {
		m.nextUnique = cid.Unique + 1
	}
}

// RemoveComponentByID removes a component named directly by its
// ComponentID. Replication decode uses this for removal records, which name
// a component by ID rather than by (entity, type) the way the live
// simulation's RemoveComponent does.
func (m *Manager) RemoveComponentByID(cid ecs.ComponentID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owner, ok := m.owners[cid]
	if !ok {
		return
	}
	if arena, ok := m.arenas[cid.Type]; ok {
		arena.Remove(cid)
	}
	if e, ok := m.entities[owner]; ok {
		e.removeComponentID(cid.Type)
	}
	delete(m.owners, cid)
}

// Owner returns the entity that owns a given component id, for callers
// (the group index rebuilder) that need to go from a component back to its
// entity without a linear scan.
func (m *Manager) Owner(cid ecs.ComponentID) (ecs.EntityID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.owners[cid]
	return id, ok
}

// Component returns the payload bytes for entity id's component of the
// given type.
func (m *Manager) Component(id ecs.EntityID, componentType ecs.ComponentType) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[id]
	if !ok {
		return nil, false
	}
	cid, ok := e.FindComponentID(componentType)
	if !ok {
		return nil, false
	}
	arena, ok := m.arenas[componentType]
	if !ok {
		return nil, false
	}
	return arena.Get(cid)
}

// Arena returns the arena for a component type, creating it empty if it
// does not yet exist — callers that only want to iterate (e.g. the group
// index rebuilder) should use TryArena instead to avoid allocating arenas
// for types nothing has instantiated yet.
func (m *Manager) Arena(componentType ecs.ComponentType) *store.ComponentArena {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.arenas[componentType]
	if !ok {
		a = store.NewComponentArena(componentType)
		m.arenas[componentType] = a
	}
	return a
}

// TryArena returns the arena for a component type without creating it.
func (m *Manager) TryArena(componentType ecs.ComponentType) (*store.ComponentArena, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.arenas[componentType]
	return a, ok
}

// Entity returns the live entity for id.
func (m *Manager) Entity(id ecs.EntityID) (*ecs.Entity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entities[id]
	return e, ok
}

// AllEntityIDs returns every live entity, sorted ascending; unlike
// NetworkedEntityIDs this is not filtered to replicated entities.
func (m *Manager) AllEntityIDs() []ecs.EntityID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ecs.EntityID, 0, len(m.entities))
	for id := range m.entities {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NetworkedEntityIDs returns every live entity flagged Networked, sorted
// ascending — the order the replication encoder walks entities in when
// building a snapshot.
func (m *Manager) NetworkedEntityIDs() []ecs.EntityID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ecs.EntityID, 0, len(m.entities))
	for id, e := range m.entities {
		if e.IsNetworked() {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SetNetworked toggles whether an entity participates in replication.
func (m *Manager) SetNetworked(id ecs.EntityID, networked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[id]
	if !ok {
		return
	}
	if networked {
		e.Flags |= ecs.FlagNetworked
	} else {
		e.Flags &^= ecs.FlagNetworked
	}
}

// TransmissionDelta is the per-tick churn snapshot: components and
// entities that came or went since the last call to
// ClearTransmissionBuffers.
type TransmissionDelta struct {
	ComponentsAdded   []ecs.ComponentID
	ComponentsRemoved []ecs.ComponentID
	EntitiesAdded     []ecs.EntityID
	EntitiesRemoved   []ecs.EntityID
}

// TransmissionDelta returns the churn accumulated since the last clear.
// Calling this on a manager not constructed in transmitting mode always
// returns an empty delta.
func (m *Manager) TransmissionDelta() TransmissionDelta {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.transmitting {
		return TransmissionDelta{}
	}
	return TransmissionDelta{
		ComponentsAdded:   componentIDKeys(m.componentsAddedSinceLastSend),
		ComponentsRemoved: componentIDKeys(m.componentsRemovedSinceLastSend),
		EntitiesAdded:     entityIDKeys(m.entitiesAddedSinceLastSend),
		EntitiesRemoved:   entityIDKeys(m.entitiesRemovedSinceLastSend),
	}
}

// ClearTransmissionBuffers resets per-tick churn tracking; World.Tick calls
// it after building each replication frame.
func (m *Manager) ClearTransmissionBuffers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transmitting {
		m.resetTransmissionBuffers()
	}
}

func componentIDKeys(set map[ecs.ComponentID]struct{}) []ecs.ComponentID {
	out := make([]ecs.ComponentID, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

func entityIDKeys(set map[ecs.EntityID]struct{}) []ecs.EntityID {
	out := make([]ecs.EntityID, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
