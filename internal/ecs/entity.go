package ecs

// Entity is the forest node the entity manager owns. ComponentIDs holds
// the entity's components in the order they were added; snapshot encoding
// (package replication) sorts its own copy rather than relying on this
// order.
type Entity struct {
	ID           EntityID
	InfoNameHash uint32
	Flags        EntityFlags
	ComponentIDs []ComponentID
	Parent       EntityID
	Children     []EntityID
}

// IsNetworked reports whether the entity should appear in replication
// snapshots.
func (e *Entity) IsNetworked() bool {
	return e.Flags&FlagNetworked != 0
}

// HasComponent reports whether the entity carries a component of the
// given type.
func (e *Entity) HasComponent(t ComponentType) bool {
	_, ok := e.findComponentID(t)
	return ok
}

// FindComponentID returns the ComponentID of the given type on this entity,
// if any.
func (e *Entity) FindComponentID(t ComponentType) (ComponentID, bool) {
	return e.findComponentID(t)
}

func (e *Entity) findComponentID(t ComponentType) (ComponentID, bool) {
	for _, id := range e.ComponentIDs {
		if id.Type == t {
			return id, true
		}
	}
	return InvalidComponentID, false
}

func (e *Entity) addComponentID(id ComponentID) {
	e.ComponentIDs = append(e.ComponentIDs, id)
}

func (e *Entity) removeComponentID(t ComponentType) {
	for i, id := range e.ComponentIDs {
		if id.Type == t {
			e.ComponentIDs = append(e.ComponentIDs[:i], e.ComponentIDs[i+1:]...)
			return
		}
	}
}

func (e *Entity) removeChild(child EntityID) {
	for i, c := range e.Children {
		if c == child {
			e.Children = append(e.Children[:i], e.Children[i+1:]...)
			return
		}
	}
}
