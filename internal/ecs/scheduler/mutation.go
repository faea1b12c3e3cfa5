package scheduler

import (
	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/entitymgr"
)

// MutationKind discriminates a Mutation's payload. Deferred mutations are a
// tagged union rather than captured closures deliberately — per spec §9's
// guidance, a closure capturing live manager state could observe a torn
// view if applied after other systems in the same band have already
// mutated the world concurrently, whereas a value describing *what* to do
// is safe to queue during a concurrent band and apply afterward.
type MutationKind int

const (
	MutationCreateEntity MutationKind = iota
	MutationDestroyEntities
	MutationReparent
	MutationAddComponent
	MutationRemoveComponent
	MutationSetNetworked
)

// Mutation is one deferred world edit, collected during a band's concurrent
// Update calls and applied serially, in the band's system order (priority,
// then registration order), once the band finishes.
type Mutation struct {
	Kind MutationKind

	Entity   ecs.EntityID   // Reparent (child), AddComponent, RemoveComponent, SetNetworked
	Entities []ecs.EntityID // DestroyEntities

	Parent ecs.EntityID // Reparent

	ComponentType ecs.ComponentType // AddComponent, RemoveComponent

	Networked bool // SetNetworked
}

// CreateEntity returns a mutation that creates a new, unparented entity.
func CreateEntity() Mutation {
	return Mutation{Kind: MutationCreateEntity}
}

// DestroyEntities returns a mutation that deletes the given entities and
// their descendants.
func DestroyEntities(ids ...ecs.EntityID) Mutation {
	return Mutation{Kind: MutationDestroyEntities, Entities: ids}
}

// Reparent returns a mutation that sets child's parent.
func Reparent(child, parent ecs.EntityID) Mutation {
	return Mutation{Kind: MutationReparent, Entity: child, Parent: parent}
}

// AddComponent returns a mutation that adds a component of the given type
// to entity.
func AddComponent(entity ecs.EntityID, componentType ecs.ComponentType) Mutation {
	return Mutation{Kind: MutationAddComponent, Entity: entity, ComponentType: componentType}
}

// RemoveComponent returns a mutation that removes entity's component of
// the given type, if present.
func RemoveComponent(entity ecs.EntityID, componentType ecs.ComponentType) Mutation {
	return Mutation{Kind: MutationRemoveComponent, Entity: entity, ComponentType: componentType}
}

// SetNetworked returns a mutation that toggles an entity's replication
// participation.
func SetNetworked(entity ecs.EntityID, networked bool) Mutation {
	return Mutation{Kind: MutationSetNetworked, Entity: entity, Networked: networked}
}

func applyMutation(m *entitymgr.Manager, mut Mutation) {
	switch mut.Kind {
	case MutationCreateEntity:
		m.CreateEntity()
	case MutationDestroyEntities:
		m.DeleteEntities(mut.Entities)
	case MutationReparent:
		m.SetParent(mut.Entity, mut.Parent)
	case MutationAddComponent:
		m.AddComponent(mut.Entity, mut.ComponentType)
	case MutationRemoveComponent:
		m.RemoveComponent(mut.Entity, mut.ComponentType)
	case MutationSetNetworked:
		m.SetNetworked(mut.Entity, mut.Networked)
	}
}
