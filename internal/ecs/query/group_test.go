package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/entitymgr"
	"ecsruntime/internal/ecs/reflect"
)

func newWorld(t *testing.T) (*entitymgr.Manager, ecs.ComponentType, ecs.ComponentType) {
	t.Helper()
	r := reflect.New()
	transform := r.RegisterNormal("group_test_transform", func() []byte { return []byte{0} }, nil, nil)
	health := r.RegisterNormal("group_test_health", func() []byte { return []byte{100} }, nil, nil)
	return entitymgr.New(r, false), transform, health
}

func TestGroupIndex_Entries(t *testing.T) {
	t.Run("TC001: only entities with every required type appear", func(t *testing.T) {
		m, transform, health := newWorld(t)
		withBoth := m.CreateEntity()
		m.AddComponent(withBoth, transform)
		m.AddComponent(withBoth, health)

		onlyTransform := m.CreateEntity()
		m.AddComponent(onlyTransform, transform)

		g := NewGroupIndex(transform, health)
		entries := g.Entries(m)

		require.Len(t, entries, 1)
		assert.Equal(t, withBoth, entries[0].Entity)
	})

	t.Run("TC002: entries are ordered by the primary arena's storage order", func(t *testing.T) {
		m, transform, health := newWorld(t)
		first := m.CreateEntity()
		m.AddComponent(first, transform)
		m.AddComponent(first, health)

		second := m.CreateEntity()
		m.AddComponent(second, transform)
		m.AddComponent(second, health)

		g := NewGroupIndex(transform, health)
		entries := g.Entries(m)

		require.Len(t, entries, 2)
		assert.Equal(t, first, entries[0].Entity)
		assert.Equal(t, second, entries[1].Entity)
	})

	t.Run("TC003: stale entries are not reflected until Invalidate", func(t *testing.T) {
		m, transform, health := newWorld(t)
		g := NewGroupIndex(transform, health)
		assert.Empty(t, g.Entries(m))

		e := m.CreateEntity()
		m.AddComponent(e, transform)
		m.AddComponent(e, health)

		assert.Empty(t, g.Entries(m), "cached result should not change without Invalidate")

		g.Invalidate()
		assert.Len(t, g.Entries(m), 1)
	})

	t.Run("TC004: an unused primary type yields no entries without allocating its arena", func(t *testing.T) {
		m, transform, health := newWorld(t)
		_ = health
		g := NewGroupIndex(transform)
		assert.Empty(t, g.Entries(m))
		_, exists := m.TryArena(transform)
		assert.False(t, exists)
	})
}
