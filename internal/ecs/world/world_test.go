package world

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/components"
	"ecsruntime/internal/ecs/config"
	"ecsruntime/internal/ecs/entitymgr"
	"ecsruntime/internal/ecs/query"
	"ecsruntime/internal/ecs/replication"
	"ecsruntime/internal/ecs/scheduler"
)

func testConfig() config.WorldConfig {
	return config.WorldConfig{MaxEntities: 100, FrameHistorySize: 8, LogLevel: "info"}
}

func TestNew(t *testing.T) {
	t.Run("TC001: a new world has an empty manager and a usable reflector", func(t *testing.T) {
		w := New(testConfig(), zerolog.Nop())
		assert.Equal(t, 0, w.Manager.EntityCount())
		types := components.RegisterAll(w.Reflector)
		assert.True(t, w.Reflector.IsRegistered(types.Transform))
	})
}

// createOnceSystem defers exactly one CreateEntity mutation the first time
// it runs, then does nothing on later ticks.
type createOnceSystem struct {
	fired bool
}

func (s *createOnceSystem) Name() string               { return "create-once" }
func (s *createOnceSystem) Reads() []ecs.ComponentType  { return nil }
func (s *createOnceSystem) Writes() []ecs.ComponentType { return nil }
func (s *createOnceSystem) Priority() ecs.Priority      { return 0 }
func (s *createOnceSystem) Update(ctx context.Context, m *entitymgr.Manager) ([]scheduler.Mutation, error) {
	if s.fired {
		return nil, nil
	}
	s.fired = true
	return []scheduler.Mutation{scheduler.CreateEntity()}, nil
}

func TestWorld_TickAdvancesFrameAndAppliesMutations(t *testing.T) {
	t.Run("TC002: a system's deferred create-entity mutation is applied within the tick that scheduled it", func(t *testing.T) {
		w := New(testConfig(), zerolog.Nop())
		w.RegisterSystem(&createOnceSystem{})

		frame, err := w.Tick(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 0, frame)
		assert.Equal(t, 1, w.Manager.EntityCount())

		frame2, err := w.Tick(context.Background())
		require.NoError(t, err)
		assert.EqualValues(t, 1, frame2)
		assert.Equal(t, 1, w.Manager.EntityCount())
	})
}

func TestWorld_SnapshotRoundTrip(t *testing.T) {
	t.Run("TC003: a networked entity's transform survives encode/decode into a second world", func(t *testing.T) {
		src := New(testConfig(), zerolog.Nop())
		srcTypes := components.RegisterAll(src.Reflector)

		e := src.Manager.CreateEntity()
		src.Manager.SetNetworked(e, true)
		cid := src.Manager.AddComponent(e, srcTypes.Transform)
		want := components.TransformComponent{
			Position: ecs.Vector2{X: 3, Y: 4},
			Rotation: 0,
			Scale:    ecs.Vector2{X: 1, Y: 1},
		}
		require.True(t, src.Manager.Arena(srcTypes.Transform).SetPayload(cid, components.EncodeTransform(want)))

		snap := src.Snapshot(0)
		wire := replication.EncodeFull(snap, src.Reflector)

		dst := New(testConfig(), zerolog.Nop())
		components.RegisterAll(dst.Reflector)

		decoded, ok := replication.DecodeFull(wire, dst.Reflector)
		require.True(t, ok)
		require.True(t, dst.ApplySnapshot(decoded))

		got, ok := dst.Manager.Component(e, srcTypes.Transform)
		require.True(t, ok)
		assert.Equal(t, want, components.DecodeTransform(got))
	})
}

func TestWorld_RegisterGroupInvalidatesOnComponentMutation(t *testing.T) {
	t.Run("TC004: adding a watched component type invalidates every group watching it", func(t *testing.T) {
		w := New(testConfig(), zerolog.Nop())
		types := components.RegisterAll(w.Reflector)

		g := query.NewGroupIndex(types.Transform)
		w.RegisterGroup(g, types.Transform)

		e := w.Manager.CreateEntity()
		require.Empty(t, g.Entries(w.Manager))

		w.Manager.AddComponent(e, types.Transform)
		w.invalidateGroups([]scheduler.Mutation{scheduler.AddComponent(e, types.Transform)})

		assert.Len(t, g.Entries(w.Manager), 1)
	})

	t.Run("TC005: registering a group under one type never ties it to another", func(t *testing.T) {
		w := New(testConfig(), zerolog.Nop())
		types := components.RegisterAll(w.Reflector)

		g := query.NewGroupIndex(types.Transform)
		w.RegisterGroup(g, types.Transform)

		assert.Empty(t, w.groups[types.Physics])
		assert.Len(t, w.groups[types.Transform], 1)
	})

	t.Run("TC006: destroying an entity invalidates every registered group, not just component mutations", func(t *testing.T) {
		w := New(testConfig(), zerolog.Nop())
		types := components.RegisterAll(w.Reflector)

		g := query.NewGroupIndex(types.Transform)
		w.RegisterGroup(g, types.Transform)

		e := w.Manager.CreateEntity()
		w.Manager.AddComponent(e, types.Transform)
		w.invalidateGroups([]scheduler.Mutation{scheduler.AddComponent(e, types.Transform)})
		require.Len(t, g.Entries(w.Manager), 1)

		w.Manager.DeleteEntities([]ecs.EntityID{e})
		w.invalidateGroups([]scheduler.Mutation{scheduler.DestroyEntities(e)})

		assert.Empty(t, g.Entries(w.Manager))
	})
}
