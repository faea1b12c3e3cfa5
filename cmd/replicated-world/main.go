// Command replicated-world is a minimal demo binary proving the ecs
// runtime composes end to end: it builds a World, registers the demo
// component set, runs a few ticks, and round-trips a snapshot of the
// result through the replication codec into a second World. It is a
// thin wiring exercise, not a game, the same way the teacher's
// cmd/game/main.go was a thin wrapper around internal/core.Game.
package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/components"
	"ecsruntime/internal/ecs/config"
	"ecsruntime/internal/ecs/entitymgr"
	"ecsruntime/internal/ecs/query"
	"ecsruntime/internal/ecs/replication"
	"ecsruntime/internal/ecs/scheduler"
	"ecsruntime/internal/ecs/world"
)

const tickSeconds = 1.0 / 60.0

// gravitySystem integrates every entity carrying both Transform and
// Physics, applying the physics component's own Integrate step and folding
// the resulting velocity into position. It writes Transform and Physics
// and reads neither beyond what it writes, so on its own it always lands
// in a single-system band.
type gravitySystem struct {
	types components.Types
	group *query.GroupIndex
}

func newGravitySystem(types components.Types) *gravitySystem {
	return &gravitySystem{
		types: types,
		group: query.NewGroupIndex(types.Physics, types.Transform),
	}
}

func (s *gravitySystem) Name() string { return "gravity" }
func (s *gravitySystem) Reads() []ecs.ComponentType {
	return nil
}
func (s *gravitySystem) Writes() []ecs.ComponentType {
	return []ecs.ComponentType{s.types.Physics, s.types.Transform}
}
func (s *gravitySystem) Priority() ecs.Priority { return 0 }

func (s *gravitySystem) Update(ctx context.Context, m *entitymgr.Manager) ([]scheduler.Mutation, error) {
	for _, tuple := range s.group.Entries(m) {
		physicsID, transformID := tuple.Components[0], tuple.Components[1]

		physicsArena := m.Arena(s.types.Physics)
		transformArena := m.Arena(s.types.Transform)

		rawPhysics, ok := physicsArena.Get(physicsID)
		if !ok {
			continue
		}
		rawTransform, ok := transformArena.Get(transformID)
		if !ok {
			continue
		}

		physics := components.DecodePhysics(rawPhysics)
		if physics.Gravity {
			physics.Acceleration.Y -= 9.8
		}
		physics = physics.Integrate(tickSeconds)

		transform := components.DecodeTransform(rawTransform)
		transform.Position.X += physics.Velocity.X * tickSeconds
		transform.Position.Y += physics.Velocity.Y * tickSeconds

		physicsArena.SetPayload(physicsID, components.EncodePhysics(physics))
		transformArena.SetPayload(transformID, components.EncodeTransform(transform))
	}
	return nil, nil
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	cfgPath := "world.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg := config.LoadWorldConfig(cfgPath)
	logger = logger.Level(cfg.ZerologLevel())

	w := world.New(cfg, logger)
	types := components.RegisterAll(w.Reflector)
	gravity := newGravitySystem(types)
	w.RegisterSystem(gravity)
	w.RegisterGroup(gravity.group, types.Physics, types.Transform)

	e := w.Manager.CreateEntity()
	w.Manager.SetNetworked(e, true)
	transformID := w.Manager.AddComponent(e, types.Transform)
	w.Manager.Arena(types.Transform).SetPayload(transformID, components.EncodeTransform(components.TransformComponent{
		Position: ecs.Vector2{X: 0, Y: 100},
		Scale:    ecs.Vector2{X: 1, Y: 1},
	}))
	physicsID := w.Manager.AddComponent(e, types.Physics)
	w.Manager.Arena(types.Physics).SetPayload(physicsID, components.EncodePhysics(components.PhysicsComponent{
		Gravity: true,
	}))

	ctx := context.Background()
	var frame uint64
	for i := 0; i < 5; i++ {
		f, err := w.Tick(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("tick failed")
		}
		frame = f
		logger.Info().Uint64("frame", frame).Int("entities", w.Manager.EntityCount()).Msg("tick complete")
	}

	snap := w.Snapshot(frame)
	wire := replication.EncodeFull(snap, w.Reflector)
	logger.Info().Int("bytes", len(wire)).Msg("encoded full snapshot")

	receiver := world.New(cfg, logger)
	components.RegisterAll(receiver.Reflector)

	decoded, ok := replication.DecodeFull(wire, receiver.Reflector)
	if !ok {
		logger.Fatal().Msg("failed to decode snapshot")
	}
	if !receiver.ApplySnapshot(decoded) {
		logger.Fatal().Msg("failed to apply snapshot")
	}

	payload, ok := receiver.Manager.Component(e, types.Transform)
	if !ok {
		logger.Fatal().Msg("receiver missing transform after apply")
	}
	t := components.DecodeTransform(payload)
	logger.Info().Float64("x", t.Position.X).Float64("y", t.Position.Y).Msg("round-tripped transform")
}
