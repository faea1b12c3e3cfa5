// Package world composes entitymgr, scheduler and replication into
// one runnable core, the generalization of the teacher's internal/core.Game
// (internal/core/game.go). Game wraps one ebiten window's
// Update/Draw/Layout loop around a single hardcoded scene; World wraps one
// simulation's entity manager, system scheduler and replication
// encoder/decoder with no rendering concern at all, and is sized and
// configured from a loaded config.WorldConfig instead of being built empty.
package world

import (
	"context"

	"github.com/rs/zerolog"

	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/config"
	"ecsruntime/internal/ecs/entitymgr"
	"ecsruntime/internal/ecs/query"
	"ecsruntime/internal/ecs/reflect"
	"ecsruntime/internal/ecs/replication"
	"ecsruntime/internal/ecs/scheduler"
)

// World owns one simulation's full runtime: entity/component storage (C3,
// C1, via entitymgr), the reflector components register against (C2), the
// system scheduler (C5), and the replication encoder/decoder pair (C7, C8)
// a host uses to publish and ingest snapshots. It is the composition root
// for every ecs subpackage; nothing outside cmd/ should need to reach into
// entitymgr or scheduler directly.
type World struct {
	Config    config.WorldConfig
	Reflector *reflect.Reflector
	Manager   *entitymgr.Manager
	Scheduler *scheduler.Scheduler
	Encoder   *replication.Encoder
	Decoder   *replication.Decoder

	logger zerolog.Logger
	groups map[ecs.ComponentType][]*query.GroupIndex
	frame  uint64
}

// New creates a World ready to have components registered on its Reflector
// and systems registered on its Scheduler. Its entity manager always runs
// in transmitting mode: a World that never calls Tick or never has any
// networked entity simply never has non-empty churn to ship, so there is
// no separate non-replicating mode to configure.
func New(cfg config.WorldConfig, logger zerolog.Logger) *World {
	r := reflect.New()
	w := &World{
		Config:    cfg,
		Reflector: r,
		Manager:   entitymgr.New(r, true),
		Encoder:   replication.NewEncoder(r, cfg.FrameHistorySize, logger),
		Decoder:   replication.NewDecoder(r, cfg.FrameHistorySize, logger),
		logger:    logger,
		groups:    make(map[ecs.ComponentType][]*query.GroupIndex),
	}
	w.Scheduler = scheduler.New(w.invalidateGroups)
	return w
}

// RegisterSystem adds sys to the scheduler's band plan, to take effect
// starting with the next Tick.
func (w *World) RegisterSystem(sys scheduler.System) {
	w.Scheduler.Register(sys)
}

// RegisterGroup ties g's invalidation to the given component types: any
// tick whose applied mutations add or remove a component of one of these
// types calls g.Invalidate(), so the next Entries call on g rebuilds rather
// than returning a stale tuple list. A GroupIndex never registered here is
// never invalidated by the World: after its first Entries call it keeps
// returning the same tuples until its owner calls Invalidate.
func (w *World) RegisterGroup(g *query.GroupIndex, watched ...ecs.ComponentType) {
	for _, t := range watched {
		w.groups[t] = append(w.groups[t], g)
	}
}

// invalidateGroups is the scheduler's onMutations callback. Component
// add/remove mutations touch exactly the type they name. Entity lifecycle
// mutations are coarser: MutationDestroyEntities drops every component the
// destroyed entities carried from its arena (entitymgr.Manager.deleteOne)
// without naming which types those were here, and MutationCreateEntity's
// entity can acquire any component in a later mutation within the same
// tick, so both invalidate every registered group rather than trying to
// track which types they could have touched.
func (w *World) invalidateGroups(mutations []scheduler.Mutation) {
	touched := make(map[ecs.ComponentType]struct{})
	invalidateAll := false
	for _, mut := range mutations {
		switch mut.Kind {
		case scheduler.MutationAddComponent, scheduler.MutationRemoveComponent:
			touched[mut.ComponentType] = struct{}{}
		case scheduler.MutationDestroyEntities, scheduler.MutationCreateEntity:
			invalidateAll = true
		}
	}

	if invalidateAll {
		for _, groups := range w.groups {
			for _, g := range groups {
				g.Invalidate()
			}
		}
		return
	}

	for t := range touched {
		for _, g := range w.groups[t] {
			g.Invalidate()
		}
	}
}

// Tick runs one scheduler pass over every registered system, then builds
// and stores a replication frame from whatever is now networked and clears
// the manager's per-tick churn buffers, mirroring the simulate-then-
// snapshot order original_source's server loop follows. The returned frame
// index is stable even for a World with no networked entities, so a caller
// can always correlate a tick with the frame it produced.
func (w *World) Tick(ctx context.Context) (uint64, error) {
	if err := w.Scheduler.Tick(ctx, w.Manager); err != nil {
		return w.frame, err
	}

	w.frame = w.Encoder.BuildAndStoreFrame(w.Manager)
	w.Manager.ClearTransmissionBuffers()
	return w.frame, nil
}

// Snapshot builds a fresh snapshot of the world's current networked state
// under frameIndex, independent of whatever the encoder's own frame history
// holds — a demo binary round-tripping one frame through the codec doesn't
// need a full Encoder/Decoder client session to do it.
func (w *World) Snapshot(frameIndex uint64) *replication.Snapshot {
	return replication.BuildSnapshot(w.Manager, w.Reflector, frameIndex)
}

// ApplySnapshot overwrites the world's networked state to match snap,
// delegating to replication.ApplySnapshot against this World's own manager
// and reflector.
func (w *World) ApplySnapshot(snap *replication.Snapshot) bool {
	return replication.ApplySnapshot(snap, w.Manager, w.Reflector)
}
