// Package scheduler bands registered systems into conflict-free groups and
// runs each band's systems concurrently, generalizing the teacher's
// SystemManagerImpl (internal/core/ecs/system_manager.go), which tracks
// registration, priority and explicit dependency edges but never actually
// computes a parallel execution plan from them — parallelGroups is written
// to but nothing ever reads it to run systems concurrently. The conflict-
// band computation here is new, grounded on spec §4.5's admission rule:
// two systems may run in the same band only if neither writes a type the
// other reads or writes.
package scheduler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/entitymgr"
)

// System is one scheduled unit of work. Reads/Writes declare the component
// types it touches so the scheduler can compute conflict-free bands; they
// must be stable for the system's lifetime.
type System interface {
	Name() string
	Reads() []ecs.ComponentType
	Writes() []ecs.ComponentType
	Priority() ecs.Priority
	Update(ctx context.Context, m *entitymgr.Manager) ([]Mutation, error)
}

// Scheduler owns the registered systems and the band plan computed from
// their declared read/write sets.
type Scheduler struct {
	systems     []System
	bandsValid  bool
	bands       [][]System
	onMutations func([]Mutation)
}

// New creates an empty scheduler. onMutations, if non-nil, is called once
// per tick after all deferred mutations for that tick have been applied —
// the World uses this to invalidate group indices whose component types
// were touched.
func New(onMutations func([]Mutation)) *Scheduler {
	return &Scheduler{onMutations: onMutations}
}

// Register adds a system to the scheduler, registration order becoming
// part of the tie-break used both for band assignment and for the order
// deferred mutations are applied in. Registering invalidates the band plan.
func (s *Scheduler) Register(sys System) {
	s.systems = append(s.systems, sys)
	s.bandsValid = false
}

// Tick runs one full pass over every band: each band's systems run
// concurrently (or inline, if the band holds exactly one system), then
// every mutation collected from that band is applied serially, in the
// band's system order (priority, then registration order), before the
// next band starts. The first error from
// any system's Update aborts its band (errgroup semantics) and the whole
// tick; already-applied mutations from prior bands are not rolled back.
func (s *Scheduler) Tick(ctx context.Context, m *entitymgr.Manager) error {
	if !s.bandsValid {
		s.rebuildBands()
	}

	var allMutations []Mutation
	for _, band := range s.bands {
		mutations, err := runBand(ctx, band, m)
		if err != nil {
			return err
		}
		for _, mut := range mutations {
			applyMutation(m, mut)
		}
		allMutations = append(allMutations, mutations...)
	}

	if s.onMutations != nil && len(allMutations) > 0 {
		s.onMutations(allMutations)
	}
	return nil
}

// runBand executes every system in a band, returning their mutations
// concatenated in band order regardless of completion order —
// single-system bands run inline and skip errgroup entirely (§4.5's
// "Single-system bands" rule), since spinning up a goroutine to run exactly
// one system buys nothing.
func runBand(ctx context.Context, band []System, m *entitymgr.Manager) ([]Mutation, error) {
	if len(band) == 1 {
		return band[0].Update(ctx, m)
	}

	results := make([][]Mutation, len(band))
	g, gctx := errgroup.WithContext(ctx)
	for i, sys := range band {
		i, sys := i, sys
		g.Go(func() error {
			mutations, err := sys.Update(gctx, m)
			if err != nil {
				return err
			}
			results[i] = mutations
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []Mutation
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged, nil
}

// rebuildBands greedily bins systems into bands, highest priority first
// and in registration order among equal priorities: a system joins the
// latest band if that band's accumulated read/write sets don't conflict
// with its own, or starts a new band otherwise.
func (s *Scheduler) rebuildBands() {
	ordered := make([]System, len(s.systems))
	copy(ordered, s.systems)
	stableSortByPriority(ordered)

	var bands [][]System
	var bandReads, bandWrites []map[ecs.ComponentType]struct{}

	for _, sys := range ordered {
		reads := toSet(sys.Reads())
		writes := toSet(sys.Writes())

		// Only the most recent band is ever a candidate: a system must run
		// no earlier, relative to registration order, than anything it was
		// blocked from joining, so once it misses the latest band it also
		// misses every band before that one.
		last := len(bands) - 1
		if last >= 0 && !conflicts(reads, writes, bandReads[last], bandWrites[last]) {
			bands[last] = append(bands[last], sys)
			mergeInto(bandReads[last], reads)
			mergeInto(bandWrites[last], writes)
		} else {
			bands = append(bands, []System{sys})
			bandReads = append(bandReads, reads)
			bandWrites = append(bandWrites, writes)
		}
	}

	s.bands = bands
	s.bandsValid = true
}

func conflicts(reads, writes, otherReads, otherWrites map[ecs.ComponentType]struct{}) bool {
	for t := range writes {
		if _, ok := otherReads[t]; ok {
			return true
		}
		if _, ok := otherWrites[t]; ok {
			return true
		}
	}
	for t := range reads {
		if _, ok := otherWrites[t]; ok {
			return true
		}
	}
	return false
}

func toSet(types []ecs.ComponentType) map[ecs.ComponentType]struct{} {
	set := make(map[ecs.ComponentType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

func mergeInto(dst, src map[ecs.ComponentType]struct{}) {
	for t := range src {
		dst[t] = struct{}{}
	}
}

// stableSortByPriority orders systems highest-priority first while
// preserving registration order among equal priorities (insertion sort is
// fine here — system counts are small, tens at most, and this runs once
// per band rebuild, not per tick).
func stableSortByPriority(systems []System) {
	for i := 1; i < len(systems); i++ {
		for j := i; j > 0 && systems[j].Priority() > systems[j-1].Priority(); j-- {
			systems[j], systems[j-1] = systems[j-1], systems[j]
		}
	}
}
