// Package replication implements the replication encoder and decoder (C7,
// C8): producing a canonical, order-deterministic serialization of the
// networked portion of a world ("Snapshot", the Go form of
// original_source's SerializedEntitiesAndComponents) and transmitting it to
// clients as either a full frame or a delta against a frame the client is
// known to hold, grounded on
// original_source/Conductor/src/network/ECSTransmitter.cpp and
// ECSReceiver.cpp.
package replication

import (
	"sort"

	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/codec"
	"ecsruntime/internal/ecs/entitymgr"
	"ecsruntime/internal/ecs/reflect"
)

// ByteRange denotes the half-open interval [Begin, End) within a Snapshot's
// Blob holding exactly one component or entity record in its canonical wire
// form.
type ByteRange struct {
	Begin uint32
	End   uint32
}

// Snapshot is the Go form of SerializedEntitiesAndComponents: a single byte
// blob plus, per component type, a sorted (by unique-ID) sequence of
// byte-ranges into it, and a sorted sequence of byte-ranges for entity
// records. Every component record begins with its ComponentUniqueID (u64);
// every entity record begins with its EntityID (u64).
type Snapshot struct {
	FrameIndex     uint64
	ComponentViews map[ecs.ComponentType][]ByteRange
	EntityViews    []ByteRange
	Blob           []byte
}

// BuildSnapshot walks every networked entity in m and, per entity, every
// component it carries, invoking the reflector's Serialize function and
// recording the resulting byte-range. Component lists (one per type) and
// the entity list are both written sorted ascending by unique-ID, per
// §4.7; the delta encoder matches records between two snapshots by unique
// ID and EntityID rather than by position. Cost is linear in the live
// networked state.
func BuildSnapshot(m *entitymgr.Manager, r *reflect.Reflector, frameIndex uint64) *Snapshot {
	snap := &Snapshot{
		FrameIndex:     frameIndex,
		ComponentViews: make(map[ecs.ComponentType][]ByteRange),
	}

	entityIDs := m.NetworkedEntityIDs()

	type owned struct {
		cid ecs.ComponentID
		eid ecs.EntityID
	}
	byType := make(map[ecs.ComponentType][]owned)
	for _, eid := range entityIDs {
		e, ok := m.Entity(eid)
		if !ok {
			continue
		}
		for _, cid := range e.ComponentIDs {
			byType[cid.Type] = append(byType[cid.Type], owned{cid: cid, eid: eid})
		}
	}

	types := make([]ecs.ComponentType, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, t := range types {
		ids := byType[t]
		sort.Slice(ids, func(i, j int) bool { return ids[i].cid.Less(ids[j].cid) })

		entry, ok := r.Find(t)
		if !ok {
			continue
		}

		views := make([]ByteRange, 0, len(ids))
		for _, o := range ids {
			payload, ok := m.Component(o.eid, t)
			if !ok {
				continue
			}
			begin := uint32(len(snap.Blob))
			snap.Blob = codec.PutUint64(snap.Blob, uint64(o.cid.Unique))
			snap.Blob = entry.Serialize(payload, snap.Blob)
			views = append(views, ByteRange{Begin: begin, End: uint32(len(snap.Blob))})
		}
		snap.ComponentViews[t] = views
	}

	for _, eid := range entityIDs {
		e, _ := m.Entity(eid)
		begin := uint32(len(snap.Blob))
		snap.Blob = codec.PutUint64(snap.Blob, uint64(eid))

		ids := append([]ecs.ComponentID(nil), e.ComponentIDs...)
		sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })

		snap.Blob = codec.PutUint32(snap.Blob, uint32(len(ids)))
		for _, cid := range ids {
			snap.Blob = codec.PutUint32(snap.Blob, uint32(cid.Type))
			snap.Blob = codec.PutUint64(snap.Blob, uint64(cid.Unique))
		}
		snap.EntityViews = append(snap.EntityViews, ByteRange{Begin: begin, End: uint32(len(snap.Blob))})
	}

	return snap
}

// componentRecord decodes one component record (unique-ID prefix plus the
// wire payload the reflector understands) and returns the ComponentID and
// deserialized payload.
func componentRecord(t ecs.ComponentType, raw []byte, r *reflect.Reflector) (ecs.ComponentID, []byte, bool) {
	unique, rest, ok := codec.ReadUint64(raw)
	if !ok {
		return ecs.InvalidComponentID, nil, false
	}
	entry, ok := r.Find(t)
	if !ok {
		return ecs.InvalidComponentID, nil, false
	}
	payload, _, err := entry.Deserialize(rest)
	if err != nil {
		return ecs.InvalidComponentID, nil, false
	}
	return ecs.ComponentID{Type: t, Unique: ecs.ComponentUniqueID(unique)}, payload, true
}

// entityRecord decodes one entity record: its EntityID followed by the list
// of (ComponentType, ComponentUniqueID) pairs it carries.
func entityRecord(raw []byte) (ecs.EntityID, []ecs.ComponentID, bool) {
	idVal, rest, ok := codec.ReadUint64(raw)
	if !ok {
		return ecs.InvalidEntityID, nil, false
	}
	n, rest, ok := codec.ReadUint32(rest)
	if !ok {
		return ecs.InvalidEntityID, nil, false
	}
	refs := make([]ecs.ComponentID, 0, n)
	for i := uint32(0); i < n; i++ {
		var typ uint32
		var unique uint64
		typ, rest, ok = codec.ReadUint32(rest)
		if !ok {
			return ecs.InvalidEntityID, nil, false
		}
		unique, rest, ok = codec.ReadUint64(rest)
		if !ok {
			return ecs.InvalidEntityID, nil, false
		}
		refs = append(refs, ecs.ComponentID{Type: ecs.ComponentType(typ), Unique: ecs.ComponentUniqueID(unique)})
	}
	return ecs.EntityID(idVal), refs, true
}

// ApplySnapshot overwrites m's networked state to exactly match snap: every
// networked entity m currently holds but snap does not is deleted, every
// entity and component snap names is created or updated, and any component
// an existing entity no longer carries is removed. This is how the
// receiving side of §3's Lifecycle note ("mutated... through
// apply_delta_transmission... by the receiving thread") takes effect —
// Decoder itself only reconstructs Snapshots; a caller owning the live
// Manager applies them.
func ApplySnapshot(snap *Snapshot, m *entitymgr.Manager, r *reflect.Reflector) bool {
	componentsByID := make(map[ecs.ComponentID][]byte)
	for t, views := range snap.ComponentViews {
		for _, rng := range views {
			if int(rng.End) > len(snap.Blob) || rng.Begin > rng.End {
				return false
			}
			cid, payload, ok := componentRecord(t, snap.Blob[rng.Begin:rng.End], r)
			if !ok {
				return false
			}
			componentsByID[cid] = payload
		}
	}

	seen := make(map[ecs.EntityID]struct{}, len(snap.EntityViews))
	for _, rng := range snap.EntityViews {
		if int(rng.End) > len(snap.Blob) || rng.Begin > rng.End {
			return false
		}
		eid, refs, ok := entityRecord(snap.Blob[rng.Begin:rng.End])
		if !ok {
			return false
		}
		seen[eid] = struct{}{}

		m.ApplyEntity(eid, true)

		wanted := make(map[ecs.ComponentType]struct{}, len(refs))
		for _, cid := range refs {
			wanted[cid.Type] = struct{}{}
			payload, ok := componentsByID[cid]
			if !ok {
				return false
			}
			m.ApplyComponent(eid, cid, payload)
		}

		if e, ok := m.Entity(eid); ok {
			for _, existing := range append([]ecs.ComponentID(nil), e.ComponentIDs...) {
				if _, ok := wanted[existing.Type]; !ok {
					m.RemoveComponentByID(existing)
				}
			}
		}
	}

	var stale []ecs.EntityID
	for _, eid := range m.NetworkedEntityIDs() {
		if _, ok := seen[eid]; !ok {
			stale = append(stale, eid)
		}
	}
	if len(stale) > 0 {
		m.DeleteEntities(stale)
	}

	return true
}
