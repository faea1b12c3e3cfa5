package replication

import (
	"sort"

	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/codec"
	"ecsruntime/internal/ecs/reflect"
)

// Frame markers, per §6's wire grammar. These two words are fixed constants
// of this wire format; a decoder rejects a frame whose leading word is
// neither.
const (
	markerFull  uint32 = 0xF0110FFF
	markerDelta uint32 = 0xDE11A000
)

// encodeViewTables writes ViewTables per §6's grammar:
//
//	(n_types: u32) { type_name: c-string, n_views: u32, views: n_views * (begin:u32,end:u32) }
//	(n_entity_views: u32) entity_views: n_entity_views * (begin:u32,end:u32)
//
// Types are written in ascending ComponentType order.
func encodeViewTables(snap *Snapshot, r *reflect.Reflector, dst []byte) []byte {
	types := make([]ecs.ComponentType, 0, len(snap.ComponentViews))
	for t := range snap.ComponentViews {
		types = append(types, t)
	}
	sortTypes(types)

	dst = codec.PutUint32(dst, uint32(len(types)))
	for _, t := range types {
		entry, ok := r.Find(t)
		name := ""
		if ok {
			name = entry.Name
		}
		dst = putCString(dst, name)

		views := snap.ComponentViews[t]
		dst = codec.PutUint32(dst, uint32(len(views)))
		for _, v := range views {
			dst = codec.PutUint32(dst, v.Begin)
			dst = codec.PutUint32(dst, v.End)
		}
	}

	dst = codec.PutUint32(dst, uint32(len(snap.EntityViews)))
	for _, v := range snap.EntityViews {
		dst = codec.PutUint32(dst, v.Begin)
		dst = codec.PutUint32(dst, v.End)
	}
	return dst
}

func decodeViewTables(r *reflect.Reflector, src []byte) (componentViews map[ecs.ComponentType][]ByteRange, entityViews []ByteRange, rest []byte, ok bool) {
	numTypes, src, ok := codec.ReadUint32(src)
	if !ok {
		return nil, nil, src, false
	}
	componentViews = make(map[ecs.ComponentType][]ByteRange, numTypes)
	for i := uint32(0); i < numTypes; i++ {
		var name string
		name, src, ok = readCString(src)
		if !ok {
			return nil, nil, src, false
		}
		t, known := r.TypeByName(name)

		var numViews uint32
		numViews, src, ok = codec.ReadUint32(src)
		if !ok {
			return nil, nil, src, false
		}
		views := make([]ByteRange, 0, numViews)
		for j := uint32(0); j < numViews; j++ {
			var begin, end uint32
			begin, src, ok = codec.ReadUint32(src)
			if !ok {
				return nil, nil, src, false
			}
			end, src, ok = codec.ReadUint32(src)
			if !ok {
				return nil, nil, src, false
			}
			views = append(views, ByteRange{Begin: begin, End: end})
		}
		if known {
			componentViews[t] = views
		}
	}

	var numEntityViews uint32
	numEntityViews, src, ok = codec.ReadUint32(src)
	if !ok {
		return nil, nil, src, false
	}
	entityViews = make([]ByteRange, 0, numEntityViews)
	for i := uint32(0); i < numEntityViews; i++ {
		var begin, end uint32
		begin, src, ok = codec.ReadUint32(src)
		if !ok {
			return nil, nil, src, false
		}
		end, src, ok = codec.ReadUint32(src)
		if !ok {
			return nil, nil, src, false
		}
		entityViews = append(entityViews, ByteRange{Begin: begin, End: end})
	}

	return componentViews, entityViews, src, true
}

// EncodeFull writes a full-frame transmission: marker, frame index, view
// tables, blob length, blob — §6's "Body (FULL)".
func EncodeFull(snap *Snapshot, r *reflect.Reflector) []byte {
	out := codec.PutUint32(nil, markerFull)
	out = codec.PutUint64(out, snap.FrameIndex)
	out = encodeViewTables(snap, r, out)
	out = codec.PutUint32(out, uint32(len(snap.Blob)))
	out = append(out, snap.Blob...)
	return out
}

// DecodeFull reverses EncodeFull. ok is false on any malformed input,
// including a marker mismatch, per §7's "Malformed transmission" policy.
func DecodeFull(data []byte, r *reflect.Reflector) (snap *Snapshot, ok bool) {
	marker, body, ok := codec.ReadUint32(data)
	if !ok || marker != markerFull {
		return nil, false
	}
	frameIndex, body, ok := codec.ReadUint64(body)
	if !ok {
		return nil, false
	}
	componentViews, entityViews, body, ok := decodeViewTables(r, body)
	if !ok {
		return nil, false
	}
	blobLen, body, ok := codec.ReadUint32(body)
	if !ok || uint32(len(body)) < blobLen {
		return nil, false
	}
	blob := make([]byte, blobLen)
	copy(blob, body[:blobLen])

	return &Snapshot{
		FrameIndex:     frameIndex,
		ComponentViews: componentViews,
		EntityViews:    entityViews,
		Blob:           blob,
	}, true
}

// Delta record kinds. A record either introduces a value the baseline
// didn't have, drops one the baseline did, or carries a byte-level delta
// (§4.9) between the baseline's and the newest's payload for a value both
// hold.
const (
	recordAdded   byte = 0x01
	recordRemoved byte = 0x02
	recordChanged byte = 0x03
)

// maxCompressedPayload is the largest payload codec.Compress's 16-bit
// length header can describe (0xFFFF itself is its identical-input marker).
// A changed component payload longer than this is sent as a recordAdded
// record carrying the full payload instead.
const maxCompressedPayload = 0xFFFE

// EncodeDelta writes a delta-frame transmission against baseline: marker,
// frame index, previous frame index, then one delta record per component
// instance and one per networked entity, matched between the two snapshots
// by ComponentUniqueID and EntityID respectively. This is §4.7's literal
// description ("walk the two sorted component lists in parallel... emit a
// delta record whose body is the byte-wise delta between the two component
// payloads") rather than running the byte-level codec over the two
// snapshots' blobs whole: §9 bounds that codec's "current" length to 16
// bits, which the concatenated serialized state of every networked entity
// in a nontrivial world routinely exceeds, while a single component's or
// entity's own record essentially never does. Per-record chunking is what
// keeps every codec.Compress call within that bound.
func EncodeDelta(newest, baseline *Snapshot, r *reflect.Reflector) []byte {
	out := codec.PutUint32(nil, markerDelta)
	out = codec.PutUint64(out, newest.FrameIndex)
	out = codec.PutUint64(out, baseline.FrameIndex)
	out = encodeComponentDelta(newest, baseline, r, out)
	out = encodeEntityDelta(newest, baseline, out)
	return out
}

// DecodeDelta reverses EncodeDelta given the exact baseline Snapshot the
// encoder used. ok is false on a marker mismatch, a previous-frame-index
// mismatch against baseline, or any malformed record.
func DecodeDelta(data []byte, baseline *Snapshot, r *reflect.Reflector) (snap *Snapshot, ok bool) {
	marker, body, ok := codec.ReadUint32(data)
	if !ok || marker != markerDelta {
		return nil, false
	}
	frameIndex, body, ok := codec.ReadUint64(body)
	if !ok {
		return nil, false
	}
	prevFrameIndex, body, ok := codec.ReadUint64(body)
	if !ok || prevFrameIndex != baseline.FrameIndex {
		return nil, false
	}

	componentViews, blob, body, ok := decodeComponentDelta(baseline, r, body)
	if !ok {
		return nil, false
	}
	entityViews, blob, _, ok := decodeEntityDelta(baseline, blob, body)
	if !ok {
		return nil, false
	}

	return &Snapshot{
		FrameIndex:     frameIndex,
		ComponentViews: componentViews,
		EntityViews:    entityViews,
		Blob:           blob,
	}, true
}

// componentPayloadsByUnique indexes snap's records for component type t by
// ComponentUniqueID, stripping the unique-ID prefix BuildSnapshot writes
// ahead of every component's serialized payload so records can be diffed
// payload-to-payload.
func componentPayloadsByUnique(snap *Snapshot, t ecs.ComponentType) map[ecs.ComponentUniqueID][]byte {
	out := make(map[ecs.ComponentUniqueID][]byte)
	for _, rng := range snap.ComponentViews[t] {
		if int(rng.End) > len(snap.Blob) || rng.Begin > rng.End {
			continue
		}
		unique, payload, ok := codec.ReadUint64(snap.Blob[rng.Begin:rng.End])
		if !ok {
			continue
		}
		out[ecs.ComponentUniqueID(unique)] = payload
	}
	return out
}

// entityBodiesByID indexes snap's entity records by EntityID, stripping the
// EntityID prefix BuildSnapshot writes ahead of each entity's component
// reference list so records can be diffed body-to-body.
func entityBodiesByID(snap *Snapshot) map[ecs.EntityID][]byte {
	out := make(map[ecs.EntityID][]byte)
	for _, rng := range snap.EntityViews {
		if int(rng.End) > len(snap.Blob) || rng.Begin > rng.End {
			continue
		}
		id, body, ok := codec.ReadUint64(snap.Blob[rng.Begin:rng.End])
		if !ok {
			continue
		}
		out[ecs.EntityID(id)] = body
	}
	return out
}

func unionComponentTypes(a, b map[ecs.ComponentType][]ByteRange) []ecs.ComponentType {
	set := make(map[ecs.ComponentType]struct{}, len(a)+len(b))
	for t := range a {
		set[t] = struct{}{}
	}
	for t := range b {
		set[t] = struct{}{}
	}
	types := make([]ecs.ComponentType, 0, len(set))
	for t := range set {
		types = append(types, t)
	}
	sortTypes(types)
	return types
}

func unionUniqueIDs(a, b map[ecs.ComponentUniqueID][]byte) []ecs.ComponentUniqueID {
	set := make(map[ecs.ComponentUniqueID]struct{}, len(a)+len(b))
	for u := range a {
		set[u] = struct{}{}
	}
	for u := range b {
		set[u] = struct{}{}
	}
	out := make([]ecs.ComponentUniqueID, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func unionEntityIDs(a, b map[ecs.EntityID][]byte) []ecs.EntityID {
	set := make(map[ecs.EntityID]struct{}, len(a)+len(b))
	for id := range a {
		set[id] = struct{}{}
	}
	for id := range b {
		set[id] = struct{}{}
	}
	out := make([]ecs.EntityID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// encodeComponentDelta writes, per component type present in either
// snapshot, one record per ComponentUniqueID present in either snapshot's
// instance of that type: added (full payload), removed (bare), or changed
// (codec.Compress of the two payloads) — each diffed independently, so
// each codec.Compress call sees at most one component's worth of bytes. A
// payload longer than maxCompressedPayload is written as added even when
// the baseline holds it.
func encodeComponentDelta(newest, baseline *Snapshot, r *reflect.Reflector, dst []byte) []byte {
	types := unionComponentTypes(newest.ComponentViews, baseline.ComponentViews)
	dst = codec.PutUint32(dst, uint32(len(types)))

	for _, t := range types {
		entry, ok := r.Find(t)
		name := ""
		if ok {
			name = entry.Name
		}
		dst = putCString(dst, name)

		newPayloads := componentPayloadsByUnique(newest, t)
		basePayloads := componentPayloadsByUnique(baseline, t)
		uniques := unionUniqueIDs(newPayloads, basePayloads)

		dst = codec.PutUint32(dst, uint32(len(uniques)))
		for _, u := range uniques {
			newPayload, inNew := newPayloads[u]
			basePayload, inBase := basePayloads[u]
			dst = codec.PutUint64(dst, uint64(u))
			switch {
			case inNew && (!inBase || len(newPayload) > maxCompressedPayload):
				dst = append(dst, recordAdded)
				dst = codec.PutUint32(dst, uint32(len(newPayload)))
				dst = append(dst, newPayload...)
			case !inNew && inBase:
				dst = append(dst, recordRemoved)
			default:
				delta := codec.Compress(basePayload, newPayload)
				dst = append(dst, recordChanged)
				dst = codec.PutUint32(dst, uint32(len(delta)))
				dst = append(dst, delta...)
			}
		}
	}
	return dst
}

// decodeComponentDelta reverses encodeComponentDelta against baseline,
// rebuilding both the ComponentViews byte ranges and the blob bytes they
// point into exactly as BuildSnapshot would have written them (unique-ID
// prefix followed by serialized payload), so the rest of the replication
// pipeline (ApplySnapshot in particular) never has to know a frame arrived
// as a delta.
func decodeComponentDelta(baseline *Snapshot, r *reflect.Reflector, src []byte) (componentViews map[ecs.ComponentType][]ByteRange, blob []byte, rest []byte, ok bool) {
	numTypes, src, ok := codec.ReadUint32(src)
	if !ok {
		return nil, nil, src, false
	}
	componentViews = make(map[ecs.ComponentType][]ByteRange, numTypes)

	for i := uint32(0); i < numTypes; i++ {
		var name string
		name, src, ok = readCString(src)
		if !ok {
			return nil, nil, src, false
		}
		t, known := r.TypeByName(name)
		basePayloads := componentPayloadsByUnique(baseline, t)

		var numRecords uint32
		numRecords, src, ok = codec.ReadUint32(src)
		if !ok {
			return nil, nil, src, false
		}

		var views []ByteRange
		for j := uint32(0); j < numRecords; j++ {
			var unique uint64
			unique, src, ok = codec.ReadUint64(src)
			if !ok || len(src) == 0 {
				return nil, nil, src, false
			}
			kind := src[0]
			src = src[1:]

			switch kind {
			case recordAdded:
				var length uint32
				length, src, ok = codec.ReadUint32(src)
				if !ok || uint32(len(src)) < length {
					return nil, nil, src, false
				}
				payload := src[:length]
				src = src[length:]
				if known {
					begin := uint32(len(blob))
					blob = codec.PutUint64(blob, unique)
					blob = append(blob, payload...)
					views = append(views, ByteRange{Begin: begin, End: uint32(len(blob))})
				}
			case recordRemoved:
				// Nothing carried forward into the new blob.
			case recordChanged:
				var length uint32
				length, src, ok = codec.ReadUint32(src)
				if !ok || uint32(len(src)) < length {
					return nil, nil, src, false
				}
				deltaBytes := src[:length]
				src = src[length:]
				basePayload, hadBaseline := basePayloads[ecs.ComponentUniqueID(unique)]
				if !hadBaseline {
					return nil, nil, src, false
				}
				newPayload, _, decOK := codec.Decompress(basePayload, deltaBytes)
				if !decOK {
					return nil, nil, src, false
				}
				if known {
					begin := uint32(len(blob))
					blob = codec.PutUint64(blob, unique)
					blob = append(blob, newPayload...)
					views = append(views, ByteRange{Begin: begin, End: uint32(len(blob))})
				}
			default:
				return nil, nil, src, false
			}
		}
		if known {
			componentViews[t] = views
		}
	}

	return componentViews, blob, src, true
}

// encodeEntityDelta writes one record per EntityID present in either
// snapshot's networked entity set: added (full body), removed (bare), or
// changed (codec.Compress of the two bodies, where a body is the
// component-count-and-reference list BuildSnapshot writes per entity) —
// the entity-level analog of encodeComponentDelta, bounded the same way.
func encodeEntityDelta(newest, baseline *Snapshot, dst []byte) []byte {
	newBodies := entityBodiesByID(newest)
	baseBodies := entityBodiesByID(baseline)
	ids := unionEntityIDs(newBodies, baseBodies)

	dst = codec.PutUint32(dst, uint32(len(ids)))
	for _, id := range ids {
		newBody, inNew := newBodies[id]
		baseBody, inBase := baseBodies[id]
		dst = codec.PutUint64(dst, uint64(id))
		switch {
		case inNew && !inBase:
			dst = append(dst, recordAdded)
			dst = codec.PutUint32(dst, uint32(len(newBody)))
			dst = append(dst, newBody...)
		case !inNew && inBase:
			dst = append(dst, recordRemoved)
		default:
			delta := codec.Compress(baseBody, newBody)
			dst = append(dst, recordChanged)
			dst = codec.PutUint32(dst, uint32(len(delta)))
			dst = append(dst, delta...)
		}
	}
	return dst
}

// decodeEntityDelta reverses encodeEntityDelta against baseline, appending
// each reconstructed entity record (EntityID prefix plus body) onto blob,
// which decodeComponentDelta has already populated with this frame's
// component records, and returns the resulting EntityViews pointing into
// it.
func decodeEntityDelta(baseline *Snapshot, blob []byte, src []byte) (entityViews []ByteRange, outBlob []byte, rest []byte, ok bool) {
	baseBodies := entityBodiesByID(baseline)

	var numRecords uint32
	numRecords, src, ok = codec.ReadUint32(src)
	if !ok {
		return nil, blob, src, false
	}

	for i := uint32(0); i < numRecords; i++ {
		var idVal uint64
		idVal, src, ok = codec.ReadUint64(src)
		if !ok || len(src) == 0 {
			return nil, blob, src, false
		}
		kind := src[0]
		src = src[1:]

		switch kind {
		case recordAdded:
			var length uint32
			length, src, ok = codec.ReadUint32(src)
			if !ok || uint32(len(src)) < length {
				return nil, blob, src, false
			}
			body := src[:length]
			src = src[length:]
			begin := uint32(len(blob))
			blob = codec.PutUint64(blob, idVal)
			blob = append(blob, body...)
			entityViews = append(entityViews, ByteRange{Begin: begin, End: uint32(len(blob))})
		case recordRemoved:
			// Entity no longer networked; nothing carried forward.
		case recordChanged:
			var length uint32
			length, src, ok = codec.ReadUint32(src)
			if !ok || uint32(len(src)) < length {
				return nil, blob, src, false
			}
			deltaBytes := src[:length]
			src = src[length:]
			baseBody, hadBaseline := baseBodies[ecs.EntityID(idVal)]
			if !hadBaseline {
				return nil, blob, src, false
			}
			newBody, _, decOK := codec.Decompress(baseBody, deltaBytes)
			if !decOK {
				return nil, blob, src, false
			}
			begin := uint32(len(blob))
			blob = codec.PutUint64(blob, idVal)
			blob = append(blob, newBody...)
			entityViews = append(entityViews, ByteRange{Begin: begin, End: uint32(len(blob))})
		default:
			return nil, blob, src, false
		}
	}

	return entityViews, blob, src, true
}

func sortTypes(types []ecs.ComponentType) {
	for i := 1; i < len(types); i++ {
		for j := i; j > 0 && types[j] < types[j-1]; j-- {
			types[j], types[j-1] = types[j-1], types[j]
		}
	}
}

func putCString(dst []byte, s string) []byte {
	dst = append(dst, s...)
	return append(dst, 0)
}

func readCString(src []byte) (string, []byte, bool) {
	for i, b := range src {
		if b == 0 {
			return string(src[:i]), src[i+1:], true
		}
	}
	return "", src, false
}
