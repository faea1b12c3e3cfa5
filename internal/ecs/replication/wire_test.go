package replication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/entitymgr"
	"ecsruntime/internal/ecs/reflect"
)

func newBlobReflector(t *testing.T, size int) (*reflect.Reflector, ecs.ComponentType) {
	t.Helper()
	r := reflect.New()
	typ := r.RegisterMemoryImaged("Blob", size)
	return r, typ
}

func fillBlob(size int, b byte) []byte {
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = b
	}
	return payload
}

func TestEncodeDeltaDecodeDelta_ChunksPerComponent(t *testing.T) {
	t.Run("TC001: a single component payload past the 16-bit codec bound still round trips", func(t *testing.T) {
		const size = 70000 // exceeds the byte-delta codec's 16-bit length header
		r, blobType := newBlobReflector(t, size)
		m := entitymgr.New(r, true)

		e1 := m.CreateEntity()
		m.SetNetworked(e1, true)
		c1 := m.AddComponent(e1, blobType)
		require.True(t, m.Arena(blobType).SetPayload(c1, fillBlob(size, 0xAA)))

		baseline := BuildSnapshot(m, r, 0)

		mutated := fillBlob(size, 0xAA)
		mutated[size-1] = 0xBB
		require.True(t, m.Arena(blobType).SetPayload(c1, mutated))
		newest := BuildSnapshot(m, r, 1)

		deltaBytes := EncodeDelta(newest, baseline, r)
		decoded, ok := DecodeDelta(deltaBytes, baseline, r)
		require.True(t, ok)

		receiver := entitymgr.New(r, false)
		require.True(t, ApplySnapshot(baseline, receiver, r))
		require.True(t, ApplySnapshot(decoded, receiver, r))

		payload, ok := receiver.Component(e1, blobType)
		require.True(t, ok)
		assert.Equal(t, mutated, payload)
	})

	t.Run("TC002: an entity networked only in the newest snapshot is added on delta apply", func(t *testing.T) {
		r, transformType := newTransformReflector(t)
		m := entitymgr.New(r, true)

		e1 := m.CreateEntity()
		m.SetNetworked(e1, true)
		m.AddComponent(e1, transformType)
		baseline := BuildSnapshot(m, r, 0)

		e2 := m.CreateEntity()
		m.SetNetworked(e2, true)
		c2 := m.AddComponent(e2, transformType)
		require.True(t, m.Arena(transformType).SetPayload(c2, encodeTransform(4.5)))
		newest := BuildSnapshot(m, r, 1)

		deltaBytes := EncodeDelta(newest, baseline, r)
		decoded, ok := DecodeDelta(deltaBytes, baseline, r)
		require.True(t, ok)

		receiver := entitymgr.New(r, false)
		require.True(t, ApplySnapshot(baseline, receiver, r))
		require.True(t, ApplySnapshot(decoded, receiver, r))

		payload, ok := receiver.Component(e2, transformType)
		require.True(t, ok)
		assert.Equal(t, 4.5, decodeTransform(payload))
	})

	t.Run("TC003: an entity dropped from the newest snapshot is removed on delta apply", func(t *testing.T) {
		r, transformType := newTransformReflector(t)
		m := entitymgr.New(r, true)

		e1 := m.CreateEntity()
		m.SetNetworked(e1, true)
		m.AddComponent(e1, transformType)
		e2 := m.CreateEntity()
		m.SetNetworked(e2, true)
		m.AddComponent(e2, transformType)
		baseline := BuildSnapshot(m, r, 0)

		m.DeleteEntities([]ecs.EntityID{e2})
		newest := BuildSnapshot(m, r, 1)

		deltaBytes := EncodeDelta(newest, baseline, r)
		decoded, ok := DecodeDelta(deltaBytes, baseline, r)
		require.True(t, ok)

		receiver := entitymgr.New(r, false)
		require.True(t, ApplySnapshot(baseline, receiver, r))
		require.True(t, ApplySnapshot(decoded, receiver, r))

		assert.True(t, receiver.IsValid(e1))
		assert.False(t, receiver.IsValid(e2))
	})
}
