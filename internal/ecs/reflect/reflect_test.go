package reflect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReflector_RegisterNormal(t *testing.T) {
	t.Run("TC001: register assigns a stable, non-zero type", func(t *testing.T) {
		r := New()
		typ := r.RegisterNormal("health", func() []byte { return make([]byte, 4) }, nil, nil)
		assert.NotZero(t, typ)
		again, ok := r.TypeByName("health")
		require.True(t, ok)
		assert.Equal(t, typ, again)
	})

	t.Run("TC002: double registration of the same name is fatal", func(t *testing.T) {
		r := New()
		r.RegisterNormal("health", func() []byte { return nil }, nil, nil)
		assert.Panics(t, func() {
			r.RegisterNormal("health", func() []byte { return nil }, nil, nil)
		})
	})

	t.Run("TC003: Find on an unregistered type reports not found", func(t *testing.T) {
		r := New()
		_, ok := r.Find(0xdeadbeef)
		assert.False(t, ok)
	})

	t.Run("TC004: MustFind on an unregistered type is fatal", func(t *testing.T) {
		r := New()
		assert.Panics(t, func() {
			r.MustFind(0xdeadbeef)
		})
	})
}

func TestReflector_RegisterTag(t *testing.T) {
	t.Run("TC005: tag components construct an empty payload", func(t *testing.T) {
		r := New()
		typ := r.RegisterTag("stunned")
		e := r.MustFind(typ)
		assert.Equal(t, Tag, e.Binding)
		assert.Empty(t, e.Construct())
	})
}

func TestReflector_RegisterMemoryImaged(t *testing.T) {
	t.Run("TC006: round trips a fixed-size payload via raw copy", func(t *testing.T) {
		r := New()
		typ := r.RegisterMemoryImaged("position", 8)
		e := r.MustFind(typ)

		payload := e.Construct()
		require.Len(t, payload, 8)
		for i := range payload {
			payload[i] = byte(i)
		}

		wire := e.Serialize(payload, nil)
		require.Len(t, wire, 8)

		decoded, rest, err := e.Deserialize(wire)
		require.NoError(t, err)
		assert.Empty(t, rest)
		assert.Equal(t, payload, decoded)
	})

	t.Run("TC007: truncated input is a malformed-transmission error, not a panic", func(t *testing.T) {
		r := New()
		typ := r.RegisterMemoryImaged("position", 8)
		e := r.MustFind(typ)

		_, _, err := e.Deserialize([]byte{1, 2, 3})
		assert.Error(t, err)
	})
}

func TestReflector_Types(t *testing.T) {
	t.Run("TC008: Types returns every registration in ascending order", func(t *testing.T) {
		r := New()
		r.RegisterTag("a")
		r.RegisterTag("b")
		r.RegisterTag("c")

		types := r.Types()
		require.Len(t, types, 3)
		for i := 1; i < len(types); i++ {
			assert.Less(t, types[i-1], types[i])
		}
	})
}
