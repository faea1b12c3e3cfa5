package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecsruntime/internal/ecs/reflect"
)

func TestRegisterHealth(t *testing.T) {
	t.Run("TC001: registers under the Normal binding", func(t *testing.T) {
		r := reflect.New()
		typ := RegisterHealth(r)
		entry := r.MustFind(typ)
		assert.Equal(t, reflect.Normal, entry.Binding)
	})
}

func TestEncodeDecodeHealth(t *testing.T) {
	t.Run("TC002: a health record with status effects round trips through its wire form", func(t *testing.T) {
		h := HealthComponent{
			CurrentHealth:    75,
			MaxHealth:        100,
			Shield:           25,
			IsInvincible:     true,
			RegenerationRate: 2.5,
			StatusEffects: []StatusEffect{
				{Type: StatusTypePoison, Duration: 5.0, Strength: 2.0},
				{Type: StatusTypeBurn, Duration: 3.0, Strength: 1.0},
			},
		}

		payload := EncodeHealth(h)
		assert.Equal(t, h, DecodeHealth(payload))
	})

	t.Run("TC003: the deserialize function consumes exactly one record and leaves the rest", func(t *testing.T) {
		r := reflect.New()
		typ := RegisterHealth(r)
		entry := r.MustFind(typ)

		first := EncodeHealth(HealthComponent{CurrentHealth: 10, MaxHealth: 10})
		second := EncodeHealth(HealthComponent{CurrentHealth: 20, MaxHealth: 20, StatusEffects: []StatusEffect{{Type: StatusTypeBurn, Duration: 1, Strength: 1}}})

		payload, rest, err := entry.Deserialize(append(append([]byte(nil), first...), second...))
		require.NoError(t, err)
		assert.Equal(t, first, payload)
		assert.Equal(t, second, rest)
	})

	t.Run("TC004: a truncated record is rejected rather than panicked on", func(t *testing.T) {
		r := reflect.New()
		typ := RegisterHealth(r)
		entry := r.MustFind(typ)

		_, _, err := entry.Deserialize([]byte{0x00, 0x01})
		assert.Error(t, err)
	})
}

func TestHealthComponent_TakeDamage(t *testing.T) {
	t.Run("TC005: plain damage reduces current health", func(t *testing.T) {
		h := DefaultHealth(100)
		next, dealt := h.TakeDamage(25)
		assert.EqualValues(t, 75, next.CurrentHealth)
		assert.EqualValues(t, 25, dealt)
	})

	t.Run("TC006: shield absorbs damage before health does", func(t *testing.T) {
		h := DefaultHealth(100)
		h.Shield = 30
		next, dealt := h.TakeDamage(50)
		assert.EqualValues(t, 80, next.CurrentHealth)
		assert.EqualValues(t, 0, next.Shield)
		assert.EqualValues(t, 20, dealt)
	})

	t.Run("TC007: invincibility blocks all damage", func(t *testing.T) {
		h := DefaultHealth(100)
		h.IsInvincible = true
		next, dealt := h.TakeDamage(50)
		assert.EqualValues(t, 100, next.CurrentHealth)
		assert.EqualValues(t, 0, dealt)
	})

	t.Run("TC008: damage exceeding remaining health is clamped at zero", func(t *testing.T) {
		h := DefaultHealth(100)
		h.CurrentHealth = 30
		next, dealt := h.TakeDamage(50)
		assert.EqualValues(t, 0, next.CurrentHealth)
		assert.EqualValues(t, 30, dealt)
		assert.True(t, next.IsDead())
	})
}
