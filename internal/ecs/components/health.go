package components

import (
	"math"

	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/codec"
	"ecsruntime/internal/ecs/reflect"
)

// HealthComponent tracks an entity's hit points, shield, and active status
// effects. Variable length (StatusEffects grows and shrinks), so it
// registers Normal rather than MemoryImaged.
type HealthComponent struct {
	CurrentHealth    int32
	MaxHealth        int32
	Shield           int32
	IsInvincible     bool
	RegenerationRate float64
	StatusEffects    []StatusEffect
}

// DefaultHealth mirrors the teacher's NewHealthComponent: current health
// starts full.
func DefaultHealth(maxHealth int32) HealthComponent {
	return HealthComponent{
		CurrentHealth: maxHealth,
		MaxHealth:     maxHealth,
	}
}

// RegisterHealth registers HealthComponent with r and returns its
// ComponentType.
func RegisterHealth(r *reflect.Reflector) ecs.ComponentType {
	return r.RegisterNormal("Health",
		func() []byte {
			return EncodeHealth(DefaultHealth(0))
		},
		func(payload, dst []byte) []byte {
			return append(dst, payload...)
		},
		deserializeHealth,
	)
}

// EncodeHealth packs h into its wire form: three int32 counters, an
// invincibility flag, the regeneration rate, and a length-prefixed list of
// status effects.
func EncodeHealth(h HealthComponent) []byte {
	buf := make([]byte, 0, 21+len(h.StatusEffects)*20)
	buf = codec.PutUint32(buf, uint32(h.CurrentHealth))
	buf = codec.PutUint32(buf, uint32(h.MaxHealth))
	buf = codec.PutUint32(buf, uint32(h.Shield))
	buf = append(buf, boolByte(h.IsInvincible))
	buf = codec.PutUint64(buf, math.Float64bits(h.RegenerationRate))
	buf = codec.PutUint32(buf, uint32(len(h.StatusEffects)))
	for _, eff := range h.StatusEffects {
		buf = codec.PutUint32(buf, uint32(eff.Type))
		buf = codec.PutUint64(buf, math.Float64bits(eff.Duration))
		buf = codec.PutUint64(buf, math.Float64bits(eff.Strength))
	}
	return buf
}

// DecodeHealth unpacks a HealthComponent from a payload already known to
// be exactly one health record (i.e. one the arena is holding).
func DecodeHealth(payload []byte) HealthComponent {
	h, _, _ := decodeHealthPrefix(payload)
	return h
}

// deserializeHealth implements reflect.ApplySerializationFunc: it decodes
// one health record from the front of src and returns the consumed bytes
// as payload and whatever follows as rest, the way a multi-record
// transmission (package replication's blob) requires for a variable-length
// component.
func deserializeHealth(src []byte) ([]byte, []byte, error) {
	_, n, err := decodeHealthPrefix(src)
	if err != nil {
		return nil, src, err
	}
	return append([]byte(nil), src[:n]...), src[n:], nil
}

func decodeHealthPrefix(src []byte) (HealthComponent, int, error) {
	cur, rest, ok := codec.ReadUint32(src)
	if !ok {
		return HealthComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "health: truncated current health")
	}
	max, rest, ok := codec.ReadUint32(rest)
	if !ok {
		return HealthComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "health: truncated max health")
	}
	shield, rest, ok := codec.ReadUint32(rest)
	if !ok {
		return HealthComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "health: truncated shield")
	}
	if len(rest) < 1 {
		return HealthComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "health: truncated invincibility flag")
	}
	invincible := byteIsTrue(rest[0])
	rest = rest[1:]
	regenBits, rest, ok := codec.ReadUint64(rest)
	if !ok {
		return HealthComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "health: truncated regeneration rate")
	}
	count, rest, ok := codec.ReadUint32(rest)
	if !ok {
		return HealthComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "health: truncated status effect count")
	}

	effects := make([]StatusEffect, 0, count)
	for i := uint32(0); i < count; i++ {
		typ, r2, ok := codec.ReadUint32(rest)
		if !ok {
			return HealthComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "health: truncated status effect type")
		}
		durBits, r2, ok := codec.ReadUint64(r2)
		if !ok {
			return HealthComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "health: truncated status effect duration")
		}
		strBits, r2, ok := codec.ReadUint64(r2)
		if !ok {
			return HealthComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "health: truncated status effect strength")
		}
		effects = append(effects, StatusEffect{
			Type:     StatusType(typ),
			Duration: math.Float64frombits(durBits),
			Strength: math.Float64frombits(strBits),
		})
		rest = r2
	}

	consumed := len(src) - len(rest)
	return HealthComponent{
		CurrentHealth:    int32(cur),
		MaxHealth:        int32(max),
		Shield:           int32(shield),
		IsInvincible:     invincible,
		RegenerationRate: math.Float64frombits(regenBits),
		StatusEffects:    effects,
	}, consumed, nil
}

// TakeDamage applies damage to h and returns the updated component along
// with the actual damage dealt, after shield absorption — the teacher's
// HealthComponent.TakeDamage, now a pure function over the value rather
// than a pointer receiver mutating shared state.
func (h HealthComponent) TakeDamage(damage int32) (HealthComponent, int32) {
	if h.IsInvincible || damage <= 0 {
		return h, 0
	}

	dealt := damage
	if h.Shield > 0 {
		if h.Shield >= damage {
			h.Shield -= damage
			return h, 0
		}
		dealt = damage - h.Shield
		h.Shield = 0
	}

	if h.CurrentHealth < dealt {
		dealt = h.CurrentHealth
	}
	h.CurrentHealth -= dealt
	if h.CurrentHealth < 0 {
		h.CurrentHealth = 0
	}
	return h, dealt
}

// IsDead reports whether h's current health has reached zero.
func (h HealthComponent) IsDead() bool {
	return h.CurrentHealth <= 0
}
