package components

import (
	"math"

	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/codec"
	"ecsruntime/internal/ecs/reflect"
)

// TransformComponent holds an entity's local position, rotation and scale.
// Parent/child placement now lives on the entity itself (the entity
// manager's forest), not on this component, so there is nothing here whose
// wire size varies: it registers MemoryImaged, and the reflector copies its
// bytes directly instead of running per-field encode/decode logic on every
// access.
type TransformComponent struct {
	Position ecs.Vector2
	Rotation float64
	Scale    ecs.Vector2
}

const transformSize = 8 * 5

// DefaultTransform is the identity placement: origin, no rotation, unit
// scale. A Transform added through the entity manager does not start from
// it: its MemoryImaged Construct yields all-zero bytes, which decode to
// zero scale.
func DefaultTransform() TransformComponent {
	return TransformComponent{
		Position: ecs.Vector2{X: 0, Y: 0},
		Rotation: 0,
		Scale:    ecs.Vector2{X: 1, Y: 1},
	}
}

// RegisterTransform registers TransformComponent with r and returns its
// ComponentType.
func RegisterTransform(r *reflect.Reflector) ecs.ComponentType {
	return r.RegisterMemoryImaged("Transform", transformSize)
}

// EncodeTransform packs t into its fixed-size wire form.
func EncodeTransform(t TransformComponent) []byte {
	buf := make([]byte, 0, transformSize)
	buf = codec.PutUint64(buf, math.Float64bits(t.Position.X))
	buf = codec.PutUint64(buf, math.Float64bits(t.Position.Y))
	buf = codec.PutUint64(buf, math.Float64bits(t.Rotation))
	buf = codec.PutUint64(buf, math.Float64bits(t.Scale.X))
	buf = codec.PutUint64(buf, math.Float64bits(t.Scale.Y))
	return buf
}

// DecodeTransform unpacks a TransformComponent from its wire form. payload
// is assumed to be exactly transformSize bytes, which the MemoryImaged
// binding guarantees to any caller that only ever obtained it from the
// arena.
func DecodeTransform(payload []byte) TransformComponent {
	px, rest, _ := codec.ReadUint64(payload)
	py, rest, _ := codec.ReadUint64(rest)
	rot, rest, _ := codec.ReadUint64(rest)
	sx, rest, _ := codec.ReadUint64(rest)
	sy, _, _ := codec.ReadUint64(rest)
	return TransformComponent{
		Position: ecs.Vector2{X: math.Float64frombits(px), Y: math.Float64frombits(py)},
		Rotation: math.Float64frombits(rot),
		Scale:    ecs.Vector2{X: math.Float64frombits(sx), Y: math.Float64frombits(sy)},
	}
}

// WorldPosition resolves t's position through the given chain of ancestor
// transforms, ordered root-first (ancestors[0] is the topmost ancestor,
// the last element t's immediate parent) — the Go equivalent of the
// teacher's recursive TransformComponent.GetWorldPosition, now expressed
// over a plain slice since this component no longer holds its own parent
// pointer; the entity manager's forest is what a caller walks to build
// that slice.
func WorldPosition(t TransformComponent, ancestors []TransformComponent) ecs.Vector2 {
	worldPos := ecs.Vector2{X: 0, Y: 0}
	worldRot := 0.0
	worldScale := ecs.Vector2{X: 1, Y: 1}

	for _, a := range ancestors {
		worldPos = rotateScale(a.Position, worldRot, worldScale).add(worldPos)
		worldRot += a.Rotation
		worldScale = ecs.Vector2{X: worldScale.X * a.Scale.X, Y: worldScale.Y * a.Scale.Y}
	}

	return rotateScale(t.Position, worldRot, worldScale).add(worldPos)
}

func rotateScale(v ecs.Vector2, rot float64, scale ecs.Vector2) vec2 {
	cos := math.Cos(rot)
	sin := math.Sin(rot)
	return vec2{
		X: (v.X*cos - v.Y*sin) * scale.X,
		Y: (v.X*sin + v.Y*cos) * scale.Y,
	}
}

type vec2 struct{ X, Y float64 }

func (v vec2) add(w ecs.Vector2) ecs.Vector2 {
	return ecs.Vector2{X: v.X + w.X, Y: v.Y + w.Y}
}
