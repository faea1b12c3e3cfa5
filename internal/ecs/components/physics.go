package components

import (
	"math"

	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/codec"
	"ecsruntime/internal/ecs/reflect"
)

// PhysicsComponent carries the per-tick simulation state a physics system
// integrates: velocity and acceleration, plus the mass/friction/speed-limit
// parameters that shape how forces are applied. Fixed width, so like
// TransformComponent it registers MemoryImaged.
type PhysicsComponent struct {
	Velocity     ecs.Vector2
	Acceleration ecs.Vector2
	Mass         float64
	Friction     float64
	MaxSpeed     float64
	Gravity      bool
	IsStatic     bool
}

const physicsSize = 8*7 + 2

// DefaultPhysics mirrors the teacher's NewPhysicsComponent defaults: unit
// mass, no friction, gravity off, a large but finite speed cap rather than
// infinity so the component stays a plain fixed-width value.
func DefaultPhysics() PhysicsComponent {
	return PhysicsComponent{
		Velocity:     ecs.Vector2{X: 0, Y: 0},
		Acceleration: ecs.Vector2{X: 0, Y: 0},
		Mass:         1.0,
		Friction:     0.0,
		MaxSpeed:     10000.0,
		Gravity:      false,
		IsStatic:     false,
	}
}

// RegisterPhysics registers PhysicsComponent with r and returns its
// ComponentType.
func RegisterPhysics(r *reflect.Reflector) ecs.ComponentType {
	return r.RegisterMemoryImaged("Physics", physicsSize)
}

// EncodePhysics packs p into its fixed-size wire form.
func EncodePhysics(p PhysicsComponent) []byte {
	buf := make([]byte, 0, physicsSize)
	buf = codec.PutUint64(buf, math.Float64bits(p.Velocity.X))
	buf = codec.PutUint64(buf, math.Float64bits(p.Velocity.Y))
	buf = codec.PutUint64(buf, math.Float64bits(p.Acceleration.X))
	buf = codec.PutUint64(buf, math.Float64bits(p.Acceleration.Y))
	buf = codec.PutUint64(buf, math.Float64bits(p.Mass))
	buf = codec.PutUint64(buf, math.Float64bits(p.Friction))
	buf = codec.PutUint64(buf, math.Float64bits(p.MaxSpeed))
	buf = append(buf, boolByte(p.Gravity), boolByte(p.IsStatic))
	return buf
}

// DecodePhysics unpacks a PhysicsComponent from its wire form.
func DecodePhysics(payload []byte) PhysicsComponent {
	vx, rest, _ := codec.ReadUint64(payload)
	vy, rest, _ := codec.ReadUint64(rest)
	ax, rest, _ := codec.ReadUint64(rest)
	ay, rest, _ := codec.ReadUint64(rest)
	mass, rest, _ := codec.ReadUint64(rest)
	friction, rest, _ := codec.ReadUint64(rest)
	maxSpeed, rest, _ := codec.ReadUint64(rest)
	return PhysicsComponent{
		Velocity:     ecs.Vector2{X: math.Float64frombits(vx), Y: math.Float64frombits(vy)},
		Acceleration: ecs.Vector2{X: math.Float64frombits(ax), Y: math.Float64frombits(ay)},
		Mass:         math.Float64frombits(mass),
		Friction:     math.Float64frombits(friction),
		MaxSpeed:     math.Float64frombits(maxSpeed),
		Gravity:      byteIsTrue(rest[0]),
		IsStatic:     byteIsTrue(rest[1]),
	}
}

// Integrate advances p by deltaTime seconds: applies acceleration to
// velocity, friction, and the speed cap, in the same order as the
// teacher's PhysicsSystem.Update step (UpdateVelocity, ApplyFriction,
// ApplySpeedLimit). A static body never moves.
func (p PhysicsComponent) Integrate(deltaTime float64) PhysicsComponent {
	if p.IsStatic {
		return p
	}

	p.Velocity.X += p.Acceleration.X * deltaTime
	p.Velocity.Y += p.Acceleration.Y * deltaTime

	if p.Friction > 0 {
		factor := 1.0 - p.Friction*deltaTime
		if factor < 0 {
			factor = 0
		}
		p.Velocity.X *= factor
		p.Velocity.Y *= factor
	}

	if p.MaxSpeed > 0 {
		speed := math.Sqrt(p.Velocity.X*p.Velocity.X + p.Velocity.Y*p.Velocity.Y)
		if speed > p.MaxSpeed {
			scale := p.MaxSpeed / speed
			p.Velocity.X *= scale
			p.Velocity.Y *= scale
		}
	}

	return p
}
