package components

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/reflect"
)

func TestRegisterPhysics(t *testing.T) {
	t.Run("TC001: registers under the MemoryImaged binding at the declared fixed size", func(t *testing.T) {
		r := reflect.New()
		typ := RegisterPhysics(r)
		entry := r.MustFind(typ)
		assert.Equal(t, reflect.MemoryImaged, entry.Binding)
		assert.Len(t, entry.Construct(), physicsSize)
	})
}

func TestEncodeDecodePhysics(t *testing.T) {
	t.Run("TC002: a physics body round trips through its wire form", func(t *testing.T) {
		p := PhysicsComponent{
			Velocity:     ecs.Vector2{X: 5, Y: 10},
			Acceleration: ecs.Vector2{X: 1, Y: -1},
			Mass:         2.5,
			Friction:     0.3,
			MaxSpeed:     100.0,
			Gravity:      true,
			IsStatic:     false,
		}

		payload := EncodePhysics(p)
		require.Len(t, payload, physicsSize)
		assert.Equal(t, p, DecodePhysics(payload))
	})
}

func TestPhysicsComponent_Integrate(t *testing.T) {
	t.Run("TC003: acceleration is integrated into velocity", func(t *testing.T) {
		p := DefaultPhysics()
		p.Acceleration = ecs.Vector2{X: 5, Y: 0}

		next := p.Integrate(0.016)
		assert.InDelta(t, 0.08, next.Velocity.X, 0.001)
	})

	t.Run("TC004: friction bleeds off velocity without reversing it", func(t *testing.T) {
		p := DefaultPhysics()
		p.Velocity = ecs.Vector2{X: 10, Y: 0}
		p.Friction = 0.1

		next := p.Integrate(0.016)
		assert.Less(t, next.Velocity.X, 10.0)
		assert.GreaterOrEqual(t, next.Velocity.X, 0.0)
	})

	t.Run("TC005: the speed cap clamps velocity magnitude, not direction", func(t *testing.T) {
		p := DefaultPhysics()
		p.MaxSpeed = 50.0
		p.Velocity = ecs.Vector2{X: 100, Y: 0}

		next := p.Integrate(0)
		speed := math.Sqrt(next.Velocity.X*next.Velocity.X + next.Velocity.Y*next.Velocity.Y)
		assert.LessOrEqual(t, speed, p.MaxSpeed+0.001)
		assert.Greater(t, next.Velocity.X, 0.0)
	})

	t.Run("TC006: a static body never moves", func(t *testing.T) {
		p := DefaultPhysics()
		p.IsStatic = true
		p.Acceleration = ecs.Vector2{X: 100, Y: 100}

		next := p.Integrate(0.016)
		assert.Equal(t, p.Velocity, next.Velocity)
	})
}
