package components

import (
	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/reflect"
)

// Types names the demo component set's resolved ComponentTypes, handed
// back by RegisterAll so a caller can build entities without re-resolving
// each type by name.
type Types struct {
	Transform ecs.ComponentType
	Physics   ecs.ComponentType
	Health    ecs.ComponentType
	AI        ecs.ComponentType
	Sprite    ecs.ComponentType
	Audio     ecs.ComponentType
}

// RegisterAll registers every demo component with r. Registration order
// does not matter to the reflector, which hashes each name independently,
// but this is the one place a host binary needs to call to exercise every
// component the demo world uses.
func RegisterAll(r *reflect.Reflector) Types {
	return Types{
		Transform: RegisterTransform(r),
		Physics:   RegisterPhysics(r),
		Health:    RegisterHealth(r),
		AI:        RegisterAI(r),
		Sprite:    RegisterSprite(r),
		Audio:     RegisterAudio(r),
	}
}
