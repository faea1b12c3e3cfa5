package components

import (
	"math"

	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/codec"
	"ecsruntime/internal/ecs/reflect"
)

// AIComponent drives NPC behavior: its current state, an optional target
// entity, a patrol route, and the range/speed parameters an AI system reads
// each tick. Variable length (PatrolPoints), so it registers Normal.
type AIComponent struct {
	State              AIState
	Target             ecs.EntityID
	PatrolPoints       []ecs.Vector2
	DetectionRadius    float64
	AttackRange        float64
	Speed              float64
	Behavior           AIBehavior
	CurrentPatrolIndex int32
}

// DefaultAI mirrors the teacher's NewAIComponent defaults.
func DefaultAI() AIComponent {
	return AIComponent{
		State:           AIStateIdle,
		Target:          ecs.InvalidEntityID,
		DetectionRadius: 50.0,
		AttackRange:     10.0,
		Speed:           100.0,
		Behavior:        AIBehaviorNeutral,
	}
}

// RegisterAI registers AIComponent with r and returns its ComponentType.
func RegisterAI(r *reflect.Reflector) ecs.ComponentType {
	return r.RegisterNormal("AI",
		func() []byte {
			return EncodeAI(DefaultAI())
		},
		func(payload, dst []byte) []byte {
			return append(dst, payload...)
		},
		deserializeAI,
	)
}

// EncodeAI packs a into its wire form.
func EncodeAI(a AIComponent) []byte {
	buf := make([]byte, 0, 36+len(a.PatrolPoints)*16)
	buf = codec.PutUint32(buf, uint32(a.State))
	buf = codec.PutUint32(buf, uint32(a.Target))
	buf = codec.PutUint32(buf, uint32(a.Behavior))
	buf = codec.PutUint32(buf, uint32(a.CurrentPatrolIndex))
	buf = codec.PutUint64(buf, math.Float64bits(a.DetectionRadius))
	buf = codec.PutUint64(buf, math.Float64bits(a.AttackRange))
	buf = codec.PutUint64(buf, math.Float64bits(a.Speed))
	buf = codec.PutUint32(buf, uint32(len(a.PatrolPoints)))
	for _, p := range a.PatrolPoints {
		buf = codec.PutUint64(buf, math.Float64bits(p.X))
		buf = codec.PutUint64(buf, math.Float64bits(p.Y))
	}
	return buf
}

// DecodeAI unpacks an AIComponent from a payload already known to be
// exactly one AI record.
func DecodeAI(payload []byte) AIComponent {
	a, _, _ := decodeAIPrefix(payload)
	return a
}

func deserializeAI(src []byte) ([]byte, []byte, error) {
	_, n, err := decodeAIPrefix(src)
	if err != nil {
		return nil, src, err
	}
	return append([]byte(nil), src[:n]...), src[n:], nil
}

func decodeAIPrefix(src []byte) (AIComponent, int, error) {
	state, rest, ok := codec.ReadUint32(src)
	target, rest2, ok2 := codec.ReadUint32(rest)
	behavior, rest3, ok3 := codec.ReadUint32(rest2)
	patrolIdx, rest4, ok4 := codec.ReadUint32(rest3)
	if !ok || !ok2 || !ok3 || !ok4 {
		return AIComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "ai: truncated header")
	}
	detBits, rest, ok := codec.ReadUint64(rest4)
	atkBits, rest, ok2 := codec.ReadUint64(rest)
	speedBits, rest, ok3 := codec.ReadUint64(rest)
	if !ok || !ok2 || !ok3 {
		return AIComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "ai: truncated ranges")
	}
	count, rest, ok := codec.ReadUint32(rest)
	if !ok {
		return AIComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "ai: truncated patrol point count")
	}

	points := make([]ecs.Vector2, 0, count)
	for i := uint32(0); i < count; i++ {
		xBits, r2, ok := codec.ReadUint64(rest)
		if !ok {
			return AIComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "ai: truncated patrol point")
		}
		yBits, r2, ok := codec.ReadUint64(r2)
		if !ok {
			return AIComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "ai: truncated patrol point")
		}
		points = append(points, ecs.Vector2{X: math.Float64frombits(xBits), Y: math.Float64frombits(yBits)})
		rest = r2
	}

	consumed := len(src) - len(rest)
	return AIComponent{
		State:              AIState(state),
		Target:             ecs.EntityID(target),
		Behavior:           AIBehavior(behavior),
		CurrentPatrolIndex: int32(patrolIdx),
		DetectionRadius:    math.Float64frombits(detBits),
		AttackRange:        math.Float64frombits(atkBits),
		Speed:              math.Float64frombits(speedBits),
		PatrolPoints:       points,
	}, consumed, nil
}

// NextPatrolPoint returns the patrol point a currently targets and the
// updated component with its index advanced, wrapping around the route —
// the teacher's AIComponent.GetNextPatrolPoint as a pure function.
func (a AIComponent) NextPatrolPoint() (ecs.Vector2, AIComponent) {
	if len(a.PatrolPoints) == 0 {
		return ecs.Vector2{}, a
	}
	point := a.PatrolPoints[a.CurrentPatrolIndex]
	a.CurrentPatrolIndex = (a.CurrentPatrolIndex + 1) % int32(len(a.PatrolPoints))
	return point, a
}

// InDetectionRange reports whether targetPosition is within a's detection
// radius of aiPosition.
func (a AIComponent) InDetectionRange(aiPosition, targetPosition ecs.Vector2) bool {
	return distance(aiPosition, targetPosition) <= a.DetectionRadius
}

// InAttackRange reports whether targetPosition is within a's attack range
// of aiPosition.
func (a AIComponent) InAttackRange(aiPosition, targetPosition ecs.Vector2) bool {
	return distance(aiPosition, targetPosition) <= a.AttackRange
}

func distance(p1, p2 ecs.Vector2) float64 {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	return math.Sqrt(dx*dx + dy*dy)
}
