// Package components holds the demo component set: concrete
// Normal/MemoryImaged registrations against package reflect's Reflector,
// carried over from the teacher's component set (AI, Audio, Health,
// Physics, Sprite, Transform) and rebuilt on the byte-payload contract the
// store and replication packages require, instead of the teacher's
// self-contained GetType/Serialize/Deserialize Component interface.
//
// Every component here follows the same shape: a plain Go struct for game
// code to read and write, an Encode function that packs it to its wire
// form, a Decode function that unpacks it, and a Register function that
// wires both into a Reflector entry. The arena only ever holds the encoded
// bytes; a component's Encode output is also exactly what its Serialize
// function emits, since there is no reason to keep two different byte
// representations of the same data around.
package components

import "time"

// AIState is an NPC's current behavior state.
type AIState int32

const (
	AIStateIdle AIState = iota
	AIStatePatrol
	AIStateChase
	AIStateAttack
	AIStateFlee
	AIStateDead
)

// AIBehavior is an NPC's disposition, which shapes how it reacts to
// detecting a target.
type AIBehavior int32

const (
	AIBehaviorNeutral AIBehavior = iota
	AIBehaviorAggressive
	AIBehaviorDefensive
	AIBehaviorFriendly
	AIBehaviorCoward
)

// StatusType names a temporary effect applied to an entity's health.
type StatusType int32

const (
	StatusTypePoison StatusType = iota
	StatusTypeBurn
	StatusTypeFreeze
	StatusTypeStun
	StatusTypeShield
	StatusTypeRegen
)

// StatusEffect is one active, time-limited modifier on a HealthComponent.
type StatusEffect struct {
	Type     StatusType
	Duration float64
	Strength float64
}

// Color is a packed RGBA color used by SpriteComponent.
type Color struct {
	R, G, B, A uint8
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func byteIsTrue(b byte) bool {
	return b != 0
}

// statusEffectDuration mirrors the teacher's default status-effect
// duration. Nothing in this package reads it or applies status effects;
// every StatusEffect carries its own Duration.
const statusEffectDuration = 5 * time.Second
