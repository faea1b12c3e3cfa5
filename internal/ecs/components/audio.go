package components

import (
	"math"

	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/codec"
	"ecsruntime/internal/ecs/reflect"
)

// AudioComponent drives 3D positional audio playback for an entity: which
// sound to play, volume/pitch, loop/pause state, and distance-based
// attenuation parameters. Variable length (SoundID, AudioGroup are
// strings), so it registers Normal. The teacher's AudioComponent left
// Serialize/Deserialize as TODO stubs; this fills in the wire form those
// never got.
type AudioComponent struct {
	SoundID     string
	AudioGroup  string
	Volume      float64
	Pitch       float64
	MaxDistance float64
	MinDistance float64
	Rolloff     float64
	Priority    int32
	IsPlaying   bool
	IsLoop      bool
	IsPaused    bool
	Is3D        bool
}

// DefaultAudio mirrors the teacher's NewAudioComponent defaults.
func DefaultAudio(soundID string) AudioComponent {
	return AudioComponent{
		SoundID:     soundID,
		AudioGroup:  "sfx",
		Volume:      1.0,
		Pitch:       1.0,
		MaxDistance: 100.0,
		MinDistance: 1.0,
		Rolloff:     1.0,
	}
}

// RegisterAudio registers AudioComponent with r and returns its
// ComponentType.
func RegisterAudio(r *reflect.Reflector) ecs.ComponentType {
	return r.RegisterNormal("Audio",
		func() []byte {
			return EncodeAudio(DefaultAudio(""))
		},
		func(payload, dst []byte) []byte {
			return append(dst, payload...)
		},
		deserializeAudio,
	)
}

// EncodeAudio packs a into its wire form: two length-prefixed strings, five
// float64 parameters, a priority, and four flag bytes.
func EncodeAudio(a AudioComponent) []byte {
	buf := make([]byte, 0, 45+len(a.SoundID)+len(a.AudioGroup))
	buf = codec.PutUint32(buf, uint32(len(a.SoundID)))
	buf = append(buf, a.SoundID...)
	buf = codec.PutUint32(buf, uint32(len(a.AudioGroup)))
	buf = append(buf, a.AudioGroup...)
	buf = codec.PutUint64(buf, math.Float64bits(a.Volume))
	buf = codec.PutUint64(buf, math.Float64bits(a.Pitch))
	buf = codec.PutUint64(buf, math.Float64bits(a.MaxDistance))
	buf = codec.PutUint64(buf, math.Float64bits(a.MinDistance))
	buf = codec.PutUint64(buf, math.Float64bits(a.Rolloff))
	buf = codec.PutUint32(buf, uint32(a.Priority))
	buf = append(buf, boolByte(a.IsPlaying), boolByte(a.IsLoop), boolByte(a.IsPaused), boolByte(a.Is3D))
	return buf
}

// DecodeAudio unpacks an AudioComponent from a payload already known to be
// exactly one audio record.
func DecodeAudio(payload []byte) AudioComponent {
	a, _, _ := decodeAudioPrefix(payload)
	return a
}

func deserializeAudio(src []byte) ([]byte, []byte, error) {
	_, n, err := decodeAudioPrefix(src)
	if err != nil {
		return nil, src, err
	}
	return append([]byte(nil), src[:n]...), src[n:], nil
}

func decodeAudioPrefix(src []byte) (AudioComponent, int, error) {
	soundID, rest, err := readString(src)
	if err != nil {
		return AudioComponent{}, 0, err
	}
	audioGroup, rest, err := readString(rest)
	if err != nil {
		return AudioComponent{}, 0, err
	}

	volBits, rest, ok := codec.ReadUint64(rest)
	pitchBits, rest, ok2 := codec.ReadUint64(rest)
	maxDistBits, rest, ok3 := codec.ReadUint64(rest)
	minDistBits, rest, ok4 := codec.ReadUint64(rest)
	rolloffBits, rest, ok5 := codec.ReadUint64(rest)
	if !ok || !ok2 || !ok3 || !ok4 || !ok5 {
		return AudioComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "audio: truncated float fields")
	}

	priority, rest, ok := codec.ReadUint32(rest)
	if !ok {
		return AudioComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "audio: truncated priority")
	}
	if len(rest) < 4 {
		return AudioComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "audio: truncated flags")
	}
	isPlaying, isLoop, isPaused, is3D := byteIsTrue(rest[0]), byteIsTrue(rest[1]), byteIsTrue(rest[2]), byteIsTrue(rest[3])
	rest = rest[4:]

	consumed := len(src) - len(rest)
	return AudioComponent{
		SoundID:     soundID,
		AudioGroup:  audioGroup,
		Volume:      math.Float64frombits(volBits),
		Pitch:       math.Float64frombits(pitchBits),
		MaxDistance: math.Float64frombits(maxDistBits),
		MinDistance: math.Float64frombits(minDistBits),
		Rolloff:     math.Float64frombits(rolloffBits),
		Priority:    int32(priority),
		IsPlaying:   isPlaying,
		IsLoop:      isLoop,
		IsPaused:    isPaused,
		Is3D:        is3D,
	}, consumed, nil
}

func readString(src []byte) (string, []byte, error) {
	n, rest, ok := codec.ReadUint32(src)
	if !ok {
		return "", src, ecs.NewError(ecs.ErrCodeMalformedTransmission, "audio: truncated string length")
	}
	if uint32(len(rest)) < n {
		return "", src, ecs.NewError(ecs.ErrCodeMalformedTransmission, "audio: truncated string")
	}
	return string(rest[:n]), rest[n:], nil
}

// IsActive reports whether a is currently audible: playing and not paused.
func (a AudioComponent) IsActive() bool {
	return a.IsPlaying && !a.IsPaused
}

// AttenuatedVolume applies distance-based rolloff to a's base volume, the
// Go equivalent of the teacher's (stubbed) distance attenuation math in
// AudioComponent.GetEffectiveVolume.
func (a AudioComponent) AttenuatedVolume(distance float64) float64 {
	if !a.Is3D || distance <= a.MinDistance {
		return a.Volume
	}
	if distance >= a.MaxDistance {
		return 0
	}
	span := a.MaxDistance - a.MinDistance
	factor := 1.0 - math.Pow((distance-a.MinDistance)/span, a.Rolloff)
	return a.Volume * factor
}
