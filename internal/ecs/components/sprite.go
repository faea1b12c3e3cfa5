package components

import (
	"ecsruntime/internal/ecs"
	"ecsruntime/internal/ecs/codec"
	"ecsruntime/internal/ecs/reflect"
)

// SpriteComponent carries 2D rendering information: which texture to draw,
// tint, draw order, and flip flags. Variable length (TextureID is a
// string), so it registers Normal.
type SpriteComponent struct {
	TextureID string
	Color     Color
	ZOrder    int32
	Visible   bool
	FlipX     bool
	FlipY     bool
}

// DefaultSprite mirrors the teacher's NewSpriteComponent defaults: opaque
// white, visible, no flip.
func DefaultSprite() SpriteComponent {
	return SpriteComponent{
		Color:   Color{R: 255, G: 255, B: 255, A: 255},
		Visible: true,
	}
}

// RegisterSprite registers SpriteComponent with r and returns its
// ComponentType.
func RegisterSprite(r *reflect.Reflector) ecs.ComponentType {
	return r.RegisterNormal("Sprite",
		func() []byte {
			return EncodeSprite(DefaultSprite())
		},
		func(payload, dst []byte) []byte {
			return append(dst, payload...)
		},
		deserializeSprite,
	)
}

// EncodeSprite packs s into its wire form: a length-prefixed texture name,
// packed color, z order, and three flag bytes.
func EncodeSprite(s SpriteComponent) []byte {
	buf := make([]byte, 0, 13+len(s.TextureID))
	buf = codec.PutUint32(buf, uint32(len(s.TextureID)))
	buf = append(buf, s.TextureID...)
	buf = append(buf, s.Color.R, s.Color.G, s.Color.B, s.Color.A)
	buf = codec.PutUint32(buf, uint32(s.ZOrder))
	buf = append(buf, boolByte(s.Visible), boolByte(s.FlipX), boolByte(s.FlipY))
	return buf
}

// DecodeSprite unpacks a SpriteComponent from a payload already known to
// be exactly one sprite record.
func DecodeSprite(payload []byte) SpriteComponent {
	s, _, _ := decodeSpritePrefix(payload)
	return s
}

func deserializeSprite(src []byte) ([]byte, []byte, error) {
	_, n, err := decodeSpritePrefix(src)
	if err != nil {
		return nil, src, err
	}
	return append([]byte(nil), src[:n]...), src[n:], nil
}

func decodeSpritePrefix(src []byte) (SpriteComponent, int, error) {
	textureLen, rest, ok := codec.ReadUint32(src)
	if !ok {
		return SpriteComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "sprite: truncated texture id length")
	}
	if uint32(len(rest)) < textureLen {
		return SpriteComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "sprite: truncated texture id")
	}
	textureID := string(rest[:textureLen])
	rest = rest[textureLen:]

	if len(rest) < 4+4+3 {
		return SpriteComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "sprite: truncated fixed fields")
	}
	color := Color{R: rest[0], G: rest[1], B: rest[2], A: rest[3]}
	rest = rest[4:]

	zOrder, rest, ok := codec.ReadUint32(rest)
	if !ok {
		return SpriteComponent{}, 0, ecs.NewError(ecs.ErrCodeMalformedTransmission, "sprite: truncated z order")
	}

	visible, flipX, flipY := byteIsTrue(rest[0]), byteIsTrue(rest[1]), byteIsTrue(rest[2])
	rest = rest[3:]

	consumed := len(src) - len(rest)
	return SpriteComponent{
		TextureID: textureID,
		Color:     color,
		ZOrder:    int32(zOrder),
		Visible:   visible,
		FlipX:     flipX,
		FlipY:     flipY,
	}, consumed, nil
}
