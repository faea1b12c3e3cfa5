package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressDecompress_RoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		lastSeen []byte
		current  []byte
	}{
		{"TC001: identical inputs", []byte("hello world"), []byte("hello world")},
		{"TC002: empty baseline, non-empty current", nil, []byte("fresh data")},
		{"TC003: both empty", nil, nil},
		{"TC004: a single byte changed in the middle", []byte("aaaaaaaaaa"), []byte("aaaaXaaaaa")},
		{"TC005: current shorter than baseline", []byte("abcdefghij"), []byte("abc")},
		{"TC006: current longer than baseline (trailing bytes)", []byte("abc"), []byte("abcdefghij")},
		{"TC007: completely different, same length", []byte("0000000000"), []byte("1111111111")},
		{"TC008: long unchanged run followed by a change", []byte(makeRepeated('a', 300) + "TAIL"), []byte(makeRepeated('a', 300) + "TAIL!")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			compressed := Compress(tc.lastSeen, tc.current)
			decompressed, rest, ok := Decompress(tc.lastSeen, compressed)
			require.True(t, ok)
			assert.Empty(t, rest)
			assert.Equal(t, tc.current, decompressed)
		})
	}
}

func TestCompress_IdenticalInputsUseShortcut(t *testing.T) {
	t.Run("TC009: identical inputs encode to the two-byte sentinel only", func(t *testing.T) {
		data := []byte("same bytes")
		compressed := Compress(data, data)
		assert.Len(t, compressed, 2)
	})
}

func TestDecompress_MalformedInput(t *testing.T) {
	t.Run("TC010: truncated header is rejected, not panicked on", func(t *testing.T) {
		_, _, ok := Decompress(nil, []byte{0x01})
		assert.False(t, ok)
	})

	t.Run("TC011: unknown section type is rejected", func(t *testing.T) {
		bad := PutUint16(nil, 5)
		bad = append(bad, 0xEE, 0x03, 'a', 'b', 'c', terminator)
		_, _, ok := Decompress(nil, bad)
		assert.False(t, ok)
	})

	t.Run("TC012: unchanged section reading past the baseline is rejected", func(t *testing.T) {
		bad := PutUint16(nil, 5)
		bad = append(bad, sectionUnchanged, 0x05, terminator)
		_, _, ok := Decompress([]byte("ab"), bad)
		assert.False(t, ok)
	})

	t.Run("TC013: missing terminator is rejected", func(t *testing.T) {
		bad := PutUint16(nil, 3)
		bad = append(bad, sectionTrailing, 0x03, 'a', 'b', 'c')
		_, _, ok := Decompress(nil, bad)
		assert.False(t, ok)
	})
}

func TestDecompress_ReturnsUnconsumedRemainder(t *testing.T) {
	t.Run("TC014: bytes after the terminator are returned as rest", func(t *testing.T) {
		compressed := Compress([]byte("abc"), []byte("abd"))
		trailing := []byte{0xCA, 0xFE}
		_, rest, ok := Decompress([]byte("abc"), append(compressed, trailing...))
		require.True(t, ok)
		assert.Equal(t, trailing, rest)
	})
}

func makeRepeated(b byte, n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return string(buf)
}
