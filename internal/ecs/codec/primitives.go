// Package codec provides the wire-level primitives and the byte-level
// delta compression scheme spec §6/§4.7 describe. Multi-byte integers are
// big-endian throughout, per §6 — original_source's
// Conductor/src/network/DeltaCompression.cpp uses little-endian
// (Mem::LittleEndian::Serialize), but spec.md is explicit about network
// byte order here, and an explicit spec instruction overrides
// original_source, which is only a guide where spec.md is silent.
package codec

import "encoding/binary"

// PutUint16 appends a big-endian uint16 to dst.
func PutUint16(dst []byte, v uint16) []byte {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return append(dst, buf[:]...)
}

// PutUint32 appends a big-endian uint32 to dst.
func PutUint32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

// PutUint64 appends a big-endian uint64 to dst.
func PutUint64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// ReadUint16 reads a big-endian uint16 from the front of src, returning the
// remainder. ok is false if src is too short.
func ReadUint16(src []byte) (v uint16, rest []byte, ok bool) {
	if len(src) < 2 {
		return 0, src, false
	}
	return binary.BigEndian.Uint16(src), src[2:], true
}

// ReadUint32 reads a big-endian uint32 from the front of src.
func ReadUint32(src []byte) (v uint32, rest []byte, ok bool) {
	if len(src) < 4 {
		return 0, src, false
	}
	return binary.BigEndian.Uint32(src), src[4:], true
}

// ReadUint64 reads a big-endian uint64 from the front of src.
func ReadUint64(src []byte) (v uint64, rest []byte, ok bool) {
	if len(src) < 8 {
		return 0, src, false
	}
	return binary.BigEndian.Uint64(src), src[8:], true
}
