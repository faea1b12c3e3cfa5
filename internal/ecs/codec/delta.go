package codec

// Section type IDs and markers. original_source's DeltaCompression.cpp
// picks its own arbitrary byte values for these (0x0F/0xF0/0xAA/0xDD); spec
// §6 calls out that the exact marker values are illustrative and must be
// fixed by the implementation, so this codec defines its own rather than
// reusing the C++ source's.
const (
	identicalMarker uint16 = 0xFFFF

	sectionUnchanged byte = 0x01
	sectionChanged   byte = 0x02
	sectionTrailing  byte = 0x03

	terminator byte = 0x00

	maxSectionSize = 255 // one byte length prefix per section
)

// Compress produces a delta of currentBytes relative to lastSeenBytes using
// the same run-length, section-based scheme as
// original_source/Conductor/src/network/DeltaCompression.cpp's
// DeltaCompression::Compress: identical inputs collapse to a two-byte
// sentinel; otherwise runs of unchanged bytes in the overlapping prefix are
// elided, runs of changed bytes within that prefix are copied verbatim, and
// anything beyond the shorter of the two inputs is copied as trailing
// sections. Every multi-byte field is big-endian (§6), unlike the C++
// source's little-endian.
func Compress(lastSeenBytes, currentBytes []byte) []byte {
	if bytesEqual(lastSeenBytes, currentBytes) {
		return PutUint16(nil, identicalMarker)
	}

	out := PutUint16(nil, uint16(len(currentBytes)))

	minLen := len(lastSeenBytes)
	if len(currentBytes) < minLen {
		minLen = len(currentBytes)
	}

	i := 0
	for i < minLen {
		rewind := i
		j := 0
		for j < maxSectionSize && i < minLen && lastSeenBytes[i] == currentBytes[i] {
			i++
			j++
		}
		unchangedRunLength := i - rewind
		if unchangedRunLength > 2 {
			out = append(out, sectionUnchanged, byte(unchangedRunLength))
			continue
		}

		// Not worth an unchanged section; rewind and scan ahead for the
		// next point where three consecutive bytes match, bounding a
		// changed section in between.
		i = rewind
		foundNextUnchangedRun := false
		j = 0
		for j < maxSectionSize && i < minLen-3 {
			if bytesEqual(lastSeenBytes[i:i+3], currentBytes[i:i+3]) {
				foundNextUnchangedRun = true
				break
			}
			i++
			j++
		}

		if !foundNextUnchangedRun {
			i = rewind
			break
		}

		changedRunLength := i - rewind
		out = append(out, sectionChanged, byte(changedRunLength))
		out = append(out, currentBytes[rewind:rewind+changedRunLength]...)
	}

	for i < len(currentBytes) {
		remaining := len(currentBytes) - i
		sectionSize := remaining
		if sectionSize > maxSectionSize {
			sectionSize = maxSectionSize
		}
		out = append(out, sectionTrailing, byte(sectionSize))
		out = append(out, currentBytes[i:i+sectionSize]...)
		i += sectionSize
	}

	out = append(out, terminator)
	return out
}

// Decompress reverses Compress given the same lastSeenBytes the encoder
// used as its baseline, returning the reconstructed current bytes and the
// unconsumed remainder of compressed. A malformed input (truncated header,
// an unchanged section reading past the end of lastSeenBytes, an unknown
// section type, or a missing terminator) reports ok=false rather than
// panicking — this runs on bytes received over the wire, so spec §7 treats
// it as a "Malformed transmission" the caller should reject and log, never
// a crash.
func Decompress(lastSeenBytes, compressed []byte) (current []byte, rest []byte, ok bool) {
	header, body, ok := ReadUint16(compressed)
	if !ok {
		return nil, compressed, false
	}

	if header == identicalMarker {
		out := make([]byte, len(lastSeenBytes))
		copy(out, lastSeenBytes)
		return out, body, true
	}

	expectedLen := int(header)
	out := make([]byte, 0, expectedLen)
	lastSeenPos := 0

	for {
		if len(body) == 0 {
			return nil, compressed, false
		}
		sectionType := body[0]
		body = body[1:]
		if sectionType == terminator {
			break
		}
		if len(body) == 0 {
			return nil, compressed, false
		}
		size := int(body[0])
		body = body[1:]

		switch sectionType {
		case sectionUnchanged:
			if lastSeenPos+size > len(lastSeenBytes) {
				return nil, compressed, false
			}
			out = append(out, lastSeenBytes[lastSeenPos:lastSeenPos+size]...)
			lastSeenPos += size
		case sectionChanged:
			if len(body) < size {
				return nil, compressed, false
			}
			out = append(out, body[:size]...)
			body = body[size:]
			lastSeenPos += size
		case sectionTrailing:
			if len(body) < size {
				return nil, compressed, false
			}
			out = append(out, body[:size]...)
			body = body[size:]
		default:
			return nil, compressed, false
		}
	}

	if len(out) != expectedLen {
		return nil, compressed, false
	}
	return out, body, true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
