// Package wire implements the little-endian byte primitives shared by the
// A2S and Source RCON wire formats: integer accessors, NUL-terminated
// string reads, and plain concatenation.
package wire

import (
	"encoding/binary"
	"math"
)

// Concat joins any number of byte slices into one freshly allocated slice.
func Concat(parts ...[]byte) []byte {
	size := 0
	for _, p := range parts {
		size += len(p)
	}

	out := make([]byte, 0, size)
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}

// ReadCString reads bytes starting at offset up to (and including) the next
// NUL byte and returns the string with the terminator stripped, along with
// the offset just past the terminator. Bytes are reinterpreted one-per-rune;
// there is no multibyte decoding on the binary wire path. If no terminator
// is found the remainder of buf is returned and the offset advances to
// len(buf).
func ReadCString(buf []byte, offset int) (string, int) {
	if offset >= len(buf) {
		return "", offset
	}

	start := offset
	end := offset

	for end < len(buf) && buf[end] != 0x00 {
		end++
	}

	value := string(buf[start:end])
	if end < len(buf) {
		end++ // skip the terminator
	}

	return value, end
}

// ReadInt16 reads a little-endian int16 at offset. The caller is
// responsible for bounds-checking; use HasBytes first.
func ReadInt16(buf []byte, offset int) int16 {
	return int16(binary.LittleEndian.Uint16(buf[offset:]))
}

// ReadUint16 reads a little-endian uint16 at offset.
func ReadUint16(buf []byte, offset int) uint16 {
	return binary.LittleEndian.Uint16(buf[offset:])
}

// ReadInt32 reads a little-endian int32 at offset.
func ReadInt32(buf []byte, offset int) int32 {
	return int32(binary.LittleEndian.Uint32(buf[offset:]))
}

// ReadUint32 reads a little-endian uint32 at offset.
func ReadUint32(buf []byte, offset int) uint32 {
	return binary.LittleEndian.Uint32(buf[offset:])
}

// ReadUint64 reads a little-endian uint64 at offset.
func ReadUint64(buf []byte, offset int) uint64 {
	return binary.LittleEndian.Uint64(buf[offset:])
}

// ReadFloat32 reads a little-endian IEEE-754 float32 at offset.
func ReadFloat32(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
}

// PutInt32 encodes v as a little-endian int32.
func PutInt32(v int32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, uint32(v))

	return out
}

// PutUint32 encodes v as a little-endian uint32.
func PutUint32(v uint32) []byte {
	out := make([]byte, 4)
	binary.LittleEndian.PutUint32(out, v)

	return out
}

// HasBytes reports whether buf has at least n bytes available starting at
// offset.
func HasBytes(buf []byte, offset int, n int) bool {
	return offset >= 0 && offset+n <= len(buf)
}
