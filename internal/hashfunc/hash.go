// Package hashfunc implements the single, wire-visible hash function that
// every node and every independent implementation of the partitioning
// scheme must agree on bit-for-bit (spec §4.1, §6). Two nodes that disagree
// on where a bucket lives cannot route to each other, so the mixing
// constants below are fixed by the specification and must never drift.
//
// The algorithm is a 32-bit Murmur2-class mix: 4-byte little-endian blocks
// multiplied and xor-shifted against a fixed magic constant, with a tail
// handled byte-by-byte and a final avalanche mix. It plays the same role
// the teacher's shard registry gives FNV-1a (a fast, deterministic
// key-to-bucket hash), generalized to the exact mixing spec-mandates.
package hashfunc

const (
	seed         uint32 = 0
	magic        uint32 = 0x5bd1e995
	shift               = 24
	tailMask1    uint32 = 0xff
	tailMask2    uint32 = 0xff00
	tailMask3    uint32 = 0xff0000
	finalShift1         = 13
	finalShift2         = 15
)

// Hash computes the 32-bit Murmur2-class mix of data. The algorithm and its
// constants are part of Terrastore's wire contract: any two conforming
// implementations must produce identical output for identical input.
func Hash(data []byte) uint32 {
	length := len(data)
	h := seed ^ uint32(length)

	for length >= 4 {
		k := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24

		k *= magic
		k ^= k >> shift
		k *= magic

		h *= magic
		h ^= k

		data = data[4:]
		length -= 4
	}

	switch length {
	case 3:
		h ^= uint32(data[2]) << 16
		fallthrough
	case 2:
		h ^= uint32(data[1]) << 8
		fallthrough
	case 1:
		h ^= uint32(data[0])
		h *= magic
	}

	h ^= h >> finalShift1
	h *= magic
	h ^= h >> finalShift2

	return h
}

// Combine hashes the concatenation of a and b without building the
// concatenated slice; only 4-byte and 3-byte scratch slices are allocated. Terrastore uses it to derive a single deterministic
// value from a bucket name and a key (spec §4.2's key-level ring lookup),
// since Hash(a ‖ b) must be reproducible without materializing a ‖ b.
func Combine(a, b []byte) uint32 {
	length := len(a) + len(b)
	h := seed ^ uint32(length)

	buf := make([]byte, 0, 4)
	read4 := func() (uint32, bool) {
		buf = buf[:0]
		for len(buf) < 4 {
			switch {
			case len(a) > 0:
				buf = append(buf, a[0])
				a = a[1:]
			case len(b) > 0:
				buf = append(buf, b[0])
				b = b[1:]
			default:
				return 0, false
			}
		}
		return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, true
	}

	remaining := length
	for remaining >= 4 {
		k, ok := read4()
		if !ok {
			break
		}

		k *= magic
		k ^= k >> shift
		k *= magic

		h *= magic
		h ^= k

		remaining -= 4
	}

	tail := make([]byte, 0, 3)
	for len(a) > 0 {
		tail = append(tail, a[0])
		a = a[1:]
	}
	for len(b) > 0 {
		tail = append(tail, b[0])
		b = b[1:]
	}

	switch len(tail) {
	case 3:
		h ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		h ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		h ^= uint32(tail[0])
		h *= magic
	}

	h ^= h >> finalShift1
	h *= magic
	h ^= h >> finalShift2

	return h
}
