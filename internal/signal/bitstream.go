package signal

import "strings"

// BitstreamCapacity bounds the decoded history kept by a receiver.
const BitstreamCapacity = 100

// Bitstream is a bounded, ordered history of decoded bits. Appending beyond
// capacity evicts the oldest bit.
type Bitstream struct {
	bits     []byte
	capacity int
}

func NewBitstream(capacity int) *Bitstream {
	if capacity < 1 {
		capacity = BitstreamCapacity
	}
	return &Bitstream{bits: make([]byte, 0, capacity), capacity: capacity}
}

func (b *Bitstream) Append(bit byte) {
	if len(b.bits) == b.capacity {
		copy(b.bits, b.bits[1:])
		b.bits = b.bits[:len(b.bits)-1]
	}
	b.bits = append(b.bits, bit)
}

func (b *Bitstream) Len() int {
	return len(b.bits)
}

func (b *Bitstream) String() string {
	return string(b.bits)
}

func (b *Bitstream) Reset() {
	b.bits = b.bits[:0]
}

// ContainsCode reports whether code occurs within the trailing 2*len(code)
// bits of bitstream. An empty code never matches.
func ContainsCode(bitstream, code string) bool {
	if code == "" {
		return false
	}
	window := bitstream
	if limit := 2 * len(code); len(window) > limit {
		window = window[len(window)-limit:]
	}
	return strings.Contains(window, code)
}
