// Package generator builds random binary codes.
package generator

import (
	"math/rand"
	"strings"
	"time"
)

// Generator produces randomized codes.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a deterministic Generator.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Code returns bits uniformly random binary digits. Non-positive bits yield "".
func (g *Generator) Code(bits int) string {
	return g.Mixed(bits, 0)
}

// Mixed returns a random code in which no digit repeats more than maxRun
// times in a row. A maxRun below 1 disables the limit.
func (g *Generator) Mixed(bits, maxRun int) string {
	if bits <= 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(bits)
	var prev byte
	run := 0
	for i := 0; i < bits; i++ {
		bit := byte('0' + g.rnd.Intn(2))
		if maxRun > 0 && run >= maxRun && bit == prev {
			bit = flip(bit)
		}
		if bit == prev {
			run++
		} else {
			prev = bit
			run = 1
		}
		b.WriteByte(bit)
	}
	return b.String()
}

// Batch returns count codes of the given shape.
func (g *Generator) Batch(count, bits, maxRun int) []string {
	if count <= 0 {
		return nil
	}
	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, g.Mixed(bits, maxRun))
	}
	return out
}

func flip(bit byte) byte {
	if bit == '0' {
		return '1'
	}
	return '0'
}
