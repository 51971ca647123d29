package analytics

import "time"

// Source yields uniform floats in [0, 1).
type Source interface {
	Float64() float64
}

// Mulberry32 is a small, fast 32-bit PRNG. It is deterministic for a given
// seed, which keeps scorer output reproducible in tests. Not safe for
// concurrent use.
type Mulberry32 struct {
	state uint32
}

// NewMulberry32 returns a generator for seed. A zero seed is replaced by a
// clock-derived odd value.
func NewMulberry32(seed uint32) *Mulberry32 {
	if seed == 0 {
		seed = uint32(time.Now().UnixMilli()&0x7FFFFFFF) | 1
	}
	return &Mulberry32{state: seed}
}

// Float64 advances the generator.
func (m *Mulberry32) Float64() float64 {
	m.state += 0x6D2B79F5
	s := m.state
	t := (s ^ (s >> 15)) * (1 | s)
	t ^= t + (t^(t>>7))*(61|t)
	return float64(t^(t>>14)) / 4294967296
}
