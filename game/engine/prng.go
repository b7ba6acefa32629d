package engine

import (
	"time"
	"unicode/utf16"
)

// Source yields floats in [0,1)
type Source interface {
	Next() float64
}

// PRNG is a Mulberry32 generator. The output sequence is bit-compatible with the
// browser build of the game, so a nickname produces the same AI behavior and
// choice ordering on every platform.
type PRNG struct {
	seed  uint32
	state uint32
}

// NewPRNG creates a generator positioned at the start of seed's sequence
func NewPRNG(seed uint32) *PRNG {
	return &PRNG{seed: seed, state: seed}
}

// RestorePRNG resumes a generator from a persisted state
func RestorePRNG(seed, state uint32) *PRNG {
	return &PRNG{seed: seed, state: state}
}

// Next advances the generator and returns a float in [0,1)
func (p *PRNG) Next() float64 {
	p.state += 0x6D2B79F5
	t := p.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return float64(t^t>>14) / 4294967296
}

// Seed returns the seed the generator was created with
func (p *PRNG) Seed() uint32 {
	return p.seed
}

// State returns the internal counter for persistence
func (p *PRNG) State() uint32 {
	return p.state
}

// SeedFromString hashes s with the 31-multiplier string hash over UTF-16 code
// units, wrapped to int32, and returns its absolute value.
func SeedFromString(s string) uint32 {
	var h int32
	for _, u := range utf16.Encode([]rune(s)) {
		h = 31*h + int32(u)
	}
	if h < 0 {
		return uint32(-int64(h))
	}
	return uint32(h)
}

// SeedFromTime derives a seed from a wall clock reading
func SeedFromTime(t time.Time) uint32 {
	return uint32(t.UnixMilli())
}

// Shuffle returns a Fisher-Yates permutation of items, drawing exactly
// len(items)-1 values from rng. The input is not modified.
func Shuffle[T any](items []T, rng Source) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := int(rng.Next() * float64(i+1))
		if j > i {
			j = i
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// WeightedIndex draws one value, scales it by the total weight and returns the
// first index whose cumulative weight meets or exceeds the draw. Degenerate
// input (no weights, non-positive total, rounding overshoot) yields 0.
func WeightedIndex(weights []float64, rng Source) int {
	r := rng.Next()
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return 0
	}
	r *= total
	cum := 0.0
	for i, w := range weights {
		if w > 0 {
			cum += w
		}
		if cum >= r {
			return i
		}
	}
	return 0
}

// WeightedPick selects an item by weight. It returns false only when items is empty.
func WeightedPick[T any](items []T, weights []float64, rng Source) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	if len(weights) > len(items) {
		weights = weights[:len(items)]
	}
	return items[WeightedIndex(weights, rng)], true
}

// lerp interpolates linearly between a and b
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
