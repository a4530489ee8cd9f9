// Package prng implements the deterministic random stream that drives prompt
// scheduling. Every group derives one stream from a string seed, so the same
// group always sees the same schedule for the same catalog, while different
// groups diverge.
package prng

import "math"

const (
	lcgMultiplier = 9301
	lcgIncrement  = 49297
	lcgModulus    = 233280
)

// New returns a generator producing a repeatable sequence of floats in [0, 1)
// for the given seed. The seed is reduced with a 32-bit polynomial rolling
// hash, normalized into [0, 1], and iterated with a linear congruential step
// on each call. No external entropy is involved.
func New(seed string) func() float64 {
	var hash int32
	for _, c := range seed {
		hash = (hash << 5) - hash + int32(c)
	}

	value := math.Abs(float64(hash)) / float64(math.MaxInt32)

	return func() float64 {
		value = math.Mod(value*lcgMultiplier+lcgIncrement, lcgModulus)
		return value / lcgModulus
	}
}

// Shuffle returns a new slice holding a deterministic permutation of items.
// The input is never mutated. The permutation depends only on the seed and
// the input length and order.
func Shuffle[T any](items []T, seed string) []T {
	rng := New(seed)
	shuffled := make([]T, len(items))
	copy(shuffled, items)

	for i := len(shuffled) - 1; i > 0; i-- {
		j := int(rng() * float64(i+1))
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled
}
