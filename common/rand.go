package common

// lcgMultiplier and lcgIncrement are the Numerical Recipes constants for a
// 32-bit linear congruential generator. They must stay in sync with the
// rand_lcg function in the particle update shader so that CPU-side replays of
// a particle's seed stream produce the same values the GPU produced.
const (
	lcgMultiplier uint32 = 1664525
	lcgIncrement  uint32 = 1013904223
)

// LCG is a deterministic 32-bit linear congruential generator matching the
// random number sequence used by the GPU particle update shader. Each particle
// carries its own LCG state in its seed field, so the generator is a plain
// value type with no locking.
type LCG struct {
	state uint32
}

// NewLCG creates a generator seeded with the given state.
//
// Parameters:
//   - seed: initial generator state
//
// Returns:
//   - LCG: a generator positioned at the given state
func NewLCG(seed uint32) LCG {
	return LCG{state: seed}
}

// Next advances the generator one step and returns the new raw 32-bit state.
//
// Returns:
//   - uint32: the next raw value in the sequence
func (l *LCG) Next() uint32 {
	l.state = l.state*lcgMultiplier + lcgIncrement
	return l.state
}

// NextFloat advances the generator and maps the result to [0, 1).
//
// Returns:
//   - float32: a uniform value in [0, 1)
func (l *LCG) NextFloat() float32 {
	// Keep 24 mantissa-safe bits so the quotient is exact in float32.
	return float32(l.Next()>>8) * (1.0 / 16777216.0)
}

// NextRange advances the generator and maps the result to [min, max).
//
// Parameters:
//   - min: inclusive lower bound
//   - max: exclusive upper bound
//
// Returns:
//   - float32: a uniform value in [min, max)
func (l *LCG) NextRange(min, max float32) float32 {
	return min + l.NextFloat()*(max-min)
}

// State returns the current raw generator state, as stored in a particle's
// seed field between frames.
//
// Returns:
//   - uint32: the current state
func (l *LCG) State() uint32 {
	return l.state
}
