package pagerank

import (
	"math/rand/v2"
	"time"
)

// seedStream decorrelates the PCG stream from the seed itself.
const seedStream = 0x9e3779b97f4a7c15

// NewSource returns a PCG-backed Source for seed. A zero seed is replaced
// by one derived from the clock; the seed actually used is returned so the
// run can be repeated.
func NewSource(seed uint64) (*rand.Rand, uint64) {
	for seed == 0 {
		seed = uint64(time.Now().UnixNano()) //nolint:gosec // Only the bits matter
	}
	return rand.New(rand.NewPCG(seed, seed^seedStream)), seed //nolint:gosec // Simulation, not cryptography
}
