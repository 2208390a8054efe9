// SPDX-License-Identifier: MIT
// Package noise provides the coherent 3D noise that perturbs the meshes.
package noise

import (
	"math"
	"time"

	"github.com/ojrac/opensimplex-go"
)

// Field is a seeded OpenSimplex noise function. It holds no state besides the
// permutation tables built from the seed, so Sample is safe for concurrent use.
type Field struct {
	seed  int64
	noise opensimplex.Noise
}

// New builds a Field from seed. A zero seed picks one from the clock; the
// chosen value is available through Seed so runs can be reproduced.
func New(seed int64) *Field {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Field{
		seed:  seed,
		noise: opensimplex.New(seed),
	}
}

// Seed returns the seed the field was built with.
func (f *Field) Seed() int64 {
	return f.seed
}

// Sample returns the noise value at (x, y, z), clamped to [-1, 1].
func (f *Field) Sample(x, y, z float64) float64 {
	return math.Max(-1, math.Min(1, f.noise.Eval3(x, y, z)))
}
