package field

import (
	"math"

	"github.com/ojrac/opensimplex-go"
)

// Noise is a deterministic, continuous 2D noise source returning values in
// [0, 1].
type Noise interface {
	Eval2(x, y float64) float64
}

type simplexNoise struct {
	base opensimplex.Noise
}

// NewSimplexNoise returns OpenSimplex noise normalized to [0, 1].
func NewSimplexNoise(seed int64) Noise {
	return &simplexNoise{base: opensimplex.NewNormalized(seed)}
}

func (n *simplexNoise) Eval2(x, y float64) float64 {
	// The normalization constants are empirical; keep the axis bound exact.
	return math.Min(1, math.Max(0, n.base.Eval2(x, y)))
}

// sample remaps a noise value at (u, v) from [0, 1] to [-1, 1].
func sample(n Noise, u, v float64) float64 {
	return 2 * (0.5 - n.Eval2(u, v))
}
