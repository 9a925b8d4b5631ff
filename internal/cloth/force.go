package cloth

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// SpringForce returns the force a spring applies to its A endpoint; B
// receives the negation. Length beyond MaxLength adds no force and a zero
// length spring yields zero force.
func SpringForce(a, b r3.Vec, s Spring, stiffness float64) r3.Vec {
	d := r3.Sub(b, a)
	length := r3.Norm(d)
	if length == 0 {
		return r3.Vec{}
	}

	stretch := math.Min(length, s.MaxLength) - s.RestLength
	return r3.Scale(stretch*stiffness/length, d)
}
