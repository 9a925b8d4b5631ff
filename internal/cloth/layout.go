package cloth

import "gonum.org/v1/gonum/spatial/r3"

// PlaneLayout returns row-major positions of a flat width x height grid in
// the XZ plane, spaced by spacing and centred on origin the way a generated
// plane mesh is: node (x, y) sits at (x - width/2, 0, y - height/2) before
// scaling.
func PlaneLayout(width, height int, spacing float64, origin r3.Vec) []r3.Vec {
	halfW := float64(width) / 2
	halfH := float64(height) / 2

	positions := make([]r3.Vec, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			local := r3.Vec{X: float64(x) - halfW, Z: float64(y) - halfH}
			positions = append(positions, r3.Add(origin, r3.Scale(spacing, local)))
		}
	}
	return positions
}
