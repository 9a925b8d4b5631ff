// Package field implements a time-evolving 3D vector force field.
//
// A [Field] is a lattice of cells laid out around the origin. Every cell has
// a fixed integer position, a fixed random seed and a direction vector that
// is regenerated from coherent noise on every physics tick:
//
//	f, err := field.New(field.DefaultConfig(), nil)
//	f.Update(elapsed)
//	force := f.ClosestForce(p)
//
// Queries return the vector of the nearest cell without interpolation. The
// lookup is a linear scan over all cells, so it is meant for small lattices.
package field
