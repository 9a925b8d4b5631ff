package field_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/clothfield/internal/dynamo"
	"github.com/san-kum/clothfield/internal/field"
	"gonum.org/v1/gonum/spatial/r3"
)

// countingNoise hands out a distinct value per call so every cell ends up
// with a different vector.
type countingNoise struct{ n int }

func (c *countingNoise) Eval2(x, y float64) float64 {
	c.n++
	return float64(c.n%97) / 96
}

func newField(cfg field.Config, seed int64) *field.Field {
	f, err := field.New(cfg, rand.New(rand.NewSource(seed)))
	Expect(err).NotTo(HaveOccurred())
	return f
}

func cube(n int) field.Config {
	cfg := field.DefaultConfig()
	cfg.CellsX, cfg.CellsY, cfg.CellsZ = n, n, n
	return cfg
}

var _ = Describe("Field", func() {
	Describe("construction", func() {
		It("rejects an empty lattice", func() {
			for _, cfg := range []field.Config{
				{CellsX: 0, CellsY: 3, CellsZ: 3, Scale: 1, Speed: 1},
				{CellsX: 3, CellsY: 0, CellsZ: 3, Scale: 1, Speed: 1},
				{CellsX: 3, CellsY: 3, CellsZ: -1, Scale: 1, Speed: 1},
			} {
				_, err := field.New(cfg, nil)
				Expect(err).To(MatchError(dynamo.ErrEmptyLattice))
			}
		})

		It("rejects negative scale or speed", func() {
			cfg := cube(3)
			cfg.Speed = -1
			_, err := field.New(cfg, nil)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfig))

			cfg = cube(3)
			cfg.Scale = -0.5
			_, err = field.New(cfg, nil)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
		})

		It("places cells around the origin with integer division", func() {
			f := newField(cube(3), 1)
			Expect(f.Len()).To(Equal(27))

			cells := f.Cells()
			Expect(cells[0].Position).To(Equal(r3.Vec{X: -1, Y: -1, Z: -1}))
			Expect(cells[1].Position).To(Equal(r3.Vec{X: -1, Y: -1, Z: 0}))
			Expect(cells[3].Position).To(Equal(r3.Vec{X: -1, Y: 0, Z: -1}))
			Expect(cells[26].Position).To(Equal(r3.Vec{X: 1, Y: 1, Z: 1}))
		})

		It("keeps the off-centre layout for even extents", func() {
			cfg := field.Config{CellsX: 4, CellsY: 1, CellsZ: 2, Scale: 1, Speed: 1}
			f := newField(cfg, 1)
			cells := f.Cells()
			Expect(cells[0].Position).To(Equal(r3.Vec{X: -2, Y: 0, Z: -1}))
			Expect(cells[len(cells)-1].Position).To(Equal(r3.Vec{X: 1, Y: 0, Z: 0}))
		})

		It("draws seeds in [0, MaxSeed)", func() {
			f := newField(cube(5), 7)
			for _, c := range f.Cells() {
				Expect(c.Seed).To(BeNumerically(">=", 0))
				Expect(c.Seed).To(BeNumerically("<", field.MaxSeed))
			}
		})
	})

	Describe("Update", func() {
		It("keeps every component in [-1, 1]", func() {
			f := newField(cube(4), 3)
			for _, elapsed := range []float64{0, 0.5, 3.25, 100} {
				f.Update(elapsed)
				for _, c := range f.Cells() {
					Expect(c.Vector.X).To(BeNumerically("~", 0, 1))
					Expect(c.Vector.Y).To(BeNumerically("~", 0, 1))
					Expect(c.Vector.Z).To(BeNumerically("~", 0, 1))
				}
			}
		})

		It("is reproducible for identical seeds and time", func() {
			a := newField(cube(3), 42)
			b := newField(cube(3), 42)
			a.Update(1.75)
			b.Update(1.75)
			Expect(a.Cells()).To(Equal(b.Cells()))
		})

		It("evolves with time", func() {
			f := newField(cube(3), 42)
			f.Update(0)
			before := f.Cells()
			f.Update(0.37)
			Expect(f.Cells()).NotTo(Equal(before))
		})

		It("does not drift when speed is zero", func() {
			cfg := cube(3)
			cfg.Speed = 0
			f := newField(cfg, 9)
			q := r3.Vec{X: 0.2, Y: -0.3, Z: 0.1}

			f.Update(0)
			first := f.ClosestForce(q)
			f.Update(12.5)
			Expect(f.ClosestForce(q)).To(Equal(first))
			Expect(f.ClosestForce(q)).To(Equal(first))
		})

		It("maps noise 0 and 1 to +1 and -1", func() {
			f := newField(field.Config{CellsX: 1, CellsY: 1, CellsZ: 1, Scale: 1}, 1)
			f.SetNoise(constNoise(0))
			f.Update(0)
			Expect(f.Cells()[0].Vector).To(Equal(r3.Vec{X: 1, Y: 1, Z: 1}))

			f.SetNoise(constNoise(1))
			f.Update(0)
			Expect(f.Cells()[0].Vector).To(Equal(r3.Vec{X: -1, Y: -1, Z: -1}))
		})
	})

	Describe("ClosestForce", func() {
		var f *field.Field

		BeforeEach(func() {
			f = newField(cube(3), 5)
			f.SetNoise(&countingNoise{})
			f.Update(0)
		})

		It("returns a cell's own vector at its position", func() {
			for _, c := range f.Cells() {
				Expect(f.ClosestForce(c.Position)).To(Equal(c.Vector))
			}
		})

		It("returns the nearest cell's vector", func() {
			cells := f.Cells()
			q := r3.Vec{X: 0.9, Y: -1.2, Z: 0.4}
			best := 0
			for i, c := range cells {
				if dynamo.Distance(q, c.Position) < dynamo.Distance(q, cells[best].Position) {
					best = i
				}
			}
			Expect(f.ClosestForce(q)).To(Equal(cells[best].Vector))
		})

		It("breaks ties by scan order", func() {
			cells := f.Cells()
			// Equidistant from (-1,-1,-1) and (-1,-1,0); the former is scanned first.
			q := r3.Vec{X: -1, Y: -1, Z: -0.5}
			Expect(cells[0].Vector).NotTo(Equal(cells[1].Vector))
			Expect(f.ClosestForce(q)).To(Equal(cells[0].Vector))
		})

		It("clamps far queries to the border cells", func() {
			cells := f.Cells()
			Expect(f.ClosestForce(r3.Vec{X: 50, Y: 50, Z: 50})).To(Equal(cells[26].Vector))
		})
	})

	Describe("IsOutside", func() {
		DescribeTable("odd extent 3 gives [-1, 1]",
			func(p r3.Vec, outside bool) {
				f := newField(cube(3), 1)
				Expect(f.IsOutside(p)).To(Equal(outside))
			},
			Entry("origin", r3.Vec{}, false),
			Entry("corner", r3.Vec{X: 1, Y: -1, Z: 1}, false),
			Entry("past +x", r3.Vec{X: 1.01}, true),
			Entry("past -y", r3.Vec{Y: -1.01}, true),
			Entry("past +z", r3.Vec{Z: 2}, true),
		)

		It("uses the truncated half extent per axis", func() {
			f := newField(field.Config{CellsX: 4, CellsY: 1, CellsZ: 5, Scale: 1, Speed: 1}, 1)
			Expect(f.IsOutside(r3.Vec{X: 2})).To(BeFalse())
			Expect(f.IsOutside(r3.Vec{X: -2})).To(BeFalse())
			Expect(f.IsOutside(r3.Vec{X: 2.001})).To(BeTrue())
			Expect(f.IsOutside(r3.Vec{Y: 0.001})).To(BeTrue())
			Expect(f.IsOutside(r3.Vec{Z: -2})).To(BeFalse())
			Expect(f.IsOutside(r3.Vec{Z: 2.5})).To(BeTrue())
		})

		It("agrees with Bounds", func() {
			f := newField(field.Config{CellsX: 5, CellsY: 3, CellsZ: 2, Scale: 1, Speed: 1}, 1)
			b := f.Bounds()
			Expect(b.Min).To(Equal(r3.Vec{X: -2, Y: -1, Z: -1}))
			Expect(b.Max).To(Equal(r3.Vec{X: 2, Y: 1, Z: 1}))
			Expect(f.IsOutside(b.Min)).To(BeFalse())
			Expect(f.IsOutside(b.Max)).To(BeFalse())
		})
	})
})

type constNoise float64

func (c constNoise) Eval2(x, y float64) float64 { return float64(c) }
