package field

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/san-kum/clothfield/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	DefaultCells = 3
	DefaultScale = 1.0
	DefaultSpeed = 1.0

	// MaxSeed bounds the per-cell seeds, exclusive.
	MaxSeed = 1_000_000
)

type Config struct {
	CellsX, CellsY, CellsZ int
	Scale                  float64
	Speed                  float64
	// Seed drives the per-cell seeds when no rng is passed to New. Zero
	// seeds from the wall clock.
	Seed      int64
	NoiseSeed int64
}

func DefaultConfig() Config {
	return Config{
		CellsX: DefaultCells,
		CellsY: DefaultCells,
		CellsZ: DefaultCells,
		Scale:  DefaultScale,
		Speed:  DefaultSpeed,
	}
}

func (c Config) Validate() error {
	if c.CellsX <= 0 || c.CellsY <= 0 || c.CellsZ <= 0 {
		return fmt.Errorf("%w: cells %dx%dx%d", dynamo.ErrEmptyLattice, c.CellsX, c.CellsY, c.CellsZ)
	}
	if c.Scale < 0 || math.IsNaN(c.Scale) || math.IsInf(c.Scale, 0) {
		return fmt.Errorf("%w: field scale must be finite and non-negative, got %f", dynamo.ErrInvalidConfig, c.Scale)
	}
	if c.Speed < 0 || math.IsNaN(c.Speed) || math.IsInf(c.Speed, 0) {
		return fmt.Errorf("%w: field speed must be finite and non-negative, got %f", dynamo.ErrInvalidConfig, c.Speed)
	}
	return nil
}

// Cell is one lattice site. Position and Seed never change after
// construction; Vector is rewritten by every Update.
type Cell struct {
	Position r3.Vec
	Vector   r3.Vec
	Seed     int
}

type Field struct {
	cfg     Config
	cells   []Cell
	half    [3]int
	noise   Noise
	elapsed float64
}

// New allocates the lattice and assigns every cell a seed in [0, MaxSeed)
// drawn from rng. Cells are stored x-major, then y, then z; that order is
// also the scan order of ClosestForce. A nil rng is replaced by one seeded
// from cfg.Seed.
func New(cfg Config, rng *rand.Rand) (*Field, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}

	f := &Field{
		cfg:   cfg,
		cells: make([]Cell, 0, cfg.CellsX*cfg.CellsY*cfg.CellsZ),
		half:  [3]int{cfg.CellsX / 2, cfg.CellsY / 2, cfg.CellsZ / 2},
		noise: NewSimplexNoise(cfg.NoiseSeed),
	}

	for x := 0; x < cfg.CellsX; x++ {
		for y := 0; y < cfg.CellsY; y++ {
			for z := 0; z < cfg.CellsZ; z++ {
				f.cells = append(f.cells, Cell{
					Position: r3.Vec{
						X: float64(x - f.half[0]),
						Y: float64(y - f.half[1]),
						Z: float64(z - f.half[2]),
					},
					Seed: rng.Intn(MaxSeed),
				})
			}
		}
	}

	return f, nil
}

// SetNoise replaces the noise source. Cell vectors are not recomputed until
// the next Update.
func (f *Field) SetNoise(n Noise) {
	f.noise = n
}

func (f *Field) Config() Config   { return f.cfg }
func (f *Field) Len() int         { return len(f.cells) }
func (f *Field) Elapsed() float64 { return f.elapsed }

// Cells returns a copy of the lattice in scan order.
func (f *Field) Cells() []Cell {
	return append([]Cell(nil), f.cells...)
}

// Update regenerates every cell vector for the given elapsed simulation
// time. The x component samples the (x, y) plane, y samples (y, z) and z
// samples (z, x).
func (f *Field) Update(elapsed float64) {
	f.elapsed = elapsed
	t := elapsed * f.cfg.Speed
	scale := f.cfg.Scale

	for i := range f.cells {
		c := &f.cells[i]
		off := t + float64(c.Seed)
		px := c.Position.X*scale + off
		py := c.Position.Y*scale + off
		pz := c.Position.Z*scale + off

		c.Vector = r3.Vec{
			X: sample(f.noise, px, py),
			Y: sample(f.noise, py, pz),
			Z: sample(f.noise, pz, px),
		}
	}
}

// ClosestForce returns the vector of the cell nearest to p. Ties go to the
// cell that comes first in scan order.
func (f *Field) ClosestForce(p r3.Vec) r3.Vec {
	best := math.MaxFloat64
	var closest r3.Vec
	for i := range f.cells {
		d := dynamo.Distance(p, f.cells[i].Position)
		if d < best {
			best = d
			closest = f.cells[i].Vector
		}
	}
	return closest
}

// IsOutside reports whether p lies outside the lattice bounds on any axis.
// The half extents use integer division, so odd extents give the same
// asymmetric box the cells are placed in.
func (f *Field) IsOutside(p r3.Vec) bool {
	hx, hy, hz := float64(f.half[0]), float64(f.half[1]), float64(f.half[2])
	return p.X < -hx || p.X > hx ||
		p.Y < -hy || p.Y > hy ||
		p.Z < -hz || p.Z > hz
}

// Bounds returns the box tested by IsOutside.
func (f *Field) Bounds() r3.Box {
	hx, hy, hz := float64(f.half[0]), float64(f.half[1]), float64(f.half[2])
	return r3.Box{
		Min: r3.Vec{X: -hx, Y: -hy, Z: -hz},
		Max: r3.Vec{X: hx, Y: hy, Z: hz},
	}
}
