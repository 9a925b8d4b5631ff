package metrics

import (
	"github.com/san-kum/clothfield/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// KineticEnergy averages the total kinetic energy of the unit-mass points
// over all observed frames.
type KineticEnergy struct {
	name     string
	energies []float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(f *dynamo.Frame) {
	e.energies = append(e.energies, FrameEnergy(f))
}

func (e *KineticEnergy) Value() float64 {
	if len(e.energies) == 0 {
		return 0
	}
	return stat.Mean(e.energies, nil)
}

// Last returns the energy of the most recent frame.
func (e *KineticEnergy) Last() float64 {
	if len(e.energies) == 0 {
		return 0
	}
	return e.energies[len(e.energies)-1]
}

// Series returns the per-frame energies observed since the last reset.
func (e *KineticEnergy) Series() []float64 { return e.energies }

func (e *KineticEnergy) Reset() {
	e.energies = e.energies[:0]
}

// FrameEnergy is the kinetic energy of a frame with unit point masses.
func FrameEnergy(f *dynamo.Frame) float64 {
	total := 0.0
	for _, v := range f.Velocities {
		total += 0.5 * r3.Norm2(v)
	}
	return total
}

// Travel measures how far points move per frame on average.
type Travel struct {
	name    string
	prev    []r3.Vec
	sum     float64
	samples int
}

func NewTravel() *Travel {
	return &Travel{name: "travel"}
}

func (t *Travel) Name() string { return t.name }

func (t *Travel) Observe(f *dynamo.Frame) {
	if len(t.prev) == len(f.Positions) && len(f.Positions) > 0 {
		moved := 0.0
		for i, p := range f.Positions {
			moved += dynamo.Distance(p, t.prev[i])
		}
		t.sum += moved / float64(len(f.Positions))
		t.samples++
	}
	t.prev = append(t.prev[:0], f.Positions...)
}

func (t *Travel) Value() float64 {
	if t.samples == 0 {
		return 0
	}
	return t.sum / float64(t.samples)
}

func (t *Travel) Reset() {
	t.prev = t.prev[:0]
	t.sum = 0
	t.samples = 0
}
