package metrics

import (
	"math"

	"github.com/san-kum/clothfield/internal/cloth"
	"github.com/san-kum/clothfield/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"
)

// MaxStrain tracks the largest relative spring extension, |d|/rest - 1,
// seen in any frame.
type MaxStrain struct {
	name    string
	springs []cloth.Spring
	max     float64
}

func NewMaxStrain(springs []cloth.Spring) *MaxStrain {
	return &MaxStrain{name: "max_strain", springs: springs}
}

func (m *MaxStrain) Name() string { return m.name }

func (m *MaxStrain) Observe(f *dynamo.Frame) {
	m.max = math.Max(m.max, FrameStrain(f, m.springs))
}

func (m *MaxStrain) Value() float64 { return m.max }
func (m *MaxStrain) Reset()         { m.max = 0 }

// FrameStrain returns the largest relative extension of any spring in f,
// or 0 when every spring is at or below its rest length.
func FrameStrain(f *dynamo.Frame, springs []cloth.Spring) float64 {
	worst := 0.0
	for _, s := range springs {
		if s.RestLength == 0 || s.A >= len(f.Positions) || s.B >= len(f.Positions) {
			continue
		}
		worst = math.Max(worst, dynamo.Distance(f.Positions[s.A], f.Positions[s.B])/s.RestLength-1)
	}
	return worst
}

// MeanHeight reports the mean Y coordinate of the points in the last frame.
type MeanHeight struct {
	name    string
	heights []float64
	value   float64
}

func NewMeanHeight() *MeanHeight {
	return &MeanHeight{name: "mean_height"}
}

func (m *MeanHeight) Name() string { return m.name }

func (m *MeanHeight) Observe(f *dynamo.Frame) {
	if len(f.Positions) == 0 {
		return
	}
	m.heights = m.heights[:0]
	for _, p := range f.Positions {
		m.heights = append(m.heights, p.Y)
	}
	m.value = stat.Mean(m.heights, nil)
}

func (m *MeanHeight) Value() float64 { return m.value }
func (m *MeanHeight) Reset()         { m.value = 0 }

// Region reports whether a point lies outside a force field.
type Region interface {
	IsOutside(p r3.Vec) bool
}

// FieldExposure is the average fraction of points inside the field.
type FieldExposure struct {
	name    string
	region  Region
	sum     float64
	samples int
}

func NewFieldExposure(region Region) *FieldExposure {
	return &FieldExposure{name: "field_exposure", region: region}
}

func (e *FieldExposure) Name() string { return e.name }

func (e *FieldExposure) Observe(f *dynamo.Frame) {
	if len(f.Positions) == 0 {
		return
	}
	inside := 0
	for _, p := range f.Positions {
		if !e.region.IsOutside(p) {
			inside++
		}
	}
	e.sum += float64(inside) / float64(len(f.Positions))
	e.samples++
}

func (e *FieldExposure) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.sum / float64(e.samples)
}

func (e *FieldExposure) Reset() {
	e.sum = 0
	e.samples = 0
}
