package dynamo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Frame is the state published once per render frame. Positions are ordered
// row-major, in the order the cloth grid was constructed.
type Frame struct {
	Index       int
	Time        float64
	PhysicsTime float64
	Ticks       int
	Positions   []r3.Vec
	Velocities  []r3.Vec
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() Frame {
	c := *f
	c.Positions = append([]r3.Vec(nil), f.Positions...)
	c.Velocities = append([]r3.Vec(nil), f.Velocities...)
	return c
}

// IsValid reports whether every position and velocity is finite.
func (f *Frame) IsValid() bool {
	for _, p := range f.Positions {
		if !IsFinite(p) {
			return false
		}
	}
	for _, v := range f.Velocities {
		if !IsFinite(v) {
			return false
		}
	}
	return true
}

type Metric interface {
	Name() string
	Observe(f *Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnFrame(f *Frame)
}

// Configurable is implemented by anything whose scalar parameters can be
// listed and changed by name.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Config controls the two update cadences of a run. FixedDt is the constant
// physics step; FrameDt is the nominal render frame time.
type Config struct {
	FixedDt       float64
	FrameDt       float64
	Duration      float64
	MaxSubsteps   int
	RecordEvery   int
	FrameJitter   float64
	Seed          int64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		FixedDt:       0.02,
		FrameDt:       1.0 / 60.0,
		Duration:      10.0,
		MaxSubsteps:   16,
		RecordEvery:   1,
		ValidateState: true,
	}
}

type Result struct {
	Frames      []Frame
	Metrics     map[string]float64
	FramesRun   int
	FixedTicks  int
	DroppedTime float64
	Errors      []error
}

// Times returns the render time of every recorded frame.
func (r *Result) Times() []float64 {
	times := make([]float64, len(r.Frames))
	for i := range r.Frames {
		times[i] = r.Frames[i].Time
	}
	return times
}

// IsFinite reports whether all components of v are finite.
func IsFinite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}
