package metrics

import (
	"github.com/san-kum/clothfield/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Stability is the fraction of frames in which the cloth stayed within
// radius of the origin with finite positions and velocities. A cloth that
// blows up leaves the radius long before it overflows.
type Stability struct {
	name   string
	radius float64

	frames, unstable int
	first            int
}

func NewStability(radius float64) *Stability {
	return &Stability{name: "stability", radius: radius, first: -1}
}

func (s *Stability) Name() string { return s.name }

func (s *Stability) Observe(f *dynamo.Frame) {
	s.frames++
	if s.stable(f) {
		return
	}
	s.unstable++
	if s.first < 0 {
		s.first = f.Index
	}
}

func (s *Stability) stable(f *dynamo.Frame) bool {
	for _, p := range f.Positions {
		if !dynamo.IsFinite(p) || r3.Norm(p) > s.radius {
			return false
		}
	}
	for _, v := range f.Velocities {
		if !dynamo.IsFinite(v) {
			return false
		}
	}
	return true
}

func (s *Stability) Value() float64 {
	if s.frames == 0 {
		return 1
	}
	return 1 - float64(s.unstable)/float64(s.frames)
}

// FirstUnstable returns the index of the first unstable frame, or -1.
func (s *Stability) FirstUnstable() int { return s.first }

func (s *Stability) Reset() {
	s.frames, s.unstable, s.first = 0, 0, -1
}
