package dynamo

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestFrame_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		valid bool
	}{
		{"empty", Frame{}, true},
		{"normal", Frame{Positions: []r3.Vec{{X: 1, Y: 2, Z: 3}}, Velocities: []r3.Vec{{}}}, true},
		{"NaN position", Frame{Positions: []r3.Vec{{X: 1}, {Y: math.NaN()}}}, false},
		{"+Inf velocity", Frame{Velocities: []r3.Vec{{Z: math.Inf(1)}}}, false},
		{"-Inf position", Frame{Positions: []r3.Vec{{X: math.Inf(-1)}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.frame.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestFrame_Clone(t *testing.T) {
	f := Frame{
		Index:      3,
		Time:       0.5,
		Positions:  []r3.Vec{{X: 1}, {X: 2}},
		Velocities: []r3.Vec{{Y: 1}, {Y: 2}},
	}

	c := f.Clone()
	c.Positions[0].X = 100
	c.Velocities[1].Y = 100

	if f.Positions[0].X != 1 || f.Velocities[1].Y != 2 {
		t.Error("Clone shares storage with the original")
	}
	if c.Index != 3 || c.Time != 0.5 {
		t.Errorf("Clone lost scalar fields: %+v", c)
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b     r3.Vec
		expected float64
	}{
		{r3.Vec{X: 3, Y: 4}, r3.Vec{}, 5.0},
		{r3.Vec{X: 1}, r3.Vec{X: 1}, 0.0},
		{r3.Vec{X: 1, Y: 1, Z: 1}, r3.Vec{X: -1, Y: -1, Z: -1}, 2 * math.Sqrt(3)},
	}

	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); math.Abs(got-tt.expected) > 1e-10 {
			t.Errorf("Distance(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.expected)
		}
	}
}

func TestResult_Times(t *testing.T) {
	r := Result{Frames: []Frame{{Time: 0}, {Time: 0.25}, {Time: 1}}}
	times := r.Times()
	if len(times) != 3 || times[1] != 0.25 || times[2] != 1 {
		t.Errorf("unexpected times %v", times)
	}
}

func TestSimulationError(t *testing.T) {
	err := &SimulationError{Frame: 12, Time: 0.2, Wrapped: ErrInvalidState}

	if !errors.Is(err, ErrInvalidState) {
		t.Error("SimulationError should unwrap to its cause")
	}
	if got := err.Error(); got != "frame 12 (t=0.2000): dynamo: invalid state (NaN or Inf detected)" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.FixedDt <= 0 || cfg.FrameDt <= 0 || cfg.MaxSubsteps < 1 || cfg.RecordEvery < 1 {
		t.Errorf("default config is not runnable: %+v", cfg)
	}
}
