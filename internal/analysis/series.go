package analysis

import (
	"github.com/san-kum/clothfield/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func ParseAxis(s string) (Axis, bool) {
	switch s {
	case "x", "X":
		return AxisX, true
	case "y", "Y":
		return AxisY, true
	case "z", "Z":
		return AxisZ, true
	}
	return 0, false
}

func (a Axis) Of(v r3.Vec) float64 {
	switch a {
	case AxisX:
		return v.X
	case AxisZ:
		return v.Z
	}
	return v.Y
}

// Series maps every frame to one value.
func Series(frames []dynamo.Frame, fn func(*dynamo.Frame) float64) []float64 {
	out := make([]float64, len(frames))
	for i := range frames {
		out[i] = fn(&frames[i])
	}
	return out
}

// PointAxis extracts one position coordinate of one point. Frames without
// that point yield zero.
func PointAxis(point int, axis Axis) func(*dynamo.Frame) float64 {
	return func(f *dynamo.Frame) float64 {
		if point < 0 || point >= len(f.Positions) {
			return 0
		}
		return axis.Of(f.Positions[point])
	}
}

// SampleInterval returns the mean spacing of the frame times.
func SampleInterval(frames []dynamo.Frame) float64 {
	if len(frames) < 2 {
		return 0
	}
	return (frames[len(frames)-1].Time - frames[0].Time) / float64(len(frames)-1)
}
