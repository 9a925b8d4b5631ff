package cloth

import "gonum.org/v1/gonum/spatial/r3"

// MassPoint is a unit mass. Constrained points accumulate velocity like any
// other point but are never moved by integration.
type MassPoint struct {
	Position    r3.Vec
	Velocity    r3.Vec
	Constrained bool
}

// Store owns the mass points of a cloth. Its length is fixed at
// construction so spring indices stay valid for its whole lifetime.
type Store struct {
	points []MassPoint
}

// NewStore creates one point per position, at rest. The first pinned
// points (the first grid row) are constrained.
func NewStore(positions []r3.Vec, pinned int) *Store {
	s := &Store{points: make([]MassPoint, len(positions))}
	for i, p := range positions {
		s.points[i] = MassPoint{Position: p, Constrained: i < pinned}
	}
	return s
}

func (s *Store) Len() int { return len(s.points) }

func (s *Store) At(i int) MassPoint { return s.points[i] }

func (s *Store) Position(i int) r3.Vec { return s.points[i].Position }

func (s *Store) AddVelocity(i int, dv r3.Vec) {
	s.points[i].Velocity = r3.Add(s.points[i].Velocity, dv)
}

// Integrate advances every unconstrained point by velocity*dt.
func (s *Store) Integrate(dt float64) {
	for i := range s.points {
		p := &s.points[i]
		if p.Constrained {
			continue
		}
		p.Position = r3.Add(p.Position, r3.Scale(dt, p.Velocity))
	}
}

// PositionsInto copies the positions into dst, growing it if needed, and
// returns it.
func (s *Store) PositionsInto(dst []r3.Vec) []r3.Vec {
	dst = resize(dst, len(s.points))
	for i := range s.points {
		dst[i] = s.points[i].Position
	}
	return dst
}

// VelocitiesInto copies the velocities into dst, growing it if needed, and
// returns it.
func (s *Store) VelocitiesInto(dst []r3.Vec) []r3.Vec {
	dst = resize(dst, len(s.points))
	for i := range s.points {
		dst[i] = s.points[i].Velocity
	}
	return dst
}

func resize(v []r3.Vec, n int) []r3.Vec {
	if cap(v) < n {
		return make([]r3.Vec, n)
	}
	return v[:n]
}
