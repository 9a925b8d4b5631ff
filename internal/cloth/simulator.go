package cloth

import (
	"fmt"
	"math"

	"github.com/san-kum/clothfield/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	DefaultWidth      = 10
	DefaultHeight     = 10
	DefaultElasticity = 1.0
	DefaultStiffness  = 1.0
)

var DefaultGravity = r3.Vec{Y: -9.81}

// ForceField is the read-only force source the cloth samples every physics
// tick.
type ForceField interface {
	ClosestForce(p r3.Vec) r3.Vec
	IsOutside(p r3.Vec) bool
}

type Params struct {
	Width, Height int
	Elasticity    float64
	Stiffness     float64
	Gravity       r3.Vec
}

func DefaultParams() Params {
	return Params{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Elasticity: DefaultElasticity,
		Stiffness:  DefaultStiffness,
		Gravity:    DefaultGravity,
	}
}

type Simulator struct {
	params  Params
	store   *Store
	network *Network
	field   ForceField
}

// New builds a cloth from row-major initial positions. The first grid row
// is pinned. field may be nil, in which case only gravity and springs act.
func New(p Params, positions []r3.Vec, field ForceField) (*Simulator, error) {
	if math.IsNaN(p.Stiffness) || math.IsInf(p.Stiffness, 0) {
		return nil, fmt.Errorf("%w: stiffness must be finite", dynamo.ErrInvalidConfig)
	}
	if !dynamo.IsFinite(p.Gravity) {
		return nil, fmt.Errorf("%w: gravity must be finite", dynamo.ErrInvalidConfig)
	}

	store := NewStore(positions, p.Width)
	network, err := NewNetwork(p.Width, p.Height, store, p.Elasticity)
	if err != nil {
		return nil, err
	}

	return &Simulator{
		params:  p,
		store:   store,
		network: network,
		field:   field,
	}, nil
}

func (s *Simulator) Params() Params    { return s.params }
func (s *Simulator) Store() *Store     { return s.store }
func (s *Simulator) Network() *Network { return s.network }
func (s *Simulator) Field() ForceField { return s.field }

// AdvancePhysics accumulates one fixed tick of gravity, field and spring
// forces into point velocities. Positions are not changed.
func (s *Simulator) AdvancePhysics(dt float64) {
	gravity := r3.Scale(dt, s.params.Gravity)
	points := s.store.points

	for i := range points {
		p := &points[i]
		p.Velocity = r3.Add(p.Velocity, gravity)
		if s.field != nil && !s.field.IsOutside(p.Position) {
			p.Velocity = r3.Add(p.Velocity, r3.Scale(dt, s.field.ClosestForce(p.Position)))
		}
	}

	for _, sp := range s.network.springs {
		a, b := &points[sp.A], &points[sp.B]
		impulse := r3.Scale(dt, SpringForce(a.Position, b.Position, sp, s.params.Stiffness))
		a.Velocity = r3.Add(a.Velocity, impulse)
		b.Velocity = r3.Sub(b.Velocity, impulse)
	}
}

// AdvanceRender moves every unconstrained point by its current velocity.
func (s *Simulator) AdvanceRender(dt float64) {
	s.store.Integrate(dt)
}

// Positions returns a row-major copy of the current positions.
func (s *Simulator) Positions() []r3.Vec {
	return s.store.PositionsInto(nil)
}

func (s *Simulator) PositionsInto(dst []r3.Vec) []r3.Vec {
	return s.store.PositionsInto(dst)
}

func (s *Simulator) VelocitiesInto(dst []r3.Vec) []r3.Vec {
	return s.store.VelocitiesInto(dst)
}
