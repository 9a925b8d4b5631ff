package cloth

import (
	"fmt"

	"github.com/san-kum/clothfield/internal/dynamo"
)

type Kind uint8

const (
	StructuralX Kind = iota
	StructuralY
	Shear
)

func (k Kind) String() string {
	switch k {
	case StructuralX:
		return "structural-x"
	case StructuralY:
		return "structural-y"
	case Shear:
		return "shear"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Spring links points A and B of a Store. RestLength is the endpoint
// distance at construction; MaxLength caps the stretch that produces force.
type Spring struct {
	A, B       int
	Kind       Kind
	RestLength float64
	MaxLength  float64
}

// Network is the fixed spring topology of a width x height grid.
type Network struct {
	width, height int
	springs       []Spring
}

// SpringCount returns the number of springs a width x height grid gets.
func SpringCount(width, height int) int {
	return (width-1)*height + width*(height-1) + (width-1)*(height-1)
}

// NewNetwork links the grid stored row-major in s. Every node gets a
// structural-x link to its right neighbour, a structural-y link to the node
// below and a shear link to the diagonal, where those exist, so each
// undirected pair appears once. Max lengths are assigned once all links
// exist.
func NewNetwork(width, height int, s *Store, elasticity float64) (*Network, error) {
	if width < 2 || height < 2 {
		return nil, fmt.Errorf("%w: got %dx%d", dynamo.ErrGridTooSmall, width, height)
	}
	if s.Len() != width*height {
		return nil, fmt.Errorf("%w: %d points for a %dx%d grid", dynamo.ErrInvalidConfig, s.Len(), width, height)
	}
	if elasticity <= 0 {
		return nil, fmt.Errorf("%w: elasticity must be positive, got %f", dynamo.ErrInvalidConfig, elasticity)
	}

	n := &Network{
		width:   width,
		height:  height,
		springs: make([]Spring, 0, SpringCount(width, height)),
	}

	link := func(a, b int, kind Kind) {
		n.springs = append(n.springs, Spring{
			A:          a,
			B:          b,
			Kind:       kind,
			RestLength: dynamo.Distance(s.Position(a), s.Position(b)),
		})
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if x < width-1 {
				link(i, i+1, StructuralX)
			}
			if y < height-1 {
				link(i, i+width, StructuralY)
			}
			if x < width-1 && y < height-1 {
				link(i, i+width+1, Shear)
			}
		}
	}

	for i := range n.springs {
		n.springs[i].MaxLength = n.springs[i].RestLength * elasticity
	}

	return n, nil
}

func (n *Network) Width() int  { return n.width }
func (n *Network) Height() int { return n.height }
func (n *Network) Len() int    { return len(n.springs) }

// Springs returns the springs in construction order. The slice is shared;
// callers must not modify it.
func (n *Network) Springs() []Spring { return n.springs }
