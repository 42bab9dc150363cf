package block

import (
	"cmp"
	"slices"

	"github.com/pkg/errors"

	"github.com/fumin/dmrg/kron"
	"github.com/fumin/dmrg/model"
)

// Super is the product space of a left and a right block, ordered by total quantum number.
// States of equal quantum number keep the order of their product index i + j*nl.
type Super struct {
	nl   int
	nr   int
	fuse func(a, b int) int

	permutation        []int
	permutationInverse []int
	partition          []int
	qns                []int
}

// NewSuper orders the product space of left and right.
func NewSuper(left, right *Block, fuse func(a, b int) int) *Super {
	s := &Super{nl: left.Size(), nr: right.Size(), fuse: fuse}
	lq, rq := left.StateQuantumNumbers(), right.StateQuantumNumbers()
	qn := func(p int) int { return fuse(lq[p%s.nl], rq[p/s.nl]) }

	n := s.nl * s.nr
	s.permutation = make([]int, n)
	for p := range n {
		s.permutation[p] = p
	}
	slices.SortStableFunc(s.permutation, func(a, b int) int { return cmp.Compare(qn(a), qn(b)) })

	s.permutationInverse = make([]int, n)
	for r, p := range s.permutation {
		s.permutationInverse[p] = r
		if r == 0 || qn(p) != qn(s.permutation[r-1]) {
			s.partition = append(s.partition, r)
			s.qns = append(s.qns, qn(p))
		}
	}
	s.partition = append(s.partition, n)
	return s
}

func (s *Super) Permutation() []int        { return s.permutation }
func (s *Super) PermutationInverse() []int { return s.permutationInverse }
func (s *Super) Partition() []int          { return s.partition }
func (s *Super) QuantumNumbers() []int     { return s.qns }
func (s *Super) Fuse(a, b int) int         { return s.fuse(a, b) }

// Size returns the dimension of the product space.
func (s *Super) Size() int { return len(s.permutation) }

// Sector returns the offset and size of the sector of quantum number qn.
func (s *Super) Sector(qn int) (int, int, bool) {
	m := slices.Index(s.qns, qn)
	if m < 0 {
		return 0, 0, false
	}
	return s.partition[m], s.partition[m+1] - s.partition[m], true
}

// Connections enumerates the bonds between the edge sites of a left and a right block.
type Connections struct {
	bonds       []model.Bond
	left        *Block
	right       *Block
	orientation kron.Orientation
}

// NewConnections returns the bond terms between left and right.
// With kron.EnvironSystem, every term lists the operator of the right block first.
func NewConnections(m model.Model, left, right *Block, orientation kron.Orientation) *Connections {
	return &Connections{bonds: m.Bonds(), left: left, right: right, orientation: orientation}
}

func (c *Connections) Len() int { return len(c.bonds) }

func (c *Connections) Connection(i int) (kron.BondTerm, error) {
	bond := c.bonds[i]
	a, ok := c.left.Op(bond.Left)
	if !ok {
		return kron.BondTerm{}, errors.Errorf("left block has no operator %q", bond.Left)
	}
	b, ok := c.right.Op(bond.Right)
	if !ok {
		return kron.BondTerm{}, errors.Errorf("right block has no operator %q", bond.Right)
	}

	switch c.orientation {
	case kron.SystemEnviron:
		return kron.BondTerm{A: a, B: b, Value: bond.Value, Orientation: kron.SystemEnviron}, nil
	case kron.EnvironSystem:
		return kron.BondTerm{A: b, B: a, Value: bond.Value, Orientation: kron.EnvironSystem}, nil
	default:
		return kron.BondTerm{}, errors.Errorf("%v", c.orientation)
	}
}
