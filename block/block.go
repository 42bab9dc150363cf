// Package block builds the left and right blocks of a chain and the super-block they form.
//
// Blocks are grown exactly, without truncation, one site at a time.
// The basis of every block is sorted by quantum number, so that each symmetry sector is a contiguous range of states.
package block

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/pkg/errors"

	"github.com/fumin/dmrg/model"
	"github.com/fumin/dmrg/sparse"
)

// Block is a group of consecutive sites of a chain.
type Block struct {
	sites int
	h     *sparse.CSR
	// ops are the operators of the edge site that faces the other block.
	ops map[string]*sparse.CSR
	// qns holds the quantum number of each state, sorted non-decreasing.
	qns []int
}

// Site returns the block of a single site.
func Site(m model.Model) *Block {
	site := m.Site()
	b := &Block{sites: 1, h: site.H, ops: site.Ops, qns: site.QuantumNumbers}
	return b.sort()
}

// GrowRight adds a site to the right edge of b.
// The basis index of the new block before sorting is i*d + s, where i is a state of b and s a state of the site.
func GrowRight(b *Block, m model.Model) (*Block, error) {
	site := m.Site()
	n, d := b.Size(), len(site.QuantumNumbers)

	g := &Block{sites: b.sites + 1, ops: make(map[string]*sparse.CSR, len(site.Ops))}
	g.h = b.h.Kron(sparse.Identity(d)).Add(1, sparse.Identity(n).Kron(site.H))
	for _, bond := range m.Bonds() {
		l, ok := b.ops[bond.Left]
		if !ok {
			return nil, errors.Errorf("no operator %q", bond.Left)
		}
		r, ok := site.Ops[bond.Right]
		if !ok {
			return nil, errors.Errorf("no operator %q", bond.Right)
		}
		g.h = g.h.Add(bond.Value, l.Kron(r))
	}
	for name, op := range site.Ops {
		g.ops[name] = sparse.Identity(n).Kron(op)
	}
	g.qns = make([]int, 0, n*d)
	for _, qb := range b.qns {
		for _, qs := range site.QuantumNumbers {
			g.qns = append(g.qns, m.Fuse(qb, qs))
		}
	}
	return g.sort(), nil
}

// GrowLeft adds a site to the left edge of b.
// The basis index of the new block before sorting is s*n + i, where s is a state of the site and i a state of b.
func GrowLeft(m model.Model, b *Block) (*Block, error) {
	site := m.Site()
	n, d := b.Size(), len(site.QuantumNumbers)

	g := &Block{sites: b.sites + 1, ops: make(map[string]*sparse.CSR, len(site.Ops))}
	g.h = site.H.Kron(sparse.Identity(n)).Add(1, sparse.Identity(d).Kron(b.h))
	for _, bond := range m.Bonds() {
		l, ok := site.Ops[bond.Left]
		if !ok {
			return nil, errors.Errorf("no operator %q", bond.Left)
		}
		r, ok := b.ops[bond.Right]
		if !ok {
			return nil, errors.Errorf("no operator %q", bond.Right)
		}
		g.h = g.h.Add(bond.Value, l.Kron(r))
	}
	for name, op := range site.Ops {
		g.ops[name] = op.Kron(sparse.Identity(n))
	}
	g.qns = make([]int, 0, n*d)
	for _, qs := range site.QuantumNumbers {
		for _, qb := range b.qns {
			g.qns = append(g.qns, m.Fuse(qs, qb))
		}
	}
	return g.sort(), nil
}

// System returns the block of the leftmost n sites of a chain.
func System(m model.Model, n int) (*Block, error) {
	if n < 1 {
		return nil, errors.Errorf("%d sites", n)
	}
	b := Site(m)
	for range n - 1 {
		var err error
		b, err = GrowRight(b, m)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	return b, nil
}

// Environ returns the block of the rightmost n sites of a chain, in the conjugate basis expected of a right block.
func Environ(m model.Model, n int) (*Block, error) {
	if n < 1 {
		return nil, errors.Errorf("%d sites", n)
	}
	b := Site(m)
	for range n - 1 {
		var err error
		b, err = GrowLeft(m, b)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	return b.Conj(), nil
}

// Conj returns the block with its Hamiltonian and operators complex conjugated.
func (b *Block) Conj() *Block {
	c := &Block{sites: b.sites, h: b.h.Conj(), ops: make(map[string]*sparse.CSR, len(b.ops)), qns: b.qns}
	for name, op := range b.ops {
		c.ops[name] = op.Conj()
	}
	return c
}

// Sites returns the number of sites in the block.
func (b *Block) Sites() int { return b.sites }

// Size returns the number of basis states.
func (b *Block) Size() int { return len(b.qns) }

func (b *Block) Hamiltonian() *sparse.CSR { return b.h }

// Op returns the named operator of the edge site.
func (b *Block) Op(name string) (*sparse.CSR, bool) {
	op, ok := b.ops[name]
	return op, ok
}

// StateQuantumNumbers returns the quantum number of every basis state.
func (b *Block) StateQuantumNumbers() []int { return b.qns }

// Partition returns the first state of each symmetry sector, followed by the block size.
func (b *Block) Partition() []int {
	partition := make([]int, 0)
	for i, q := range b.qns {
		if i == 0 || q != b.qns[i-1] {
			partition = append(partition, i)
		}
	}
	return append(partition, len(b.qns))
}

// QuantumNumbers returns the quantum number of each symmetry sector.
func (b *Block) QuantumNumbers() []int {
	qns := make([]int, 0)
	for i, q := range b.qns {
		if i == 0 || q != b.qns[i-1] {
			qns = append(qns, q)
		}
	}
	return qns
}

func (b *Block) String() string {
	return fmt.Sprintf("block{sites: %d, states: %d, sectors: %v}", b.sites, b.Size(), b.QuantumNumbers())
}

// sort orders the basis by quantum number, keeping the order of states with equal quantum numbers.
func (b *Block) sort() *Block {
	order := make([]int, len(b.qns))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(x, y int) int { return cmp.Compare(b.qns[x], b.qns[y]) })

	s := &Block{sites: b.sites, h: b.h.Permute(order), ops: make(map[string]*sparse.CSR, len(b.ops)), qns: make([]int, len(order))}
	for i, o := range order {
		s.qns[i] = b.qns[o]
	}
	for name, op := range b.ops {
		s.ops[name] = op.Permute(order)
	}
	return s
}
