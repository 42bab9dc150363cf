// Package model describes one dimensional lattice models by their single site basis and nearest neighbour bonds.
package model

import (
	"cmp"
	"slices"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"

	"github.com/fumin/dmrg/sparse"
)

const (
	NameHeisenberg = "heisenberg"
	NameIsing      = "ising"
)

// A Model is a chain of identical sites coupled by nearest neighbour bonds.
type Model interface {
	Name() string
	// Site returns the natural basis of a single site.
	Site() Site
	// Bonds returns the terms coupling a site with its right neighbour.
	Bonds() []Bond
	// Fuse combines the quantum numbers of two subsystems.
	Fuse(a, b int) int
}

// Site is the basis of a single site.
type Site struct {
	// QuantumNumbers holds the quantum number of each basis state.
	QuantumNumbers []int
	// H is the single site Hamiltonian.
	H *sparse.CSR
	// Ops are the operators that appear in bonds.
	Ops map[string]*sparse.CSR
}

// Bond is the term Value * Ops[Left] ⊗ Ops[Right] between a site and its right neighbour.
type Bond struct {
	Left  string
	Right string
	Value complex128
}

// Params are the couplings of a model.
type Params struct {
	// J is the exchange coupling, the spin flip part for the Heisenberg model.
	J float64
	// Jz is the Ising part of the Heisenberg exchange.
	Jz float64
	// H is the magnetic field.
	H float64
}

// New returns the model of the given name.
func New(name string, p Params) (Model, error) {
	switch name {
	case NameHeisenberg:
		return NewHeisenberg(p), nil
	case NameIsing:
		return NewIsing(p), nil
	default:
		return nil, errors.Errorf("unknown model %q", name)
	}
}

// Names returns the names accepted by New.
func Names() []string {
	return []string{NameHeisenberg, NameIsing}
}

// Validate checks that a site is consistent with the bonds of its model.
func Validate(m Model) error {
	site := m.Site()
	d := len(site.QuantumNumbers)
	if d == 0 {
		return errors.Errorf("empty site")
	}
	if !slices.IsSorted(site.QuantumNumbers) {
		return errors.Errorf("unsorted quantum numbers %v", site.QuantumNumbers)
	}
	if site.H.Rows() != d || site.H.Cols() != d {
		return errors.Errorf("site hamiltonian %dx%d, %d states", site.H.Rows(), site.H.Cols(), d)
	}
	for _, b := range m.Bonds() {
		for _, name := range []string{b.Left, b.Right} {
			op, ok := site.Ops[name]
			if !ok {
				return errors.Errorf("no operator %q", name)
			}
			if op.Rows() != d || op.Cols() != d {
				return errors.Errorf("operator %q %dx%d, %d states", name, op.Rows(), op.Cols(), d)
			}
		}
	}
	return nil
}

// fromTensor converts a two dimensional tensor to a sparse matrix.
func fromTensor(x *tensor.Dense) *sparse.CSR {
	shape := x.Shape()
	ts := make([]sparse.Triplet, 0)
	for ij, v := range x.All() {
		if v == 0 {
			continue
		}
		ts = append(ts, sparse.Triplet{V: complex128(v), Row: ij[0], Col: ij[1]})
	}
	return sparse.FromTriplets(shape[0], shape[1], ts)
}

// sortSite orders the basis of a site by quantum number.
func sortSite(s Site) Site {
	order := make([]int, len(s.QuantumNumbers))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(s.QuantumNumbers[a], s.QuantumNumbers[b]) })

	sorted := Site{QuantumNumbers: make([]int, len(order)), H: s.H.Permute(order), Ops: make(map[string]*sparse.CSR, len(s.Ops))}
	for i, o := range order {
		sorted.QuantumNumbers[i] = s.QuantumNumbers[o]
	}
	for name, op := range s.Ops {
		sorted.Ops[name] = op.Permute(order)
	}
	return sorted
}
