package kron

import (
	"fmt"
	"math/cmplx"

	"github.com/fumin/dmrg/sparse"
)

// Stored is the super-block Hamiltonian of a sector assembled as an explicit sparse matrix.
// It has the same interface as Matrix and serves to check it on small systems.
type Stored struct {
	h *sparse.CSR
}

// NewStored assembles the sector Hamiltonian of a decomposition.
// Matrix elements that leave the sector are dropped, as they are in Matrix.
func NewStored(d *Decomposition) *Stored {
	nl := d.left.Start(d.left.Len())
	local := func(i, j int) (int, bool) {
		r := d.permutationInverse[i+j*nl] - d.offset
		return r, r >= 0 && r < d.size
	}

	ts := make([]sparse.Triplet, 0)
	for r := range d.size {
		p := d.permutation[d.offset+r]
		i, j := p%nl, p/nl

		for k := d.hl.RowPtr(i); k < d.hl.RowPtr(i+1); k++ {
			if c, ok := local(d.hl.Col(k), j); ok {
				ts = append(ts, sparse.Triplet{V: d.hl.Value(k), Row: r, Col: c})
			}
		}
		for k := d.hr.RowPtr(j); k < d.hr.RowPtr(j+1); k++ {
			if c, ok := local(i, d.hr.Col(k)); ok {
				ts = append(ts, sparse.Triplet{V: cmplx.Conj(d.hr.Value(k)), Row: r, Col: c})
			}
		}
		for _, t := range d.terms {
			for ka := t.A.RowPtr(i); ka < t.A.RowPtr(i+1); ka++ {
				for kb := t.B.RowPtr(j); kb < t.B.RowPtr(j+1); kb++ {
					c, ok := local(t.A.Col(ka), t.B.Col(kb))
					if !ok {
						continue
					}
					v := t.Value * t.A.Value(ka) * cmplx.Conj(t.B.Value(kb))
					ts = append(ts, sparse.Triplet{V: v, Row: r, Col: c})
				}
			}
		}
	}
	return &Stored{h: sparse.FromTriplets(d.size, d.size, ts)}
}

// Size returns the dimension of the sector.
func (s *Stored) Size() int { return s.h.Rows() }

// Hamiltonian returns the assembled sector Hamiltonian.
func (s *Stored) Hamiltonian() *sparse.CSR { return s.h }

// MatrixVectorProduct adds H*in to out.
func (s *Stored) MatrixVectorProduct(out, in []complex128) {
	if len(in) != s.h.Cols() || len(out) != s.h.Rows() {
		panic(fmt.Sprintf("%d %d %d", len(in), len(out), s.h.Rows()))
	}
	for i := range s.h.Rows() {
		var sum complex128
		for k := s.h.RowPtr(i); k < s.h.RowPtr(i+1); k++ {
			sum += s.h.Value(k) * in[s.h.Col(k)]
		}
		out[i] += sum
	}
}
