package model

import (
	"github.com/fumin/tensor"

	"github.com/fumin/dmrg/sparse"
)

const (
	OpSz     = "sz"
	OpSplus  = "splus"
	OpSminus = "sminus"
)

// Heisenberg is the spin-1/2 XXZ chain
//
//	H = Σ_i J/2 (S+_i S-_{i+1} + S-_i S+_{i+1}) + Jz Sz_i Sz_{i+1} - h Sz_i.
//
// Its quantum number is twice the total Sz.
type Heisenberg struct {
	p Params
}

func NewHeisenberg(p Params) *Heisenberg {
	return &Heisenberg{p: p}
}

func (m *Heisenberg) Name() string { return NameHeisenberg }

func (m *Heisenberg) Site() Site {
	// The basis is {down, up}.
	sz := tensor.T2(pauliZ).Mul(-0.5)
	splus := tensor.T2([][]complex64{
		{0, 0},
		{1, 0},
	})
	s := Site{
		QuantumNumbers: []int{-1, 1},
		H:              fromTensor(sz).Scale(complex(-m.p.H, 0)),
		Ops: map[string]*sparse.CSR{
			OpSz:     fromTensor(sz),
			OpSplus:  fromTensor(splus),
			OpSminus: fromTensor(splus.H()),
		},
	}
	return sortSite(s)
}

func (m *Heisenberg) Bonds() []Bond {
	return []Bond{
		{Left: OpSz, Right: OpSz, Value: complex(m.p.Jz, 0)},
		{Left: OpSplus, Right: OpSminus, Value: complex(m.p.J/2, 0)},
		{Left: OpSminus, Right: OpSplus, Value: complex(m.p.J/2, 0)},
	}
}

func (m *Heisenberg) Fuse(a, b int) int { return a + b }
