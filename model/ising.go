package model

import (
	"github.com/fumin/tensor"

	"github.com/fumin/dmrg/sparse"
)

// OpFlip is σz written in the eigenbasis of σx.
const OpFlip = "flip"

var (
	pauliX = [][]complex64{
		{0, 1},
		{1, 0},
	}
	pauliZ = [][]complex64{
		{1, 0},
		{0, -1},
	}
)

// Ising is the transverse field Ising chain
//
//	H = -J Σ_i σz_i σz_{i+1} - h Σ_i σx_i.
//
// The site basis is the eigenbasis {|+>, |->} of σx, in which σx is diagonal and σz flips the state.
// The quantum number is the parity of the number of |-> states, which is conserved,
// and the quantum numbers of subsystems combine by exclusive or.
type Ising struct {
	p Params
}

func NewIsing(p Params) *Ising {
	return &Ising{p: p}
}

func (m *Ising) Name() string { return NameIsing }

func (m *Ising) Site() Site {
	// Rotated into the σx eigenbasis, σx becomes σz and σz becomes σx.
	field := fromTensor(tensor.T2(pauliZ))
	flip := tensor.T2(pauliX)
	s := Site{
		QuantumNumbers: []int{0, 1},
		H:              field.Scale(complex(-m.p.H, 0)),
		Ops:            map[string]*sparse.CSR{OpFlip: fromTensor(flip)},
	}
	return sortSite(s)
}

func (m *Ising) Bonds() []Bond {
	return []Bond{{Left: OpFlip, Right: OpFlip, Value: complex(-m.p.J, 0)}}
}

func (m *Ising) Fuse(a, b int) int { return a ^ b }
