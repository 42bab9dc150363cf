package kron

import (
	"cmp"
	"math/cmplx"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/fumin/dmrg/sparse"
)

type testBlock struct {
	h         *sparse.CSR
	partition []int
	qns       []int
}

func (b testBlock) Hamiltonian() *sparse.CSR { return b.h }
func (b testBlock) Partition() []int        { return b.partition }
func (b testBlock) QuantumNumbers() []int   { return b.qns }

func (b testBlock) size() int { return b.partition[len(b.partition)-1] }

// stateQN returns the quantum number of each basis state.
func (b testBlock) stateQN() []int {
	qn := make([]int, b.size())
	for g := range len(b.qns) {
		for s := b.partition[g]; s < b.partition[g+1]; s++ {
			qn[s] = b.qns[g]
		}
	}
	return qn
}

type testSuper struct {
	perm      []int
	permInv   []int
	partition []int
	qns       []int
}

func (s *testSuper) Permutation() []int        { return s.perm }
func (s *testSuper) PermutationInverse() []int { return s.permInv }
func (s *testSuper) Partition() []int          { return s.partition }
func (s *testSuper) QuantumNumbers() []int     { return s.qns }
func (s *testSuper) Fuse(a, b int) int         { return a + b }

func newTestSuper(left, right testBlock) *testSuper {
	nl, nr := left.size(), right.size()
	lq, rq := left.stateQN(), right.stateQN()
	qn := func(p int) int { return lq[p%nl] + rq[p/nl] }

	s := &testSuper{perm: make([]int, nl*nr), permInv: make([]int, nl*nr)}
	for p := range s.perm {
		s.perm[p] = p
	}
	slices.SortStableFunc(s.perm, func(a, b int) int { return cmp.Compare(qn(a), qn(b)) })
	for r, p := range s.perm {
		s.permInv[p] = r
		if r == 0 || qn(p) != qn(s.perm[r-1]) {
			s.partition = append(s.partition, r)
			s.qns = append(s.qns, qn(p))
		}
	}
	s.partition = append(s.partition, nl*nr)
	return s
}

type testConnections []BondTerm

func (c testConnections) Len() int { return len(c) }

func (c testConnections) Connection(i int) (BondTerm, error) {
	if c[i].A == nil && c[i].B == nil {
		return BondTerm{}, errors.Errorf("no operators")
	}
	return c[i], nil
}

// randomOp returns an operator that shifts quantum numbers by delta.
func randomOp(rng *rand.Rand, b testBlock, delta int) *sparse.CSR {
	qn := b.stateQN()
	ts := make([]sparse.Triplet, 0)
	for i := range b.size() {
		for j := range b.size() {
			if qn[i] != qn[j]+delta || rng.Float64() < 0.3 {
				continue
			}
			v := complex(rng.NormFloat64(), rng.NormFloat64())
			ts = append(ts, sparse.Triplet{V: v, Row: i, Col: j})
		}
	}
	return sparse.FromTriplets(b.size(), b.size(), ts)
}

func randomHermitian(rng *rand.Rand, b testBlock) *sparse.CSR {
	x := randomOp(rng, b, 0)
	return x.Add(1, x.TransposeConjugate())
}

// randomSystem returns blocks with three symmetry sectors each, and Hermitian bond terms conserving the additive quantum number.
func randomSystem(rng *rand.Rand) (testBlock, testBlock, *testSuper, testConnections) {
	left := testBlock{partition: []int{0, 2, 3, 6}, qns: []int{-1, 0, 1}}
	right := testBlock{partition: []int{0, 1, 3, 5}, qns: []int{-1, 0, 1}}
	left.h = randomHermitian(rng, left)
	right.h = randomHermitian(rng, right)

	conns := testConnections{}
	for _, delta := range []int{0, 1} {
		a, b := randomOp(rng, left, delta), randomOp(rng, right, -delta)
		v := complex(rng.NormFloat64(), 0)
		conns = append(conns, BondTerm{A: a, B: b, Value: v})
		conns = append(conns, BondTerm{A: a.TransposeConjugate(), B: b.TransposeConjugate(), Value: cmplx.Conj(v), Orientation: SystemEnviron})
	}
	// An environment-system term is the same product with the operators swapped.
	a, b := randomOp(rng, left, 0), randomOp(rng, right, 0)
	conns = append(conns, BondTerm{A: b.Add(1, b.TransposeConjugate()), B: a.Add(1, a.TransposeConjugate()), Value: 0.5, Orientation: EnvironSystem})

	return left, right, newTestSuper(left, right), conns
}

// denseReference returns the sector Hamiltonian computed from explicit Kronecker products.
func denseReference(left, right testBlock, super *testSuper, qn int, conns testConnections) [][]complex128 {
	nl, nr := left.size(), right.size()
	full := left.h.Kron(sparse.Identity(nr)).Add(1, sparse.Identity(nl).Kron(right.h.Conj()))
	for _, t := range conns {
		a, b := t.A, t.B
		if t.Orientation == EnvironSystem {
			a, b = b, a
		}
		full = full.Add(t.Value, a.Kron(b.Conj()))
	}

	m := slices.Index(super.qns, qn)
	offset, size := super.partition[m], super.partition[m+1]-super.partition[m]
	q := func(r int) int {
		p := super.perm[offset+r]
		return (p%nl)*nr + p/nl
	}
	h := make([][]complex128, size)
	for r := range size {
		h[r] = make([]complex128, size)
		for c := range size {
			h[r][c] = full.At(q(r), q(c))
		}
	}
	return h
}

func randomVector(rng *rand.Rand, n int) []complex128 {
	v := make([]complex128, n)
	for i := range v {
		v[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return v
}

func denseMulVec(h [][]complex128, x []complex128) []complex128 {
	y := make([]complex128, len(h))
	for i, row := range h {
		for j, v := range row {
			y[i] += v * x[j]
		}
	}
	return y
}

type operator interface {
	Size() int
	MatrixVectorProduct(out, in []complex128)
}

func apply(op operator, x []complex128) []complex128 {
	y := make([]complex128, op.Size())
	op.MatrixVectorProduct(y, x)
	return y
}

func requireClose(t *testing.T, got, expected []complex128, tol float64) {
	t.Helper()
	require.Equal(t, len(expected), len(got))
	for i := range expected {
		require.InDelta(t, real(expected[i]), real(got[i]), tol, "real %d", i)
		require.InDelta(t, imag(expected[i]), imag(got[i]), tol, "imag %d", i)
	}
}
