package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fumin/dmrg/sparse"
)

func TestNew(t *testing.T) {
	t.Parallel()
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			m, err := New(name, Params{J: 1, Jz: 1, H: 0.5})
			require.NoError(t, err)
			require.Equal(t, name, m.Name())
			require.NoError(t, Validate(m))
		})
	}

	_, err := New("hubbard", Params{})
	require.Error(t, err)
}

// TestConservation checks that every bond preserves the fused quantum number of the two sites,
// and that the site Hamiltonian is diagonal in the quantum number.
func TestConservation(t *testing.T) {
	t.Parallel()
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			m, err := New(name, Params{J: 1.3, Jz: 0.7, H: 0.2})
			require.NoError(t, err)
			site := m.Site()
			qn := site.QuantumNumbers

			for e := range site.H.Triplets() {
				require.Equal(t, qn[e.Row], qn[e.Col])
			}
			for _, b := range m.Bonds() {
				for l := range site.Ops[b.Left].Triplets() {
					for r := range site.Ops[b.Right].Triplets() {
						require.Equal(t, m.Fuse(qn[l.Row], qn[r.Row]), m.Fuse(qn[l.Col], qn[r.Col]), "%#v", b)
					}
				}
			}
		})
	}
}

func TestHeisenbergSite(t *testing.T) {
	t.Parallel()
	site := NewHeisenberg(Params{J: 1, Jz: 1, H: 2}).Site()
	sz, sp, sm := site.Ops[OpSz], site.Ops[OpSplus], site.Ops[OpSminus]

	if !sm.Equal(sp.TransposeConjugate()) {
		t.Fatalf("%s, expected %s", sm, sp.TransposeConjugate())
	}
	// [S+, S-] = 2Sz
	commutator := dense(sp).mul(dense(sm)).sub(dense(sm).mul(dense(sp)))
	expected := dense(sz.Scale(2))
	require.Equal(t, expected, commutator)

	if h := sparse.M([][]complex128{{1, 0}, {0, -1}}); !site.H.Equal(h) {
		t.Fatalf("%s, expected %s", site.H, h)
	}
}

func TestIsingSite(t *testing.T) {
	t.Parallel()
	m := NewIsing(Params{J: 1, H: 0.5})
	site := m.Site()
	require.Equal(t, []int{0, 1}, site.QuantumNumbers)

	h := sparse.M([][]complex128{{-0.5, 0}, {0, 0.5}})
	if !site.H.Equal(h) {
		t.Fatalf("%s, expected %s", site.H, h)
	}
	flip := site.Ops[OpFlip]
	if f2 := dense(flip).mul(dense(flip)); f2[0][0] != 1 || f2[1][1] != 1 || f2[0][1] != 0 {
		t.Fatalf("%v", f2)
	}
	require.Equal(t, 1, m.Fuse(0, 1))
	require.Equal(t, 0, m.Fuse(1, 1))
}

func TestSortSite(t *testing.T) {
	t.Parallel()
	s := Site{
		QuantumNumbers: []int{2, -2, 0},
		H:              sparse.M([][]complex128{{1, 0, 0}, {0, 2, 0}, {0, 0, 3}}),
		Ops:            map[string]*sparse.CSR{"up": sparse.M([][]complex128{{0, 0, 1}, {0, 0, 0}, {0, 1, 0}})},
	}
	sorted := sortSite(s)
	require.Equal(t, []int{-2, 0, 2}, sorted.QuantumNumbers)
	if h := sparse.M([][]complex128{{2, 0, 0}, {0, 3, 0}, {0, 0, 1}}); !sorted.H.Equal(h) {
		t.Fatalf("%s, expected %s", sorted.H, h)
	}
	if up := sparse.M([][]complex128{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}); !sorted.Ops["up"].Equal(up) {
		t.Fatalf("%s, expected %s", sorted.Ops["up"], up)
	}
}

type denseMatrix [][]complex128

func dense(m *sparse.CSR) denseMatrix { return m.Dense() }

func (a denseMatrix) mul(b denseMatrix) denseMatrix {
	c := make(denseMatrix, len(a))
	for i := range a {
		c[i] = make([]complex128, len(b[0]))
		for j := range b[0] {
			for k := range b {
				c[i][j] += a[i][k] * b[k][j]
			}
		}
	}
	return c
}

func (a denseMatrix) sub(b denseMatrix) denseMatrix {
	c := make(denseMatrix, len(a))
	for i := range a {
		c[i] = make([]complex128, len(a[i]))
		for j := range a[i] {
			c[i][j] = a[i][j] - b[i][j]
		}
	}
	return c
}

// TestSiteField checks that the field enters the site Hamiltonian at full precision.
func TestSiteField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		model Model
		h     [][]complex128
	}{
		{model: NewHeisenberg(Params{J: 1, Jz: 1, H: 0.1}), h: [][]complex128{{0.05, 0}, {0, -0.05}}},
		{model: NewIsing(Params{J: 1, H: 0.1}), h: [][]complex128{{-0.1, 0}, {0, 0.1}}},
		{model: NewIsing(Params{J: 1, H: 1.0 / 3}), h: [][]complex128{{-1.0 / 3, 0}, {0, 1.0 / 3}}},
	}
	for _, test := range tests {
		t.Run(test.model.Name(), func(t *testing.T) {
			t.Parallel()
			site := test.model.Site()
			for i, row := range test.h {
				for j, v := range row {
					if got := site.H.At(i, j); got != v {
						t.Fatalf("(%d, %d) %v, expected %v", i, j, got, v)
					}
				}
			}
		})
	}
}
