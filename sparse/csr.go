// Package sparse implements complex sparse matrices stored in compressed sparse row format.
package sparse

import (
	"cmp"
	"fmt"
	"math/cmplx"
	"slices"
	"sort"
	"strings"
)

// Triplet is a single nonzero entry of a sparse matrix.
type Triplet struct {
	V   complex128
	Row int
	Col int
}

// CSR is a sparse matrix in compressed sparse row format.
// Entries within a row are sorted by column, and no explicit zeros are stored.
type CSR struct {
	rows int
	cols int

	rowPtr []int
	colIdx []int
	values []complex128
}

// M creates a sparse matrix from a dense one.
func M(dense [][]complex128) *CSR {
	ts := make([]Triplet, 0)
	for i, row := range dense {
		for j, v := range row {
			if v == 0 {
				continue
			}
			ts = append(ts, Triplet{V: v, Row: i, Col: j})
		}
	}
	cols := 0
	if len(dense) > 0 {
		cols = len(dense[0])
	}
	return FromTriplets(len(dense), cols, ts)
}

// Zeros returns a structurally empty matrix.
func Zeros(rows, cols int) *CSR {
	return &CSR{rows: rows, cols: cols, rowPtr: make([]int, rows+1)}
}

// Identity returns the identity matrix of size n.
func Identity(n int) *CSR {
	m := &CSR{rows: n, cols: n, rowPtr: make([]int, n+1), colIdx: make([]int, n), values: make([]complex128, n)}
	for i := range n {
		m.rowPtr[i+1] = i + 1
		m.colIdx[i] = i
		m.values[i] = 1
	}
	return m
}

// FromTriplets builds a matrix from unordered entries.
// Duplicate entries are summed, and entries that sum to zero are dropped.
func FromTriplets(rows, cols int, ts []Triplet) *CSR {
	sorted := slices.Clone(ts)
	slices.SortStableFunc(sorted, rowMajor)

	m := &CSR{rows: rows, cols: cols, rowPtr: make([]int, rows+1)}
	m.colIdx = make([]int, 0, len(sorted))
	m.values = make([]complex128, 0, len(sorted))
	for k := 0; k < len(sorted); {
		t := sorted[k]
		if t.Row < 0 || t.Row >= rows || t.Col < 0 || t.Col >= cols {
			panic(fmt.Sprintf("%#v %d %d", t, rows, cols))
		}
		v := t.V
		k++
		for k < len(sorted) && sorted[k].Row == t.Row && sorted[k].Col == t.Col {
			v += sorted[k].V
			k++
		}
		if v == 0 {
			continue
		}
		m.colIdx = append(m.colIdx, t.Col)
		m.values = append(m.values, v)
		m.rowPtr[t.Row+1]++
	}
	for i := range rows {
		m.rowPtr[i+1] += m.rowPtr[i]
	}
	return m
}

func (m *CSR) Rows() int { return m.rows }
func (m *CSR) Cols() int { return m.cols }

// NNZ returns the number of stored nonzeros.
func (m *CSR) NNZ() int { return len(m.values) }

// RowPtr returns the offset of the first nonzero of row i.
// RowPtr(i+1) is one past the last nonzero of row i.
func (m *CSR) RowPtr(i int) int { return m.rowPtr[i] }

// Col returns the column of the k-th nonzero.
func (m *CSR) Col(k int) int { return m.colIdx[k] }

// Value returns the value of the k-th nonzero.
func (m *CSR) Value(k int) complex128 { return m.values[k] }

func (m *CSR) At(i, j int) complex128 {
	if i < 0 || i >= m.rows || j < 0 || j >= m.cols {
		panic(fmt.Sprintf("%d %d %d %d", i, j, m.rows, m.cols))
	}
	start, end := m.rowPtr[i], m.rowPtr[i+1]
	k := start + sort.SearchInts(m.colIdx[start:end], j)
	if k < end && m.colIdx[k] == j {
		return m.values[k]
	}
	return 0
}

// Triplets iterates over the nonzeros in row-major order.
func (m *CSR) Triplets() func(yield func(Triplet) bool) {
	return func(yield func(Triplet) bool) {
		for i := range m.rows {
			for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
				if !yield(Triplet{V: m.values[k], Row: i, Col: m.colIdx[k]}) {
					return
				}
			}
		}
	}
}

func (m *CSR) triplets() []Triplet {
	ts := make([]Triplet, 0, m.NNZ())
	for t := range m.Triplets() {
		ts = append(ts, t)
	}
	return ts
}

// TransposeConjugate returns the Hermitian conjugate of m.
func (m *CSR) TransposeConjugate() *CSR {
	ts := make([]Triplet, 0, m.NNZ())
	for t := range m.Triplets() {
		ts = append(ts, Triplet{V: cmplx.Conj(t.V), Row: t.Col, Col: t.Row})
	}
	return FromTriplets(m.cols, m.rows, ts)
}

// Conj returns the elementwise complex conjugate of m.
func (m *CSR) Conj() *CSR {
	c := m.clone()
	for k, v := range c.values {
		c.values[k] = cmplx.Conj(v)
	}
	return c
}

// Scale returns c*m.
func (m *CSR) Scale(c complex128) *CSR {
	if c == 0 {
		return Zeros(m.rows, m.cols)
	}
	s := m.clone()
	for k := range s.values {
		s.values[k] *= c
	}
	return s
}

// Add returns a + c*b.
func (a *CSR) Add(c complex128, b *CSR) *CSR {
	if a.rows != b.rows || a.cols != b.cols {
		panic(fmt.Sprintf("wrong dimensions %dx%d %dx%d", a.rows, a.cols, b.rows, b.cols))
	}
	ts := a.triplets()
	for t := range b.Triplets() {
		ts = append(ts, Triplet{V: c * t.V, Row: t.Row, Col: t.Col})
	}
	return FromTriplets(a.rows, a.cols, ts)
}

// Kron returns the Kronecker product a ⊗ b.
// The entry (ai, aj) of a and (bi, bj) of b land at (ai*b.rows+bi, aj*b.cols+bj).
func (a *CSR) Kron(b *CSR) *CSR {
	rows := a.rows * b.rows
	cols := a.cols * b.cols
	ts := make([]Triplet, 0, a.NNZ()*b.NNZ())
	for av := range a.Triplets() {
		for bv := range b.Triplets() {
			ky := av.Row*b.rows + bv.Row
			kx := av.Col*b.cols + bv.Col
			ts = append(ts, Triplet{V: av.V * bv.V, Row: ky, Col: kx})
		}
	}
	return FromTriplets(rows, cols, ts)
}

// Slice returns the submatrix of rows [yBound[0], yBound[1]) and columns [xBound[0], xBound[1]).
// Negative bounds count from the end.
func (m *CSR) Slice(yBoundN, xBoundN [2]int) *CSR {
	yBound, xBound := yBoundN, xBoundN
	for i := 0; i < 2; i++ {
		if yBound[i] < 0 {
			yBound[i] += m.rows
		}
		if xBound[i] < 0 {
			xBound[i] += m.cols
		}
	}

	s := &CSR{rows: yBound[1] - yBound[0], cols: xBound[1] - xBound[0]}
	s.rowPtr = make([]int, s.rows+1)
	for i := yBound[0]; i < yBound[1]; i++ {
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			col := m.colIdx[k]
			if col < xBound[0] {
				continue
			}
			if col >= xBound[1] {
				break
			}
			s.colIdx = append(s.colIdx, col-xBound[0])
			s.values = append(s.values, m.values[k])
		}
		s.rowPtr[i-yBound[0]+1] = len(s.values)
	}
	return s
}

// Permute returns the matrix p with p(i, j) = m(order[i], order[j]).
func (m *CSR) Permute(order []int) *CSR {
	if m.rows != m.cols || len(order) != m.rows {
		panic(fmt.Sprintf("%d %d %d", m.rows, m.cols, len(order)))
	}
	inv := make([]int, len(order))
	for i, o := range order {
		inv[o] = i
	}
	ts := make([]Triplet, 0, m.NNZ())
	for t := range m.Triplets() {
		ts = append(ts, Triplet{V: t.V, Row: inv[t.Row], Col: inv[t.Col]})
	}
	return FromTriplets(m.rows, m.cols, ts)
}

// MulVec sets dst = m*x.
func (m *CSR) MulVec(dst, x []complex128) {
	if len(x) != m.cols || len(dst) != m.rows {
		panic(fmt.Sprintf("%d %d %d %d", len(dst), len(x), m.rows, m.cols))
	}
	for i := range m.rows {
		var s complex128
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			s += m.values[k] * x[m.colIdx[k]]
		}
		dst[i] = s
	}
}

func (a *CSR) Equal(b *CSR) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	return slices.Equal(a.rowPtr, b.rowPtr) && slices.Equal(a.colIdx, b.colIdx) && slices.Equal(a.values, b.values)
}

// EqualApprox reports whether all entries of a and b differ by at most tol.
func (a *CSR) EqualApprox(b *CSR, tol float64) bool {
	if a.rows != b.rows || a.cols != b.cols {
		return false
	}
	diff := a.Add(-1, b)
	for _, v := range diff.values {
		if cmplx.Abs(v) > tol {
			return false
		}
	}
	return true
}

func (m *CSR) Dense() [][]complex128 {
	dense := make([][]complex128, m.rows)
	for i := range dense {
		dense[i] = make([]complex128, m.cols)
	}
	for t := range m.Triplets() {
		dense[t.Row][t.Col] = t.V
	}
	return dense
}

func (m *CSR) String() string {
	lines := []string{}
	for _, row := range m.Dense() {
		cs := []string{}
		for _, v := range row {
			switch {
			case imag(v) == 0:
				cs = append(cs, format(real(v)))
			case real(v) == 0:
				cs = append(cs, format(imag(v))+"i")
			default:
				cs = append(cs, format(real(v))+"+"+format(imag(v))+"i")
			}
		}
		lines = append(lines, strings.Join(cs, "\t"))
	}
	return strings.Join(lines, "\n")
}

func (m *CSR) clone() *CSR {
	return &CSR{rows: m.rows, cols: m.cols, rowPtr: slices.Clone(m.rowPtr), colIdx: slices.Clone(m.colIdx), values: slices.Clone(m.values)}
}

func rowMajor(a, b Triplet) int {
	if c := cmp.Compare(a.Row, b.Row); c != 0 {
		return c
	}
	return cmp.Compare(a.Col, b.Col)
}

func format(v float64) string {
	// If v is 0 or -0, return "0" immediately to avoid returning "-0".
	if v == 0 {
		return " 0"
	}

	s := fmt.Sprintf("%v", v)

	// Add a space before non-negative numbers to align with other negative numbers in the same column.
	if v >= 0 {
		s = " " + s
	}

	return s
}
