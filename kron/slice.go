package kron

import (
	"fmt"

	"github.com/fumin/dmrg/sparse"
)

// SliceCache holds a block operator cut into one sparse matrix per (row group, column group) pair.
// Local row and column indices of each slice start at zero.
type SliceCache struct {
	groups Groups
	// slices is row-major over group pairs.
	slices []*sparse.CSR
}

// NewSliceCache slices m along the groups of its block.
// Pairs not connected by m are kept as structurally empty matrices.
func NewSliceCache(m *sparse.CSR, g Groups) *SliceCache {
	n := g.Len()
	if m.Rows() != g.Start(n) || m.Cols() != g.Start(n) {
		panic(fmt.Sprintf("%d %d %d", m.Rows(), m.Cols(), g.Start(n)))
	}

	buckets := make(map[int][]sparse.Triplet)
	for t := range m.Triplets() {
		gi, gj := g.Of(t.Row), g.Of(t.Col)
		local := sparse.Triplet{V: t.V, Row: t.Row - g.Start(gi), Col: t.Col - g.Start(gj)}
		buckets[gi*n+gj] = append(buckets[gi*n+gj], local)
	}

	c := &SliceCache{groups: g, slices: make([]*sparse.CSR, n*n)}
	for gi := range n {
		for gj := range n {
			ts := buckets[gi*n+gj]
			switch {
			case len(ts) == 0:
				c.slices[gi*n+gj] = sparse.Zeros(g.Size(gi), g.Size(gj))
			default:
				c.slices[gi*n+gj] = sparse.FromTriplets(g.Size(gi), g.Size(gj), ts)
			}
		}
	}
	return c
}

// At returns the slice between row group i and column group j.
func (c *SliceCache) At(i, j int) *sparse.CSR {
	return c.slices[i*c.groups.Len()+j]
}

// offDiagonal returns the number of nonzeros that connect different groups.
func (c *SliceCache) offDiagonal() int {
	var nnz int
	for i := range c.groups.Len() {
		for j := range c.groups.Len() {
			if i != j {
				nnz += c.At(i, j).NNZ()
			}
		}
	}
	return nnz
}
