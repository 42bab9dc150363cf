package kron

import (
	"fmt"

	"github.com/pkg/errors"
)

// Groups partitions the local basis of a block into consecutive runs of fixed quantum number.
type Groups struct {
	// starts[i] is the first basis state of group i, and starts[len(starts)-1] is the block size.
	starts []int
	qns    []int
	// group[s] is the group of basis state s.
	group []int
}

// NewGroups validates and indexes the partition of a block.
func NewGroups(b Block) (Groups, error) {
	starts, qns := b.Partition(), b.QuantumNumbers()
	if len(starts) == 0 || starts[0] != 0 {
		return Groups{}, errors.Errorf("partition must start at 0: %v", starts)
	}
	if len(qns) != len(starts)-1 {
		return Groups{}, errors.Errorf("%d quantum numbers for %d groups", len(qns), len(starts)-1)
	}
	for i := 1; i < len(starts); i++ {
		if starts[i] < starts[i-1] {
			return Groups{}, errors.Errorf("partition decreases at %d: %v", i, starts)
		}
	}
	h := b.Hamiltonian()
	size := starts[len(starts)-1]
	if h.Rows() != size || h.Cols() != size {
		return Groups{}, errors.Errorf("hamiltonian %dx%d, partition size %d", h.Rows(), h.Cols(), size)
	}

	g := Groups{starts: starts, qns: qns, group: make([]int, size)}
	for i := range g.Len() {
		for s := starts[i]; s < starts[i+1]; s++ {
			g.group[s] = i
		}
	}
	return g, nil
}

// Len returns the number of groups.
func (g Groups) Len() int { return len(g.starts) - 1 }

// Start returns the first basis state of group i.
// Start(Len()) is the size of the block.
func (g Groups) Start(i int) int { return g.starts[i] }

func (g Groups) Size(i int) int { return g.starts[i+1] - g.starts[i] }

func (g Groups) QuantumNumber(i int) int { return g.qns[i] }

// Of returns the group containing basis state s.
func (g Groups) Of(s int) int { return g.group[s] }

// MaxSize returns the size of the largest group.
func (g Groups) MaxSize() int {
	var n int
	for i := range g.Len() {
		n = max(n, g.Size(i))
	}
	return n
}

// Patch is a pair of left and right groups whose quantum numbers fuse to the target.
type Patch struct {
	Left  int
	Right int
}

// NewPatches enumerates the compatible group pairs in left-major order.
// The position of a pair in the result is its patch index.
func NewPatches(left, right Groups, fuse func(a, b int) int, qn int) []Patch {
	patches := make([]Patch, 0)
	for i := range left.Len() {
		for j := range right.Len() {
			if fuse(left.QuantumNumber(i), right.QuantumNumber(j)) != qn {
				continue
			}
			patches = append(patches, Patch{Left: i, Right: j})
		}
	}
	return patches
}

func (p Patch) String() string {
	return fmt.Sprintf("(%d,%d)", p.Left, p.Right)
}
