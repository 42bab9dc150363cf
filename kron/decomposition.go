// Package kron multiplies a super-block Hamiltonian with a vector without forming the Hamiltonian.
//
// The Hamiltonian of a left block L and a right block R is
//
//	H = H_L ⊗ 1 + 1 ⊗ conj(H_R) + Σ_t c_t A_t ⊗ conj(B_t),
//
// where the right block is stored in its conjugate basis, so that only Hermitian conjugates of right
// operators enter the contraction. The product space is cut into patches, pairs of left and right
// symmetry sectors whose quantum numbers fuse to the target, and every operator is sliced per pair of
// sectors, so that a product touches only blocks that can be nonzero.
//
// References:
//   - The density-matrix renormalization group in the age of matrix product states, Ulrich Schollwock
package kron

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/fumin/dmrg/sparse"
)

// Block is a left or right block of a super-block.
type Block interface {
	// Hamiltonian is the intra-block Hamiltonian in the sorted local basis.
	Hamiltonian() *sparse.CSR
	// Partition returns the first basis state of each symmetry sector, followed by the block size.
	Partition() []int
	// QuantumNumbers returns the quantum number of each symmetry sector.
	QuantumNumbers() []int
}

// Super is the product space of a left and a right block in its externally visible, symmetry sorted order.
type Super interface {
	// Permutation maps an external index r to the product index i + j*nl,
	// where i and j are the left and right local indices and nl the left block size.
	Permutation() []int
	PermutationInverse() []int
	// Partition returns the first external index of each symmetry sector, followed by the super-block size.
	Partition() []int
	QuantumNumbers() []int
	// Fuse combines the quantum numbers of a left and a right state.
	Fuse(a, b int) int
}

// Orientation tells which block the operators of a bond term act on.
type Orientation int

const (
	// SystemEnviron means A acts on the left block and B on the right block.
	SystemEnviron Orientation = iota
	// EnvironSystem means A acts on the right block and B on the left block.
	EnvironSystem
)

func (o Orientation) String() string {
	switch o {
	case SystemEnviron:
		return "SystemEnviron"
	case EnvironSystem:
		return "EnvironSystem"
	default:
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
}

// BondTerm is the product Value * A ⊗ B of an operator on each block.
type BondTerm struct {
	A           *sparse.CSR
	B           *sparse.CSR
	Value       complex128
	Orientation Orientation
}

// Connections enumerates the bond terms coupling a left and a right block.
type Connections interface {
	Len() int
	Connection(i int) (BondTerm, error)
}

// Options are options of the Kronecker product.
type Options struct {
	threads int
}

// NewOptions returns the default options, which run sequentially.
func NewOptions() Options {
	opt := Options{}
	opt.threads = 1
	return opt
}

// Threads sets the number of workers of the connection pass.
// Zero and one mean sequential execution.
func (opt Options) Threads(n int) Options {
	opt.threads = n
	return opt
}

// Decomposition holds the sliced operators needed to multiply with a super-block Hamiltonian
// in one quantum number sector. It is immutable after New and safe for concurrent use.
type Decomposition struct {
	left    Groups
	right   Groups
	patches []Patch

	hl *sparse.CSR
	hr *sparse.CSR
	// aL holds the slices of the left Hamiltonian.
	aL *SliceCache
	// aRt holds the slices of the Hermitian conjugate of the right Hamiltonian.
	aRt *SliceCache

	// terms are the bond terms in SystemEnviron orientation.
	terms []BondTerm
	// xc holds the slices of the left operators of each term.
	xc []*SliceCache
	// yc holds the slices of the Hermitian conjugate of the right operators of each term.
	yc []*SliceCache

	permutation        []int
	permutationInverse []int
	qn                 int
	offset             int
	size               int

	threads int
}

// New prepares the product of the super-block Hamiltonian restricted to the sector of quantum number qn.
func New(left, right Block, super Super, qn int, conns Connections, options ...Options) (*Decomposition, error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	if opt.threads < 0 {
		return nil, errors.Errorf("negative threads %d", opt.threads)
	}

	d := &Decomposition{qn: qn, threads: max(opt.threads, 1)}
	var err error
	d.left, err = NewGroups(left)
	if err != nil {
		return nil, errors.Wrap(err, "left")
	}
	d.right, err = NewGroups(right)
	if err != nil {
		return nil, errors.Wrap(err, "right")
	}
	d.patches = NewPatches(d.left, d.right, super.Fuse, qn)
	if len(d.patches) == 0 {
		return nil, errors.Errorf("no patches for quantum number %d, left %v, right %v", qn, left.QuantumNumbers(), right.QuantumNumbers())
	}

	if err := d.setSector(super); err != nil {
		return nil, errors.Wrap(err, "")
	}

	d.hl, d.hr = left.Hamiltonian(), right.Hamiltonian()
	d.aL = NewSliceCache(d.hl, d.left)
	if nnz := d.aL.offDiagonal(); nnz != 0 {
		return nil, errors.Errorf("left hamiltonian mixes quantum numbers, %d nonzeros", nnz)
	}
	d.aRt = NewSliceCache(d.hr.TransposeConjugate(), d.right)
	if nnz := d.aRt.offDiagonal(); nnz != 0 {
		return nil, errors.Errorf("right hamiltonian mixes quantum numbers, %d nonzeros", nnz)
	}

	for ic := range conns.Len() {
		link, err := conns.Connection(ic)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%d", ic))
		}
		if err := d.addConnection(link); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%d", ic))
		}
	}

	return d, nil
}

// setSector locates the sector of the target quantum number in the external order,
// and checks that its states are exactly those covered by the patches.
func (d *Decomposition) setSector(super Super) error {
	nl, nr := d.left.Start(d.left.Len()), d.right.Start(d.right.Len())
	d.permutation, d.permutationInverse = super.Permutation(), super.PermutationInverse()
	if len(d.permutation) != nl*nr || len(d.permutationInverse) != nl*nr {
		return errors.Errorf("permutation %d %d, expected %d", len(d.permutation), len(d.permutationInverse), nl*nr)
	}
	for r, p := range d.permutation {
		if p < 0 || p >= nl*nr || d.permutationInverse[p] != r {
			return errors.Errorf("permutation is not a bijection at %d", r)
		}
	}

	partition, qns := super.Partition(), super.QuantumNumbers()
	if len(partition) != len(qns)+1 || partition[len(partition)-1] != nl*nr {
		return errors.Errorf("super partition %v, quantum numbers %v", partition, qns)
	}
	m := -1
	for i, q := range qns {
		if q == d.qn {
			m = i
			break
		}
	}
	if m < 0 {
		return errors.Errorf("no sector of quantum number %d in %v", d.qn, qns)
	}
	d.offset = partition[m]
	d.size = partition[m+1] - partition[m]
	if d.size <= 0 {
		return errors.Errorf("empty sector %d of quantum number %d", m, d.qn)
	}

	var patchSize int
	for _, p := range d.patches {
		patchSize += d.left.Size(p.Left) * d.right.Size(p.Right)
	}
	if patchSize != d.size {
		return errors.Errorf("patches cover %d states, sector has %d", patchSize, d.size)
	}
	for r := d.offset; r < d.offset+d.size; r++ {
		i, j := d.permutation[r]%nl, d.permutation[r]/nl
		gi, gj := d.left.Of(i), d.right.Of(j)
		if q := super.Fuse(d.left.QuantumNumber(gi), d.right.QuantumNumber(gj)); q != d.qn {
			return errors.Errorf("state %d (%d,%d) has quantum number %d, expected %d", r, i, j, q, d.qn)
		}
	}
	return nil
}

func (d *Decomposition) addConnection(link BondTerm) error {
	switch link.Orientation {
	case SystemEnviron:
	case EnvironSystem:
		link.A, link.B = link.B, link.A
		link.Orientation = SystemEnviron
	default:
		return errors.Errorf("%v", link.Orientation)
	}
	if link.A == nil || link.B == nil {
		return errors.Errorf("missing operator %#v", link)
	}
	nl, nr := d.left.Start(d.left.Len()), d.right.Start(d.right.Len())
	if link.A.Rows() != nl || link.A.Cols() != nl {
		return errors.Errorf("left operator %dx%d, block size %d", link.A.Rows(), link.A.Cols(), nl)
	}
	if link.B.Rows() != nr || link.B.Cols() != nr {
		return errors.Errorf("right operator %dx%d, block size %d", link.B.Rows(), link.B.Cols(), nr)
	}

	d.terms = append(d.terms, link)
	d.xc = append(d.xc, NewSliceCache(link.A, d.left))
	d.yc = append(d.yc, NewSliceCache(link.B.TransposeConjugate(), d.right))
	return nil
}

// Connections returns the number of bond terms.
func (d *Decomposition) Connections() int { return len(d.terms) }

// Value returns the coupling of bond term ic.
func (d *Decomposition) Value(ic int) complex128 { return d.terms[ic].Value }

// Xc returns the slices of the left operator of bond term ic.
func (d *Decomposition) Xc(ic int) *SliceCache { return d.xc[ic] }

// Yc returns the slices of the Hermitian conjugate of the right operator of bond term ic.
func (d *Decomposition) Yc(ic int) *SliceCache { return d.yc[ic] }

// AL returns the slices of the left Hamiltonian.
func (d *Decomposition) AL() *SliceCache { return d.aL }

// ARt returns the slices of the Hermitian conjugate of the right Hamiltonian.
func (d *Decomposition) ARt() *SliceCache { return d.aRt }

// Patches returns the number of patches.
func (d *Decomposition) Patches() int { return len(d.patches) }

// Patch returns the left and right groups of patch i.
func (d *Decomposition) Patch(i int) Patch { return d.patches[i] }

// Left returns the groups of the left block.
func (d *Decomposition) Left() Groups { return d.left }

// Right returns the groups of the right block.
func (d *Decomposition) Right() Groups { return d.right }

// Offset returns the external index where the sector begins.
func (d *Decomposition) Offset() int { return d.offset }

// Size returns the dimension of the sector.
func (d *Decomposition) Size() int { return d.size }

// QuantumNumber returns the quantum number of the sector.
func (d *Decomposition) QuantumNumber() int { return d.qn }

// Threads returns the number of workers of the connection pass.
func (d *Decomposition) Threads() int { return d.threads }
