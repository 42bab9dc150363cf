package kron

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Matrix multiplies vectors of one quantum number sector by the super-block Hamiltonian.
type Matrix struct {
	d *Decomposition
}

// NewMatrix returns the product operator of a decomposition.
func NewMatrix(d *Decomposition) *Matrix {
	return &Matrix{d: d}
}

// Size returns the dimension of the sector.
func (m *Matrix) Size() int { return m.d.Size() }

// Decomposition returns the sliced operators of the product.
func (m *Matrix) Decomposition() *Decomposition { return m.d }

// MatrixVectorProduct adds H*in to out, where in and out are indexed by the external order of the sector,
// i.e. index r of in is the external index Offset()+r.
func (m *Matrix) MatrixVectorProduct(out, in []complex128) {
	if len(in) != m.d.size || len(out) != m.d.size {
		panic(fmt.Sprintf("%d %d %d", len(in), len(out), m.d.size))
	}
	nl, nr := m.d.left.Start(m.d.left.Len()), m.d.right.Start(m.d.right.Len())
	v := mat.NewCDense(nl, nr, nil)
	w := mat.NewCDense(nl, nr, nil)

	m.gather(v, in)
	m.computeRight(w, v)
	m.computeLeft(w, v)
	m.computeConnections(w, v)
	m.scatter(out, w)
}

// MatrixVectorProductFull is like MatrixVectorProduct, except that in and out span the whole super-block.
// Entries outside the sector are neither read nor written.
func (m *Matrix) MatrixVectorProductFull(out, in []complex128) {
	n := len(m.d.permutation)
	if len(in) != n || len(out) != n {
		panic(fmt.Sprintf("%d %d %d", len(in), len(out), n))
	}
	lo, hi := m.d.offset, m.d.offset+m.d.size
	m.MatrixVectorProduct(out[lo:hi], in[lo:hi])
}

// gather copies the sector vector into the (left, right) layout of v.
func (m *Matrix) gather(v *mat.CDense, in []complex128) {
	d := m.d
	nl := d.left.Start(d.left.Len())
	raw := v.RawCMatrix()
	for ipatch := range d.Patches() {
		p := d.Patch(ipatch)
		for i := d.left.Start(p.Left); i < d.left.Start(p.Left+1); i++ {
			for j := d.right.Start(p.Right); j < d.right.Start(p.Right+1); j++ {
				r := d.permutationInverse[i+j*nl]
				if r < d.offset || r >= d.offset+d.size {
					continue
				}
				raw.Data[i*raw.Stride+j] = in[r-d.offset]
			}
		}
	}
}

// computeRight adds V * H_R† within each patch.
func (m *Matrix) computeRight(w, v *mat.CDense) {
	d := m.d
	wr, vr := w.RawCMatrix(), v.RawCMatrix()
	for ipatch := range d.Patches() {
		p := d.Patch(ipatch)
		aRt := d.aRt.At(p.Right, p.Right)
		if aRt.NNZ() == 0 {
			continue
		}
		j1 := d.right.Start(p.Right)
		for ii := d.left.Start(p.Left); ii < d.left.Start(p.Left+1); ii++ {
			for mr := range aRt.Rows() {
				x := vr.Data[ii*vr.Stride+j1+mr]
				if x == 0 {
					continue
				}
				for k := aRt.RowPtr(mr); k < aRt.RowPtr(mr+1); k++ {
					wr.Data[ii*wr.Stride+j1+aRt.Col(k)] += x * aRt.Value(k)
				}
			}
		}
	}
}

// computeLeft adds H_L * V within each patch.
func (m *Matrix) computeLeft(w, v *mat.CDense) {
	d := m.d
	wr, vr := w.RawCMatrix(), v.RawCMatrix()
	for ipatch := range d.Patches() {
		p := d.Patch(ipatch)
		aL := d.aL.At(p.Left, p.Left)
		if aL.NNZ() == 0 {
			continue
		}
		i1 := d.left.Start(p.Left)
		j1, j2 := d.right.Start(p.Right), d.right.Start(p.Right+1)
		for mr := range aL.Rows() {
			dst := wr.Data[(i1+mr)*wr.Stride+j1 : (i1+mr)*wr.Stride+j2]
			for k := aL.RowPtr(mr); k < aL.RowPtr(mr+1); k++ {
				a := aL.Value(k)
				src := vr.Data[(i1+aL.Col(k))*vr.Stride+j1 : (i1+aL.Col(k))*vr.Stride+j2]
				for jj, x := range src {
					dst[jj] += a * x
				}
			}
		}
	}
}

// computeConnections runs the bond terms over contiguous ranges of output patches, one range per thread.
func (m *Matrix) computeConnections(w, v *mat.CDense) {
	d := m.d
	if d.Connections() == 0 {
		return
	}
	wr, vr := w.RawCMatrix(), v.RawCMatrix()
	parallelFor(d.threads, d.Patches(), func(start, end int) {
		newConnectionWorker(d, wr, vr).run(start, end)
	})
}

// scatter adds w to the sector vector out.
func (m *Matrix) scatter(out []complex128, w *mat.CDense) {
	d := m.d
	nl := d.left.Start(d.left.Len())
	raw := w.RawCMatrix()
	for r := range d.size {
		p := d.permutation[d.offset+r]
		i, j := p%nl, p/nl
		out[r] += raw.Data[i*raw.Stride+j]
	}
}
