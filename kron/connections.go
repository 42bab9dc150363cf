package kron

import (
	"gonum.org/v1/gonum/blas/cblas128"

	"github.com/fumin/dmrg/sparse"
)

// connectionWorker accumulates the bond terms into the output patches it owns.
type connectionWorker struct {
	d *Decomposition
	w cblas128.General
	v cblas128.General

	// intermediate holds the product of a left slice with the input block, row-major with stride cols.
	intermediate []complex128
	cols         int
}

func newConnectionWorker(d *Decomposition, w, v cblas128.General) *connectionWorker {
	cw := &connectionWorker{d: d, w: w, v: v}
	cw.cols = d.right.MaxSize()
	cw.intermediate = make([]complex128, d.left.MaxSize()*cw.cols)
	return cw
}

// run handles the output patches in [start, end).
// Output patches own disjoint rectangles of w, so workers with disjoint ranges never write the same entry.
func (cw *connectionWorker) run(start, end int) {
	for outPatch := start; outPatch < end; outPatch++ {
		for inPatch := range cw.d.Patches() {
			for ic := range cw.d.Connections() {
				cw.connect(outPatch, inPatch, ic)
			}
		}
	}
}

// connect computes
//
//	W[out] += value * A(out.Left, in.Left) * V[in] * B†(in.Right, out.Right).
func (cw *connectionWorker) connect(outPatch, inPatch, ic int) {
	d := cw.d
	out, in := d.Patch(outPatch), d.Patch(inPatch)

	tmp1 := d.Xc(ic).At(out.Left, in.Left)
	if tmp1.NNZ() == 0 {
		return
	}
	tmp2 := d.Yc(ic).At(in.Right, out.Right)
	if tmp2.NNZ() == 0 {
		return
	}
	val := d.Value(ic)
	if val == 0 {
		return
	}

	ip1, jp1 := d.left.Start(out.Left), d.right.Start(out.Right)
	i1, j1 := d.left.Start(in.Left), d.right.Start(in.Right)
	rows, inCols := d.left.Size(out.Left), d.right.Size(in.Right)

	cw.multiplyLeft(tmp1, val, i1, j1, rows, inCols)
	cw.multiplyRight(tmp2, ip1, jp1, rows)
}

// multiplyLeft sets intermediate = val * tmp1 * V[i1:, j1:j1+inCols].
func (cw *connectionWorker) multiplyLeft(tmp1 *sparse.CSR, val complex128, i1, j1, rows, inCols int) {
	v := cw.v
	for mr := range rows {
		dst := cw.intermediate[mr*cw.cols : mr*cw.cols+inCols]
		clear(dst)
		for k := tmp1.RowPtr(mr); k < tmp1.RowPtr(mr+1); k++ {
			a := val * tmp1.Value(k)
			row := (i1 + tmp1.Col(k)) * v.Stride
			src := v.Data[row+j1 : row+j1+inCols]
			for mr2, x := range src {
				dst[mr2] += a * x
			}
		}
	}
}

// multiplyRight adds intermediate * tmp2 to W[ip1:ip1+rows, jp1:].
func (cw *connectionWorker) multiplyRight(tmp2 *sparse.CSR, ip1, jp1, rows int) {
	w := cw.w
	for mr := range rows {
		src := cw.intermediate[mr*cw.cols : mr*cw.cols+tmp2.Rows()]
		row := (ip1+mr)*w.Stride + jp1
		for mr2, x := range src {
			if x == 0 {
				continue
			}
			for k := tmp2.RowPtr(mr2); k < tmp2.RowPtr(mr2+1); k++ {
				w.Data[row+tmp2.Col(k)] += x * tmp2.Value(k)
			}
		}
	}
}
