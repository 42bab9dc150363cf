// Package lanczos finds the ground state of a Hermitian operator that is only available through matrix vector products.
package lanczos

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/mat"
)

// Operator is a Hermitian linear operator.
type Operator interface {
	Size() int
	// MatrixVectorProduct adds the product of the operator and in to out.
	MatrixVectorProduct(out, in []complex128)
}

// Options are options of the Lanczos iteration.
type Options struct {
	maxIterations int
	tol           float64
	seed          uint64
}

// NewOptions returns the default options.
func NewOptions() Options {
	opt := Options{}
	opt.maxIterations = 200
	opt.tol = 1e-10
	opt.seed = 1
	return opt
}

// MaxIterations sets the maximum dimension of the Krylov space.
func (opt Options) MaxIterations(i int) Options {
	opt.maxIterations = i
	return opt
}

// Tol sets the tolerance of the residual norm |Hx - ex|, relative to max(|e|, 1).
func (opt Options) Tol(tol float64) Options {
	opt.tol = tol
	return opt
}

// Seed sets the seed of the random starting vector.
func (opt Options) Seed(seed uint64) Options {
	opt.seed = seed
	return opt
}

// Result is the outcome of a ground state search.
type Result struct {
	Energy float64
	Vector []complex128
	// Iterations is the dimension of the Krylov space.
	Iterations int
	// Residual is the norm of Hx - ex.
	Residual float64
}

// GroundState returns the lowest eigenvalue of op and its normalized eigenvector.
// Every Lanczos vector is reorthogonalized against all previous ones.
func GroundState(op Operator, options ...Options) (Result, error) {
	opt := NewOptions()
	if len(options) > 0 {
		opt = options[0]
	}
	n := op.Size()
	if n == 0 {
		return Result{}, errors.Errorf("empty operator")
	}
	if opt.maxIterations < 1 {
		return Result{}, errors.Errorf("max iterations %d", opt.maxIterations)
	}

	rng := rand.New(rand.NewPCG(opt.seed, uint64(n)))
	v := make([]complex128, n)
	for i := range v {
		v[i] = complex(rng.Float64()*2-1, rng.Float64()*2-1)
	}
	cmplxs.Scale(complex(1/cmplxs.Norm(v, 2), 0), v)

	basis := make([][]complex128, 0)
	alpha := make([]float64, 0)
	beta := make([]float64, 0)
	var res Result
	for k := range min(opt.maxIterations, n) {
		basis = append(basis, v)
		w := make([]complex128, n)
		op.MatrixVectorProduct(w, v)
		a := real(cmplxs.Dot(v, w))
		alpha = append(alpha, a)

		cmplxs.AddScaled(w, complex(-a, 0), v)
		if k > 0 {
			cmplxs.AddScaled(w, complex(-beta[k-1], 0), basis[k-1])
		}
		// Twice is enough.
		for range 2 {
			for _, u := range basis {
				cmplxs.AddScaled(w, -cmplxs.Dot(u, w), u)
			}
		}
		b := cmplxs.Norm(w, 2)

		energy, s, err := lowest(alpha, beta)
		if err != nil {
			return Result{}, errors.Wrap(err, fmt.Sprintf("%d", k))
		}
		res = Result{Energy: energy, Iterations: k + 1, Residual: b * math.Abs(s[k])}
		if res.Residual < opt.tol*max(math.Abs(energy), 1) || k+1 == n {
			res.Vector = ritzVector(basis, s)
			return res, nil
		}
		if b < 1e-14*max(math.Abs(energy), 1) {
			return Result{}, errors.Errorf("invariant subspace of dimension %d without convergence %#v", k+1, res)
		}

		beta = append(beta, b)
		cmplxs.Scale(complex(1/b, 0), w)
		v = w
	}
	return Result{}, errors.Errorf("not converged %#v", res)
}

// lowest returns the lowest eigenvalue and eigenvector of the symmetric tridiagonal matrix with diagonal alpha and off-diagonal beta.
func lowest(alpha, beta []float64) (float64, []float64, error) {
	k := len(alpha)
	t := mat.NewSymDense(k, nil)
	for i, a := range alpha {
		t.SetSym(i, i, a)
		if i+1 < k {
			t.SetSym(i, i+1, beta[i])
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(t, true); !ok {
		return 0, nil, errors.Errorf("eigen decomposition failed %v %v", alpha, beta)
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)
	return values[0], mat.Col(nil, 0, &vectors), nil
}

func ritzVector(basis [][]complex128, s []float64) []complex128 {
	x := make([]complex128, len(basis[0]))
	for i, u := range basis {
		cmplxs.AddScaled(x, complex(s[i], 0), u)
	}
	cmplxs.Scale(complex(1/cmplxs.Norm(x, 2), 0), x)
	return x
}
