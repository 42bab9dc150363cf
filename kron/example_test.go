package kron

import (
	"fmt"
	"log"

	"github.com/fumin/dmrg/sparse"
)

func ExampleMatrix() {
	// A left block of three states in sectors {0, 0} and {1},
	// and a right block of five states in sectors {0, 0, 0} and {1, 1}.
	left := testBlock{h: sparse.Identity(3), partition: []int{0, 2, 3}, qns: []int{0, 1}}
	right := testBlock{h: sparse.Zeros(5, 5), partition: []int{0, 3, 5}, qns: []int{0, 1}}
	super := newTestSuper(left, right)
	flip := sparse.M([][]complex128{
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0},
		{0, 0, 0, 0, 1},
		{0, 0, 0, 1, 0},
	})
	conns := testConnections{{A: sparse.Identity(3), B: flip, Value: 2}}

	d, err := New(left, right, super, 1, conns, NewOptions().Threads(2))
	if err != nil {
		log.Fatalf("%+v", err)
	}
	m := NewMatrix(d)
	fmt.Println(d.Patches(), d.Offset(), m.Size())

	in := []complex128{0, 0, 0, 1, 0, 0, 0}
	out := make([]complex128, m.Size())
	m.MatrixVectorProduct(out, in)
	fmt.Println(out)

	// Output:
	// 2 6 7
	// [(0+0i) (0+0i) (0+0i) (1+0i) (0+0i) (2+0i) (0+0i)]
}
