package balance

import (
	"fmt"

	"github.com/banshee-data/weaklabel/internal/tensor"
)

// OverlapsTensor converts a label matrix into the three-way empirical
// overlaps tensor.
//
// L is an n x m matrix of source outputs, each in [k0, k]. The result O has
// shape (m, m, m, kLF, kLF, kLF) with kLF = k - k0 + 1, where
//
//	O[i,j,l,a,b,c] = P(source_i = a+k0, source_j = b+k0, source_l = c+k0)
//
// estimated empirically over the n examples. Each example emits exactly one
// value per source, so for any fixed source triple the value block sums to 1.
// Pure function of L; panics if L is empty, ragged, or holds a value outside
// [k0, k].
func OverlapsTensor(L [][]int, k0, k int) *tensor.Dense {
	n := len(L)
	if n == 0 {
		panic("balance: empty label matrix")
	}
	m := len(L[0])
	if m == 0 {
		panic("balance: label matrix has no sources")
	}
	kLF := k - k0 + 1

	// Per-example indicator codes: code[e][i] = L[e][i] - k0.
	codes := make([][]int, n)
	for e, row := range L {
		if len(row) != m {
			panic(fmt.Sprintf("balance: ragged label matrix: row %d has %d sources, want %d", e, len(row), m))
		}
		codes[e] = make([]int, m)
		for i, v := range row {
			if v < k0 || v > k {
				panic(fmt.Sprintf("balance: label %d at (%d,%d) outside [%d,%d]", v, e, i, k0, k))
			}
			codes[e][i] = v - k0
		}
	}

	// Accumulate counts for every ordered source triple. Each example
	// contributes to exactly one value cell per (i,j,l), which is the
	// sum-over-examples of the product of the three indicators.
	o := tensor.NewDense(m, m, m, kLF, kLF, kLF)
	sj := o.Stride(1) // precomputed axis strides for the flat walk
	sl := o.Stride(2)
	sa := o.Stride(3)
	sb := o.Stride(4)
	sc := o.Stride(5)
	si := o.Stride(0)
	for _, row := range codes {
		for i := 0; i < m; i++ {
			base := i*si + row[i]*sa
			for j := 0; j < m; j++ {
				baseJ := base + j*sj + row[j]*sb
				for l := 0; l < m; l++ {
					o.Data[baseJ+l*sl+row[l]*sc]++
				}
			}
		}
	}
	o.Scale(1 / float64(n))
	return o
}
