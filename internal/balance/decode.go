package balance

import (
	"math"
	"sort"

	"github.com/banshee-data/weaklabel/internal/tensor"
)

// decode recovers the class balance and conditional probabilities from the
// fitted factor q (flattened row-major (m, kLF, k)).
//
// In the exact factorization every source's total column-y mass equals
// p_y^(1/3), so cubing the per-source column sums and averaging across
// sources denoises the estimate; dividing q by p_y^(1/3) then undoes the
// cube-root scaling to give the conditional probabilities. The remaining
// latent-column permutation is resolved by resolvePermutation. The outputs
// are renormalized so the stated sum-to-one guarantees hold even when the
// optimizer stopped short of convergence.
func decode(q []float64, m, kLF, k int, abstains bool) ([]float64, *tensor.Dense) {
	// p_y[y] = mean over sources of (sum over values of Q[i,:,y])^3.
	pY := make([]float64, k)
	for y := 0; y < k; y++ {
		acc := 0.0
		for i := 0; i < m; i++ {
			colMass := 0.0
			for v := 0; v < kLF; v++ {
				colMass += q[(i*kLF+v)*k+y]
			}
			acc += colMass * colMass * colMass
		}
		pY[y] = acc / float64(m)
	}

	// cps[i,v,y] = Q[i,v,y] / p_y^(1/3).
	cps := tensor.NewDense(m, kLF, k)
	for y := 0; y < k; y++ {
		inv := 1 / math.Cbrt(pY[y])
		for i := 0; i < m; i++ {
			for v := 0; v < kLF; v++ {
				cps.Data[(i*kLF+v)*k+y] = q[(i*kLF+v)*k+y] * inv
			}
		}
	}

	order := resolvePermutation(cps, abstains)

	balanceOut := make([]float64, k)
	for y := 0; y < k; y++ {
		balanceOut[y] = pY[order[y]]
	}
	normalize(balanceOut)

	out := tensor.NewDense(m, kLF, k)
	col := make([]float64, kLF)
	for i := 0; i < m; i++ {
		for y := 0; y < k; y++ {
			for v := 0; v < kLF; v++ {
				col[v] = cps.Data[(i*kLF+v)*k+order[y]]
			}
			normalize(col)
			for v := 0; v < kLF; v++ {
				out.Data[(i*kLF+v)*k+y] = col[v]
			}
		}
	}
	return balanceOut, out
}

// resolvePermutation maps canonical class indices to latent columns of the
// fitted factor, assuming sources are better than random: each source's
// most probable emitted value per class then orders the columns in the same
// systematic way. Every source votes with its own argmax ordering over
// non-abstain values, and the plurality ordering wins; exact count ties go
// to the lexicographically smallest ordering.
//
// This is a heuristic, not a guarantee. Highly correlated or near-random
// sources, or a small k, can make it pick a wrong but self-consistent
// ordering, and no confidence signal is computed for it.
func resolvePermutation(cps *tensor.Dense, abstains bool) []int {
	shape := cps.Shape()
	m, kLF, k := shape[0], shape[1], shape[2]
	offset := 0
	if abstains {
		offset = 1 // only non-abstain values carry class identity
	}

	counts := make(map[string]int, m)
	orders := make(map[string][]int, m)
	for i := 0; i < m; i++ {
		ord := make([]int, 0, kLF-offset)
		for v := offset; v < kLF; v++ {
			best := 0
			for y := 1; y < k; y++ {
				if cps.At(i, v, y) > cps.At(i, v, best) {
					best = y
				}
			}
			ord = append(ord, best)
		}
		key := string(intsToBytes(ord))
		counts[key]++
		if _, seen := orders[key]; !seen {
			orders[key] = ord
		}
	}

	// Scan keys in sorted order so an exact count tie resolves to the
	// lexicographically smallest ordering.
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	bestKey := keys[0]
	for _, key := range keys[1:] {
		if counts[key] > counts[bestKey] {
			bestKey = key
		}
	}
	return orders[bestKey]
}

func intsToBytes(xs []int) []byte {
	bs := make([]byte, len(xs))
	for i, x := range xs {
		bs[i] = byte(x)
	}
	return bs
}

// normalize rescales xs in place to sum to 1, clamping negative entries to
// zero first. Entries from an unconverged fit can dip slightly negative; a
// uniform fallback covers the degenerate all-zero case.
func normalize(xs []float64) {
	total := 0.0
	for i, x := range xs {
		if x < 0 {
			xs[i] = 0
			continue
		}
		total += x
	}
	if total == 0 {
		for i := range xs {
			xs[i] = 1 / float64(len(xs))
		}
		return
	}
	for i := range xs {
		xs[i] /= total
	}
}
