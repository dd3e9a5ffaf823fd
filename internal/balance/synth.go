package balance

import (
	"fmt"
	"math/rand"
)

// SynthConfig describes a population of conditionally independent labeling
// sources for Synthesize.
type SynthConfig struct {
	// ClassBalance is the true prior over the k classes; must sum to ~1.
	ClassBalance []float64
	// Accuracy[i] is P(source_i emits the true class | it does not
	// abstain). Errors are spread uniformly over the other classes.
	Accuracy []float64
	// AbstainRate[i] is P(source_i emits 0). Leave nil to disable
	// abstains entirely.
	AbstainRate []float64
}

// Synthesize draws an n-example label matrix from known ground truth: each
// example gets a latent class from ClassBalance, and each source emits
// independently given that class. Useful for recovery tests and the demo
// mode of cmd/balance. Panics on inconsistent config, since this only runs
// from tests and tools.
func Synthesize(rng *rand.Rand, n int, cfg SynthConfig) [][]int {
	k := len(cfg.ClassBalance)
	m := len(cfg.Accuracy)
	if k < 2 || m == 0 || n <= 0 {
		panic(fmt.Sprintf("balance: bad synth dims n=%d m=%d k=%d", n, m, k))
	}
	if cfg.AbstainRate != nil && len(cfg.AbstainRate) != m {
		panic(fmt.Sprintf("balance: %d abstain rates for %d sources", len(cfg.AbstainRate), m))
	}

	L := make([][]int, n)
	for e := range L {
		y := sample(rng, cfg.ClassBalance) + 1
		row := make([]int, m)
		for i := 0; i < m; i++ {
			if cfg.AbstainRate != nil && rng.Float64() < cfg.AbstainRate[i] {
				row[i] = 0
				continue
			}
			if rng.Float64() < cfg.Accuracy[i] {
				row[i] = y
				continue
			}
			// Uniform over the k-1 wrong classes.
			wrong := rng.Intn(k-1) + 1
			if wrong >= y {
				wrong++
			}
			row[i] = wrong
		}
		L[e] = row
	}
	return L
}

// sample draws an index from the given (approximately normalized) weights.
func sample(rng *rand.Rand, weights []float64) int {
	u := rng.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if u < acc {
			return i
		}
	}
	return len(weights) - 1
}
