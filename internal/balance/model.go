package balance

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/optimize"

	"github.com/banshee-data/weaklabel/internal/monitoring"
	"github.com/banshee-data/weaklabel/internal/tensor"
)

// ErrNoInput is returned by Fit when neither a label matrix nor a
// precomputed overlaps tensor is supplied.
var ErrNoInput = errors.New("balance: label matrix or overlaps tensor required")

// Options configures a Model fit.
type Options struct {
	// Abstains declares whether 0 is a legal emitted value meaning
	// "no label". When true, sources emit values in {0,...,k}; when
	// false, in {1,...,k}.
	Abstains bool

	// LearnRate scales the least-squares objective handed to the
	// optimizer, which with a line-search method only nudges the initial
	// bracketing step. Kept for parity with step-size-driven optimizers;
	// the default of 1 is fine for virtually all inputs.
	LearnRate float64

	// MaxIter caps the optimizer's major iterations. Hitting the cap is
	// not an error; the fit keeps whatever the optimizer reached.
	MaxIter int

	// Verbose logs the loss at every objective evaluation through
	// monitoring.Logf.
	Verbose bool

	// Rand supplies the factor initialization randomness. Nil uses the
	// global math/rand source; fix the seed for reproducible fits.
	Rand *rand.Rand
}

const (
	defaultLearnRate = 1
	defaultMaxIter   = 1000
)

// Model estimates the latent class balance P(Y=y) and the per-source
// conditional emission probabilities P(source_i = v | Y = y) from the
// outputs of conditionally independent noisy labeling sources, with no
// ground truth. It matches the empirical three-way overlaps tensor with a
// rank-k symmetric factorization, then decodes the factor into the two
// estimates.
//
// A Model is not safe for concurrent use: Fit overwrites the estimated
// state wholesale, and the accessors must not race with an in-flight Fit.
type Model struct {
	k    int // cardinality of the true label, Y in {1,...,k}
	k0   int // smallest emitted value: 0 with abstains, else 1
	kLF  int // emitted-value cardinality per source
	opts Options

	// Set by Fit.
	m            int
	classBalance []float64
	condProbs    *tensor.Dense
	lossTrace    []float64
}

// New returns a Model for k true classes. Panics if k < 2: a one-class
// balance has nothing to estimate, so this is a programmer error.
func New(k int, opts Options) *Model {
	if k < 2 {
		panic(fmt.Sprintf("balance: k must be >= 2, got %d", k))
	}
	if opts.LearnRate <= 0 {
		opts.LearnRate = defaultLearnRate
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = defaultMaxIter
	}
	k0 := 1
	if opts.Abstains {
		k0 = 0
	}
	return &Model{
		k:    k,
		k0:   k0,
		kLF:  k - k0 + 1,
		opts: opts,
	}
}

// K returns the number of true classes.
func (md *Model) K() int { return md.k }

// KLF returns the number of distinct values a source can emit.
func (md *Model) KLF() int { return md.kLF }

// Sources returns the number of labeling sources seen by the last Fit,
// or 0 before any fit.
func (md *Model) Sources() int { return md.m }

// ClassBalance returns the estimated prior over true classes from the last
// Fit. The k entries lie in [0,1] and sum to 1. Nil before any fit.
func (md *Model) ClassBalance() []float64 { return md.classBalance }

// CondProbs returns the estimated P(source_i = v | Y = y) from the last
// Fit, shaped (m, kLF, k); each (i, :, y) slice sums to 1. Nil before any
// fit.
func (md *Model) CondProbs() *tensor.Dense { return md.condProbs }

// LossTrajectory returns the objective value at each evaluation of the last
// Fit, for convergence inspection. Nil before any fit.
func (md *Model) LossTrajectory() []float64 { return md.lossTrace }

// FitInput carries the data for a Fit: either a raw label matrix L
// (n examples x m sources, values in [k0,k]) or a precomputed overlaps
// tensor O of shape (m,m,m,kLF,kLF,kLF). When both are set, O wins. The
// model does not cross-check a supplied O against its configured
// cardinalities; inconsistent shapes panic out of the tensor indexing.
type FitInput struct {
	L [][]int
	O *tensor.Dense
}

// Fit estimates the class balance and conditional probabilities from the
// input. It builds the overlaps tensor and validity mask, fits the factor
// tensor Q by quasi-Newton (L-BFGS) least squares on the masked entries,
// and decodes Q into the estimates, resolving the latent-column permutation
// by plurality vote. Estimated state is replaced wholesale; on error no
// state changes. Non-convergence within MaxIter is not an error.
func (md *Model) Fit(in FitInput) error {
	o := in.O
	switch {
	case o != nil:
	case in.L != nil:
		o = OverlapsTensor(in.L, md.k0, md.k)
	default:
		return fmt.Errorf("fit: %w", ErrNoInput)
	}
	m := o.Shape()[0]
	mask := OverlapsMask(m, md.kLF)

	// Initialize the factor entries i.i.d. uniform on [0,1).
	uniform := rand.Float64
	if md.opts.Rand != nil {
		uniform = md.opts.Rand.Float64
	}
	q := make([]float64, m*md.kLF*md.k)
	for i := range q {
		q[i] = uniform()
	}

	var trace []float64
	obj := newObjective(o, mask, m, md.kLF, md.k, md.opts.LearnRate)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			loss := obj.loss(x, nil)
			trace = append(trace, loss)
			if md.opts.Verbose {
				monitoring.Logf("fit loss: %.8f", loss)
			}
			return loss
		},
		Grad: func(grad, x []float64) {
			obj.loss(x, grad)
		},
	}
	settings := &optimize.Settings{MajorIterations: md.opts.MaxIter}
	result, err := optimize.Minimize(problem, q, settings, &optimize.LBFGS{})
	switch {
	case result == nil || len(result.X) == 0:
		return fmt.Errorf("fit: optimizer produced no iterate: %v", err)
	case err != nil:
		// Line-search stalls are routine on this non-convex surface;
		// keep the best iterate, as with an exhausted iteration cap.
		monitoring.Logf("fit: optimizer stopped early (%v); keeping last iterate", err)
	}

	cb, cps := decode(result.X, m, md.kLF, md.k, md.opts.Abstains)
	md.m = m
	md.classBalance = cb
	md.condProbs = cps
	md.lossTrace = trace
	return nil
}

// objective evaluates the masked sum-of-squares residual between the
// overlaps tensor and its rank-k symmetric reconstruction
//
//	R[i,j,l,a,b,c] = sum_y Q[i,a,y] * Q[j,b,y] * Q[l,c,y]
//
// together with its analytic gradient. The residual is a polynomial in Q,
// so the gradient follows from the product rule: each masked entry
// contributes through exactly one of the three factor slots per slot index,
// since masked triples have pairwise distinct sources.
type objective struct {
	o    *tensor.Dense
	mask *tensor.Bool
	m    int
	kLF  int
	k    int
	// scale multiplies loss and gradient; see Options.LearnRate.
	scale float64
}

func newObjective(o *tensor.Dense, mask *tensor.Bool, m, kLF, k int, scale float64) *objective {
	// The hot loop walks Data flat, so a caller-supplied overlaps tensor
	// with the wrong value cardinality must fail loudly up front rather
	// than be misread. Offset carries the tensor package's bounds panics.
	o.Offset(m-1, m-1, m-1, kLF-1, kLF-1, kLF-1)
	if o.Rank() != 6 || o.Len() != mask.Len() {
		panic(fmt.Sprintf("tensor: overlaps shape %v does not match mask shape %v", o.Shape(), mask.Shape()))
	}
	return &objective{o: o, mask: mask, m: m, kLF: kLF, k: k, scale: scale}
}

// loss returns the objective at q (flattened Q, row-major (m,kLF,k)).
// When grad is non-nil it is overwritten with the gradient.
func (ob *objective) loss(q, grad []float64) float64 {
	if grad != nil {
		for i := range grad {
			grad[i] = 0
		}
	}
	k := ob.k
	total := 0.0
	pos := 0 // flat index into o/mask, walked in row-major order
	for i := 0; i < ob.m; i++ {
		for j := 0; j < ob.m; j++ {
			for l := 0; l < ob.m; l++ {
				// The mask is uniform across the value axes, so one
				// probe covers the whole (i,j,l) block.
				if !ob.mask.Data[pos] {
					pos += ob.kLF * ob.kLF * ob.kLF
					continue
				}
				for a := 0; a < ob.kLF; a++ {
					qi := (i*ob.kLF + a) * k
					for b := 0; b < ob.kLF; b++ {
						qj := (j*ob.kLF + b) * k
						for c := 0; c < ob.kLF; c++ {
							ql := (l*ob.kLF + c) * k
							recon := 0.0
							for y := 0; y < k; y++ {
								recon += q[qi+y] * q[qj+y] * q[ql+y]
							}
							diff := recon - ob.o.Data[pos]
							total += diff * diff
							if grad != nil {
								g := 2 * ob.scale * diff
								for y := 0; y < k; y++ {
									grad[qi+y] += g * q[qj+y] * q[ql+y]
									grad[qj+y] += g * q[qi+y] * q[ql+y]
									grad[ql+y] += g * q[qi+y] * q[qj+y]
								}
							}
							pos++
						}
					}
				}
			}
		}
	}
	return ob.scale * total
}
