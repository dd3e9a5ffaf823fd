// Package balance estimates the class balance P(Y=y) of an unobserved
// categorical label, and the accuracy profile of the noisy labeling sources
// that emit it, from the sources' outputs alone.
//
// The estimator assumes the sources are conditionally independent given the
// true label. Under that assumption the empirical joint distribution of any
// three distinct sources' outputs factorizes through the latent class, so
// the (m,m,m,kLF,kLF,kLF) overlaps tensor built by OverlapsTensor admits a
// rank-k symmetric decomposition whose factors carry the class balance and
// the per-source conditional probabilities. Model.Fit recovers the factors
// by quasi-Newton least squares restricted to pairwise-distinct source
// triples, then resolves the residual latent-column permutation with a
// plurality vote over per-source argmax orderings.
//
// The computation is a synchronous, single-threaded batch fit; the overlaps
// tensor grows as O(m^3 * kLF^3) and is assumed to fit in memory.
package balance
