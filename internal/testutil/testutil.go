// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the numeric assertions used across the estimator
// test files to reduce code duplication and keep tolerances consistent.
package testutil

import (
	"math"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertSumsToOne checks that xs sums to 1 within tol.
func AssertSumsToOne(t *testing.T, xs []float64, tol float64) {
	t.Helper()
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	if math.Abs(sum-1) > tol {
		t.Errorf("sum = %g, want 1 ± %g (values %v)", sum, tol, xs)
	}
}

// AssertInUnitInterval checks that every entry of xs lies in [0,1].
func AssertInUnitInterval(t *testing.T, xs []float64) {
	t.Helper()
	for i, x := range xs {
		if x < 0 || x > 1 {
			t.Errorf("entry %d = %g, want within [0,1]", i, x)
		}
	}
}

// L1Distance returns the sum of absolute differences between two equal-length
// vectors.
func L1Distance(t *testing.T, a, b []float64) float64 {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	d := 0.0
	for i := range a {
		d += math.Abs(a[i] - b[i])
	}
	return d
}
