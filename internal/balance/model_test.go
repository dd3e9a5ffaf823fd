package balance

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/weaklabel/internal/monitoring"
	"github.com/banshee-data/weaklabel/internal/tensor"
	"github.com/banshee-data/weaklabel/internal/testutil"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { New(1, Options{}) })
	assert.Panics(t, func() { New(0, Options{}) })

	md := New(2, Options{Abstains: true})
	assert.Equal(t, 2, md.K())
	assert.Equal(t, 3, md.KLF())

	md = New(3, Options{})
	assert.Equal(t, 3, md.KLF(), "without abstains k_lf equals k")
}

func TestFitRequiresInput(t *testing.T) {
	t.Parallel()

	md := New(2, Options{Abstains: true})
	err := md.Fit(FitInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoInput))

	// No partial state on a rejected call.
	assert.Nil(t, md.ClassBalance())
	assert.Nil(t, md.CondProbs())
	assert.Nil(t, md.LossTrajectory())
	assert.Equal(t, 0, md.Sources())
}

func TestFitRecoversKnownBalance(t *testing.T) {
	t.Parallel()

	// Five conditionally independent sources, accuracy 0.8, abstain rate
	// 0.1, true balance [0.6, 0.4], 10k examples.
	rng := rand.New(rand.NewSource(42))
	trueBalance := []float64{0.6, 0.4}
	L := Synthesize(rng, 10000, SynthConfig{
		ClassBalance: trueBalance,
		Accuracy:     []float64{0.8, 0.8, 0.8, 0.8, 0.8},
		AbstainRate:  []float64{0.1, 0.1, 0.1, 0.1, 0.1},
	})

	md := New(2, Options{Abstains: true, Rand: rand.New(rand.NewSource(1))})
	require.NoError(t, md.Fit(FitInput{L: L}))

	balance := md.ClassBalance()
	require.Len(t, balance, 2)
	testutil.AssertSumsToOne(t, balance, 1e-4)
	testutil.AssertInUnitInterval(t, balance)
	assert.InDelta(t, 0.6, balance[0], 0.05)
	assert.InDelta(t, 0.4, balance[1], 0.05)
	assert.Less(t, testutil.L1Distance(t, trueBalance, balance), 0.1)

	// Conditional probabilities: each (source, :, class) slice is a
	// distribution, and the implied accuracy lands near 0.8.
	cps := md.CondProbs()
	require.Equal(t, []int{5, 3, 2}, cps.Shape())
	for i := 0; i < 5; i++ {
		for y := 0; y < 2; y++ {
			slice := []float64{cps.At(i, 0, y), cps.At(i, 1, y), cps.At(i, 2, y)}
			testutil.AssertSumsToOne(t, slice, 1e-4)
			testutil.AssertInUnitInterval(t, slice)

			acc := cps.At(i, y+1, y) / (1 - cps.At(i, 0, y))
			assert.InDelta(t, 0.8, acc, 0.05, "source %d class %d", i, y)
		}
	}

	assert.Equal(t, 5, md.Sources())
	assert.NotEmpty(t, md.LossTrajectory())
}

func TestFitPanicsOnMisshapenOverlaps(t *testing.T) {
	t.Parallel()

	// k=3 with abstains expects value dims of 4; shape errors are the
	// caller's to avoid and surface as tensor panics, untranslated.
	md := New(3, Options{Abstains: true})
	o := tensor.NewDense(3, 3, 3, 2, 2, 2)
	assert.Panics(t, func() { _ = md.Fit(FitInput{O: o}) })
}

func TestFitAcceptsPrecomputedOverlaps(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(3))
	L := Synthesize(rng, 5000, SynthConfig{
		ClassBalance: []float64{0.5, 0.5},
		Accuracy:     []float64{0.85, 0.85, 0.85, 0.85, 0.85},
		AbstainRate:  []float64{0.1, 0.1, 0.1, 0.1, 0.1},
	})
	o := OverlapsTensor(L, 0, 2)

	// Same overlaps, same init seed: the two paths must agree exactly.
	fromL := New(2, Options{Abstains: true, Rand: rand.New(rand.NewSource(9))})
	require.NoError(t, fromL.Fit(FitInput{L: L}))
	fromO := New(2, Options{Abstains: true, Rand: rand.New(rand.NewSource(9))})
	require.NoError(t, fromO.Fit(FitInput{O: o}))

	assert.Equal(t, fromL.ClassBalance(), fromO.ClassBalance())
	assert.Equal(t, fromL.CondProbs().Data, fromO.CondProbs().Data)
}

func TestFitWithoutAbstains(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(5))
	L := Synthesize(rng, 8000, SynthConfig{
		ClassBalance: []float64{0.7, 0.3},
		Accuracy:     []float64{0.8, 0.85, 0.75, 0.8, 0.9},
	})

	md := New(2, Options{Rand: rand.New(rand.NewSource(2))})
	require.NoError(t, md.Fit(FitInput{L: L}))

	balance := md.ClassBalance()
	testutil.AssertSumsToOne(t, balance, 1e-4)
	assert.InDelta(t, 0.7, balance[0], 0.07)
	require.Equal(t, []int{5, 2, 2}, md.CondProbs().Shape())
}

func TestFitVerboseLogsLoss(t *testing.T) {
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, format)
	})
	defer monitoring.SetLogger(nil)

	rng := rand.New(rand.NewSource(6))
	L := Synthesize(rng, 500, SynthConfig{
		ClassBalance: []float64{0.6, 0.4},
		Accuracy:     []float64{0.8, 0.8, 0.8},
		AbstainRate:  []float64{0.1, 0.1, 0.1},
	})

	md := New(2, Options{Abstains: true, Verbose: true, MaxIter: 20, Rand: rand.New(rand.NewSource(4))})
	require.NoError(t, md.Fit(FitInput{L: L}))

	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "fit loss:"))
	assert.Equal(t, len(md.LossTrajectory()), countLossLines(lines))
}

func countLossLines(lines []string) int {
	n := 0
	for _, l := range lines {
		if strings.HasPrefix(l, "fit loss:") {
			n++
		}
	}
	return n
}

func TestLossTrajectoryDecreases(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(8))
	L := Synthesize(rng, 2000, SynthConfig{
		ClassBalance: []float64{0.55, 0.45},
		Accuracy:     []float64{0.8, 0.8, 0.8, 0.8},
		AbstainRate:  []float64{0.1, 0.1, 0.1, 0.1},
	})

	md := New(2, Options{Abstains: true, Rand: rand.New(rand.NewSource(10))})
	require.NoError(t, md.Fit(FitInput{L: L}))

	trace := md.LossTrajectory()
	require.Greater(t, len(trace), 1)
	// The line search may probe uphill, but the best point seen must beat
	// the start.
	best := trace[0]
	for _, v := range trace[1:] {
		if v < best {
			best = v
		}
	}
	assert.Less(t, best, trace[0])
}

func TestSynthesizeMarginals(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(12))
	n := 20000
	L := Synthesize(rng, n, SynthConfig{
		ClassBalance: []float64{0.6, 0.4},
		Accuracy:     []float64{1, 1, 1},
		AbstainRate:  []float64{0.2, 0, 0},
	})

	// Source 1 is perfectly accurate and never abstains, so its label
	// frequency is the class balance itself.
	ones := make([]float64, n)
	abstains := make([]float64, n)
	for e, row := range L {
		if row[1] == 1 {
			ones[e] = 1
		}
		if row[0] == 0 {
			abstains[e] = 1
		}
	}
	assert.InDelta(t, 0.6, stat.Mean(ones, nil), 0.02)
	assert.InDelta(t, 0.2, stat.Mean(abstains, nil), 0.02)

	// Perfect sources that did not abstain must agree.
	for _, row := range L {
		assert.Equal(t, row[1], row[2])
	}
}

func TestSynthesizeRejectsBadConfig(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	assert.Panics(t, func() {
		Synthesize(rng, 10, SynthConfig{ClassBalance: []float64{1}, Accuracy: []float64{0.8}})
	})
	assert.Panics(t, func() {
		Synthesize(rng, 0, SynthConfig{ClassBalance: []float64{0.5, 0.5}, Accuracy: []float64{0.8}})
	})
	assert.Panics(t, func() {
		Synthesize(rng, 10, SynthConfig{
			ClassBalance: []float64{0.5, 0.5},
			Accuracy:     []float64{0.8, 0.8},
			AbstainRate:  []float64{0.1},
		})
	})
}
