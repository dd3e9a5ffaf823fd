// Package main provides the class-balance estimation tool. It fits the
// tensor-factorization estimator to a label matrix (loaded from CSV or
// synthesized for demos), prints the recovered class balance and per-source
// conditional probabilities, and can persist the run, plot the loss
// trajectory, or render a confusion-matrix report.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"

	"github.com/banshee-data/weaklabel/internal/balance"
	"github.com/banshee-data/weaklabel/internal/config"
	"github.com/banshee-data/weaklabel/internal/labeldb"
)

var (
	inputFile  = flag.String("input", "", "CSV label matrix (rows=examples, cols=sources); empty runs the synthetic demo")
	configFile = flag.String("config", "", "optional JSON fit config (see internal/config)")

	classes   = flag.Int("k", 2, "number of true classes (>= 2)")
	abstains  = flag.Bool("abstains", true, "whether 0 is a legal abstain value")
	learnRate = flag.Float64("lr", 1, "objective scale hint for the optimizer")
	maxIter   = flag.Int("max-iter", 1000, "optimizer iteration cap")
	verbose   = flag.Bool("verbose", false, "log loss at every evaluation")
	seed      = flag.Int64("seed", 0, "seed for init (and synthesis); 0 uses a random seed")

	synthN        = flag.Int("synth-n", 10000, "demo: number of synthetic examples")
	synthSources  = flag.Int("synth-sources", 5, "demo: number of synthetic sources")
	synthAccuracy = flag.Float64("synth-accuracy", 0.8, "demo: per-source accuracy")
	synthAbstain  = flag.Float64("synth-abstain", 0.1, "demo: per-source abstain rate")
	synthBalance  = flag.String("synth-balance", "0.6,0.4", "demo: true class balance, comma-separated")

	dbPath      = flag.String("db", "", "SQLite file to persist the run (optional)")
	storeMatrix = flag.Bool("store-matrix", false, "also persist the raw label matrix with the run")
	lossPlot    = flag.String("loss-plot", "", "write the loss trajectory as a PNG (optional)")
	reportFile  = flag.String("report", "", "write per-source confusion heatmaps as HTML (optional)")
)

func main() {
	flag.Parse()

	opts, k, err := fitOptions()
	if err != nil {
		log.Fatalf("bad configuration: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	if *seed == 0 {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	opts.Rand = rng

	var L [][]int
	if *inputFile != "" {
		L, err = loadLabelCSV(*inputFile)
		if err != nil {
			log.Fatalf("failed to load label matrix: %v", err)
		}
	} else {
		L, err = synthesize(rng, k)
		if err != nil {
			log.Fatalf("failed to synthesize demo data: %v", err)
		}
		fmt.Printf("synthesized %d examples from %d sources (accuracy %.2f, abstain %.2f)\n",
			len(L), len(L[0]), *synthAccuracy, *synthAbstain)
	}

	md := balance.New(k, opts)
	if err := md.Fit(balance.FitInput{L: L}); err != nil {
		log.Fatalf("fit failed: %v", err)
	}

	printEstimates(md)

	if *lossPlot != "" {
		if err := writeLossPlot(*lossPlot, md.LossTrajectory()); err != nil {
			log.Fatalf("failed to write loss plot: %v", err)
		}
		fmt.Printf("loss plot written to %s\n", *lossPlot)
	}

	if *reportFile != "" {
		if err := writeConfusionReport(*reportFile, md); err != nil {
			log.Fatalf("failed to write report: %v", err)
		}
		fmt.Printf("report written to %s\n", *reportFile)
	}

	if *dbPath != "" {
		runID, err := persistRun(*dbPath, md, L)
		if err != nil {
			log.Fatalf("failed to persist run: %v", err)
		}
		fmt.Printf("run %s stored in %s\n", runID, *dbPath)
	}
}

// fitOptions merges the optional config file with explicitly set flags;
// flags win so a config file can carry site defaults.
func fitOptions() (balance.Options, int, error) {
	cfg := config.EmptyFitConfig()
	if *configFile != "" {
		loaded, err := config.LoadFitConfig(*configFile)
		if err != nil {
			return balance.Options{}, 0, err
		}
		cfg = loaded
	}

	k := cfg.GetClasses()
	opts := balance.Options{
		Abstains:  cfg.GetAbstains(),
		LearnRate: cfg.GetLearnRate(),
		MaxIter:   cfg.GetMaxIter(),
		Verbose:   cfg.GetVerbose(),
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "k":
			k = *classes
		case "abstains":
			opts.Abstains = *abstains
		case "lr":
			opts.LearnRate = *learnRate
		case "max-iter":
			opts.MaxIter = *maxIter
		case "verbose":
			opts.Verbose = *verbose
		}
	})
	if k < 2 {
		return balance.Options{}, 0, fmt.Errorf("k must be >= 2, got %d", k)
	}
	return opts, k, nil
}

func synthesize(rng *rand.Rand, k int) ([][]int, error) {
	parts := strings.Split(*synthBalance, ",")
	if len(parts) != k {
		return nil, fmt.Errorf("synth-balance has %d entries, want k=%d", len(parts), k)
	}
	trueBalance := make([]float64, k)
	sum := 0.0
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bad synth-balance entry %q: %w", p, err)
		}
		trueBalance[i] = v
		sum += v
	}
	if sum < 0.99 || sum > 1.01 {
		return nil, fmt.Errorf("synth-balance sums to %.3f, want 1", sum)
	}

	accs := make([]float64, *synthSources)
	var abstainRates []float64
	if *abstains {
		abstainRates = make([]float64, *synthSources)
	}
	for i := range accs {
		accs[i] = *synthAccuracy
		if abstainRates != nil {
			abstainRates[i] = *synthAbstain
		}
	}
	return balance.Synthesize(rng, *synthN, balance.SynthConfig{
		ClassBalance: trueBalance,
		Accuracy:     accs,
		AbstainRate:  abstainRates,
	}), nil
}

func printEstimates(md *balance.Model) {
	fmt.Println("estimated class balance:")
	for y, p := range md.ClassBalance() {
		fmt.Printf("  class %d: %.4f\n", y+1, p)
	}

	cps := md.CondProbs()
	kLF := md.KLF()
	offset := kLF - md.K() // 1 with abstains, else 0
	fmt.Println("per-source P(correct | class, no abstain):")
	for i := 0; i < md.Sources(); i++ {
		fmt.Printf("  source %d:", i)
		for y := 0; y < md.K(); y++ {
			correct := cps.At(i, y+offset, y)
			nonAbstain := 1.0
			if offset == 1 {
				nonAbstain -= cps.At(i, 0, y)
			}
			fmt.Printf(" %.3f", correct/nonAbstain)
		}
		fmt.Println()
	}
}

func persistRun(path string, md *balance.Model, L [][]int) (string, error) {
	db, err := labeldb.Open(path)
	if err != nil {
		return "", err
	}
	defer db.Close()

	trace := md.LossTrajectory()
	finalLoss := 0.0
	if len(trace) > 0 {
		finalLoss = trace[len(trace)-1]
	}

	run := &labeldb.FitRun{
		Examples:     len(L),
		Sources:      md.Sources(),
		Classes:      md.K(),
		Abstains:     md.KLF() > md.K(),
		LearnRate:    *learnRate,
		MaxIter:      *maxIter,
		FinalLoss:    finalLoss,
		ClassBalance: md.ClassBalance(),
		CondProbs:    md.CondProbs().Data,
	}
	runID, err := db.InsertRun(run)
	if err != nil {
		return "", err
	}
	if *storeMatrix {
		if err := db.InsertLabelMatrix(runID, L); err != nil {
			return "", err
		}
	}
	return runID, nil
}
