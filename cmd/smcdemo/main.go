// Command smcdemo runs the linear-Gaussian particle filter scenario
// end to end and prints the estimated marginal log-likelihood:
// os.Args/strconv parameters, fmt.Printf tracing, no flag-parsing
// library.
package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/hammal/smc/config"
	"github.com/hammal/smc/examples/lineargaussian"
	"github.com/hammal/smc/filter"
	"github.com/hammal/smc/integrator"
	"github.com/hammal/smc/matrix"
	"github.com/hammal/smc/output"
	"github.com/hammal/smc/resampler"
	"github.com/hammal/smc/schedule"
	"github.com/hammal/smc/simulator"
)

func main() {
	particles := 4096
	steps := 50
	seed := uint64(1)

	if len(os.Args) > 1 {
		p, err := strconv.Atoi(os.Args[1])
		if err != nil {
			panic("particles must be an integer")
		}
		particles = p
	}
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil {
			panic("steps must be an integer")
		}
		steps = n
	}

	cfg := config.Config{
		Particles:    uint32(particles),
		Atoler:       1e-9,
		Rtoler:       1e-6,
		H0:           1e-3,
		Nsteps:       10000,
		EssThreshold: 0.5,
		Seed:         seed,
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	fmt.Printf("Simulation for P = %v, steps = %v, seed = %v\n", cfg.Particles, steps, cfg.Seed)

	rng := rand.New(rand.NewSource(int64(cfg.Seed)))

	// Generate a synthetic observation sequence by forward-simulating
	// the same model once, keeping the true latent trajectory around
	// to plot against the filter's own filtering mean.
	y := make([]float64, steps)
	truth := make([]float64, steps)
	x := 0.0
	for k := range y {
		x = 0.9*x + rng.NormFloat64()
		truth[k] = x
		y[k] = x + rng.NormFloat64()
	}

	m := lineargaussian.New(y)
	ig := integrator.New(integrator.NewConstants(cfg.Rtoler, cfg.Atoler, cfg.H0, int(cfg.Nsteps)))
	sim := simulator.New(m, ig, lineargaussian.ObsStore{}, lineargaussian.Prior{Sigma: 1})
	sink := output.NewMemory()
	f := filter.New(sim, resampler.NewMultinomial(cfg.EssThreshold), sink)

	sched := make([]schedule.Element, steps)
	for k := range sched {
		sched[k] = schedule.Element{
			Time:        float64(k),
			IndexObs:    k,
			IndexOutput: k,
			HasObs:      true,
			HasOutput:   true,
		}
	}

	s := matrix.NewDense(int(cfg.Particles), 1)
	ll, err := f.Run(rng, schedule.New(sched), s)
	if err != nil {
		fmt.Printf("filter failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("estimated marginal log-likelihood: %v\n", ll)

	if err := plotFilteringMeanVsTruth(sink, truth); err != nil {
		fmt.Printf("plot skipped: %v\n", err)
	}
}

// plotFilteringMeanVsTruth renders the filter's per-step weighted
// posterior mean against the true latent trajectory used to generate
// the synthetic observations, to smcdemo.png.
func plotFilteringMeanVsTruth(sink *output.Memory, truth []float64) error {
	records := sink.Records()
	if len(records) == 0 {
		return fmt.Errorf("no recorded output steps")
	}

	mean := make(plotter.XYs, len(records))
	truthPts := make(plotter.XYs, len(records))
	for k, r := range records {
		mean[k].X = r.Time
		mean[k].Y = weightedMean(r.Dyn, r.LogWeights)
		truthPts[k].X = r.Time
		if k < len(truth) {
			truthPts[k].Y = truth[k]
		}
	}

	p := plot.New()
	p.Title.Text = "filtering mean vs true latent trajectory"
	p.X.Label.Text = "time"
	p.Y.Label.Text = "x"

	if err := plotutil.AddLines(p, "filtering mean", mean, "truth", truthPts); err != nil {
		return err
	}

	return p.Save(6*vg.Inch, 4*vg.Inch, "smcdemo.png")
}

// weightedMean returns the softmax(lws)-weighted mean of dyn's first
// (only, for this demo's scalar model) dynamic column.
func weightedMean(dyn [][]float64, lws []float64) float64 {
	m := floats.Max(lws)
	var sum, wsum float64
	for p, row := range dyn {
		w := math.Exp(lws[p] - m)
		sum += w * row[0]
		wsum += w
	}
	if wsum == 0 {
		return 0
	}
	return sum / wsum
}
