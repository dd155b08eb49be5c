// Package filter implements the particle filter driver: the state
// machine that ties a simulator, a resampler and an output sink into
// one sequential Monte Carlo run, following the
// init → correct → output → {resample → predict* → correct → output}*
// cycle. The driver holds no numerical code of its own; every
// particle-parallel computation happens inside the simulator's bound
// integrator and model.
package filter

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/hammal/smc/matrix"
	"github.com/hammal/smc/output"
	"github.com/hammal/smc/resampler"
	"github.com/hammal/smc/schedule"
	"github.com/hammal/smc/simulator"
)

// Filter drives one particle-filter run over a schedule, given a bound
// simulator, resampler and output sink.
type Filter struct {
	Sim       *simulator.Simulator
	Resampler resampler.Resampler
	Sink      output.Sink
}

// New returns a Filter wiring sim, r and sink together.
func New(sim *simulator.Simulator, r resampler.Resampler, sink output.Sink) *Filter {
	return &Filter{Sim: sim, Resampler: r, Sink: sink}
}

// Run executes the unconditional particle filter: draw the prior into
// s, then sequentially resample/predict/correct/output across sched,
// returning the marginal log-likelihood estimate.
func (f *Filter) Run(rng *rand.Rand, sched *schedule.Schedule, s *matrix.Dense) (float64, error) {
	return f.run(rng, sched, s, nil, false, nil)
}

// RunWithParameters behaves as Run but records paramRow as the
// header's parameter row and binds it via the simulator's
// fixed-parameter init entry point.
func (f *Filter) RunWithParameters(rng *rand.Rand, paramRow []float64, sched *schedule.Schedule, s *matrix.Dense) (float64, error) {
	return f.run(rng, sched, s, paramRow, true, nil)
}

// RunConditional runs the conditional particle filter (Andrieu-Doucet-
// Holenstein): particle 0 is pinned to the reference trajectory X
// (one row per recorded output index) at every predict step, and every
// resample fixes particle 0's ancestor to itself.
func (f *Filter) RunConditional(rng *rand.Rand, sched *schedule.Schedule, s *matrix.Dense, x [][]float64) (float64, error) {
	return f.run(rng, sched, s, nil, false, x)
}

func (f *Filter) run(rng *rand.Rand, sched *schedule.Schedule, s *matrix.Dense, theta []float64, useTheta bool, x [][]float64) (float64, error) {
	P := s.Rows()
	lws := make([]float64, P)
	as := make([]int, P)

	it := sched.Begin()
	last := sched.Last()
	conditional := x != nil

	if useTheta {
		f.Sim.InitWithParameters(rng, theta, it.Elem(), s)
	} else {
		f.Sim.Init(rng, it.Elem(), s)
	}
	resampler.SeqElements(as)
	f.Sink.Clear()
	f.Sink.WriteParameters(theta)

	if conditional {
		pinRow(s, x, it.Elem().IndexOutput)
	}

	llInit := f.correct(it.Elem(), s, lws)
	if allDegenerate(lws) {
		return llInit, newError(ParticleFilterDegenerate, it.Pos(), "")
	}
	f.writeOutput(it, s, as, lws, false)

	ll := llInit
	for it.Pos()+1 != last {
		llInc, err := f.step(rng, it, last, s, lws, as, conditional, x)
		if err != nil {
			return ll, err
		}
		ll += llInc
	}
	f.Sink.WriteLL(ll)
	return ll, nil
}

// step implements one full resample/predict/correct/output cycle,
// advancing it in place and returning the correct's ll_inc.
func (f *Filter) step(rng *rand.Rand, it *schedule.Iterator, last int, s *matrix.Dense, lws []float64, as []int, conditional bool, x [][]float64) (float64, error) {
	now := it.Elem()

	var did bool
	var err error
	if conditional {
		did, err = f.condResample(rng, now, s, lws, as)
	} else {
		did, err = f.resample(rng, now, s, lws, as)
	}
	if err != nil {
		return 0, toFilterError(err, it.Pos())
	}

	for {
		prev := it.Elem()
		it.Next()
		cur := it.Elem()
		f.Sim.Advance(rng, prev.Time, cur.Time, s)
		if conditional {
			pinRow(s, x, cur.IndexOutput)
		}
		if it.Pos()+1 == last || cur.HasOutput {
			break
		}
	}

	now = it.Elem()
	llInc := f.correct(now, s, lws)
	if allDegenerate(lws) {
		return 0, newError(ParticleFilterDegenerate, it.Pos(), "")
	}
	f.writeOutput(it, s, as, lws, did)
	return llInc, nil
}

// correct asks the bound model for each particle's observation
// log-density when now.HasObs, adds it into lws, and returns the
// incremental log-likelihood logsumexp(lws) - log(P). It returns 0 and
// leaves lws untouched otherwise.
func (f *Filter) correct(now schedule.Element, s *matrix.Dense, lws []float64) float64 {
	if !now.HasObs {
		return 0
	}
	mask := f.Sim.Obs().Mask(now.IndexObs)
	f.Sim.Model().ObservationLogDensities(s, mask, lws)
	return floats.LogSumExp(lws) - math.Log(float64(len(lws)))
}

// resample triggers the unconditional resampler when now.HasObs and
// the resampler's trigger predicate fires; otherwise it leaves
// ancestry as the identity and normalises lws in place.
func (f *Filter) resample(rng *rand.Rand, now schedule.Element, s *matrix.Dense, lws []float64, as []int) (bool, error) {
	if !(now.HasObs && f.Resampler.IsTriggered(lws)) {
		resampler.SeqElements(as)
		resampler.Normalise(lws)
		return false, nil
	}
	if f.Resampler.NeedsMax() {
		mask := f.Sim.Obs().Mask(now.IndexObs)
		f.Resampler.SetMaxLogWeight(f.Sim.Model().ObservationMaxLogDensity(s, mask))
	}
	if err := f.Resampler.Resample(rng, lws, as, s); err != nil {
		return false, err
	}
	return true, nil
}

// condResample behaves as resample but pins particle 0's ancestor to
// itself whenever resampling triggers, keeping the reference
// trajectory's lineage alive at slot 0.
func (f *Filter) condResample(rng *rand.Rand, now schedule.Element, s *matrix.Dense, lws []float64, as []int) (bool, error) {
	if !(now.HasObs && f.Resampler.IsTriggered(lws)) {
		resampler.SeqElements(as)
		resampler.Normalise(lws)
		return false, nil
	}
	if f.Resampler.NeedsMax() {
		mask := f.Sim.Obs().Mask(now.IndexObs)
		f.Resampler.SetMaxLogWeight(f.Sim.Model().ObservationMaxLogDensity(s, mask))
	}
	if err := f.Resampler.CondResample(rng, 0, 0, lws, as, s); err != nil {
		return false, err
	}
	return true, nil
}

// writeOutput records (time, dyn state, ancestry, weights) at it's
// current position when it carries an output slot.
func (f *Filter) writeOutput(it *schedule.Iterator, s *matrix.Dense, as []int, lws []float64, didResample bool) {
	now := it.Elem()
	if !now.HasOutput {
		return
	}
	dyn := make([][]float64, s.Rows())
	row := make([]float64, s.Cols())
	for i := range dyn {
		s.RowTo(i, row)
		dyn[i] = append([]float64(nil), row...)
	}
	f.Sink.WriteTime(now.IndexOutput, now.Time)
	f.Sink.WriteState(now.IndexOutput, dyn, as, didResample)
	f.Sink.WriteLogWeights(now.IndexOutput, lws)
}

// pinRow overwrites particle 0's dynamic row with x[indexOutput], the
// reference trajectory's row for that output index, the conditional
// particle filter's defining operation. An indexOutput outside x leaves
// s unchanged.
func pinRow(s *matrix.Dense, x [][]float64, indexOutput int) {
	if indexOutput < 0 || indexOutput >= len(x) {
		return
	}
	s.SetRow(0, x[indexOutput])
}

func allDegenerate(lws []float64) bool {
	for _, lw := range lws {
		if !math.IsInf(lw, -1) {
			return false
		}
	}
	return true
}

func toFilterError(err error, atIndex int) error {
	if err == resampler.ErrUnsupportedConditionedAncestor {
		return newError(ConditionalParticleFilterFailure, atIndex, err.Error())
	}
	if err == matrix.ErrResizeForbidden {
		return newError(ResizeForbidden, atIndex, err.Error())
	}
	return newError(CholeskyFailure, atIndex, err.Error())
}

// SampleTrajectory draws a particle index from the softmax of the
// sink's recorded final log-weights and reconstructs its full
// trajectory by walking recorded ancestries backwards, into *x.
func (f *Filter) SampleTrajectory(rng *rand.Rand, x *[][]float64) error {
	lws, err := f.Sink.ReadLogWeights()
	if err != nil {
		return err
	}
	p := sampleCategorical(rng, lws)
	return f.Sink.ReadTrajectory(p, x)
}

// sampleCategorical draws one index from the categorical distribution
// lws defines, via inverse-CDF search over the normalised cumulative
// weights - the same scheme resampler.Multinomial uses for ancestor
// draws.
func sampleCategorical(rng *rand.Rand, lws []float64) int {
	m := floats.Max(lws)
	cum := make([]float64, len(lws))
	var sum float64
	for i, lw := range lws {
		sum += math.Exp(lw - m)
		cum[i] = sum
	}
	if sum > 0 {
		for i := range cum {
			cum[i] /= sum
		}
	}
	u := rng.Float64()
	idx := sort.Search(len(cum), func(i int) bool { return cum[i] >= u })
	if idx >= len(cum) {
		idx = len(cum) - 1
	}
	return idx
}
