package resampler

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/hammal/smc/matrix"
)

// Multinomial resamples by drawing each ancestor independently from the
// categorical distribution the log-weights define, via inverse-CDF
// search over the cumulative normalised weights: an explicit loop
// rather than a black-box weighted-sampling helper.
type Multinomial struct {
	// Threshold is the ESS/P ratio below which resampling triggers.
	// Threshold == 0 never triggers; Threshold == 1 always triggers
	// whenever the schedule element carries an observation.
	Threshold float64

	maxLogWeight float64
	cum          []float64
	rowbuf       []float64
	scratch      *matrix.Dense
}

// NewMultinomial returns a Multinomial resampler that triggers whenever
// ESS(lws)/P <= threshold.
func NewMultinomial(threshold float64) *Multinomial {
	return &Multinomial{Threshold: threshold}
}

// IsTriggered reports whether the normalised effective sample size has
// fallen to or below the configured threshold.
func (r *Multinomial) IsTriggered(lws []float64) bool {
	p := float64(len(lws))
	if p == 0 {
		return false
	}
	return ESS(lws)/p <= r.Threshold
}

// NeedsMax reports false: multinomial resampling needs no upper bound
// on the observation density.
func (r *Multinomial) NeedsMax() bool { return false }

// SetMaxLogWeight records m, which Multinomial never reads; present to
// satisfy the Resampler interface.
func (r *Multinomial) SetMaxLogWeight(m float64) { r.maxLogWeight = m }

// Resample draws P ancestors independently and resets lws to zero for
// every particle.
func (r *Multinomial) Resample(rng *rand.Rand, lws []float64, as []int, s *matrix.Dense) error {
	r.buildCDF(lws)
	for i := range as {
		as[i] = r.draw(rng)
	}
	r.commit(as, lws, s)
	return nil
}

// CondResample behaves as Resample but pins as[aOut] = aIn before
// drawing the remaining P-1 ancestors, for the conditional particle
// filter. Only aOut == 0 is supported.
func (r *Multinomial) CondResample(rng *rand.Rand, aIn, aOut int, lws []float64, as []int, s *matrix.Dense) error {
	if aOut != 0 {
		return ErrUnsupportedConditionedAncestor
	}
	r.buildCDF(lws)
	as[aOut] = aIn
	for i := range as {
		if i == aOut {
			continue
		}
		as[i] = r.draw(rng)
	}
	r.commit(as, lws, s)
	return nil
}

// buildCDF fills r.cum with the cumulative normalised weight up to and
// including each particle, derived from (possibly unnormalised) lws.
func (r *Multinomial) buildCDF(lws []float64) {
	if cap(r.cum) < len(lws) {
		r.cum = make([]float64, len(lws))
	}
	r.cum = r.cum[:len(lws)]

	m := floats.Max(lws)
	var sum float64
	for i, lw := range lws {
		sum += math.Exp(lw - m)
		r.cum[i] = sum
	}
	if sum > 0 {
		for i := range r.cum {
			r.cum[i] /= sum
		}
	}
}

// draw performs an inverse-CDF search to pick one ancestor index.
func (r *Multinomial) draw(rng *rand.Rand) int {
	u := rng.Float64()
	idx := sort.Search(len(r.cum), func(i int) bool { return r.cum[i] >= u })
	if idx >= len(r.cum) {
		idx = len(r.cum) - 1
	}
	return idx
}

// commit permutes s according to as (s[i,:] <- s[as[i],:]) via a
// one-matrix auxiliary buffer, then resets lws to zero for every
// particle. Resampling has already spent the accumulated weight on the
// ancestor draw; leaving logsumexp(lws) == log(P) (rather than
// re-injecting the pre-resample logsumexp) is what keeps the
// marginal-likelihood telescoping in filter.correct correct across a
// resample.
func (r *Multinomial) commit(as []int, lws []float64, s *matrix.Dense) {
	if r.scratch == nil || r.scratch.Rows() != s.Rows() || r.scratch.Cols() != s.Cols() {
		r.scratch = matrix.NewDense(s.Rows(), s.Cols())
	}
	if err := r.scratch.AssignFrom(s); err != nil {
		panic(err) // shapes are guaranteed equal by construction above
	}
	if cap(r.rowbuf) < s.Cols() {
		r.rowbuf = make([]float64, s.Cols())
	}
	rowbuf := r.rowbuf[:s.Cols()]

	for i, a := range as {
		r.scratch.RowTo(a, rowbuf)
		s.SetRow(i, rowbuf)
	}

	for i := range lws {
		lws[i] = 0
	}
}
