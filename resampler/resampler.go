// Package resampler implements the particle filter's resampling step:
// a trigger predicate over the effective sample size, and the weighted
// draw-with-replacement that replaces degenerate particles with copies
// of well-weighted ones.
package resampler

import (
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/hammal/smc/matrix"
)

// ErrUnsupportedConditionedAncestor is returned by CondResample when the
// fixed ancestor slot is not particle 0: the only pinned slot this
// package supports, rather than guessing at semantics for a non-zero
// pinned particle.
var ErrUnsupportedConditionedAncestor = errors.New("resampler: conditioned ancestor must be particle 0")

// Resampler is the interface the particle filter driver consumes.
type Resampler interface {
	// IsTriggered reports whether now's log-weights warrant resampling.
	IsTriggered(lws []float64) bool
	// NeedsMax reports whether SetMaxLogWeight must be called before
	// Resample or CondResample (rejection-based resamplers need it;
	// the multinomial resampler in this package does not).
	NeedsMax() bool
	// SetMaxLogWeight records an upper bound on the observation
	// log-density, for resamplers that need it.
	SetMaxLogWeight(m float64)
	// Resample draws P ancestors from lws, permutes s so that
	// s[i,:] <- s[as[i],:], writes the draw into as, and resets lws to
	// a common value (0, so logsumexp(lws) == log(P) entering the next
	// correct).
	Resample(rng *rand.Rand, lws []float64, as []int, s *matrix.Dense) error
	// CondResample behaves as Resample, but first fixes
	// as[aOut] := aIn before drawing the remaining P-1 ancestors, to
	// support the conditional particle filter.
	CondResample(rng *rand.Rand, aIn, aOut int, lws []float64, as []int, s *matrix.Dense) error
}

// Normalise subtracts logsumexp(lws) - log(P) from every entry,
// mapping lws into numerically safe log-weights without changing the
// distribution they represent, and restoring logsumexp(lws) == log(P)
// exactly. That restored invariant is what the non-resampling path of
// the particle filter driver needs: every correct call must see
// weights entering it at logsumexp == log(P), the same state a
// resample's commit leaves behind, or the marginal log-likelihood's
// telescoping sum breaks. It is idempotent: applying it twice leaves
// lws unchanged, since the second call's shift is zero.
func Normalise(lws []float64) {
	if len(lws) == 0 {
		return
	}
	shift := floats.LogSumExp(lws) - math.Log(float64(len(lws)))
	for i := range lws {
		lws[i] -= shift
	}
}

// ESS returns the effective sample size of the (possibly unnormalised)
// log-weights lws: (Sum w)^2 / Sum w^2.
func ESS(lws []float64) float64 {
	if len(lws) == 0 {
		return 0
	}
	m := floats.Max(lws)
	var sum, sumSq float64
	for _, lw := range lws {
		w := math.Exp(lw - m)
		sum += w
		sumSq += w * w
	}
	if sumSq == 0 {
		return 0
	}
	return sum * sum / sumSq
}

// SeqElements sets as[i] = i for every i, the identity ancestry left
// behind by init and by any step that does not resample.
func SeqElements(as []int) {
	for i := range as {
		as[i] = i
	}
}
