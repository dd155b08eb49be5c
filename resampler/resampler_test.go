package resampler

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/hammal/smc/matrix"
)

func TestESSUniformWeightsEqualsParticleCount(t *testing.T) {
	lws := make([]float64, 10)
	if got, want := ESS(lws), 10.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("ESS(uniform) = %v, want %v", got, want)
	}
}

func TestESSDegenerateWeightsEqualsOne(t *testing.T) {
	lws := []float64{0, math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	if got, want := ESS(lws), 1.0; math.Abs(got-want) > 1e-9 {
		t.Fatalf("ESS(degenerate) = %v, want %v", got, want)
	}
}

func TestNormaliseRestoresLogSumExpToLogP(t *testing.T) {
	lws := []float64{-3, -1, -5}
	Normalise(lws)
	want := math.Log(float64(len(lws)))
	if got := floats.LogSumExp(lws); math.Abs(got-want) > 1e-9 {
		t.Fatalf("logsumexp(lws) after Normalise = %v, want %v (log P)", got, want)
	}
}

func TestNormaliseIsIdempotent(t *testing.T) {
	lws := []float64{-3, -1, -5}
	Normalise(lws)
	want := append([]float64(nil), lws...)
	Normalise(lws)
	for i := range lws {
		if lws[i] != want[i] {
			t.Fatalf("second Normalise changed lws: got %v, want %v", lws, want)
		}
	}
}

func TestSeqElementsIsIdentity(t *testing.T) {
	as := make([]int, 5)
	for i := range as {
		as[i] = -1
	}
	SeqElements(as)
	for i, a := range as {
		if a != i {
			t.Fatalf("as[%d] = %d, want %d", i, a, i)
		}
	}
}

func TestMultinomialIsTriggeredRespectsThreshold(t *testing.T) {
	r := NewMultinomial(0.5)
	uniform := make([]float64, 4)
	if r.IsTriggered(uniform) {
		t.Fatalf("uniform weights should not trigger resampling at threshold 0.5")
	}

	degenerate := []float64{0, math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	if !r.IsTriggered(degenerate) {
		t.Fatalf("degenerate weights should trigger resampling at threshold 0.5")
	}
}

func TestMultinomialResampleDuplicatesHeavyParticle(t *testing.T) {
	r := NewMultinomial(1.0)
	rng := rand.New(rand.NewSource(1))

	lws := []float64{0, math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	as := make([]int, 4)
	s := matrix.NewDense(4, 1)
	for p := 0; p < 4; p++ {
		s.Set(p, 0, float64(p))
	}

	if err := r.Resample(rng, lws, as, s); err != nil {
		t.Fatalf("Resample returned error: %v", err)
	}

	for i, a := range as {
		if a != 0 {
			t.Fatalf("as[%d] = %d, want 0 (only particle 0 has non-zero weight)", i, a)
		}
	}
	for p := 0; p < 4; p++ {
		if got := s.At(p, 0); got != 0 {
			t.Fatalf("s[%d,0] = %v, want 0 after resampling collapses onto particle 0", p, got)
		}
	}
	for _, lw := range lws {
		if math.IsInf(lw, 0) || math.IsNaN(lw) {
			t.Fatalf("post-resample log-weight not finite: %v", lw)
		}
	}
}

func TestMultinomialCondResamplePinsAncestorZero(t *testing.T) {
	r := NewMultinomial(1.0)
	rng := rand.New(rand.NewSource(2))

	lws := []float64{0, 0, 0, 0}
	as := make([]int, 4)
	s := matrix.NewDense(4, 1)
	for p := 0; p < 4; p++ {
		s.Set(p, 0, float64(p))
	}

	if err := r.CondResample(rng, 2, 0, lws, as, s); err != nil {
		t.Fatalf("CondResample returned error: %v", err)
	}
	if as[0] != 2 {
		t.Fatalf("as[0] = %d, want 2 (the pinned reference ancestor)", as[0])
	}
	if got := s.At(0, 0); got != 2 {
		t.Fatalf("s[0,0] = %v, want 2 (copied from reference particle)", got)
	}
}

func TestMultinomialCondResampleRejectsNonZeroAncestorSlot(t *testing.T) {
	r := NewMultinomial(1.0)
	rng := rand.New(rand.NewSource(3))

	lws := []float64{0, 0}
	as := make([]int, 2)
	s := matrix.NewDense(2, 1)

	if err := r.CondResample(rng, 0, 1, lws, as, s); err != ErrUnsupportedConditionedAncestor {
		t.Fatalf("CondResample(aOut=1) error = %v, want ErrUnsupportedConditionedAncestor", err)
	}
}
