package model

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hammal/smc/matrix"
)

// Linear implements the continuous-time linear-Gaussian model
// dx/dt = A x(t), y_k = C x(t_k) + v_k, v_k ~ N(0, ObsSigma^2 I),
// scored against a pre-recorded observation sequence. Its dimension
// checks and A x(t) / C x(t) evaluation generalize a single state
// vector to column-major per-particle rows and drop the exogenous
// input terms of the zero-order-hold setting this package grew out of
// (no driving input survives into the stochastic state-space setting
// this engine filters).
type Linear struct {
	A, C     *mat.Dense
	ObsSigma float64

	y   []mat.Vector
	idx int
}

// NewLinear returns a Linear model bound to the dimension-checked
// (A, C) pair and the observation sequence y, scored one vector per
// correct call in schedule order. Panics if A is not square or C's
// column count does not match A's order, mirroring a zero-order-hold
// state-space model's panic-on-mismatch dimension checks.
func NewLinear(A, C *mat.Dense, obsSigma float64, y []mat.Vector) *Linear {
	m, n := A.Dims()
	if m != n {
		panic("model: A must be square")
	}
	_, nc := C.Dims()
	if nc != n {
		panic("model: C's column count must match A's order")
	}
	return &Linear{A: A, C: C, ObsSigma: obsSigma, y: y}
}

// Derivatives implements dx/dt = A x(t) for every particle.
func (l *Linear) Derivatives(t float64, p int, x mat.Vector, dxdt *mat.VecDense) {
	dxdt.MulVec(l.A, x)
}

// ObservationLogDensities scores each particle's C x(t) against the
// next recorded observation vector under an isotropic Gaussian, adding
// the result into lws. mask selects which rows of C x(t) are actually
// observed; an empty mask means every row is.
func (l *Linear) ObservationLogDensities(s *matrix.Dense, mask Mask, lws []float64) {
	yk := l.y[l.idx]
	l.idx++

	mC, _ := l.C.Dims()
	rows := selectedRows(mask, mC)
	dist := distuv.Normal{Mu: 0, Sigma: l.ObsSigma}

	rowbuf := make([]float64, s.Cols())
	x := mat.NewVecDense(s.Cols(), rowbuf)
	yhat := mat.NewVecDense(mC, make([]float64, mC))
	for p := 0; p < s.Rows(); p++ {
		s.RowTo(p, rowbuf)
		yhat.MulVec(l.C, x)
		for _, row := range rows {
			lws[p] += dist.LogProb(yk.AtVec(row) - yhat.AtVec(row))
		}
	}
}

// ObservationMaxLogDensity returns the observed rows' peak Gaussian
// log-density, an upper bound for any rejection-based resampler.
func (l *Linear) ObservationMaxLogDensity(s *matrix.Dense, mask Mask) float64 {
	mC, _ := l.C.Dims()
	rows := selectedRows(mask, mC)
	dist := distuv.Normal{Mu: 0, Sigma: l.ObsSigma}
	return float64(len(rows)) * dist.LogProb(0)
}

func selectedRows(mask Mask, n int) []int {
	if len(mask) == 0 {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	return mask
}
