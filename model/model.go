// Package model defines the boundary the particle filter and integrator
// consume but do not implement: the per-particle derivative function and
// the observation log-density, generalised to a multi-particle,
// column-major state buffer and an explicit observation mask.
package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/hammal/smc/matrix"
)

// Mask indicates which observation components are observed at a given
// observation index; its entries index the model's observation vector
// (Linear reads them as rows of C x(t)). For a model that observes its
// state directly, these are the state matrix's dynamic columns.
type Mask []int

// Model produces per-particle derivatives and evaluates the observation
// log-density and its maximum, the only two points where the filter
// driver and the integrator reach outside the core.
type Model interface {
	// Derivatives evaluates dx/dt for particle p at time t, reading the
	// particle's current state from x and writing into dxdt. Both x and
	// dxdt have the dynamic state's length; dxdt must not alias x.
	// Called once per Runge-Kutta stage, so it must not allocate.
	Derivatives(t float64, p int, x mat.Vector, dxdt *mat.VecDense)

	// ObservationLogDensities adds log p(y_now | x_p) into lws[p] for
	// every particle, for the observed components named by mask.
	ObservationLogDensities(s *matrix.Dense, mask Mask, lws []float64)

	// ObservationMaxLogDensity returns an upper bound on the
	// observation log-density over all particles, for resamplers that
	// need it (e.g. rejection-based schemes).
	ObservationMaxLogDensity(s *matrix.Dense, mask Mask) float64
}
