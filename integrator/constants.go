package integrator

import "math"

// Constants holds the tuning values the adaptive step-size controller
// needs, derived once from the caller's tolerances and held read-only
// thereafter. The teacher threads configuration through struct fields
// rather than package-level globals (system.go, ssm.NewLinearStateSpaceModel);
// this follows the same register instead of LibBi's process-wide statics.
type Constants struct {
	// H0 is the initial step size tried for every particle at the start
	// of every call to Integrate.
	H0 float64
	// Uround approximates machine epsilon, used by the (currently
	// unactioned) step-too-small guard.
	Uround float64
	// Atoler, Rtoler are the absolute and relative error tolerances
	// feeding the weighted RMS error norm.
	Atoler, Rtoler float64
	// Facl, Facr bound the per-step growth factor.
	Facl, Facr float64
	// Logsafe is the log of the safety factor applied to the predicted
	// step size.
	Logsafe float64
	// Expo is 1/(order+1) for the embedded pair's higher order, 4.
	Expo float64
	// Beta is the PI-controller (Lund stabilization) coefficient.
	Beta float64
	// Nsteps bounds the accepted-plus-rejected attempts any one
	// particle may take integrating a single [t1, t2) interval.
	Nsteps int
}

// NewConstants derives the process-wide integrator tuning constants from
// the caller-supplied tolerances, initial step and step budget. Call it
// once before any Integrate call; the result is immutable thereafter.
func NewConstants(rtoler, atoler, h0 float64, nsteps int) Constants {
	return Constants{
		H0:      h0,
		Uround:  2.220446049250313e-16,
		Atoler:  atoler,
		Rtoler:  rtoler,
		Facl:    0.2,
		Facr:    10.0,
		Logsafe: math.Log(0.9),
		Expo:    0.2,
		Beta:    0.04,
		Nsteps:  nsteps,
	}
}
