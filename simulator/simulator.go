// Package simulator binds a model and an integrator together behind
// the one collaborator the particle filter driver actually depends on:
// something that can draw an initial population and advance it between
// schedule elements.
package simulator

import (
	"math/rand"

	"github.com/hammal/smc/integrator"
	"github.com/hammal/smc/matrix"
	"github.com/hammal/smc/model"
	"github.com/hammal/smc/schedule"
)

// Prior draws initial dynamic state into s, one row per particle. A
// model package supplies its own Prior implementation (e.g. sampling
// from N(0,1) for the linear-Gaussian example).
type Prior interface {
	Sample(rng *rand.Rand, s *matrix.Dense)
}

// ObsStore exposes the per-observation-index mask the driver needs to
// ask the model for observation log-densities.
type ObsStore interface {
	Mask(indexObs int) model.Mask
}

// Simulator is the collaborator the particle filter driver consumes:
// it owns the model and integrator binding and is otherwise opaque to
// the driver.
type Simulator struct {
	m     model.Model
	ig    *integrator.Integrator
	obs   ObsStore
	prior Prior
}

// New returns a Simulator bound to m, driven by ig, with observation
// masks served by obs and initial states drawn from prior.
func New(m model.Model, ig *integrator.Integrator, obs ObsStore, prior Prior) *Simulator {
	return &Simulator{m: m, ig: ig, obs: obs, prior: prior}
}

// Init draws the initial dynamic state for every particle into s, via
// the bound prior. now is the schedule's first element, carried for
// symmetry with InitWithParameters; Init itself needs only the prior.
func (sim *Simulator) Init(rng *rand.Rand, now schedule.Element, s *matrix.Dense) {
	sim.prior.Sample(rng, s)
}

// InitWithParameters is the fixed-parameter entry point: the caller
// has already bound theta into the model; Init still draws the
// dynamic state the same way.
func (sim *Simulator) InitWithParameters(rng *rand.Rand, theta []float64, now schedule.Element, s *matrix.Dense) {
	sim.prior.Sample(rng, s)
}

// Advance drives every particle's dynamic state from "from" to "to"
// via the bound integrator. A no-op when to <= from, matching
// intermediate schedule elements that share a timestamp.
func (sim *Simulator) Advance(rng *rand.Rand, from, to float64, s *matrix.Dense) {
	if to <= from {
		return
	}
	sim.ig.Integrate(from, to, s, sim.m)
}

// Obs returns the observation store bound to this simulator.
func (sim *Simulator) Obs() ObsStore {
	return sim.obs
}

// Model returns the model bound to this simulator, for the driver's
// correct step.
func (sim *Simulator) Model() model.Model {
	return sim.m
}

// Term releases nothing: the in-memory simulator owns no external
// resource.
func (sim *Simulator) Term() {}
