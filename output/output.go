// Package output implements the particle filter's output sink: the
// record of parameters, per-step state/weights/ancestries, and the
// final marginal log-likelihood, plus the ancestry walk that
// reconstructs a single particle's full trajectory after the fact.
package output

import "errors"

// ErrNoRecords is returned by ReadLogWeights and ReadTrajectory when the
// sink has not yet recorded a single output step.
var ErrNoRecords = errors.New("output: no recorded steps")

// Record is one time-indexed output step: the dynamic state, ancestry
// and log-weights at schedule index k, plus whether this step followed
// a resample.
type Record struct {
	K           int
	Time        float64
	Dyn         [][]float64 // Dyn[p][n], one row per particle
	Ancestors   []int
	LogWeights  []float64
	DidResample bool
}

// Sink is the interface the particle filter driver writes to and, at
// the end of a run, reads back from to reconstruct trajectories. A
// single Sink instance is touched only by the driver's goroutine.
type Sink interface {
	WriteParameters(paramRow []float64)
	WriteTime(k int, t float64)
	WriteState(k int, dyn [][]float64, as []int, didResample bool)
	WriteLogWeights(k int, lws []float64)
	WriteLL(ll float64)
	ReadLogWeights() ([]float64, error)
	ReadTrajectory(p int, x *[][]float64) error
	Clear()
}

// Memory is an in-memory Sink: the whole run's records kept as a
// slice, walked backwards to reconstruct trajectories. This is the
// sink every test and the demo command use; a persisted encoding is
// left to the caller.
type Memory struct {
	params  []float64
	times   map[int]float64
	records map[int]*Record
	order   []int
	ll      float64
	hasLL   bool
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{
		times:   make(map[int]float64),
		records: make(map[int]*Record),
	}
}

// WriteParameters records the header parameter row, once per run.
func (m *Memory) WriteParameters(paramRow []float64) {
	m.params = append([]float64(nil), paramRow...)
}

// WriteTime records the schedule time associated with output index k.
func (m *Memory) WriteTime(k int, t float64) {
	m.times[k] = t
	m.ensure(k).Time = t
}

// WriteState records the dynamic state, ancestry and resample flag for
// schedule index k. dyn and as are copied; the sink never aliases the
// driver's buffers.
func (m *Memory) WriteState(k int, dyn [][]float64, as []int, didResample bool) {
	r := m.ensure(k)
	r.Dyn = make([][]float64, len(dyn))
	for i, row := range dyn {
		r.Dyn[i] = append([]float64(nil), row...)
	}
	r.Ancestors = append([]int(nil), as...)
	r.DidResample = didResample
}

// WriteLogWeights records the log-weights at schedule index k.
func (m *Memory) WriteLogWeights(k int, lws []float64) {
	m.ensure(k).LogWeights = append([]float64(nil), lws...)
}

// WriteLL records the run's marginal log-likelihood estimate.
func (m *Memory) WriteLL(ll float64) {
	m.ll = ll
	m.hasLL = true
}

func (m *Memory) ensure(k int) *Record {
	r, ok := m.records[k]
	if !ok {
		r = &Record{K: k}
		m.records[k] = r
		m.order = append(m.order, k)
	}
	return r
}

// LL returns the recorded marginal log-likelihood and whether one has
// been written yet.
func (m *Memory) LL() (float64, bool) {
	return m.ll, m.hasLL
}

// Records returns every recorded output step in schedule order, for
// callers (the demo command, trace plots) that want the full filtering
// history rather than just the final step or a single trajectory.
func (m *Memory) Records() []Record {
	out := make([]Record, len(m.order))
	for i, k := range m.order {
		out[i] = *m.records[k]
	}
	return out
}

// ReadLogWeights returns the log-weights from the last recorded step.
func (m *Memory) ReadLogWeights() ([]float64, error) {
	if len(m.order) == 0 {
		return nil, ErrNoRecords
	}
	last := m.records[m.order[len(m.order)-1]]
	return append([]float64(nil), last.LogWeights...), nil
}

// ReadTrajectory reconstructs particle p's full trajectory by walking
// the recorded ancestries backwards from the last step to the first,
// writing one row of *x per recorded step in forward time order.
func (m *Memory) ReadTrajectory(p int, x *[][]float64) error {
	if len(m.order) == 0 {
		return ErrNoRecords
	}
	n := len(m.order)
	traj := make([][]float64, n)

	cur := p
	for i := n - 1; i >= 0; i-- {
		r := m.records[m.order[i]]
		traj[i] = append([]float64(nil), r.Dyn[cur]...)
		if r.DidResample {
			cur = r.Ancestors[cur]
		}
	}
	*x = traj
	return nil
}

// Clear discards every recorded step, parameter row and LL, readying
// the sink for a fresh run.
func (m *Memory) Clear() {
	m.params = nil
	m.times = make(map[int]float64)
	m.records = make(map[int]*Record)
	m.order = nil
	m.ll = 0
	m.hasLL = false
}
