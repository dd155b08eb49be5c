// Package schedule describes the ordered sequence of time points that
// drives the particle filter: a monotone list of elements, each
// optionally marking an observation and/or an output step.
package schedule

// Element is one point in time. IndexObs and IndexOutput are only
// meaningful when HasObs/HasOutput are set; they index the caller's
// observation store and output sink respectively.
type Element struct {
	Time        float64
	IndexObs    int
	IndexOutput int
	HasObs      bool
	HasOutput   bool
}

// Schedule is a monotone non-decreasing sequence of Elements.
type Schedule struct {
	elems []Element
}

// New builds a Schedule from elems, in the order given. The caller is
// responsible for monotonicity in Time; Schedule does not sort.
func New(elems []Element) *Schedule {
	cp := make([]Element, len(elems))
	copy(cp, elems)
	return &Schedule{elems: cp}
}

// Len returns the number of elements.
func (s *Schedule) Len() int { return len(s.elems) }

// At returns the element at position k.
func (s *Schedule) At(k int) Element { return s.elems[k] }

// Iterator walks a Schedule from a start position. It mirrors the
// original ScheduleIterator: Pos() is the current element's index, and
// Last() is one past the final element, so Pos()+1 == Last() marks the
// final step exactly as the driver's termination check expects.
type Iterator struct {
	sched *Schedule
	pos   int
}

// Begin returns an Iterator positioned at the first element.
func (s *Schedule) Begin() *Iterator {
	return &Iterator{sched: s, pos: 0}
}

// Last returns the one-past-the-end position for s.
func (s *Schedule) Last() int { return len(s.elems) }

// Pos returns the iterator's current index.
func (it *Iterator) Pos() int { return it.pos }

// Elem returns the element the iterator currently points to.
func (it *Iterator) Elem() Element { return it.sched.elems[it.pos] }

// Next advances the iterator by one position. The caller must not
// advance past Schedule.Last().
func (it *Iterator) Next() {
	it.pos++
}

// AtEnd reports whether the iterator has reached last.
func (it *Iterator) AtEnd(last int) bool {
	return it.pos == last
}
