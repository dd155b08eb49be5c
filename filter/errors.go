package filter

import "fmt"

// Kind enumerates the particle filter's fatal error taxonomy. Soft
// signals (integrator step-budget exhaustion, an occasional non-finite
// per-particle log-density) are absorbed by the filter and surface
// only as degraded ll or later degeneracy; they are not Kind values.
type Kind int

const (
	// CholeskyFailure signals a matrix decomposition in the resampler
	// or model was not positive definite.
	CholeskyFailure Kind = iota
	// ParticleFilterDegenerate signals every particle's log-weight
	// went to -inf after a correct.
	ParticleFilterDegenerate
	// ConditionalParticleFilterFailure signals the pinned ancestor
	// disagreed with the drawn resample in the conditional variant.
	ConditionalParticleFilterFailure
	// ResizeForbidden mirrors matrix.ErrResizeForbidden at the filter
	// boundary, for callers that only watch for filter.Error.
	ResizeForbidden
)

func (k Kind) String() string {
	switch k {
	case CholeskyFailure:
		return "CholeskyFailure"
	case ParticleFilterDegenerate:
		return "ParticleFilterDegenerate"
	case ConditionalParticleFilterFailure:
		return "ConditionalParticleFilterFailure"
	case ResizeForbidden:
		return "ResizeForbidden"
	default:
		return "UnknownKind"
	}
}

// Error is the single result variant a filter.Run* call can fail with.
// It names the error kind and the schedule index at which it occurred,
// so a caller can preserve output written up to that point.
type Error struct {
	Kind    Kind
	AtIndex int
	Info    string
}

func (e *Error) Error() string {
	if e.Info != "" {
		return fmt.Sprintf("filter: %s at schedule index %d: %s", e.Kind, e.AtIndex, e.Info)
	}
	return fmt.Sprintf("filter: %s at schedule index %d", e.Kind, e.AtIndex)
}

func newError(kind Kind, atIndex int, info string) *Error {
	return &Error{Kind: kind, AtIndex: atIndex, Info: info}
}
