// Package stepping implements adaptive stepping along the lines of a sampled
// 3D vector field, using embedded Runge-Kutta-Fehlberg schemes with
// PI-controlled step sizes and dense (regularly spaced) output positions.
package stepping

import (
	"github.com/san-kum/fieldtrace/internal/geometry"
)

// Sense selects whether to step with or against the field direction.
type Sense int

const (
	SenseSame Sense = iota
	SenseOpposite
)

func (s Sense) String() string {
	if s == SenseOpposite {
		return "opposite"
	}
	return "same"
}

// Instruction is returned by callbacks to communicate whether tracing should
// continue or terminate.
type Instruction int

const (
	Continue Instruction = iota
	Terminate
)

// StoppingCause is the reason an operation terminated stepping. The zero
// value CauseNone means stepping can continue.
type StoppingCause int

const (
	CauseNone StoppingCause = iota
	// CauseNull means the sampled field vector was exactly zero.
	CauseNull
	// CauseOutOfBounds means the position left the domain with no periodic
	// counterpart.
	CauseOutOfBounds
	// CauseSink means too many consecutive accepted steps reversed direction.
	CauseSink
	// CauseTooManyAttempts means the retry budget was exhausted without an
	// acceptable step.
	CauseTooManyAttempts
	// CauseStoppedByCallback means the callback requested termination.
	CauseStoppedByCallback
)

func (c StoppingCause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseNull:
		return "null field"
	case CauseOutOfBounds:
		return "out of bounds"
	case CauseSink:
		return "sink"
	case CauseTooManyAttempts:
		return "too many attempts"
	case CauseStoppedByCallback:
		return "stopped by callback"
	default:
		return "unknown"
	}
}

// Callback is invoked with every placed or emitted position. It must not
// mutate stepper internals.
type Callback func(position geometry.Point3) Instruction

// Sampler provides read-only access to the vector field being traced. A
// sampler is shared by concurrent steppers and must be safe for concurrent
// reads.
type Sampler interface {
	// Sample interpolates the field at the position; ok is false when the
	// position lies outside the field domain.
	Sample(position geometry.Point3) (value geometry.Vec3, ok bool)
	// ResolveWrap maps an out-of-bounds position to a periodic-boundary
	// adjusted equivalent, if one exists.
	ResolveWrap(position geometry.Point3) (wrapped geometry.Point3, ok bool)
	// Extents returns the spatial extents of the field domain along each
	// axis, used to normalize step error estimates.
	Extents() geometry.Vec3
}

// Stepper advances along a single field line. A stepper instance owns its
// state exclusively for the lifetime of one trace and must not be shared.
type Stepper interface {
	// Place resets the stepper to begin a new trace at the given position.
	Place(sampler Sampler, sense Sense, position geometry.Point3, callback Callback) StoppingCause
	// Step attempts one adaptive step, invoking the callback with the new
	// position on success.
	Step(sampler Sampler, sense Sense, callback Callback) StoppingCause
	// StepDense attempts one adaptive step and invokes the callback with
	// every regularly spaced output position the step crossed.
	StepDense(sampler Sampler, sense Sense, callback Callback) StoppingCause
	// Position returns the current stepper position.
	Position() geometry.Point3
	// Distance returns the arc length travelled since placement.
	Distance() float64
}

// Factory produces fresh stepper instances, one per traced line, so that
// concurrent traces never share mutable state.
type Factory interface {
	Produce() Stepper
}
