// Package fltrace traces field lines through sampled 3D vector fields using
// adaptive steppers, and aggregates traced lines into sets.
package fltrace

import (
	"github.com/san-kum/fieldtrace/internal/fltrace/stepping"
	"github.com/san-kum/fieldtrace/internal/geometry"
)

// Trace follows a single field line from the start position until a stepper
// or the callback terminates it. The callback observes the placed position
// and every dense output position; trajectory accumulation is entirely the
// callback's responsibility.
//
// The returned cause describes why tracing ended. ok is false when no line
// was produced at all (placement failed); a placement stopped by the
// callback still counts as a degenerate single-point line.
func Trace(stepper stepping.Stepper, sampler stepping.Sampler, sense stepping.Sense, start geometry.Point3, callback stepping.Callback) (cause stepping.StoppingCause, ok bool) {
	cause = stepper.Place(sampler, sense, start, callback)
	switch cause {
	case stepping.CauseNone:
	case stepping.CauseStoppedByCallback:
		return cause, true
	default:
		return cause, false
	}

	for cause == stepping.CauseNone {
		cause = stepper.StepDense(sampler, sense, callback)
	}
	return cause, true
}
