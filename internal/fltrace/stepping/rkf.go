package stepping

import (
	"math"

	"github.com/san-kum/fieldtrace/internal/geometry"
)

// stepperState is the mutable record owned exclusively by one stepper for
// the lifetime of one trace.
type stepperState struct {
	// position is the current location; mutated only by applyAttempt and
	// resetState.
	position geometry.Point3
	// direction is the unit field direction at position.
	direction geometry.Vec3
	// distance is the cumulative arc length since placement.
	distance float64
	// stepSize is the step length to attempt next.
	stepSize float64
	// errorEst is the last step's normalized error estimate.
	errorEst float64
	// nSuddenReversals counts consecutive accepted steps whose direction
	// reversed relative to the previous one.
	nSuddenReversals int
	// previousStepSize is the step size used to reach the current position.
	previousStepSize float64
	// previousPosition is the position before the last accepted step.
	previousPosition geometry.Point3
	// previousDirection is the field direction at previousPosition.
	previousDirection geometry.Vec3
	// intermediateDirections are the stage directions of the last accepted
	// step, kept for dense-output reconstruction.
	intermediateDirections []geometry.Vec3
	// previousStepDisplacement is the displacement of the last accepted
	// step, before any boundary wrapping of the end position.
	previousStepDisplacement geometry.Vec3
	// previousStepWrapped records whether the last accepted step crossed a
	// periodic boundary.
	previousStepWrapped bool
	// nextOutputDistance is the arc length at which the next dense output
	// position is due.
	nextOutputDistance float64
}

// stepAttempt holds the outcome of one trial step before acceptance.
type stepAttempt struct {
	nextPosition           geometry.Point3
	nextDirection          geometry.Vec3
	intermediateDirections []geometry.Vec3
	stepDisplacement       geometry.Vec3
	stepWrapped            bool
}

// computedDirection is a sampled unit direction together with the position
// it was resolved at, which differs from the requested one after a wrap.
type computedDirection struct {
	direction geometry.Vec3
	position  geometry.Point3
	wrapped   bool
}

// RKFStepper advances along field lines using an embedded RKF pair with
// adaptive step-size control. Construct instances through a Factory; a
// stepper must not be shared between concurrent traces.
type RKFStepper struct {
	config Config
	pi     piControl
	scheme *scheme
	state  stepperState
}

func newRKFStepper(config Config, sch *scheme) *RKFStepper {
	pi := piDeactivated(sch.order)
	if config.UsePIControl {
		pi = piActivated(sch.order)
	}
	return &RKFStepper{config: config, pi: pi, scheme: sch}
}

// Position returns the current stepper position.
func (s *RKFStepper) Position() geometry.Point3 { return s.state.position }

// Distance returns the arc length travelled since placement.
func (s *RKFStepper) Distance() float64 { return s.state.distance }

// Error returns the normalized error estimate of the last accepted step.
func (s *RKFStepper) Error() float64 { return s.state.errorEst }

// Place resets all state to begin a new trace at the given position. The
// callback is invoked with the placed position; a Terminate instruction
// converts the otherwise successful placement into CauseStoppedByCallback.
func (s *RKFStepper) Place(sampler Sampler, sense Sense, position geometry.Point3, callback Callback) StoppingCause {
	computed, cause := computeDirection(sampler, sense, position)
	if cause != CauseNone {
		return cause
	}
	s.resetState(computed.position, computed.direction)
	if callback != nil && callback(s.state.position) == Terminate {
		return CauseStoppedByCallback
	}
	return CauseNone
}

// Step attempts one adaptive step and invokes the callback with the new
// position on success.
func (s *RKFStepper) Step(sampler Sampler, sense Sense, callback Callback) StoppingCause {
	if cause := s.performStep(sampler, sense); cause != CauseNone {
		return cause
	}
	if callback != nil && callback(s.state.position) == Terminate {
		return CauseStoppedByCallback
	}
	return CauseNone
}

// StepDense attempts one adaptive step and invokes the callback with every
// dense output position crossed by the step, in order of increasing arc
// length.
func (s *RKFStepper) StepDense(sampler Sampler, sense Sense, callback Callback) StoppingCause {
	if cause := s.performStep(sampler, sense); cause != CauseNone {
		return cause
	}
	return s.computeDenseOutput(sampler, callback)
}

func (s *RKFStepper) resetState(position geometry.Point3, direction geometry.Vec3) {
	s.state = stepperState{
		position:           position,
		direction:          direction,
		stepSize:           s.config.InitialStepSize,
		errorEst:           s.config.InitialError,
		previousPosition:   position,
		previousDirection:  direction,
		nextOutputDistance: s.config.DenseStepSize,
	}
}

// performStep runs the accept/reject loop: attempt a trial step, estimate
// its error, and either commit it or shrink the step size and retry, up to
// the attempt budget.
func (s *RKFStepper) performStep(sampler Sampler, sense Sense) StoppingCause {
	for attempts := 1; attempts <= s.config.MaxStepAttempts; attempts++ {
		attempt, cause := s.attemptStep(sampler, sense)
		if cause != CauseNone {
			return cause
		}

		newError, acceptable := s.computeError(sampler.Extents(), &attempt)
		if !acceptable {
			s.updateStepSize(s.stepSizeRejected(newError), newError)
			continue
		}

		newStepSize := s.stepSizeAccepted(newError)
		// A step accepted after rejections must not grow beyond the size
		// that was actually attempted.
		if attempts > 1 && newStepSize > s.state.stepSize {
			newStepSize = s.state.stepSize
		}

		if s.checkForSink(&attempt) {
			return CauseSink
		}

		s.applyAttempt(&attempt)
		s.updateStepSize(newStepSize, newError)
		return CauseNone
	}
	return CauseTooManyAttempts
}

// attemptStep evaluates the stage directions of the scheme and assembles a
// candidate step of the current step size.
func (s *RKFStepper) attemptStep(sampler Sampler, sense Sense) (stepAttempt, StoppingCause) {
	state := &s.state
	h := state.stepSize

	directions := make([]geometry.Vec3, 1, len(s.scheme.coupling)+2)
	directions[0] = state.direction

	for _, row := range s.scheme.coupling {
		stagePosition := state.position.Add(combine(directions, row).Mul(h))
		computed, cause := computeDirection(sampler, sense, stagePosition)
		if cause != CauseNone {
			return stepAttempt{}, cause
		}
		directions = append(directions, computed.direction)
	}

	displacement := combine(directions, s.scheme.weights).Mul(h)
	computed, cause := computeDirection(sampler, sense, state.position.Add(displacement))
	if cause != CauseNone {
		return stepAttempt{}, cause
	}
	// The direction at the step end doubles as the final stage for schemes
	// with a first-same-as-last error estimate, and feeds dense output.
	directions = append(directions, computed.direction)

	return stepAttempt{
		nextPosition:           computed.position,
		nextDirection:          computed.direction,
		intermediateDirections: directions,
		stepDisplacement:       displacement,
		stepWrapped:            computed.wrapped,
	}, CauseNone
}

// combine forms the weighted sum of the leading stage directions.
func combine(directions []geometry.Vec3, weights []float64) geometry.Vec3 {
	var sum geometry.Vec3
	for i, w := range weights {
		if w != 0 {
			sum = sum.Add(directions[i].Mul(w))
		}
	}
	return sum
}

// computeDirection samples the field and turns the value into a unit
// stepping direction, attempting one periodic-wrap resolution when the
// position is out of bounds.
func computeDirection(sampler Sampler, sense Sense, position geometry.Point3) (computedDirection, StoppingCause) {
	wrapped := false
	value, ok := sampler.Sample(position)
	if !ok {
		resolved, okWrap := sampler.ResolveWrap(position)
		if !okWrap {
			return computedDirection{}, CauseOutOfBounds
		}
		value, ok = sampler.Sample(resolved)
		if !ok {
			return computedDirection{}, CauseOutOfBounds
		}
		position = resolved
		wrapped = true
	}
	if geometry.IsZero(value) {
		return computedDirection{}, CauseNull
	}
	if sense == SenseOpposite {
		value = value.Mul(-1)
	}
	return computedDirection{
		direction: value.Normalize(),
		position:  position,
		wrapped:   wrapped,
	}, CauseNone
}

// computeError forms the normalized RMS error of the trial step: per-axis
// deltas between the embedded solutions, each scaled by the tolerance for
// that axis, combined as sqrt(0.5*sum of squares).
func (s *RKFStepper) computeError(extents geometry.Vec3, attempt *stepAttempt) (float64, bool) {
	deltas := geometry.Abs(combine(attempt.intermediateDirections, s.scheme.errWeights).Mul(s.state.stepSize))

	sumSquares := 0.0
	for a := 0; a < geometry.NumAxes; a++ {
		e := deltas[a] / (s.config.AbsoluteTolerance + s.config.RelativeTolerance*extents[a])
		sumSquares += e * e
	}
	errorEst := math.Sqrt(0.5 * sumSquares)
	return errorEst, errorEst <= 1
}

// stepSizeAccepted applies PI control to compute the next step size after an
// accepted step.
func (s *RKFStepper) stepSizeAccepted(newError float64) float64 {
	var scale float64
	if newError < 1e-9 {
		// Very small errors would blow up the control expression.
		scale = s.config.MaxStepScale
	} else {
		scale = s.config.SafetyFactor * math.Pow(s.state.errorEst, s.pi.kI) / math.Pow(newError, s.pi.kP)
		scale = geometry.Clamp(scale, s.config.MinStepScale, s.config.MaxStepScale)
	}
	return s.state.stepSize * scale
}

// stepSizeRejected shrinks the step size after a rejected step. No integral
// term is applied to rejections.
func (s *RKFStepper) stepSizeRejected(newError float64) float64 {
	return math.Max(s.config.SafetyFactor/math.Pow(newError, s.pi.kP), s.config.MinStepScale) * s.state.stepSize
}

// checkForSink updates the reversal counter and reports whether the trial
// step would leave the stepper trapped in a sink.
func (s *RKFStepper) checkForSink(attempt *stepAttempt) bool {
	if attempt.nextDirection.Dot(s.state.direction) < 0 {
		s.state.nSuddenReversals++
		return s.state.nSuddenReversals >= s.config.SuddenReversalsForSink
	}
	s.state.nSuddenReversals = 0
	return false
}

// applyAttempt commits the trial step. The distance advances by the step
// size that produced the attempt, before updateStepSize replaces it.
func (s *RKFStepper) applyAttempt(attempt *stepAttempt) {
	state := &s.state
	state.previousPosition = state.position
	state.previousDirection = state.direction
	state.position = attempt.nextPosition
	state.direction = attempt.nextDirection
	state.distance += state.stepSize
	state.intermediateDirections = attempt.intermediateDirections
	state.previousStepDisplacement = attempt.stepDisplacement
	state.previousStepWrapped = attempt.stepWrapped
}

func (s *RKFStepper) updateStepSize(newStepSize, newError float64) {
	s.state.previousStepSize = s.state.stepSize
	s.state.stepSize = newStepSize
	s.state.errorEst = newError
}

// computeDenseOutput emits interpolated positions for every multiple of the
// dense step size crossed by the last accepted step, then records where the
// next output is due.
func (s *RKFStepper) computeDenseOutput(sampler Sampler, callback Callback) StoppingCause {
	state := &s.state
	previousDistance := state.distance - state.previousStepSize

	nextOutputDistance := state.nextOutputDistance
	if nextOutputDistance <= state.distance {
		coefs := s.scheme.denseCoefs(state)
		for {
			fraction := (nextOutputDistance - previousDistance) / state.previousStepSize
			position := interpolateDense(state, coefs, fraction)
			if state.previousStepWrapped {
				if wrapped, ok := sampler.ResolveWrap(position); ok {
					position = wrapped
				}
			}

			if callback(position) == Terminate {
				return CauseStoppedByCallback
			}

			nextOutputDistance += s.config.DenseStepSize
			if nextOutputDistance > state.distance {
				break
			}
		}
	}
	state.nextOutputDistance = nextOutputDistance
	return CauseNone
}
