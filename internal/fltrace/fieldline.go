package fltrace

import (
	"math"

	"github.com/san-kum/fieldtrace/internal/field"
	"github.com/san-kum/fieldtrace/internal/fltrace/stepping"
	"github.com/san-kum/fieldtrace/internal/geometry"
)

// FieldLine accumulates the positions and derived values of one traced
// line. It is the explicit accumulator handed to the tracer as callback; it
// observes emitted positions but never touches stepper internals.
type FieldLine struct {
	// Positions are the emitted points, in tracing order.
	Positions []geometry.Point3
	// ScalarValues holds named per-point series extracted along the line.
	ScalarValues map[string][]float64
	// Cause records why tracing terminated.
	Cause stepping.StoppingCause
	// MaxPoints terminates tracing once reached; zero means unlimited.
	MaxPoints int
}

// NewFieldLine returns an empty accumulator. maxPoints of zero disables the
// point cap.
func NewFieldLine(maxPoints int) *FieldLine {
	return &FieldLine{
		ScalarValues: make(map[string][]float64),
		MaxPoints:    maxPoints,
	}
}

// OnPoint records a traced position and decides whether tracing continues.
// It is handed to Trace as the callback.
func (l *FieldLine) OnPoint(p geometry.Point3) stepping.Instruction {
	l.Positions = append(l.Positions, p)
	if l.MaxPoints > 0 && len(l.Positions) >= l.MaxPoints {
		return stepping.Terminate
	}
	return stepping.Continue
}

// NumPoints returns the number of recorded positions.
func (l *FieldLine) NumPoints() int { return len(l.Positions) }

// Length returns the chord-length approximation of the line's arc length.
// Jumps across periodic boundaries are excluded.
func (l *FieldLine) Length() float64 {
	length := 0.0
	var previousStep float64
	for i := 1; i < len(l.Positions); i++ {
		step := geometry.Displacement(l.Positions[i-1], l.Positions[i]).Len()
		// A step much longer than its neighbors is a wrap jump, not path.
		if previousStep > 0 && step > 10*previousStep {
			continue
		}
		length += step
		previousStep = step
	}
	return length
}

// AddScalarValues stores a named per-point series on the line.
func (l *FieldLine) AddScalarValues(name string, values []float64) {
	l.ScalarValues[name] = values
}

// ExtractScalars samples the given scalar field at every line point and
// stores the values under the field's name. Points outside the field domain
// record NaN.
func (l *FieldLine) ExtractScalars(f *field.Scalar3) {
	values := make([]float64, len(l.Positions))
	for i, p := range l.Positions {
		v, ok := f.Interpolate(p)
		if !ok {
			v = math.NaN()
		}
		values[i] = v
	}
	l.AddScalarValues(f.Name(), values)
}
