package stepping

import (
	"math"
	"testing"

	"github.com/san-kum/fieldtrace/internal/geometry"
)

// boxSampler serves an analytic field inside the unit cube, with optional
// periodic wrapping along x.
type boxSampler struct {
	value     func(geometry.Point3) geometry.Vec3
	periodicX bool
	calls     int
}

func (s *boxSampler) Sample(p geometry.Point3) (geometry.Vec3, bool) {
	s.calls++
	for a := 0; a < geometry.NumAxes; a++ {
		if p[a] < 0 || p[a] > 1 {
			return geometry.Vec3{}, false
		}
	}
	return s.value(p), true
}

func (s *boxSampler) ResolveWrap(p geometry.Point3) (geometry.Point3, bool) {
	if !s.periodicX {
		return p, false
	}
	wrapped := p
	wrapped[geometry.X] = math.Mod(math.Mod(p[geometry.X], 1)+1, 1)
	for a := 1; a < geometry.NumAxes; a++ {
		if p[a] < 0 || p[a] > 1 {
			return p, false
		}
	}
	return wrapped, true
}

func (s *boxSampler) Extents() geometry.Vec3 { return geometry.Vec3{1, 1, 1} }

func uniformBox(dir geometry.Vec3) *boxSampler {
	return &boxSampler{value: func(geometry.Point3) geometry.Vec3 { return dir }}
}

// circulationBox returns a field whose lines are circles of radius r around
// the vertical axis through the cube center.
func circulationBox() *boxSampler {
	return &boxSampler{value: func(p geometry.Point3) geometry.Vec3 {
		return geometry.Vec3{-(p[geometry.Y] - 0.5), p[geometry.X] - 0.5, 0}
	}}
}

func mustStepper(t *testing.T, schemeName string, cfg Config) Stepper {
	t.Helper()
	factory, err := NewFactory(schemeName, cfg)
	if err != nil {
		t.Fatalf("factory construction failed: %v", err)
	}
	return factory.Produce()
}

func TestPlace_NullField(t *testing.T) {
	stepper := mustStepper(t, "rkf45", DefaultConfig())
	sampler := uniformBox(geometry.Vec3{})

	called := false
	cause := stepper.Place(sampler, SenseSame, geometry.Point3{0.5, 0.5, 0.5}, func(geometry.Point3) Instruction {
		called = true
		return Continue
	})
	if cause != CauseNull {
		t.Errorf("expected CauseNull, got %v", cause)
	}
	if called {
		t.Error("callback must not run for a failed placement")
	}
}

func TestPlace_OutOfBounds(t *testing.T) {
	stepper := mustStepper(t, "rkf45", DefaultConfig())
	sampler := uniformBox(geometry.Vec3{1, 0, 0})

	cause := stepper.Place(sampler, SenseSame, geometry.Point3{0.5, 2, 0.5}, nil)
	if cause != CauseOutOfBounds {
		t.Errorf("expected CauseOutOfBounds, got %v", cause)
	}
}

func TestPlace_ResolvesPeriodicWrap(t *testing.T) {
	stepper := mustStepper(t, "rkf45", DefaultConfig())
	sampler := uniformBox(geometry.Vec3{0, 1, 0})
	sampler.periodicX = true

	cause := stepper.Place(sampler, SenseSame, geometry.Point3{1.25, 0.5, 0.5}, nil)
	if cause != CauseNone {
		t.Fatalf("placement should resolve via wrap, got %v", cause)
	}
	if math.Abs(stepper.Position()[geometry.X]-0.25) > 1e-12 {
		t.Errorf("expected wrapped position, got %v", stepper.Position())
	}
	if cause := stepper.Step(sampler, SenseSame, nil); cause != CauseNone {
		t.Errorf("stepping after wrapped placement failed: %v", cause)
	}
}

func TestPlace_InvokesCallbackWithStart(t *testing.T) {
	stepper := mustStepper(t, "rkf45", DefaultConfig())
	sampler := uniformBox(geometry.Vec3{1, 0, 0})
	start := geometry.Point3{0.25, 0.5, 0.75}

	var got geometry.Point3
	cause := stepper.Place(sampler, SenseSame, start, func(p geometry.Point3) Instruction {
		got = p
		return Continue
	})
	if cause != CauseNone {
		t.Fatalf("placement failed: %v", cause)
	}
	if got != start {
		t.Errorf("callback received %v, want %v", got, start)
	}

	// A terminating callback converts a successful placement.
	stepper = mustStepper(t, "rkf45", DefaultConfig())
	cause = stepper.Place(sampler, SenseSame, start, func(geometry.Point3) Instruction { return Terminate })
	if cause != CauseStoppedByCallback {
		t.Errorf("expected CauseStoppedByCallback, got %v", cause)
	}
}

func TestStep_DistanceAdvancesByPriorStepSize(t *testing.T) {
	cfg := DefaultConfig()
	stepper := mustStepper(t, "rkf45", cfg)
	sampler := uniformBox(geometry.Vec3{1, 0, 0})

	if cause := stepper.Place(sampler, SenseSame, geometry.Point3{0.1, 0.5, 0.5}, nil); cause != CauseNone {
		t.Fatalf("placement failed: %v", cause)
	}

	// In a uniform field the error estimate is exactly zero, so the first
	// step is accepted with the initial step size and the next size scales
	// up by the maximum factor. The distance must advance by the size in
	// effect before the update.
	if cause := stepper.Step(sampler, SenseSame, nil); cause != CauseNone {
		t.Fatalf("first step failed: %v", cause)
	}
	if stepper.Distance() != cfg.InitialStepSize {
		t.Errorf("distance after first step: got %g, want %g", stepper.Distance(), cfg.InitialStepSize)
	}

	if cause := stepper.Step(sampler, SenseSame, nil); cause != CauseNone {
		t.Fatalf("second step failed: %v", cause)
	}
	want := cfg.InitialStepSize + cfg.InitialStepSize*cfg.MaxStepScale
	if stepper.Distance() != want {
		t.Errorf("distance after second step: got %g, want %g", stepper.Distance(), want)
	}
}

func TestStep_NullFieldMidTrace(t *testing.T) {
	stepper := mustStepper(t, "rkf45", DefaultConfig())
	sampler := uniformBox(geometry.Vec3{1, 0, 0})

	if cause := stepper.Place(sampler, SenseSame, geometry.Point3{0.5, 0.5, 0.5}, nil); cause != CauseNone {
		t.Fatalf("placement failed: %v", cause)
	}
	sampler.value = func(geometry.Point3) geometry.Vec3 { return geometry.Vec3{} }

	if cause := stepper.Step(sampler, SenseSame, nil); cause != CauseNull {
		t.Errorf("expected CauseNull, got %v", cause)
	}
}

func TestStepDense_UniformFieldRay(t *testing.T) {
	cfg := DefaultConfig()
	// Modest growth keeps the whole ray inside the domain for a while.
	cfg.MaxStepScale = 2
	stepper := mustStepper(t, "rkf45", cfg)
	sampler := uniformBox(geometry.Vec3{0, 1, 0})
	start := geometry.Point3{0.5, 0.1, 0.5}

	var points []geometry.Point3
	record := func(p geometry.Point3) Instruction {
		points = append(points, p)
		return Continue
	}

	if cause := stepper.Place(sampler, SenseSame, start, record); cause != CauseNone {
		t.Fatalf("placement failed: %v", cause)
	}
	for {
		if cause := stepper.StepDense(sampler, SenseSame, record); cause != CauseNone {
			if cause != CauseOutOfBounds {
				t.Fatalf("expected the trace to leave the domain, got %v", cause)
			}
			break
		}
	}

	if len(points) < 20 {
		t.Fatalf("expected a full ray of dense points, got %d", len(points))
	}
	for i, p := range points {
		if math.Abs(p[geometry.X]-0.5) > 1e-9 || math.Abs(p[geometry.Z]-0.5) > 1e-9 {
			t.Fatalf("point %d off the ray: %v", i, p)
		}
		if i == 0 {
			continue
		}
		spacing := p[geometry.Y] - points[i-1][geometry.Y]
		if math.Abs(spacing-cfg.DenseStepSize) > 1e-9 {
			t.Fatalf("spacing between points %d and %d is %g, want %g", i-1, i, spacing, cfg.DenseStepSize)
		}
	}
}

func circleAccuracy(t *testing.T, schemeName string) {
	cfg := DefaultConfig()
	stepper := mustStepper(t, schemeName, cfg)
	sampler := circulationBox()
	start := geometry.Point3{0.9, 0.5, 0.5}

	var points []geometry.Point3
	record := func(p geometry.Point3) Instruction {
		points = append(points, p)
		return Continue
	}

	if cause := stepper.Place(sampler, SenseSame, start, record); cause != CauseNone {
		t.Fatalf("placement failed: %v", cause)
	}
	for i := 0; i < 200; i++ {
		if cause := stepper.StepDense(sampler, SenseSame, record); cause != CauseNone {
			t.Fatalf("step %d failed: %v", i, cause)
		}
	}

	if len(points) < 10 {
		t.Fatalf("expected dense output along the circle, got %d points", len(points))
	}
	for i, p := range points {
		radius := math.Hypot(p[geometry.X]-0.5, p[geometry.Y]-0.5)
		if math.Abs(radius-0.4) > 1e-3 {
			t.Fatalf("point %d drifted off the circle: radius %g", i, radius)
		}
		if math.Abs(p[geometry.Z]-0.5) > 1e-9 {
			t.Fatalf("point %d left the plane: %v", i, p)
		}
	}

	// Emission count matches the multiples of the dense spacing crossed.
	emitted := len(points) - 1
	expected := int(stepper.Distance() / cfg.DenseStepSize)
	if emitted < expected-1 || emitted > expected+1 {
		t.Errorf("emitted %d dense points over distance %g, expected about %d", emitted, stepper.Distance(), expected)
	}
}

func TestStepDense_CircleAccuracyRKF45(t *testing.T) { circleAccuracy(t, "rkf45") }
func TestStepDense_CircleAccuracyRKF23(t *testing.T) { circleAccuracy(t, "rkf23") }

func TestStepDense_Idempotence(t *testing.T) {
	trace := func() []geometry.Point3 {
		stepper := mustStepper(t, "rkf45", DefaultConfig())
		sampler := circulationBox()
		var points []geometry.Point3
		record := func(p geometry.Point3) Instruction {
			points = append(points, p)
			return Continue
		}
		if cause := stepper.Place(sampler, SenseSame, geometry.Point3{0.8, 0.5, 0.5}, record); cause != CauseNone {
			t.Fatalf("placement failed: %v", cause)
		}
		for i := 0; i < 50; i++ {
			if cause := stepper.StepDense(sampler, SenseSame, record); cause != CauseNone {
				t.Fatalf("step failed: %v", cause)
			}
		}
		return points
	}

	first := trace()
	second := trace()
	if len(first) != len(second) {
		t.Fatalf("traces differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("point %d differs between identical traces: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestStep_SenseOpposite(t *testing.T) {
	stepper := mustStepper(t, "rkf45", DefaultConfig())
	sampler := uniformBox(geometry.Vec3{0, 1, 0})
	start := geometry.Point3{0.5, 0.5, 0.5}

	if cause := stepper.Place(sampler, SenseOpposite, start, nil); cause != CauseNone {
		t.Fatalf("placement failed: %v", cause)
	}
	for i := 0; i < 5; i++ {
		if cause := stepper.Step(sampler, SenseOpposite, nil); cause != CauseNone {
			t.Fatalf("step failed: %v", cause)
		}
	}
	if stepper.Position()[geometry.Y] >= start[geometry.Y] {
		t.Errorf("opposite sense should move against the field, got %v", stepper.Position())
	}
}

func TestStep_SinkDetection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SuddenReversalsForSink = 3
	stepper := mustStepper(t, "rkf45", cfg)

	dir := geometry.Vec3{1, 0, 0}
	sampler := &boxSampler{value: func(geometry.Point3) geometry.Vec3 { return dir }}

	if cause := stepper.Place(sampler, SenseSame, geometry.Point3{0.5, 0.5, 0.5}, nil); cause != CauseNone {
		t.Fatalf("placement failed: %v", cause)
	}

	// The field reverses before every step; the third consecutive reversal
	// must be reported as a sink, never fewer.
	for i := 1; i <= 2; i++ {
		dir = dir.Mul(-1)
		if cause := stepper.Step(sampler, SenseSame, nil); cause != CauseNone {
			t.Fatalf("reversal %d should still step, got %v", i, cause)
		}
	}
	distanceBefore := stepper.Distance()
	positionBefore := stepper.Position()

	dir = dir.Mul(-1)
	if cause := stepper.Step(sampler, SenseSame, nil); cause != CauseSink {
		t.Fatalf("third consecutive reversal should stop with CauseSink, got %v", cause)
	}
	if stepper.Distance() != distanceBefore || stepper.Position() != positionBefore {
		t.Error("a sink stop must not commit the step")
	}
}

func TestStep_SinkCounterResets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SuddenReversalsForSink = 3
	stepper := mustStepper(t, "rkf45", cfg)

	dir := geometry.Vec3{1, 0, 0}
	sampler := &boxSampler{value: func(geometry.Point3) geometry.Vec3 { return dir }}

	if cause := stepper.Place(sampler, SenseSame, geometry.Point3{0.5, 0.5, 0.5}, nil); cause != CauseNone {
		t.Fatalf("placement failed: %v", cause)
	}

	steps := []struct {
		flip     bool
		expected StoppingCause
	}{
		{true, CauseNone},  // reversal 1
		{true, CauseNone},  // reversal 2
		{false, CauseNone}, // counter resets
		{true, CauseNone},  // reversal 1
		{true, CauseNone},  // reversal 2
		{true, CauseSink},  // reversal 3
	}
	for i, step := range steps {
		if step.flip {
			dir = dir.Mul(-1)
		}
		if cause := stepper.Step(sampler, SenseSame, nil); cause != step.expected {
			t.Fatalf("step %d: got %v, want %v", i, cause, step.expected)
		}
	}
}

func TestStepDense_CallbackTerminatesAtFifthPoint(t *testing.T) {
	stepper := mustStepper(t, "rkf45", DefaultConfig())
	sampler := uniformBox(geometry.Vec3{0, 1, 0})

	var points []geometry.Point3
	callback := func(p geometry.Point3) Instruction {
		points = append(points, p)
		if len(points) == 5 {
			return Terminate
		}
		return Continue
	}

	cause := stepper.Place(sampler, SenseSame, geometry.Point3{0.5, 0.1, 0.5}, callback)
	for cause == CauseNone {
		cause = stepper.StepDense(sampler, SenseSame, callback)
	}

	if cause != CauseStoppedByCallback {
		t.Errorf("expected CauseStoppedByCallback, got %v", cause)
	}
	if len(points) != 5 {
		t.Errorf("expected exactly 5 points, got %d", len(points))
	}
}

func TestStep_TooManyAttempts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AbsoluteTolerance = 1e-12
	cfg.RelativeTolerance = 0
	// Pin the step size so the error can never shrink into tolerance.
	cfg.MinStepScale = 1
	cfg.MaxStepScale = 1
	cfg.InitialStepSize = 1e-3
	cfg.MaxStepAttempts = 16
	stepper := mustStepper(t, "rkf45", cfg)

	// Alternating stage directions keep the embedded solutions apart.
	n := 0
	axes := []geometry.Vec3{{1, 0, 0}, {0, 1, 0}}
	sampler := &boxSampler{value: func(geometry.Point3) geometry.Vec3 {
		n++
		return axes[n%2]
	}}

	start := geometry.Point3{0.5, 0.5, 0.5}
	if cause := stepper.Place(sampler, SenseSame, start, nil); cause != CauseNone {
		t.Fatalf("placement failed: %v", cause)
	}

	callsBefore := sampler.calls
	if cause := stepper.Step(sampler, SenseSame, nil); cause != CauseTooManyAttempts {
		t.Fatalf("expected CauseTooManyAttempts, got %v", cause)
	}

	// Each rkf45 attempt samples five intermediate stages plus the step end.
	attempts := (sampler.calls - callsBefore) / 6
	if attempts != 16 {
		t.Errorf("expected exactly 16 attempts, got %d", attempts)
	}
	if stepper.Distance() != 0 || stepper.Position() != start {
		t.Error("an exhausted step must not move the stepper")
	}
}

func TestFactory_ProducesIndependentSteppers(t *testing.T) {
	factory, err := NewRKF45Factory(DefaultConfig())
	if err != nil {
		t.Fatalf("factory construction failed: %v", err)
	}
	a := factory.Produce()
	b := factory.Produce()
	if a == b {
		t.Fatal("factory must produce distinct instances")
	}

	sampler := uniformBox(geometry.Vec3{1, 0, 0})
	if cause := a.Place(sampler, SenseSame, geometry.Point3{0.1, 0.5, 0.5}, nil); cause != CauseNone {
		t.Fatalf("placement failed: %v", cause)
	}
	if cause := a.Step(sampler, SenseSame, nil); cause != CauseNone {
		t.Fatalf("step failed: %v", cause)
	}
	if b.Distance() != 0 {
		t.Error("stepping one instance must not affect another")
	}
}
