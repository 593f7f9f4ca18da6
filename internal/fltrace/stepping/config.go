package stepping

import "fmt"

// Default configuration values for RKF steppers.
const (
	DefaultDenseStepSize          = 1e-2
	DefaultMaxStepAttempts        = 16
	DefaultAbsoluteTolerance      = 1e-6
	DefaultRelativeTolerance      = 1e-6
	DefaultSafetyFactor           = 0.9
	DefaultMinStepScale           = 0.2
	DefaultMaxStepScale           = 10.0
	DefaultInitialStepSize        = 1e-4
	DefaultInitialError           = 1e-4
	DefaultSuddenReversalsForSink = 3
)

// Config holds the tuning parameters shared by all RKF steppers. A Config is
// validated once at factory construction and treated as immutable afterwards.
type Config struct {
	// DenseStepSize is the arc-length spacing of dense output positions.
	DenseStepSize float64
	// MaxStepAttempts bounds the number of trial steps per call.
	MaxStepAttempts int
	// AbsoluteTolerance is the absolute error tolerance.
	AbsoluteTolerance float64
	// RelativeTolerance is the relative error tolerance, scaled by the
	// domain extent along each axis.
	RelativeTolerance float64
	// SafetyFactor damps step-size growth to reduce oscillation.
	SafetyFactor float64
	// MinStepScale is the smallest allowed step-size scaling in one update.
	MinStepScale float64
	// MaxStepScale is the largest allowed step-size scaling in one update.
	MaxStepScale float64
	// InitialStepSize is the step size attempted after placement.
	InitialStepSize float64
	// InitialError seeds the error history used by PI control.
	InitialError float64
	// SuddenReversalsForSink is the number of consecutive direction
	// reversals before the region is considered a sink.
	SuddenReversalsForSink int
	// UsePIControl enables proportional-integral step-size control.
	UsePIControl bool
}

// DefaultConfig returns the standard stepper configuration.
func DefaultConfig() Config {
	return Config{
		DenseStepSize:          DefaultDenseStepSize,
		MaxStepAttempts:        DefaultMaxStepAttempts,
		AbsoluteTolerance:      DefaultAbsoluteTolerance,
		RelativeTolerance:      DefaultRelativeTolerance,
		SafetyFactor:           DefaultSafetyFactor,
		MinStepScale:           DefaultMinStepScale,
		MaxStepScale:           DefaultMaxStepScale,
		InitialStepSize:        DefaultInitialStepSize,
		InitialError:           DefaultInitialError,
		SuddenReversalsForSink: DefaultSuddenReversalsForSink,
		UsePIControl:           true,
	}
}

// Validate checks every invariant of the configuration. It is called before
// any tracing begins; an invalid configuration never reaches a stepper.
func (c Config) Validate() error {
	if c.DenseStepSize <= 0 {
		return fmt.Errorf("dense step size must be larger than zero, got %g", c.DenseStepSize)
	}
	if c.MaxStepAttempts <= 0 {
		return fmt.Errorf("maximum number of step attempts must be larger than zero, got %d", c.MaxStepAttempts)
	}
	if c.AbsoluteTolerance <= 0 {
		return fmt.Errorf("absolute error tolerance must be larger than zero, got %g", c.AbsoluteTolerance)
	}
	if c.RelativeTolerance < 0 {
		return fmt.Errorf("relative error tolerance must be larger than or equal to zero, got %g", c.RelativeTolerance)
	}
	if c.SafetyFactor <= 0 || c.SafetyFactor > 1 {
		return fmt.Errorf("safety factor must be in the range (0, 1], got %g", c.SafetyFactor)
	}
	if c.MinStepScale <= 0 {
		return fmt.Errorf("minimum step scale must be larger than zero, got %g", c.MinStepScale)
	}
	if c.MaxStepScale < c.MinStepScale {
		return fmt.Errorf("maximum step scale must be larger than or equal to the minimum step scale, got %g < %g", c.MaxStepScale, c.MinStepScale)
	}
	if c.InitialStepSize <= 0 {
		return fmt.Errorf("initial step size must be larger than zero, got %g", c.InitialStepSize)
	}
	if c.InitialError <= 0 || c.InitialError > 1 {
		return fmt.Errorf("initial error must be in the range (0, 1], got %g", c.InitialError)
	}
	if c.SuddenReversalsForSink < 1 {
		return fmt.Errorf("number of sudden reversals for sink must be larger than zero, got %d", c.SuddenReversalsForSink)
	}
	return nil
}

// piControl holds the step-size control exponents derived from the scheme
// order.
type piControl struct {
	kI float64
	kP float64
}

func piActivated(order int) piControl {
	kI := 0.4 / float64(order)
	return piControl{kI: kI, kP: 1/float64(order) - 0.75*kI}
}

func piDeactivated(order int) piControl {
	return piControl{kI: 0, kP: 1 / float64(order)}
}
