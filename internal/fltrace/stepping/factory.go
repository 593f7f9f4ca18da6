package stepping

import "fmt"

// SchemeNames lists the available embedded schemes.
func SchemeNames() []string {
	return []string{rkf23Scheme.name, rkf45Scheme.name}
}

// RKFFactory produces steppers for one embedded scheme and a validated
// configuration.
type RKFFactory struct {
	config Config
	scheme *scheme
}

// NewRKF23Factory builds a factory for the order-2/3 scheme. The
// configuration is validated eagerly.
func NewRKF23Factory(config Config) (*RKFFactory, error) {
	return newFactory(config, &rkf23Scheme)
}

// NewRKF45Factory builds a factory for the order-4/5 scheme. The
// configuration is validated eagerly.
func NewRKF45Factory(config Config) (*RKFFactory, error) {
	return newFactory(config, &rkf45Scheme)
}

// NewFactory builds a factory for the named scheme.
func NewFactory(schemeName string, config Config) (*RKFFactory, error) {
	switch schemeName {
	case rkf23Scheme.name:
		return NewRKF23Factory(config)
	case rkf45Scheme.name:
		return NewRKF45Factory(config)
	default:
		return nil, fmt.Errorf("unknown stepping scheme %q (available: %v)", schemeName, SchemeNames())
	}
}

func newFactory(config Config, sch *scheme) (*RKFFactory, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stepper configuration: %w", err)
	}
	return &RKFFactory{config: config, scheme: sch}, nil
}

// SchemeName returns the name of the scheme the factory produces steppers
// for.
func (f *RKFFactory) SchemeName() string { return f.scheme.name }

// Produce returns a fresh stepper. Each concurrent trace must use its own.
func (f *RKFFactory) Produce() Stepper {
	return newRKFStepper(f.config, f.scheme)
}
