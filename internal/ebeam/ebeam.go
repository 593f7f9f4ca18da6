// Package ebeam propagates electron beam distributions along traced field
// lines and records where they deposit their power.
package ebeam

import (
	"fmt"
	"math"

	"github.com/san-kum/fieldtrace/internal/fltrace/stepping"
	"github.com/san-kum/fieldtrace/internal/geometry"
)

// DepletionStatus reports whether a distribution still carries power.
type DepletionStatus int

const (
	Undepleted DepletionStatus = iota
	Depleted
)

func (s DepletionStatus) String() string {
	if s == Depleted {
		return "depleted"
	}
	return "undepleted"
}

// PropagationResult summarizes one beam after propagation.
type PropagationResult struct {
	// DepositedPower is the total power the beam shed along its path.
	DepositedPower float64
	// DepositionPosition is the power-weighted mean deposition position.
	DepositionPosition geometry.Point3
	// Status reports whether the beam ran out of power before its trace
	// ended.
	Status DepletionStatus
}

// Distribution models a non-thermal electron distribution accelerated at a
// site and propagated along the field. Implementations track their own
// position history between Deposit calls; a distribution must not be reused
// across beams.
type Distribution interface {
	// AccelerationPosition is where the beam starts.
	AccelerationPosition() geometry.Point3
	// PropagationSense selects tracing with or against the field.
	PropagationSense() stepping.Sense
	// MaxPropagationDistance bounds the beam's arc length.
	MaxPropagationDistance() float64
	// Deposit consumes the next traced position, returning the power shed
	// over the path segment leading to it and the beam's status after.
	Deposit(position geometry.Point3) (power float64, status DepletionStatus)
	// Result summarizes the propagation so far.
	Result() PropagationResult
}

// PowerLawConfig parameterizes power law distributions.
type PowerLawConfig struct {
	// InitialPower is the total beam power at the acceleration site.
	InitialPower float64
	// AttenuationLength is the e-folding arc length of the remaining power.
	AttenuationLength float64
	// DepletionThreshold is the remaining-power fraction below which the
	// beam counts as depleted.
	DepletionThreshold float64
	// MaxDistance bounds propagation arc length.
	MaxDistance float64
	// Sense selects propagation with or against the field.
	Sense stepping.Sense
}

// DefaultPowerLawConfig returns the standard power law parameters.
func DefaultPowerLawConfig() PowerLawConfig {
	return PowerLawConfig{
		InitialPower:       1.0,
		AttenuationLength:  0.1,
		DepletionThreshold: 1e-3,
		MaxDistance:        100.0,
		Sense:              stepping.SenseSame,
	}
}

// Validate fails on parameters the propagation cannot work with.
func (c PowerLawConfig) Validate() error {
	if c.InitialPower <= 0 {
		return fmt.Errorf("initial beam power must be positive, got %g", c.InitialPower)
	}
	if c.AttenuationLength <= 0 {
		return fmt.Errorf("attenuation length must be positive, got %g", c.AttenuationLength)
	}
	if c.DepletionThreshold <= 0 || c.DepletionThreshold >= 1 {
		return fmt.Errorf("depletion threshold must be in (0, 1), got %g", c.DepletionThreshold)
	}
	if c.MaxDistance <= 0 {
		return fmt.Errorf("max propagation distance must be positive, got %g", c.MaxDistance)
	}
	return nil
}

// PowerLawDistribution attenuates its remaining power exponentially with
// travelled arc length, measured from the positions it is fed.
type PowerLawDistribution struct {
	config PowerLawConfig

	accelerationPosition geometry.Point3
	previousPosition     geometry.Point3
	started              bool

	remainingPower float64
	distance       float64

	depositedPower   float64
	weightedPosition geometry.Vec3
	status           DepletionStatus
}

// NewPowerLawDistribution builds a beam accelerated at the given position.
func NewPowerLawDistribution(config PowerLawConfig, accelerationPosition geometry.Point3) (*PowerLawDistribution, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid power law distribution: %w", err)
	}
	return &PowerLawDistribution{
		config:               config,
		accelerationPosition: accelerationPosition,
		remainingPower:       config.InitialPower,
	}, nil
}

func (d *PowerLawDistribution) AccelerationPosition() geometry.Point3 {
	return d.accelerationPosition
}

func (d *PowerLawDistribution) PropagationSense() stepping.Sense { return d.config.Sense }

func (d *PowerLawDistribution) MaxPropagationDistance() float64 { return d.config.MaxDistance }

// Deposit advances the beam to the next traced position. The first call
// establishes the path origin and deposits nothing.
func (d *PowerLawDistribution) Deposit(position geometry.Point3) (float64, DepletionStatus) {
	if !d.started {
		d.started = true
		d.previousPosition = position
		return 0, d.status
	}
	if d.status == Depleted {
		return 0, d.status
	}

	pathLength := geometry.Displacement(d.previousPosition, position).Len()
	d.previousPosition = position
	d.distance += pathLength

	remaining := d.remainingPower * math.Exp(-pathLength/d.config.AttenuationLength)
	power := d.remainingPower - remaining
	d.remainingPower = remaining

	d.depositedPower += power
	d.weightedPosition = d.weightedPosition.Add(position.Mul(power))

	if d.remainingPower < d.config.DepletionThreshold*d.config.InitialPower ||
		d.distance >= d.config.MaxDistance {
		d.status = Depleted
	}
	return power, d.status
}

// Result summarizes the beam's deposition so far.
func (d *PowerLawDistribution) Result() PropagationResult {
	result := PropagationResult{
		DepositedPower: d.depositedPower,
		Status:         d.status,
	}
	if d.depositedPower > 0 {
		result.DepositionPosition = d.weightedPosition.Mul(1 / d.depositedPower)
	} else {
		result.DepositionPosition = d.previousPosition
	}
	return result
}

// RemainingPower reports the power the beam still carries.
func (d *PowerLawDistribution) RemainingPower() float64 { return d.remainingPower }
