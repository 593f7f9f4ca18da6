package ebeam

import (
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"github.com/san-kum/fieldtrace/internal/fltrace"
	"github.com/san-kum/fieldtrace/internal/fltrace/stepping"
	"github.com/san-kum/fieldtrace/internal/geometry"
)

// Beam is one propagated electron beam: its trajectory, the power deposited
// at each trajectory point and the propagation summary.
type Beam struct {
	Positions []geometry.Point3
	// Powers holds the power shed over the segment ending at each position.
	Powers []float64
	Result PropagationResult
	Cause  stepping.StoppingCause
}

// NumPoints returns the number of trajectory points.
func (b *Beam) NumPoints() int { return len(b.Positions) }

// SwarmConfig controls beam swarm propagation.
type SwarmConfig struct {
	// Distribution parameterizes every beam in the swarm.
	Distribution PowerLawConfig
	// Workers bounds concurrent beam propagations; zero or below means one
	// per CPU.
	Workers int
}

// Swarm is a collection of propagated electron beams.
type Swarm struct {
	Beams   []*Beam
	NumVoid int
}

// NumBeams returns the number of propagated (non-void) beams.
func (s *Swarm) NumBeams() int { return len(s.Beams) }

// TotalDepositedPower sums the deposited power over all beams.
func (s *Swarm) TotalDepositedPower() float64 {
	total := 0.0
	for _, b := range s.Beams {
		total += b.Result.DepositedPower
	}
	return total
}

// PropagateSwarm accelerates one beam per site and propagates each along the
// field, one stepper per beam, up to cfg.Workers at a time. Beams whose
// acceleration site produced no trace are dropped and counted as void. Site
// order is preserved.
func PropagateSwarm(log zerolog.Logger, sampler stepping.Sampler, factory stepping.Factory, sites []geometry.Point3, cfg SwarmConfig) (*Swarm, error) {
	if err := cfg.Distribution.Validate(); err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	beams := make([]*Beam, len(sites))

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i, site := range sites {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, site geometry.Point3) {
			defer wg.Done()
			defer func() { <-sem }()

			dist, err := NewPowerLawDistribution(cfg.Distribution, site)
			if err != nil {
				// Config was validated above, so this cannot happen.
				return
			}

			beam := &Beam{}
			maxDist := dist.MaxPropagationDistance()
			arcLength := 0.0
			callback := func(p geometry.Point3) stepping.Instruction {
				power, status := dist.Deposit(p)
				if n := len(beam.Positions); n > 0 {
					arcLength += geometry.Displacement(beam.Positions[n-1], p).Len()
				}
				beam.Positions = append(beam.Positions, p)
				beam.Powers = append(beam.Powers, power)
				if status == Depleted || arcLength >= maxDist {
					return stepping.Terminate
				}
				return stepping.Continue
			}

			cause, ok := fltrace.Trace(factory.Produce(), sampler, dist.PropagationSense(), dist.AccelerationPosition(), callback)
			if !ok {
				log.Debug().
					Int("site", idx).
					Stringer("cause", cause).
					Msg("void electron beam")
				return
			}

			beam.Cause = cause
			beam.Result = dist.Result()
			beams[idx] = beam

			log.Debug().
				Int("site", idx).
				Stringer("cause", cause).
				Int("points", beam.NumPoints()).
				Float64("deposited_power", beam.Result.DepositedPower).
				Msg("propagated electron beam")
		}(i, site)
	}
	wg.Wait()

	swarm := &Swarm{}
	for _, b := range beams {
		if b == nil {
			swarm.NumVoid++
			continue
		}
		swarm.Beams = append(swarm.Beams, b)
	}

	log.Info().
		Int("sites", len(sites)).
		Int("beams", swarm.NumBeams()).
		Int("void", swarm.NumVoid).
		Float64("total_deposited_power", swarm.TotalDepositedPower()).
		Msg("propagated electron beam swarm")

	return swarm, nil
}
