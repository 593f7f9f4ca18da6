// Package config defines the yaml configuration for field line tracing runs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fieldtrace/internal/ebeam"
	"github.com/san-kum/fieldtrace/internal/fltrace"
	"github.com/san-kum/fieldtrace/internal/fltrace/stepping"
	"github.com/san-kum/fieldtrace/internal/geometry"
	"github.com/san-kum/fieldtrace/internal/grid"
	"github.com/san-kum/fieldtrace/internal/seeding"
)

const (
	DefaultGridSize   = 32
	DefaultSeedCount  = 4
	DefaultBeamPower  = 1.0
	DefaultBeamLength = 0.1
)

type Config struct {
	Field   FieldConfig   `yaml:"field"`
	Stepper StepperConfig `yaml:"stepper"`
	Tracing TracingConfig `yaml:"tracing"`
	Seeding SeedingConfig `yaml:"seeding"`
	Beam    BeamConfig    `yaml:"beam"`
	Output  OutputConfig  `yaml:"output"`
}

type FieldConfig struct {
	Model       string     `yaml:"model"`
	GridShape   [3]int     `yaml:"grid_shape"`
	LowerBounds [3]float64 `yaml:"lower_bounds"`
	UpperBounds [3]float64 `yaml:"upper_bounds"`
	Periodic    [3]bool    `yaml:"periodic"`
}

type StepperConfig struct {
	Scheme                 string  `yaml:"scheme"`
	DenseStepSize          float64 `yaml:"dense_step_size"`
	MaxStepAttempts        int     `yaml:"max_step_attempts"`
	AbsoluteTolerance      float64 `yaml:"absolute_tolerance"`
	RelativeTolerance      float64 `yaml:"relative_tolerance"`
	SafetyFactor           float64 `yaml:"safety_factor"`
	MinStepScale           float64 `yaml:"min_step_scale"`
	MaxStepScale           float64 `yaml:"max_step_scale"`
	InitialStepSize        float64 `yaml:"initial_step_size"`
	InitialError           float64 `yaml:"initial_error"`
	SuddenReversalsForSink int     `yaml:"sudden_reversals_for_sink"`
	UsePIControl           bool    `yaml:"use_pi_control"`
}

type TracingConfig struct {
	Sense            string `yaml:"sense"`
	Workers          int    `yaml:"workers"`
	MaxPointsPerLine int    `yaml:"max_points_per_line"`
}

type SeedingConfig struct {
	Kind       string       `yaml:"kind"`
	Shape      [3]int       `yaml:"shape"`
	SliceAxis  string       `yaml:"slice_axis"`
	SliceCoord float64      `yaml:"slice_coord"`
	Positions  [][3]float64 `yaml:"positions"`
}

type BeamConfig struct {
	SiteThreshold      float64 `yaml:"site_threshold"`
	InitialPower       float64 `yaml:"initial_power"`
	AttenuationLength  float64 `yaml:"attenuation_length"`
	DepletionThreshold float64 `yaml:"depletion_threshold"`
	MaxDistance        float64 `yaml:"max_distance"`
	Sense              string  `yaml:"sense"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

func DefaultConfig() *Config {
	sc := stepping.DefaultConfig()
	bc := ebeam.DefaultPowerLawConfig()
	return &Config{
		Field: FieldConfig{
			Model:       "dipole",
			GridShape:   [3]int{DefaultGridSize, DefaultGridSize, DefaultGridSize},
			LowerBounds: [3]float64{-1, -1, -1},
			UpperBounds: [3]float64{1, 1, 1},
		},
		Stepper: StepperConfig{
			Scheme:                 "rkf45",
			DenseStepSize:          sc.DenseStepSize,
			MaxStepAttempts:        sc.MaxStepAttempts,
			AbsoluteTolerance:      sc.AbsoluteTolerance,
			RelativeTolerance:      sc.RelativeTolerance,
			SafetyFactor:           sc.SafetyFactor,
			MinStepScale:           sc.MinStepScale,
			MaxStepScale:           sc.MaxStepScale,
			InitialStepSize:        sc.InitialStepSize,
			InitialError:           sc.InitialError,
			SuddenReversalsForSink: sc.SuddenReversalsForSink,
			UsePIControl:           sc.UsePIControl,
		},
		Tracing: TracingConfig{
			Sense:   "same",
			Workers: 0,
		},
		Seeding: SeedingConfig{
			Kind:  "volume",
			Shape: [3]int{DefaultSeedCount, DefaultSeedCount, DefaultSeedCount},
		},
		Beam: BeamConfig{
			SiteThreshold:      0.5,
			InitialPower:       DefaultBeamPower,
			AttenuationLength:  DefaultBeamLength,
			DepletionThreshold: bc.DepletionThreshold,
			MaxDistance:        bc.MaxDistance,
			Sense:              "same",
		},
		Output: OutputConfig{Dir: "runs"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the whole configuration eagerly, so a bad file is
// rejected before any tracing starts.
func (c *Config) Validate() error {
	g, err := c.Grid()
	if err != nil {
		return err
	}
	if _, err := stepping.NewFactory(c.Stepper.Scheme, c.StepperConfig()); err != nil {
		return err
	}
	if _, err := parseSense(c.Tracing.Sense); err != nil {
		return err
	}
	if _, err := parseSense(c.Beam.Sense); err != nil {
		return err
	}
	if err := c.BeamConfig().Validate(); err != nil {
		return err
	}
	if _, err := c.Seeder(g); err != nil {
		return err
	}
	return nil
}

// Grid builds the field grid the configuration describes.
func (c *Config) Grid() (grid.Regular3, error) {
	return grid.NewRegular3(
		c.Field.GridShape,
		geometry.Point3(c.Field.LowerBounds),
		geometry.Point3(c.Field.UpperBounds),
		c.Field.Periodic,
	)
}

// StepperConfig converts the stepper section into the stepping package's
// configuration.
func (c *Config) StepperConfig() stepping.Config {
	return stepping.Config{
		DenseStepSize:          c.Stepper.DenseStepSize,
		MaxStepAttempts:        c.Stepper.MaxStepAttempts,
		AbsoluteTolerance:      c.Stepper.AbsoluteTolerance,
		RelativeTolerance:      c.Stepper.RelativeTolerance,
		SafetyFactor:           c.Stepper.SafetyFactor,
		MinStepScale:           c.Stepper.MinStepScale,
		MaxStepScale:           c.Stepper.MaxStepScale,
		InitialStepSize:        c.Stepper.InitialStepSize,
		InitialError:           c.Stepper.InitialError,
		SuddenReversalsForSink: c.Stepper.SuddenReversalsForSink,
		UsePIControl:           c.Stepper.UsePIControl,
	}
}

// Factory builds the stepper factory for the configured scheme.
func (c *Config) Factory() (*stepping.RKFFactory, error) {
	return stepping.NewFactory(c.Stepper.Scheme, c.StepperConfig())
}

// SetConfig converts the tracing section for set tracing.
func (c *Config) SetConfig() (fltrace.SetConfig, error) {
	sense, err := parseSense(c.Tracing.Sense)
	if err != nil {
		return fltrace.SetConfig{}, err
	}
	return fltrace.SetConfig{
		Sense:            sense,
		Workers:          c.Tracing.Workers,
		MaxPointsPerLine: c.Tracing.MaxPointsPerLine,
	}, nil
}

// BeamConfig converts the beam section into the distribution parameters.
// An unknown sense falls back to tracing with the field; Validate reports
// it separately.
func (c *Config) BeamConfig() ebeam.PowerLawConfig {
	sense, err := parseSense(c.Beam.Sense)
	if err != nil {
		sense = stepping.SenseSame
	}
	return ebeam.PowerLawConfig{
		InitialPower:       c.Beam.InitialPower,
		AttenuationLength:  c.Beam.AttenuationLength,
		DepletionThreshold: c.Beam.DepletionThreshold,
		MaxDistance:        c.Beam.MaxDistance,
		Sense:              sense,
	}
}

// Seeder builds the configured seeder over the given grid's domain.
func (c *Config) Seeder(g grid.Regular3) (seeding.Seeder, error) {
	switch c.Seeding.Kind {
	case "volume":
		return seeding.NewRegularVolume(c.Seeding.Shape, g.LowerBounds(), g.UpperBounds())
	case "slice":
		axis, err := seeding.AxisIndex(c.Seeding.SliceAxis)
		if err != nil {
			return nil, err
		}
		shape := [2]int{c.Seeding.Shape[0], c.Seeding.Shape[1]}
		return seeding.NewRegularSlice(axis, c.Seeding.SliceCoord, shape, g.LowerBounds(), g.UpperBounds())
	case "manual":
		positions := make([]geometry.Point3, len(c.Seeding.Positions))
		for i, p := range c.Seeding.Positions {
			positions[i] = geometry.Point3(p)
		}
		return seeding.NewManual(positions)
	default:
		return nil, fmt.Errorf("unknown seeding kind %q (expected volume, slice or manual)", c.Seeding.Kind)
	}
}

func parseSense(name string) (stepping.Sense, error) {
	switch name {
	case "same", "":
		return stepping.SenseSame, nil
	case "opposite":
		return stepping.SenseOpposite, nil
	default:
		return stepping.SenseSame, fmt.Errorf("unknown tracing sense %q (expected same or opposite)", name)
	}
}
