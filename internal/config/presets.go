package config

func preset(mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	mutate(cfg)
	return cfg
}

// Presets are ready-made configurations keyed by field model and variant.
var Presets = map[string]map[string]*Config{
	"dipole": {
		"demo": preset(func(c *Config) {
			c.Field.Model = "dipole"
		}),
		"fine": preset(func(c *Config) {
			c.Field.Model = "dipole"
			c.Field.GridShape = [3]int{64, 64, 64}
			c.Stepper.AbsoluteTolerance = 1e-8
			c.Stepper.RelativeTolerance = 1e-8
			c.Stepper.DenseStepSize = 2e-3
			c.Seeding.Shape = [3]int{6, 6, 6}
		}),
		"equator": preset(func(c *Config) {
			c.Field.Model = "dipole"
			c.Seeding.Kind = "slice"
			c.Seeding.SliceAxis = "z"
			c.Seeding.SliceCoord = 0
			c.Seeding.Shape = [3]int{8, 8, 0}
		}),
	},
	"abcflow": {
		"chaotic": preset(func(c *Config) {
			c.Field.Model = "abcflow"
			c.Field.LowerBounds = [3]float64{0, 0, 0}
			c.Field.UpperBounds = [3]float64{6.283185307179586, 6.283185307179586, 6.283185307179586}
			c.Field.Periodic = [3]bool{true, true, true}
			c.Tracing.MaxPointsPerLine = 5000
		}),
		"coarse": preset(func(c *Config) {
			c.Field.Model = "abcflow"
			c.Field.LowerBounds = [3]float64{0, 0, 0}
			c.Field.UpperBounds = [3]float64{6.283185307179586, 6.283185307179586, 6.283185307179586}
			c.Field.Periodic = [3]bool{true, true, true}
			c.Field.GridShape = [3]int{16, 16, 16}
			c.Tracing.MaxPointsPerLine = 1000
			c.Stepper.DenseStepSize = 5e-2
		}),
	},
	"uniform": {
		"smoke": preset(func(c *Config) {
			c.Field.Model = "uniform"
			c.Field.GridShape = [3]int{8, 8, 8}
			c.Seeding.Shape = [3]int{2, 2, 2}
		}),
	},
}

// GetPreset returns a copy of the named preset, so callers may override
// fields without altering the shared table.
func GetPreset(model, name string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[name]
	if !ok {
		return nil
	}
	copied := *cfg
	copied.Seeding.Positions = append([][3]float64(nil), cfg.Seeding.Positions...)
	return &copied
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	return names
}
