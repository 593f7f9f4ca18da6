package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/fieldtrace/internal/config"
	"github.com/san-kum/fieldtrace/internal/ebeam"
	"github.com/san-kum/fieldtrace/internal/field"
	"github.com/san-kum/fieldtrace/internal/fltrace"
	"github.com/san-kum/fieldtrace/internal/store"
	"github.com/san-kum/fieldtrace/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	verbose    bool

	modelName string
	scheme    string
	senseName string
	workers   int
	maxPoints int

	live       bool
	dbPath     string
	exportPath string

	siteThreshold float64
	beamPower     float64
	attenuation   float64

	log zerolog.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fieldtrace",
		Short: "adaptive field line tracing toolkit",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Logger()
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "runs", "run data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "preset name for the chosen model")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	traceCmd := &cobra.Command{
		Use:   "trace",
		Short: "trace a set of field lines",
		RunE:  runTrace,
	}
	traceCmd.Flags().StringVar(&modelName, "model", "", "field model (uniform, dipole, abcflow)")
	traceCmd.Flags().StringVar(&scheme, "scheme", "", "stepping scheme (rkf23, rkf45)")
	traceCmd.Flags().StringVar(&senseName, "sense", "", "tracing sense (same, opposite)")
	traceCmd.Flags().IntVar(&workers, "workers", 0, "concurrent traces (0 = one per cpu)")
	traceCmd.Flags().IntVar(&maxPoints, "max-points", 0, "point cap per line (0 = unlimited)")
	traceCmd.Flags().BoolVar(&live, "live", false, "show live tracing progress")
	traceCmd.Flags().StringVar(&dbPath, "db", "", "also record the set into a sqlite database")
	traceCmd.Flags().StringVar(&exportPath, "export", "", "also export the set as json (- for stdout)")

	beamCmd := &cobra.Command{
		Use:   "beam",
		Short: "propagate electron beams from detected acceleration sites",
		RunE:  runBeam,
	}
	beamCmd.Flags().StringVar(&modelName, "model", "", "field model (uniform, dipole, abcflow)")
	beamCmd.Flags().StringVar(&scheme, "scheme", "", "stepping scheme (rkf23, rkf45)")
	beamCmd.Flags().IntVar(&workers, "workers", 0, "concurrent beams (0 = one per cpu)")
	beamCmd.Flags().Float64Var(&siteThreshold, "threshold", 0, "site detection threshold (0 = from config)")
	beamCmd.Flags().Float64Var(&beamPower, "power", 0, "initial beam power (0 = from config)")
	beamCmd.Flags().Float64Var(&attenuation, "attenuation", 0, "attenuation length (0 = from config)")

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "print statistics of the configured field",
		RunE:  runInspect,
	}
	inspectCmd.Flags().StringVar(&modelName, "model", "", "field model (uniform, dipole, abcflow)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  runList,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot line lengths of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlot,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "configuration helpers",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the default configuration",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigInit,
	}
	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list presets for a field model",
		Args:  cobra.ExactArgs(1),
		RunE:  runPresets,
	}
	configCmd.AddCommand(configInitCmd, presetsCmd)

	rootCmd.AddCommand(traceCmd, beamCmd, inspectCmd, listCmd, plotCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildConfig assembles the effective configuration from file, preset and
// flag overrides, then validates it once.
func buildConfig() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	case preset != "":
		model := modelName
		if model == "" {
			model = config.DefaultConfig().Field.Model
		}
		cfg = config.GetPreset(model, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset %s/%s (try: fieldtrace config presets %s)", model, preset, model)
		}
	default:
		cfg = config.DefaultConfig()
	}

	if modelName != "" {
		cfg.Field.Model = modelName
	}
	if scheme != "" {
		cfg.Stepper.Scheme = scheme
	}
	if senseName != "" {
		cfg.Tracing.Sense = senseName
	}
	if workers != 0 {
		cfg.Tracing.Workers = workers
	}
	if maxPoints != 0 {
		cfg.Tracing.MaxPointsPerLine = maxPoints
	}
	if siteThreshold != 0 {
		cfg.Beam.SiteThreshold = siteThreshold
	}
	if beamPower != 0 {
		cfg.Beam.InitialPower = beamPower
	}
	if attenuation != 0 {
		cfg.Beam.AttenuationLength = attenuation
	}
	if dataDir != "" {
		cfg.Output.Dir = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildField evaluates the configured analytic model onto the configured
// grid.
func buildField(cfg *config.Config) (*field.Vector3, error) {
	g, err := cfg.Grid()
	if err != nil {
		return nil, err
	}
	model, err := field.NewModel(cfg.Field.Model, g)
	if err != nil {
		return nil, err
	}
	return field.Evaluate(cfg.Field.Model, model, g), nil
}

func runTrace(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	vf, err := buildField(cfg)
	if err != nil {
		return err
	}
	sampler := field.NewSampler(vf)

	factory, err := cfg.Factory()
	if err != nil {
		return err
	}
	seeder, err := cfg.Seeder(vf.Grid())
	if err != nil {
		return err
	}
	setCfg, err := cfg.SetConfig()
	if err != nil {
		return err
	}
	seeds := seeder.Positions()

	var set *fltrace.FieldLineSet
	if live {
		progress := make(chan fltrace.Progress, len(seeds))
		done := make(chan struct{})
		go func() {
			defer close(done)
			set = fltrace.TraceSet(log, sampler, factory, seeds, setCfg, progress)
		}()
		if err := viz.RunLive(progress); err != nil {
			return err
		}
		<-done
	} else {
		set = fltrace.TraceSet(log, sampler, factory, seeds, setCfg, nil)
	}

	magnitudes := vf.Magnitudes()
	for _, line := range set.Lines {
		line.ExtractScalars(magnitudes)
	}

	s := store.New(cfg.Output.Dir)
	if err := s.Init(); err != nil {
		return err
	}
	runID, err := s.Save(cfg.Field.Model, factory.SchemeName(), len(seeds), set)
	if err != nil {
		return err
	}
	log.Info().Str("run", runID).Msg("saved run")

	switch exportPath {
	case "":
	case "-":
		if err := store.ExportJSONStdout(cfg.Field.Model, factory.SchemeName(), set); err != nil {
			return err
		}
	default:
		if err := store.ExportJSON(exportPath, cfg.Field.Model, factory.SchemeName(), set); err != nil {
			return err
		}
		log.Info().Str("path", exportPath).Msg("exported json")
	}
	if dbPath != "" {
		db, err := store.OpenDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.RecordSet(runID, cfg.Field.Model, factory.SchemeName(), set); err != nil {
			return err
		}
		log.Info().Str("path", dbPath).Msg("recorded set in database")
	}

	fmt.Println(viz.Summary(cfg.Field.Model, factory.SchemeName(), len(seeds), set))
	return nil
}

func runBeam(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	vf, err := buildField(cfg)
	if err != nil {
		return err
	}
	sampler := field.NewSampler(vf)

	factory, err := cfg.Factory()
	if err != nil {
		return err
	}

	detector := ebeam.SiteDetector{Threshold: cfg.Beam.SiteThreshold}
	sites, err := detector.DetectSites(vf.Magnitudes())
	if err != nil {
		return err
	}
	log.Info().Int("sites", len(sites)).Float64("threshold", cfg.Beam.SiteThreshold).Msg("detected acceleration sites")
	if len(sites) == 0 {
		return fmt.Errorf("no acceleration sites above threshold %g", cfg.Beam.SiteThreshold)
	}

	swarm, err := ebeam.PropagateSwarm(log, sampler, factory, sites, ebeam.SwarmConfig{
		Distribution: cfg.BeamConfig(),
		Workers:      cfg.Tracing.Workers,
	})
	if err != nil {
		return err
	}

	fmt.Printf("beams: %d (void: %d), total deposited power: %.4f\n",
		swarm.NumBeams(), swarm.NumVoid, swarm.TotalDepositedPower())
	if swarm.NumBeams() > 0 {
		fmt.Println(viz.ProfilePlot(swarm.Beams[0].Powers, "deposited power along first beam"))
	}
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	vf, err := buildField(cfg)
	if err != nil {
		return err
	}

	stats := vf.MagnitudeStatistics()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "model\t%s\n", cfg.Field.Model)
	fmt.Fprintf(w, "grid\t%v\n", vf.Grid().Shape())
	fmt.Fprintf(w, "values\t%d\n", stats.Num)
	fmt.Fprintf(w, "|B| min\t%.6g\n", stats.Min)
	fmt.Fprintf(w, "|B| max\t%.6g\n", stats.Max)
	fmt.Fprintf(w, "|B| mean\t%.6g\n", stats.Mean)
	return w.Flush()
}

func runList(cmd *cobra.Command, args []string) error {
	s := store.New(dataDir)
	runs, err := s.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "run\tmodel\tscheme\tlines\tvoid\tpoints")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			run.ID, run.Model, run.Scheme, run.NumLines, run.NumVoid, run.NumPoints)
	}
	return w.Flush()
}

func runPlot(cmd *cobra.Command, args []string) error {
	s := store.New(dataDir)
	lines, err := s.LoadLines(args[0])
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("run %s has no lines", args[0])
	}

	counts := make([]float64, len(lines))
	for i, line := range lines {
		counts[i] = float64(len(line))
	}
	fmt.Println(viz.ProfilePlot(counts, fmt.Sprintf("points per line (%s)", args[0])))
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.Save(args[0], config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Printf("wrote default config to %s\n", args[0])
	return nil
}

func runPresets(cmd *cobra.Command, args []string) error {
	names := config.ListPresets(args[0])
	if names == nil {
		return fmt.Errorf("no presets for model %q", args[0])
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
