package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/octgrav/internal/config"
	"github.com/san-kum/octgrav/internal/dynamo"
	"github.com/san-kum/octgrav/internal/experiment"
	"github.com/san-kum/octgrav/internal/physics"
	"github.com/san-kum/octgrav/internal/viz"
)

var (
	logLevel   string
	configFile string
	preset     string

	bodies      int
	seed        uint64
	integrator  string
	dt          float64
	steps       int
	sampleEvery int
	workers     int
	theta       float64
	gravity     float64
	worldSize   float64
	maxDepth    int
	maxForce    float64
	softening   float64
	runs        int

	thetas   []float64
	maxError float64
	counts   []int
	reps     int
	force    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "octgrav",
		Short:        "barnes-hut octree gravity engine",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a headless simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().IntVar(&runs, "runs", 1, "ensemble size; seeds are consecutive from --seed")

	accuracyCmd := &cobra.Command{
		Use:   "accuracy [scenario]",
		Short: "compare tree forces against the direct sum over a theta sweep",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAccuracy,
	}
	addConfigFlags(accuracyCmd)
	accuracyCmd.Flags().Float64SliceVar(&thetas, "thetas", []float64{1.2, 1.0, 0.8, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1, 0}, "theta values to sweep")
	accuracyCmd.Flags().Float64Var(&maxError, "max-error", 0, "also pick the fastest theta within this relative error")

	benchCmd := &cobra.Command{
		Use:   "bench [scenario]",
		Short: "time tree rebuild and force evaluation per body count",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runBench,
	}
	addConfigFlags(benchCmd)
	benchCmd.Flags().IntSliceVar(&counts, "counts", []int{1000, 5000, 20000}, "body counts")
	benchCmd.Flags().IntVar(&reps, "reps", 3, "repetitions per count")

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "run a simulation with a live dashboard",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "manage configuration files",
	}
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write the default configuration as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	configCmd.AddCommand(initCmd)

	rootCmd.AddCommand(runCmd, accuracyCmd, benchCmd, liveCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.IntVar(&bodies, "bodies", def.Bodies, "number of bodies")
	f.Uint64Var(&seed, "seed", def.Seed, "random seed")
	f.StringVar(&integrator, "integrator", def.Integrator, "integrator (euler, rk4, verlet, leapfrog)")
	f.Float64Var(&dt, "dt", def.Dt, "timestep")
	f.IntVar(&steps, "steps", def.Steps, "number of ticks")
	f.IntVar(&sampleEvery, "sample-every", def.SampleEvery, "record every n-th tick")
	f.IntVar(&workers, "workers", 0, "force workers (0 = all CPUs)")
	f.Float64Var(&theta, "theta", def.Engine.Theta, "opening angle")
	f.Float64Var(&gravity, "g", def.Engine.G, "gravitational constant")
	f.Float64Var(&worldSize, "world", def.Engine.WorldSize, "initial world cube side")
	f.IntVar(&maxDepth, "max-depth", def.Engine.MaxDepth, "octree depth cap")
	f.Float64Var(&maxForce, "max-force", 0, "per-pair force clamp (0 = off)")
	f.Float64Var(&softening, "softening", 0, "plummer softening length")
}

// resolveConfig layers defaults, then preset, then config file, then any
// flag the user set explicitly.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) > 0 {
		cfg.Scenario = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Scenario, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Scenario))
		}
		cfg = p
	}

	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 {
			cfg.Scenario = args[0]
		}
	}

	f := cmd.Flags()
	if f.Changed("bodies") {
		cfg.Bodies = bodies
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("steps") {
		cfg.Steps = steps
	}
	if f.Changed("sample-every") {
		cfg.SampleEvery = sampleEvery
	}
	if f.Changed("workers") {
		cfg.Workers = workers
	}
	if f.Changed("theta") {
		cfg.Engine.Theta = theta
	}
	if f.Changed("g") {
		cfg.Engine.G = gravity
	}
	if f.Changed("world") {
		cfg.Engine.WorldSize = worldSize
	}
	if f.Changed("max-depth") {
		cfg.Engine.MaxDepth = maxDepth
	}
	if f.Changed("max-force") {
		cfg.Engine.MaxForce = maxForce
	}
	if f.Changed("softening") {
		cfg.Engine.Softening = softening
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger() (*log.Logger, error) {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "octgrav",
	}), nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if runs > 1 {
		return runEnsemble(ctx, cfg, logger)
	}

	exp := experiment.New(cfg, logger)
	if err := exp.Setup(); err != nil {
		return err
	}

	logger.Info("running simulation",
		"scenario", cfg.Scenario,
		"bodies", len(exp.Bodies()),
		"integrator", cfg.Integrator,
		"theta", cfg.Engine.Theta)

	start := time.Now()
	result, runErr := exp.Run(ctx)
	elapsed := time.Since(start)
	if result == nil {
		return runErr
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "scenario\t%s\n", cfg.Scenario)
	fmt.Fprintf(w, "bodies\t%d\n", len(exp.Bodies()))
	fmt.Fprintf(w, "steps\t%d\n", result.StepsTaken)
	fmt.Fprintf(w, "rebuilds\t%d\n", exp.System().Rebuilds())
	fmt.Fprintf(w, "elapsed\t%v\n", elapsed.Round(time.Millisecond))
	if result.StepsTaken > 0 {
		fmt.Fprintf(w, "per tick\t%v\n", (elapsed / time.Duration(result.StepsTaken)).Round(time.Microsecond))
	}
	fmt.Fprintf(w, "energy drift\t%.3e\n", result.EnergyDrift)

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%.6g\n", name, result.Metrics[name])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(result.States) > 1 {
		energies := make([]float64, len(result.States))
		for i, x := range result.States {
			energies[i] = exp.System().Energy(x)
		}
		fmt.Println()
		fmt.Println(asciigraph.Plot(energies,
			asciigraph.Height(10),
			asciigraph.Width(60),
			asciigraph.Caption("total energy")))
	}

	var simErr *dynamo.SimulationError
	if errors.As(runErr, &simErr) {
		logger.Error("run ended early", "step", simErr.Step, "t", simErr.Time)
	}
	return runErr
}

func runEnsemble(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	logger.Info("running ensemble", "scenario", cfg.Scenario, "runs", runs, "first_seed", cfg.Seed)

	start := time.Now()
	results, err := experiment.RunEnsemble(ctx, cfg, runs, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tSTEPS\tENERGY DRIFT\tMOMENTUM DRIFT\tCONTAINMENT")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%.3e\t%.3e\t%.3f\n",
			cfg.Seed+uint64(i), r.StepsTaken, r.EnergyDrift,
			r.Metrics["momentum_drift"], r.Metrics["containment"])
	}
	fmt.Fprintf(w, "\nelapsed\t%v\n", time.Since(start).Round(time.Millisecond))
	return w.Flush()
}

func runAccuracy(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	scenario, err := experiment.NewRegistry().GetScenario(cfg.Scenario)
	if err != nil {
		return err
	}
	bodies := scenario(experiment.Params{
		Bodies: cfg.Bodies,
		Seed:   cfg.Seed,
		G:      cfg.Engine.G,
		Radius: cfg.Engine.WorldSize / 4,
	})

	start := time.Now()
	physics.DirectForces(bodies, cfg.Engine.G, cfg.Engine.Softening)
	direct := time.Since(start)

	points := experiment.AccuracySweep(bodies, cfg.EngineConfig(), thetas)

	fmt.Printf("accuracy of %s with %d bodies (direct sum: %v)\n\n", cfg.Scenario, len(bodies), direct.Round(time.Microsecond))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "THETA\tREL ERROR\tFORCE TIME\tSPEEDUP")
	errs := make([]float64, 0, len(points))
	for _, p := range points {
		speedup := 0.0
		if p.ForceTime > 0 {
			speedup = float64(direct) / float64(p.ForceTime)
		}
		fmt.Fprintf(w, "%.2f\t%.3e\t%v\t%.1fx\n", p.Theta, p.RelError, p.ForceTime.Round(time.Microsecond), speedup)
		errs = append(errs, p.RelError)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(errs) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(errs,
			asciigraph.Height(8),
			asciigraph.Caption("relative error, in sweep order")))
	}

	if maxError <= 0 {
		return nil
	}
	best, eval, err := experiment.TuneTheta(cmd.Context(), bodies, cfg.EngineConfig(), thetas, maxError)
	if err != nil {
		return err
	}
	fmt.Printf("\nfastest theta within %.2e: %.2f (error %.3e, %v)\n",
		maxError, best, eval.Error, time.Duration(eval.Cost*float64(time.Second)).Round(time.Microsecond))
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	scenario, err := experiment.NewRegistry().GetScenario(cfg.Scenario)
	if err != nil {
		return err
	}

	params := experiment.Params{
		Seed:   cfg.Seed,
		G:      cfg.Engine.G,
		Radius: cfg.Engine.WorldSize / 4,
	}

	fmt.Printf("benchmarking %s at theta %.2f\n\n", cfg.Scenario, cfg.Engine.Theta)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BODIES\tREBUILD\tFORCES\tNODES\tDEPTH\tBUCKETED\tREJECTED")

	for _, p := range experiment.Bench(scenario, params, counts, cfg.EngineConfig(), reps) {
		fmt.Fprintf(w, "%d\t%v\t%v\t%d\t%d\t%d\t%d\n",
			p.Bodies,
			p.RebuildTime.Round(time.Microsecond),
			p.ForceTime.Round(time.Microsecond),
			p.Stats.Nodes,
			p.Stats.MaxDepth,
			p.Diagnostics.Bucketed,
			p.Diagnostics.Rejected)
	}

	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	// Log output would tear the dashboard.
	exp := experiment.New(cfg, nil)
	if err := exp.Setup(); err != nil {
		return err
	}

	m := viz.NewModel(exp.GetSimulator(), exp.System(), cfg.Dt, cfg.Scenario)

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	scenarios := experiment.NewRegistry().ListScenarios()
	if len(args) > 0 {
		scenarios = args
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tPRESET\tBODIES\tINTEGRATOR\tTHETA\tSTEPS")
	found := false
	for _, s := range scenarios {
		for _, name := range config.ListPresets(s) {
			p := config.GetPreset(s, name)
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.2f\t%d\n", s, name, p.Bodies, p.Integrator, p.Engine.Theta, p.Steps)
			found = true
		}
	}
	if !found {
		fmt.Printf("no presets for: %v\n", scenarios)
		return nil
	}
	return w.Flush()
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := "octgrav.yaml"
	if len(args) > 0 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
