package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/cgsim/internal/config"
	"github.com/san-kum/cgsim/internal/contacts"
	"github.com/san-kum/cgsim/internal/engine"
	"github.com/san-kum/cgsim/internal/experiment"
	"github.com/san-kum/cgsim/internal/forcefield"
	"github.com/san-kum/cgsim/internal/logging"
	"github.com/san-kum/cgsim/internal/sim"
	"github.com/san-kum/cgsim/internal/storage"
	"github.com/san-kum/cgsim/internal/structure"
	"github.com/san-kum/cgsim/internal/viz"
)

var version = "dev"

var (
	dataDir    string
	configFile string
	system     string
	preset     string
	logLevel   string
	logFormat  string
	theme      string
	repack     bool
	// run
	steps       int64
	interval    int
	platform    string
	engineCmd   []string
	metricsAddr string
	skipPrepare bool
	live        bool
	// plot
	field      string
	plotWidth  int
	plotHeight int
	// inspect
	view bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "cgsim",
		Short:         "coarse-grained protein simulation setup",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".cgsim", "run registry directory")
	pf.StringVarP(&configFile, "config", "c", "", "config file path (yaml)")
	pf.StringVar(&system, "system", "h1_prota", "preset system")
	pf.StringVar(&preset, "preset", "production", "preset configuration, ignored with --config")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "log format (console, json)")
	pf.StringVar(&theme, "theme", "", fmt.Sprintf("color theme %v", viz.ThemeNames()))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if theme != "" && !viz.SetTheme(theme) {
			return fmt.Errorf("unknown theme: %s", theme)
		}
		return nil
	}

	prepareCmd := &cobra.Command{
		Use:   "prepare",
		Short: "parse, filter, pack and assemble the system",
		Args:  cobra.NoArgs,
		RunE:  prepareSystem,
	}
	prepareCmd.Flags().BoolVar(&repack, "repack", false, "replace a start structure from a different packing")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "prepare the system and run it on the engine",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	runCmd.Flags().Int64Var(&steps, "steps", 0, "steps to run")
	runCmd.Flags().IntVar(&interval, "interval", 0, "report interval in steps")
	runCmd.Flags().StringVar(&platform, "platform", "", "engine platform (CUDA, OpenCL, CPU, Reference)")
	runCmd.Flags().StringSliceVar(&engineCmd, "engine-cmd", nil, "engine worker command")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	runCmd.Flags().BoolVar(&skipPrepare, "skip-prepare", false, "reuse the start structure and system file on disk")
	runCmd.Flags().BoolVar(&live, "live", false, "follow the run in a live view")
	runCmd.Flags().BoolVar(&repack, "repack", false, "replace a start structure from a different packing")

	contactsCmd := &cobra.Command{
		Use:   "contacts [molecule]",
		Short: "print the filtered native contact tables",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showContacts,
	}

	inspectCmd := &cobra.Command{
		Use:   "inspect [system-file]",
		Short: "summarize an assembled system",
		Args:  cobra.MaximumNArgs(1),
		RunE:  inspectSystem,
	}
	inspectCmd.Flags().BoolVar(&view, "view", false, "open the packed start structure in a viewer")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the scalar log of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&field, "field", "potential", fmt.Sprintf("column to plot %v", viz.PlotFields()))
	plotCmd.Flags().IntVar(&plotWidth, "width", 70, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 15, "plot height")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and scalar log as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [system/preset]",
		Short: "list presets or print one as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showPresets,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("cgsim", version)
		},
	}

	rootCmd.AddCommand(prepareCmd, runCmd, contactsCmd, inspectCmd, listCmd, plotCmd, exportCmd, presetsCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration from --config or the preset and
// returns it with the directory relative paths are resolved against.
func loadConfig() (*config.Config, string, error) {
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, filepath.Dir(configFile), nil
	}
	cfg := config.GetPreset(system, preset)
	if cfg == nil {
		return nil, "", fmt.Errorf("unknown preset: %s/%s (available: %v)", system, preset, config.ListPresets(system))
	}
	return cfg, ".", nil
}

func newLogger(cfg *config.Config) (logging.Logger, error) {
	lc := logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if logLevel != "" {
		lc.Level = logLevel
	}
	if logFormat != "" {
		lc.Format = logFormat
	}
	return logging.NewLogger(lc)
}

func newPipeline() (*experiment.Pipeline, logging.Logger, error) {
	cfg, base, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return experiment.New(cfg,
		experiment.WithBaseDir(base),
		experiment.WithLogger(log),
		experiment.WithRepack(repack)), log, nil
}

func prepareSystem(cmd *cobra.Command, args []string) error {
	p, log, err := newPipeline()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	prep, err := p.Prepare(ctx)
	if err != nil {
		return err
	}
	printSummary(prep.System.Summary())
	fmt.Printf("\nstart structure: %s (cached: %v)\n", prep.StartPath, prep.CacheHit)
	fmt.Printf("system:          %s\n", prep.SystemPath)
	return nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	p, log, err := newPipeline()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg := p.Config()
	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Output.Steps = steps
	}
	if flags.Changed("interval") {
		cfg.Output.ReportInterval = interval
	}
	if flags.Changed("platform") {
		cfg.Platform = platform
	}
	if flags.Changed("engine-cmd") {
		cfg.Engine.Command = engineCmd
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := engine.ParsePlatform(cfg.Platform); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var prep *experiment.Prepared
	if skipPrepare {
		prep, err = p.LoadPrepared()
	} else {
		prep, err = p.Prepare(ctx)
	}
	if err != nil {
		return err
	}

	eng, err := experiment.NewRegistry().GetEngine(cfg.Engine, p.OutputPath(""), log)
	if err != nil {
		return err
	}

	opts := experiment.LaunchOptions{Engine: eng, Store: storage.New(dataDir)}
	var feed viz.FrameFeed
	if live {
		feed = viz.NewFrameFeed()
		opts.Reporters = append(opts.Reporters, feed)
	} else {
		opts.Reporters = append(opts.Reporters, sim.LogReporter{Logger: log.Named("frames")})
	}

	run, err := p.Launch(ctx, prep, opts)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", run.Record.ID)

	if live {
		title := fmt.Sprintf("%s  %s", cfg.Name, run.Record.ID[:8])
		if _, err := tea.NewProgram(viz.NewLive(title, run.Task, feed)).Run(); err != nil {
			run.Task.Cancel()
			run.Wait()
			return err
		}
	}
	if err := run.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Printf("cancelled at step %d\n", run.Sim.CurrentStep())
			return nil
		}
		return err
	}

	fmt.Printf("completed %d steps\n", run.Sim.CurrentStep())
	fmt.Println("\nmetrics:")
	printMetrics(run.Sim.Metrics())
	return nil
}

func showContacts(cmd *cobra.Command, args []string) error {
	p, log, err := newPipeline()
	if err != nil {
		return err
	}
	defer log.Sync()

	species, err := p.ParseMolecules(cmd.Context())
	if err != nil {
		return err
	}
	found := false
	for i, s := range species {
		mc := p.Config().Molecules[i]
		if len(args) == 1 && mc.Name != args[0] {
			continue
		}
		found = true
		natives := s.Molecule.NativePairs()
		fmt.Printf("%s: %d beads, %d of %d native pairs kept (filter: %s)\n",
			mc.Name, s.Molecule.Len(), natives.Len(), s.Parsed, contacts.Describe(mc.Native))

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  A1\tA2\tMU (nm)\tEPSILON (kJ/mol)")
		for _, r := range natives.Rows() {
			fmt.Fprintf(w, "  %d\t%d\t%.4f\t%.3f\n", r.A1, r.A2, r.Mu, r.Epsilon)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Println()
	}
	if !found {
		return fmt.Errorf("unknown molecule: %s", args[0])
	}
	return nil
}

func inspectSystem(cmd *cobra.Command, args []string) error {
	var (
		sys *forcefield.System
		err error
		p   *experiment.Pipeline
	)
	if len(args) == 1 {
		sys, err = forcefield.Load(args[0])
	} else {
		var log logging.Logger
		p, log, err = newPipeline()
		if err != nil {
			return err
		}
		defer log.Sync()
		sys, err = p.LoadSystem()
	}
	if err != nil {
		return err
	}
	printSummary(sys.Summary())

	if !view {
		return nil
	}
	if p == nil {
		return fmt.Errorf("--view needs the configuration, not a system file")
	}
	start, err := structure.ReadPDB(p.OutputPath(p.Config().Output.StartStructure))
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(viz.NewViewer(p.Config().Name, sys.Box, start), tea.WithAltScreen()).Run()
	return err
}

func printSummary(sum forcefield.Summary) {
	fmt.Printf("particles:  %d\n", sum.Particles)
	fmt.Printf("exclusions: %d\n", sum.Exclusions)
	fmt.Printf("total mass: %.1f Da\n", sum.TotalMass)
	fmt.Printf("net charge: %+.2f e\n", sum.NetCharge)

	groups := make([]int, 0, len(sum.Groups))
	for g := range sum.Groups {
		groups = append(groups, g)
	}
	sort.Ints(groups)
	fmt.Println("\nterms per force group:")
	for _, g := range groups {
		fmt.Printf("  %2d: %d\n", g, sum.Groups[g])
	}

	kinds := make([]string, 0, len(sum.Kinds))
	for k := range sum.Kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	fmt.Println("\nterms per force:")
	for _, k := range kinds {
		fmt.Printf("  %-22s %d\n", k, sum.Kinds[k])
	}
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED\tSTATUS\tSTEPS\tPARTICLES\tPLATFORM")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%d\t%s\n",
			run.ID[:8],
			run.Name,
			run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			run.Status,
			run.Completed,
			run.Steps,
			run.Particles,
			run.Platform,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	run, err := st.Load(args[0])
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(run.ID)
	if err != nil {
		return err
	}
	chart, err := viz.PlotFrames(frames, field, plotWidth, plotHeight)
	if err != nil {
		return err
	}
	fmt.Printf("run %s (%s, %s)\n\n", run.ID, run.Name, run.Status)
	fmt.Println(chart)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
}

func showPresets(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		for _, sys := range config.ListSystems() {
			fmt.Println(sys)
			for _, name := range config.ListPresets(sys) {
				fmt.Printf("  %s\n", name)
			}
		}
		return nil
	}
	sys, name, ok := strings.Cut(args[0], "/")
	if !ok || sys == "" || name == "" {
		return fmt.Errorf("expected system/preset, got %q", args[0])
	}
	cfg := config.GetPreset(sys, name)
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s", args[0])
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}
