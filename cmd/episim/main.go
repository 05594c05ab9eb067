package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/episim/internal/autosave"
	"github.com/san-kum/episim/internal/config"
	"github.com/san-kum/episim/internal/document"
	"github.com/san-kum/episim/internal/logging"
	"github.com/san-kum/episim/internal/model"
	"github.com/san-kum/episim/internal/models"
	"github.com/san-kum/episim/internal/viz"
)

var (
	prefsPath   string
	dataDir     string
	logLevel    string
	theme       string
	showMetrics bool

	integrator string
	dt         float64
	horizon    float64
	tolerance  float64
	stride     int
	preset     string
	noAutosave bool
	plotAfter  bool

	plotWidth  int
	plotHeight int
	plotLabels []string
	modelName  string
	showStats  bool

	prefs *config.Preferences
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "episim",
		Short:             "compartmental epidemic simulator",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	rootCmd.PersistentFlags().StringVar(&prefsPath, "prefs", config.DefaultPath(), "preferences file (yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "run archive directory (overrides preferences)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides preferences)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", viz.CurrentTheme.Name, "color theme: "+strings.Join(viz.ThemeNames(), ", "))
	rootCmd.PersistentFlags().BoolVar(&showMetrics, "metrics", false, "print run telemetry in Prometheus text format")

	newCmd := &cobra.Command{
		Use:   "new [example] [file]",
		Short: "write an example model: " + strings.Join(models.Names(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE:  newModel,
	}

	validateCmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "validate definitions and the population",
		Args:  cobra.ExactArgs(1),
		RunE:  validateModel,
	}

	compartmentsCmd := &cobra.Command{
		Use:   "compartments [file] [division=category ...]",
		Short: "list compartments, optionally restricted, and shortcuts",
		Args:  cobra.MinimumNArgs(1),
		RunE:  listCompartments,
	}

	runCmd := &cobra.Command{
		Use:   "run [file]",
		Short: "run a model and archive the samples",
		Args:  cobra.ExactArgs(1),
		RunE:  runModel,
	}
	runFlags(runCmd)
	runCmd.Flags().BoolVar(&plotAfter, "plot", false, "plot the result")

	liveCmd := &cobra.Command{
		Use:   "live [file]",
		Short: "run a model with a live progress view",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	runFlags(liveCmd)

	compareCmd := &cobra.Command{
		Use:   "compare [file] [integrator1] [integrator2] ...",
		Short: "compare integrators on the same model",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	runFlags(compareCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list archived runs",
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&modelName, "model", "", "only runs of this model")
	listCmd.Flags().BoolVar(&showStats, "stats", false, "count runs by status")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "chart width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "chart height")
	plotCmd.Flags().StringSliceVar(&plotLabels, "compartment", nil, "compartments to plot (default all)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run samples to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [run_id]",
		Short: "delete an archived run",
		Args:  cobra.ExactArgs(1),
		RunE:  deleteRun,
	}

	recoverCmd := &cobra.Command{
		Use:   "recover [file]",
		Short: "report or restore the snapshot of an unfinished run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  recoverSnapshot,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list run presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p, _ := config.GetPreset(name)
				fmt.Printf("  %-10s %-9s dt=%-5g horizon=%-5g %s\n", name, p.Integrator, p.Dt, p.Horizon, viz.Subtle.Render(p.Description))
			}
			return nil
		},
	}

	rootCmd.AddCommand(newCmd, validateCmd, compartmentsCmd, runCmd, liveCmd, compareCmd,
		listCmd, plotCmd, exportCSVCmd, exportJSONCmd, deleteCmd, recoverCmd, presetsCmd)
	rootCmd.AddCommand(analysisCommands()...)
	rootCmd.AddCommand(automationCommands()...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator: euler, heun, rk4, euler-pc, rkf45")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "step, initial step for rkf45")
	cmd.Flags().Float64Var(&horizon, "time", config.DefaultHorizon, "simulated time")
	cmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "rkf45 error tolerance")
	cmd.Flags().IntVar(&stride, "stride", config.DefaultStride, "sample every n steps")
	cmd.Flags().StringVar(&preset, "preset", "", "run preset (see presets)")
	cmd.Flags().BoolVar(&noAutosave, "no-autosave", false, "do not snapshot the model before running")
}

// setup loads the preferences, applies preset and flags over them and
// configures logging.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	prefs, err = config.Load(prefsPath)
	if err != nil {
		return err
	}

	if preset != "" {
		p, ok := config.GetPreset(preset)
		if !ok {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		p.Apply(prefs)
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		prefs.Integrator = integrator
	}
	if flags.Changed("dt") {
		prefs.Dt = dt
	}
	if flags.Changed("time") {
		prefs.Horizon = horizon
	}
	if flags.Changed("tolerance") {
		prefs.Tolerance = tolerance
	}
	if flags.Changed("stride") {
		prefs.Stride = stride
	}
	if noAutosave {
		prefs.Autosave = false
	}
	if dataDir != "" {
		prefs.DataDir = dataDir
	}
	if logLevel != "" {
		prefs.LogLevel = logLevel
	}
	viz.SetTheme(theme)

	if err := logging.Configure(prefs.LogLevel); err != nil {
		return err
	}

	if cmd.Name() != "recover" {
		if doc, ok := newAutosave().Leftover(); ok {
			fmt.Fprintf(os.Stderr, "%s a run of %q did not finish; see 'episim recover'\n",
				viz.Status("cancelled"), doc.Name)
		}
	}
	return nil
}

func newAutosave() *autosave.Autosave {
	return autosave.New(prefs.AutosaveDir, prefs.Autosave)
}

func newModel(cmd *cobra.Command, args []string) error {
	m, err := models.Get(args[0])
	if err != nil {
		return fmt.Errorf("%w (available: %s)", err, strings.Join(models.Names(), ", "))
	}
	if err := document.Save(args[1], document.FromModel(m)); err != nil {
		return err
	}
	fmt.Printf("wrote %s model to %s\n", args[0], args[1])
	return nil
}

func validateModel(cmd *cobra.Command, args []string) error {
	m, _, err := document.LoadModel(args[0])
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		fmt.Println(viz.Status("failed"))
		return err
	}
	fmt.Printf("%s %d compartments, %d parameters, %d processes\n", viz.Status("completed"),
		len(m.Compartments()), len(m.Parameters()), len(m.Processes()))
	return nil
}

func listCompartments(cmd *cobra.Command, args []string) error {
	m, _, err := document.LoadModel(args[0])
	if err != nil {
		return err
	}
	partial := make(map[string]string)
	for _, arg := range args[1:] {
		div, cat, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("expected division=category, got %q", arg)
		}
		partial[div] = cat
	}
	names, err := m.Combinations(partial)
	if err != nil {
		return err
	}

	fmt.Println(viz.Title.Render("compartments"))
	for _, name := range names {
		c, _ := m.Compartment(name)
		def := c.Definition
		if !model.HasDefinition(def) {
			def = viz.Subtle.Render("(no definition)")
		}
		fmt.Printf("  %-20s %12g  %s\n", name, c.Value, def)
	}

	if len(m.Shortcuts()) > 0 && len(partial) == 0 {
		fmt.Println(viz.Title.Render("shortcuts"))
		for _, s := range m.Shortcuts() {
			members := m.ShortcutCompartments(s.Name)
			sort.Strings(members)
			fmt.Printf("  %-20s = %s\n", s.Name, strings.Join(members, " + "))
		}
	}
	return nil
}

func recoverSnapshot(cmd *cobra.Command, args []string) error {
	save := autosave.New(prefs.AutosaveDir, true)
	doc, ok := save.Leftover()
	if !ok {
		fmt.Println("no unfinished run")
		return nil
	}
	if len(args) == 0 {
		fmt.Printf("snapshot of %q (%d parameters, %d processes) at %s\n",
			doc.Name, len(doc.Parameters), len(doc.Processes), save.Path())
		fmt.Println("run 'episim recover <file>' to restore it")
		return nil
	}
	if _, err := save.Restore(args[0]); err != nil {
		return err
	}
	fmt.Printf("restored %q to %s\n", doc.Name, args[0])
	return nil
}
