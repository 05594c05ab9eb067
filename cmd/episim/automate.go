package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/episim/internal/automation"
	"github.com/san-kum/episim/internal/document"
	"github.com/san-kum/episim/internal/experiment"
	"github.com/san-kum/episim/internal/optim"
	"github.com/san-kum/episim/internal/storage"
	"github.com/san-kum/episim/internal/viz"
)

var (
	mcParams []string
	mcSpread float64
	mcTrials int
	mcSeed   int64
)

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	runCfg, err := prefs.RunConfig()
	if err != nil {
		return err
	}

	store := storage.New(prefs.DataDir)
	if err := store.Init(); err != nil {
		return err
	}
	base := experiment.Config{Run: runCfg, Store: store}
	if cat, err := storage.OpenCatalog(prefs.CatalogPath()); err == nil {
		defer cat.Close()
		base.Catalog = cat
	}

	ctx, cancel := interruptible()
	defer cancel()

	fmt.Printf("scenario %s: %d steps\n", sc.Name, len(sc.Steps))
	outcomes, runErr := automation.RunScenario(ctx, sc, base)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tMODEL\tSTATUS\tSTEPS\tFINAL_T\tRUN")
	for i, out := range outcomes {
		run := out.RunID
		if run == "" {
			run = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%g\t%s\n",
			i+1, sc.Steps[i].Model, viz.Status(out.Summary.Status.String()), out.Summary.Steps, out.Summary.FinalTime, run)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	doc, err := document.Load(args[0])
	if err != nil {
		return err
	}
	runCfg, err := prefs.RunConfig()
	if err != nil {
		return err
	}
	objective, err := optim.ParseObjective(sweepGoal)
	if err != nil {
		return err
	}

	ctx, cancel := interruptible()
	defer cancel()

	cfg := automation.MonteCarloConfig{Params: mcParams, Spread: mcSpread, Trials: mcTrials, Seed: mcSeed}
	fmt.Printf("%d trials of %s, %v scaled by up to ±%g%%\n", mcTrials, doc.Name, mcParams, mcSpread*100)
	trials, runErr := automation.RunMonteCarlo(ctx, doc, cfg, experiment.Config{Run: runCfg}, objective)

	failed := 0
	for _, tr := range trials {
		if tr.Err != nil {
			failed++
		}
	}
	st := automation.Describe(trials)
	fmt.Println()
	fmt.Printf("  %s %d completed, %d failed\n", viz.MetricLabel.Render("trials"), st.N, failed)
	if st.N > 0 {
		fmt.Printf("  %s %.6g ± %.3g\n", viz.MetricLabel.Render("mean"), st.Mean, st.Std)
		fmt.Printf("  %s %.6g  %.6g  %.6g\n", viz.MetricLabel.Render("5/50/95%"), st.P05, st.Median, st.P95)
		fmt.Printf("  %s %.6g .. %.6g\n", viz.MetricLabel.Render("range"), st.Min, st.Max)
	}
	return runErr
}

func automationCommands() []*cobra.Command {
	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the steps of a scenario file in order",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	runFlags(scenarioCmd)

	mcCmd := &cobra.Command{
		Use:   "montecarlo [file]",
		Short: "run a model with randomly scaled parameters",
		Args:  cobra.ExactArgs(1),
		RunE:  runMonteCarlo,
	}
	runFlags(mcCmd)
	mcCmd.Flags().StringSliceVar(&mcParams, "param", nil, "parameters to perturb")
	mcCmd.Flags().Float64Var(&mcSpread, "spread", 0.1, "relative perturbation, in [0, 1)")
	mcCmd.Flags().IntVar(&mcTrials, "trials", 50, "number of trials")
	mcCmd.Flags().Int64Var(&mcSeed, "seed", 0, "random seed (0 uses the clock)")
	mcCmd.Flags().StringVar(&sweepGoal, "objective", "peak:I", "peak:<compartment>, final:<compartment> or a metric name")

	return []*cobra.Command{scenarioCmd, mcCmd}
}
