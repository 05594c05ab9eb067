package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/episim/internal/analysis"
	"github.com/san-kum/episim/internal/document"
	"github.com/san-kum/episim/internal/experiment"
	"github.com/san-kum/episim/internal/optim"
	"github.com/san-kum/episim/internal/viz"
)

var (
	growthLabel  string
	growthPoints int
	threshold    float64
	phaseX       string
	phaseY       string
	phaseWidth   int
	phaseHeight  int
	sweepRanges  []string
	sweepGoal    string
)

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := openStore()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	res, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	peaks, err := analysis.Peaks(res)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s (%s, %s)\n\n", meta.ID, meta.Model, viz.Status(meta.Status))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMPARTMENT\tPEAK\tAT\tCHANGE")
	for _, p := range peaks {
		change, _ := analysis.Change(res, p.Label)
		fmt.Fprintf(w, "%s\t%.4g\t%.4g\t%+.4g\n", p.Label, p.Value, p.Time, change)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if growthLabel == "" {
		return nil
	}
	fmt.Println()
	rate, err := analysis.GrowthRate(res, growthLabel, growthPoints)
	switch {
	case errors.Is(err, analysis.ErrNoData):
		fmt.Printf("%s: not enough positive samples for a growth rate\n", growthLabel)
	case err != nil:
		return err
	case rate > 0:
		fmt.Printf("%s: growth rate %.4g/unit, doubling time %.4g\n", growthLabel, rate, math.Ln2/rate)
	default:
		fmt.Printf("%s: growth rate %.4g/unit, halving time %.4g\n", growthLabel, rate, -math.Ln2/rate)
	}
	if threshold > 0 {
		at, ok, err := analysis.Crossing(res, growthLabel, threshold)
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("%s reaches %g at t=%.4g\n", growthLabel, threshold, at)
		} else {
			fmt.Printf("%s never reaches %g\n", growthLabel, threshold)
		}
	}
	return nil
}

func phaseRun(cmd *cobra.Command, args []string) error {
	res, err := openStore().LoadResult(args[0])
	if err != nil {
		return err
	}
	p, err := analysis.NewPhasePortrait(res, phaseX, phaseY)
	if err != nil {
		return err
	}
	fmt.Println(viz.Title.Render(fmt.Sprintf("%s against %s", phaseY, phaseX)))
	fmt.Print(p.ASCII(phaseWidth, phaseHeight))
	fmt.Println(viz.Subtle.Render(". early   o middle   ● late"))
	return nil
}

func sweepModel(cmd *cobra.Command, args []string) error {
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

	var names []string
	var ranges [][]float64
	for _, r := range sweepRanges {
		name, values, err := optim.ParseRange(r)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	if len(names) == 0 {
		return fmt.Errorf("no parameters to sweep, use --param name=v1,v2")
	}

	ctx, cancel := interruptible()
	defer cancel()

	gs := optim.NewGridSearch(names, ranges)
	best, points, searchErr := gs.Search(ctx, optim.DocumentBuilder(doc, experiment.Config{Run: runCfg}), objective)

	sort.SliceStable(points, func(i, j int) bool { return points[i].Value < points[j].Value })
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t", name)
	}
	fmt.Fprintln(w, "STATUS\tOBJECTIVE")
	for _, p := range points {
		for _, name := range names {
			fmt.Fprintf(w, "%g\t", p.Params[name])
		}
		if p.Err != nil {
			fmt.Fprintf(w, "%s\t%s\n", p.Status, p.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%.6g\n", p.Status, p.Value)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if best != nil {
		fmt.Println(viz.Subtle.Render(fmt.Sprintf("\nbest %s = %.6g", sweepGoal, best.Value)))
	}
	return searchErr
}

func analysisCommands() []*cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "peaks, changes and early growth of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&growthLabel, "growth", "", "compartment to fit an exponential growth rate to")
	analyzeCmd.Flags().IntVar(&growthPoints, "points", 10, "samples used by the growth fit")
	analyzeCmd.Flags().Float64Var(&threshold, "threshold", 0, "report when the growth compartment first reaches this value")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "plot one compartment against another",
		Args:  cobra.ExactArgs(1),
		RunE:  phaseRun,
	}
	phaseCmd.Flags().StringVar(&phaseX, "x", "S", "horizontal compartment")
	phaseCmd.Flags().StringVar(&phaseY, "y", "I", "vertical compartment")
	phaseCmd.Flags().IntVar(&phaseWidth, "width", 60, "chart width")
	phaseCmd.Flags().IntVar(&phaseHeight, "height", 20, "chart height")

	sweepCmd := &cobra.Command{
		Use:   "sweep [file]",
		Short: "run a model over a parameter grid",
		Args:  cobra.ExactArgs(1),
		RunE:  sweepModel,
	}
	runFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&sweepRanges, "param", nil, "parameter values, name=v1,v2,... (repeatable)")
	sweepCmd.Flags().StringVar(&sweepGoal, "objective", "peak:I", "peak:<compartment>, final:<compartment> or a metric name")

	return []*cobra.Command{analyzeCmd, phaseCmd, sweepCmd}
}
