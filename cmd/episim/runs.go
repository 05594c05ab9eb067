package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/episim/internal/storage"
	"github.com/san-kum/episim/internal/viz"
)

func openStore() *storage.Store {
	return storage.New(prefs.DataDir)
}

func listRuns(cmd *cobra.Command, args []string) error {
	if modelName != "" || showStats {
		return listCatalog(cmd.Context())
	}

	runs, err := openStore().List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tINTEG\tDT\tHORIZON\tSTATUS\tSTEPS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%g\t%s\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Method,
			run.Dt,
			run.Horizon,
			run.Status,
			run.Steps,
		)
	}
	return w.Flush()
}

func listCatalog(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cat, err := storage.OpenCatalog(prefs.CatalogPath())
	if err != nil {
		return err
	}
	defer cat.Close()

	if showStats {
		counts, err := cat.CountByStatus(ctx)
		if err != nil {
			return err
		}
		statuses := make([]string, 0, len(counts))
		for status := range counts {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)
		for _, status := range statuses {
			fmt.Printf("  %-22s %d\n", viz.Status(status), counts[status])
		}
		return nil
	}

	runs, err := cat.Runs(ctx, modelName)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tINTEG\tSTATUS\tSTEPS\tFINAL_T")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%g\n",
			run.ID, run.Timestamp.Format("2006-01-02 15:04:05"), run.Method, run.Status, run.Steps, run.FinalTime)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := openStore()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	res, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	if res.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s (%s, %s)\n", meta.Model, meta.Method, viz.Status(meta.Status))
	fmt.Printf("samples: %d\n\n", res.Len())

	lines, err := viz.Lines(res, nil)
	if err != nil {
		return err
	}
	if len(plotLabels) > 0 {
		lines = slices.DeleteFunc(lines, func(l viz.Line) bool { return !slices.Contains(plotLabels, l.Name) })
	}
	chart, err := viz.Plot(lines, viz.PlotOptions{
		Width:   plotWidth,
		Height:  plotHeight,
		Caption: fmt.Sprintf("%s over time (0..%g)", meta.Model, meta.FinalTime),
	})
	if err != nil {
		return err
	}
	fmt.Println(chart)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	return openStore().ExportCSV(os.Stdout, args[0])
}

func exportJSON(cmd *cobra.Command, args []string) error {
	return openStore().ExportJSON(os.Stdout, args[0])
}

func deleteRun(cmd *cobra.Command, args []string) error {
	if err := openStore().Delete(args[0]); err != nil {
		return err
	}
	if cat, err := storage.OpenCatalog(prefs.CatalogPath()); err == nil {
		defer cat.Close()
		if err := cat.Forget(context.Background(), args[0]); err != nil {
			return err
		}
	}
	fmt.Printf("deleted %s\n", args[0])
	return nil
}
