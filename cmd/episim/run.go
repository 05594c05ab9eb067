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

	"github.com/spf13/cobra"

	"github.com/san-kum/episim/internal/document"
	"github.com/san-kum/episim/internal/experiment"
	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/logging"
	"github.com/san-kum/episim/internal/metrics"
	"github.com/san-kum/episim/internal/model"
	"github.com/san-kum/episim/internal/results"
	"github.com/san-kum/episim/internal/sim"
	"github.com/san-kum/episim/internal/storage"
	"github.com/san-kum/episim/internal/tui"
	"github.com/san-kum/episim/internal/viz"
)

// session bundles what every run command needs.
type session struct {
	model      *model.Model
	doc        *document.Document
	store      *storage.Store
	catalog    *storage.Catalog
	collectors *metrics.Collectors
	exp        *experiment.Experiment
}

func openSession(path string) (*session, error) {
	m, doc, err := document.LoadModel(path)
	if err != nil {
		return nil, err
	}
	runCfg, err := prefs.RunConfig()
	if err != nil {
		return nil, err
	}

	s := &session{model: m, doc: doc, store: storage.New(prefs.DataDir)}
	if err := s.store.Init(); err != nil {
		return nil, err
	}
	if s.catalog, err = storage.OpenCatalog(prefs.CatalogPath()); err != nil {
		logging.Logger().LogError(err, "run catalog unavailable")
		s.catalog = nil
	}
	if showMetrics {
		s.collectors = metrics.NewCollectors()
	}
	s.exp = experiment.New(experiment.Config{
		Run:        runCfg,
		Autosave:   newAutosave(),
		Store:      s.store,
		Catalog:    s.catalog,
		Collectors: s.collectors,
	})
	return s, nil
}

func (s *session) close() {
	if s.catalog != nil {
		_ = s.catalog.Close()
	}
}

func (s *session) writeMetrics() error {
	if s.collectors == nil {
		return nil
	}
	fmt.Println()
	return s.collectors.WriteText(os.Stdout)
}

// interruptible cancels the returned context on Ctrl-C.
func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runModel(cmd *cobra.Command, args []string) error {
	s, err := openSession(args[0])
	if err != nil {
		return err
	}
	defer s.close()

	extra := s.doc.NewResults(s.model.CompartmentNames())
	if err := s.exp.Setup(s.model, extra...); err != nil {
		return err
	}

	ctx, cancel := interruptible()
	defer cancel()

	fmt.Printf("running %s with %s...\n", s.model.Population.Name, prefs.Integrator)
	start := time.Now()
	out, runErr := s.exp.Run(ctx)
	if out == nil {
		return runErr
	}
	printOutcome(out, time.Since(start))

	if plotAfter {
		for _, res := range append([]*results.Result{out.Result}, out.Extra...) {
			chart, err := viz.PlotResult(res, s.exp.System(), viz.PlotOptions{})
			if err != nil {
				return err
			}
			fmt.Println()
			fmt.Println(chart)
		}
	}
	if err := s.writeMetrics(); err != nil {
		return err
	}
	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	s, err := openSession(args[0])
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.exp.Setup(s.model, s.doc.NewResults(s.model.CompartmentNames())...); err != nil {
		return err
	}

	ctx, cancel := interruptible()
	defer cancel()

	runner := sim.NewRunner()
	events, err := s.exp.Start(ctx, runner)
	if err != nil {
		return err
	}
	sum, err := tui.Run(s.model.Population.Name, s.model.CompartmentNames(), events, runner.Cancel)
	if err != nil {
		runner.Cancel()
		if sum := sim.Drain(events); sum != nil {
			_, _ = s.exp.Finish(ctx, sum)
		}
		runner.Wait()
		return err
	}
	runner.Wait()

	out, runErr := s.exp.Finish(ctx, sum)
	if out != nil && out.RunID != "" {
		fmt.Printf("run id: %s\n", out.RunID)
	}
	if err := s.writeMetrics(); err != nil {
		return err
	}
	return runErr
}

func printOutcome(out *experiment.Outcome, elapsed time.Duration) {
	sum := out.Summary
	fmt.Printf("%s in %v\n", viz.Status(sum.Status.String()), elapsed.Round(time.Millisecond))
	if out.RunID != "" {
		fmt.Printf("run id: %s\n", out.RunID)
	}
	fmt.Printf("steps: %d (%d rejected), evaluations: %d, samples: %d, t=%g\n",
		sum.Steps, sum.Rejected, sum.Evaluations, sum.Samples, sum.FinalTime)

	if len(sum.Final) > 0 {
		fmt.Println("\nfinal state:")
		for i, label := range out.Result.Labels() {
			fmt.Printf("  %s%s\n", viz.MetricLabel.Render(label), viz.MetricValue.Render(fmt.Sprintf("%.4f", sum.Final[i])))
		}
	}

	names := make([]string, 0, len(sum.Metrics))
	for name := range sum.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 {
		fmt.Println("\nmetrics:")
		for _, name := range names {
			fmt.Printf("  %s: %.6g\n", name, sum.Metrics[name])
		}
	}
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	s, err := openSession(args[0])
	if err != nil {
		return err
	}
	defer s.close()

	registry := experiment.NewRegistry()
	var methods []integrators.Method
	for _, name := range args[1:] {
		m, err := registry.GetIntegrator(name)
		if err != nil {
			return err
		}
		methods = append(methods, m)
	}

	ctx, cancel := interruptible()
	defer cancel()

	fmt.Printf("comparing integrators for %s (dt=%g, horizon=%g)\n\n", s.model.Population.Name, prefs.Dt, prefs.Horizon)
	cmp, cmpErr := s.exp.Compare(ctx, s.model, methods)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tSTATUS\tSTEPS\tREJECTED\tEVALS\tDRIFT\tDEVIATION")
	for _, c := range cmp {
		sum := c.Summary
		if sum == nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.2e\t%.3e\n",
			c.Method, sum.Status, sum.Steps, sum.Rejected, sum.Evaluations,
			sum.Metrics["population_drift"], c.Deviation)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(cmp) > 0 {
		fmt.Println(viz.Subtle.Render(fmt.Sprintf("\ndeviation: largest final difference from %s", cmp[0].Method)))
	}
	if err := s.writeMetrics(); err != nil {
		return err
	}
	if errors.Is(cmpErr, context.Canceled) {
		return fmt.Errorf("comparison interrupted: %w", cmpErr)
	}
	return cmpErr
}
