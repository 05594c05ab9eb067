package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/episim/internal/results"
)

// PlotOptions sizes a chart. Zero values pick defaults.
type PlotOptions struct {
	Width     int
	Height    int
	Caption   string
	Precision uint
}

func (o PlotOptions) withDefaults() PlotOptions {
	if o.Width <= 0 {
		o.Width = 80
	}
	if o.Height <= 0 {
		o.Height = 12
	}
	if o.Precision == 0 {
		o.Precision = 1
	}
	return o
}

// Line is one named series of a chart.
type Line struct {
	Name   string
	Values []float64
	Color  asciigraph.AnsiColor
}

// Lines builds the chart lines of res: one per function when res has
// functions, otherwise one per compartment. Functions are evaluated over
// the stored compartments, or over every model name when snap is given.
func Lines(res *results.Result, snap results.Snapshotter) ([]Line, error) {
	var lines []Line
	if len(res.Functions) == 0 {
		for i, label := range res.Labels() {
			col, _ := res.Column(label)
			lines = append(lines, Line{Name: label, Values: col, Color: CurrentTheme.SeriesColor(i)})
		}
		return lines, nil
	}
	for i, fn := range res.Functions {
		values, err := res.Series(fn, snap)
		if err != nil {
			return nil, err
		}
		color := CurrentTheme.SeriesColor(i)
		if c, ok := asciigraph.ColorNames[strings.ToLower(fn.Color)]; ok {
			color = c
		}
		lines = append(lines, Line{Name: fn.Expression, Values: values, Color: color})
	}
	return lines, nil
}

// Plot draws lines into one chart with a legend.
func Plot(lines []Line, opts PlotOptions) (string, error) {
	opts = opts.withDefaults()
	var data [][]float64
	var names []string
	var colors []asciigraph.AnsiColor
	for _, l := range lines {
		if len(l.Values) == 0 {
			continue
		}
		data = append(data, l.Values)
		names = append(names, l.Name)
		colors = append(colors, l.Color)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("no data to plot")
	}
	return asciigraph.PlotMany(data,
		asciigraph.Width(opts.Width),
		asciigraph.Height(opts.Height),
		asciigraph.Precision(opts.Precision),
		asciigraph.Caption(opts.Caption),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(names...),
	), nil
}

// PlotResult charts a result over time, captioned with its axis labels.
func PlotResult(res *results.Result, snap results.Snapshotter, opts PlotOptions) (string, error) {
	lines, err := Lines(res, snap)
	if err != nil {
		return "", err
	}
	if opts.Caption == "" {
		times := res.Times()
		span := ""
		if len(times) > 0 {
			span = fmt.Sprintf(" (%s %g..%g)", res.XLabel, times[0], times[len(times)-1])
		}
		opts.Caption = res.Name + ": " + res.YLabel + span
	}
	return Plot(lines, opts)
}
