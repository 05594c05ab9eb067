package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/episim/internal/results"
)

type Point struct{ X, Y float64 }

// PhasePortrait is the trajectory of one compartment against another,
// for example infected against susceptible.
type PhasePortrait struct {
	XLabel, YLabel string
	Points         []Point
}

func NewPhasePortrait(res *results.Result, x, y string) (*PhasePortrait, error) {
	xs, ok := res.Column(x)
	if !ok {
		return nil, fmt.Errorf("analysis: unknown compartment %q", x)
	}
	ys, ok := res.Column(y)
	if !ok {
		return nil, fmt.Errorf("analysis: unknown compartment %q", y)
	}
	p := &PhasePortrait{XLabel: x, YLabel: y, Points: make([]Point, len(xs))}
	for i := range xs {
		p.Points[i] = Point{X: xs[i], Y: ys[i]}
	}
	return p, nil
}

// ASCII renders the portrait on a width x height grid. Early points are
// drawn as '.', middle ones as 'o' and late ones as '●'.
func (p *PhasePortrait) ASCII(width, height int) string {
	if len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}
	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}
	n := len(p.Points)
	for i, pt := range p.Points {
		col := int((pt.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-minY)/rangeY*float64(height-1))
		if row < 0 || row >= height || col < 0 || col >= width {
			continue
		}
		switch {
		case i < n/3:
			canvas[row][col] = '.'
		case i < 2*n/3:
			canvas[row][col] = 'o'
		default:
			canvas[row][col] = '●'
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%10.4g ┌%s┐\n", maxY, strings.Repeat("─", width))
	for i, row := range canvas {
		label := ""
		if i == height/2 {
			label = p.YLabel
		}
		fmt.Fprintf(&sb, "%10s │%s│\n", label, string(row))
	}
	fmt.Fprintf(&sb, "%10.4g └%s┘\n", minY, strings.Repeat("─", width))
	left := fmt.Sprintf("%.4g", minX)
	right := fmt.Sprintf("%.4g", maxX)
	gap := max(width-len(left)-len(right)-len(p.XLabel), 2)
	fmt.Fprintf(&sb, "%10s  %s%s%s%s%s\n", "", left, strings.Repeat(" ", gap/2), p.XLabel, strings.Repeat(" ", gap-gap/2), right)
	return sb.String()
}
