package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	Title       lipgloss.Style
	Subtle      lipgloss.Style
	MetricLabel lipgloss.Style
	MetricValue lipgloss.Style
	KeyHint     lipgloss.Style
	Panel       lipgloss.Style

	statusStyles map[string]lipgloss.Style
	sparkHigh    lipgloss.Style
	sparkMid     lipgloss.Style
	sparkLow     lipgloss.Style
)

func init() { refreshStyles() }

// refreshStyles derives every style from CurrentTheme.
func refreshStyles() {
	th := CurrentTheme
	Title = lipgloss.NewStyle().Bold(true).Foreground(th.Primary)
	Subtle = lipgloss.NewStyle().Foreground(th.Muted)
	MetricLabel = lipgloss.NewStyle().Foreground(th.Muted).Width(14)
	MetricValue = lipgloss.NewStyle().Foreground(th.Text).Bold(true)
	KeyHint = lipgloss.NewStyle().Foreground(th.Muted).Italic(true)
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(th.Muted).
		Padding(0, 1)

	bold := lipgloss.NewStyle().Bold(true)
	statusStyles = map[string]lipgloss.Style{
		"idle":      bold.Foreground(th.Muted),
		"running":   bold.Foreground(th.Primary),
		"completed": bold.Foreground(th.Success),
		"cancelled": bold.Foreground(th.Warning),
		"failed":    bold.Foreground(th.Error),
	}
	sparkHigh = lipgloss.NewStyle().Foreground(th.Error)
	sparkMid = lipgloss.NewStyle().Foreground(th.Warning)
	sparkLow = lipgloss.NewStyle().Foreground(th.Success)
}

// Status renders a run status in its color.
func Status(status string) string {
	style, ok := statusStyles[status]
	if !ok {
		return strings.ToUpper(status)
	}
	return style.Render(strings.ToUpper(status))
}

// ProgressBar renders a bar filled to fraction of width.
func ProgressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	filled = max(0, min(filled, width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Render(bar)
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders the last width values as a one-line chart.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	var b strings.Builder
	for _, v := range values {
		norm := (v - lo) / rng
		idx := max(0, min(int(norm*float64(len(sparkChars)-1)), len(sparkChars)-1))
		c := string(sparkChars[idx])
		switch {
		case norm > 0.7:
			b.WriteString(sparkHigh.Render(c))
		case norm > 0.3:
			b.WriteString(sparkMid.Render(c))
		default:
			b.WriteString(sparkLow.Render(c))
		}
	}
	return b.String()
}

// BoxWithTitle renders content in a rounded panel under a title.
func BoxWithTitle(title, content string, width int) string {
	return Title.Render(title) + "\n" + Panel.Width(width).Render(content)
}

func Separator(width int) string {
	mid := width / 2
	left := strings.Repeat("─", max(mid-3, 0))
	right := strings.Repeat("─", max(width-mid-3, 0))
	return Subtle.Render(left + " ◆ " + right)
}
