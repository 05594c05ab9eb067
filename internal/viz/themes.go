package viz

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// Theme defines the color scheme of styled output and charts.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	// Series colors chart lines in order, cycling when there are more lines.
	Series []asciigraph.AnsiColor
}

var (
	ThemeClinic = Theme{
		Name:    "clinic",
		Primary: lipgloss.Color("#00ccff"),
		Accent:  lipgloss.Color("#ffcc00"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#666688"),
		Success: lipgloss.Color("#00ff88"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff4444"),
		Series: []asciigraph.AnsiColor{
			asciigraph.Blue, asciigraph.Red, asciigraph.Green,
			asciigraph.Yellow, asciigraph.Magenta, asciigraph.Cyan,
		},
	}

	ThemeMinimal = Theme{
		Name:    "minimal",
		Primary: lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#0088ff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888888"),
		Success: lipgloss.Color("#00ff00"),
		Warning: lipgloss.Color("#ffaa00"),
		Error:   lipgloss.Color("#ff0000"),
		Series:  []asciigraph.AnsiColor{asciigraph.Default},
	}

	ThemeSunset = Theme{
		Name:    "sunset",
		Primary: lipgloss.Color("#ff6b6b"),
		Accent:  lipgloss.Color("#ff9ff3"),
		Text:    lipgloss.Color("#fff5f5"),
		Muted:   lipgloss.Color("#8b6b8c"),
		Success: lipgloss.Color("#5fd068"),
		Warning: lipgloss.Color("#ffc048"),
		Error:   lipgloss.Color("#ff4757"),
		Series: []asciigraph.AnsiColor{
			asciigraph.Coral, asciigraph.Gold, asciigraph.Orchid,
			asciigraph.LightSeaGreen, asciigraph.SlateBlue,
		},
	}

	CurrentTheme = ThemeClinic

	Themes = []Theme{ThemeClinic, ThemeMinimal, ThemeSunset}
)

// GetTheme returns a theme by name, the default theme for unknown names.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeClinic
}

func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
	refreshStyles()
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// SeriesColor returns the chart color of the i-th line.
func (t Theme) SeriesColor(i int) asciigraph.AnsiColor {
	if len(t.Series) == 0 {
		return asciigraph.Default
	}
	return t.Series[i%len(t.Series)]
}
