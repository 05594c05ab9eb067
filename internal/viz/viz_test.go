package viz

import (
	"strings"
	"testing"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/episim/internal/results"
)

func sirResult(t *testing.T) *results.Result {
	t.Helper()
	res := results.New("sir", []string{"S", "I", "R"})
	for i := 0; i <= 10; i++ {
		x := float64(i)
		if err := res.AppendSample(x, []float64{100 - 5*x, 3 * x, 2 * x}); err != nil {
			t.Fatal(err)
		}
	}
	return res
}

func TestLines_Compartments(t *testing.T) {
	res := sirResult(t)
	lines, err := Lines(res, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[1].Name != "I" || lines[1].Values[10] != 30 {
		t.Errorf("unexpected line %+v", lines[1])
	}
}

func TestLines_Functions(t *testing.T) {
	res := sirResult(t)
	res.AddFunction("I+R", "red", 1)
	res.AddFunction("S/100", "", 1)

	lines, err := Lines(res, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Color != asciigraph.Red {
		t.Errorf("expected the named color to win")
	}
	if lines[0].Values[4] != 20 {
		t.Errorf("I+R at t=4 = %g, want 20", lines[0].Values[4])
	}

	res.AddFunction("unknown*2", "", 1)
	if _, err := Lines(res, nil); err == nil {
		t.Error("expected error for an undefined name")
	}
}

func TestPlotResult(t *testing.T) {
	res := sirResult(t)
	out, err := PlotResult(res, nil, PlotOptions{Width: 40, Height: 8})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "sir: population") {
		t.Errorf("caption missing:\n%s", out)
	}
	if _, err := Plot(nil, PlotOptions{}); err == nil {
		t.Error("expected error for an empty chart")
	}
}

func TestThemes(t *testing.T) {
	defer SetTheme(ThemeClinic.Name)

	if GetTheme("nope").Name != ThemeClinic.Name {
		t.Error("unknown theme should fall back to the default")
	}
	SetTheme("sunset")
	if CurrentTheme.Name != "sunset" {
		t.Errorf("theme not switched: %s", CurrentTheme.Name)
	}
	if c := ThemeMinimal.SeriesColor(5); c != asciigraph.Default {
		t.Errorf("minimal theme should cycle its single color")
	}
}

func TestStyledHelpers(t *testing.T) {
	if got := Sparkline(nil, 5); got != "─────" {
		t.Errorf("empty sparkline = %q", got)
	}
	if !strings.Contains(Status("completed"), "COMPLETED") {
		t.Error("status should render upper case")
	}
	if !strings.Contains(ProgressBar(2, 4), "████") {
		t.Error("progress bar should clamp to its width")
	}
}
