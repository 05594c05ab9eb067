package optim

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/episim/internal/document"
	"github.com/san-kum/episim/internal/experiment"
	"github.com/san-kum/episim/internal/integrators"
	"github.com/san-kum/episim/internal/models"
	"github.com/san-kum/episim/internal/sim"
)

func sirBuilder(t *testing.T) func(map[string]float64) (*experiment.Experiment, error) {
	t.Helper()
	m, err := models.NewSIR()
	if err != nil {
		t.Fatal(err)
	}
	cfg := sim.DefaultConfig()
	cfg.Method = integrators.RK4
	cfg.Horizon = 30
	cfg.Dt = 0.1
	cfg.Stride = 10
	return DocumentBuilder(document.FromModel(m), experiment.Config{Run: cfg})
}

func TestGridSearch_PeakInfected(t *testing.T) {
	g := NewWithT(t)

	gs := NewGridSearch([]string{"beta", "gamma"}, [][]float64{{0.05, 0.3, 0.5}, {0.1, 0.2}})
	best, points, err := gs.Search(context.Background(), sirBuilder(t), PeakObjective("I"))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(points).To(HaveLen(6))
	g.Expect(best).NotTo(BeNil())

	// Below threshold the infected only decline, so the peak is the seed.
	g.Expect(best.Params["beta"]).To(Equal(0.05))
	g.Expect(best.Value).To(BeNumerically("~", 10, 1e-9))
	for _, p := range points {
		g.Expect(p.Status).To(Equal(sim.Completed))
		g.Expect(p.Value).To(BeNumerically(">=", best.Value))
	}
}

func TestGridSearch_UnknownParameter(t *testing.T) {
	g := NewWithT(t)

	gs := NewGridSearch([]string{"delta"}, [][]float64{{1}})
	best, points, err := gs.Search(context.Background(), sirBuilder(t), PeakObjective("I"))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(best).To(BeNil())
	g.Expect(points).To(HaveLen(1))
	g.Expect(points[0].Err).To(HaveOccurred())
}

func TestGridSearch_Cancelled(t *testing.T) {
	g := NewWithT(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gs := NewGridSearch([]string{"beta"}, [][]float64{{0.1, 0.2}})
	_, points, err := gs.Search(ctx, sirBuilder(t), PeakObjective("I"))
	g.Expect(err).To(MatchError(context.Canceled))
	g.Expect(points).To(BeEmpty())
}

func TestGridSearch_Mismatch(t *testing.T) {
	g := NewWithT(t)
	_, _, err := NewGridSearch([]string{"beta"}, nil).Search(context.Background(), sirBuilder(t), PeakObjective("I"))
	g.Expect(err).To(HaveOccurred())
}

func TestParseObjective(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"peak:I", false},
		{"final:R", false},
		{"metric:population_drift", false},
		{"population_drift", false},
		{"", true},
		{"peak:", true},
		{"mean:I", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseObjective(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseObjective(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	g := NewWithT(t)

	name, values, err := ParseRange("beta=0.1, 0.2,0.3")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(name).To(Equal("beta"))
	g.Expect(values).To(Equal([]float64{0.1, 0.2, 0.3}))

	_, _, err = ParseRange("beta")
	g.Expect(err).To(HaveOccurred())
	_, _, err = ParseRange("beta=x")
	g.Expect(err).To(HaveOccurred())
}
