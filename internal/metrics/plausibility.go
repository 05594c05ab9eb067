package metrics

import (
	"math"

	"github.com/san-kum/episim/internal/dynamo"
)

// Plausibility is the share of observations in which every compartment
// lies within [-slack, population+slack], where slack is a relative
// 1e-6 of the population. A value below one means the integration left
// the physically meaningful range, usually from a step that is too large.
type Plausibility struct {
	population float64
	slack      float64
	violations int
	samples    int
	first      float64
}

func NewPlausibility(population float64) *Plausibility {
	return &Plausibility{
		population: population,
		slack:      1e-6 * math.Max(population, 1),
		first:      math.NaN(),
	}
}

func (p *Plausibility) Name() string { return "plausibility" }

func (p *Plausibility) Observe(x dynamo.State, t float64) {
	p.samples++
	for _, v := range x {
		if v < -p.slack || v > p.population+p.slack || math.IsNaN(v) {
			if p.violations == 0 {
				p.first = t
			}
			p.violations++
			return
		}
	}
}

func (p *Plausibility) Value() float64 {
	if p.samples == 0 {
		return 1
	}
	return 1 - float64(p.violations)/float64(p.samples)
}

// FirstViolation returns the time of the first implausible observation, or
// NaN when there was none.
func (p *Plausibility) FirstViolation() float64 { return p.first }

func (p *Plausibility) Reset() {
	p.violations, p.samples = 0, 0
	p.first = math.NaN()
}
