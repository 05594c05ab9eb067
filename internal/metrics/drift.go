package metrics

import (
	"math"

	"github.com/san-kum/episim/internal/dynamo"
)

// PopulationDrift tracks the largest relative deviation of the total
// population from its value at the first observation. Models without births
// or deaths should keep it at rounding level.
type PopulationDrift struct {
	name     string
	initial  float64
	current  float64
	maxDrift float64
	samples  int
}

func NewPopulationDrift() *PopulationDrift {
	return &PopulationDrift{name: "population_drift"}
}

func (p *PopulationDrift) Name() string { return p.name }

func (p *PopulationDrift) Observe(x dynamo.State, t float64) {
	total := x.Sum()
	if p.samples == 0 {
		p.initial = total
	}
	p.current = total
	p.samples++

	drift := math.Abs(total - p.initial)
	if p.initial != 0 {
		drift /= math.Abs(p.initial)
	}
	p.maxDrift = math.Max(p.maxDrift, drift)
}

func (p *PopulationDrift) Value() float64 { return p.maxDrift }

// Current returns the last observed total.
func (p *PopulationDrift) Current() float64 { return p.current }

func (p *PopulationDrift) Reset() {
	p.initial = 0
	p.current = 0
	p.maxDrift = 0
	p.samples = 0
}
