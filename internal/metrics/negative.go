package metrics

import (
	"math"

	"github.com/san-kum/episim/internal/dynamo"
)

// NegativeExcursion records how far below zero any compartment went.
// Integrators never clamp, so a coarse step on a stiff model shows up here.
type NegativeExcursion struct {
	name    string
	worst   float64
	at      float64
	samples int
	hits    int
}

func NewNegativeExcursion() *NegativeExcursion {
	return &NegativeExcursion{name: "negative_excursion"}
}

func (n *NegativeExcursion) Name() string { return n.name }

func (n *NegativeExcursion) Observe(x dynamo.State, t float64) {
	n.samples++
	hit := false
	for _, v := range x {
		if v < 0 {
			hit = true
			if -v > n.worst {
				n.worst, n.at = -v, t
			}
		}
	}
	if hit {
		n.hits++
	}
}

// Value returns the magnitude of the most negative value seen.
func (n *NegativeExcursion) Value() float64 { return n.worst }

// At returns the time of the worst excursion.
func (n *NegativeExcursion) At() float64 { return n.at }

// Fraction returns the share of observations with a negative compartment.
func (n *NegativeExcursion) Fraction() float64 {
	if n.samples == 0 {
		return 0
	}
	return float64(n.hits) / float64(n.samples)
}

func (n *NegativeExcursion) Reset() {
	n.worst = 0
	n.at = math.NaN()
	n.samples = 0
	n.hits = 0
}
