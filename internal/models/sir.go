package models

import (
	"github.com/san-kum/episim/internal/model"
)

// SIR is the classic susceptible-infected-recovered model of a closed
// population of 1000 with ten initial infections.
func NewSIR() (*model.Model, error) {
	m, err := model.New("sir", 1000, model.DivisionSpec{
		Name: "Health",
		Categories: []model.CategorySpec{
			{Name: "S", Description: "susceptible"},
			{Name: "I", Description: "infected"},
			{Name: "R", Description: "recovered"},
		},
	})
	if err != nil {
		return nil, err
	}
	b := builder{m: m}
	b.value("S", 990)
	b.value("I", 10)
	b.param("N", "population size", "S+I+R")
	b.param("beta", "contact rate per day", "0.3")
	b.param("gamma", "recovery rate per day", "0.1")
	b.process("infection", "new infections per day", model.TimeSegment{Definition: "beta*S*I/N"})
	b.process("recovery", "recoveries per day", model.TimeSegment{Definition: "gamma*I"})
	b.define("S", "-infection")
	b.define("I", "infection-recovery")
	b.define("R", "recovery")
	return b.done()
}
