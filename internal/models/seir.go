package models

import (
	"github.com/san-kum/episim/internal/model"
)

// NewSEIR adds a latent stage to SIR and halves contacts from day 40 on.
func NewSEIR() (*model.Model, error) {
	m, err := model.New("seir", 10000, model.DivisionSpec{
		Name: "Health",
		Categories: []model.CategorySpec{
			{Name: "S", Description: "susceptible"},
			{Name: "E", Description: "exposed"},
			{Name: "I", Description: "infectious"},
			{Name: "R", Description: "removed"},
		},
	})
	if err != nil {
		return nil, err
	}
	b := builder{m: m}
	b.value("S", 9950)
	b.value("E", 40)
	b.value("I", 10)
	b.param("N", "population size", "S+E+I+R")
	b.param("beta", "contact rate per day", "0.5")
	b.param("sigma", "inverse latency in days", "1/5.2")
	b.param("gamma", "inverse infectious period in days", "1/7")
	b.process("infection", "new exposures per day",
		model.TimeSegment{Start: 0, Definition: "beta*S*I/N"},
		model.TimeSegment{Start: 40, Definition: "0.5*beta*S*I/N"},
	)
	b.process("onset", "exposed becoming infectious", model.TimeSegment{Definition: "sigma*E"})
	b.process("removal", "infectious removed per day", model.TimeSegment{Definition: "gamma*I"})
	b.define("S", "-infection")
	b.define("E", "infection-onset")
	b.define("I", "onset-removal")
	b.define("R", "removal")
	return b.done()
}
