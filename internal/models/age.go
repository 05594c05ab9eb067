package models

import (
	"github.com/san-kum/episim/internal/model"
)

var ageHealth = []string{"S", "I", "R"}

// NewAgeSIR stratifies SIR by age. The shortcuts young and old sum each age
// group; contacts between groups are weaker than within them.
func NewAgeSIR() (*model.Model, error) {
	m, err := model.New("age-sir", 5000,
		model.DivisionSpec{
			Name: "Health",
			Categories: []model.CategorySpec{
				{Name: "S", Description: "susceptible"},
				{Name: "I", Description: "infected"},
				{Name: "R", Description: "recovered"},
			},
		},
		model.DivisionSpec{
			Name: "Age",
			Categories: []model.CategorySpec{
				{Name: "young", Description: "under 60"},
				{Name: "old", Description: "60 and over"},
			},
		},
	)
	if err != nil {
		return nil, err
	}
	b := builder{m: m}
	b.value("S_young", 3495)
	b.value("I_young", 5)
	b.value("S_old", 1500)
	b.param("N", "population size", "young+old")
	b.param("beta", "contact rate within a group", "0.35")
	b.param("mixing", "relative contact rate across groups", "0.3")
	b.param("gamma_young", "recovery rate under 60", "1/6")
	b.param("gamma_old", "recovery rate over 60", "1/10")
	b.process("infection_young", "new infections under 60",
		model.TimeSegment{Definition: "beta*S_young*(I_young+mixing*I_old)/N"})
	b.process("infection_old", "new infections over 60",
		model.TimeSegment{Definition: "beta*S_old*(I_old+mixing*I_young)/N"})
	for _, age := range []string{"young", "old"} {
		b.define("S_"+age, "-infection_"+age)
		b.define("I_"+age, "infection_"+age+"-gamma_"+age+"*I_"+age)
		b.define("R_"+age, "gamma_"+age+"*I_"+age)
	}
	return b.done()
}
