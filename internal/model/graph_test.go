package model_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/episim/internal/model"
)

var _ = Describe("Graph", func() {
	var g *model.Graph

	BeforeEach(func() {
		g = model.NewGraph()
	})

	It("should record forward and back links", func() {
		g.Link("a", "b")
		g.Link("a", "c")
		g.Link("d", "b")

		Expect(g.Referenced("a")).To(Equal([]model.ID{"b", "c"}))
		Expect(g.Referrers("b")).To(Equal([]model.ID{"a", "d"}))
		Expect(g.References("a", "b")).To(BeTrue())
		Expect(g.References("b", "a")).To(BeFalse())
		Expect(g.Edges()).To(Equal(3))
	})

	It("should ignore duplicate links", func() {
		g.Link("a", "b")
		g.Link("a", "b")
		Expect(g.Edges()).To(Equal(1))
	})

	Context("when unlinking", func() {
		It("should drop only the references of the given entity", func() {
			g.Link("a", "b")
			g.Link("d", "b")
			g.Unlink("a")

			Expect(g.Referenced("a")).To(BeEmpty())
			Expect(g.Referrers("b")).To(Equal([]model.ID{"d"}))
			Expect(g.HasReferrers("b")).To(BeTrue())
		})
	})

	Context("when removing", func() {
		It("should drop every edge touching the entity", func() {
			g.Link("a", "b")
			g.Link("b", "c")
			g.Remove("b")

			Expect(g.Edges()).To(Equal(0))
			Expect(g.HasReferrers("c")).To(BeFalse())
			Expect(g.Referenced("a")).To(BeEmpty())
		})
	})
})

var _ = Describe("Model references", func() {
	var m *model.Model

	BeforeEach(func() {
		var err error
		m, err = model.New("city", 500, model.Div("Health", "S", "I", "R"), model.Div("Age", "young", "old"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should keep back-links symmetric with forward links", func() {
		beta, err := m.AddParameter("beta", "", "0.2")
		Expect(err).NotTo(HaveOccurred())
		inf, err := m.AddProcess("infection", "", model.TimeSegment{Definition: "beta*S_young*(I_young + I_old)/500"})
		Expect(err).NotTo(HaveOccurred())
		Expect(m.SetCompartmentDefinition("I_young", "infection")).To(Succeed())

		for _, from := range []model.ID{beta.ID, inf.ID} {
			for _, to := range m.Graph().Referenced(from) {
				Expect(m.Graph().Referrers(to)).To(ContainElement(from))
			}
		}
		Expect(m.Graph().Referrers(beta.ID)).To(Equal([]model.ID{inf.ID}))
	})

	It("should relink a definition when it is revised", func() {
		p, err := m.AddParameter("N", "", "young")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Graph().Referenced(p.ID)).To(HaveLen(3))

		Expect(m.SetParameterDefinition("N", "old + young")).To(Succeed())
		Expect(m.Graph().Referenced(p.ID)).To(HaveLen(6))

		Expect(m.SetParameterDefinition("N", "S_old + ")).NotTo(Succeed())
		Expect(m.Graph().Referenced(p.ID)).To(HaveLen(6))
	})

	It("should resolve a dangling reference once the name is added", func() {
		Expect(m.SetCompartmentDefinition("R_old", "gamma*I_old")).NotTo(Succeed())

		_, err := m.AddParameter("gamma", "", "0.1")
		Expect(err).NotTo(HaveOccurred())
		Expect(m.SetCompartmentDefinition("R_old", "gamma*I_old")).To(Succeed())

		d, err := m.Dependents("gamma")
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Compartments).To(Equal([]string{"R_old"}))
	})
})
