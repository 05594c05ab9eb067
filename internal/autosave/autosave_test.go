package autosave

import (
	"testing"

	"github.com/mandelsoft/vfs/pkg/memoryfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	. "github.com/onsi/gomega"

	"github.com/san-kum/episim/internal/document"
	"github.com/san-kum/episim/internal/model"
	"github.com/san-kum/episim/internal/sim"
)

func snapshot(t *testing.T) *document.Document {
	t.Helper()
	m, err := model.New("flu", 100, model.Div("Health", "S", "I", "R"))
	if err != nil {
		t.Fatal(err)
	}
	return document.FromModel(m)
}

func TestAutosave_Lifecycle(t *testing.T) {
	g := NewWithT(t)
	fs := memoryfs.New()
	a := New("/state", true, fs)

	_, ok := a.Leftover()
	g.Expect(ok).To(BeFalse())

	g.Expect(a.Write(snapshot(t))).To(BeTrue())
	doc, ok := a.Leftover()
	g.Expect(ok).To(BeTrue())
	g.Expect(doc.Name).To(Equal("flu"))

	a.Finish(sim.Running)
	_, ok = a.Leftover()
	g.Expect(ok).To(BeTrue(), "a running task keeps its snapshot")

	a.Finish(sim.Cancelled)
	_, ok = a.Leftover()
	g.Expect(ok).To(BeFalse())

	a.Remove()
}

func TestAutosave_FinishByStatus(t *testing.T) {
	tests := []struct {
		status sim.Status
		kept   bool
	}{
		{sim.Idle, true},
		{sim.Running, true},
		{sim.Completed, false},
		{sim.Cancelled, false},
		{sim.Failed, false},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			g := NewWithT(t)
			a := New("/state", true, memoryfs.New())
			g.Expect(a.Write(snapshot(t))).To(BeTrue())

			a.Finish(tt.status)
			_, ok := a.Leftover()
			g.Expect(ok).To(Equal(tt.kept))
		})
	}
}

func TestAutosave_SingleSnapshot(t *testing.T) {
	g := NewWithT(t)
	fs := memoryfs.New()
	a := New("/state", true, fs)

	first := snapshot(t)
	second := snapshot(t)
	second.Name = "measles"
	a.Write(first)
	a.Write(second)

	entries, err := vfs.ReadDir(fs, "/state")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(entries).To(HaveLen(1))
	doc, ok := a.Leftover()
	g.Expect(ok).To(BeTrue())
	g.Expect(doc.Name).To(Equal("measles"))
}

func TestAutosave_Disabled(t *testing.T) {
	g := NewWithT(t)
	fs := memoryfs.New()
	a := New("/state", false, fs)

	g.Expect(a.Write(snapshot(t))).To(BeFalse())
	_, ok := a.Leftover()
	g.Expect(ok).To(BeFalse())
}

func TestAutosave_Unreadable(t *testing.T) {
	g := NewWithT(t)
	fs := memoryfs.New()
	a := New("/state", true, fs)

	g.Expect(fs.MkdirAll("/state", 0o755)).To(Succeed())
	g.Expect(vfs.WriteFile(fs, a.Path(), []byte("name: ["), 0o644)).To(Succeed())
	_, ok := a.Leftover()
	g.Expect(ok).To(BeFalse())
}

func TestAutosave_Restore(t *testing.T) {
	g := NewWithT(t)
	fs := memoryfs.New()
	a := New("/state", true, fs)

	restored, err := a.Restore("/models/recovered.yaml", fs)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(restored).To(BeFalse())

	a.Write(snapshot(t))
	restored, err = a.Restore("/models/recovered.yaml", fs)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(restored).To(BeTrue())

	m, _, err := document.LoadModel("/models/recovered.yaml", fs)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(m.CompartmentNames()).To(Equal([]string{"S", "I", "R"}))
	_, ok := a.Leftover()
	g.Expect(ok).To(BeFalse())
}
