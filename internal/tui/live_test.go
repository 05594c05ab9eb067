package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/episim/internal/sim"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestModel_Events(t *testing.T) {
	events := make(chan sim.Event, 8)
	m := NewModel("sir", []string{"S", "I"}, events, nil)

	m, _ = update(t, m, EventMsg{Kind: sim.EventStarted})
	if m.status != sim.Running {
		t.Errorf("status = %s, want running", m.status)
	}
	m, cmd := update(t, m, EventMsg{Kind: sim.EventSample, Time: 5, Values: []float64{90, 10}, Progress: 0.5})
	if cmd == nil {
		t.Error("expected a command waiting for the next event")
	}
	if m.samples != 1 || m.history[1][0] != 10 {
		t.Errorf("sample not recorded: %+v", m.history)
	}

	sum := &sim.Summary{Status: sim.Completed, Steps: 100, Evaluations: 400}
	m, _ = update(t, m, EventMsg{Kind: sim.EventDone, Time: 10, Progress: 1, Summary: sum})
	if m.Summary() != sum || m.status != sim.Completed {
		t.Errorf("done event not applied")
	}

	view := m.View()
	for _, want := range []string{"SIR", "COMPLETED", "100 (0 rejected)", "q: quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view misses %q:\n%s", want, view)
		}
	}
}

func TestModel_QuitCancels(t *testing.T) {
	cancelled := false
	m := NewModel("sir", []string{"S"}, make(chan sim.Event), func() { cancelled = true })

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !cancelled {
		t.Error("quitting a running task should cancel it")
	}
	if cmd != nil {
		t.Error("the view should wait for the done event")
	}
	if !strings.Contains(m.View(), "cancelling") {
		t.Error("expected the cancelling hint")
	}

	_, cmd = update(t, m, ClosedMsg{})
	if cmd == nil {
		t.Error("expected quit once the stream closed")
	}
}

func TestModel_WaitReadsChannel(t *testing.T) {
	events := make(chan sim.Event, 1)
	m := NewModel("sir", []string{"S"}, events, nil)

	events <- sim.Event{Kind: sim.EventProgress, Time: 1}
	if msg, ok := m.Init()().(EventMsg); !ok || msg.Time != 1 {
		t.Errorf("unexpected message %#v", msg)
	}
	close(events)
	if _, ok := m.Init()().(ClosedMsg); !ok {
		t.Error("expected ClosedMsg on a closed stream")
	}
}
