// Package tui shows a running simulation in the terminal.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/episim/internal/sim"
	"github.com/san-kum/episim/internal/viz"
)

const (
	barWidth     = 40
	historyWidth = 48
)

// EventMsg carries one event of the observed task.
type EventMsg sim.Event

// ClosedMsg reports that the event stream has ended.
type ClosedMsg struct{}

// Model follows a task through its event stream. Quitting while the task
// runs cancels it and waits for its done event.
type Model struct {
	title    string
	labels   []string
	events   <-chan sim.Event
	cancel   func()
	status   sim.Status
	progress float64
	time     float64
	samples  int
	history  [][]float64
	summary  *sim.Summary
	quitting bool
}

func NewModel(title string, labels []string, events <-chan sim.Event, cancel func()) Model {
	return Model{
		title:   title,
		labels:  labels,
		events:  events,
		cancel:  cancel,
		status:  sim.Idle,
		history: make([][]float64, len(labels)),
	}
}

// Summary returns the summary of the done event, nil before it.
func (m Model) Summary() *sim.Summary { return m.summary }

func (m Model) Init() tea.Cmd { return m.wait() }

func (m Model) wait() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return ClosedMsg{}
		}
		return EventMsg(ev)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.summary != nil {
				return m, tea.Quit
			}
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	case EventMsg:
		m.apply(sim.Event(msg))
		return m, m.wait()
	case ClosedMsg:
		if m.quitting || m.summary == nil {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Model) apply(ev sim.Event) {
	switch ev.Kind {
	case sim.EventStarted:
		m.status = sim.Running
	case sim.EventSample:
		m.samples++
		for i, v := range ev.Values {
			if i < len(m.history) {
				m.history[i] = append(m.history[i], v)
				if len(m.history[i]) > historyWidth {
					m.history[i] = m.history[i][1:]
				}
			}
		}
	case sim.EventDone:
		m.summary = ev.Summary
		if ev.Summary != nil {
			m.status = ev.Summary.Status
		}
	}
	m.time, m.progress = ev.Time, ev.Progress
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(viz.Title.Render(strings.ToUpper(m.title)) + "  " + viz.Status(m.status.String()) + "\n\n")
	s.WriteString(viz.ProgressBar(m.progress, barWidth) + fmt.Sprintf(" %5.1f%%\n", 100*m.progress))
	s.WriteString(viz.MetricLabel.Render("time") + viz.MetricValue.Render(fmt.Sprintf("%.3f", m.time)) + "\n")
	s.WriteString(viz.MetricLabel.Render("samples") + viz.MetricValue.Render(fmt.Sprint(m.samples)) + "\n\n")

	for i, label := range m.labels {
		last := 0.0
		if n := len(m.history[i]); n > 0 {
			last = m.history[i][n-1]
		}
		s.WriteString(viz.MetricLabel.Render(label) + viz.Sparkline(m.history[i], historyWidth) +
			" " + viz.MetricValue.Render(fmt.Sprintf("%.2f", last)) + "\n")
	}

	if sum := m.summary; sum != nil {
		s.WriteString("\n" + viz.Separator(barWidth) + "\n")
		s.WriteString(viz.MetricLabel.Render("steps") + fmt.Sprintf("%d (%d rejected)\n", sum.Steps, sum.Rejected))
		s.WriteString(viz.MetricLabel.Render("evaluations") + fmt.Sprint(sum.Evaluations) + "\n")
		if sum.Err != nil {
			s.WriteString(viz.MetricLabel.Render("error") + sum.Err.Error() + "\n")
		}
		s.WriteString(viz.KeyHint.Render("\nq: quit"))
	} else if m.quitting {
		s.WriteString(viz.KeyHint.Render("\ncancelling..."))
	} else {
		s.WriteString(viz.KeyHint.Render("\nq: cancel run"))
	}
	return viz.Panel.Render(s.String())
}

// Run shows the task's events until the user quits after the run ended.
func Run(title string, labels []string, events <-chan sim.Event, cancel func()) (*sim.Summary, error) {
	final, err := tea.NewProgram(NewModel(title, labels, events, cancel)).Run()
	if err != nil {
		return nil, err
	}
	return final.(Model).Summary(), nil
}
