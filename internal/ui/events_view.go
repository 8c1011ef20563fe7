package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-carto/internal/state"
)

// EventsViewModel shows the change log between runs, newest first.
type EventsViewModel struct {
	viewport viewport.Model
	events   []state.Event
	history  []state.HistoryEntry
}

// NewEventsViewModel creates an empty event log view.
func NewEventsViewModel() EventsViewModel {
	return EventsViewModel{viewport: viewport.New(80, 20)}
}

// SetSize updates the view size.
func (m EventsViewModel) SetSize(width, height int) EventsViewModel {
	m.viewport.Width = width
	m.viewport.Height = max(height-2, 1)
	m.viewport.SetContent(m.renderContent())
	return m
}

// UpdateData refreshes the log from a snapshot.
func (m EventsViewModel) UpdateData(snapshot state.Snapshot) EventsViewModel {
	m.events = snapshot.Events
	m.history = snapshot.History
	m.viewport.SetContent(m.renderContent())
	return m
}

// Update handles messages.
func (m EventsViewModel) Update(msg tea.Msg) (EventsViewModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the event log.
func (m EventsViewModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("135"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	header := titleStyle.Render("Events") + dimStyle.Render(fmt.Sprintf(" | %d events, %d runs", len(m.events), len(m.history)))
	return header + "\n" + m.viewport.View()
}

var eventColors = map[state.EventType]lipgloss.Color{
	state.EventParanGained:   "#2ecc71",
	state.EventParanLost:     "#95a5a6",
	state.EventBodyFailed:    "#E84A27",
	state.EventBodyRecovered: "#3498db",
}

func (m EventsViewModel) renderContent() string {
	if len(m.events) == 0 {
		return "  No changes yet. Step through time with ←/→."
	}

	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	var b strings.Builder
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		typ := lipgloss.NewStyle().Foreground(eventColors[e.Type]).Render(fmt.Sprintf("%-14s", e.Type))
		subject := e.Body
		if e.Detail != "" {
			subject = e.Detail
		}
		fmt.Fprintf(&b, "  %s %s %s\n", dimStyle.Render(e.Instant.UTC().Format("2006-01-02 15:04")), typ, subject)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
