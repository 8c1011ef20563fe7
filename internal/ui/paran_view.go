package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-carto/internal/carto"
	"github.com/litescript/ls-carto/internal/render"
	"github.com/litescript/ls-carto/internal/state"
)

// ParanViewModel lists parans in a scrollable table.
type ParanViewModel struct {
	width  int
	height int
	table  table.Model
	parans []carto.ParanEvent
}

// NewParanViewModel creates an empty paran table.
func NewParanViewModel() ParanViewModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Line A", Width: 20},
			{Title: "Line B", Width: 20},
			{Title: "Latitude", Width: 10},
			{Title: "Longitude", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("60")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("#7B2CBF")).
		Bold(false)
	t.SetStyles(styles)

	return ParanViewModel{table: t}
}

// SetSize updates the view size.
func (m ParanViewModel) SetSize(width, height int) ParanViewModel {
	m.width = width
	m.height = height
	m.table.SetWidth(width - 4)
	m.table.SetHeight(max(height-3, 3))
	return m
}

// UpdateData replaces the table rows with the latest parans.
func (m ParanViewModel) UpdateData(snapshot state.Snapshot) ParanViewModel {
	if snapshot.Projection == nil {
		return m
	}
	m.parans = snapshot.Projection.Parans
	m.table.SetRows(paranRows(m.parans))
	if m.table.Cursor() >= len(m.parans) {
		m.table.SetCursor(max(len(m.parans)-1, 0))
	}
	return m
}

func paranRows(parans []carto.ParanEvent) []table.Row {
	rows := make([]table.Row, 0, len(parans))
	for _, ev := range parans {
		lon := "-"
		if ev.HasLon {
			lon = render.FormatLon(ev.Lon)
		}
		rows = append(rows, table.Row{
			ev.BodyA + " " + ev.KindA.String(),
			ev.BodyB + " " + ev.KindB.String(),
			render.FormatLat(ev.Lat),
			lon,
		})
	}
	return rows
}

// Selected returns the paran under the cursor.
func (m ParanViewModel) Selected() (carto.ParanEvent, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.parans) {
		return carto.ParanEvent{}, false
	}
	return m.parans[i], true
}

// Update handles messages.
func (m ParanViewModel) Update(msg tea.Msg) (ParanViewModel, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the paran table.
func (m ParanViewModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("135"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	header := titleStyle.Render("Parans") + dimStyle.Render(fmt.Sprintf(" | %d crossings", len(m.parans)))
	if len(m.parans) == 0 {
		return header + "\n\n" + dimStyle.Render("  No parans for this instant")
	}

	footer := ""
	if ev, ok := m.Selected(); ok {
		footer = "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Render(">>> "+render.ParanLabel(ev))
	}
	return header + "\n" + m.table.View() + footer
}
