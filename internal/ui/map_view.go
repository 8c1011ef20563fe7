package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-carto/internal/carto"
	"github.com/litescript/ls-carto/internal/render"
	"github.com/litescript/ls-carto/internal/state"
)

// MapViewModel shows the projection on a terminal world map.
type MapViewModel struct {
	width  int
	height int
	keys   mapKeyMap

	projection *carto.Projection
	bodies     []string

	// Focus: 0 shows every body evenly, i > 0 highlights bodies[i-1]
	focusIdx int

	hidden     map[carto.LineKind]bool
	showParans bool
	marker     *carto.GeoVertex
}

// NewMapViewModel creates a map view with every kind and paran shown.
func NewMapViewModel(marker *carto.GeoVertex) MapViewModel {
	return MapViewModel{
		keys:       defaultMapKeyMap(),
		hidden:     make(map[carto.LineKind]bool),
		showParans: true,
		marker:     marker,
	}
}

// SetSize updates the view size.
func (m MapViewModel) SetSize(width, height int) MapViewModel {
	m.width = width
	m.height = height
	return m
}

// UpdateData takes the latest projection, keeping focus on the same body
// when it is still present.
func (m MapViewModel) UpdateData(snapshot state.Snapshot) MapViewModel {
	if snapshot.Projection == nil {
		return m
	}
	focused := m.Focus()
	m.projection = snapshot.Projection
	m.bodies = snapshot.Projection.Bodies()

	m.focusIdx = 0
	for i, b := range m.bodies {
		if b == focused {
			m.focusIdx = i + 1
		}
	}
	return m
}

// Update handles messages.
func (m MapViewModel) Update(msg tea.Msg) (MapViewModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.FocusNext):
		m.focusIdx = (m.focusIdx + 1) % (len(m.bodies) + 1)
	case key.Matches(keyMsg, m.keys.FocusPrev):
		m.focusIdx--
		if m.focusIdx < 0 {
			m.focusIdx = len(m.bodies)
		}
	case key.Matches(keyMsg, m.keys.ToggleAC):
		m = m.toggleKind(carto.Rise)
	case key.Matches(keyMsg, m.keys.ToggleDC):
		m = m.toggleKind(carto.Set)
	case key.Matches(keyMsg, m.keys.ToggleMC):
		m = m.toggleKind(carto.UpperCulmination)
	case key.Matches(keyMsg, m.keys.ToggleIC):
		m = m.toggleKind(carto.LowerCulmination)
	case key.Matches(keyMsg, m.keys.ToggleParans):
		m.showParans = !m.showParans
	}
	return m, nil
}

func (m MapViewModel) toggleKind(k carto.LineKind) MapViewModel {
	hidden := make(map[carto.LineKind]bool, len(m.hidden)+1)
	for kk, v := range m.hidden {
		hidden[kk] = v
	}
	hidden[k] = !hidden[k]
	m.hidden = hidden
	return m
}

// Focus returns the highlighted body, or "" when none is.
func (m MapViewModel) Focus() string {
	if m.focusIdx <= 0 || m.focusIdx > len(m.bodies) {
		return ""
	}
	return m.bodies[m.focusIdx-1]
}

// Kinds returns the kinds currently drawn.
func (m MapViewModel) Kinds() []carto.LineKind {
	kinds := make([]carto.LineKind, 0, len(carto.AllKinds))
	for _, k := range carto.AllKinds {
		if !m.hidden[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// View renders the map view.
func (m MapViewModel) View() string {
	if m.width < 20 || m.height < 10 {
		return "Map view requires larger terminal"
	}
	if m.projection == nil {
		return "No projection yet"
	}

	// Header 1 line, legend 2, status 1
	opts := render.MapOptions{
		Width:      m.width,
		Height:     m.height - 4,
		Kinds:      m.Kinds(),
		ShowParans: m.showParans,
		Focus:      m.Focus(),
		Marker:     m.marker,
		Color:      true,
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(render.WorldMap(m.projection, opts))
	b.WriteString("\n")
	b.WriteString(render.Legend(m.bodies, true))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	return b.String()
}

func (m MapViewModel) renderHeader() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("135"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229"))

	focus := dimStyle.Render("All bodies")
	if f := m.Focus(); f != "" {
		focus = accentStyle.Render(f)
	}

	var kinds []string
	for _, k := range carto.AllKinds {
		if m.hidden[k] {
			kinds = append(kinds, dimStyle.Render(strings.ToLower(k.String())))
		} else {
			kinds = append(kinds, accentStyle.Render(k.String()))
		}
	}

	parans := dimStyle.Render("Parans: off")
	if m.showParans {
		parans = accentStyle.Render("Parans: on")
	}

	return fmt.Sprintf("%s | %s | %s | %s", titleStyle.Render("World Map"), focus, strings.Join(kinds, " "), parans)
}

// renderStatus lists where the focused body's lines cross the equator.
func (m MapViewModel) renderStatus() string {
	focus := m.Focus()
	if focus == "" {
		return ""
	}

	var parts []string
	for _, k := range carto.AllKinds {
		f, ok := m.projection.Feature(focus, k)
		if !ok {
			continue
		}
		switch lon, crosses := render.EquatorCrossing(f); {
		case f.Err != nil:
			parts = append(parts, k.String()+" failed")
		case crosses:
			parts = append(parts, k.String()+" "+render.FormatLon(lon))
		}
	}

	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
	return accentStyle.Render(">>> " + focus + " @ equator: " + strings.Join(parts, " | "))
}
