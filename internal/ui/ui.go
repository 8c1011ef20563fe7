// Package ui provides the interactive map viewer using Bubble Tea.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-carto/internal/carto"
	"github.com/litescript/ls-carto/internal/state"
	"github.com/litescript/ls-carto/internal/version"
)

// ViewMode represents the current UI view.
type ViewMode int

const (
	ViewMap ViewMode = iota
	ViewParans
	ViewEvents

	numViews = 3
)

// ComputeFunc produces the projection for one instant.
type ComputeFunc func(ctx context.Context, t time.Time) (*carto.Projection, error)

// Msg types for Bubble Tea
type (
	// ProjectionMsg carries the result of one compute run.
	ProjectionMsg struct {
		Instant    time.Time
		Projection *carto.Projection
		Duration   time.Duration
		Err        error
	}
)

// Options configures the root model.
type Options struct {
	Context context.Context
	Marker  *carto.GeoVertex // observer location drawn on the map
}

// Model is the root Bubble Tea model.
type Model struct {
	// Dependencies
	state   *state.Manager
	compute ComputeFunc
	ctx     context.Context

	// UI state
	viewMode ViewMode
	width    int
	height   int
	ready    bool
	keys     keyMap
	help     help.Model
	spinner  spinner.Model

	// Compute state: at most one run in flight, the latest request waits
	computing bool
	pending   *time.Time

	// Sub-models
	mapView    MapViewModel
	paranView  ParanViewModel
	eventsView EventsViewModel

	snapshot state.Snapshot
}

// New creates a new root UI model.
func New(stateMgr *state.Manager, compute ComputeFunc, opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7B2CBF"))

	h := help.New()
	h.Styles.ShortKey = lipgloss.NewStyle().Foreground(lipgloss.Color("#9D4EDD"))
	h.Styles.ShortDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	h.Styles.FullKey = h.Styles.ShortKey
	h.Styles.FullDesc = h.Styles.ShortDesc

	return Model{
		state:      stateMgr,
		compute:    compute,
		ctx:        ctx,
		viewMode:   ViewMap,
		keys:       defaultKeyMap(),
		help:       h,
		spinner:    sp,
		mapView:    NewMapViewModel(opts.Marker),
		paranView:  NewParanViewModel(),
		eventsView: NewEventsViewModel(),
		snapshot:   stateMgr.Snapshot(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.runCmd(m.state.Instant()),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.NextView):
			m.viewMode = (m.viewMode + 1) % numViews
		case key.Matches(msg, m.keys.Earlier):
			cmds = append(cmds, m.request(m.state.Advance(-1)))
		case key.Matches(msg, m.keys.Later):
			cmds = append(cmds, m.request(m.state.Advance(1)))
		case key.Matches(msg, m.keys.Reset):
			cmds = append(cmds, m.request(m.state.Reset()))
		case key.Matches(msg, m.keys.StepUp):
			m.state.CycleStep(1)
			m.snapshot = m.state.Snapshot()
		case key.Matches(msg, m.keys.StepDown):
			m.state.CycleStep(-1)
			m.snapshot = m.state.Snapshot()
		default:
			// Pass to active view
			cmds = append(cmds, m.updateActiveView(msg))
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width

		// Title and tabs take 3 lines, footer 2
		contentHeight := msg.Height - 5
		m.mapView = m.mapView.SetSize(msg.Width, contentHeight)
		m.paranView = m.paranView.SetSize(msg.Width, contentHeight)
		m.eventsView = m.eventsView.SetSize(msg.Width, contentHeight)

	case ProjectionMsg:
		m.computing = false
		m.state.Update(msg.Projection, msg.Duration, msg.Err)
		m.snapshot = m.state.Snapshot()
		m.mapView = m.mapView.UpdateData(m.snapshot)
		m.paranView = m.paranView.UpdateData(m.snapshot)
		m.eventsView = m.eventsView.UpdateData(m.snapshot)

		if m.pending != nil {
			next := *m.pending
			m.pending = nil
			cmds = append(cmds, m.runCmd(next))
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		cmds = append(cmds, m.updateActiveView(msg))
	}

	return m, tea.Batch(cmds...)
}

// request schedules a run for t, or queues it behind the run in flight.
// Only the newest queued instant is kept.
func (m *Model) request(t time.Time) tea.Cmd {
	m.snapshot = m.state.Snapshot()
	if m.computing {
		m.pending = &t
		return nil
	}
	return m.runCmd(t)
}

func (m *Model) runCmd(t time.Time) tea.Cmd {
	if m.compute == nil {
		return nil
	}
	m.computing = true
	compute, ctx := m.compute, m.ctx
	return func() tea.Msg {
		start := time.Now()
		p, err := compute(ctx, t)
		return ProjectionMsg{Instant: t, Projection: p, Duration: time.Since(start), Err: err}
	}
}

func (m *Model) updateActiveView(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch m.viewMode {
	case ViewMap:
		m.mapView, cmd = m.mapView.Update(msg)
	case ViewParans:
		m.paranView, cmd = m.paranView.Update(msg)
	case ViewEvents:
		m.eventsView, cmd = m.eventsView.Update(msg)
	}
	return cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var content string
	switch m.viewMode {
	case ViewMap:
		content = m.mapView.View()
	case ViewParans:
		content = m.paranView.View()
	case ViewEvents:
		content = m.eventsView.View()
	}

	return m.renderHeader() + "\n" + content + "\n" + m.renderFooter()
}

func (m Model) renderHeader() string {
	return m.renderTitle() + "\n" + m.renderTabs() + "\n"
}

func (m Model) renderTitle() string {
	title := []rune(fmt.Sprintf("  ls-carto v%s · astrocartography", version.Version))

	// Horizontal truecolor gradient
	var b strings.Builder
	for col, r := range title {
		color := gradientColor(col, 0, len(title), 1)
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true).Render(string(r)))
	}
	return b.String()
}

// gradientColor returns a hex color for a position in the title gradient:
// blue -> purple -> magenta -> pink, darker toward the bottom.
func gradientColor(col, row, width, height int) string {
	xRatio := float64(col) / float64(width)
	yRatio := float64(row) / float64(height)

	var r, g, b float64
	if xRatio < 0.33 {
		// Blue to Purple
		t := xRatio / 0.33
		r = 59 + t*(139-59)
		g = 130 + t*(92-130)
		b = 246
	} else if xRatio < 0.66 {
		// Purple to Magenta
		t := (xRatio - 0.33) / 0.33
		r = 139 + t*(217-139)
		g = 92 + t*(70-92)
		b = 246 + t*(239-246)
	} else {
		// Magenta to Pink
		t := (xRatio - 0.66) / 0.34
		r = 217 + t*(236-217)
		g = 70 + t*(72-70)
		b = 239 + t*(153-239)
	}

	brightness := 1.0 - (yRatio * 0.5)
	clamp := func(v float64) int { return min(max(int(v*brightness), 0), 255) }

	return fmt.Sprintf("#%02X%02X%02X", clamp(r), clamp(g), clamp(b))
}

func (m Model) renderTabs() string {
	tabs := []string{"Map", "Parans", "Events"}
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9D4EDD")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))

	var parts []string
	for i, tab := range tabs {
		if ViewMode(i) == m.viewMode {
			parts = append(parts, activeStyle.Render("▶ "+tab))
		} else {
			parts = append(parts, dimStyle.Render("  "+tab))
		}
	}

	instant := m.snapshot.Instant.UTC().Format("2006-01-02 15:04 MST")
	clock := dimStyle.Render(fmt.Sprintf("%s  step %s", instant, formatStep(m.snapshot.Step)))
	return "  " + strings.Join(parts, "  ") + "    " + clock
}

func (m Model) renderFooter() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27"))

	var status string
	switch {
	case m.computing:
		status = m.spinner.View() + dimStyle.Render(" computing")
	case m.snapshot.LastError != nil:
		status = errorStyle.Render("ERROR: " + m.snapshot.LastError.Error())
	case m.snapshot.Projection != nil:
		p := m.snapshot.Projection
		status = dimStyle.Render(fmt.Sprintf("%d lines · %d parans · %d warnings (%s)",
			len(p.Lines), len(p.Parans), len(p.Warnings), m.snapshot.RunDuration.Round(time.Millisecond)))
	default:
		status = dimStyle.Render("waiting for data")
	}

	return "  " + status + "\n  " + m.help.View(m.keys)
}

// formatStep renders a scrub step compactly: 15m, 1h, 1d, 7d.
func formatStep(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		return fmt.Sprintf("%dd", d/(24*time.Hour))
	case d >= time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d >= time.Minute && d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return d.String()
	}
}
