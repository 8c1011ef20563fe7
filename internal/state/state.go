// Package state provides thread-safe state management for the interactive
// map: the latest projection, the instant being viewed, run history and an
// event log of changes between runs.
package state

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/litescript/ls-carto/internal/carto"
)

// EventType represents the type of state change event.
type EventType string

const (
	EventParanGained   EventType = "PARAN_GAINED"
	EventParanLost     EventType = "PARAN_LOST"
	EventBodyFailed    EventType = "BODY_FAILED"
	EventBodyRecovered EventType = "BODY_RECOVERED"
)

// Event represents a change between two consecutive projections.
type Event struct {
	Type    EventType `json:"type"`
	Instant time.Time `json:"instant"` // projection instant that produced the event
	Body    string    `json:"body"`
	Detail  string    `json:"detail,omitempty"`
}

// HistoryEntry summarizes one completed run.
type HistoryEntry struct {
	Instant  time.Time
	Lines    int
	Parans   int
	Warnings int
	Duration time.Duration
}

// paranKey identifies a paran independent of its exact latitude.
type paranKey struct {
	bodyA, bodyB string
	kindA, kindB carto.LineKind
}

// Manager handles all shared UI state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	// Current state
	current     *carto.Projection
	lastRun     time.Time
	lastError   error
	runDuration time.Duration

	// Viewed instant and scrub step
	origin  time.Time
	instant time.Time
	step    time.Duration

	// Previous run for event detection
	prevParans map[paranKey]bool
	prevFailed map[string]bool

	history       []HistoryEntry
	maxHistoryLen int

	// Event log (ring buffer)
	events       []Event
	maxEvents    int
	eventWriteAt int
}

// Config holds configuration for the state manager.
type Config struct {
	MaxHistoryLen int
	MaxEvents     int
	Step          time.Duration
}

// Steps are the scrub increments offered by the UI, smallest first.
var Steps = []time.Duration{
	time.Minute,
	15 * time.Minute,
	time.Hour,
	6 * time.Hour,
	24 * time.Hour,
	7 * 24 * time.Hour,
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxHistoryLen: 60,
		MaxEvents:     50,
		Step:          time.Hour,
	}
}

// NewManager creates a state manager viewing origin.
func NewManager(cfg Config, origin time.Time) *Manager {
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = 50
	}
	step := cfg.Step
	if step <= 0 {
		step = time.Hour
	}
	return &Manager{
		origin:        origin,
		instant:       origin,
		step:          step,
		maxHistoryLen: cfg.MaxHistoryLen,
		maxEvents:     maxEvents,
		events:        make([]Event, 0, maxEvents),
	}
}

// Update atomically records a finished run. A failed run keeps the previous
// projection on screen.
func (m *Manager) Update(p *carto.Projection, runDuration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastRun = time.Now()
	m.lastError = err
	m.runDuration = runDuration

	if p == nil {
		return
	}

	m.detectEvents(p)
	m.current = p

	m.history = append(m.history, HistoryEntry{
		Instant:  p.Instant,
		Lines:    len(p.Lines),
		Parans:   len(p.Parans),
		Warnings: len(p.Warnings),
		Duration: runDuration,
	})
	if m.maxHistoryLen > 0 && len(m.history) > m.maxHistoryLen {
		m.history = m.history[1:]
	}
}

// detectEvents compares a new projection with the previous one. The first
// projection only seeds the comparison.
func (m *Manager) detectEvents(p *carto.Projection) {
	parans := make(map[paranKey]bool, len(p.Parans))
	for _, ev := range p.Parans {
		parans[paranKey{bodyA: ev.BodyA, kindA: ev.KindA, bodyB: ev.BodyB, kindB: ev.KindB}] = true
	}
	failed := make(map[string]bool)
	for _, w := range p.Warnings {
		if w.Stage == carto.StageEphemeris {
			failed[w.Body] = true
		}
	}

	if m.prevParans != nil {
		for _, k := range sortedParanKeys(parans) {
			if !m.prevParans[k] {
				m.addEvent(Event{Type: EventParanGained, Instant: p.Instant, Body: k.bodyA, Detail: pairDetail(k)})
			}
		}
		for _, k := range sortedParanKeys(m.prevParans) {
			if !parans[k] {
				m.addEvent(Event{Type: EventParanLost, Instant: p.Instant, Body: k.bodyA, Detail: pairDetail(k)})
			}
		}
		for _, body := range sortedBodies(failed) {
			if !m.prevFailed[body] {
				m.addEvent(Event{Type: EventBodyFailed, Instant: p.Instant, Body: body})
			}
		}
		for _, body := range sortedBodies(m.prevFailed) {
			if !failed[body] {
				m.addEvent(Event{Type: EventBodyRecovered, Instant: p.Instant, Body: body})
			}
		}
	}

	m.prevParans = parans
	m.prevFailed = failed
}

func sortedParanKeys(set map[paranKey]bool) []paranKey {
	keys := make([]paranKey, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b paranKey) int {
		return cmp.Or(
			cmp.Compare(a.bodyA, b.bodyA),
			cmp.Compare(a.kindA, b.kindA),
			cmp.Compare(a.bodyB, b.bodyB),
			cmp.Compare(a.kindB, b.kindB),
		)
	})
	return keys
}

func sortedBodies(set map[string]bool) []string {
	bodies := make([]string, 0, len(set))
	for b := range set {
		bodies = append(bodies, b)
	}
	slices.Sort(bodies)
	return bodies
}

func pairDetail(k paranKey) string {
	return k.bodyA + " " + k.kindA.String() + " / " + k.bodyB + " " + k.kindB.String()
}

// addEvent adds an event to the ring buffer.
func (m *Manager) addEvent(e Event) {
	if len(m.events) < m.maxEvents {
		m.events = append(m.events, e)
	} else {
		m.events[m.eventWriteAt] = e
		m.eventWriteAt = (m.eventWriteAt + 1) % m.maxEvents
	}
}

// Snapshot represents an immutable snapshot of current state.
type Snapshot struct {
	Projection  *carto.Projection
	Instant     time.Time // instant being viewed; may be ahead of Projection.Instant
	Step        time.Duration
	LastRun     time.Time
	LastError   error
	RunDuration time.Duration
	History     []HistoryEntry
	Events      []Event
}

// Snapshot returns a consistent snapshot of current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hist := make([]HistoryEntry, len(m.history))
	copy(hist, m.history)

	return Snapshot{
		Projection:  m.current,
		Instant:     m.instant,
		Step:        m.step,
		LastRun:     m.lastRun,
		LastError:   m.lastError,
		RunDuration: m.runDuration,
		History:     hist,
		Events:      m.getEventsOrdered(),
	}
}

// getEventsOrdered returns events in chronological order.
func (m *Manager) getEventsOrdered() []Event {
	if len(m.events) == 0 {
		return nil
	}

	if len(m.events) < m.maxEvents {
		result := make([]Event, len(m.events))
		copy(result, m.events)
		return result
	}

	// Ring buffer is full, reorder from oldest to newest
	result := make([]Event, m.maxEvents)
	for i := 0; i < m.maxEvents; i++ {
		result[i] = m.events[(m.eventWriteAt+i)%m.maxEvents]
	}
	return result
}

// RecentEvents returns the last n events.
func (m *Manager) RecentEvents(n int) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.getEventsOrdered()
	if len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}

// Instant returns the instant being viewed.
func (m *Manager) Instant() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instant
}

// Advance moves the viewed instant by n steps and returns it.
func (m *Manager) Advance(n int) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instant = m.instant.Add(time.Duration(n) * m.step)
	return m.instant
}

// Reset returns the viewed instant to the origin.
func (m *Manager) Reset() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instant = m.origin
	return m.instant
}

// Step returns the scrub increment.
func (m *Manager) Step() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.step
}

// CycleStep moves to the next larger (dir > 0) or smaller scrub step in
// Steps, stopping at either end.
func (m *Manager) CycleStep(dir int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := 0
	for i, s := range Steps {
		if s <= m.step {
			idx = i
		}
	}
	switch {
	case dir > 0 && idx < len(Steps)-1:
		idx++
	case dir < 0 && idx > 0 && Steps[idx] == m.step:
		idx--
	}
	m.step = Steps[idx]
	return m.step
}

// HasData returns true once a run has succeeded.
func (m *Manager) HasData() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil
}
