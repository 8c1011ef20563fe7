package state

import (
	"sync"
	"testing"
	"time"

	"github.com/litescript/ls-carto/internal/carto"
)

var origin = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

func projection(at time.Time, parans []carto.ParanEvent, failed ...string) *carto.Projection {
	p := &carto.Projection{
		Instant: at,
		Lines:   []carto.PolylineFeature{{Body: "Sun", Kind: carto.Rise}},
		Parans:  parans,
	}
	for _, body := range failed {
		p.Warnings = append(p.Warnings, carto.Warning{Stage: carto.StageEphemeris, Body: body, Message: "no data"})
	}
	return p
}

var sunMarsParan = carto.ParanEvent{
	BodyA: "Mars", KindA: carto.UpperCulmination,
	BodyB: "Sun", KindB: carto.Rise,
	Lat: 40, Lon: 10, HasLon: true,
}

func TestNewManager(t *testing.T) {
	cfg := DefaultConfig()
	m := NewManager(cfg, origin)

	if m == nil {
		t.Fatal("NewManager returned nil")
	}
	if m.Step() != cfg.Step {
		t.Errorf("Step = %v, want %v", m.Step(), cfg.Step)
	}
	if !m.Instant().Equal(origin) {
		t.Errorf("Instant = %v, want %v", m.Instant(), origin)
	}
	if m.HasData() {
		t.Error("HasData should be false initially")
	}
}

func TestNewManager_ZeroConfig(t *testing.T) {
	m := NewManager(Config{}, origin)
	if m.Step() != time.Hour {
		t.Errorf("Step = %v, want 1h", m.Step())
	}
	if m.maxEvents != 50 {
		t.Errorf("maxEvents = %d, want 50", m.maxEvents)
	}
}

func TestManager_Update(t *testing.T) {
	m := NewManager(DefaultConfig(), origin)

	p := projection(origin, nil)
	m.Update(p, 100*time.Millisecond, nil)

	if !m.HasData() {
		t.Error("HasData should be true after Update")
	}

	snap := m.Snapshot()
	if snap.Projection != p {
		t.Error("Snapshot Projection doesn't match")
	}
	if snap.RunDuration != 100*time.Millisecond {
		t.Errorf("RunDuration = %v, want 100ms", snap.RunDuration)
	}
	if snap.LastError != nil {
		t.Errorf("LastError = %v, want nil", snap.LastError)
	}
	if len(snap.History) != 1 || snap.History[0].Lines != 1 {
		t.Errorf("History = %+v, want one entry with 1 line", snap.History)
	}
}

func TestManager_UpdateWithErrorKeepsProjection(t *testing.T) {
	m := NewManager(DefaultConfig(), origin)

	p := projection(origin, nil)
	m.Update(p, 0, nil)

	testErr := &testError{msg: "run failed"}
	m.Update(nil, 50*time.Millisecond, testErr)

	snap := m.Snapshot()
	if snap.Projection != p {
		t.Error("failed run should keep the previous projection")
	}
	if snap.LastError != testErr {
		t.Errorf("LastError = %v, want %v", snap.LastError, testErr)
	}
	if len(snap.History) != 1 {
		t.Errorf("history length = %d, want 1", len(snap.History))
	}
}

func TestManager_HistoryBuffer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxHistoryLen = 3
	m := NewManager(cfg, origin)

	for i := 0; i < 5; i++ {
		m.Update(projection(origin.Add(time.Duration(i)*time.Hour), nil), 0, nil)
	}

	hist := m.Snapshot().History
	if len(hist) != 3 {
		t.Fatalf("history length = %d, want 3", len(hist))
	}
	if want := origin.Add(2 * time.Hour); !hist[0].Instant.Equal(want) {
		t.Errorf("oldest entry = %v, want %v", hist[0].Instant, want)
	}
}

func TestManager_Snapshot_IsCopy(t *testing.T) {
	m := NewManager(DefaultConfig(), origin)
	m.Update(projection(origin, nil), 0, nil)

	snap := m.Snapshot()
	snap.History[0].Lines = 999

	if m.Snapshot().History[0].Lines == 999 {
		t.Error("Snapshot modification affected manager state")
	}
}

func TestManager_Scrub(t *testing.T) {
	m := NewManager(DefaultConfig(), origin)

	if got := m.Advance(3); !got.Equal(origin.Add(3 * time.Hour)) {
		t.Errorf("Advance(3) = %v", got)
	}
	if got := m.Advance(-5); !got.Equal(origin.Add(-2 * time.Hour)) {
		t.Errorf("Advance(-5) = %v", got)
	}
	if got := m.Reset(); !got.Equal(origin) {
		t.Errorf("Reset = %v, want %v", got, origin)
	}
	if !m.Snapshot().Instant.Equal(origin) {
		t.Error("Snapshot Instant should follow Reset")
	}
}

func TestManager_CycleStep(t *testing.T) {
	m := NewManager(DefaultConfig(), origin)

	tests := []struct {
		dir  int
		want time.Duration
	}{
		{1, 6 * time.Hour},
		{1, 24 * time.Hour},
		{1, 7 * 24 * time.Hour},
		{1, 7 * 24 * time.Hour},
		{-1, 24 * time.Hour},
		{-1, 6 * time.Hour},
		{-1, time.Hour},
		{-1, 15 * time.Minute},
		{-1, time.Minute},
		{-1, time.Minute},
	}
	for i, tt := range tests {
		if got := m.CycleStep(tt.dir); got != tt.want {
			t.Errorf("step %d: CycleStep(%d) = %v, want %v", i, tt.dir, got, tt.want)
		}
	}

	m.Advance(2)
	if got := m.Instant(); !got.Equal(origin.Add(2 * time.Minute)) {
		t.Errorf("Advance after CycleStep = %v", got)
	}
}

func TestManager_CycleStep_OffGrid(t *testing.T) {
	m := NewManager(Config{Step: 2 * time.Hour}, origin)
	if got := m.CycleStep(-1); got != time.Hour {
		t.Errorf("CycleStep(-1) from 2h = %v, want 1h", got)
	}

	m = NewManager(Config{Step: 2 * time.Hour}, origin)
	if got := m.CycleStep(1); got != 6*time.Hour {
		t.Errorf("CycleStep(1) from 2h = %v, want 6h", got)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(DefaultConfig(), origin)

	var wg sync.WaitGroup
	iterations := 100

	// Writer goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			var parans []carto.ParanEvent
			if i%2 == 0 {
				parans = []carto.ParanEvent{sunMarsParan}
			}
			m.Update(projection(origin.Add(time.Duration(i)*time.Minute), parans), time.Duration(i)*time.Millisecond, nil)
		}
	}()

	// Reader goroutines
	for r := 0; r < 5; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				_ = m.Snapshot()
				_ = m.HasData()
				_ = m.RecentEvents(5)
				m.Advance(1)
			}
		}()
	}

	wg.Wait()
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

func TestManager_EventDetection_FirstRunSeeds(t *testing.T) {
	m := NewManager(DefaultConfig(), origin)
	m.Update(projection(origin, []carto.ParanEvent{sunMarsParan}, "Pluto"), 0, nil)

	if events := m.RecentEvents(10); len(events) != 0 {
		t.Errorf("first run produced %d events, want 0", len(events))
	}
}

func TestManager_EventDetection_Parans(t *testing.T) {
	m := NewManager(DefaultConfig(), origin)
	m.Update(projection(origin, nil), 0, nil)

	// Two crossings of one pair produce a single gained event
	second := sunMarsParan
	second.Lat = -40
	later := origin.Add(time.Hour)
	m.Update(projection(later, []carto.ParanEvent{sunMarsParan, second}), 0, nil)

	events := m.RecentEvents(10)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != EventParanGained {
		t.Errorf("event type = %q, want PARAN_GAINED", events[0].Type)
	}
	if events[0].Body != "Mars" {
		t.Errorf("body = %q, want Mars", events[0].Body)
	}
	if events[0].Detail != "Mars MC / Sun AC" {
		t.Errorf("detail = %q, want %q", events[0].Detail, "Mars MC / Sun AC")
	}
	if !events[0].Instant.Equal(later) {
		t.Errorf("instant = %v, want %v", events[0].Instant, later)
	}

	m.Update(projection(later.Add(time.Hour), nil), 0, nil)
	events = m.RecentEvents(1)
	if len(events) != 1 || events[0].Type != EventParanLost {
		t.Errorf("last event = %+v, want PARAN_LOST", events)
	}
}

func TestManager_EventDetection_Bodies(t *testing.T) {
	m := NewManager(DefaultConfig(), origin)
	m.Update(projection(origin, nil), 0, nil)
	m.Update(projection(origin, nil, "Saturn", "Chiron"), 0, nil)
	m.Update(projection(origin, nil, "Saturn"), 0, nil)

	events := m.RecentEvents(10)
	want := []struct {
		typ  EventType
		body string
	}{
		{EventBodyFailed, "Chiron"},
		{EventBodyFailed, "Saturn"},
		{EventBodyRecovered, "Chiron"},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(want), events)
	}
	for i, w := range want {
		if events[i].Type != w.typ || events[i].Body != w.body {
			t.Errorf("event %d = %s %s, want %s %s", i, events[i].Type, events[i].Body, w.typ, w.body)
		}
	}
}

func TestManager_EventRingBuffer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEvents = 3
	m := NewManager(cfg, origin)

	m.Update(projection(origin, nil), 0, nil)
	for i := 0; i < 5; i++ {
		var parans []carto.ParanEvent
		if i%2 == 0 {
			parans = []carto.ParanEvent{sunMarsParan}
		}
		m.Update(projection(origin.Add(time.Duration(i+1)*time.Hour), parans), 0, nil)
	}

	// Five alternating events; only the last three survive, oldest first
	events := m.Snapshot().Events
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	wantTypes := []EventType{EventParanGained, EventParanLost, EventParanGained}
	for i, e := range events {
		if e.Type != wantTypes[i] {
			t.Errorf("event %d type = %s, want %s", i, e.Type, wantTypes[i])
		}
		if want := origin.Add(time.Duration(i+3) * time.Hour); !e.Instant.Equal(want) {
			t.Errorf("event %d instant = %v, want %v", i, e.Instant, want)
		}
	}

	if got := m.RecentEvents(2); len(got) != 2 || !got[1].Instant.Equal(origin.Add(5*time.Hour)) {
		t.Errorf("RecentEvents(2) = %+v", got)
	}
}
