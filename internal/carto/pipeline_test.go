package carto

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/litescript/ls-carto/internal/astro"
	"github.com/litescript/ls-carto/internal/ephem"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mapProvider serves a fixed set of positions.
type mapProvider struct {
	positions map[string]astro.BodyPosition
}

func newMapProvider(positions ...astro.BodyPosition) *mapProvider {
	m := &mapProvider{positions: make(map[string]astro.BodyPosition)}
	for _, p := range positions {
		m.positions[p.Body] = p
	}
	return m
}

func (m *mapProvider) Name() string { return "map" }

func (m *mapProvider) Available(body string) bool {
	_, ok := m.positions[body]
	return ok
}

func (m *mapProvider) BodyPosition(ctx context.Context, body string, _ time.Time) (astro.BodyPosition, error) {
	if err := ctx.Err(); err != nil {
		return astro.BodyPosition{}, err
	}
	if p, ok := m.positions[body]; ok {
		return p, nil
	}
	return astro.BodyPosition{}, &ephem.BodyUnavailableError{Body: body, Provider: m.Name(), Err: ephem.ErrUnknownBody}
}

// countingRecorder records pipeline statistics.
type countingRecorder struct {
	mu     sync.Mutex
	runs   int
	lines  int
	parans int
	stages map[Stage]int
}

func (r *countingRecorder) RunCompleted(_ time.Duration, lines, parans, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs++
	r.lines += lines
	r.parans += parans
}

func (r *countingRecorder) StageFailed(stage Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stages == nil {
		r.stages = make(map[Stage]int)
	}
	r.stages[stage]++
}

var testBodies = []astro.BodyPosition{
	{Body: "Sun", RAdeg: 100, DecDeg: 20},
	{Body: "Mars", RAdeg: 250, DecDeg: -22},
	{Body: "Venus", RAdeg: 40, DecDeg: 12},
	{Body: "Regulus", RAdeg: 152.1, DecDeg: 11.97},
}

func testObserver() astro.ObserverContext {
	return astro.ObserverContextFromGMST(50, 45, 0)
}

func fixedID() string { return "test-request" }

func newTestPipeline(t *testing.T, provider ephem.Provider, cfg Config, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithIDGenerator(fixedID)}, opts...)
	p, err := New(provider, cfg, opts...)
	require.NoError(t, err)
	return p
}

func TestPipeline_Lines(t *testing.T) {
	p := newTestPipeline(t, newMapProvider(testBodies...), DefaultConfig())

	proj, err := p.Run(context.Background(), Request{
		Observer: testObserver(),
		Bodies:   []string{"Sun", "Mars"},
	})
	require.NoError(t, err)

	assert.Equal(t, "test-request", proj.RequestID)
	assert.Equal(t, 50.0, proj.GMSTdeg)
	assert.Empty(t, proj.Warnings)
	assert.Empty(t, proj.Parans)
	require.Len(t, proj.Lines, 8)
	assert.Equal(t, []string{"Mars", "Sun"}, proj.Bodies())

	// Sorted by body then kind
	for i, f := range proj.Lines {
		wantBody := "Mars"
		if i >= 4 {
			wantBody = "Sun"
		}
		assert.Equal(t, wantBody, f.Body)
		assert.Equal(t, AllKinds[i%4], f.Kind)
		assert.NoError(t, f.Err)
		assert.NotEmpty(t, f.Segments, "%s %s has no segments", f.Body, f.Kind)
	}

	// The reference chart: Sun at RA 100, Dec 20 with GMST 50
	rise, ok := proj.Feature("Sun", Rise)
	require.True(t, ok)
	found := false
	for _, seg := range rise.Segments {
		for _, v := range seg {
			if v.Lat == 45 {
				found = true
				assert.InDelta(t, -61.3432, v.Lon, 1e-3)
			}
		}
	}
	assert.True(t, found, "rise line has no vertex at latitude 45")

	mc, _ := proj.Feature("Sun", UpperCulmination)
	assert.Equal(t, [][]GeoVertex{{{Lon: 50, Lat: -90}, {Lon: 50, Lat: 90}}}, mc.Segments)

	require.Len(t, proj.Positions, 2)
	assert.Equal(t, "Mars", proj.Positions[0].Body)
}

func TestPipeline_KindFilterAndDedup(t *testing.T) {
	p := newTestPipeline(t, newMapProvider(testBodies...), DefaultConfig())

	proj, err := p.Run(context.Background(), Request{
		Observer: testObserver(),
		Bodies:   []string{"sun", "Sun", " SUN "},
		Kinds:    []LineKind{UpperCulmination, LowerCulmination},
	})
	require.NoError(t, err)

	require.Len(t, proj.Lines, 2)
	assert.Equal(t, UpperCulmination, proj.Lines[0].Kind)
	assert.Equal(t, LowerCulmination, proj.Lines[1].Kind)
}

func TestPipeline_IsolatesFailures(t *testing.T) {
	provider := newMapProvider(
		astro.BodyPosition{Body: "Sun", RAdeg: 100, DecDeg: 20},
		astro.BodyPosition{Body: "Mars", RAdeg: 250, DecDeg: 95}, // malformed
	)
	rec := &countingRecorder{}
	p := newTestPipeline(t, provider, DefaultConfig(), WithRecorder(rec))

	proj, err := p.Run(context.Background(), Request{
		Observer:      testObserver(),
		Bodies:        []string{"Sun", "Mars", "Pluto"},
		IncludeParans: true,
	})
	require.NoError(t, err)

	// Sun is unaffected
	for _, k := range AllKinds {
		f, ok := proj.Feature("Sun", k)
		require.True(t, ok)
		assert.NoError(t, f.Err)
	}

	// Mars keeps its features, each carrying the range error
	for _, k := range AllKinds {
		f, ok := proj.Feature("Mars", k)
		require.True(t, ok)
		var oor *OutOfRangeError
		require.ErrorAs(t, f.Err, &oor)
		assert.Equal(t, "declination", oor.Field)
		assert.Empty(t, f.Segments)
	}

	// Pluto is skipped at the ephemeris stage
	_, ok := proj.Feature("Pluto", Rise)
	assert.False(t, ok)

	require.Len(t, proj.Warnings, 5)
	assert.Equal(t, StageEphemeris, proj.Warnings[0].Stage)
	assert.Equal(t, "Pluto", proj.Warnings[0].Body)
	for i, w := range proj.Warnings[1:] {
		assert.Equal(t, StageLine, w.Stage)
		assert.Equal(t, "Mars", w.Body)
		assert.Equal(t, []string{"AC", "DC", "IC", "MC"}[i], w.Kind)
	}

	// Mars never takes part in paran searches; with one usable body there are none
	assert.Empty(t, proj.Parans)

	assert.Equal(t, 1, rec.runs)
	assert.Equal(t, 1, rec.stages[StageEphemeris])
	assert.Equal(t, 4, rec.stages[StageLine])
}

func TestPipeline_Parans(t *testing.T) {
	p := newTestPipeline(t, newMapProvider(testBodies...), DefaultConfig())

	proj, err := p.Run(context.Background(), Request{
		Observer:      testObserver(),
		Bodies:        []string{"Venus", "Sun", "Mars"},
		IncludeParans: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, proj.Parans)
	assert.Empty(t, proj.Warnings)

	params := make(map[string]HorizonParameters)
	for _, pos := range proj.Positions {
		hp, err := ToHorizonParameters(pos, testObserver())
		require.NoError(t, err)
		params[pos.Body] = hp
	}

	for _, ev := range proj.Parans {
		assert.Less(t, ev.BodyA, ev.BodyB, "pair order")
		assert.False(t, ev.KindA.IsCulmination() && ev.KindB.IsCulmination())

		lonA, okA := LongitudeAt(params[ev.BodyA], ev.KindA, ev.Lat)
		lonB, okB := LongitudeAt(params[ev.BodyB], ev.KindB, ev.Lat)
		require.True(t, okA && okB, "lines undefined at paran %+v", ev)
		assert.LessOrEqual(t, math.Abs(astro.Normalize180(lonA-lonB)), 1e-4, "paran %+v", ev)
	}

	sorted := append([]ParanEvent(nil), proj.Parans...)
	sortParans(sorted)
	assert.Equal(t, sorted, proj.Parans)
}

func TestPipeline_ParanKindFilter(t *testing.T) {
	p := newTestPipeline(t, newMapProvider(testBodies...), DefaultConfig())

	proj, err := p.Run(context.Background(), Request{
		Observer:      testObserver(),
		Bodies:        []string{"Sun", "Mars", "Venus"},
		Kinds:         []LineKind{},
		IncludeParans: true,
		ParanKinds:    []KindPair{{A: Rise, B: UpperCulmination}},
	})
	require.NoError(t, err)
	assert.Empty(t, proj.Lines)
	for _, ev := range proj.Parans {
		kinds := []LineKind{ev.KindA, ev.KindB}
		assert.ElementsMatch(t, []LineKind{Rise, UpperCulmination}, kinds, "paran %+v", ev)
	}
}

// AC/MC must match the later-named body's AC against the earlier one's MC
// as well, so results do not depend on how bodies are named.
func TestPipeline_ParanKindFilterBothDirections(t *testing.T) {
	h0, ok := astro.SemiDiurnalArc(40, 20)
	require.True(t, ok)
	provider := newMapProvider(
		astro.BodyPosition{Body: "Sun", RAdeg: 100, DecDeg: 20},
		// Mars culminates where the Sun rises at latitude 40
		astro.BodyPosition{Body: "Mars", RAdeg: astro.Normalize360(100 - h0), DecDeg: -5},
	)
	p := newTestPipeline(t, provider, DefaultConfig())

	proj, err := p.Run(context.Background(), Request{
		Observer:      testObserver(),
		Bodies:        []string{"Sun", "Mars"},
		Kinds:         []LineKind{},
		IncludeParans: true,
		ParanKinds:    []KindPair{{A: Rise, B: UpperCulmination}},
	})
	require.NoError(t, err)

	var found bool
	for _, ev := range proj.Parans {
		if ev.BodyA == "Mars" && ev.KindA == UpperCulmination && ev.BodyB == "Sun" && ev.KindB == Rise {
			found = true
			assert.InDelta(t, 40, ev.Lat, 1e-3)
		}
	}
	assert.True(t, found, "Mars MC / Sun AC missing from %+v", proj.Parans)

	// The default pairs already hold both orientations; none is searched twice
	all, err := p.Run(context.Background(), Request{
		Observer:      testObserver(),
		Bodies:        []string{"Sun", "Mars"},
		Kinds:         []LineKind{},
		IncludeParans: true,
	})
	require.NoError(t, err)
	seen := make(map[ParanEvent]bool)
	for _, ev := range all.Parans {
		assert.False(t, seen[ev], "duplicate paran %+v", ev)
		seen[ev] = true
	}
}

func TestPipeline_NormalizesSiderealTime(t *testing.T) {
	p := newTestPipeline(t, newMapProvider(testBodies...), DefaultConfig())

	obs := testObserver()
	obs.GMSTdeg = -310
	proj, err := p.Run(context.Background(), Request{Observer: obs, Bodies: []string{"Sun"}})
	require.NoError(t, err)
	assert.InDelta(t, 50, proj.GMSTdeg, 1e-9)
}

func TestPipeline_Deterministic(t *testing.T) {
	provider := newMapProvider(testBodies...)
	req := Request{
		Observer:      testObserver(),
		Bodies:        []string{"Regulus", "Venus", "Sun", "Mars", "Nibiru"},
		IncludeParans: true,
	}

	var outputs [][]byte
	var projections []*Projection
	for _, workers := range []int{1, 3, 16} {
		cfg := DefaultConfig()
		cfg.Workers = workers
		p := newTestPipeline(t, provider, cfg)

		proj, err := p.Run(context.Background(), req)
		require.NoError(t, err)
		data, err := json.Marshal(proj)
		require.NoError(t, err)
		outputs = append(outputs, data)
		projections = append(projections, proj)
	}

	for i := 1; i < len(outputs); i++ {
		assert.Equal(t, string(outputs[0]), string(outputs[i]), "run %d differs", i)
		if diff := cmp.Diff(projections[0], projections[i], cmpopts.EquateErrors()); diff != "" {
			t.Errorf("run %d differs (-first +other):\n%s", i, diff)
		}
	}
}

func TestPipeline_DerivesSouthNode(t *testing.T) {
	provider := newMapProvider(astro.BodyPosition{Body: ephem.NorthNode, RAdeg: 40, DecDeg: 15})
	p := newTestPipeline(t, provider, DefaultConfig())

	proj, err := p.Run(context.Background(), Request{
		Observer: astro.ObserverContextFromGMST(0, 0, 0),
		Bodies:   []string{"north node", "south node"},
		Kinds:    []LineKind{UpperCulmination},
	})
	require.NoError(t, err)
	require.Empty(t, proj.Warnings)

	north, _ := proj.Feature(ephem.NorthNode, UpperCulmination)
	south, _ := proj.Feature(ephem.SouthNode, UpperCulmination)
	require.NotEmpty(t, north.Segments)
	require.NotEmpty(t, south.Segments)
	assert.InDelta(t, 40, north.Segments[0][0].Lon, 1e-9)
	assert.InDelta(t, -140, south.Segments[0][0].Lon, 1e-9)
}

func TestPipeline_Canceled(t *testing.T) {
	p := newTestPipeline(t, newMapProvider(testBodies...), DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, Request{Observer: testObserver(), Bodies: []string{"Sun"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_InvalidRequests(t *testing.T) {
	p := newTestPipeline(t, newMapProvider(testBodies...), DefaultConfig())

	tests := []struct {
		name string
		req  Request
	}{
		{"no bodies", Request{Observer: testObserver()}},
		{"blank body", Request{Observer: testObserver(), Bodies: []string{"  "}}},
		{"bad kind", Request{Observer: testObserver(), Bodies: []string{"Sun"}, Kinds: []LineKind{LineKind(8)}}},
		{"bad pair", Request{Observer: testObserver(), Bodies: []string{"Sun"}, ParanKinds: []KindPair{{A: Rise, B: LineKind(-1)}}}},
		{"bad latitude", Request{Observer: astro.ObserverContextFromGMST(0, 100, 0), Bodies: []string{"Sun"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Run(context.Background(), tt.req)
			assert.Error(t, err)
		})
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.WrapThreshold = 0
	_, err = New(newMapProvider(), cfg)
	var oor *OutOfRangeError
	assert.True(t, errors.As(err, &oor))

	cfg = DefaultConfig()
	cfg.Workers = -1
	_, err = New(newMapProvider(), cfg)
	assert.Error(t, err)

	p, err := New(newMapProvider(), DefaultConfig())
	require.NoError(t, err)
	assert.Positive(t, p.Config().Workers)
}
