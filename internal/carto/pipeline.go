package carto

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/litescript/ls-carto/internal/astro"
	"github.com/litescript/ls-carto/internal/ephem"
	"github.com/litescript/ls-carto/internal/logging"
)

const (
	tracerName = "github.com/litescript/ls-carto/internal/carto"
	maxWorkers = 1024
)

// Config holds the numeric settings for a pipeline.
type Config struct {
	Generator     GeneratorConfig
	WrapThreshold float64
	Solver        Solver
	Workers       int // 0 means runtime.NumCPU()
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	return Config{
		Generator:     DefaultGeneratorConfig(),
		WrapThreshold: DefaultWrapThreshold,
		Solver:        DefaultSolver(),
	}
}

// Validate checks every setting.
func (c Config) Validate() error {
	if err := c.Generator.Validate(); err != nil {
		return err
	}
	if !(c.WrapThreshold > 0) || c.WrapThreshold > 360 {
		return outOfRange("wrap threshold", c.WrapThreshold, 0, 360)
	}
	if err := c.Solver.Validate(); err != nil {
		return err
	}
	if c.Workers < 0 || c.Workers > maxWorkers {
		return outOfRange("workers", float64(c.Workers), 0, maxWorkers)
	}
	return nil
}

// Request selects what to project.
type Request struct {
	Observer      astro.ObserverContext
	Bodies        []string
	Kinds         []LineKind // nil means AllKinds
	IncludeParans bool
	ParanKinds    []KindPair // nil means DefaultParanKindPairs
}

// Recorder receives run statistics. It never influences results.
type Recorder interface {
	RunCompleted(d time.Duration, lines, parans, warnings int)
	StageFailed(stage Stage)
}

type nopRecorder struct{}

func (nopRecorder) RunCompleted(time.Duration, int, int, int) {}
func (nopRecorder) StageFailed(Stage)                         {}

// Pipeline resolves body positions and projects their lines and parans.
// A Pipeline is safe for concurrent use; each Run gets its own ephemeris
// cache.
type Pipeline struct {
	provider ephem.Provider
	cfg      Config
	log      *logging.Logger
	recorder Recorder
	tracer   trace.Tracer
	newID    func() string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithIDGenerator replaces the request ID source.
func WithIDGenerator(f func() string) Option {
	return func(p *Pipeline) { p.newID = f }
}

// New creates a pipeline.
func New(provider ephem.Provider, cfg Config, opts ...Option) (*Pipeline, error) {
	if provider == nil {
		return nil, errors.New("carto: nil ephemeris provider")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("carto: invalid config: %w", err)
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}

	p := &Pipeline{
		provider: provider,
		cfg:      cfg,
		log:      logging.Discard(),
		recorder: nopRecorder{},
		tracer:   otel.Tracer(tracerName),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// resolvedBody is a body that made it through ephemeris and adapter.
type resolvedBody struct {
	pos    astro.BodyPosition
	params HorizonParameters
	err    error // adapter failure
}

// Run projects every requested body. Per-body and per-line failures become
// warnings; only invalid requests and context cancellation fail the run.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Projection, error) {
	start := time.Now()

	bodies, kinds, pairs, err := p.normalize(req)
	if err != nil {
		return nil, err
	}

	reqID := p.newID()
	log := p.log.With("request_id", reqID)

	ctx, span := p.tracer.Start(ctx, "carto.Run", trace.WithAttributes(
		attribute.String("request.id", reqID),
		attribute.Int("bodies", len(bodies)),
		attribute.Int("kinds", len(kinds)),
		attribute.Bool("parans", req.IncludeParans),
	))
	defer span.End()

	proj := &Projection{
		RequestID: reqID,
		Instant:   req.Observer.Instant,
		GMSTdeg:   astro.Normalize360(req.Observer.GMSTdeg),
	}

	resolved, warnings, err := p.resolve(ctx, req.Observer, bodies)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	for _, w := range warnings {
		log.Warn("skipping %s: %s", w.Body, w.Message)
	}
	proj.Warnings = append(proj.Warnings, warnings...)

	for _, rb := range resolved {
		proj.Positions = append(proj.Positions, rb.pos)
	}

	lines, warnings, err := p.lines(ctx, resolved, kinds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	proj.Lines = lines
	proj.Warnings = append(proj.Warnings, warnings...)

	if req.IncludeParans {
		parans, warnings, err := p.parans(ctx, resolved, pairs)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		proj.Parans = parans
		proj.Warnings = append(proj.Warnings, warnings...)
	}

	sortPositions(proj.Positions)
	sortLines(proj.Lines)
	sortParans(proj.Parans)
	sortWarnings(proj.Warnings)

	for _, w := range proj.Warnings {
		p.recorder.StageFailed(w.Stage)
	}
	elapsed := time.Since(start)
	p.recorder.RunCompleted(elapsed, len(proj.Lines), len(proj.Parans), len(proj.Warnings))

	span.SetAttributes(
		attribute.Int("lines", len(proj.Lines)),
		attribute.Int("parans", len(proj.Parans)),
		attribute.Int("warnings", len(proj.Warnings)),
	)
	log.Info("projected %d lines, %d parans, %d warnings in %s",
		len(proj.Lines), len(proj.Parans), len(proj.Warnings), elapsed.Round(time.Microsecond))

	return proj, nil
}

// normalize validates a request and fills in defaults. Bodies are
// canonicalized and deduplicated in request order.
func (p *Pipeline) normalize(req Request) ([]string, []LineKind, []KindPair, error) {
	if len(req.Bodies) == 0 {
		return nil, nil, nil, errors.New("carto: no bodies requested")
	}
	if req.Observer.LatDeg < -90 || req.Observer.LatDeg > 90 {
		return nil, nil, nil, outOfRange("observer latitude", req.Observer.LatDeg, -90, 90)
	}

	var bodies []string
	seen := make(map[string]bool, len(req.Bodies))
	for _, b := range req.Bodies {
		name := ephem.CanonicalName(b)
		if name == "" {
			return nil, nil, nil, errors.New("carto: empty body name")
		}
		if !seen[name] {
			seen[name] = true
			bodies = append(bodies, name)
		}
	}

	kinds := req.Kinds
	if kinds == nil {
		kinds = AllKinds
	}
	for _, k := range kinds {
		if !k.Valid() {
			return nil, nil, nil, fmt.Errorf("carto: invalid line kind %d", int(k))
		}
	}

	pairs := req.ParanKinds
	if pairs == nil {
		pairs = DefaultParanKindPairs()
	}
	for _, kp := range pairs {
		if !kp.A.Valid() || !kp.B.Valid() {
			return nil, nil, nil, fmt.Errorf("carto: invalid paran kind pair %v", kp)
		}
	}

	return bodies, kinds, pairs, nil
}

// resolve looks up every body through a per-request cache. Bodies the
// provider cannot supply become warnings and are dropped.
func (p *Pipeline) resolve(ctx context.Context, obs astro.ObserverContext, bodies []string) ([]resolvedBody, []Warning, error) {
	ctx, span := p.tracer.Start(ctx, "carto.resolve")
	defer span.End()

	cache := ephem.NewRequestCache(p.provider, obs.Instant)
	positions := make([]astro.BodyPosition, len(bodies))
	errs := make([]error, len(bodies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, body := range bodies {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			positions[i], errs[i] = cache.Position(gctx, body)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var resolved []resolvedBody
	var warnings []Warning
	for i, body := range bodies {
		if errs[i] != nil {
			warnings = append(warnings, Warning{Stage: StageEphemeris, Body: body, Message: errs[i].Error()})
			continue
		}
		pos := positions[i]
		pos.Body = body
		params, err := ToHorizonParameters(pos, obs)
		resolved = append(resolved, resolvedBody{pos: pos, params: params, err: err})
	}

	hits, misses := cache.Stats()
	span.SetAttributes(
		attribute.Int("resolved", len(resolved)),
		attribute.Int("cache.hits", hits),
		attribute.Int("cache.misses", misses),
	)
	return resolved, warnings, nil
}

// lines fans out one task per (body, kind).
func (p *Pipeline) lines(ctx context.Context, bodies []resolvedBody, kinds []LineKind) ([]PolylineFeature, []Warning, error) {
	ctx, span := p.tracer.Start(ctx, "carto.lines")
	defer span.End()

	features := make([]PolylineFeature, len(bodies)*len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for bi, rb := range bodies {
		for ki, kind := range kinds {
			idx := bi*len(kinds) + ki
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				features[idx] = p.buildLine(rb, kind)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	for _, f := range features {
		if f.Err != nil {
			warnings = append(warnings, Warning{
				Stage:   StageLine,
				Body:    f.Body,
				Kind:    f.Kind.String(),
				Message: f.Err.Error(),
			})
		}
	}
	span.SetAttributes(attribute.Int("features", len(features)))
	return features, warnings, nil
}

func (p *Pipeline) buildLine(rb resolvedBody, kind LineKind) PolylineFeature {
	f := PolylineFeature{Body: rb.pos.Body, Kind: kind}
	if rb.err != nil {
		f.Err = rb.err
		return f
	}
	raw, err := GenerateLine(rb.params, kind, p.cfg.Generator)
	if err != nil {
		f.Err = err
		return f
	}
	f.Segments = Assemble(raw, p.cfg.WrapThreshold)
	return f
}

// paranTask is one (body pair, kind pair) search.
type paranTask struct {
	a, b ParanSide
}

// parans fans out one task per unordered body pair and oriented kind pair.
// Body A is always the alphabetically smaller name.
func (p *Pipeline) parans(ctx context.Context, bodies []resolvedBody, pairs []KindPair) ([]ParanEvent, []Warning, error) {
	ctx, span := p.tracer.Start(ctx, "carto.parans")
	defer span.End()

	var usable []HorizonParameters
	for _, rb := range bodies {
		if rb.err == nil {
			usable = append(usable, rb.params)
		}
	}
	sort.Slice(usable, func(i, j int) bool { return usable[i].Body < usable[j].Body })

	// A kind pair applies to either body, so AC/MC searches both the
	// first body's AC against the second's MC and the reverse.
	var oriented []KindPair
	seen := make(map[KindPair]bool, 2*len(pairs))
	for _, kp := range pairs {
		for _, o := range []KindPair{kp, {A: kp.B, B: kp.A}} {
			if !seen[o] {
				seen[o] = true
				oriented = append(oriented, o)
			}
		}
	}

	var tasks []paranTask
	for i := range usable {
		for j := i + 1; j < len(usable); j++ {
			for _, kp := range oriented {
				tasks = append(tasks, paranTask{
					a: ParanSide{Params: usable[i], Kind: kp.A},
					b: ParanSide{Params: usable[j], Kind: kp.B},
				})
			}
		}
	}

	results := make([][]ParanEvent, len(tasks))
	errs := make([]error, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = p.cfg.Solver.Solve(task.a, task.b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var events []ParanEvent
	var warnings []Warning
	for i, task := range tasks {
		switch {
		case errs[i] == nil:
			events = append(events, results[i]...)
		case errors.Is(errs[i], ErrNoSolution):
		default:
			warnings = append(warnings, Warning{
				Stage:    StageParan,
				Body:     task.a.Params.Body,
				Kind:     KindPair{A: task.a.Kind, B: task.b.Kind}.String(),
				PairBody: task.b.Params.Body,
				Message:  errs[i].Error(),
			})
		}
	}

	span.SetAttributes(
		attribute.Int("searches", len(tasks)),
		attribute.Int("events", len(events)),
	)
	return events, warnings, nil
}
