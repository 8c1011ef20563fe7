package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/litescript/ls-carto/internal/astro"
	"github.com/litescript/ls-carto/internal/carto"
	"github.com/litescript/ls-carto/internal/config"
	"github.com/litescript/ls-carto/internal/ephem"
	"github.com/litescript/ls-carto/internal/logging"
	"github.com/litescript/ls-carto/internal/observability"
	"github.com/litescript/ls-carto/internal/render"
	"github.com/litescript/ls-carto/internal/state"
	"github.com/litescript/ls-carto/internal/ui"
)

// app is everything one command invocation needs, built from config and
// flags by setup and torn down by close.
type app struct {
	cfg      *config.Config
	log      *logging.Logger
	pipeline *carto.Pipeline

	instant       time.Time
	bodies        []string
	kinds         []carto.LineKind
	pairs         []carto.KindPair
	includeParans bool
	lat, lon      float64
	marker        *carto.GeoVertex

	closers []func(context.Context) error
}

func setup(cmd *cobra.Command, opts *cliOptions) (*app, error) {
	ctx := cmd.Context()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, opts, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := cfg.Logger()
	log.SetOutput(cmd.ErrOrStderr())

	a := &app{
		cfg:           cfg,
		log:           log,
		bodies:        cfg.Pipeline.Bodies,
		includeParans: cfg.Parans.Enabled,
		lat:           opts.lat,
		lon:           opts.lon,
	}
	if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
		a.marker = &carto.GeoVertex{Lon: astro.Normalize180(opts.lon), Lat: opts.lat}
	}

	if a.kinds, err = cfg.LineKinds(); err != nil {
		return nil, err
	}
	if a.pairs, err = cfg.ParanKindPairs(); err != nil {
		return nil, err
	}
	if a.instant, err = resolveInstant(opts.timeStr, cfg.Ephemeris.SnapshotPath); err != nil {
		return nil, err
	}

	ephemOpts, err := cfg.EphemerisOptions()
	if err != nil {
		return nil, err
	}
	provider, err := ephem.NewProvider(ephemOpts)
	if err != nil {
		return nil, fmt.Errorf("ephemeris: %w", err)
	}
	log.Debug("ephemeris provider: %s", provider.Name())

	collector, err := observability.NewCollector(nil)
	if err != nil {
		return nil, err
	}

	tracing := cfg.TracingConfig()
	tracing.Writer = cmd.ErrOrStderr()
	shutdownTracing, err := observability.InitTracing(ctx, tracing, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(ctx context.Context) error {
		observability.ShutdownWithTimeout(ctx, shutdownTracing, log)
		return nil
	})

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		a.serveMetrics(addr, collector)
	}

	a.pipeline, err = carto.New(provider, cfg.CartoConfig(),
		carto.WithLogger(log),
		carto.WithRecorder(collector),
	)
	if err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// applyFlags overlays explicitly set flags on the loaded config.
func applyFlags(cmd *cobra.Command, opts *cliOptions, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("bodies") {
		cfg.Pipeline.Bodies = opts.bodies
	}
	if flags.Changed("kinds") {
		cfg.Lines.Kinds = opts.kinds
	}
	if flags.Changed("parans") {
		cfg.Parans.Enabled = opts.parans
	}
	if flags.Changed("ephemeris") {
		cfg.Ephemeris.Mode = opts.ephemeris
	}
	if flags.Changed("snapshot") {
		cfg.Ephemeris.SnapshotPath = opts.snapshotPath
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = opts.logFormat
	}
	if flags.Changed("metrics-addr") {
		cfg.Observability.MetricsAddr = opts.metricsAddr
	}
	if flags.Changed("workers") {
		cfg.Pipeline.Workers = opts.workers
	}
}

// resolveInstant picks the projection instant: --time if given, else the
// snapshot's recorded instant, else now.
func resolveInstant(timeStr, snapshotPath string) (time.Time, error) {
	t, given, err := parseInstant(timeStr)
	if err != nil || given {
		return t, err
	}
	if snapshotPath != "" {
		snap, err := ephem.LoadSnapshot(snapshotPath)
		if err != nil {
			return time.Time{}, err
		}
		if st := snap.Time(); !st.IsZero() {
			return st, nil
		}
	}
	return time.Now().UTC(), nil
}

func (a *app) serveMetrics(addr string, collector *observability.Collector) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.log.Info("serving metrics on %s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server: %v", err)
		}
	}()
	a.closers = append(a.closers, srv.Shutdown)
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.log.Warn("shutdown: %v", err)
		}
	}
	_ = a.log.Sync()
}

func (a *app) request(t time.Time) carto.Request {
	return carto.Request{
		Observer:      astro.NewObserverContext(t, a.lat, a.lon),
		Bodies:        a.bodies,
		Kinds:         a.kinds,
		IncludeParans: a.includeParans,
		ParanKinds:    a.pairs,
	}
}

func (a *app) run(ctx context.Context, t time.Time) (*carto.Projection, error) {
	return a.pipeline.Run(ctx, a.request(t))
}

func runLines(cmd *cobra.Command, opts *cliOptions) error {
	a, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.run(cmd.Context(), a.instant)
	if err != nil {
		return err
	}
	fc := render.GeoJSON(p)
	return writeOutput(cmd, opts.output, func(w io.Writer) error {
		return render.WriteGeoJSON(w, fc)
	})
}

func runSummary(cmd *cobra.Command, opts *cliOptions) error {
	a, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.run(cmd.Context(), a.instant)
	if err != nil {
		return err
	}
	render.WriteSummaryTable(cmd.OutOrStdout(), p)
	if a.marker != nil {
		render.WriteLocalSky(cmd.OutOrStdout(), p, a.lat, a.lon)
	}
	return nil
}

func runMap(cmd *cobra.Command, opts *cliOptions) error {
	a, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.run(cmd.Context(), a.instant)
	if err != nil {
		return err
	}

	isTTY := isTerminal(cmd.OutOrStdout())
	mapOpts := render.DefaultMapOptions()
	mapOpts.Color = isTTY
	mapOpts.Width = mapWidth(cmd.OutOrStdout(), opts.width)
	mapOpts.Height = opts.height
	if mapOpts.Height <= 0 {
		mapOpts.Height = max(mapOpts.Width/3, 12)
	}
	mapOpts.Kinds = a.kinds
	mapOpts.ShowParans = a.includeParans
	mapOpts.Marker = a.marker
	if opts.focus != "" {
		mapOpts.Focus = ephem.CanonicalName(opts.focus)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Astrocartography @ %s\n", p.Instant.Format(time.RFC3339))
	fmt.Fprintln(out, render.WorldMap(p, mapOpts))
	fmt.Fprintln(out, render.Legend(p.Bodies(), isTTY))
	for _, w := range p.Warnings {
		fmt.Fprintf(out, "  [%s] %s: %s\n", w.Stage, w.Body, w.Message)
	}
	return nil
}

func runInteractive(cmd *cobra.Command, opts *cliOptions) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errInteractiveNeedsTTY
	}

	a, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer a.close()

	// Log lines would tear the alt screen
	a.log.SetOutput(io.Discard)

	ctx := cmd.Context()
	stateMgr := state.NewManager(state.DefaultConfig(), a.instant)
	model := ui.New(stateMgr, a.run, ui.Options{Context: ctx, Marker: a.marker})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func writeBodies(w io.Writer) {
	builtin := ephem.NewBuiltinProvider()
	fmt.Fprintf(w, "%-16s %-10s %s\n", "Body", "Category", "Sources")
	fmt.Fprintln(w, strings.Repeat("─", 44))
	for _, name := range ephem.KnownBodies() {
		info, _ := ephem.LookupBody(name)
		var sources []string
		if builtin.Available(name) {
			sources = append(sources, "builtin")
		}
		if info.HorizCmd != "" {
			sources = append(sources, "horizons")
		}
		sources = append(sources, "snapshot")
		fmt.Fprintf(w, "%-16s %-10s %s\n", name, info.Category, strings.Join(sources, ", "))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// mapWidth uses the requested width, else the terminal width, else 80.
func mapWidth(w io.Writer, requested int) int {
	if requested > 0 {
		return requested
	}
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 80
}
