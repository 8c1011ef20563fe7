// Package config loads ls-carto settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/litescript/ls-carto/internal/carto"
	"github.com/litescript/ls-carto/internal/ephem"
	"github.com/litescript/ls-carto/internal/logging"
	"github.com/litescript/ls-carto/internal/observability"
)

// Config holds all ls-carto configuration.
type Config struct {
	Lines         LinesConfig         `yaml:"lines"`
	Parans        ParansConfig        `yaml:"parans"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Ephemeris     EphemerisConfig     `yaml:"ephemeris"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LinesConfig configures line generation and assembly.
type LinesConfig struct {
	LatitudeStep  float64  `yaml:"latitude_step"`
	MaxLatitude   float64  `yaml:"max_latitude"`
	WrapThreshold float64  `yaml:"wrap_threshold"`
	Kinds         []string `yaml:"kinds,omitempty"` // empty means all four
}

// ParansConfig configures the paran solver.
type ParansConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Tolerance     float64  `yaml:"tolerance"`
	MaxIterations int      `yaml:"max_iterations"`
	LatitudeStep  float64  `yaml:"latitude_step"`
	MinLatitude   float64  `yaml:"min_latitude"`
	MaxLatitude   float64  `yaml:"max_latitude"`
	KindPairs     []string `yaml:"kind_pairs,omitempty"` // "AC/MC" form; empty means the default twelve
}

// PipelineConfig configures projection runs.
type PipelineConfig struct {
	Workers int      `yaml:"workers"` // 0 means one per CPU
	Bodies  []string `yaml:"bodies"`
}

// EphemerisConfig selects position sources.
type EphemerisConfig struct {
	Mode         string `yaml:"mode"` // builtin, static, horizons, auto
	SnapshotPath string `yaml:"snapshot_path"`
	HorizonsURL  string `yaml:"horizons_url"`
	Timeout      string `yaml:"timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// ObservabilityConfig configures metrics and tracing.
type ObservabilityConfig struct {
	MetricsAddr string        `yaml:"metrics_addr"`
	Tracing     TracingConfig `yaml:"tracing"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Exporter    string  `yaml:"exporter"` // stdout, otlp
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// DefaultBodies is the body set projected when none is configured.
var DefaultBodies = []string{
	"Sun", "Moon", "Mercury", "Venus", "Mars",
	"Jupiter", "Saturn", "Uranus", "Neptune", "Pluto",
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	gen := carto.DefaultGeneratorConfig()
	solver := carto.DefaultSolver()
	return &Config{
		Lines: LinesConfig{
			LatitudeStep:  gen.LatitudeStep,
			MaxLatitude:   gen.MaxLatitude,
			WrapThreshold: carto.DefaultWrapThreshold,
		},
		Parans: ParansConfig{
			Enabled:       true,
			Tolerance:     solver.Tolerance,
			MaxIterations: solver.MaxIterations,
			LatitudeStep:  solver.LatitudeStep,
			MinLatitude:   solver.MinLatitude,
			MaxLatitude:   solver.MaxLatitude,
		},
		Pipeline: PipelineConfig{
			Bodies: append([]string(nil), DefaultBodies...),
		},
		Ephemeris: EphemerisConfig{
			Mode:        ephem.ModeAuto.String(),
			HorizonsURL: ephem.HorizonsAPIURL,
			Timeout:     ephem.RequestTimeout.String(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: string(logging.FormatConsole),
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				ServiceName: "ls-carto",
				Exporter:    "stdout",
				SampleRatio: 1,
			},
		},
	}
}

// Load reads a YAML file over the defaults. A missing file yields the
// defaults; the result is validated either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LS_CARTO_EPHEMERIS_MODE"); v != "" {
		c.Ephemeris.Mode = v
	}
	if v := os.Getenv("LS_CARTO_SNAPSHOT"); v != "" {
		c.Ephemeris.SnapshotPath = v
	}
	if v := os.Getenv("LS_CARTO_HORIZONS_URL"); v != "" {
		c.Ephemeris.HorizonsURL = v
	}
	if v := os.Getenv("LS_CARTO_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LS_CARTO_OTLP_ENDPOINT"); v != "" {
		c.Observability.Tracing.Endpoint = v
	}
}

// Validate checks every section and names the offending key.
func (c *Config) Validate() error {
	if err := c.CartoConfig().Validate(); err != nil {
		return fmt.Errorf("invalid config: %s: %w", cartoKey(err), err)
	}

	if _, err := c.LineKinds(); err != nil {
		return fmt.Errorf("invalid config: lines.kinds: %w", err)
	}
	if _, err := c.ParanKindPairs(); err != nil {
		return fmt.Errorf("invalid config: parans.kind_pairs: %w", err)
	}
	if _, err := c.EphemerisOptions(); err != nil {
		return err
	}

	switch logging.Format(c.Logging.Format) {
	case logging.FormatConsole, logging.FormatJSON, "":
	default:
		return fmt.Errorf("invalid config: logging.format: unknown format %q", c.Logging.Format)
	}

	tr := c.Observability.Tracing
	if tr.SampleRatio < 0 || tr.SampleRatio > 1 {
		return fmt.Errorf("invalid config: observability.tracing.sample_ratio: %v outside [0, 1]", tr.SampleRatio)
	}
	switch strings.ToLower(tr.Exporter) {
	case "stdout", "otlp", "otlpgrpc", "":
	default:
		return fmt.Errorf("invalid config: observability.tracing.exporter: unknown exporter %q", tr.Exporter)
	}
	return nil
}

// cartoKey maps a carto validation field to its YAML key.
func cartoKey(err error) string {
	var oor *carto.OutOfRangeError
	if !errors.As(err, &oor) {
		return "pipeline"
	}
	switch oor.Field {
	case "latitude step":
		return "lines.latitude_step"
	case "max latitude":
		return "lines.max_latitude"
	case "wrap threshold":
		return "lines.wrap_threshold"
	case "paran tolerance":
		return "parans.tolerance"
	case "paran max iterations":
		return "parans.max_iterations"
	case "paran latitude step":
		return "parans.latitude_step"
	case "paran min latitude":
		return "parans.min_latitude"
	case "paran max latitude":
		return "parans.max_latitude"
	case "workers":
		return "pipeline.workers"
	default:
		return oor.Field
	}
}

// CartoConfig converts the numeric sections into pipeline settings.
func (c *Config) CartoConfig() carto.Config {
	return carto.Config{
		Generator: carto.GeneratorConfig{
			LatitudeStep: c.Lines.LatitudeStep,
			MaxLatitude:  c.Lines.MaxLatitude,
		},
		WrapThreshold: c.Lines.WrapThreshold,
		Solver: carto.Solver{
			Tolerance:     c.Parans.Tolerance,
			MaxIterations: c.Parans.MaxIterations,
			LatitudeStep:  c.Parans.LatitudeStep,
			MinLatitude:   c.Parans.MinLatitude,
			MaxLatitude:   c.Parans.MaxLatitude,
		},
		Workers: c.Pipeline.Workers,
	}
}

// LineKinds parses lines.kinds; nil means all kinds.
func (c *Config) LineKinds() ([]carto.LineKind, error) {
	if len(c.Lines.Kinds) == 0 {
		return nil, nil
	}
	return carto.ParseLineKinds(c.Lines.Kinds)
}

// ParanKindPairs parses parans.kind_pairs; nil means the defaults.
func (c *Config) ParanKindPairs() ([]carto.KindPair, error) {
	if len(c.Parans.KindPairs) == 0 {
		return nil, nil
	}
	pairs := make([]carto.KindPair, 0, len(c.Parans.KindPairs))
	for _, s := range c.Parans.KindPairs {
		a, b, ok := strings.Cut(s, "/")
		if !ok {
			return nil, fmt.Errorf("kind pair %q: want A/B", s)
		}
		ka, err := carto.ParseLineKind(a)
		if err != nil {
			return nil, fmt.Errorf("kind pair %q: %w", s, err)
		}
		kb, err := carto.ParseLineKind(b)
		if err != nil {
			return nil, fmt.Errorf("kind pair %q: %w", s, err)
		}
		pairs = append(pairs, carto.KindPair{A: ka, B: kb})
	}
	return pairs, nil
}

// EphemerisOptions converts the ephemeris section into provider options.
func (c *Config) EphemerisOptions() (ephem.Options, error) {
	mode, err := ephem.ParseMode(c.Ephemeris.Mode)
	if err != nil {
		return ephem.Options{}, fmt.Errorf("invalid config: ephemeris.mode: %w", err)
	}
	if mode == ephem.ModeStatic && c.Ephemeris.SnapshotPath == "" {
		return ephem.Options{}, errors.New("invalid config: ephemeris.snapshot_path: required in static mode")
	}

	var timeout time.Duration
	if c.Ephemeris.Timeout != "" {
		timeout, err = time.ParseDuration(c.Ephemeris.Timeout)
		if err != nil || timeout <= 0 {
			return ephem.Options{}, fmt.Errorf("invalid config: ephemeris.timeout: %q is not a positive duration", c.Ephemeris.Timeout)
		}
	}

	return ephem.Options{
		Mode:         mode,
		SnapshotPath: c.Ephemeris.SnapshotPath,
		HorizonsURL:  c.Ephemeris.HorizonsURL,
		Timeout:      timeout,
	}, nil
}

// Logger builds the configured logger.
func (c *Config) Logger() *logging.Logger {
	format := logging.Format(c.Logging.Format)
	if format == "" {
		format = logging.FormatConsole
	}
	return logging.NewWithFormat(logging.ParseLevel(c.Logging.Level), format)
}

// TracingConfig converts the tracing section.
func (c *Config) TracingConfig() observability.TracingConfig {
	tr := c.Observability.Tracing
	return observability.TracingConfig{
		Enabled:     tr.Enabled,
		ServiceName: tr.ServiceName,
		Exporter:    tr.Exporter,
		Endpoint:    tr.Endpoint,
		SampleRatio: tr.SampleRatio,
	}
}
