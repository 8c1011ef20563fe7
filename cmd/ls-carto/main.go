// Command ls-carto draws astrocartography lines and parans for an instant,
// as GeoJSON, a text summary, a terminal map or an interactive viewer.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-carto/internal/version"
)

// cliOptions holds flag values shared by every subcommand.
type cliOptions struct {
	configPath   string
	timeStr      string
	bodies       []string
	kinds        []string
	parans       bool
	ephemeris    string
	snapshotPath string
	logLevel     string
	logFormat    string
	metricsAddr  string
	workers      int
	lat, lon     float64

	// Per-command
	output      string
	width       int
	height      int
	interactive bool
	focus       string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "ls-carto",
		Short: "Astrocartography lines and parans in the terminal",
		Long: `ls-carto projects where each body rises (AC), sets (DC), culminates (MC)
and anti-culminates (IC) across the Earth at one instant, and where pairs of
those lines cross in latitude (parans).

Positions come from a snapshot file, JPL Horizons, or the built-in Sun,
lunar node and fixed-star models.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", defaultConfigPath(), "Config file (YAML)")
	pf.StringVarP(&opts.timeStr, "time", "t", "", "Instant to project (RFC 3339, or \"now\"; default: snapshot instant or now)")
	pf.StringSliceVarP(&opts.bodies, "bodies", "b", nil, "Bodies to project (default from config)")
	pf.StringSliceVarP(&opts.kinds, "kinds", "k", nil, "Line kinds: AC, DC, MC, IC (default all)")
	pf.BoolVar(&opts.parans, "parans", true, "Compute parans")
	pf.StringVar(&opts.ephemeris, "ephemeris", "", "Ephemeris mode: builtin, static, horizons, auto")
	pf.StringVar(&opts.snapshotPath, "snapshot", "", "Ephemeris snapshot file (YAML or JSON)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format (console, json)")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	pf.IntVar(&opts.workers, "workers", 0, "Pipeline workers (0 = one per CPU)")
	pf.Float64Var(&opts.lat, "lat", 0, "Observer latitude, marked on the map")
	pf.Float64Var(&opts.lon, "lon", 0, "Observer longitude, marked on the map")

	root.AddCommand(
		newLinesCmd(opts),
		newSummaryCmd(opts),
		newMapCmd(opts),
		newBodiesCmd(),
		newVersionCmd(),
	)
	return root
}

func newLinesCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lines",
		Short: "Write lines and parans as GeoJSON",
		Long: `Writes a GeoJSON FeatureCollection with one feature per line and one
constant-latitude feature per paran.

Example:
  ls-carto lines --time 2024-03-20T12:00:00Z --bodies Sun,Mars -o lines.geojson`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLines(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "Output file (- for stdout)")
	return cmd
}

func newSummaryCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print lines, parans and warnings as text tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSummary(cmd, opts)
		},
	}
}

func newMapCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Draw lines on a terminal world map",
		Long: `Draws an equirectangular world map with every line and paran.
With --interactive, opens a viewer that steps through time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.interactive {
				return runInteractive(cmd, opts)
			}
			return runMap(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "Open the interactive viewer")
	f.IntVar(&opts.width, "width", 0, "Map width in columns (default: terminal width)")
	f.IntVar(&opts.height, "height", 0, "Map height in rows (default: half the width)")
	f.StringVar(&opts.focus, "focus", "", "Body to highlight")
	return cmd
}

func newBodiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bodies",
		Short: "List known bodies and their categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			writeBodies(cmd.OutOrStdout())
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ls-carto v%s\n", version.Version)
		},
	}
}

// parseInstant parses --time. Empty means "not given".
func parseInstant(s string) (time.Time, bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return time.Time{}, false, nil
	case "now":
		return time.Now().UTC(), true, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid --time %q: want RFC 3339 (2006-01-02T15:04:05Z07:00)", s)
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/ls-carto/config.yaml"
	}
	return "ls-carto.yaml"
}

// writeOutput writes to stdout for "-" and to a new file otherwise.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) (err error) {
	if path == "" || path == "-" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output file: %w", cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

var errInteractiveNeedsTTY = errors.New("interactive map requires a terminal")
