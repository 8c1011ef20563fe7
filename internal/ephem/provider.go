// Package ephem provides equatorial positions for celestial bodies.
package ephem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/litescript/ls-carto/internal/astro"
)

// ErrUnknownBody is returned when no provider knows a body name.
var ErrUnknownBody = errors.New("unknown body")

// BodyUnavailableError reports that a provider could not supply a body.
type BodyUnavailableError struct {
	Body     string
	Provider string
	Err      error
}

func (e *BodyUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s unavailable: %v", e.Provider, e.Body, e.Err)
}

func (e *BodyUnavailableError) Unwrap() error {
	return e.Err
}

// Provider defines the interface for ephemeris data sources.
type Provider interface {
	// Name returns the provider name for display/logging.
	Name() string

	// BodyPosition returns the body's apparent equatorial position at t.
	// Failures are reported as *BodyUnavailableError.
	BodyPosition(ctx context.Context, body string, t time.Time) (astro.BodyPosition, error)

	// Available returns true if this provider can supply data for the body.
	Available(body string) bool
}

// Mode represents which ephemeris source to use.
type Mode int

const (
	ModeBuiltin  Mode = iota // Sun, lunar nodes and fixed stars only
	ModeStatic               // Snapshot file, then builtin
	ModeHorizons             // JPL Horizons, then builtin
	ModeAuto                 // Snapshot if configured, then Horizons, then builtin
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeBuiltin:
		return "builtin"
	case ModeStatic:
		return "static"
	case ModeHorizons:
		return "horizons"
	case ModeAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode string. The empty string selects ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "builtin":
		return ModeBuiltin, nil
	case "static":
		return ModeStatic, nil
	case "horizons":
		return ModeHorizons, nil
	case "auto", "":
		return ModeAuto, nil
	default:
		return ModeAuto, fmt.Errorf("unknown ephemeris mode %q", s)
	}
}

// Options selects and configures providers for NewProvider.
type Options struct {
	Mode         Mode
	SnapshotPath string
	HorizonsURL  string
	Timeout      time.Duration
}

// NewProvider builds the provider chain for a mode. The builtin provider is
// always last so the lunar nodes and fixed stars resolve in every mode.
func NewProvider(opts Options) (Provider, error) {
	builtin := NewBuiltinProvider()

	horizons := func() *HorizonsProvider {
		var hopts []HorizonsOption
		if opts.HorizonsURL != "" {
			hopts = append(hopts, WithBaseURL(opts.HorizonsURL))
		}
		if opts.Timeout > 0 {
			hopts = append(hopts, WithTimeout(opts.Timeout))
		}
		return NewHorizonsProvider(hopts...)
	}

	switch opts.Mode {
	case ModeBuiltin:
		return builtin, nil
	case ModeStatic:
		if opts.SnapshotPath == "" {
			return nil, errors.New("static ephemeris mode requires a snapshot path")
		}
		static, err := LoadStaticProvider(opts.SnapshotPath)
		if err != nil {
			return nil, err
		}
		return NewChain(static, builtin), nil
	case ModeHorizons:
		return NewChain(horizons(), builtin), nil
	case ModeAuto:
		var providers []Provider
		if opts.SnapshotPath != "" {
			static, err := LoadStaticProvider(opts.SnapshotPath)
			if err != nil {
				return nil, err
			}
			providers = append(providers, static)
		}
		providers = append(providers, horizons(), builtin)
		return NewChain(providers...), nil
	default:
		return nil, fmt.Errorf("unknown ephemeris mode %d", opts.Mode)
	}
}
