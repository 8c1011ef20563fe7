package ephem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/litescript/ls-carto/internal/astro"
)

// DefaultSnapshotSkew is how far a requested instant may drift from a
// snapshot's recorded instant before the snapshot is refused.
const DefaultSnapshotSkew = time.Minute

// ErrSnapshotInstant is returned when a snapshot is asked for a different time.
var ErrSnapshotInstant = errors.New("snapshot recorded for a different instant")

// Snapshot is a set of body positions recorded for one instant. It is read
// from YAML or JSON (JSON being a subset of YAML).
type Snapshot struct {
	Instant string         `yaml:"instant"` // RFC 3339, optional
	Bodies  []SnapshotBody `yaml:"bodies"`
}

// SnapshotBody is one body record in a snapshot.
type SnapshotBody struct {
	Name        string  `yaml:"name"`
	RA          float64 `yaml:"ra"`
	Dec         float64 `yaml:"dec"`
	DistanceAU  float64 `yaml:"distance_au"`
	Speed       float64 `yaml:"speed"`
	EclipticLon float64 `yaml:"ecliptic_lon"`
}

// ParseSnapshot decodes a YAML or JSON snapshot.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if len(s.Bodies) == 0 {
		return nil, errors.New("parse snapshot: no bodies")
	}
	seen := make(map[string]bool, len(s.Bodies))
	for i, b := range s.Bodies {
		if b.Name == "" {
			return nil, fmt.Errorf("parse snapshot: body %d has no name", i)
		}
		name := CanonicalName(b.Name)
		if seen[name] {
			return nil, fmt.Errorf("parse snapshot: body %q listed twice", name)
		}
		seen[name] = true
	}
	if s.Instant != "" {
		if _, err := time.Parse(time.RFC3339, s.Instant); err != nil {
			return nil, fmt.Errorf("parse snapshot instant: %w", err)
		}
	}
	return &s, nil
}

// LoadSnapshot reads a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return ParseSnapshot(data)
}

// Time returns the recorded instant, or the zero time if none was recorded.
func (s *Snapshot) Time() time.Time {
	t, err := time.Parse(time.RFC3339, s.Instant)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// StaticProvider serves positions from a snapshot. Values are passed
// through unvalidated; range checks happen downstream.
type StaticProvider struct {
	instant time.Time
	skew    time.Duration
	bodies  map[string]astro.BodyPosition
}

// NewStaticProvider indexes a snapshot by canonical body name.
func NewStaticProvider(s *Snapshot) *StaticProvider {
	p := &StaticProvider{
		instant: s.Time(),
		skew:    DefaultSnapshotSkew,
		bodies:  make(map[string]astro.BodyPosition, len(s.Bodies)),
	}
	for _, b := range s.Bodies {
		name := CanonicalName(b.Name)
		p.bodies[name] = astro.BodyPosition{
			Body:           name,
			RAdeg:          b.RA,
			DecDeg:         b.Dec,
			DistanceAU:     b.DistanceAU,
			SpeedDegPerDay: b.Speed,
			EclipticLonDeg: b.EclipticLon,
		}
	}
	return p
}

// LoadStaticProvider reads a snapshot file and wraps it in a provider.
func LoadStaticProvider(path string) (*StaticProvider, error) {
	s, err := LoadSnapshot(path)
	if err != nil {
		return nil, err
	}
	return NewStaticProvider(s), nil
}

// Instant returns the snapshot's recorded instant (zero if unrecorded).
func (p *StaticProvider) Instant() time.Time {
	return p.instant
}

// Name implements Provider.
func (p *StaticProvider) Name() string {
	return "static"
}

// Available implements Provider.
func (p *StaticProvider) Available(body string) bool {
	_, ok := p.bodies[CanonicalName(body)]
	return ok
}

// BodyPosition implements Provider.
func (p *StaticProvider) BodyPosition(ctx context.Context, body string, t time.Time) (astro.BodyPosition, error) {
	if err := ctx.Err(); err != nil {
		return astro.BodyPosition{}, err
	}
	pos, ok := p.bodies[CanonicalName(body)]
	if !ok {
		return astro.BodyPosition{}, &BodyUnavailableError{Body: body, Provider: p.Name(), Err: ErrUnknownBody}
	}
	if !p.instant.IsZero() {
		if d := t.Sub(p.instant); d > p.skew || d < -p.skew {
			return astro.BodyPosition{}, &BodyUnavailableError{
				Body:     body,
				Provider: p.Name(),
				Err:      fmt.Errorf("%w: have %s, want %s", ErrSnapshotInstant, p.instant.Format(time.RFC3339), t.UTC().Format(time.RFC3339)),
			}
		}
	}
	return pos, nil
}
