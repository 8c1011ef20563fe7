package ephem

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/litescript/ls-carto/internal/astro"
)

func TestBuiltinProvider_Available(t *testing.T) {
	p := NewBuiltinProvider()

	for _, body := range []string{"Sun", "north node", "South Node", "Sirius", "Rahu"} {
		if !p.Available(body) {
			t.Errorf("Available(%q) = false, want true", body)
		}
	}
	for _, body := range []string{"Mars", "Moon", "Vulcan"} {
		if p.Available(body) {
			t.Errorf("Available(%q) = true, want false", body)
		}
	}
}

func TestBuiltinProvider_BodyPosition(t *testing.T) {
	p := NewBuiltinProvider()
	ctx := context.Background()
	when := time.Date(2024, 3, 20, 3, 6, 0, 0, time.UTC)

	sun, err := p.BodyPosition(ctx, "sun", when)
	if err != nil {
		t.Fatalf("Sun: %v", err)
	}
	if sun.Body != "Sun" || math.Abs(sun.DecDeg) > 0.05 {
		t.Errorf("equinox Sun = %+v, want dec ~0", sun)
	}

	north, err := p.BodyPosition(ctx, NorthNode, when)
	if err != nil {
		t.Fatalf("North Node: %v", err)
	}
	south, err := p.BodyPosition(ctx, SouthNode, when)
	if err != nil {
		t.Fatalf("South Node: %v", err)
	}

	// Nodes lie on the ecliptic, opposite each other
	if d := math.Abs(astro.Normalize180(south.RAdeg - north.RAdeg - 180)); d > 1e-9 {
		t.Errorf("nodes not opposite in RA: north %v south %v", north.RAdeg, south.RAdeg)
	}
	if math.Abs(south.DecDeg+north.DecDeg) > 1e-9 {
		t.Errorf("node declinations not mirrored: north %v south %v", north.DecDeg, south.DecDeg)
	}
	if north.SpeedDegPerDay >= 0 {
		t.Errorf("node speed = %v, want retrograde", north.SpeedDegPerDay)
	}

	star, err := p.BodyPosition(ctx, "Aldebaran", when)
	if err != nil {
		t.Fatalf("Aldebaran: %v", err)
	}
	if star.Body != "Aldebaran" {
		t.Errorf("star Body = %q", star.Body)
	}
}

func TestBuiltinProvider_Unknown(t *testing.T) {
	_, err := NewBuiltinProvider().BodyPosition(context.Background(), "Mars", time.Now())

	var bue *BodyUnavailableError
	if !errors.As(err, &bue) {
		t.Fatalf("error = %v, want *BodyUnavailableError", err)
	}
	if !errors.Is(err, ErrUnknownBody) {
		t.Errorf("error should wrap ErrUnknownBody")
	}
}

func TestBuiltinProvider_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewBuiltinProvider().BodyPosition(ctx, "Sun", time.Now()); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
