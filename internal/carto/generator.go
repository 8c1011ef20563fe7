package carto

import (
	"math"

	"github.com/litescript/ls-carto/internal/astro"
)

// GeoVertex is a point on the globe in degrees.
type GeoVertex struct {
	Lon float64 `json:"lon"` // (-180, 180]
	Lat float64 `json:"lat"` // [-90, 90]
}

// RawLine is a generated line before antimeridian handling. Runs holds
// consecutive defined vertices; a new run starts after every latitude where
// the line is undefined.
type RawLine struct {
	Body string
	Kind LineKind
	Runs [][]GeoVertex
}

// GeneratorConfig controls the latitude sweep.
type GeneratorConfig struct {
	LatitudeStep float64 // degrees between samples
	MaxLatitude  float64 // sweep covers [-MaxLatitude, MaxLatitude]
}

// DefaultGeneratorConfig returns a half-degree sweep pole to pole.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{LatitudeStep: 0.5, MaxLatitude: 90}
}

// Validate checks the sweep bounds.
func (c GeneratorConfig) Validate() error {
	if !(c.LatitudeStep > 0) || c.LatitudeStep > 90 {
		return outOfRange("latitude step", c.LatitudeStep, 0, 90)
	}
	if !(c.MaxLatitude > 0) || c.MaxLatitude > 90 {
		return outOfRange("max latitude", c.MaxLatitude, 0, 90)
	}
	return nil
}

// LongitudeAt returns the longitude where the given line crosses latitude
// lat, or false if the line does not exist there (circumpolar, never-rising,
// or at a pole for horizon lines).
//
// A body rises where its local hour angle is -H0, which is H0 degrees west
// of its culmination longitude; it sets H0 degrees east of it.
func LongitudeAt(p HorizonParameters, kind LineKind, lat float64) (float64, bool) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, false
	}

	switch kind {
	case UpperCulmination:
		return astro.Normalize180(p.RAOffsetDeg), true
	case LowerCulmination:
		return astro.Normalize180(p.RAOffsetDeg + 180), true
	case Rise, Set:
		h0, ok := astro.SemiDiurnalArc(lat, p.DecDeg)
		if !ok {
			return 0, false
		}
		if kind == Rise {
			return astro.Normalize180(p.RAOffsetDeg - h0), true
		}
		return astro.Normalize180(p.RAOffsetDeg + h0), true
	default:
		return 0, false
	}
}

// GenerateLine samples one line of one body over the latitude sweep.
//
// Culmination lines are meridians and are emitted as a single two-vertex run
// spanning the sweep. Horizon lines are sampled at every grid latitude; any
// undefined latitude closes the current run.
func GenerateLine(p HorizonParameters, kind LineKind, cfg GeneratorConfig) (RawLine, error) {
	if err := cfg.Validate(); err != nil {
		return RawLine{}, err
	}
	if !kind.Valid() {
		return RawLine{}, outOfRange("line kind", float64(kind), float64(Rise), float64(LowerCulmination))
	}
	if math.IsNaN(p.DecDeg) || p.DecDeg < -90 || p.DecDeg > 90 {
		return RawLine{}, outOfRange("declination", p.DecDeg, -90, 90)
	}

	line := RawLine{Body: p.Body, Kind: kind}

	if kind.IsCulmination() {
		lon, _ := LongitudeAt(p, kind, 0)
		line.Runs = [][]GeoVertex{{
			{Lon: lon, Lat: -cfg.MaxLatitude},
			{Lon: lon, Lat: cfg.MaxLatitude},
		}}
		return line, nil
	}

	var run []GeoVertex
	for _, lat := range latitudeGrid(-cfg.MaxLatitude, cfg.MaxLatitude, cfg.LatitudeStep) {
		lon, ok := LongitudeAt(p, kind, lat)
		if !ok {
			if len(run) > 0 {
				line.Runs = append(line.Runs, run)
				run = nil
			}
			continue
		}
		run = append(run, GeoVertex{Lon: lon, Lat: lat})
	}
	if len(run) > 0 {
		line.Runs = append(line.Runs, run)
	}
	return line, nil
}

// latitudeGrid returns evenly spaced latitudes from min to max inclusive.
// Points are computed by multiplication so the last one lands on max
// without accumulated drift; max is appended if the step does not divide
// the range.
func latitudeGrid(min, max, step float64) []float64 {
	if max < min || !(step > 0) {
		return nil
	}
	n := int(math.Floor((max-min)/step + 1e-9))
	grid := make([]float64, 0, n+2)
	for i := 0; i <= n; i++ {
		grid = append(grid, min+float64(i)*step)
	}
	if last := grid[len(grid)-1]; max-last > 1e-9 {
		grid = append(grid, max)
	} else {
		grid[len(grid)-1] = max
	}
	return grid
}
