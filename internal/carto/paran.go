package carto

import (
	"math"

	"github.com/litescript/ls-carto/internal/astro"
)

// ParanSide is one body's line taking part in a paran search.
type ParanSide struct {
	Params HorizonParameters
	Kind   LineKind
}

// ParanEvent is a latitude where two lines cross. Lon is the crossing
// longitude; HasLon is false only when the longitude could not be computed.
type ParanEvent struct {
	BodyA  string   `json:"body_a"`
	KindA  LineKind `json:"kind_a"`
	BodyB  string   `json:"body_b"`
	KindB  LineKind `json:"kind_b"`
	Lat    float64  `json:"lat"`
	Lon    float64  `json:"lon"`
	HasLon bool     `json:"has_lon"`
}

// Solver finds paran latitudes by sweeping a latitude grid for sign changes
// in the wrapped longitude difference between two lines, then bisecting each
// bracket.
type Solver struct {
	Tolerance     float64 // |lonA - lonB| accepted as a crossing, degrees
	MaxIterations int     // bisection steps per bracket
	LatitudeStep  float64 // bracket sweep spacing, degrees
	MinLatitude   float64
	MaxLatitude   float64
}

// DefaultSolver searches pole to pole at half-degree spacing.
func DefaultSolver() Solver {
	return Solver{
		Tolerance:     1e-4,
		MaxIterations: 100,
		LatitudeStep:  0.5,
		MinLatitude:   -90,
		MaxLatitude:   90,
	}
}

// Validate checks solver settings.
func (s Solver) Validate() error {
	if !(s.Tolerance > 0) || s.Tolerance > 1 {
		return outOfRange("paran tolerance", s.Tolerance, 0, 1)
	}
	if s.MaxIterations < 1 || s.MaxIterations > 10000 {
		return outOfRange("paran max iterations", float64(s.MaxIterations), 1, 10000)
	}
	if !(s.LatitudeStep > 0) || s.LatitudeStep > 90 {
		return outOfRange("paran latitude step", s.LatitudeStep, 0, 90)
	}
	if math.IsNaN(s.MinLatitude) || s.MinLatitude < -90 || s.MinLatitude >= s.MaxLatitude {
		return outOfRange("paran min latitude", s.MinLatitude, -90, s.MaxLatitude)
	}
	if math.IsNaN(s.MaxLatitude) || s.MaxLatitude > 90 {
		return outOfRange("paran max latitude", s.MaxLatitude, s.MinLatitude, 90)
	}
	return nil
}

// Solve returns every latitude in the search band where line a crosses
// line b, in ascending latitude order. It returns ErrNoSolution when the
// lines never cross, including the culmination/culmination case where
// both lines are meridians.
//
// Brackets are only accepted where both lines exist at both ends and the
// wrapped difference stays under 90 degrees, so the ±180 flip of the wrap
// is never mistaken for a crossing. Where a horizon line ends between two
// grid latitudes, the bracket runs up to the line's last defined latitude.
func (s Solver) Solve(a, b ParanSide) ([]ParanEvent, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if !a.Kind.Valid() || !b.Kind.Valid() {
		return nil, outOfRange("line kind", float64(max(a.Kind, b.Kind)), float64(Rise), float64(LowerCulmination))
	}
	if a.Kind.IsCulmination() && b.Kind.IsCulmination() {
		return nil, ErrNoSolution
	}

	diff := func(lat float64) (float64, bool) {
		lonA, okA := LongitudeAt(a.Params, a.Kind, lat)
		lonB, okB := LongitudeAt(b.Params, b.Kind, lat)
		if !okA || !okB {
			return 0, false
		}
		return astro.Normalize180(lonA - lonB), true
	}

	grid := latitudeGrid(s.MinLatitude, s.MaxLatitude, s.LatitudeStep)
	values := make([]float64, len(grid))
	defined := make([]bool, len(grid))
	for i, lat := range grid {
		values[i], defined[i] = diff(lat)
	}

	var events []ParanEvent
	emit := func(lat float64) {
		ev := ParanEvent{
			BodyA: a.Params.Body,
			KindA: a.Kind,
			BodyB: b.Params.Body,
			KindB: b.Kind,
			Lat:   lat,
		}
		if lon, ok := LongitudeAt(a.Params, a.Kind, lat); ok {
			ev.Lon, ev.HasLon = lon, true
		}
		events = append(events, ev)
	}

	// Adjacent grid hits are one crossing; keep the closest.
	best := -1
	flush := func() {
		if best >= 0 {
			emit(grid[best])
			best = -1
		}
	}

	for i := range grid {
		if defined[i] && math.Abs(values[i]) <= s.Tolerance {
			if best < 0 || math.Abs(values[i]) < math.Abs(values[best]) {
				best = i
			}
			continue
		}
		flush()
		if i+1 >= len(grid) {
			continue
		}

		lo, hi := grid[i], grid[i+1]
		dlo, dhi := values[i], values[i+1]
		nextHit := defined[i+1] && math.Abs(dhi) <= s.Tolerance

		// A line ending inside the step moves that end of the bracket to
		// the last latitude where both lines exist.
		switch {
		case defined[i] && defined[i+1]:
		case defined[i]:
			hi = edgeOf(diff, lo, hi)
			dhi, _ = diff(hi)
		case defined[i+1]:
			lo = edgeOf(diff, hi, lo)
			dlo, _ = diff(lo)
			if math.Abs(dlo) <= s.Tolerance {
				if !nextHit {
					emit(lo)
				}
				continue
			}
		default:
			continue
		}

		if nextHit {
			// Picked up as a grid hit on the next iteration.
			continue
		}
		if math.Abs(dhi) <= s.Tolerance {
			emit(hi)
			continue
		}
		if math.Signbit(dlo) == math.Signbit(dhi) {
			continue
		}
		if math.Abs(dlo) >= 90 || math.Abs(dhi) >= 90 {
			continue
		}
		if lat, ok := s.bisect(diff, lo, hi, dlo); ok {
			emit(lat)
		}
	}
	flush()

	if len(events) == 0 {
		return nil, ErrNoSolution
	}
	return events, nil
}

// minBracket is the bracket width below which bisection stops and accepts
// the midpoint.
const minBracket = 1e-12

// bisect narrows [lo, hi] until the difference is within tolerance or the
// bracket collapses. A midpoint where either line is undefined, or running
// out of iterations, abandons the bracket.
func (s Solver) bisect(diff func(float64) (float64, bool), lo, hi, dlo float64) (float64, bool) {
	for iter := 0; iter < s.MaxIterations; iter++ {
		mid := lo + (hi-lo)/2
		dm, ok := diff(mid)
		if !ok {
			return 0, false
		}
		if math.Abs(dm) <= s.Tolerance || hi-lo < minBracket {
			return mid, true
		}
		if math.Signbit(dm) == math.Signbit(dlo) {
			lo, dlo = mid, dm
		} else {
			hi = mid
		}
	}
	return 0, false
}

// edgeOf returns the latitude closest to undef where both lines still exist,
// given that they exist at def and not at undef.
func edgeOf(diff func(float64) (float64, bool), def, undef float64) float64 {
	for range 64 {
		mid := def + (undef-def)/2
		if mid == def || mid == undef {
			break
		}
		if _, ok := diff(mid); ok {
			def = mid
		} else {
			undef = mid
		}
	}
	return def
}
