package carto

import "math"

// DefaultWrapThreshold is the longitude jump, in degrees, treated as an
// antimeridian crossing rather than a real step along the line.
const DefaultWrapThreshold = 180.0

// Assemble turns a raw line into map-safe segments. Each run is split
// wherever consecutive vertices jump more than wrapThreshold degrees in
// longitude, and segments with fewer than two vertices are dropped.
//
// A non-positive threshold falls back to DefaultWrapThreshold. The returned
// segments never alias raw's storage.
func Assemble(raw RawLine, wrapThreshold float64) [][]GeoVertex {
	if !(wrapThreshold > 0) {
		wrapThreshold = DefaultWrapThreshold
	}

	var segments [][]GeoVertex
	for _, run := range raw.Runs {
		start := 0
		for i := 1; i < len(run); i++ {
			if math.Abs(run[i].Lon-run[i-1].Lon) > wrapThreshold {
				segments = appendSegment(segments, run[start:i])
				start = i
			}
		}
		segments = appendSegment(segments, run[start:])
	}
	return segments
}

func appendSegment(segments [][]GeoVertex, seg []GeoVertex) [][]GeoVertex {
	if len(seg) < 2 {
		return segments
	}
	out := make([]GeoVertex, len(seg))
	copy(out, seg)
	return append(segments, out)
}
