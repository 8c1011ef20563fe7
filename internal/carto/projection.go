package carto

import (
	"cmp"
	"slices"
	"time"

	"github.com/litescript/ls-carto/internal/astro"
)

// Stage names the part of the pipeline a warning came from.
type Stage string

const (
	StageEphemeris Stage = "ephemeris"
	StageLine      Stage = "line"
	StageParan     Stage = "paran"
)

// PolylineFeature is one assembled line. Err is set, and Segments empty,
// when the line could not be produced.
type PolylineFeature struct {
	Body     string        `json:"body"`
	Kind     LineKind      `json:"kind"`
	Segments [][]GeoVertex `json:"segments"`
	Err      error         `json:"-"`
}

// IsMulti reports whether the line needs a multi-part geometry.
func (f PolylineFeature) IsMulti() bool {
	return len(f.Segments) > 1
}

// Warning records a body, line or pair that was skipped.
type Warning struct {
	Stage    Stage  `json:"stage"`
	Body     string `json:"body"`
	Kind     string `json:"kind,omitempty"`
	PairBody string `json:"pair_body,omitempty"`
	Message  string `json:"message"`
}

// Projection is the result of one pipeline run. Lines, Parans, Warnings and
// Positions are sorted, so equal inputs produce equal projections apart from
// RequestID.
type Projection struct {
	RequestID string               `json:"request_id"`
	Instant   time.Time            `json:"instant"`
	GMSTdeg   float64              `json:"gmst_deg"`
	Positions []astro.BodyPosition `json:"positions"`
	Lines     []PolylineFeature    `json:"lines"`
	Parans    []ParanEvent         `json:"parans"`
	Warnings  []Warning            `json:"warnings"`
}

// Feature returns the line for a body and kind.
func (p *Projection) Feature(body string, kind LineKind) (PolylineFeature, bool) {
	for _, f := range p.Lines {
		if f.Body == body && f.Kind == kind {
			return f, true
		}
	}
	return PolylineFeature{}, false
}

// Bodies returns the names of bodies with at least one line, in order.
func (p *Projection) Bodies() []string {
	var names []string
	for _, f := range p.Lines {
		if len(names) == 0 || names[len(names)-1] != f.Body {
			names = append(names, f.Body)
		}
	}
	return names
}

func sortLines(lines []PolylineFeature) {
	slices.SortStableFunc(lines, func(a, b PolylineFeature) int {
		return cmp.Or(
			cmp.Compare(a.Body, b.Body),
			cmp.Compare(a.Kind, b.Kind),
		)
	})
}

func sortParans(events []ParanEvent) {
	slices.SortStableFunc(events, func(a, b ParanEvent) int {
		return cmp.Or(
			cmp.Compare(a.BodyA, b.BodyA),
			cmp.Compare(a.KindA, b.KindA),
			cmp.Compare(a.BodyB, b.BodyB),
			cmp.Compare(a.KindB, b.KindB),
			cmp.Compare(a.Lat, b.Lat),
		)
	})
}

func sortWarnings(warnings []Warning) {
	slices.SortStableFunc(warnings, func(a, b Warning) int {
		return cmp.Or(
			cmp.Compare(a.Stage, b.Stage),
			cmp.Compare(a.Body, b.Body),
			cmp.Compare(a.Kind, b.Kind),
			cmp.Compare(a.PairBody, b.PairBody),
			cmp.Compare(a.Message, b.Message),
		)
	})
}

func sortPositions(positions []astro.BodyPosition) {
	slices.SortStableFunc(positions, func(a, b astro.BodyPosition) int {
		return cmp.Compare(a.Body, b.Body)
	})
}
