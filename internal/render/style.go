// Package render turns projections into GeoJSON, text tables and terminal
// maps. All presentation choices live here; the carto core carries none.
package render

import (
	"strings"

	"github.com/litescript/ls-carto/internal/carto"
	"github.com/litescript/ls-carto/internal/ephem"
)

// Style is the presentation of one line.
type Style struct {
	Color string // hex stroke color
	Dash  string // SVG-style dash array, empty for solid
	Glyph rune   // terminal map glyph
}

const defaultColor = "#2c3e50"

// bodyColors are per-body stroke colors, keyed by lowercase name.
var bodyColors = map[string]string{
	"sun":        "#f39c12",
	"moon":       "#8e44ad",
	"mercury":    "#3498db",
	"venus":      "#e91e63",
	"mars":       "#e74c3c",
	"jupiter":    "#2ecc71",
	"saturn":     "#34495e",
	"uranus":     "#1abc9c",
	"neptune":    "#9b59b6",
	"pluto":      "#795548",
	"north node": "#95a5a6",
	"south node": "#7f8c8d",
}

// categoryColors apply when a body has no color of its own.
var categoryColors = map[ephem.Category]string{
	ephem.CategoryAsteroid: "#d35400",
	ephem.CategoryNode:     "#95a5a6",
	ephem.CategoryStar:     "#f1c40f",
}

// kindStyles hold the dash pattern and glyph for each line kind.
var kindStyles = map[carto.LineKind]Style{
	carto.Rise:             {Glyph: '/'},
	carto.Set:              {Dash: "6,4", Glyph: '\\'},
	carto.UpperCulmination: {Glyph: '|'},
	carto.LowerCulmination: {Dash: "2,4", Glyph: ':'},
}

// ParanStyle is the style of paran latitude lines.
var ParanStyle = Style{Color: "#bdc3c7", Dash: "1,3", Glyph: '*'}

// StyleFor looks up the style for a body's line.
func StyleFor(body string, kind carto.LineKind) Style {
	s := kindStyles[kind]
	if s.Glyph == 0 {
		s.Glyph = '?'
	}
	s.Color = ColorFor(body)
	return s
}

// ColorFor returns the stroke color for a body.
func ColorFor(body string) string {
	if c, ok := bodyColors[strings.ToLower(ephem.CanonicalName(body))]; ok {
		return c
	}
	if c, ok := categoryColors[ephem.CategoryOf(body)]; ok {
		return c
	}
	return defaultColor
}
