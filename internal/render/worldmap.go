package render

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-carto/internal/carto"
)

const (
	colorGrid    = "238"
	colorEquator = "60"
	colorMarker  = "46"
	colorFocused = "229"

	glyphMarker = '▲'
)

// MapOptions controls the terminal world map.
type MapOptions struct {
	Width  int
	Height int

	Kinds      []carto.LineKind // nil means every kind
	ShowParans bool
	Focus      string           // body drawn on top and highlighted
	Marker     *carto.GeoVertex // observer location
	Color      bool             // emit ANSI colors
}

// DefaultMapOptions returns an 80x24 colored map.
func DefaultMapOptions() MapOptions {
	return MapOptions{Width: 80, Height: 24, ShowParans: true, Color: true}
}

// Canvas is an equirectangular character grid.
type Canvas struct {
	width, height int
	cells         [][]rune
	colors        [][]lipgloss.Color
	bold          [][]bool
}

// NewCanvas creates a blank canvas. Sizes below 2 are raised to 2.
func NewCanvas(width, height int) *Canvas {
	width = max(width, 2)
	height = max(height, 2)
	c := &Canvas{width: width, height: height}
	c.cells = make([][]rune, height)
	c.colors = make([][]lipgloss.Color, height)
	c.bold = make([][]bool, height)
	for y := range height {
		c.cells[y] = make([]rune, width)
		c.colors[y] = make([]lipgloss.Color, width)
		c.bold[y] = make([]bool, width)
		for x := range width {
			c.cells[y][x] = ' '
		}
	}
	return c
}

// Project maps a longitude/latitude to a cell.
func (c *Canvas) Project(lon, lat float64) (x, y int) {
	x = int(math.Round((lon + 180) / 360 * float64(c.width-1)))
	y = int(math.Round((90 - lat) / 180 * float64(c.height-1)))
	return min(max(x, 0), c.width-1), min(max(y, 0), c.height-1)
}

// Set writes one cell; out-of-range cells are ignored.
func (c *Canvas) Set(x, y int, r rune, color lipgloss.Color, bold bool) {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return
	}
	c.cells[y][x] = r
	c.colors[y][x] = color
	c.bold[y][x] = bold
}

// At returns the rune in a cell.
func (c *Canvas) At(x, y int) rune {
	if x < 0 || x >= c.width || y < 0 || y >= c.height {
		return 0
	}
	return c.cells[y][x]
}

// Polyline rasterizes a segment by sampling each cell step between
// consecutive vertices.
func (c *Canvas) Polyline(seg []carto.GeoVertex, r rune, color lipgloss.Color, bold bool) {
	for i := range seg {
		x1, y1 := c.Project(seg[i].Lon, seg[i].Lat)
		if i == 0 {
			c.Set(x1, y1, r, color, bold)
			continue
		}
		x0, y0 := c.Project(seg[i-1].Lon, seg[i-1].Lat)
		steps := max(abs(x1-x0), abs(y1-y0))
		for s := 1; s <= steps; s++ {
			t := float64(s) / float64(steps)
			x := x0 + int(math.Round(t*float64(x1-x0)))
			y := y0 + int(math.Round(t*float64(y1-y0)))
			c.Set(x, y, r, color, bold)
		}
		c.Set(x1, y1, r, color, bold)
	}
}

// String renders the canvas, with ANSI colors when color is set.
func (c *Canvas) String(color bool) string {
	var b strings.Builder
	for y := range c.height {
		for x := range c.width {
			r := string(c.cells[y][x])
			if color && c.colors[y][x] != "" {
				style := lipgloss.NewStyle().Foreground(c.colors[y][x]).Bold(c.bold[y][x])
				b.WriteString(style.Render(r))
			} else {
				b.WriteString(r)
			}
		}
		if y < c.height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// WorldMap draws a projection onto an equirectangular terminal map.
func WorldMap(p *carto.Projection, opts MapOptions) string {
	c := NewCanvas(opts.Width, opts.Height)
	drawGraticule(c)

	show := func(k carto.LineKind) bool {
		if opts.Kinds == nil {
			return true
		}
		for _, want := range opts.Kinds {
			if want == k {
				return true
			}
		}
		return false
	}

	if opts.ShowParans {
		for _, ev := range p.Parans {
			if !ev.HasLon {
				continue
			}
			if opts.Focus != "" && ev.BodyA != opts.Focus && ev.BodyB != opts.Focus {
				continue
			}
			x, y := c.Project(ev.Lon, ev.Lat)
			c.Set(x, y, ParanStyle.Glyph, lipgloss.Color(ParanStyle.Color), false)
		}
	}

	// Focused body last so it stays on top
	var focused []carto.PolylineFeature
	for _, f := range p.Lines {
		if !show(f.Kind) {
			continue
		}
		if f.Body == opts.Focus {
			focused = append(focused, f)
			continue
		}
		drawLine(c, f, false)
	}
	for _, f := range focused {
		drawLine(c, f, true)
	}

	if opts.Marker != nil {
		x, y := c.Project(opts.Marker.Lon, opts.Marker.Lat)
		c.Set(x, y, glyphMarker, colorMarker, true)
	}

	return c.String(opts.Color)
}

func drawLine(c *Canvas, f carto.PolylineFeature, focused bool) {
	style := StyleFor(f.Body, f.Kind)
	color := lipgloss.Color(style.Color)
	if focused {
		color = colorFocused
	}
	for _, seg := range f.Segments {
		c.Polyline(seg, style.Glyph, color, focused)
	}
}

// drawGraticule marks the equator, the tropics and every 30° meridian.
func drawGraticule(c *Canvas) {
	for lon := -180.0; lon <= 180; lon += 30 {
		for lat := -90.0; lat <= 90; lat += 180 / float64(c.height-1) {
			x, y := c.Project(lon, lat)
			c.Set(x, y, '·', colorGrid, false)
		}
	}
	for _, lat := range []float64{-23.44, 23.44} {
		for x := 0; x < c.width; x += 2 {
			_, y := c.Project(0, lat)
			c.Set(x, y, '·', colorGrid, false)
		}
	}
	_, eq := c.Project(0, 0)
	for x := range c.width {
		c.Set(x, eq, '─', colorEquator, false)
	}
}

// Legend lists each body's color and the kind glyphs.
func Legend(bodies []string, color bool) string {
	var parts []string
	for _, b := range bodies {
		swatch := "■"
		if color {
			swatch = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorFor(b))).Render(swatch)
		}
		parts = append(parts, swatch+" "+b)
	}
	var kinds []string
	for _, k := range carto.AllKinds {
		kinds = append(kinds, string(StyleFor("", k).Glyph)+" "+k.String())
	}
	kinds = append(kinds, string(ParanStyle.Glyph)+" paran")
	return strings.Join(parts, "  ") + "\n" + strings.Join(kinds, "  ")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
