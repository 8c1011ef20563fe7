package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/litescript/ls-carto/internal/astro"
	"github.com/litescript/ls-carto/internal/carto"
)

// SkyRow is where one body stands in the sky of a single location.
type SkyRow struct {
	Body    string
	AltDeg  float64
	AzDeg   float64
	Horizon astro.HorizonClass
	MaxLat  float64 // AC/DC lines exist between ±MaxLat
}

// LocalSky computes altitude and azimuth of every resolved body for an
// observer at lat/lon, using the projection's sidereal time.
func LocalSky(p *carto.Projection, lat, lon float64) []SkyRow {
	obs := astro.ObserverContextFromGMST(p.GMSTdeg, lat, lon)
	lst := obs.LocalSiderealTime(obs.LonDeg)

	rows := make([]SkyRow, 0, len(p.Positions))
	for _, pos := range p.Positions {
		h := astro.EquatorialToHorizontal(pos.RAdeg, pos.DecDeg, obs.LatDeg, lst)
		rows = append(rows, SkyRow{
			Body:    pos.Body,
			AltDeg:  h.ElDeg,
			AzDeg:   h.AzDeg,
			Horizon: astro.ClassifyHorizon(obs.LatDeg, pos.DecDeg),
			MaxLat:  astro.MaxCrossingLatitude(pos.DecDeg),
		})
	}
	return rows
}

// WriteLocalSky writes the LocalSky table.
func WriteLocalSky(w io.Writer, p *carto.Projection, lat, lon float64) {
	rows := LocalSky(p, lat, lon)
	if len(rows) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sky from %s %s\n", FormatLat(lat), FormatLon(astro.Normalize180(lon)))
	fmt.Fprintf(w, "%-16s %8s %8s %-15s %-8s\n", "Body", "Alt", "Az", "Horizon", "AC/DC to")
	fmt.Fprintln(w, strings.Repeat("─", ruleWidth))
	for _, r := range rows {
		fmt.Fprintf(w, "%-16s %7.2f° %7.2f° %-15s ±%.1f°\n",
			truncateStr(r.Body, 16), r.AltDeg, r.AzDeg, r.Horizon, r.MaxLat)
	}
}
