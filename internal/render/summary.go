package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/litescript/ls-carto/internal/carto"
)

const ruleWidth = 72

// SummaryRow is one line in the summary table.
type SummaryRow struct {
	Body       string
	Kind       string
	Segments   int
	Vertices   int
	EquatorLon string // longitude where the line crosses the equator, "-" if it never does
	Status     string
}

// GenerateSummaryRows builds one row per line feature.
func GenerateSummaryRows(p *carto.Projection) []SummaryRow {
	rows := make([]SummaryRow, 0, len(p.Lines))
	for _, f := range p.Lines {
		row := SummaryRow{
			Body:       f.Body,
			Kind:       f.Kind.String(),
			Segments:   len(f.Segments),
			EquatorLon: "-",
			Status:     "ok",
		}
		for _, seg := range f.Segments {
			row.Vertices += len(seg)
		}
		if lon, ok := EquatorCrossing(f); ok {
			row.EquatorLon = FormatLon(lon)
		}
		if f.Err != nil {
			row.Status = "failed"
		}
		rows = append(rows, row)
	}
	return rows
}

// EquatorCrossing returns the longitude where a line meets latitude 0.
func EquatorCrossing(f carto.PolylineFeature) (float64, bool) {
	for _, seg := range f.Segments {
		for i, v := range seg {
			if v.Lat == 0 {
				return v.Lon, true
			}
			if i == 0 {
				continue
			}
			prev := seg[i-1]
			if (prev.Lat < 0) != (v.Lat < 0) {
				t := -prev.Lat / (v.Lat - prev.Lat)
				return prev.Lon + t*(v.Lon-prev.Lon), true
			}
		}
	}
	return 0, false
}

// FormatLon formats a longitude as degrees east or west.
func FormatLon(lon float64) string {
	switch {
	case math.Abs(lon) < 0.005:
		return "0.00°"
	case lon < 0:
		return fmt.Sprintf("%.2f°W", -lon)
	default:
		return fmt.Sprintf("%.2f°E", lon)
	}
}

// FormatLat formats a latitude as degrees north or south.
func FormatLat(lat float64) string {
	switch {
	case math.Abs(lat) < 0.005:
		return "0.00°"
	case lat < 0:
		return fmt.Sprintf("%.2f°S", -lat)
	default:
		return fmt.Sprintf("%.2f°N", lat)
	}
}

// WriteSummaryTable writes lines, parans and warnings as text tables.
func WriteSummaryTable(w io.Writer, p *carto.Projection) {
	fmt.Fprintf(w, "Astrocartography @ %s  (GMST %.4f°)\n", p.Instant.UTC().Format(time.RFC3339), p.GMSTdeg)
	fmt.Fprintln(w, strings.Repeat("─", ruleWidth))

	rows := GenerateSummaryRows(p)
	if len(rows) == 0 {
		fmt.Fprintln(w, "No lines")
	} else {
		fmt.Fprintf(w, "%-16s %-4s %-8s %-8s %-12s %-6s\n",
			"Body", "Line", "Segments", "Vertices", "Equator", "Status")
		fmt.Fprintln(w, strings.Repeat("─", ruleWidth))
		for _, r := range rows {
			fmt.Fprintf(w, "%-16s %-4s %8d %8d %-12s %-6s\n",
				truncateStr(r.Body, 16), r.Kind, r.Segments, r.Vertices, r.EquatorLon, r.Status)
		}
	}

	if len(p.Parans) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%-24s %-24s %-10s %-10s\n", "Line A", "Line B", "Lat", "Lon")
		fmt.Fprintln(w, strings.Repeat("─", ruleWidth))
		for _, ev := range p.Parans {
			lon := "-"
			if ev.HasLon {
				lon = FormatLon(ev.Lon)
			}
			fmt.Fprintf(w, "%-24s %-24s %-10s %-10s\n",
				truncateStr(ev.BodyA+" "+ev.KindA.String(), 24),
				truncateStr(ev.BodyB+" "+ev.KindB.String(), 24),
				FormatLat(ev.Lat), lon)
		}
	}

	if len(p.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Warnings:")
		for _, wn := range p.Warnings {
			subject := wn.Body
			if wn.Kind != "" {
				subject += " " + wn.Kind
			}
			if wn.PairBody != "" {
				subject += " / " + wn.PairBody
			}
			fmt.Fprintf(w, "  [%s] %s: %s\n", wn.Stage, subject, wn.Message)
		}
	}

	fmt.Fprintf(w, "\nTotal: %d lines, %d parans, %d warnings\n", len(p.Lines), len(p.Parans), len(p.Warnings))
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-2] + ".."
}
