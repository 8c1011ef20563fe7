package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/litescript/ls-carto/internal/carto"
	"github.com/litescript/ls-carto/internal/ephem"
)

// paranLineSpacing is the longitude spacing of paran latitude lines.
const paranLineSpacing = 1

// GeoJSON converts a projection into a FeatureCollection: one feature per
// drawable line, then one constant-latitude feature per paran. Lines that
// failed are left out; their warnings stay on the projection. The request
// ID, instant and sidereal time travel as foreign members.
func GeoJSON(p *carto.Projection) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(p.Lines)+len(p.Parans))
	fc.ExtraMembers = geojson.Properties{
		"instant":  p.Instant,
		"gmst_deg": p.GMSTdeg,
	}
	if p.RequestID != "" {
		fc.ExtraMembers["request_id"] = p.RequestID
	}

	for _, f := range p.Lines {
		if f.Err != nil || len(f.Segments) == 0 {
			continue
		}
		fc.Append(lineFeature(f))
	}
	for _, ev := range p.Parans {
		fc.Append(paranFeature(ev))
	}
	return fc
}

func lineFeature(f carto.PolylineFeature) *geojson.Feature {
	style := StyleFor(f.Body, f.Kind)

	var geom orb.Geometry = lineString(f.Segments[0])
	if f.IsMulti() {
		multi := make(orb.MultiLineString, len(f.Segments))
		for i, seg := range f.Segments {
			multi[i] = lineString(seg)
		}
		geom = multi
	}

	feat := geojson.NewFeature(geom)
	feat.Properties["body"] = f.Body
	feat.Properties["line_type"] = f.Kind.String()
	feat.Properties["category"] = categoryLabel(f.Body)
	feat.Properties["color"] = style.Color
	if style.Dash != "" {
		feat.Properties["dash"] = style.Dash
	}
	return feat
}

func paranFeature(ev carto.ParanEvent) *geojson.Feature {
	line := make(orb.LineString, 0, 360/paranLineSpacing+1)
	for lon := -180; lon <= 180; lon += paranLineSpacing {
		line = append(line, orb.Point{float64(lon), ev.Lat})
	}

	feat := geojson.NewFeature(line)
	feat.Properties = geojson.Properties{
		"type":             "paran",
		"category":         "paran",
		"intersection_lat": ev.Lat,
		"source_lines":     []string{SourceLine(ev.BodyA, ev.KindA), SourceLine(ev.BodyB, ev.KindB)},
		"label":            ParanLabel(ev),
		"color":            ParanStyle.Color,
		"dash":             ParanStyle.Dash,
	}
	if ev.HasLon {
		feat.Properties["intersection_lon"] = ev.Lon
	}
	return feat
}

// SourceLine names one line as "Body_KIND".
func SourceLine(body string, kind carto.LineKind) string {
	return body + "_" + kind.String()
}

// ParanLabel describes a paran for display.
func ParanLabel(ev carto.ParanEvent) string {
	return fmt.Sprintf("%s %s crossing %s %s", ev.BodyA, ev.KindA, ev.BodyB, ev.KindB)
}

func categoryLabel(body string) string {
	if c := ephem.CategoryOf(body); c != "" {
		return string(c)
	}
	return "other"
}

func lineString(seg []carto.GeoVertex) orb.LineString {
	ls := make(orb.LineString, len(seg))
	for i, v := range seg {
		ls[i] = orb.Point{v.Lon, v.Lat}
	}
	return ls
}

// WriteGeoJSON writes the collection as indented JSON.
func WriteGeoJSON(w io.Writer, fc *geojson.FeatureCollection) error {
	raw, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("indent geojson: %w", err)
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(w)
	return err
}
