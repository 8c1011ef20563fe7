package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litescript/ls-carto/internal/astro"
	"github.com/litescript/ls-carto/internal/carto"
)

func testProjection() *carto.Projection {
	return &carto.Projection{
		RequestID: "req-1",
		Instant:   time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC),
		GMSTdeg:   50,
		Lines: []carto.PolylineFeature{
			{Body: "Mars", Kind: carto.Set, Err: errors.New("declination out of range")},
			{
				Body: "Sun", Kind: carto.Rise,
				Segments: [][]carto.GeoVertex{
					{{Lon: 170, Lat: -10}, {Lon: 179, Lat: 0}},
					{{Lon: -179, Lat: 1}, {Lon: -170, Lat: 10}},
				},
			},
			{
				Body: "Sun", Kind: carto.UpperCulmination,
				Segments: [][]carto.GeoVertex{{{Lon: 50, Lat: -90}, {Lon: 50, Lat: 90}}},
			},
		},
		Parans: []carto.ParanEvent{
			{BodyA: "Mars", KindA: carto.UpperCulmination, BodyB: "Sun", KindB: carto.Rise, Lat: 40.3, Lon: -12.5, HasLon: true},
		},
		Warnings: []carto.Warning{
			{Stage: carto.StageLine, Body: "Mars", Kind: "DC", Message: "declination out of range"},
		},
	}
}

func TestStyleFor(t *testing.T) {
	tests := []struct {
		body  string
		kind  carto.LineKind
		color string
		dash  string
		glyph rune
	}{
		{"Sun", carto.Rise, "#f39c12", "", '/'},
		{"venus", carto.Set, "#e91e63", "6,4", '\\'},
		{"Rahu", carto.UpperCulmination, "#95a5a6", "", '|'},
		{"Regulus", carto.LowerCulmination, "#f1c40f", "2,4", ':'},
		{"Ceres", carto.Rise, "#d35400", "", '/'},
		{"Planet X", carto.Rise, defaultColor, "", '/'},
		{"Sun", carto.LineKind(9), "#f39c12", "", '?'},
	}
	for _, tt := range tests {
		t.Run(tt.body+"_"+tt.kind.String(), func(t *testing.T) {
			got := StyleFor(tt.body, tt.kind)
			want := Style{Color: tt.color, Dash: tt.dash, Glyph: tt.glyph}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("StyleFor mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGeoJSON_Shape(t *testing.T) {
	fc := GeoJSON(testProjection())

	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Equal(t, "req-1", fc.ExtraMembers["request_id"])
	assert.Equal(t, 50.0, fc.ExtraMembers["gmst_deg"])
	require.Len(t, fc.Features, 3, "failed Mars DC is left out")

	rise := fc.Features[0]
	assert.Equal(t, "MultiLineString", rise.Geometry.GeoJSONType())
	assert.Equal(t, geojson.Properties{
		"body":      "Sun",
		"line_type": "AC",
		"category":  "luminary",
		"color":     "#f39c12",
	}, rise.Properties)
	multi, ok := rise.Geometry.(orb.MultiLineString)
	require.True(t, ok)
	assert.Equal(t, orb.Point{-179, 1}, multi[1][0])

	mc := fc.Features[1]
	assert.Equal(t, "LineString", mc.Geometry.GeoJSONType())
	assert.Equal(t, orb.LineString{{50, -90}, {50, 90}}, mc.Geometry)

	paran := fc.Features[2]
	assert.Equal(t, "LineString", paran.Geometry.GeoJSONType())
	assert.Equal(t, "paran", paran.Properties["type"])
	assert.Equal(t, 40.3, paran.Properties["intersection_lat"])
	assert.Equal(t, -12.5, paran.Properties["intersection_lon"])
	assert.Equal(t, []string{"Mars_MC", "Sun_AC"}, paran.Properties["source_lines"])
	assert.Equal(t, "Mars MC crossing Sun AC", paran.Properties["label"])
	line := paran.Geometry.(orb.LineString)
	assert.Len(t, line, 361)
	for _, pt := range line {
		assert.Equal(t, 40.3, pt.Lat())
	}
}

func TestGeoJSON_WriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, GeoJSON(testProjection())))

	var decoded struct {
		Type      string  `json:"type"`
		RequestID string  `json:"request_id"`
		Instant   string  `json:"instant"`
		GMSTdeg   float64 `json:"gmst_deg"`
		Features  []struct {
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)
	assert.Equal(t, "req-1", decoded.RequestID)
	assert.Equal(t, "2024-03-20T12:00:00Z", decoded.Instant)
	assert.Equal(t, 50.0, decoded.GMSTdeg)
	require.Len(t, decoded.Features, 3)
	assert.Equal(t, "MultiLineString", decoded.Features[0].Geometry.Type)
	assert.JSONEq(t, `[[50,-90],[50,90]]`, string(decoded.Features[1].Geometry.Coordinates))
	assert.Contains(t, buf.String(), `"line_type": "MC"`)

	// Round-trips through the GeoJSON decoder
	parsed, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, parsed.Features, 3)

	// Two encodings of one projection are identical
	var again bytes.Buffer
	require.NoError(t, WriteGeoJSON(&again, GeoJSON(testProjection())))
	assert.Equal(t, buf.String(), again.String())
}

func TestGeoJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, GeoJSON(&carto.Projection{})))
	assert.Contains(t, buf.String(), `"features": []`)
	assert.NotContains(t, buf.String(), "request_id")
}

func TestGeoJSON_ParanWithoutLongitude(t *testing.T) {
	p := &carto.Projection{Parans: []carto.ParanEvent{
		{BodyA: "A", KindA: carto.Rise, BodyB: "B", KindB: carto.Set, Lat: 10},
	}}
	fc := GeoJSON(p)
	require.Len(t, fc.Features, 1)
	_, has := fc.Features[0].Properties["intersection_lon"]
	assert.False(t, has)
}

func TestEquatorCrossing(t *testing.T) {
	p := testProjection()

	lon, ok := EquatorCrossing(p.Lines[1])
	require.True(t, ok)
	assert.Equal(t, 179.0, lon)

	lon, ok = EquatorCrossing(p.Lines[2])
	require.True(t, ok)
	assert.Equal(t, 50.0, lon)

	_, ok = EquatorCrossing(p.Lines[0])
	assert.False(t, ok)

	interp := carto.PolylineFeature{Segments: [][]carto.GeoVertex{{{Lon: 10, Lat: -1}, {Lon: 12, Lat: 1}}}}
	lon, ok = EquatorCrossing(interp)
	require.True(t, ok)
	assert.InDelta(t, 11.0, lon, 1e-12)
}

func TestFormatLonLat(t *testing.T) {
	assert.Equal(t, "12.50°W", FormatLon(-12.5))
	assert.Equal(t, "179.00°E", FormatLon(179))
	assert.Equal(t, "0.00°", FormatLon(0.001))
	assert.Equal(t, "40.30°N", FormatLat(40.3))
	assert.Equal(t, "5.25°S", FormatLat(-5.25))
}

func TestWriteSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	WriteSummaryTable(&buf, testProjection())
	out := buf.String()

	for _, want := range []string{
		"Astrocartography @ 2024-03-20T12:00:00Z",
		"GMST 50.0000°",
		"Mars", "failed",
		"179.00°E",
		"50.00°E",
		"Mars MC", "Sun AC", "40.30°N", "12.50°W",
		"[line] Mars DC: declination out of range",
		"Total: 3 lines, 1 parans, 1 warnings",
	} {
		assert.Contains(t, out, want)
	}
}

func TestWriteSummaryTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	WriteSummaryTable(&buf, &carto.Projection{})
	assert.Contains(t, buf.String(), "No lines")
}

func TestLocalSky(t *testing.T) {
	p := &carto.Projection{
		GMSTdeg: 50,
		Positions: []astro.BodyPosition{
			{Body: "Overhead", RAdeg: 50, DecDeg: 0},
			{Body: "Rising", RAdeg: 140, DecDeg: 0},
			{Body: "Polar", RAdeg: 0, DecDeg: 70},
		},
	}

	rows := LocalSky(p, 0, 0)
	require.Len(t, rows, 3)
	assert.InDelta(t, 90, rows[0].AltDeg, 1e-9)
	assert.InDelta(t, 0, rows[1].AltDeg, 1e-9)
	assert.InDelta(t, 90, rows[1].AzDeg, 1e-9, "a body rising on the equator is due east")
	assert.Equal(t, astro.RisesAndSets, rows[1].Horizon)
	assert.InDelta(t, 20, rows[2].MaxLat, 1e-9)

	rows = LocalSky(p, 45, 0)
	assert.Equal(t, astro.AlwaysVisible, rows[2].Horizon)

	var buf bytes.Buffer
	WriteLocalSky(&buf, p, 45, -0.5)
	out := buf.String()
	for _, want := range []string{"Sky from 45.00°N 0.50°W", "Polar", "circumpolar", "±20.0°"} {
		assert.Contains(t, out, want)
	}

	buf.Reset()
	WriteLocalSky(&buf, &carto.Projection{}, 45, 0)
	assert.Empty(t, buf.String())
}

func TestCanvas_Project(t *testing.T) {
	c := NewCanvas(361, 181)
	tests := []struct {
		lon, lat float64
		x, y     int
	}{
		{-180, 90, 0, 0},
		{180, -90, 360, 180},
		{0, 0, 180, 90},
		{50, 45, 230, 45},
		{500, -200, 360, 180},
	}
	for _, tt := range tests {
		x, y := c.Project(tt.lon, tt.lat)
		if x != tt.x || y != tt.y {
			t.Errorf("Project(%v, %v) = (%d, %d), want (%d, %d)", tt.lon, tt.lat, x, y, tt.x, tt.y)
		}
	}
}

func TestCanvas_PolylineIsContinuous(t *testing.T) {
	c := NewCanvas(40, 20)
	c.Polyline([]carto.GeoVertex{{Lon: -180, Lat: 90}, {Lon: 180, Lat: -90}}, '#', "", false)

	// A diagonal across the grid touches every column
	for x := range 40 {
		found := false
		for y := range 20 {
			if c.At(x, y) == '#' {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("column %d has no line cell", x)
		}
	}
	assert.Equal(t, rune(0), c.At(-1, 0))
}

func TestWorldMap(t *testing.T) {
	p := testProjection()
	opts := MapOptions{Width: 73, Height: 37, ShowParans: true}
	out := WorldMap(p, opts)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 37)
	for i, l := range lines {
		assert.Equal(t, 73, len([]rune(l)), "row %d width", i)
	}
	assert.NotContains(t, out, "\x1b[", "no ANSI escapes without Color")

	// Sun MC at lon 50 maps to column round(230/360*72) = 46
	rows := 0
	for _, l := range lines {
		if []rune(l)[46] == '|' {
			rows++
		}
	}
	assert.Greater(t, rows, 30, "MC line should run most of the map height")

	assert.Contains(t, out, "*", "paran marker drawn")
	assert.Contains(t, out, "/", "rise line drawn")

	opts.Kinds = []carto.LineKind{carto.Rise}
	opts.ShowParans = false
	out = WorldMap(p, opts)
	assert.NotContains(t, out, "|")
	assert.NotContains(t, out, "*")

	opts.Marker = &carto.GeoVertex{Lon: 0, Lat: 45}
	assert.Contains(t, WorldMap(p, opts), "▲")
}

func TestLegend(t *testing.T) {
	got := Legend([]string{"Sun", "Mars"}, false)
	assert.Equal(t, "■ Sun  ■ Mars\n/ AC  \\ DC  | MC  : IC  * paran", got)
}
