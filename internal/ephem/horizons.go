package ephem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/litescript/ls-carto/internal/astro"
)

const (
	// HorizonsAPIURL is the JPL Horizons JSON API endpoint.
	HorizonsAPIURL = "https://ssd.jpl.nasa.gov/api/horizons.api"

	// RequestTimeout is the default HTTP request timeout.
	RequestTimeout = 30 * time.Second
)

// HorizonsProvider queries JPL Horizons for geocentric apparent RA/Dec.
type HorizonsProvider struct {
	client  *http.Client
	baseURL string
}

// HorizonsOption configures a HorizonsProvider.
type HorizonsOption func(*HorizonsProvider)

// WithBaseURL points the provider at a different endpoint.
func WithBaseURL(u string) HorizonsOption {
	return func(p *HorizonsProvider) { p.baseURL = u }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) HorizonsOption {
	return func(p *HorizonsProvider) { p.client.Timeout = d }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) HorizonsOption {
	return func(p *HorizonsProvider) { p.client = c }
}

// NewHorizonsProvider creates a new Horizons API client.
func NewHorizonsProvider(opts ...HorizonsOption) *HorizonsProvider {
	p := &HorizonsProvider{
		client: &http.Client{
			Timeout: RequestTimeout,
		},
		baseURL: HorizonsAPIURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *HorizonsProvider) Name() string {
	return "horizons"
}

// Available implements Provider.
func (p *HorizonsProvider) Available(body string) bool {
	b, ok := LookupBody(body)
	return ok && b.HorizCmd != ""
}

// BodyPosition implements Provider.
func (p *HorizonsProvider) BodyPosition(ctx context.Context, body string, t time.Time) (astro.BodyPosition, error) {
	info, ok := LookupBody(body)
	if !ok || info.HorizCmd == "" {
		return astro.BodyPosition{}, &BodyUnavailableError{Body: body, Provider: p.Name(), Err: ErrUnknownBody}
	}

	rows, err := p.queryHorizons(ctx, info.HorizCmd, t)
	if err != nil {
		return astro.BodyPosition{}, &BodyUnavailableError{Body: info.Name, Provider: p.Name(), Err: err}
	}
	if len(rows) == 0 {
		return astro.BodyPosition{}, &BodyUnavailableError{
			Body:     info.Name,
			Provider: p.Name(),
			Err:      errors.New("no data returned"),
		}
	}

	row := rows[0]
	lon, _ := astro.EclipticFromEquatorial(row.RAdeg, row.DecDeg, t)
	return astro.BodyPosition{
		Body:           info.Name,
		RAdeg:          row.RAdeg,
		DecDeg:         row.DecDeg,
		DistanceAU:     row.DeltaAU,
		EclipticLonDeg: lon,
	}, nil
}

// ephemerisRow is one parsed line of a Horizons observer table.
type ephemerisRow struct {
	Time    time.Time
	RAdeg   float64
	DecDeg  float64
	DeltaAU float64 // 0 when the table has no range column
}

// queryHorizons makes a request to the Horizons API.
func (p *HorizonsProvider) queryHorizons(ctx context.Context, command string, t time.Time) ([]ephemerisRow, error) {
	// Build request parameters - values must be quoted with single quotes
	params := url.Values{}
	params.Set("format", "json")
	params.Set("COMMAND", fmt.Sprintf("'%s'", command))
	params.Set("OBJ_DATA", "NO")
	params.Set("MAKE_EPHEM", "YES")
	params.Set("EPHEM_TYPE", "OBSERVER")
	params.Set("CENTER", "'500@399'") // Geocenter
	params.Set("START_TIME", fmt.Sprintf("'%s'", formatHorizonsTime(t)))
	params.Set("STOP_TIME", fmt.Sprintf("'%s'", formatHorizonsTime(t.Add(time.Minute))))
	params.Set("STEP_SIZE", "'1 m'")
	params.Set("QUANTITIES", "'2,20'") // 2=Apparent RA/Dec, 20=Range
	params.Set("ANG_FORMAT", "DEG")

	reqURL := p.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build horizons request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("horizons request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("horizons returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return parseHorizonsResponse(body)
}

// horizonsResponse represents the JSON API response.
type horizonsResponse struct {
	Signature struct {
		Version string `json:"version"`
		Source  string `json:"source"`
	} `json:"signature"`
	Result string `json:"result"`
	Error  string `json:"error"`
}

// parseHorizonsResponse parses the Horizons JSON response.
func parseHorizonsResponse(body []byte) ([]ephemerisRow, error) {
	var resp horizonsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("horizons error: %s", strings.TrimSpace(resp.Error))
	}

	// The actual ephemeris data is in resp.Result as a text blob
	return parseEphemerisTable(resp.Result)
}

// parseEphemerisTable extracts rows from the Horizons text output.
func parseEphemerisTable(result string) ([]ephemerisRow, error) {
	var rows []ephemerisRow

	// Find the data section between $$SOE and $$EOE markers
	soeIdx := strings.Index(result, "$$SOE")
	eoeIdx := strings.Index(result, "$$EOE")
	if soeIdx == -1 || eoeIdx == -1 || soeIdx >= eoeIdx {
		return nil, fmt.Errorf("could not find ephemeris data markers")
	}

	dataSection := result[soeIdx+5 : eoeIdx]
	for _, line := range strings.Split(dataSection, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		row, err := parseEphemerisLine(line)
		if err != nil {
			continue // Skip unparseable lines
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// parseEphemerisLine parses a single ephemeris data line.
// Format for QUANTITIES='2,20' with ANG_FORMAT=DEG:
// 2024-Mar-20 03:06 *m  359.998512  -0.000645  0.99599  -0.0001234
// Fields: date, time, optional flags, RA, Dec, delta, deldot
func parseEphemerisLine(line string) (ephemerisRow, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return ephemerisRow{}, fmt.Errorf("insufficient fields: %d", len(fields))
	}

	// Parse date/time (first two fields)
	t, err := parseHorizonsDateTime(fields[0] + " " + fields[1])
	if err != nil {
		return ephemerisRow{}, err
	}

	// Collect numeric fields, skipping flags (*, *m, Cm, Nm, Am, etc.)
	var values []float64
	for i := 2; i < len(fields) && len(values) < 3; i++ {
		val, err := strconv.ParseFloat(fields[i], 64)
		if err == nil {
			values = append(values, val)
		}
	}

	if len(values) < 2 {
		return ephemerisRow{}, fmt.Errorf("could not find RA/Dec values")
	}
	if values[1] < -90 || values[1] > 90 {
		return ephemerisRow{}, fmt.Errorf("declination %v out of range", values[1])
	}

	row := ephemerisRow{
		Time:   t,
		RAdeg:  astro.Normalize360(values[0]),
		DecDeg: values[1],
	}
	if len(values) > 2 {
		row.DeltaAU = values[2]
	}
	return row, nil
}

// parseHorizonsDateTime parses Horizons date format like "2025-Dec-05 00:00".
func parseHorizonsDateTime(s string) (time.Time, error) {
	for _, layout := range []string{
		"2006-Jan-02 15:04",
		"2006-Jan-02 15:04:05",
		"2006-Jan-02 15:04:05.000",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

// formatHorizonsTime formats a time for the Horizons API. Seconds are kept
// so the first table row is the requested instant.
func formatHorizonsTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
