package ephem

import (
	"sort"
	"strings"

	"github.com/litescript/ls-carto/internal/astro"
)

// Category groups bodies for display.
type Category string

const (
	CategoryLuminary Category = "luminary"
	CategoryPlanet   Category = "planet"
	CategoryAsteroid Category = "asteroid"
	CategoryNode     Category = "node"
	CategoryStar     Category = "star"
)

// Derived body names.
const (
	NorthNode = "North Node"
	SouthNode = "South Node"
)

// BodyInfo contains naming and lookup information for a solar system body.
type BodyInfo struct {
	Name     string   // Canonical display name
	Category Category // Display grouping
	NAIFID   int      // NAIF SPICE ID, 0 if none
	HorizCmd string   // Horizons COMMAND value, empty if Horizons cannot serve it
	Aliases  []string // Alternative spellings
}

// Bodies is the canonical list of solar system bodies.
// NAIF IDs from https://naif.jpl.nasa.gov/pub/naif/toolkit_docs/C/req/naif_ids.html
var Bodies = []BodyInfo{
	{Name: "Sun", Category: CategoryLuminary, NAIFID: 10, HorizCmd: "10", Aliases: []string{"Sol"}},
	{Name: "Moon", Category: CategoryLuminary, NAIFID: 301, HorizCmd: "301", Aliases: []string{"Luna"}},

	{Name: "Mercury", Category: CategoryPlanet, NAIFID: 199, HorizCmd: "199"},
	{Name: "Venus", Category: CategoryPlanet, NAIFID: 299, HorizCmd: "299"},
	{Name: "Mars", Category: CategoryPlanet, NAIFID: 499, HorizCmd: "499"},
	{Name: "Jupiter", Category: CategoryPlanet, NAIFID: 599, HorizCmd: "599"},
	{Name: "Saturn", Category: CategoryPlanet, NAIFID: 699, HorizCmd: "699"},
	{Name: "Uranus", Category: CategoryPlanet, NAIFID: 799, HorizCmd: "799"},
	{Name: "Neptune", Category: CategoryPlanet, NAIFID: 899, HorizCmd: "899"},
	{Name: "Pluto", Category: CategoryPlanet, NAIFID: 999, HorizCmd: "999"},

	// Small bodies use the Horizons "number;" record syntax
	{Name: "Ceres", Category: CategoryAsteroid, NAIFID: 2000001, HorizCmd: "1;"},
	{Name: "Pallas", Category: CategoryAsteroid, NAIFID: 2000002, HorizCmd: "2;"},
	{Name: "Juno", Category: CategoryAsteroid, NAIFID: 2000003, HorizCmd: "3;"},
	{Name: "Vesta", Category: CategoryAsteroid, NAIFID: 2000004, HorizCmd: "4;"},
	{Name: "Chiron", Category: CategoryAsteroid, NAIFID: 2002060, HorizCmd: "2060;"},

	{Name: NorthNode, Category: CategoryNode, Aliases: []string{"Mean Node", "True Node", "Rahu"}},
	{Name: SouthNode, Category: CategoryNode, Aliases: []string{"Ketu"}},
}

// bodiesByName maps lowercase names and aliases to body info, including
// the fixed stars of the default catalog.
var bodiesByName = func() map[string]BodyInfo {
	m := make(map[string]BodyInfo, len(Bodies)*2)
	for _, b := range Bodies {
		m[normalizeName(b.Name)] = b
		for _, alias := range b.Aliases {
			m[normalizeName(alias)] = b
		}
	}
	for _, name := range astro.DefaultStarCatalog().Names() {
		m[normalizeName(name)] = BodyInfo{Name: name, Category: CategoryStar}
	}
	return m
}()

// normalizeName lowercases a body name and collapses whitespace for matching.
func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// LookupBody returns body info for a name or alias (case-insensitive).
func LookupBody(name string) (BodyInfo, bool) {
	b, ok := bodiesByName[normalizeName(name)]
	return b, ok
}

// CanonicalName returns the display name for a body, or the input trimmed
// if it is not known.
func CanonicalName(name string) string {
	if b, ok := LookupBody(name); ok {
		return b.Name
	}
	return strings.TrimSpace(name)
}

// CategoryOf returns the body's category, or "" if unknown.
func CategoryOf(name string) Category {
	if b, ok := LookupBody(name); ok {
		return b.Category
	}
	return ""
}

// KnownBodies returns every canonical body name, solar system bodies first
// in catalog order, then the fixed stars alphabetically.
func KnownBodies() []string {
	names := make([]string, 0, len(bodiesByName))
	for _, b := range Bodies {
		names = append(names, b.Name)
	}
	stars := astro.DefaultStarCatalog().Names()
	sort.Strings(stars)
	return append(names, stars...)
}
