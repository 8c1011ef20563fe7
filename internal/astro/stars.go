package astro

import "time"

// Star represents a cataloged fixed star with its J2000 position.
type Star struct {
	Name   string  // Common name (e.g., "Regulus", "Spica")
	RAdeg  float64 // Right Ascension in degrees (J2000)
	DecDeg float64 // Declination in degrees (J2000)
	Mag    float64 // Apparent visual magnitude (lower = brighter)
}

// StarCatalog holds the fixed stars available as bodies.
type StarCatalog struct {
	Stars []Star
}

// DefaultStarCatalog returns the royal stars and the other fixed stars
// commonly drawn on relocation maps. Coordinates are J2000 epoch.
func DefaultStarCatalog() StarCatalog {
	return StarCatalog{
		Stars: defaultStars,
	}
}

// Lookup returns the star with the given name.
func (c StarCatalog) Lookup(name string) (Star, bool) {
	for _, s := range c.Stars {
		if s.Name == name {
			return s, true
		}
	}
	return Star{}, false
}

// Names returns the catalog's star names in catalog order.
func (c StarCatalog) Names() []string {
	names := make([]string, len(c.Stars))
	for i, s := range c.Stars {
		names[i] = s.Name
	}
	return names
}

// j2000Obliquity is the mean obliquity at J2000 in degrees.
const j2000Obliquity = 23.439291

// precessionDegPerCentury is the general precession in ecliptic longitude.
const precessionDegPerCentury = 1.396971

// PositionAt returns the star's equatorial position of date. Precession is
// applied as a pure shift in ecliptic longitude, which is adequate for
// map-scale work over a few centuries around J2000.
func (s Star) PositionAt(t time.Time) BodyPosition {
	T := julianCenturies(t)

	ecl := EquatorialToEcliptic(unitVector(s.RAdeg, s.DecDeg), j2000Obliquity)
	lon, lat := sphericalAngles(ecl)
	lon = Normalize360(lon + precessionDegPerCentury*T)

	eq := EclipticToEquatorial(unitVector(lon, lat), meanObliquity(T))
	ra, dec := sphericalAngles(eq)

	return BodyPosition{
		Body:           s.Name,
		RAdeg:          ra,
		DecDeg:         dec,
		EclipticLonDeg: lon,
	}
}

var defaultStars = []Star{
	// Royal stars
	{"Aldebaran", 68.980, 16.509, 0.85},
	{"Regulus", 152.093, 11.967, 1.35},
	{"Antares", 247.352, -26.432, 0.96},
	{"Fomalhaut", 344.413, -29.622, 1.16},

	{"Sirius", 101.287, -16.716, -1.46},
	{"Spica", 201.298, -11.161, 0.97},
	{"Algol", 47.042, 40.957, 2.12},
	{"Procyon", 114.826, 5.225, 0.34},
	{"Vega", 279.235, 38.784, 0.03},
	{"Altair", 297.696, 8.868, 0.76},
	{"Betelgeuse", 88.793, 7.407, 0.50},
	{"Pollux", 116.329, 28.026, 1.14},
	{"Arcturus", 213.915, 19.182, -0.05},
	{"Capella", 79.172, 45.998, 0.08},
	{"Rigel", 78.634, -8.202, 0.13},
	{"Canopus", 95.988, -52.696, -0.74},
	{"Alcyone", 56.871, 24.105, 2.87},
	{"Polaris", 37.954, 89.264, 2.02},

	// Not a star, but catalogued the same way
	{"Galactic Center", 266.405, -28.936, 0},
}
