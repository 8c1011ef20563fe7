// Package astro provides astronomical coordinate transformations and sky math.
package astro

import (
	"math"
	"time"
)

// BodyPosition is an equatorial snapshot of one celestial body at one instant.
type BodyPosition struct {
	Body   string  // Body identifier (e.g., "Sun", "Regulus")
	RAdeg  float64 // Right Ascension in degrees (0-360)
	DecDeg float64 // Declination in degrees (-90 to +90)

	// Optional extras; zero when the provider does not know them.
	DistanceAU     float64
	SpeedDegPerDay float64
	EclipticLonDeg float64
}

// ObserverContext anchors body positions to the rotating Earth.
type ObserverContext struct {
	Instant time.Time
	GMSTdeg float64 // Greenwich Mean Sidereal Time in degrees (0-360)
	LatDeg  float64 // Reference latitude (north positive)
	LonDeg  float64 // Reference longitude (east positive)
}

// NewObserverContext builds a context for an instant and reference location.
func NewObserverContext(t time.Time, latDeg, lonDeg float64) ObserverContext {
	return ObserverContext{
		Instant: t.UTC(),
		GMSTdeg: GreenwichMeanSiderealTime(t),
		LatDeg:  latDeg,
		LonDeg:  lonDeg,
	}
}

// ObserverContextFromGMST builds a context from an already known sidereal time.
func ObserverContextFromGMST(gmstDeg, latDeg, lonDeg float64) ObserverContext {
	return ObserverContext{
		GMSTdeg: Normalize360(gmstDeg),
		LatDeg:  latDeg,
		LonDeg:  lonDeg,
	}
}

// LocalSiderealTime returns the sidereal time in degrees at a longitude.
func (o ObserverContext) LocalSiderealTime(lonDeg float64) float64 {
	return Normalize360(o.GMSTdeg + lonDeg)
}

// Horizontal holds observer-relative coordinates.
type Horizontal struct {
	AzDeg float64 // Azimuth in degrees (0=N, 90=E, 180=S, 270=W)
	ElDeg float64 // Elevation/Altitude in degrees (0=horizon, 90=zenith)
}

// EquatorialToHorizontal converts RA/Dec to Az/El for an observer at latDeg
// whose local sidereal time is lstDeg.
//
// Uses standard astronomical conventions:
//   - Hour angle H = LST - RA, positive west of the meridian
//   - Azimuth: 0° = North, 90° = East, 180° = South, 270° = West
func EquatorialToHorizontal(raDeg, decDeg, latDeg, lstDeg float64) Horizontal {
	lat := DegToRad(latDeg)
	dec := DegToRad(decDeg)
	ha := DegToRad(lstDeg - raDeg)

	sinAlt := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(ha)
	alt := math.Asin(clampUnit(sinAlt))

	cosAz := (math.Sin(dec) - math.Sin(alt)*math.Sin(lat)) / (math.Cos(alt) * math.Cos(lat))
	az := math.Acos(clampUnit(cosAz))

	// West of the meridian the azimuth is measured past south
	if math.Sin(ha) > 0 {
		az = 2*math.Pi - az
	}

	return Horizontal{
		AzDeg: RadToDeg(az),
		ElDeg: RadToDeg(alt),
	}
}

// Normalize360 normalizes an angle to [0, 360).
func Normalize360(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a -= 360
	}
	return a
}

// Normalize180 normalizes an angle to (-180, 180].
func Normalize180(a float64) float64 {
	a = Normalize360(a)
	if a > 180 {
		a -= 360
	}
	return a
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

func clampUnit(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
