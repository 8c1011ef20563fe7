// Package astro provides astronomical coordinate transformations and sky math.
package astro

import (
	"math"
	"time"
)

// Vec3 represents a 3D vector in any reference frame.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the magnitude of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// unitVector returns the unit vector for a longitude/latitude pair in degrees.
func unitVector(lonDeg, latDeg float64) Vec3 {
	lon := DegToRad(lonDeg)
	lat := DegToRad(latDeg)
	return Vec3{
		X: math.Cos(lat) * math.Cos(lon),
		Y: math.Cos(lat) * math.Sin(lon),
		Z: math.Sin(lat),
	}
}

// sphericalAngles returns longitude (0-360) and latitude of a vector in degrees.
func sphericalAngles(v Vec3) (lonDeg, latDeg float64) {
	r := v.Norm()
	if r == 0 {
		return 0, 0
	}
	lonDeg = Normalize360(RadToDeg(math.Atan2(v.Y, v.X)))
	latDeg = RadToDeg(math.Asin(clampUnit(v.Z / r)))
	return lonDeg, latDeg
}

// EquatorialToEcliptic rotates equatorial XYZ into the ecliptic frame for an
// obliquity in degrees.
func EquatorialToEcliptic(eq Vec3, obliquityDeg float64) Vec3 {
	cosE := math.Cos(DegToRad(obliquityDeg))
	sinE := math.Sin(DegToRad(obliquityDeg))

	return Vec3{
		X: eq.X,
		Y: eq.Y*cosE + eq.Z*sinE,
		Z: -eq.Y*sinE + eq.Z*cosE,
	}
}

// EclipticToEquatorial rotates ecliptic XYZ into the equatorial frame for an
// obliquity in degrees.
func EclipticToEquatorial(ecl Vec3, obliquityDeg float64) Vec3 {
	cosE := math.Cos(DegToRad(obliquityDeg))
	sinE := math.Sin(DegToRad(obliquityDeg))

	return Vec3{
		X: ecl.X,
		Y: ecl.Y*cosE - ecl.Z*sinE,
		Z: ecl.Y*sinE + ecl.Z*cosE,
	}
}

// EquatorialFromEcliptic converts ecliptic longitude/latitude (degrees, of
// date) to right ascension and declination using the mean obliquity at t.
func EquatorialFromEcliptic(lonDeg, latDeg float64, t time.Time) (raDeg, decDeg float64) {
	eq := EclipticToEquatorial(unitVector(lonDeg, latDeg), meanObliquity(julianCenturies(t)))
	return sphericalAngles(eq)
}

// EclipticFromEquatorial converts RA/Dec (degrees) to ecliptic longitude and
// latitude using the mean obliquity at t.
func EclipticFromEquatorial(raDeg, decDeg float64, t time.Time) (lonDeg, latDeg float64) {
	ecl := EquatorialToEcliptic(unitVector(raDeg, decDeg), meanObliquity(julianCenturies(t)))
	return sphericalAngles(ecl)
}
