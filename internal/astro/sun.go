package astro

import (
	"math"
	"time"
)

// SunPosition calculates the apparent equatorial coordinates of the Sun.
// Uses a simplified solar ephemeris based on the Astronomical Almanac.
// Accuracy: ~0.01 degrees in RA and Dec.
func SunPosition(t time.Time) BodyPosition {
	T := julianCenturies(t)

	// Mean longitude of the Sun (degrees)
	L0 := Normalize360(280.46646 + 36000.76983*T + 0.0003032*T*T)

	// Mean anomaly of the Sun (degrees)
	M := Normalize360(357.52911 + 35999.05029*T - 0.0001537*T*T)
	Mrad := DegToRad(M)

	// Equation of center (degrees)
	C := (1.914602 - 0.004817*T - 0.000014*T*T) * math.Sin(Mrad)
	C += (0.019993 - 0.000101*T) * math.Sin(2*Mrad)
	C += 0.000289 * math.Sin(3*Mrad)

	sunLon := L0 + C

	// Apparent longitude (aberration and nutation)
	omega := 125.04 - 1934.136*T
	sunLonApp := sunLon - 0.00569 - 0.00478*math.Sin(DegToRad(omega))

	// Corrected obliquity
	eps := meanObliquity(T) + 0.00256*math.Cos(DegToRad(omega))

	sunLonRad := DegToRad(sunLonApp)
	epsRad := DegToRad(eps)

	ra := Normalize360(RadToDeg(math.Atan2(math.Cos(epsRad)*math.Sin(sunLonRad), math.Cos(sunLonRad))))
	dec := RadToDeg(math.Asin(math.Sin(epsRad) * math.Sin(sunLonRad)))

	// Eccentricity and radius vector
	e := 0.016708634 - 0.000042037*T - 0.0000001267*T*T
	v := DegToRad(M + C)
	r := 1.000001018 * (1 - e*e) / (1 + e*math.Cos(v))

	return BodyPosition{
		Body:           "Sun",
		RAdeg:          ra,
		DecDeg:         dec,
		DistanceAU:     r,
		SpeedDegPerDay: 0.9856,
		EclipticLonDeg: Normalize360(sunLonApp),
	}
}
