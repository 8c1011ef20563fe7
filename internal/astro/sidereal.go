package astro

import (
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// JulianDate returns the Julian Date of t (UTC), including sub-second time.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	return jd + float64(t.Nanosecond())/86400e9
}

// GreenwichMeanSiderealTime returns GMST in degrees (0-360) for a UTC time.
func GreenwichMeanSiderealTime(t time.Time) float64 {
	return GMSTFromJulianDate(JulianDate(t))
}

// GMSTFromJulianDate returns GMST in degrees (0-360) for a Julian Date.
func GMSTFromJulianDate(jd float64) float64 {
	// go-satellite works in radians
	return Normalize360(RadToDeg(satellite.ThetaG_JD(jd)))
}

// julianCenturies returns Julian centuries since J2000.0.
func julianCenturies(t time.Time) float64 {
	return (JulianDate(t) - 2451545.0) / 36525.0
}

// meanObliquity returns the mean obliquity of the ecliptic in degrees.
func meanObliquity(T float64) float64 {
	return 23.439291 - 0.0130042*T - 0.00000016*T*T + 0.000000504*T*T*T
}

// MeanLunarNode returns the ecliptic longitude of the mean ascending lunar
// node in degrees (0-360).
func MeanLunarNode(t time.Time) float64 {
	T := julianCenturies(t)
	omega := 125.04452 - 1934.136261*T + 0.0020708*T*T + T*T*T/450000
	return Normalize360(omega)
}
