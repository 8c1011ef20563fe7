package astro

import "math"

// HorizonClass describes whether a body crosses the horizon at a latitude.
type HorizonClass int

const (
	RisesAndSets  HorizonClass = iota // Crosses the horizon twice a sidereal day
	AlwaysVisible                     // Circumpolar: never sets
	NeverVisible                      // Never rises
)

// String returns the class name.
func (c HorizonClass) String() string {
	switch c {
	case RisesAndSets:
		return "rises-and-sets"
	case AlwaysVisible:
		return "circumpolar"
	case NeverVisible:
		return "never-rises"
	default:
		return "unknown"
	}
}

// HorizonCosine returns cos(H0) = -tan(lat)·tan(dec), the cosine of the
// semi-diurnal arc. ok is false at the poles where tan(lat) is undefined.
func HorizonCosine(latDeg, decDeg float64) (x float64, ok bool) {
	if math.Abs(latDeg) >= 90 {
		return math.NaN(), false
	}
	x = -math.Tan(DegToRad(latDeg)) * math.Tan(DegToRad(decDeg))
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x, false
	}
	return x, true
}

// ClassifyHorizon reports how a body of declination decDeg behaves at latDeg.
func ClassifyHorizon(latDeg, decDeg float64) HorizonClass {
	x, ok := HorizonCosine(latDeg, decDeg)
	if !ok {
		// At a pole the horizon is the celestial equator
		if latDeg*decDeg > 0 {
			return AlwaysVisible
		}
		return NeverVisible
	}
	switch {
	case x < -1:
		return AlwaysVisible
	case x > 1:
		return NeverVisible
	default:
		return RisesAndSets
	}
}

// SemiDiurnalArc returns H0 in degrees, the hour angle at which a body of
// declination decDeg crosses the horizon at latDeg. ok is false when the
// body does not cross the horizon there.
func SemiDiurnalArc(latDeg, decDeg float64) (h0 float64, ok bool) {
	x, ok := HorizonCosine(latDeg, decDeg)
	if !ok || x < -1 || x > 1 {
		return 0, false
	}
	h0 = RadToDeg(math.Acos(x))
	if math.IsNaN(h0) {
		return 0, false
	}
	return h0, true
}

// MaxCrossingLatitude returns the largest |latitude| at which a body of
// declination decDeg still rises and sets.
func MaxCrossingLatitude(decDeg float64) float64 {
	return 90 - math.Abs(decDeg)
}
