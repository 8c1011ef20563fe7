package carto

import (
	"math"

	"github.com/litescript/ls-carto/internal/astro"
)

// HorizonParameters is everything the line math needs about one body.
type HorizonParameters struct {
	Body        string
	DecDeg      float64 // Declination, validated to [-90, 90]
	RAOffsetDeg float64 // RA - GMST, normalized to [0, 360)
}

// ToHorizonParameters converts an ephemeris record into horizon parameters.
// RAOffsetDeg is the Greenwich longitude at which the body culminates.
func ToHorizonParameters(pos astro.BodyPosition, obs astro.ObserverContext) (HorizonParameters, error) {
	if math.IsNaN(pos.DecDeg) || pos.DecDeg < -90 || pos.DecDeg > 90 {
		return HorizonParameters{}, outOfRange("declination", pos.DecDeg, -90, 90)
	}
	if math.IsNaN(pos.RAdeg) || math.IsInf(pos.RAdeg, 0) {
		return HorizonParameters{}, outOfRange("right ascension", pos.RAdeg, 0, 360)
	}
	if math.IsNaN(obs.GMSTdeg) || math.IsInf(obs.GMSTdeg, 0) {
		return HorizonParameters{}, outOfRange("sidereal time", obs.GMSTdeg, 0, 360)
	}

	return HorizonParameters{
		Body:        pos.Body,
		DecDeg:      pos.DecDeg,
		RAOffsetDeg: astro.Normalize360(pos.RAdeg - obs.GMSTdeg),
	}, nil
}
