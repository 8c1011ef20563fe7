package ephem

import (
	"context"
	"time"

	"github.com/litescript/ls-carto/internal/astro"
)

// nodeSpeedDegPerDay is the mean retrograde motion of the lunar node.
const nodeSpeedDegPerDay = -0.0529538

// BuiltinProvider computes positions locally: the Sun from the almanac
// formula, the mean lunar nodes, and fixed stars from the catalog.
type BuiltinProvider struct {
	stars astro.StarCatalog
}

// NewBuiltinProvider creates a provider using the default star catalog.
func NewBuiltinProvider() *BuiltinProvider {
	return &BuiltinProvider{stars: astro.DefaultStarCatalog()}
}

// Name implements Provider.
func (p *BuiltinProvider) Name() string {
	return "builtin"
}

// Available implements Provider.
func (p *BuiltinProvider) Available(body string) bool {
	switch CanonicalName(body) {
	case "Sun", NorthNode, SouthNode:
		return true
	}
	_, ok := p.stars.Lookup(CanonicalName(body))
	return ok
}

// BodyPosition implements Provider.
func (p *BuiltinProvider) BodyPosition(ctx context.Context, body string, t time.Time) (astro.BodyPosition, error) {
	if err := ctx.Err(); err != nil {
		return astro.BodyPosition{}, err
	}

	name := CanonicalName(body)
	switch name {
	case "Sun":
		return astro.SunPosition(t), nil
	case NorthNode:
		return nodePosition(NorthNode, astro.MeanLunarNode(t), t), nil
	case SouthNode:
		return nodePosition(SouthNode, astro.MeanLunarNode(t)+180, t), nil
	}

	if star, ok := p.stars.Lookup(name); ok {
		return star.PositionAt(t), nil
	}
	return astro.BodyPosition{}, &BodyUnavailableError{Body: body, Provider: p.Name(), Err: ErrUnknownBody}
}

// nodePosition places a lunar node on the ecliptic.
func nodePosition(name string, lonDeg float64, t time.Time) astro.BodyPosition {
	lon := astro.Normalize360(lonDeg)
	ra, dec := astro.EquatorialFromEcliptic(lon, 0, t)
	return astro.BodyPosition{
		Body:           name,
		RAdeg:          ra,
		DecDeg:         dec,
		SpeedDegPerDay: nodeSpeedDegPerDay,
		EclipticLonDeg: lon,
	}
}
