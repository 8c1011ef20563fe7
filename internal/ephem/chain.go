package ephem

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/litescript/ls-carto/internal/astro"
)

// Chain tries providers in order, falling back on failure.
type Chain struct {
	providers []Provider
}

// NewChain creates a fallback chain.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Name implements Provider.
func (c *Chain) Name() string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Available implements Provider.
func (c *Chain) Available(body string) bool {
	for _, p := range c.providers {
		if p.Available(body) {
			return true
		}
	}
	return false
}

// BodyPosition implements Provider. Each provider that claims the body is
// tried in turn; the first success wins.
func (c *Chain) BodyPosition(ctx context.Context, body string, t time.Time) (astro.BodyPosition, error) {
	var errs []error
	for _, p := range c.providers {
		if !p.Available(body) {
			continue
		}
		pos, err := p.BodyPosition(ctx, body, t)
		if err == nil {
			return pos, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return astro.BodyPosition{}, ctxErr
		}
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return astro.BodyPosition{}, &BodyUnavailableError{Body: body, Provider: c.Name(), Err: ErrUnknownBody}
	}
	return astro.BodyPosition{}, &BodyUnavailableError{Body: body, Provider: c.Name(), Err: errors.Join(errs...)}
}
