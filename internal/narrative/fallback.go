package narrative

import (
	"context"

	"go.uber.org/zap"

	"github.com/fintel-ai/tribunal/internal/resilience"
)

// FallbackGenerator tries the primary provider first and switches to the
// secondary only when the primary reports rate exhaustion. Any other
// primary failure, and any secondary failure, propagates to the caller,
// which decides role by role how to degrade.
type FallbackGenerator struct {
	primary   Generator
	secondary Generator
}

// NewFallbackGenerator chains a primary and secondary generator.
func NewFallbackGenerator(primary, secondary Generator) *FallbackGenerator {
	return &FallbackGenerator{primary: primary, secondary: secondary}
}

func (g *FallbackGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	resp, err := g.primary.Generate(ctx, req)
	if err == nil {
		return resp, nil
	}
	if g.secondary == nil || !resilience.IsRateLimited(err) {
		return nil, err
	}

	zap.L().Warn("primary narrative provider rate limited, using secondary",
		zap.Error(err),
	)
	return g.secondary.Generate(ctx, req)
}
