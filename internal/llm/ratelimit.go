package llm

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/cuongbtq/job-hoarder/internal/domain"
)

// RateLimited waits on a shared limiter before delegating.
type RateLimited struct {
	inner   Gateway
	limiter *rate.Limiter
}

func NewRateLimited(inner Gateway, limiter *rate.Limiter) *RateLimited {
	return &RateLimited{inner: inner, limiter: limiter}
}

func (g *RateLimited) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", domain.TransportError("rate limiter wait", err)
	}
	return g.inner.Complete(ctx, systemPrompt, userPrompt)
}
