package ai

import (
	"context"
	"strings"

	"mail-triage/backend/internal/label"
)

type providerChain struct {
	primary  Provider
	fallback Provider
}

// WithFallback returns a provider that first tries the primary backend and
// falls back to the provided one when the primary is unavailable or produces
// an unusable response.
func WithFallback(primary, fallback Provider) Provider {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return &providerChain{primary: primary, fallback: fallback}
}

func (c *providerChain) Name() string {
	if c == nil {
		return "none"
	}
	if c.primary != nil && c.primary.Enabled() {
		return c.primary.Name()
	}
	if c.fallback != nil && c.fallback.Enabled() {
		return c.fallback.Name()
	}
	return "none"
}

func (c *providerChain) Enabled() bool {
	if c == nil {
		return false
	}
	if c.primary != nil && c.primary.Enabled() {
		return true
	}
	return c.fallback != nil && c.fallback.Enabled()
}

func (c *providerChain) Classify(ctx context.Context, text string) (ClassifyResult, error) {
	if c == nil {
		return ClassifyResult{Source: SourceUnavailable}, ErrUnavailable
	}
	var lastErr error = ErrUnavailable
	if c.primary != nil && c.primary.Enabled() {
		res, err := c.primary.Classify(ctx, text)
		if err == nil && res.OK {
			return res, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if c.fallback != nil && c.fallback.Enabled() {
		return c.fallback.Classify(ctx, text)
	}
	return ClassifyResult{Source: SourceUnavailable}, lastErr
}

func (c *providerChain) GenerateReply(ctx context.Context, text string, category label.Category, intent label.Intent, lang string) (string, error) {
	if c == nil {
		return "", ErrUnavailable
	}
	if c.primary != nil && c.primary.Enabled() {
		if reply, err := c.primary.GenerateReply(ctx, text, category, intent, lang); err == nil && strings.TrimSpace(reply) != "" {
			return reply, nil
		}
	}
	if c.fallback != nil && c.fallback.Enabled() {
		return c.fallback.GenerateReply(ctx, text, category, intent, lang)
	}
	return "", ErrUnavailable
}
