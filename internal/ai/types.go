// Package ai talks to external inference providers for email classification
// and reply generation.
package ai

import (
	"context"
	"errors"

	"mail-triage/backend/internal/label"
)

// Source identifies which signal path produced a classification.
type Source string

const (
	SourceAI          Source = "ai"
	SourceLocal       Source = "local_fallback"
	SourceFastpath    Source = "fastpath"
	SourceUnavailable Source = "unavailable"
)

// ClassifyResult is the provider's opinion for one request. Created fresh per
// request and never persisted.
type ClassifyResult struct {
	OK         bool
	Category   label.Category
	Intent     label.Intent
	Confidence float64
	Source     Source
	Raw        map[string]any
}

// Provider is the behavioural contract shared by all backends. Classify never
// blocks indefinitely: every remote call carries a bounded timeout.
// GenerateReply is best-effort; callers fall back to templates on empty text.
type Provider interface {
	Name() string
	Enabled() bool
	Classify(ctx context.Context, text string) (ClassifyResult, error)
	GenerateReply(ctx context.Context, text string, category label.Category, intent label.Intent, lang string) (string, error)
}

// ErrUnavailable signals that the configured provider exhausted its retries
// or is not configured at all.
var ErrUnavailable = errors.New("ai provider unavailable")

// trimLimit bounds the characters sent to any remote backend.
const trimLimit = 4000

// trimText keeps the head and tail of over-long inputs. Intent signals
// concentrate in the opening context and the concluding request.
func trimText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	half := limit / 2
	return string(runes[:half]) + "\n...\n" + string(runes[len(runes)-half:])
}
