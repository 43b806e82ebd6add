// Package triage orchestrates one email through language detection,
// preprocessing, the classification signal sources, arbitration and reply
// synthesis.
package triage

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"mail-triage/backend/internal/ai"
	"mail-triage/backend/internal/arbiter"
	"mail-triage/backend/internal/classify"
	"mail-triage/backend/internal/fastpath"
	"mail-triage/backend/internal/intent"
	"mail-triage/backend/internal/label"
	"mail-triage/backend/internal/nlp"
	"mail-triage/backend/internal/reply"
)

// ErrProviderUnavailable is returned when the AI provider fails and the
// deployment forbids local fallbacks.
var ErrProviderUnavailable = errors.New("ai provider unavailable and fallback disabled")

// Request is one email to triage. Placeholder marks synthetic bodies standing
// in for non-extractable uploads; those skip AI reply generation.
type Request struct {
	Text        string
	Placeholder bool
}

// Result is the full triage outcome for one request.
type Result struct {
	Category    label.Category
	Intent      label.Intent
	Confidence  float64
	Source      ai.Source
	Language    string
	CleanText   string
	TopFeatures []string
	ReplyPT     string
	ReplyEN     string
	Debug       map[string]any
}

// Pipeline wires the signal sources together. Every field is injectable so
// tests can run without network access or a database.
type Pipeline struct {
	Provider ai.Provider
	Fastpath *fastpath.Matcher
	Local    *classify.Model
	Synth    *reply.Synthesizer

	// RequireAI turns a provider failure into an error instead of falling
	// back to fastpath or the local model.
	RequireAI bool
}

func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	raw := req.Text
	lang := nlp.DetectLanguage(raw)
	clean := nlp.Preprocess(raw, lang)
	intentRegex := intent.Detect(raw)

	var fp *fastpath.Result
	if p.Fastpath != nil {
		fp = p.Fastpath.Match(raw)
	}

	var (
		intentAI       label.Intent
		intentFastpath label.Intent
		sourceCategory label.Category
		sourceConf     float64
		source         ai.Source
		topFeatures    []string
		labelLocal     label.Category
	)
	if fp != nil {
		intentFastpath = fp.Intent
	}

	classified := false
	if p.Provider != nil && p.Provider.Enabled() {
		res, err := p.Provider.Classify(ctx, raw)
		if err == nil && res.OK {
			intentAI = res.Intent
			sourceCategory = res.Category
			sourceConf = res.Confidence
			source = ai.SourceAI
			classified = true
		} else {
			logrus.WithField("provider", p.Provider.Name()).WithError(err).
				Warn("ai classification failed, evaluating fallbacks")
		}
	}

	if !classified {
		if p.RequireAI {
			return nil, ErrProviderUnavailable
		}
		if fp != nil {
			sourceCategory = fp.Category
			sourceConf = fp.Confidence
			source = ai.SourceFastpath
			classified = true
			// The fastpath intent carries the weight of the classification
			// source, so it votes in the primary slot too. Without the double
			// vote a single regex hit could outrank the document override.
			intentAI = fp.Intent
		}
	}

	if !classified {
		pred, err := p.Local.Predict(clean)
		if err != nil {
			return nil, err
		}
		sourceCategory = pred.Category
		sourceConf = pred.Probability
		source = ai.SourceLocal
		topFeatures = pred.TopFeatures
		labelLocal = pred.Category
	}

	decision := arbiter.Decide(intentAI, intentRegex, intentFastpath, raw, sourceCategory, sourceConf)

	// AI-generated replies only make sense when the AI also did the
	// classification; synthetic placeholder bodies and document drops get
	// templates outright.
	skipAI := req.Placeholder || decision.Intent == label.NonMessage || source != ai.SourceAI
	var replyPT, replyEN string
	if p.Synth != nil {
		replyPT, replyEN = p.Synth.Replies(ctx, raw, decision.Category, decision.Intent, skipAI)
	}

	debug := map[string]any{
		"provider":     providerName(p.Provider),
		"source":       string(source),
		"intent_api":   string(intentAI),
		"intent_local": string(intentRegex),
		"intent_cfg":   string(intentFastpath),
		"intent_final": string(decision.Intent),
		"label_api":    string(sourceCategory),
		"label_local":  string(labelLocal),
		"label_final":  string(decision.Category),
		"conf_input":   sourceConf,
		"conf_final":   decision.Confidence,
		"forced":       decision.Forced,
	}

	return &Result{
		Category:    decision.Category,
		Intent:      decision.Intent,
		Confidence:  decision.Confidence,
		Source:      source,
		Language:    lang,
		CleanText:   clean,
		TopFeatures: topFeatures,
		ReplyPT:     replyPT,
		ReplyEN:     replyEN,
		Debug:       debug,
	}, nil
}

func providerName(p ai.Provider) string {
	if p == nil {
		return "none"
	}
	return p.Name()
}
