// Package arbiter reconciles the independently computed intent signals into
// one final decision. It is state-free: pure functions over the inputs.
package arbiter

import (
	"sort"

	"mail-triage/backend/internal/intent"
	"mail-triage/backend/internal/label"
	"mail-triage/backend/internal/nlp"
)

// ConfidenceCap bounds the reported confidence whenever the winning raw
// label's category disagrees with the category implied by the arbitrated
// intent.
const ConfidenceCap = 0.75

// Decision is the single value flowing into reply synthesis and the response
// payload.
type Decision struct {
	Category   label.Category
	Intent     label.Intent
	Confidence float64
	Forced     bool
}

// PickIntent combines candidate intents. CLOSURE wins unconditionally;
// otherwise majority vote among the non-empty candidates with ties broken by
// the fixed priority order. No usable candidate yields OTHER.
func PickIntent(candidates ...label.Intent) label.Intent {
	counts := make(map[label.Intent]int)
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if c == label.Closure {
			return label.Closure
		}
		counts[c]++
	}
	if len(counts) == 0 {
		return label.Other
	}

	type tally struct {
		intent label.Intent
		count  int
	}
	ranked := make([]tally, 0, len(counts))
	for it, count := range counts {
		ranked = append(ranked, tally{intent: it, count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return label.PriorityIndex(ranked[i].intent) < label.PriorityIndex(ranked[j].intent)
	})
	return ranked[0].intent
}

// promote corrects ATTACHMENT to ERROR when the raw text also carries error
// vocabulary: an attachment alongside incident language is evidence of a
// problem report, not a neutral file drop.
func promote(it label.Intent, rawText string) label.Intent {
	if it == label.Attachment && intent.ErrorSigns.MatchString(nlp.Fold(rawText)) {
		return label.Error
	}
	return it
}

// Decide arbitrates the intent signals, derives the category from the final
// intent and applies the confidence trust penalty when the category-source
// label disagrees with that derived category.
func Decide(intentAI, intentRegex, intentFastpath label.Intent, rawText string, sourceCategory label.Category, sourceConfidence float64) Decision {
	final := promote(PickIntent(intentAI, intentRegex, intentFastpath), rawText)
	category := label.CategoryFor(final)

	confidence := sourceConfidence
	forced := sourceCategory != "" && sourceCategory != category
	if forced && confidence > ConfidenceCap {
		confidence = ConfidenceCap
	}

	return Decision{
		Category:   category,
		Intent:     final,
		Confidence: confidence,
		Forced:     forced,
	}
}
