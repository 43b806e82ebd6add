package fastpath

import (
	"sort"
	"strings"
	"unicode/utf8"

	"mail-triage/backend/internal/label"
	"mail-triage/backend/internal/nlp"
)

// Result is the fastpath opinion: a category/intent/confidence triple.
type Result struct {
	Category   label.Category `json:"category"`
	Intent     label.Intent   `json:"intent"`
	Confidence float64        `json:"confidence"`
}

// Confidence bounds for synonym matches. The document override sits above the
// ceiling on purpose.
const (
	confBase    = 0.55
	confPerHit  = 0.12
	confCeiling = 0.95
	confBonus   = 0.05

	documentOverrideConfidence = 0.9
)

// Markers for the "non-message document" override. A document marker with no
// action marker means the text is a CV/portfolio/contract drop, not a support
// request.
var documentMarkers = []string{
	"curriculo", "resume", "curriculum", "portfolio", "linkedin.com/in/",
	"contrato", "contract", "manual", "politica", "policy", "anuncio",
	"announcement",
}

var actionMarkers = []string{
	"status", "ticket", "protocolo", "erro", "error", "acesso", "login",
	"suporte", "support",
}

// Match scores the text against the synonym table and returns the best
// intent, or nil when the matcher has no opinion. A missing or invalid
// configuration file also yields nil so other signal sources take over.
func (m *Matcher) Match(text string) *Result {
	t := nlp.Fold(text)
	if strings.TrimSpace(t) == "" {
		return nil
	}

	if containsAny(t, documentMarkers) && !containsAny(t, actionMarkers) {
		return &Result{
			Category:   label.Unproductive,
			Intent:     label.NonMessage,
			Confidence: documentOverrideConfidence,
		}
	}

	cfg, err := m.config()
	if err != nil {
		return nil
	}

	type scored struct {
		intent label.Intent
		hits   int
	}
	var candidates []scored
	for rawIntent, terms := range cfg.Synonyms {
		it := label.ParseIntent(rawIntent, "")
		if it == "" {
			continue
		}
		hits := 0
		for _, term := range terms {
			if folded := nlp.Fold(term); folded != "" && strings.Contains(t, folded) {
				hits++
			}
		}
		if hits > 0 {
			candidates = append(candidates, scored{intent: it, hits: hits})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.hits != b.hits {
			return a.hits > b.hits
		}
		ai, bi := cfg.priorityIndex(a.intent), cfg.priorityIndex(b.intent)
		if ai != bi {
			return ai < bi
		}
		return a.intent < b.intent
	})
	best := candidates[0]

	conf := confBase + confPerHit*float64(min(best.hits, 4))
	if n := utf8.RuneCountInString(t); n >= 80 && n <= 800 {
		conf += confBonus
	}
	if conf < confBase {
		conf = confBase
	}
	if conf > confCeiling {
		conf = confCeiling
	}

	return &Result{
		Category:   label.CategoryFor(best.intent),
		Intent:     best.intent,
		Confidence: conf,
	}
}

// priorityIndex ranks an intent by its position in the configured
// priority_order, falling back to the fixed intent priority list for intents
// the configuration does not mention.
func (c *Config) priorityIndex(i label.Intent) int {
	for idx, raw := range c.PriorityOrder {
		if label.ParseIntent(raw, "") == i {
			return idx
		}
	}
	return 1000 + label.PriorityIndex(i)
}

func containsAny(t string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(t, m) {
			return true
		}
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
