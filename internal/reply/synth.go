package reply

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"mail-triage/backend/internal/ai"
	"mail-triage/backend/internal/label"
	"mail-triage/backend/internal/nlp"
)

// Synthesizer produces the PT and EN reply pair for a classified email.
// AI-generated text is preferred when the provider is enabled and the
// generation passes the language guard; templates cover every other path.
type Synthesizer struct {
	provider ai.Provider
}

func NewSynthesizer(provider ai.Provider) *Synthesizer {
	return &Synthesizer{provider: provider}
}

// Replies returns (replyPT, replyEN). skipAI forces templates for both
// languages, used for placeholder and NON_MESSAGE inputs where generating
// prose from the body would be meaningless.
func (s *Synthesizer) Replies(ctx context.Context, rawText string, category label.Category, intent label.Intent, skipAI bool) (string, string) {
	pt := s.build(ctx, rawText, category, intent, "pt", skipAI)
	en := s.build(ctx, rawText, category, intent, "en", skipAI)
	return pt, en
}

func (s *Synthesizer) build(ctx context.Context, rawText string, category label.Category, intent label.Intent, lang string, skipAI bool) string {
	if !skipAI && s.provider != nil && s.provider.Enabled() {
		generated, err := s.provider.GenerateReply(ctx, rawText, category, intent, lang)
		if err == nil {
			generated = strings.TrimSpace(generated)
			if generated != "" && nlp.MatchesLanguage(generated, lang) {
				return generated
			}
			if generated != "" {
				logrus.WithFields(logrus.Fields{
					"provider": s.provider.Name(),
					"lang":     lang,
				}).Debug("generated reply failed language guard, using template")
			}
		} else {
			logrus.WithFields(logrus.Fields{
				"provider": s.provider.Name(),
				"lang":     lang,
			}).WithError(err).Debug("reply generation failed, using template")
		}
	}
	return BuildTemplate(rawText, category, intent, lang)
}
