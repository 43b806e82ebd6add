package nlp

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Strong greeting/closing markers that rarely appear outside their language.
// Folded form: compare against Fold(text).
var strongPT = []string{
	"atenciosamente", "prezado", "prezada", "ola,", "obrigado", "obrigada",
	"cordialmente", "bom dia", "boa tarde", "boa noite", "equipe de suporte",
}

var strongEN = []string{
	"best regards", "kind regards", "sincerely", "dear ", "hi,", "hello,",
	"thank you", "support team",
}

// MatchesLanguage validates AI-generated reply text against the target
// language. Stage one rejects text carrying strong markers of the opposite
// language; stage two re-detects the language of the candidate text and
// rejects a confident disagreement.
func MatchesLanguage(text, target string) bool {
	t := Fold(text)
	if strings.TrimSpace(t) == "" {
		return false
	}

	english := strings.HasPrefix(strings.ToLower(target), "en")
	if english {
		for _, m := range strongPT {
			if strings.Contains(t, m) {
				return false
			}
		}
	} else {
		for _, m := range strongEN {
			if strings.Contains(t, m) {
				return false
			}
		}
	}

	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return true
	}
	switch info.Lang {
	case whatlanggo.Eng:
		return english
	case whatlanggo.Por, whatlanggo.Spa:
		// Short Portuguese bodies often detect as a sibling Romance language.
		return !english
	}
	return true
}
