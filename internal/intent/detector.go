// Package intent implements the ordered regex rule engine that maps raw email
// text to a fine-grained intent.
package intent

import (
	"regexp"

	"mail-triage/backend/internal/label"
	"mail-triage/backend/internal/nlp"
)

// The cascade below is order-sensitive: the first matching group wins, and
// attachment wording is probed twice on purpose (explicit phrases before
// closure/error/status, bare logs/screenshots only after). Reordering the
// groups changes classification outcomes.
var (
	reAttachExplicit = regexp.MustCompile(`\b(` +
		`em\s+anexo|` +
		`segue(?:m)?\s+(?:em\s+)?anexo[s]?|` +
		`conforme\s+anexo|` +
		`anexei|anexamos|anexado[s]?|` +
		`vai\s+anexo|vao\s+anexos|` +
		`attached|attachment[s]?|enclosed|` +
		`please\s+find\s+attached` +
		`)\b`)

	reClosure = regexp.MustCompile(
		`(?:\b(encerrar|encerramento|fechar|finalizar|desconsiderar)\b.*\b(chamado|ticket|protocolo)\b)` +
			`|(?:\bresolvid\w*\b|issue\s*closed|resolved)`)

	reError = regexp.MustCompile(`\b(erro|falha|bug|trava|travando|inoperante|indisponivel|artefatos?|lentidao|excecao|problema|incidente|error|failure|crash|frozen|hang|timeout|stacktrace|exception|issue|incident)\b`)

	reStatus = regexp.MustCompile(`\b(status|andamento|previsao|prazo|atualizacao|retorno|posicao|acompanhamento|ticket|case|protocolo)\b`)

	reAttachBroad = regexp.MustCompile(`\b(anex\w+|em\s+anexo|segue(?:m)?\s+em\s+anexo|attached|attachment|enclosed|please\s+find\s+attached|logs?|screenshots?)\b`)

	reAccess = regexp.MustCompile(`\b(acesso|logar|login|senha|reset|bloquead|desbloque|autenticacao|2fa|mfa|access|signin|password|locked|unlock|authentication)\b`)

	reThanks = regexp.MustCompile(`\b(obrigado|obrigada|valeu|agradeco|thanks|thank you|thx)\b`)

	reGreetings = regexp.MustCompile(`\b(bom dia|boa tarde|boa noite|boas festas|feliz natal|feliz ano|saudacoes|merry|happy (holidays|christmas|new year)|congratulations|congrats|greetings)\b`)

	// SUPPORT requires a support noun AND an action verb in the same text.
	reSupport = regexp.MustCompile(
		`\b(suporte(?:\s+tecnic[oa])?|technical support|support)\b.*\b(ajuda|ajudar|preciso|poderia|pode(?:m)?|gostaria|solicito|` +
			`integrar|instalar|configurar|setup|integracao|instalacao|configuracao|help|assist)\b`)

	reModal = regexp.MustCompile(`\b(pode(m)?|podem|poderia(m)?|preciso|consegue(m)?)\b`)
)

// ErrorSigns matches incident vocabulary over folded raw text. The arbiter
// uses it to promote ATTACHMENT decisions to ERROR when the attachment rides
// along with an explicit problem report.
var ErrorSigns = regexp.MustCompile(`\b(erro|falha|bug|inoperante|indisponivel|lentidao|excecao|problema|incidente|error|failure|crash|timeout|stacktrace|exception|issue|incident)\b`)

// Detect runs the first-match-wins cascade over the accent-folded text.
func Detect(text string) label.Intent {
	t := nlp.Fold(text)

	switch {
	case reAttachExplicit.MatchString(t):
		return label.Attachment
	case reClosure.MatchString(t):
		return label.Closure
	case reError.MatchString(t):
		return label.Error
	case reStatus.MatchString(t):
		return label.Status
	case reAttachBroad.MatchString(t):
		return label.Attachment
	case reAccess.MatchString(t):
		return label.Access
	case reThanks.MatchString(t):
		return label.Thanks
	case reGreetings.MatchString(t):
		return label.Greetings
	case reSupport.MatchString(t):
		return label.Support
	case reModal.MatchString(t):
		return label.Status
	}
	return label.Other
}
