package nlp

import "strings"

// Marker phrases scored by DetectLanguage. Counts, not presence, so repeated
// greetings weigh in.
var ptMarkers = []string{
	"por favor", "obrigado", "obrigada", "bom dia", "boa tarde", "boa noite",
	"anexo", "andamento", "protocolo", "atualização", "atualizacao",
	"solicitação", "solicitacao", "dúvida", "duvida", "aguardo", "retorno",
	"segue em anexo", "favor", "previsão", "previsao", "chamado", "incidente",
}

var enMarkers = []string{
	"please", "thanks", "thank you", "hi", "hello", "attachment", "status",
	"ticket", "update", "request", "question", "regards", "case",
}

// DetectLanguage guesses between "pt" and "en" by counting marker phrase
// occurrences. Ties and near-ties resolve to "pt": the audience is assumed
// Portuguese-first.
func DetectLanguage(text string) string {
	t := strings.ToLower(text)

	ptScore := 0
	for _, m := range ptMarkers {
		ptScore += strings.Count(t, m)
	}
	enScore := 0
	for _, m := range enMarkers {
		enScore += strings.Count(t, m)
	}

	if enScore >= ptScore+2 {
		return "en"
	}
	return "pt"
}
