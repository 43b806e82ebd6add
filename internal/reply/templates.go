// Package reply builds localized reply text: AI-generated when usable,
// deterministic templates otherwise.
package reply

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"mail-triage/backend/internal/label"
	"mail-triage/backend/internal/nlp"
)

const (
	signPT = "Atenciosamente,\nEquipe de Suporte"
	signEN = "Best regards,\nSupport Team"
)

var ticketPattern = regexp.MustCompile(`(?i)(INC-\d+|\b\d{5,}\b)`)

// Ticket extracts a ticket/incident identifier from the raw text, or "".
func Ticket(text string) string {
	return ticketPattern.FindString(text)
}

// Future-tense phrasing: the sender promises evidence, nothing is attached.
var futureMarkers = []string{
	"posso enviar", "vou enviar", "enviarei", "posso mandar", "mandarei",
	"posso encaminhar", "encaminharei", "poderia enviar", "podem me enviar",
	"podem enviar", "podem mandar", "poderiam enviar",
	"i can send", "i will send", "i'll send", "will provide", "can provide",
}

var strongAttachMarkers = []string{
	"em anexo", "segue em anexo", "segue anexo", "conforme anexo",
	"anexei", "anexamos", "anexado", "vai anexo", "vao anexos",
	"comprovante em anexo", "documento em anexo",
	"attached", "attachment", "attachments", "please find attached",
	"enclosed", "file attached", "files attached",
}

var genericAttachMarkers = []string{
	"print", "prints", "captura de tela", "screenshot", "screenshots",
	"arquivo", "arquivos", "comprovante", "comprovantes",
	"log", "logs", "evidencia", "evidencias", "evidence", "evidences",
}

// HasAttachment distinguishes "already attached" phrasing from "I will send
// later" phrasing, so ERROR replies either acknowledge received evidence or
// request it.
func HasAttachment(text string) bool {
	t := nlp.Fold(text)
	for _, m := range futureMarkers {
		if strings.Contains(t, m) {
			return false
		}
	}
	for _, m := range strongAttachMarkers {
		if strings.Contains(t, m) {
			return true
		}
	}
	for _, m := range genericAttachMarkers {
		if strings.Contains(t, m) {
			return true
		}
	}
	return false
}

// BuildTemplate renders the deterministic reply for (category, intent, lang),
// interpolating a detected ticket number and the attachment heuristic.
func BuildTemplate(rawText string, category label.Category, intent label.Intent, lang string) string {
	ticket := Ticket(rawText)
	hasAttachment := HasAttachment(rawText)
	if strings.HasPrefix(strings.ToLower(lang), "en") {
		return buildEN(category, intent, ticket, hasAttachment)
	}
	return buildPT(category, intent, ticket, hasAttachment)
}

func buildEN(category label.Category, intent label.Intent, ticket string, hasAttachment bool) string {
	sign := fmt.Sprintf("%s • %s", signEN, time.Now().Format("2006-01-02 15:04"))

	if category == label.Productive {
		switch intent {
		case label.Support:
			return "Hi,\n\nWe understand your technical support request. Our team is already reviewing it and will get back to you shortly with further guidance.\n\n" + sign
		case label.Status:
			return fmt.Sprintf("Hi,\n\nThanks for reaching out. We're checking the current status%s and will get back to you shortly.\nIf possible, please share recent logs/screenshots or the ticket number to speed up the analysis.\n\n%s",
				clause(ticket, " for ticket %s"), sign)
		case label.Attachment:
			return fmt.Sprintf("Hi,\n\nWe've received your file%s. We'll validate it and reply with next steps.\n\n%s",
				clause(ticket, " related to ticket %s"), sign)
		case label.Access:
			return "Hi,\n\nSorry about the access issue. Please confirm your login e-mail and whether you received a lockout message.\nWe can proceed with an unlock or password reset as needed.\n\n" + sign
		case label.Error:
			if hasAttachment {
				return fmt.Sprintf("Hi,\n\nSorry about the issue%s. We confirm we've received the attachments and will analyze them along with your report. We'll get back to you shortly with guidance.\n\n%s",
					clause(ticket, " on ticket %s"), sign)
			}
			return fmt.Sprintf("Hi,\n\nSorry about the issue%s. To investigate quickly, please share steps to reproduce, approximate time of occurrence, and any logs/screenshots you may have.\n\n%s",
				clause(ticket, " on ticket %s"), sign)
		}
		return fmt.Sprintf("Hi,\n\nThanks for your message%s. We're analyzing it and will share an update soon.\n\n%s",
			clause(ticket, " regarding ticket %s"), sign)
	}

	switch intent {
	case label.Closure:
		return "Hi,\n\nThanks for the update! We'll close the ticket here. If you need anything else, just let us know.\n\n" + sign
	case label.Thanks:
		return "Hi,\n\nYou're welcome! We're here if you need anything else.\n\n" + sign
	case label.Greetings:
		return "Hi,\n\nThanks for the message and kind wishes! (No action required.)\n\n" + sign
	}
	return "Hi,\n\nThank you for your message. No action is required at this time. We're at your disposal if you need anything else.\n\n" + sign
}

func buildPT(category label.Category, intent label.Intent, ticket string, hasAttachment bool) string {
	sign := fmt.Sprintf("%s • %s", signPT, time.Now().Format("02/01/2006 15:04"))

	if category == label.Productive {
		switch intent {
		case label.Support:
			return "Olá,\n\nEntendemos a sua solicitação de suporte técnico. Já estamos analisando e retornaremos em breve com orientações.\n\n" + sign
		case label.Status:
			return fmt.Sprintf("Olá,\n\nObrigado pela mensagem. Estamos verificando o status%s e retornaremos em breve com uma atualização.\nSe possível, encaminhe logs/prints recentes ou o número do ticket para agilizar a análise.\n\n%s",
				clause(ticket, " do ticket/protocolo %s"), sign)
		case label.Attachment:
			return fmt.Sprintf("Olá,\n\nRecebemos o arquivo%s. Vamos validar o material e retornaremos com os próximos passos.\n\n%s",
				clause(ticket, " referente ao ticket %s"), sign)
		case label.Access:
			return "Olá,\n\nLamentamos o transtorno com o acesso. Para seguirmos com agilidade, confirme o e-mail de login e se houve mensagem de bloqueio.\nPodemos realizar o desbloqueio ou o reset de senha, conforme necessário.\n\n" + sign
		case label.Error:
			if hasAttachment {
				return fmt.Sprintf("Olá,\n\nLamentamos o ocorrido%s. Confirmamos o recebimento dos anexos e vamos analisá-los em conjunto com o seu relato. Retornaremos em breve com as orientações.\n\n%s",
					clause(ticket, " no ticket %s"), sign)
			}
			return fmt.Sprintf("Olá,\n\nLamentamos o ocorrido%s. Para darmos sequência com agilidade, poderia nos enviar os passos para reproduzir, o horário aproximado da ocorrência e eventuais logs/prints?\n\n%s",
				clause(ticket, " no ticket %s"), sign)
		}
		return fmt.Sprintf("Olá,\n\nObrigado pelo contato%s. Já estamos analisando sua solicitação e voltamos em breve com uma atualização.\n\n%s",
			clause(ticket, " sobre o ticket %s"), sign)
	}

	switch intent {
	case label.Closure:
		return "Olá,\n\nAgradecemos o retorno! Vamos encerrar o chamado por aqui. Caso precise novamente, é só nos acionar.\n\n" + sign
	case label.Thanks:
		return "Olá,\n\nNós que agradecemos! Ficamos à disposição para qualquer outra necessidade.\n\n" + sign
	case label.Greetings:
		return "Olá,\n\nObrigado pela mensagem e pelos votos! (Não é necessário retorno.)\n\n" + sign
	}
	return "Olá,\n\nObrigado pela mensagem. No momento, não identificamos ações pendentes. Permanecemos à disposição para o que precisar.\n\n" + sign
}

// clause interpolates a ticket reference, or nothing when no ticket was found.
func clause(ticket, format string) string {
	if ticket == "" {
		return ""
	}
	return fmt.Sprintf(format, ticket)
}
