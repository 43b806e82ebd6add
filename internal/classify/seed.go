package classify

import "mail-triage/backend/internal/label"

type seedExample struct {
	text     string
	category label.Category
}

// seedCorpus is the fixed bilingual training set used when no persisted model
// exists. It is intentionally small: this classifier is a last-resort signal.
var seedCorpus = []seedExample{
	{"Bom dia, podem informar o status do chamado 123456? Atualização do protocolo.", label.Productive},
	{"Segue em anexo o comprovante solicitado. Precisam de mais alguma informação?", label.Productive},
	{"Erro ao acessar o sistema desde ontem. Podem ajudar?", label.Productive},
	{"Solicito reabertura do ticket 555666. O problema persiste.", label.Productive},
	{"Atualizem o andamento do caso em aberto, por favor.", label.Productive},
	{"Como alterar minha senha? Não recebi o email de recuperação.", label.Productive},
	{"Preciso suporte técnico para integrar o arquivo XML no portal.", label.Productive},
	{"Favor confirmar recebimento do documento anexado e prazo.", label.Productive},
	{"Previsão para resolução do incidente INC-9001?", label.Productive},
	{"Feliz Natal a todos! Muito sucesso!", label.Unproductive},
	{"Agradeço a ajuda, podem desconsiderar o último email.", label.Unproductive},
	{"Bom final de semana! Abraços.", label.Unproductive},
	{"Parabéns pelo excelente trabalho!", label.Unproductive},
	{"Obrigado, era só isso mesmo.", label.Unproductive},
	{"Que Deus abençoe a todos!", label.Unproductive},
	{"Could you please update the status of my ticket 123456?", label.Productive},
	{"Attached is the requested invoice. Please confirm receipt.", label.Productive},
	{"Happy holidays team! All the best!", label.Unproductive},
	{"Thank you for the support, you can ignore the last message.", label.Unproductive},
	{"Podem encerrar o chamado 778899, o problema foi resolvido.", label.Unproductive},
	{"Pode fechar o ticket 12345, já está ok.", label.Unproductive},
	{"Pode encerrar o ticket 43210, já foi resolvido.", label.Unproductive},
	{"Favor fechar o protocolo 987654; está finalizado.", label.Unproductive},
	{"Solicito encerramento do protocolo 555666. Tudo resolvido.", label.Unproductive},
}
