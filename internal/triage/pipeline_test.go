package triage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"mail-triage/backend/internal/ai"
	"mail-triage/backend/internal/classify"
	"mail-triage/backend/internal/fastpath"
	"mail-triage/backend/internal/label"
	"mail-triage/backend/internal/reply"
)

type fakeProvider struct {
	enabled bool
	result  ai.ClassifyResult
	err     error
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Enabled() bool { return f.enabled }

func (f *fakeProvider) Classify(ctx context.Context, text string) (ai.ClassifyResult, error) {
	if f.err != nil {
		return ai.ClassifyResult{Source: ai.SourceUnavailable}, f.err
	}
	return f.result, nil
}

func (f *fakeProvider) GenerateReply(ctx context.Context, text string, category label.Category, intent label.Intent, lang string) (string, error) {
	return "", ai.ErrUnavailable
}

func writeIntentConfig(t *testing.T) string {
	t.Helper()
	cfg := map[string]any{
		"synonyms": map[string][]string{
			"STATUS":  {"status", "andamento", "atualizacao"},
			"CLOSURE": {"pode encerrar", "pode fechar"},
		},
		"priority_order": []string{"CLOSURE", "STATUS"},
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "intents.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newPipeline(t *testing.T, provider ai.Provider, requireAI bool) *Pipeline {
	t.Helper()
	return &Pipeline{
		Provider:  provider,
		Fastpath:  fastpath.NewMatcher(writeIntentConfig(t)),
		Local:     classify.NewModel(nil),
		Synth:     reply.NewSynthesizer(provider),
		RequireAI: requireAI,
	}
}

func TestRunWithProvider(t *testing.T) {
	p := newPipeline(t, &fakeProvider{
		enabled: true,
		result: ai.ClassifyResult{
			OK:         true,
			Category:   label.Productive,
			Intent:     label.Status,
			Confidence: 0.91,
			Source:     ai.SourceAI,
		},
	}, false)

	res, err := p.Run(context.Background(), Request{Text: "Poderiam informar o status do chamado 12345?"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != ai.SourceAI {
		t.Fatalf("source = %q, want ai", res.Source)
	}
	if res.Category != label.Productive || res.Intent != label.Status {
		t.Fatalf("got %s/%s", res.Category, res.Intent)
	}
	if res.Confidence != 0.91 {
		t.Fatalf("confidence = %v", res.Confidence)
	}
	if res.Language != "pt" {
		t.Fatalf("language = %q", res.Language)
	}
	if res.ReplyPT == "" || res.ReplyEN == "" {
		t.Fatal("expected replies for both languages")
	}
	if res.Debug["intent_final"] != "STATUS" {
		t.Fatalf("debug intent_final = %v", res.Debug["intent_final"])
	}
}

func TestRunFallsBackToFastpath(t *testing.T) {
	p := newPipeline(t, &fakeProvider{enabled: true, err: ai.ErrUnavailable}, false)

	res, err := p.Run(context.Background(), Request{Text: "Qual o andamento do chamado? Aguardo atualizacao do status."})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != ai.SourceFastpath {
		t.Fatalf("source = %q, want fastpath", res.Source)
	}
	if res.Intent != label.Status {
		t.Fatalf("intent = %q", res.Intent)
	}
}

func TestRunFallsBackToLocalModel(t *testing.T) {
	p := newPipeline(t, &fakeProvider{enabled: false}, false)
	// No fastpath synonyms match this text, so the trained model decides.
	res, err := p.Run(context.Background(), Request{Text: "O sistema apresenta falha e erro ao processar o pedido, preciso de analise"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != ai.SourceLocal {
		t.Fatalf("source = %q, want local_fallback", res.Source)
	}
	if res.Category != label.Productive {
		t.Fatalf("category = %q", res.Category)
	}
	if len(res.TopFeatures) == 0 {
		t.Fatal("expected top features from the local model")
	}
}

func TestRunRequireAI(t *testing.T) {
	p := newPipeline(t, &fakeProvider{enabled: true, err: ai.ErrUnavailable}, true)
	_, err := p.Run(context.Background(), Request{Text: "Qual o andamento do chamado?"})
	if err != ErrProviderUnavailable {
		t.Fatalf("err = %v, want ErrProviderUnavailable", err)
	}
}

func TestRunClosureWinsArbitration(t *testing.T) {
	// Provider says ERROR but the body asks to close; CLOSURE is unconditional.
	p := newPipeline(t, &fakeProvider{
		enabled: true,
		result: ai.ClassifyResult{
			OK:         true,
			Category:   label.Productive,
			Intent:     label.Error,
			Confidence: 0.9,
			Source:     ai.SourceAI,
		},
	}, false)

	res, err := p.Run(context.Background(), Request{Text: "Pode fechar o ticket 12345, o erro ja foi resolvido. Obrigado!"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Intent != label.Closure {
		t.Fatalf("intent = %q, want CLOSURE", res.Intent)
	}
	if res.Category != label.Unproductive {
		t.Fatalf("category = %q, want Improdutivo", res.Category)
	}
	if !res.Debug["forced"].(bool) {
		t.Fatal("expected forced flag when category flips")
	}
	if res.Confidence > 0.75 {
		t.Fatalf("confidence = %v, want capped at 0.75", res.Confidence)
	}
}

func TestRunDocumentOverrideSurvivesArbitration(t *testing.T) {
	p := newPipeline(t, &fakeProvider{enabled: false}, false)

	// Document drops with no action marker resolve to NON_MESSAGE even when
	// an attachment mention gives the rule engine a competing vote.
	for _, text := range []string{
		"Segue meu curriculo atualizado e portfolio para a vaga de analista.",
		"Segue em anexo meu curriculo para avaliacao da equipe.",
	} {
		res, err := p.Run(context.Background(), Request{Text: text})
		if err != nil {
			t.Fatal(err)
		}
		if res.Intent != label.NonMessage {
			t.Fatalf("%q: intent = %q, want NON_MESSAGE", text, res.Intent)
		}
		if res.Category != label.Unproductive {
			t.Fatalf("%q: category = %q, want Improdutivo", text, res.Category)
		}
		if res.Confidence != 0.9 {
			t.Fatalf("%q: confidence = %v, want 0.9", text, res.Confidence)
		}
		if res.Source != ai.SourceFastpath {
			t.Fatalf("%q: source = %q, want fastpath", text, res.Source)
		}
	}
}

func TestRunPlaceholderSkipsGeneration(t *testing.T) {
	p := newPipeline(t, &fakeProvider{enabled: false}, false)
	res, err := p.Run(context.Background(), Request{
		Text:        "[PDF recebido: relatorio.pdf] Conteudo nao extraivel automaticamente.",
		Placeholder: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.ReplyPT == "" || res.ReplyEN == "" {
		t.Fatal("placeholder inputs still get template replies")
	}
}
