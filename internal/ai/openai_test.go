package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mail-triage/backend/internal/label"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": content}},
			},
		})
		w.Write(body)
	}))
}

func newTestOpenAI(t *testing.T, baseURL string) *OpenAIClient {
	t.Helper()
	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "test-key", BaseURL: baseURL})
	if err != nil {
		t.Fatalf("new openai client: %v", err)
	}
	return client
}

func TestOpenAIClassifyParsesStrictJSON(t *testing.T) {
	server := chatServer(t, `{"category":"Produtivo","intent":"ERROR","confidence":0.92}`)
	defer server.Close()

	res, err := newTestOpenAI(t, server.URL).Classify(context.Background(), "erro no sistema")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Category != label.Productive || res.Intent != label.Error || res.Confidence != 0.92 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Source != SourceAI {
		t.Fatalf("expected ai source, got %s", res.Source)
	}
}

func TestOpenAIClassifyFencedJSON(t *testing.T) {
	server := chatServer(t, "```json\n{\"category\":\"Improdutivo\",\"intent\":\"THANKS\",\"confidence\":0.8}\n```")
	defer server.Close()

	res, err := newTestOpenAI(t, server.URL).Classify(context.Background(), "obrigado!")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Category != label.Unproductive || res.Intent != label.Thanks {
		t.Fatalf("fenced JSON not parsed: %+v", res)
	}
}

func TestOpenAIClassifyMalformedDefaults(t *testing.T) {
	tests := []struct {
		name             string
		content          string
		expectedCategory label.Category
		expectedIntent   label.Intent
	}{
		{"garbage", "sorry, I cannot help with that", label.Productive, label.Other},
		{"non-message implies improdutivo", `{"intent":"NON_MESSAGE"}`, label.Unproductive, label.NonMessage},
		{"unknown intent", `{"category":"Produtivo","intent":"BANANA"}`, label.Productive, label.Other},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := chatServer(t, tc.content)
			defer server.Close()

			res, err := newTestOpenAI(t, server.URL).Classify(context.Background(), "algum texto de email")
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			if res.Category != tc.expectedCategory || res.Intent != tc.expectedIntent {
				t.Fatalf("expected %s/%s got %s/%s", tc.expectedCategory, tc.expectedIntent, res.Category, res.Intent)
			}
			if tc.content == "sorry, I cannot help with that" && res.Confidence != 0.65 {
				t.Fatalf("missing confidence must default to 0.65, got %.2f", res.Confidence)
			}
		})
	}
}

func TestOpenAIClassifyErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	res, err := newTestOpenAI(t, server.URL).Classify(context.Background(), "texto qualquer")
	if err == nil {
		t.Fatalf("expected error")
	}
	if res.OK || res.Source != SourceUnavailable {
		t.Fatalf("expected unavailable result, got %+v", res)
	}
}

func TestNormalizeJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose wrapped", `Here you go: {"a":1} hope it helps`, `{"a":1}`},
		{"empty", "   ", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeJSONBlock(tc.in); got != tc.expected {
				t.Fatalf("expected %q got %q", tc.expected, got)
			}
		})
	}
}

func TestWithFallback(t *testing.T) {
	if WithFallback(nil, nil) != nil {
		t.Fatalf("nil providers collapse to nil")
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()
	good := chatServer(t, `{"category":"Produtivo","intent":"STATUS","confidence":0.7}`)
	defer good.Close()

	chain := WithFallback(newTestOpenAI(t, bad.URL), newTestOpenAI(t, good.URL))
	res, err := chain.Classify(context.Background(), "qual o status?")
	if err != nil {
		t.Fatalf("chain classify: %v", err)
	}
	if res.Intent != label.Status {
		t.Fatalf("fallback not consulted: %+v", res)
	}
}
