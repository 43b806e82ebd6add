package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mail-triage/backend/internal/label"
	"mail-triage/backend/internal/util"
)

// OpenAIConfig holds chat-completion backend parameters.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	GenTimeout time.Duration
}

// OpenAIClient implements Provider against a chat-completion API.
type OpenAIClient struct {
	httpClient *http.Client
	genClient  *http.Client
	apiKey     string
	model      string
	baseURL    string
}

// ErrDisabled is returned when a client cannot be constructed from the
// supplied credentials.
var ErrDisabled = errors.New("ai client disabled")

// NewOpenAIClient constructs an OpenAIClient if the configuration is valid.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrDisabled
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.GenTimeout <= 0 {
		cfg.GenTimeout = 10 * time.Second
	}
	return &OpenAIClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		genClient:  &http.Client{Timeout: cfg.GenTimeout},
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

// Name identifies the backend in logs and debug payloads.
func (c *OpenAIClient) Name() string { return "openai" }

// Enabled reports whether the client can make outbound calls.
func (c *OpenAIClient) Enabled() bool {
	return c != nil && c.apiKey != ""
}

const classifySystemPrompt = "Você é um classificador de emails corporativos. " +
	"Classifique o CONTEÚDO como categoria Produtivo ou Improdutivo, e a subintenção em " +
	"STATUS|ATTACHMENT|ACCESS|ERROR|CLOSURE|THANKS|GREETINGS|SUPPORT|NON_MESSAGE|OTHER.\n" +
	"• NON_MESSAGE quando for majoritariamente um documento não-mensagem (CV, portfólio, contrato etc.).\n" +
	"Responda SOMENTE JSON: " +
	"{\"category\":\"Produtivo|Improdutivo\",\"intent\":\"...\",\"confidence\":0..1}."

// Classify asks the chat backend for a strict category+intent+confidence JSON
// object and parses the answer leniently.
func (c *OpenAIClient) Classify(ctx context.Context, text string) (ClassifyResult, error) {
	if !c.Enabled() {
		return ClassifyResult{Source: SourceUnavailable}, ErrDisabled
	}

	user := fmt.Sprintf(`
Regras rápidas:
- Se houver pedido claro (status, erro, acesso etc.), category=Produtivo e intent correspondente.
- Documento genérico (CV/Resume, portfolio, manual, política, anúncio): intent=NON_MESSAGE e category=Improdutivo.
- Exemplos:
  • "Segue currículo..." -> {"category":"Improdutivo","intent":"NON_MESSAGE","confidence":0.9}
  • "Erro ao salvar, ver prints" -> {"category":"Produtivo","intent":"ERROR","confidence":0.9}
  • "Obrigado, era só isso." -> {"category":"Improdutivo","intent":"THANKS","confidence":0.9}

Conteúdo:
%s
`, trimText(text, trimLimit))

	timer := util.StartTimer()
	content, err := c.chat(ctx, c.httpClient, 0.0, classifySystemPrompt, user)
	if err != nil {
		logrus.WithError(err).Warn("openai classify")
		return ClassifyResult{Source: SourceUnavailable, Raw: map[string]any{"error": err.Error()}}, err
	}
	logrus.WithField("ms", timer.ElapsedMs()).Debug("openai classify")

	var parsed struct {
		Category   string   `json:"category"`
		Intent     string   `json:"intent"`
		Confidence *float64 `json:"confidence"`
	}
	// Malformed structured output degrades to safe defaults, never errors.
	_ = json.Unmarshal([]byte(normalizeJSONBlock(content)), &parsed)

	it := label.ParseIntent(parsed.Intent, label.Other)
	safeCategory := label.Productive
	if it == label.NonMessage {
		safeCategory = label.Unproductive
	}
	cat := label.ParseCategory(parsed.Category, safeCategory)

	conf := 0.65
	if parsed.Confidence != nil {
		conf = clampFloat(*parsed.Confidence, 0, 1)
	}

	return ClassifyResult{
		OK:         true,
		Category:   cat,
		Intent:     it,
		Confidence: conf,
		Source:     SourceAI,
		Raw:        map[string]any{"source": "openai", "content": content},
	}, nil
}

var openAIToneByLang = map[string]string{
	"pt": "Use tom corporativo, objetivo e cordial. Retorne APENAS o corpo do e-mail.",
	"en": "Use a corporate, concise and polite tone. Return ONLY the email body.",
}

var openAIInstructionsPT = map[label.Intent]string{
	label.Status:     "Informe que estamos verificando o status; peça ticket/logs se necessário.",
	label.Attachment: "Confirme recebimento do arquivo e que será avaliado; próximos passos em breve.",
	label.Access:     "Peça e-mail de login e mensagem de bloqueio; ofereça desbloqueio/reset.",
	label.Error:      "Se mencionar anexos, confirme; senão peça passos, horário e logs/prints.",
	label.Closure:    "Agradeça e confirme encerramento; à disposição.",
	label.Thanks:     "Agradeça; sem ação.",
	label.Greetings:  "Agradeça os votos; sem ação.",
	label.Support:    "Confirme a solicitação de suporte; equipe retorna com orientações.",
	label.NonMessage: "Agradeça o documento; explique que esta caixa é para suporte; sem ação.",
	label.Other:      "Confirme recebimento; retornaremos em breve.",
}

var openAIInstructionsEN = map[label.Intent]string{
	label.Status:     "We're checking the status; ask for ticket/logs if needed.",
	label.Attachment: "Confirm file receipt; will review and follow up.",
	label.Access:     "Ask for login e-mail / lockout message; offer unlock/password reset.",
	label.Error:      "If attachments mentioned, acknowledge them; else ask steps, time, logs/screens.",
	label.Closure:    "Thank and confirm closure; stay available.",
	label.Thanks:     "Thank you; no action.",
	label.Greetings:  "Thanks for the wishes; no action.",
	label.Support:    "Acknowledge the support request; team will follow up with guidance.",
	label.NonMessage: "Thanks for the document; note this inbox is for support; no action.",
	label.Other:      "Confirm receipt; will analyze and follow up soon.",
}

// GenerateReply asks the chat backend to draft the reply body for the target
// language. Returns an empty string on unusable output; the caller falls back
// to templates.
func (c *OpenAIClient) GenerateReply(ctx context.Context, text string, category label.Category, intent label.Intent, lang string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	instructions := openAIInstructionsPT
	tone := openAIToneByLang["pt"]
	sign := "Atenciosamente,\nEquipe de Suporte"
	if strings.HasPrefix(strings.ToLower(lang), "en") {
		instructions = openAIInstructionsEN
		tone = openAIToneByLang["en"]
		sign = "Best regards,\nSupport Team"
	}
	instruction, ok := instructions[intent]
	if !ok {
		instruction = instructions[label.Other]
	}

	prompt := fmt.Sprintf(
		"E-mail original:\n%s\n\nCategoria: %s\nSubintenção: %s\n\nInstrução: %s\n%s\n\nAssinatura: %s (anexe ao final)",
		trimText(text, trimLimit), category, intent, instruction, tone, sign,
	)

	timer := util.StartTimer()
	content, err := c.chat(ctx, c.genClient, 0.2, "Você redige respostas de e-mail.", prompt)
	if err != nil {
		logrus.WithError(err).Warn("openai generate")
		return "", err
	}
	logrus.WithField("ms", timer.ElapsedMs()).Debug("openai generate")
	return strings.TrimSpace(content), nil
}

func (c *OpenAIClient) chat(ctx context.Context, client *http.Client, temperature float64, system, user string) (string, error) {
	payload := map[string]any{
		"model":       c.model,
		"temperature": temperature,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return "", fmt.Errorf("openai status %d: %v", resp.StatusCode, apiErr)
	}

	var decoded chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("openai empty response")
	}
	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("openai empty content")
	}
	return content, nil
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// normalizeJSONBlock pulls the JSON object out of a model answer that may be
// wrapped in markdown fences or prose.
func normalizeJSONBlock(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.IndexRune(trimmed, '\n'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		if strings.HasSuffix(trimmed, "```") {
			trimmed = trimmed[:len(trimmed)-3]
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end >= start {
		return strings.TrimSpace(trimmed[start : end+1])
	}
	return trimmed
}

func clampFloat(value, min, max float64) float64 {
	if math.IsNaN(value) {
		return min
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
