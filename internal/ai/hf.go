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

// HFConfig drives the Hugging Face Inference API client.
type HFConfig struct {
	APIKey          string
	BaseURL         string
	ZeroShotModel   string
	GenerationModel string
	Timeout         time.Duration
	Retries         int
	Backoff         float64
}

// HFClient implements Provider against zero-shot and text-generation models
// on the Inference API.
type HFClient struct {
	httpClient      *http.Client
	apiKey          string
	baseURL         string
	zeroShotModel   string
	generationModel string
	retries         int
	backoff         float64
}

// NewHFClient constructs an HFClient if the configuration is valid.
func NewHFClient(cfg HFConfig) (*HFClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrDisabled
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-inference.huggingface.co/models"
	}
	if cfg.ZeroShotModel == "" {
		cfg.ZeroShotModel = "facebook/bart-large-mnli"
	}
	if cfg.GenerationModel == "" {
		cfg.GenerationModel = "google/flan-t5-base"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 1.5
	}
	return &HFClient{
		httpClient:      &http.Client{Timeout: cfg.Timeout},
		apiKey:          strings.TrimSpace(cfg.APIKey),
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		zeroShotModel:   cfg.ZeroShotModel,
		generationModel: cfg.GenerationModel,
		retries:         cfg.Retries,
		backoff:         cfg.Backoff,
	}, nil
}

// Name identifies the backend in logs and debug payloads.
func (c *HFClient) Name() string { return "huggingface" }

// Enabled reports whether the client can make outbound calls.
func (c *HFClient) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// post sends one payload to the model endpoint with retries. 503 (model
// loading), 429 (rate limited), request timeouts and 200 responses whose body
// encodes an error all back off by backoff**attempt seconds and retry.
// It returns the raw body along with the number of attempts spent.
func (c *HFClient) post(ctx context.Context, model string, payload map[string]any) (json.RawMessage, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/" + model
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		timer := util.StartTimer()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, attempt, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Timeouts are retryable; a cancelled parent context is not.
			if ctx.Err() != nil {
				return nil, attempt, ctx.Err()
			}
			lastErr = err
			logrus.WithError(err).WithFields(logrus.Fields{"model": model, "attempt": attempt}).Warn("hf post")
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, attempt, err
			}
			continue
		}

		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			lastErr = fmt.Errorf("hf status %d", resp.StatusCode)
			logrus.WithFields(logrus.Fields{
				"status": resp.StatusCode, "model": model,
				"attempt": attempt, "ms": timer.ElapsedMs(),
			}).Warn("hf retryable status")
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, attempt, err
			}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			var apiErr map[string]any
			_ = json.NewDecoder(resp.Body).Decode(&apiErr)
			resp.Body.Close()
			return nil, attempt, fmt.Errorf("hf status %d: %v", resp.StatusCode, apiErr)
		}

		var raw json.RawMessage
		decodeErr := json.NewDecoder(resp.Body).Decode(&raw)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, attempt, fmt.Errorf("decode hf response: %w", decodeErr)
		}

		// Some endpoints answer 200 with {"error": "..."} while warming up.
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &errBody) == nil && errBody.Error != "" {
			lastErr = errors.New(errBody.Error)
			logrus.WithFields(logrus.Fields{"model": model, "attempt": attempt}).
				Warnf("hf 200-with-error: %s", errBody.Error)
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, attempt, err
			}
			continue
		}

		logrus.WithFields(logrus.Fields{"model": model, "ms": timer.ElapsedMs()}).Debug("hf ok")
		return raw, attempt, nil
	}

	return nil, c.retries, fmt.Errorf("hf post failed after %d attempts: %w", c.retries, lastErr)
}

func (c *HFClient) sleep(ctx context.Context, attempt int) error {
	delay := time.Duration(math.Pow(c.backoff, float64(attempt)) * float64(time.Second))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (c *HFClient) zeroShot(ctx context.Context, text string, candidates []string) (json.RawMessage, int, error) {
	payload := map[string]any{
		"inputs": trimText(text, trimLimit),
		"parameters": map[string]any{
			"candidate_labels":    candidates,
			"multi_label":         false,
			"hypothesis_template": "This email is about {}.",
		},
		"options": map[string]any{"wait_for_model": true, "use_cache": true},
	}
	return c.post(ctx, c.zeroShotModel, payload)
}

// zeroShotResponse matches {"sequence":..., "labels":[...], "scores":[...]},
// optionally wrapped in a single-element list.
type zeroShotResponse struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

func parseZeroShot(raw json.RawMessage) (string, float64, bool) {
	var single zeroShotResponse
	if err := json.Unmarshal(raw, &single); err == nil && len(single.Labels) > 0 && len(single.Scores) > 0 {
		return single.Labels[0], single.Scores[0], true
	}
	var list []zeroShotResponse
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && len(list[0].Labels) > 0 && len(list[0].Scores) > 0 {
		return list[0].Labels[0], list[0].Scores[0], true
	}
	return "", 0, false
}

// Classify runs two independent zero-shot calls, one for the category and one
// for the intent, and averages the two top scores.
func (c *HFClient) Classify(ctx context.Context, text string) (ClassifyResult, error) {
	if !c.Enabled() {
		return ClassifyResult{Source: SourceUnavailable}, ErrDisabled
	}

	catLabels := make([]string, len(label.Categories))
	for i, cat := range label.Categories {
		catLabels[i] = string(cat)
	}
	catRaw, catAttempts, err := c.zeroShot(ctx, text, catLabels)
	if err != nil {
		return ClassifyResult{Source: SourceUnavailable, Raw: map[string]any{"error": err.Error()}}, err
	}
	rawCat, catScore, ok := parseZeroShot(catRaw)
	if !ok {
		rawCat, catScore = string(label.Productive), 0.6
	}

	intentLabels := make([]string, len(label.Intents))
	for i, it := range label.Intents {
		intentLabels[i] = string(it)
	}
	intentRaw, intentAttempts, err := c.zeroShot(ctx, text, intentLabels)
	if err != nil {
		return ClassifyResult{Source: SourceUnavailable, Raw: map[string]any{"error": err.Error()}}, err
	}
	rawIntent, intentScore, ok := parseZeroShot(intentRaw)
	if !ok {
		rawIntent, intentScore = string(label.Other), 0.6
	}

	return ClassifyResult{
		OK:         true,
		Category:   label.ParseCategory(rawCat, label.Productive),
		Intent:     label.ParseIntent(rawIntent, label.Other),
		Confidence: (catScore + intentScore) / 2.0,
		Source:     SourceAI,
		Raw: map[string]any{
			"source":   "huggingface",
			"attempts": catAttempts + intentAttempts,
			"cat":      json.RawMessage(catRaw),
			"intent":   json.RawMessage(intentRaw),
		},
	}, nil
}

var hfInstructions = map[label.Intent]string{
	label.Status:     "We are checking the status and will get back soon; ask for ticket/logs if needed.",
	label.Attachment: "Confirm file receipt and say it will be reviewed; follow up with next steps.",
	label.Access:     "Ask for login e-mail and whether there is a lockout message; offer unlock/password reset.",
	label.Error:      "Ask for reproduction steps, approximate time, and any logs/screenshots. If attachments were mentioned, acknowledge them.",
	label.Closure:    "Thank and confirm closure; keep availability if anything else is needed.",
	label.Thanks:     "Thank for the message; no action required.",
	label.Greetings:  "Thank for the wishes; no action required.",
	label.Support:    "Acknowledge a technical support request and say the team will review and reply with guidance.",
	label.NonMessage: "Thank for the document and clarify this inbox is for support requests; no action required.",
	label.Other:      "Confirm receipt; say you will analyze and follow up soon.",
}

// replyMarker is echoed by generation models that repeat the prompt; anything
// before it is discarded.
const replyMarker = "Reply:"

// GenerateReply drafts the reply body through a ranked list of candidate
// generation models, each with its own retry loop. Empty generated text is a
// retryable failure.
func (c *HFClient) GenerateReply(ctx context.Context, text string, category label.Category, intent label.Intent, lang string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}

	instruction, ok := hfInstructions[intent]
	if !ok {
		instruction = hfInstructions[label.Other]
	}
	language := "Portuguese (Brazil)"
	if strings.HasPrefix(strings.ToLower(lang), "en") {
		language = "English"
	}
	prompt := fmt.Sprintf(
		"Write a professional corporate email reply in %s.\nInstruction: %s\nOriginal:\n%s\n\n%s\n",
		language, instruction, trimText(text, trimLimit), replyMarker,
	)

	payload := map[string]any{
		"inputs": prompt,
		"parameters": map[string]any{
			"max_new_tokens": 220,
			"temperature":    0.2,
			"do_sample":      false,
		},
		"options": map[string]any{"wait_for_model": true, "use_cache": true},
	}

	for _, model := range c.generationCandidates() {
		for attempt := 1; attempt <= c.retries; attempt++ {
			raw, _, err := c.post(ctx, model, payload)
			if err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				logrus.WithError(err).WithFields(logrus.Fields{"model": model, "attempt": attempt}).Warn("hf generate")
				break
			}

			out := parseGenerated(raw)
			if out == "" {
				logrus.WithFields(logrus.Fields{"model": model, "attempt": attempt}).Warn("hf generate empty")
				if err := c.sleep(ctx, attempt); err != nil {
					return "", err
				}
				continue
			}
			if idx := strings.Index(out, replyMarker); idx >= 0 {
				out = out[idx+len(replyMarker):]
			}
			return strings.TrimSpace(out), nil
		}
	}
	return "", ErrUnavailable
}

// generationCandidates ranks the configured model first, then two known-good
// fallbacks.
func (c *HFClient) generationCandidates() []string {
	candidates := []string{c.generationModel}
	for _, fallback := range []string{"google/flan-t5-base", "google/flan-t5-small"} {
		if fallback != c.generationModel {
			candidates = append(candidates, fallback)
		}
	}
	return candidates
}

func parseGenerated(raw json.RawMessage) string {
	var single struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &single); err == nil && single.GeneratedText != "" {
		return single.GeneratedText
	}
	var list []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0].GeneratedText
	}
	return ""
}
