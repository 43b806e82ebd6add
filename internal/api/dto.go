package api

import (
	"math"
	"strings"

	"mail-triage/backend/internal/triage"
)

const textPreviewLimit = 2000

// ExplanationDTO surfaces why the pipeline decided what it decided.
type ExplanationDTO struct {
	TopFeatures []string `json:"top_features"`
	Language    string   `json:"language"`
	Intent      string   `json:"intent"`
}

// ClassifyResponse is the JSON body returned by POST /api/classify.
type ClassifyResponse struct {
	OK               bool           `json:"ok"`
	Category         string         `json:"category"`
	Probability      float64        `json:"probability"`
	Source           string         `json:"source"`
	ReplyPT          string         `json:"reply_pt"`
	ReplyEN          string         `json:"reply_en"`
	ReplyLangDefault string         `json:"reply_lang_default"`
	Explanation      ExplanationDTO `json:"explanation"`
	Debug            map[string]any `json:"debug,omitempty"`
	TextPreview      string         `json:"text_preview"`
}

func toClassifyResponse(res *triage.Result, rawText string, includeDebug bool) ClassifyResponse {
	features := res.TopFeatures
	if features == nil {
		features = []string{}
	}
	resp := ClassifyResponse{
		OK:               true,
		Category:         string(res.Category),
		Probability:      round3(res.Confidence),
		Source:           string(res.Source),
		ReplyPT:          res.ReplyPT,
		ReplyEN:          res.ReplyEN,
		ReplyLangDefault: "pt",
		Explanation: ExplanationDTO{
			TopFeatures: features,
			Language:    res.Language,
			Intent:      string(res.Intent),
		},
		TextPreview: preview(rawText),
	}
	if includeDebug {
		resp.Debug = res.Debug
	}
	return resp
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func preview(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= textPreviewLimit {
		return text
	}
	return string(runes[:textPreviewLimit])
}
