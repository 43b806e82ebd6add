package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mail-triage/backend/internal/ai"
	"mail-triage/backend/internal/api"
)

func main() {
	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	openAICfg := ai.OpenAIConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   os.Getenv("OPENAI_MODEL"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
	}
	if d, ok := envDuration("OPENAI_TIMEOUT"); ok {
		openAICfg.Timeout = d
	}
	if d, ok := envDuration("OPENAI_GEN_TIMEOUT"); ok {
		openAICfg.GenTimeout = d
	}

	hfCfg := ai.HFConfig{
		APIKey:          os.Getenv("HUGGINGFACE_API_KEY"),
		BaseURL:         os.Getenv("HF_BASE_URL"),
		ZeroShotModel:   os.Getenv("HF_ZEROSHOT_MODEL"),
		GenerationModel: os.Getenv("HF_GENERATION_MODEL"),
	}
	if d, ok := envDuration("HF_TIMEOUT"); ok {
		hfCfg.Timeout = d
	}
	if retries := os.Getenv("HF_RETRIES"); retries != "" {
		if v, err := strconv.Atoi(retries); err == nil {
			hfCfg.Retries = v
		}
	}
	if backoff := os.Getenv("HF_BACKOFF"); backoff != "" {
		if v, err := strconv.ParseFloat(backoff, 64); err == nil {
			hfCfg.Backoff = v
		}
	}

	requireAI := envBool("FORCE_API_CLASSIFY")

	intentCfgPath := filepath.Join(baseDir, "intents_config.json")
	if override := strings.TrimSpace(os.Getenv("INTENT_CFG_PATH")); override != "" {
		intentCfgPath = override
	}

	var allowedOrigins []string
	if origins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}

	cfg := api.Config{
		DBPath:           filepath.Join(dataDir, "mail-triage.db"),
		IntentConfigPath: intentCfgPath,
		AllowedOrigins:   allowedOrigins,
		Provider:         os.Getenv("PROVIDER"),
		OpenAI:           openAICfg,
		HF:               hfCfg,
		RequireAI:        requireAI,
		CompanyName:      os.Getenv("COMPANY_NAME"),
		LogoURL:          os.Getenv("LOGO_URL"),
		PrimaryColor:     os.Getenv("PRIMARY_COLOR"),
	}

	if override := strings.TrimSpace(os.Getenv("MAIL_TRIAGE_DB_PATH")); override != "" {
		cfg.DBPath = override
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	logrus.Infof("starting mail-triage backend on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}

// envDuration reads a timeout knob. Bare numbers mean seconds, so both
// "10" and "10s" work.
func envDuration(name string) (time.Duration, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), true
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, true
	}
	logrus.Warnf("ignoring unparseable %s=%q", name, raw)
	return 0, false
}

// envBool treats "1" and "true" (any case) as enabled.
func envBool(name string) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	return raw == "1" || strings.EqualFold(raw, "true")
}
