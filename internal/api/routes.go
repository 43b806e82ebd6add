// Package api exposes the email triage HTTP surface.
package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"mail-triage/backend/internal/ai"
	"mail-triage/backend/internal/classify"
	"mail-triage/backend/internal/fastpath"
	"mail-triage/backend/internal/reply"
	"mail-triage/backend/internal/store"
	"mail-triage/backend/internal/triage"
)

// minTextLength is the minimum rune count accepted for classification.
// Placeholder bodies for non-extractable uploads are exempt.
const minTextLength = 10

// maxUploadBytes bounds .txt uploads.
const maxUploadBytes = 2 << 20

// Config defines server dependencies.
type Config struct {
	DBPath           string
	IntentConfigPath string
	AllowedOrigins   []string
	SilentDB         bool

	// Provider selects the AI backend: "openai", "huggingface", "auto"
	// (openai falling back to huggingface) or "local" (no AI).
	Provider  string
	OpenAI    ai.OpenAIConfig
	HF        ai.HFConfig
	RequireAI bool

	CompanyName  string
	LogoURL      string
	PrimaryColor string
}

// Server wires HTTP handlers with the triage pipeline and persistence.
type Server struct {
	db             *store.Database
	pipeline       *triage.Pipeline
	intentCfgPath  string
	allowedOrigins []string
	notifier       *ClassifyNotifier

	companyName  string
	logoURL      string
	primaryColor string
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	intentCfgPath := cfg.IntentConfigPath
	if intentCfgPath == "" {
		intentCfgPath = "intents_config.json"
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}
	if provider != nil {
		logrus.WithField("provider", provider.Name()).Info("ai provider enabled")
	} else {
		logrus.Info("ai provider disabled, classification runs locally")
		if cfg.RequireAI {
			return nil, errors.New("FORCE_API_CLASSIFY set but no ai provider configured")
		}
	}

	server := &Server{
		db:            db,
		intentCfgPath: intentCfgPath,
		pipeline: &triage.Pipeline{
			Provider:  provider,
			Fastpath:  fastpath.NewMatcher(intentCfgPath),
			Local:     classify.NewModel(db),
			Synth:     reply.NewSynthesizer(provider),
			RequireAI: cfg.RequireAI,
		},
		allowedOrigins: cfg.AllowedOrigins,
		notifier:       NewClassifyNotifier(),
		companyName:    defaultString(cfg.CompanyName, "Mail Triage"),
		logoURL:        cfg.LogoURL,
		primaryColor:   defaultString(cfg.PrimaryColor, "#2563eb"),
	}
	return server, nil
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func buildProvider(cfg Config) (ai.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai":
		client, err := ai.NewOpenAIClient(cfg.OpenAI)
		if errors.Is(err, ai.ErrDisabled) {
			return nil, errors.New("openai provider selected: configure OPENAI_API_KEY")
		}
		return client, err
	case "huggingface", "hf":
		client, err := ai.NewHFClient(cfg.HF)
		if errors.Is(err, ai.ErrDisabled) {
			return nil, errors.New("huggingface provider selected: configure HUGGINGFACE_API_KEY")
		}
		return client, err
	case "auto", "":
		var primary, fallback ai.Provider
		if client, err := ai.NewOpenAIClient(cfg.OpenAI); err == nil {
			primary = client
		} else if !errors.Is(err, ai.ErrDisabled) {
			return nil, err
		}
		if client, err := ai.NewHFClient(cfg.HF); err == nil {
			fallback = client
		} else if !errors.Is(err, ai.ErrDisabled) {
			return nil, err
		}
		switch {
		case primary != nil && fallback != nil:
			return ai.WithFallback(primary, fallback), nil
		case primary != nil:
			return primary, nil
		case fallback != nil:
			return fallback, nil
		}
		return nil, nil
	case "local", "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api")
	{
		api.POST("/classify", s.handleClassify)
		api.GET("/classify/stream", s.handleClassifyStream)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	provider := "local"
	if s.pipeline.Provider != nil {
		provider = s.pipeline.Provider.Name()
	}
	c.JSON(http.StatusOK, gin.H{
		"company_name":       s.companyName,
		"logo_url":           s.logoURL,
		"primary_color":      s.primaryColor,
		"provider":           provider,
		"intent_config_path": s.intentCfgPath,
	})
}

type classifyRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleClassify(c *gin.Context) {
	text, placeholder, err := s.extractText(c)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if !placeholder && utf8.RuneCountInString(strings.TrimSpace(text)) < minTextLength {
		s.renderError(c, http.StatusBadRequest, errors.New("text too short: provide the email body"))
		return
	}

	start := time.Now()
	res, err := s.pipeline.Run(c.Request.Context(), triage.Request{Text: text, Placeholder: placeholder})
	if err != nil {
		if errors.Is(err, triage.ErrProviderUnavailable) {
			s.renderError(c, http.StatusServiceUnavailable, errors.New("ai provider unavailable"))
			return
		}
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	requestID := uuid.NewString()
	logrus.WithFields(logrus.Fields{
		"request_id": requestID,
		"category":   res.Category,
		"intent":     res.Intent,
		"source":     res.Source,
		"duration":   time.Since(start),
	}).Info("email classified")

	s.notifier.Broadcast(ClassifyEvent{
		Type:       "classified",
		RequestID:  requestID,
		Category:   string(res.Category),
		Intent:     string(res.Intent),
		Confidence: round3(res.Confidence),
		Source:     string(res.Source),
		Language:   res.Language,
	})

	includeDebug := c.Query("debug") != "0"
	c.JSON(http.StatusOK, toClassifyResponse(res, text, includeDebug))
}

// extractText pulls the email body from a JSON payload, a form field or an
// uploaded .txt file, in that order of precedence.
func (s *Server) extractText(c *gin.Context) (string, bool, error) {
	contentType := c.ContentType()
	if strings.HasPrefix(contentType, "application/json") {
		var req classifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return "", false, fmt.Errorf("invalid json body: %w", err)
		}
		text := strings.TrimSpace(req.Text)
		if text == "" {
			return "", false, errors.New("text is required")
		}
		return text, isPlaceholder(text), nil
	}

	header, err := c.FormFile("email_file")
	if err != nil {
		if text := strings.TrimSpace(c.PostForm("email_text")); text != "" {
			return text, isPlaceholder(text), nil
		}
		return "", false, errors.New("email_text or an email_file upload is required")
	}
	text, err := readUpload(header)
	if err != nil {
		return "", false, err
	}
	return text, isPlaceholder(text), nil
}

// isPlaceholder recognizes synthetic bodies produced for uploads whose text
// could not be extracted. Those bypass the length check and AI generation.
func isPlaceholder(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return strings.HasPrefix(t, "[pdf recebido") || strings.HasPrefix(t, "[arquivo recebido")
}

// readUpload decodes a .txt upload. Bytes that are not valid UTF-8 are
// reinterpreted as Latin-1, which covers the common Windows export case.
func readUpload(header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".txt":
	case ".pdf":
		return "", errors.New("pdf upload is not supported: extract the text and send it as .txt or raw text")
	default:
		return "", fmt.Errorf("unsupported file type %q: only .txt is accepted", ext)
	}
	if header.Size > maxUploadBytes {
		return "", fmt.Errorf("file too large: limit is %d bytes", maxUploadBytes)
	}

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxUploadBytes {
		return "", fmt.Errorf("file too large: limit is %d bytes", maxUploadBytes)
	}

	text := decodeText(data)
	if strings.TrimSpace(text) == "" {
		return "", errors.New("uploaded file is empty")
	}
	return text, nil
}

func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

func (s *Server) handleClassifyStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("classify websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("classify websocket closed")
			} else {
				logrus.WithError(err).Warn("classify websocket unexpected close")
			}
			break
		}
	}
}

// Close releases the underlying database handle.
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}
