package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	intentCfg := filepath.Join(dir, "intents.json")
	cfg := map[string]any{
		"synonyms": map[string][]string{
			"STATUS":  {"status", "andamento"},
			"CLOSURE": {"pode encerrar", "pode fechar"},
		},
		"priority_order": []string{"CLOSURE", "STATUS"},
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(intentCfg, data, 0o644); err != nil {
		t.Fatal(err)
	}

	server, err := NewServer(Config{
		DBPath:           filepath.Join(dir, "triage.db"),
		IntentConfigPath: intentCfg,
		SilentDB:         true,
		Provider:         "local",
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = server.Close() })

	router, err := server.Router()
	if err != nil {
		t.Fatal(err)
	}
	return server, router
}

func TestHealthz(t *testing.T) {
	_, router := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestConfigEndpoint(t *testing.T) {
	_, router := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["company_name"] != "Mail Triage" {
		t.Fatalf("company_name = %v", body["company_name"])
	}
	if body["provider"] != "local" {
		t.Fatalf("provider = %v", body["provider"])
	}
}

func TestClassifyJSON(t *testing.T) {
	_, router := newTestServer(t)
	payload := `{"text":"Poderiam informar o andamento do chamado 12345? Aguardo o status."}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/classify", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp ClassifyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.OK {
		t.Fatal("expected ok response")
	}
	if resp.Category != "Produtivo" {
		t.Fatalf("category = %q", resp.Category)
	}
	if resp.Explanation.Intent != "STATUS" {
		t.Fatalf("intent = %q", resp.Explanation.Intent)
	}
	if resp.Probability <= 0 || resp.Probability > 1 {
		t.Fatalf("probability = %v", resp.Probability)
	}
	if resp.ReplyPT == "" || resp.ReplyEN == "" {
		t.Fatal("expected replies in both languages")
	}
	if resp.ReplyLangDefault != "pt" {
		t.Fatalf("reply_lang_default = %q", resp.ReplyLangDefault)
	}
	if !strings.Contains(resp.TextPreview, "12345") {
		t.Fatalf("text_preview = %q", resp.TextPreview)
	}
}

func TestClassifyFormText(t *testing.T) {
	_, router := newTestServer(t)
	form := url.Values{}
	form.Set("email_text", "Não consigo acessar minha conta, a senha parece bloqueada.")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/classify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ClassifyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Explanation.Intent != "ACCESS" {
		t.Fatalf("intent = %q", resp.Explanation.Intent)
	}
}

func TestClassifyRejectsShortText(t *testing.T) {
	_, router := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/classify", strings.NewReader(`{"text":"oi"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestClassifyRejectsEmptyBody(t *testing.T) {
	_, router := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/classify", strings.NewReader(`{"text":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestClassifyPlaceholderBypassesLengthCheck(t *testing.T) {
	_, router := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/classify", strings.NewReader(`{"text":"[PDF recebido: cv.pdf]"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	part, err := writer.CreateFormFile("email_file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}
	return buf, writer.FormDataContentType()
}

func TestClassifyTxtUpload(t *testing.T) {
	_, router := newTestServer(t)
	buf, contentType := multipartUpload(t, "email.txt", []byte("O sistema apresenta erro ao salvar o relatorio, podem verificar?"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/classify", buf)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ClassifyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Explanation.Intent != "ERROR" {
		t.Fatalf("intent = %q", resp.Explanation.Intent)
	}
}

func TestClassifyLatin1Upload(t *testing.T) {
	_, router := newTestServer(t)
	// "relatório" encoded as Latin-1: 0xF3 is not valid UTF-8 on its own.
	content := []byte("O relat\xf3rio apresenta erro ao processar, podem verificar o problema?")
	buf, contentType := multipartUpload(t, "email.txt", content)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/classify", buf)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ClassifyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.TextPreview, "relatório") {
		t.Fatalf("expected decoded Latin-1 text, got %q", resp.TextPreview)
	}
}

func TestClassifyRejectsPDFUpload(t *testing.T) {
	_, router := newTestServer(t)
	buf, contentType := multipartUpload(t, "cv.pdf", []byte("%PDF-1.4 fake"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/classify", buf)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestNewServerRequireAIWithoutProvider(t *testing.T) {
	dir := t.TempDir()
	_, err := NewServer(Config{
		DBPath:    filepath.Join(dir, "triage.db"),
		SilentDB:  true,
		Provider:  "local",
		RequireAI: true,
	})
	if err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestDecodeText(t *testing.T) {
	if got := decodeText([]byte("olá")); got != "olá" {
		t.Fatalf("utf-8 passthrough failed: %q", got)
	}
	if got := decodeText([]byte{0x6f, 0x6c, 0xe1}); got != "olá" {
		t.Fatalf("latin-1 fallback failed: %q", got)
	}
}
