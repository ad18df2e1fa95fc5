package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Belphemur/ImageTranslate/internal/apperrors"
	"github.com/Belphemur/ImageTranslate/internal/config"
	"github.com/Belphemur/ImageTranslate/internal/intake"
	"github.com/Belphemur/ImageTranslate/internal/models"
)

var translatedPNG = []byte("\x89PNG\r\n\x1a\n translated")

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeTranslator records the last request and returns a canned result or error.
type fakeTranslator struct {
	err   error
	calls int
	last  models.TranslationRequest
}

func (f *fakeTranslator) Translate(ctx context.Context, req models.TranslationRequest) (*models.TranslationResult, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.TranslationResult{
		Data:      translatedPNG,
		MediaType: "image/png",
		Filename:  intake.OutputFilename(req.Image.Filename, translatedPNG),
	}, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.MaxUploadMB = 5
	cfg.Translation.DefaultTimeoutMs = 90000
	cfg.Translation.MaxTimeoutMs = 300000
	return cfg
}

func newTestRouter(cfg *config.Config, translator *fakeTranslator) *gin.Engine {
	return NewRouter(cfg, NewHandler(cfg, translator))
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for x := 0; x < 100; x++ {
		for y := 0; y < 100; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("Failed to encode JPEG: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a POST /translate request. A nil file omits the file part.
func multipartRequest(t *testing.T, filename string, file []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if file != nil {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = part.Write(file)
	}
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/translate", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, payload any) *http.Request {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/translate/base64", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected JSON error body, got %q", w.Body.String())
	}
	if body["success"] != false {
		t.Errorf("Expected success=false, got %v", body["success"])
	}
	return body
}

func TestHealth(t *testing.T) {
	router := newTestRouter(testConfig(), &fakeTranslator{})
	w := serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"status":"ok"}` {
		t.Errorf("Unexpected body %q", w.Body.String())
	}
}

func TestHealth_CheckTor(t *testing.T) {
	cfg := testConfig()
	h := NewHandler(cfg, &fakeTranslator{})

	h.torProbe = func(ctx context.Context) error { return errors.New("connection refused") }
	router := NewRouter(cfg, h)
	w := serve(router, httptest.NewRequest(http.MethodGet, "/health?check_tor=true", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 when Tor is down, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"degraded"`) || !strings.Contains(w.Body.String(), "connection refused") {
		t.Errorf("Unexpected body %q", w.Body.String())
	}

	h.torProbe = func(ctx context.Context) error { return nil }
	w = serve(router, httptest.NewRequest(http.MethodGet, "/health?check_tor=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 when Tor is up, got %d", w.Code)
	}
}

func TestTranslate_MultipartJPEG(t *testing.T) {
	translator := &fakeTranslator{}
	router := newTestRouter(testConfig(), translator)
	jpg := testJPEG(t)

	w := serve(router, multipartRequest(t, "photo.jpg", jpg, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected Content-Type image/png, got %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="photo_translated.png"` {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
	if !bytes.Equal(w.Body.Bytes(), translatedPNG) {
		t.Error("Expected translated bytes in body")
	}

	req := translator.last
	if req.Image.MediaType != "image/jpeg" || !bytes.Equal(req.Image.Data, jpg) {
		t.Errorf("Expected JPEG payload to reach the translator, got %s", req.Image.MediaType)
	}
	if req.SourceLang != "auto" || req.TargetLang != "en" {
		t.Errorf("Expected default languages auto->en, got %s->%s", req.SourceLang, req.TargetLang)
	}
	if req.Timeout != 90*time.Second {
		t.Errorf("Expected default timeout 90s, got %v", req.Timeout)
	}
	if req.Proxy != "" || req.Tor {
		t.Errorf("Expected direct connection, got proxy %q tor %v", req.Proxy, req.Tor)
	}
}

func TestTranslate_MultipartOptions(t *testing.T) {
	translator := &fakeTranslator{}
	router := newTestRouter(testConfig(), translator)

	w := serve(router, multipartRequest(t, "menu.png", testJPEG(t), map[string]string{
		"source_lang": "ja",
		"target_lang": "pt-BR",
		"tor":         "true",
		"timeout_ms":  "120000",
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	req := translator.last
	if req.SourceLang != "ja" || req.TargetLang != "pt-BR" {
		t.Errorf("Unexpected languages %s->%s", req.SourceLang, req.TargetLang)
	}
	if !req.Tor || req.Proxy != config.DefaultTorSocksProxy {
		t.Errorf("Expected Tor default proxy, got %q (tor=%v)", req.Proxy, req.Tor)
	}
	if req.Timeout != 120*time.Second {
		t.Errorf("Expected timeout 120s, got %v", req.Timeout)
	}
}

func TestTranslate_TorUsesConfiguredProxy(t *testing.T) {
	cfg := testConfig()
	cfg.Tor.SocksProxy = "socks5://tor:9150"
	translator := &fakeTranslator{}
	router := newTestRouter(cfg, translator)

	w := serve(router, multipartRequest(t, "a.jpg", testJPEG(t), map[string]string{"tor": "yes"}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if translator.last.Proxy != "socks5://tor:9150" {
		t.Errorf("Expected configured Tor proxy, got %q", translator.last.Proxy)
	}
}

func TestTranslate_ExplicitProxyWins(t *testing.T) {
	translator := &fakeTranslator{}
	router := newTestRouter(testConfig(), translator)

	w := serve(router, multipartRequest(t, "a.jpg", testJPEG(t), map[string]string{
		"tor":   "true",
		"proxy": "http://proxy.lan:3128",
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if translator.last.Proxy != "http://proxy.lan:3128" || translator.last.Tor {
		t.Errorf("Expected explicit proxy, got %q (tor=%v)", translator.last.Proxy, translator.last.Tor)
	}
}

func TestTranslate_MultipartBase64Field(t *testing.T) {
	translator := &fakeTranslator{}
	router := newTestRouter(testConfig(), translator)
	encoded := base64.StdEncoding.EncodeToString(testJPEG(t))

	w := serve(router, multipartRequest(t, "", nil, map[string]string{"image_base64": encoded}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="translated.png"` {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
}

func TestTranslate_InvalidInputs(t *testing.T) {
	jpg := testJPEG(t)
	encoded := base64.StdEncoding.EncodeToString(jpg)

	tests := []struct {
		name   string
		file   []byte
		fields map[string]string
	}{
		{name: "neither file nor base64", file: nil, fields: nil},
		{name: "both file and base64", file: jpg, fields: map[string]string{"image_base64": encoded}},
		{name: "empty file", file: []byte{}, fields: nil},
		{name: "invalid base64", file: nil, fields: map[string]string{"image_base64": "@@not-base64@@"}},
		{name: "not an image", file: []byte("just some text"), fields: nil},
		{name: "bad tor flag", file: jpg, fields: map[string]string{"tor": "maybe"}},
		{name: "zero timeout", file: jpg, fields: map[string]string{"timeout_ms": "0"}},
		{name: "negative timeout", file: jpg, fields: map[string]string{"timeout_ms": "-5"}},
		{name: "non numeric timeout", file: jpg, fields: map[string]string{"timeout_ms": "soon"}},
		{name: "timeout above limit", file: jpg, fields: map[string]string{"timeout_ms": "999999999"}},
		{name: "unknown language", file: jpg, fields: map[string]string{"target_lang": "klingon!!"}},
		{name: "auto target", file: jpg, fields: map[string]string{"target_lang": "auto"}},
		{name: "bad proxy scheme", file: jpg, fields: map[string]string{"proxy": "ftp://proxy:21"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			translator := &fakeTranslator{}
			router := newTestRouter(testConfig(), translator)

			w := serve(router, multipartRequest(t, "img.jpg", tt.file, tt.fields))
			if w.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
			}
			body := decodeError(t, w)
			if body["error"] != "invalid_input" {
				t.Errorf("Expected error code invalid_input, got %v", body["error"])
			}
			if translator.calls != 0 {
				t.Error("Expected translator not to be called for invalid input")
			}
		})
	}
}

func TestTranslate_NotMultipart(t *testing.T) {
	router := newTestRouter(testConfig(), &fakeTranslator{})
	req := httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader("file=abc"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if w := serve(router, req); w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", w.Code)
	}
}

func TestTranslate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"timeout", apperrors.NewTimeoutError("waiting for translation", time.Second, context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{"upstream ui", apperrors.NewUpstreamUIError("file input", errors.New("not found")), http.StatusBadGateway, "upstream_ui_error"},
		{"no text", apperrors.NewNoTextDetectedError("Can't detect text"), http.StatusUnprocessableEntity, "no_text_detected"},
		{"unavailable", apperrors.NewUnavailableError("all browser sessions are busy", nil), http.StatusServiceUnavailable, "unavailable"},
		{"unexpected", errors.New("disk full"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(testConfig(), &fakeTranslator{err: tt.err})
			w := serve(router, multipartRequest(t, "a.jpg", testJPEG(t), nil))

			if w.Code != tt.status {
				t.Fatalf("Expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			body := decodeError(t, w)
			if body["error"] != tt.code {
				t.Errorf("Expected error code %q, got %v", tt.code, body["error"])
			}
			if tt.status == http.StatusInternalServerError && body["message"] != "internal server error" {
				t.Errorf("Expected internal details to be hidden, got %v", body["message"])
			}
		})
	}
}

func TestTranslate_DebugErrorsExposeCause(t *testing.T) {
	cfg := testConfig()
	cfg.DebugErrors = true
	router := newTestRouter(cfg, &fakeTranslator{err: errors.New("disk full")})

	w := serve(router, multipartRequest(t, "a.jpg", testJPEG(t), nil))
	body := decodeError(t, w)
	if body["message"] != "disk full" {
		t.Errorf("Expected raw error message with debug_errors, got %v", body["message"])
	}
}

func TestTranslateBase64(t *testing.T) {
	translator := &fakeTranslator{}
	router := newTestRouter(testConfig(), translator)
	jpg := testJPEG(t)

	w := serve(router, jsonRequest(t, map[string]any{
		"image_base64": "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpg),
		"filename":     "scan.jpeg",
		"target_lang":  "de",
		"timeout_ms":   30000,
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="scan_translated.png"` {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
	if translator.last.TargetLang != "de" || translator.last.Timeout != 30*time.Second {
		t.Errorf("Unexpected request %+v", translator.last)
	}
	if !bytes.Equal(translator.last.Image.Data, jpg) {
		t.Error("Expected decoded JPEG to reach the translator")
	}
}

func TestTranslateBase64_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"image_base64":`},
		{"missing image", `{"target_lang":"en"}`},
		{"invalid base64", `{"image_base64":"%%%"}`},
		{"bad timeout type", `{"image_base64":"AAAA","timeout_ms":"fast"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			translator := &fakeTranslator{}
			router := newTestRouter(testConfig(), translator)
			req := httptest.NewRequest(http.MethodPost, "/translate/base64", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := serve(router, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if translator.calls != 0 {
				t.Error("Expected translator not to be called")
			}
		})
	}
}

func TestTranslate_PayloadTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxUploadMB = 1
	router := newTestRouter(cfg, &fakeTranslator{})

	big := bytes.Repeat([]byte{0xFF}, 3<<20)
	w := serve(router, multipartRequest(t, "big.jpg", big, nil))
	if w.Code != http.StatusRequestEntityTooLarge && w.Code != http.StatusBadRequest {
		t.Fatalf("Expected oversized upload to be rejected, got %d", w.Code)
	}
}
