package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Belphemur/ImageTranslate/internal/apperrors"
	"github.com/Belphemur/ImageTranslate/internal/config"
	"github.com/Belphemur/ImageTranslate/internal/intake"
	"github.com/Belphemur/ImageTranslate/internal/langcode"
	"github.com/Belphemur/ImageTranslate/internal/models"
	"github.com/Belphemur/ImageTranslate/internal/proxy"
	"github.com/Belphemur/ImageTranslate/internal/services"
)

const (
	torProbeTarget  = "check.torproject.org:443"
	torProbeTimeout = 10 * time.Second
)

// Handler serves the translation API.
type Handler struct {
	cfg        *config.Config
	translator services.ImageTranslator
	torProbe   func(ctx context.Context) error
}

// NewHandler creates a Handler. The Tor probe dials a public host through the configured
// Tor SOCKS proxy.
func NewHandler(cfg *config.Config, translator services.ImageTranslator) *Handler {
	return &Handler{
		cfg:        cfg,
		translator: translator,
		torProbe: func(ctx context.Context) error {
			return proxy.Check(ctx, cfg.TorSocksProxy(), torProbeTarget)
		},
	}
}

// translateOptions are the request fields shared by the multipart and JSON endpoints.
type translateOptions struct {
	SourceLang string
	TargetLang string
	Proxy      string
	Tor        bool
	TimeoutMs  *int
}

// base64Request is the JSON body of POST /translate/base64.
type base64Request struct {
	ImageBase64 string `json:"image_base64"`
	Filename    string `json:"filename"`
	SourceLang  string `json:"source_lang"`
	TargetLang  string `json:"target_lang"`
	Proxy       string `json:"proxy"`
	Tor         bool   `json:"tor"`
	TimeoutMs   *int   `json:"timeout_ms"`
}

// Health reports liveness. With check_tor=true it also dials through the Tor proxy.
func (h *Handler) Health(c *gin.Context) {
	checkTor, _ := parseFlag(c.Query("check_tor"))
	if !checkTor {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), torProbeTimeout)
	defer cancel()
	if err := h.torProbe(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "tor": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "tor": "ok"})
}

// Translate handles POST /translate with a multipart form carrying either a file or
// an image_base64 field.
func (h *Handler) Translate(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			respondError(c, err, h.cfg.DebugErrors)
			return
		case errors.Is(err, http.ErrMissingFile):
		default:
			respondError(c, apperrors.NewInvalidInputError("body", "expected a multipart/form-data request"), h.cfg.DebugErrors)
			return
		}
	}

	payload, err := intake.FromParts(file, c.PostForm("image_base64"))
	if err != nil {
		respondError(c, err, h.cfg.DebugErrors)
		return
	}

	opts := translateOptions{
		SourceLang: c.PostForm("source_lang"),
		TargetLang: c.PostForm("target_lang"),
		Proxy:      c.PostForm("proxy"),
	}
	if raw := c.PostForm("tor"); raw != "" {
		tor, ok := parseFlag(raw)
		if !ok {
			respondError(c, apperrors.NewInvalidInputError("tor", fmt.Sprintf("%q is not a boolean", raw)), h.cfg.DebugErrors)
			return
		}
		opts.Tor = tor
	}
	if raw := strings.TrimSpace(c.PostForm("timeout_ms")); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, apperrors.NewInvalidInputError("timeout_ms", "must be an integer"), h.cfg.DebugErrors)
			return
		}
		opts.TimeoutMs = &ms
	}

	h.translate(c, payload, opts)
}

// TranslateBase64 handles POST /translate/base64 with a JSON body.
func (h *Handler) TranslateBase64(c *gin.Context) {
	var body base64Request
	if err := c.ShouldBindJSON(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, err, h.cfg.DebugErrors)
			return
		}
		respondError(c, apperrors.NewInvalidInputError("body", "expected a JSON object"), h.cfg.DebugErrors)
		return
	}

	payload, err := intake.FromBase64(body.ImageBase64, body.Filename)
	if err != nil {
		respondError(c, err, h.cfg.DebugErrors)
		return
	}

	h.translate(c, payload, translateOptions{
		SourceLang: body.SourceLang,
		TargetLang: body.TargetLang,
		Proxy:      body.Proxy,
		Tor:        body.Tor,
		TimeoutMs:  body.TimeoutMs,
	})
}

func (h *Handler) translate(c *gin.Context, payload models.ImagePayload, opts translateOptions) {
	req, err := h.buildRequest(payload, opts)
	if err != nil {
		respondError(c, err, h.cfg.DebugErrors)
		return
	}

	result, err := h.translator.Translate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, h.cfg.DebugErrors)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.Filename))
	c.Data(http.StatusOK, result.MediaType, result.Data)
}

// buildRequest validates the options and assembles the TranslationRequest.
func (h *Handler) buildRequest(payload models.ImagePayload, opts translateOptions) (models.TranslationRequest, error) {
	sourceLang, err := langcode.Validate("source_lang", opts.SourceLang, models.DefaultSourceLang, true)
	if err != nil {
		return models.TranslationRequest{}, err
	}
	targetLang, err := langcode.Validate("target_lang", opts.TargetLang, models.DefaultTargetLang, false)
	if err != nil {
		return models.TranslationRequest{}, err
	}

	timeout := h.cfg.DefaultTimeout()
	if opts.TimeoutMs != nil {
		ms := *opts.TimeoutMs
		limit := h.cfg.MaxTimeout()
		if ms <= 0 || time.Duration(ms)*time.Millisecond > limit {
			return models.TranslationRequest{}, apperrors.NewInvalidInputError("timeout_ms",
				fmt.Sprintf("must be between 1 and %d", limit.Milliseconds()))
		}
		timeout = time.Duration(ms) * time.Millisecond
	}

	proxyURL, viaTor, err := proxy.Resolve(opts.Proxy, opts.Tor, h.cfg)
	if err != nil {
		return models.TranslationRequest{}, err
	}

	return models.TranslationRequest{
		Image:      payload,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Proxy:      proxyURL,
		Tor:        viaTor,
		Timeout:    timeout,
	}, nil
}

// parseFlag parses the boolean spellings HTML forms and scripts send.
func parseFlag(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "on", "y":
		return true, true
	case "no", "off", "n", "":
		return false, true
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, false
	}
	return v, true
}

