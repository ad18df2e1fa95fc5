package models

import "time"

const (
	DefaultSourceLang = "auto"
	DefaultTargetLang = "en"
	DefaultTimeoutMs  = 90000
)

// ImagePayload is an image normalized from an upload or a base64 string.
type ImagePayload struct {
	Data      []byte
	MediaType string // sniffed when possible, otherwise declared by the caller
	Filename  string // original upload name, may be empty
}

// TranslationRequest carries everything a browser session needs for one translation.
// It is built once per HTTP request and never mutated afterwards.
type TranslationRequest struct {
	Image      ImagePayload
	SourceLang string
	TargetLang string
	Proxy      string // resolved proxy server URL, empty for a direct connection
	Tor        bool   // whether Proxy points at Tor
	Timeout    time.Duration
}
