package models

// TranslationResult represents the translated image returned by the upstream page
type TranslationResult struct {
	Data      []byte
	MediaType string // e.g. "image/png"
	Filename  string // suggested download name, e.g. "menu_translated.png"
}
