package parser

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Belphemur/ImageTranslate/internal/config"
	"github.com/Belphemur/ImageTranslate/internal/models"
)

var translatedLabel = regexp.MustCompile(`(?i)translated|translation`)

// PageParser reads the state of the image translation page from an HTML snapshot.
type PageParser struct{}

// NewPageParser creates a new page parser instance
func NewPageParser() *PageParser {
	return &PageParser{}
}

// ParseHtml parses a snapshot of the translation page
func (p *PageParser) ParseHtml(body io.Reader) (*models.PageState, error) {
	logger := config.GetLogger()

	utf8Body, err := NewUTF8Reader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode page charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to parse page snapshot")
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	state := &models.PageState{
		ErrorMessage:       detectTranslationError(doc.Find("body").Text()),
		HasDownloadButton:  hasDownloadButton(doc),
		TranslatedImageSrc: translatedImageSrc(doc),
		FileInputs:         fileInputs(doc),
		HasConsentDialog:   hasConsentDialog(doc),
	}

	logger.Debug().
		Str("error_message", state.ErrorMessage).
		Bool("download_button", state.HasDownloadButton).
		Bool("translated_img", state.TranslatedImageSrc != "").
		Int("file_inputs", len(state.FileInputs)).
		Bool("consent", state.HasConsentDialog).
		Msg("Parsed translation page snapshot")

	return state, nil
}

// detectTranslationError returns the page's own failure message, if any.
func detectTranslationError(bodyText string) string {
	lower := strings.ToLower(bodyText)
	if lower == "" {
		return ""
	}

	hasDetect := strings.Contains(lower, "can't detect text") || strings.Contains(lower, "cannot detect text")
	hasLang := strings.Contains(lower, "language may not be supported")
	if hasDetect && hasLang {
		return "Can't detect text. This language may not be supported."
	}

	for _, msg := range translationErrors {
		if strings.Contains(lower, strings.ToLower(msg)) {
			return msg
		}
	}
	return ""
}

// hidden reports whether sel or one of its ancestors is hidden from the user.
func hidden(sel *goquery.Selection) bool {
	for s := sel; s.Length() > 0 && !s.Is("html"); s = s.Parent() {
		if _, ok := s.Attr("hidden"); ok {
			return true
		}
		if v, _ := s.Attr("aria-hidden"); v == "true" {
			return true
		}
		style, _ := s.Attr("style")
		style = strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return true
		}
	}
	return false
}

func labelOf(sel *goquery.Selection) string {
	aria, _ := sel.Attr("aria-label")
	return strings.TrimSpace(sel.Text()) + " " + aria
}

func hasDownloadButton(doc *goquery.Document) bool {
	found := false
	doc.Find("button, a").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(labelOf(s)), "download") && !hidden(s) {
			found = true
			return false
		}
		return true
	})
	return found
}

func translatedImageSrc(doc *goquery.Document) string {
	var src string
	doc.Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		alt, _ := s.Attr("alt")
		aria, _ := s.Attr("aria-label")
		if !translatedLabel.MatchString(alt + " " + aria) || hidden(s) {
			return true
		}
		if v, _ := s.Attr("src"); strings.TrimSpace(v) != "" {
			src = strings.TrimSpace(v)
			return false
		}
		return true
	})
	return src
}

// fileInputs lists every file input in document order, scored by how likely it is to
// accept images. The index matches document.querySelectorAll(FileInputSelector).
func fileInputs(doc *goquery.Document) []models.FileInput {
	var inputs []models.FileInput
	doc.Find(FileInputSelector).Each(func(i int, s *goquery.Selection) {
		accept, _ := s.Attr("accept")
		inputs = append(inputs, models.FileInput{
			Index:  i,
			Accept: accept,
			Score:  scoreAccept(accept),
		})
	})
	return inputs
}

func scoreAccept(accept string) int {
	value := strings.ToLower(accept)
	for _, token := range imageAcceptTokens {
		if strings.Contains(value, token) {
			return 2
		}
	}
	for _, token := range documentAcceptTokens {
		if strings.Contains(value, token) {
			return 0
		}
	}
	return 1
}

func hasConsentDialog(doc *goquery.Document) bool {
	if doc.Find(`form[action*="consent"], #introAgreeButton`).Length() > 0 {
		return true
	}
	found := false
	doc.Find("button").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label := strings.ToLower(labelOf(s))
		if strings.Contains(label, "accept all") || strings.Contains(label, "i agree") {
			found = !hidden(s)
			return !found
		}
		return true
	})
	return found
}
