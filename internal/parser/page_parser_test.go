package parser

import (
	"strings"
	"testing"

	"github.com/Belphemur/ImageTranslate/internal/models"
	"github.com/Belphemur/ImageTranslate/internal/testutil"
)

var _ SingleResultParser[models.PageState] = (*PageParser)(nil)

func parse(t *testing.T, html string) *models.PageState {
	t.Helper()
	state, err := NewPageParser().ParseHtml(strings.NewReader(html))
	if err != nil {
		t.Fatalf("ParseHtml failed: %v", err)
	}
	return state
}

func TestPageParser_TextTab(t *testing.T) {
	state := parse(t, testutil.GenerateTranslatePageHTML(testutil.PageOptions{}))

	if state.OnImagesTab() {
		t.Error("Expected page without file inputs not to be on the images tab")
	}
	if state.BestFileInput() != -1 {
		t.Errorf("Expected no file input, got index %d", state.BestFileInput())
	}
	if state.Ready() {
		t.Error("Expected empty page not to be ready")
	}
}

func TestPageParser_PicksImageInput(t *testing.T) {
	state := parse(t, testutil.GenerateTranslatePageHTML(testutil.PageOptions{
		FileInputAccepts: []string{testutil.AcceptDocuments, "", testutil.AcceptImages},
	}))

	if len(state.FileInputs) != 3 {
		t.Fatalf("Expected 3 file inputs, got %d", len(state.FileInputs))
	}
	expectedScores := []int{0, 1, 2}
	for i, in := range state.FileInputs {
		if in.Index != i {
			t.Errorf("Input %d: expected index %d, got %d", i, i, in.Index)
		}
		if in.Score != expectedScores[i] {
			t.Errorf("Input %d: expected score %d, got %d", i, expectedScores[i], in.Score)
		}
	}
	if got := state.BestFileInput(); got != 2 {
		t.Errorf("Expected image input at index 2, got %d", got)
	}
	if !state.OnImagesTab() {
		t.Error("Expected images tab to be detected")
	}
}

func TestPageParser_UnknownAcceptPreferredOverDocuments(t *testing.T) {
	state := parse(t, testutil.GenerateTranslatePageHTML(testutil.PageOptions{
		FileInputAccepts: []string{testutil.AcceptDocuments, ""},
	}))
	if got := state.BestFileInput(); got != 1 {
		t.Errorf("Expected input without accept at index 1, got %d", got)
	}
	if state.OnImagesTab() {
		t.Error("Expected no image input to be reported")
	}
}

func TestPageParser_TranslatedResult(t *testing.T) {
	state := parse(t, testutil.GenerateTranslatePageHTML(testutil.PageOptions{
		FileInputAccepts:   []string{testutil.AcceptImages},
		OriginalImageSrc:   "blob:https://translate.google.com/source",
		TranslatedImageSrc: "blob:https://translate.google.com/result",
		DownloadButton:     true,
	}))

	if state.TranslatedImageSrc != "blob:https://translate.google.com/result" {
		t.Errorf("Expected translated image src, got %q", state.TranslatedImageSrc)
	}
	if !state.HasDownloadButton {
		t.Error("Expected download button to be detected")
	}
	if !state.Ready() {
		t.Error("Expected page to be ready")
	}
}

func TestPageParser_HiddenDownloadIgnored(t *testing.T) {
	state := parse(t, testutil.GenerateTranslatePageHTML(testutil.PageOptions{
		FileInputAccepts: []string{testutil.AcceptImages},
		HiddenDownload:   true,
		OriginalImageSrc: "blob:https://translate.google.com/source",
	}))

	if state.HasDownloadButton {
		t.Error("Expected hidden download button to be ignored")
	}
	if state.TranslatedImageSrc != "" {
		t.Errorf("Expected source image not to be reported as translated, got %q", state.TranslatedImageSrc)
	}
	if state.Ready() {
		t.Error("Expected page not to be ready before the result renders")
	}
}

func TestPageParser_TranslationErrors(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{text: "Can't detect text", expected: "Can't detect text"},
		{text: "CANNOT DETECT TEXT in this image", expected: "Cannot detect text"},
		{text: "This language may not be supported", expected: "This language may not be supported"},
		{text: "Can't detect text. This language may not be supported.", expected: "Can't detect text. This language may not be supported."},
		{text: "Translation complete", expected: ""},
	}

	for _, tt := range tests {
		state := parse(t, testutil.GenerateTranslatePageHTML(testutil.PageOptions{ErrorText: tt.text}))
		if state.ErrorMessage != tt.expected {
			t.Errorf("For %q expected error %q, got %q", tt.text, tt.expected, state.ErrorMessage)
		}
	}
}

func TestPageParser_ConsentDialog(t *testing.T) {
	state := parse(t, testutil.GenerateTranslatePageHTML(testutil.PageOptions{Consent: true}))
	if !state.HasConsentDialog {
		t.Error("Expected consent dialog to be detected")
	}

	state = parse(t, testutil.GenerateTranslatePageHTML(testutil.PageOptions{}))
	if state.HasConsentDialog {
		t.Error("Expected no consent dialog")
	}
}

func TestPageParser_InvalidMarkupStillParses(t *testing.T) {
	state := parse(t, `<div><img alt="translation" src="data:image/png;base64,AAAA"><p>unclosed`)
	if state.TranslatedImageSrc != "data:image/png;base64,AAAA" {
		t.Errorf("Expected lenient parsing to find the image, got %q", state.TranslatedImageSrc)
	}
}
