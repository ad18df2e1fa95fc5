package testutil

import (
	"fmt"
	"strings"
)

// Accept values observed on the translation page's upload inputs.
const (
	AcceptImages    = "image/jpeg,image/png,.jpeg,.jpg,.png,.webp"
	AcceptDocuments = ".docx,.pdf,.pptx,.xlsx"
)

// PageOptions contains options for generating a translation page snapshot
type PageOptions struct {
	Consent            bool
	FileInputAccepts   []string // one file input per entry, in document order
	DownloadButton     bool
	HiddenDownload     bool   // a download button that sits in a hidden panel
	TranslatedImageSrc string // rendered with alt="Translated image"
	OriginalImageSrc   string // rendered without a translation label
	ErrorText          string
}

// GenerateTranslatePageHTML generates a reduced snapshot of the image translation page
func GenerateTranslatePageHTML(opts PageOptions) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Google Translate</title></head><body>`)

	if opts.Consent {
		b.WriteString(`<div role="dialog"><form action="https://consent.google.com/save" method="POST">`)
		b.WriteString(`<button aria-label="Reject all">Reject all</button><button aria-label="Accept all">Accept all</button>`)
		b.WriteString(`</form></div>`)
	}

	b.WriteString(`<nav><div role="tablist">`)
	b.WriteString(`<button role="tab" aria-label="Text translation">Text</button>`)
	b.WriteString(`<button role="tab" aria-label="Image translation">Images</button>`)
	b.WriteString(`<button role="tab" aria-label="Document translation">Documents</button>`)
	b.WriteString(`</div></nav><main>`)

	for _, accept := range opts.FileInputAccepts {
		fmt.Fprintf(&b, `<label>Browse your files<input type="file" accept="%s" tabindex="-1"></label>`, accept)
	}

	if opts.HiddenDownload {
		b.WriteString(`<div class="doc-panel" style="display: none"><button>Download translation</button></div>`)
	}

	if opts.OriginalImageSrc != "" {
		fmt.Fprintf(&b, `<div class="source"><img src="%s" alt="Source image"></div>`, opts.OriginalImageSrc)
	}
	if opts.TranslatedImageSrc != "" {
		fmt.Fprintf(&b, `<div class="result"><img src="%s" alt="Translated image"></div>`, opts.TranslatedImageSrc)
	}
	if opts.DownloadButton {
		b.WriteString(`<div class="actions"><button aria-label="Download translation"><span>Download translation</span></button></div>`)
	}
	if opts.ErrorText != "" {
		fmt.Fprintf(&b, `<div class="error" role="alert"><span>%s</span></div>`, opts.ErrorText)
	}

	b.WriteString(`</main></body></html>`)
	return b.String()
}
