package parser

import (
	"io"

	"golang.org/x/net/html/charset"
)

// NewUTF8Reader wraps an io.Reader with automatic character encoding detection and conversion to UTF-8.
// DevTools snapshots are already UTF-8; saved pages and fixtures may declare another
// charset in a <meta> tag or carry a BOM, in which case the content is converted.
func NewUTF8Reader(body io.Reader) (io.Reader, error) {
	return charset.NewReader(body, "")
}
