package parser

import "io"

// SingleResultParser defines an interface for parsing one HTML document into a single value
type SingleResultParser[T any] interface {
	ParseHtml(body io.Reader) (*T, error)
}
