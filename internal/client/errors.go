package client

import "fmt"

// StatusError is returned when the image server answers with a non-2xx status
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements the error interface
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}

// Is allows for error checking with errors.Is()
func (e *StatusError) Is(target error) bool {
	_, ok := target.(*StatusError)
	return ok
}
