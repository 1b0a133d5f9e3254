package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an upstream API reports a video or resource
// does not exist.
var ErrNotFound = errors.New("resource not found")

// ParseError reports a malformed upstream payload: a required field is
// missing or has the wrong type. Pipelines skip such records rather than
// defaulting fields silently.
type ParseError struct {
	Source string // which adapter produced it, e.g. "invidious.search"
	Field  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: bad field %q: %s", e.Source, e.Field, e.Reason)
}

// NewParseError builds a ParseError for the given adapter source.
func NewParseError(source, field, reason string) *ParseError {
	return &ParseError{Source: source, Field: field, Reason: reason}
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
