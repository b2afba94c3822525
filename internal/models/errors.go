package models

import (
	"errors"
	"fmt"
)

// ErrRecognitionUnavailable marks an entity recognizer that could not be reached.
// It is never fatal; redaction continues with the rule layer only.
var ErrRecognitionUnavailable = errors.New("entity recognition unavailable")

// ErrNoText is the cause recorded when every extraction tier produced nothing usable
var ErrNoText = errors.New("no text extracted")

// ExtractionFailure is terminal for a document. Cause never contains document text.
type ExtractionFailure struct {
	Method ExtractionMethod
	Cause  error
}

func (e *ExtractionFailure) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("extraction failed: %v", e.Cause)
	}
	return fmt.Sprintf("extraction failed (%s): %v", e.Method, e.Cause)
}

func (e *ExtractionFailure) Unwrap() error {
	return e.Cause
}

// GatewayFailure wraps a transport or service error from the language model
type GatewayFailure struct {
	Provider string
	Cause    error
}

func (e *GatewayFailure) Error() string {
	return fmt.Sprintf("assistant gateway failure (%s): %v", e.Provider, e.Cause)
}

func (e *GatewayFailure) Unwrap() error {
	return e.Cause
}

// IsExtractionFailure reports whether err is or wraps an ExtractionFailure
func IsExtractionFailure(err error) bool {
	var ef *ExtractionFailure
	return errors.As(err, &ef)
}
