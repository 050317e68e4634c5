// ABOUTME: Typed generation errors distinguishing transient, safety, and parse failures
// ABOUTME: Callers branch on Kind to pick retry or surface-to-user behavior

package gemini

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a generation call failed.
type ErrorKind string

const (
	// KindProviderUnavailable covers network failures, timeouts, and
	// non-2xx provider responses. Safe to retry with backoff.
	KindProviderUnavailable ErrorKind = "provider_unavailable"
	// KindSafetyBlocked means the model declined to answer. Not retryable.
	KindSafetyBlocked ErrorKind = "safety_blocked"
	// KindMalformed means the provider response could not be parsed as text.
	KindMalformed ErrorKind = "malformed"
)

// GenerationError is the failure type returned by Client.Generate.
type GenerationError struct {
	Kind ErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("generation failed: %s", e.Kind)
	}
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// KindOf returns the generation error kind, or "" if err is not a
// GenerationError.
func KindOf(err error) ErrorKind {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	return ""
}

// Caller errors: invalid request configuration, detected before any
// outbound call is made.
var (
	ErrIncompleteSafetyConfig = errors.New("safety settings must cover all harm categories")
	ErrInvalidDecodingConfig  = errors.New("decoding config must supply positive topK, topP, and maxOutputTokens and a non-negative temperature")
)
