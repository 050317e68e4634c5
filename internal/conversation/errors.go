// ABOUTME: TurnError taxonomy mapping gateway and store failures to turn outcomes
// ABOUTME: Distinguishes pre-generation aborts from post-generation persistence warnings

package conversation

import (
	"errors"
	"fmt"

	"github.com/harmonie-ai/harmonie/internal/gemini"
)

// TurnErrorKind classifies how a turn failed.
type TurnErrorKind string

const (
	// KindProviderUnavailable: the model could not be reached. The turn
	// aborted before any session mutation; safe to retry with backoff.
	KindProviderUnavailable TurnErrorKind = "provider_unavailable"
	// KindSafetyBlocked: the model declined to answer. Surface to the
	// user as a declined response, not a generic failure. Not retryable.
	KindSafetyBlocked TurnErrorKind = "safety_blocked"
	// KindMalformed: the provider response was unusable. Treated as
	// transient; the transport may retry the turn once.
	KindMalformed TurnErrorKind = "malformed"
	// KindPersistenceFailed: generation succeeded but the session could
	// not be saved. The reply is still valid and delivered; the next turn
	// may lose context.
	KindPersistenceFailed TurnErrorKind = "persistence_failed"
)

// TurnError is the failure type returned by Controller.HandleTurn.
// When Kind is KindPersistenceFailed the accompanying TurnResult still
// carries the generated reply.
type TurnError struct {
	Kind TurnErrorKind
	Err  error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn failed (%s): %v", e.Kind, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// KindOf returns the turn error kind, or "" if err is not a TurnError.
func KindOf(err error) TurnErrorKind {
	var turnErr *TurnError
	if errors.As(err, &turnErr) {
		return turnErr.Kind
	}
	return ""
}

// wrapGenerationError maps a gateway failure onto the turn taxonomy.
func wrapGenerationError(err error) *TurnError {
	switch gemini.KindOf(err) {
	case gemini.KindSafetyBlocked:
		return &TurnError{Kind: KindSafetyBlocked, Err: err}
	case gemini.KindMalformed:
		return &TurnError{Kind: KindMalformed, Err: err}
	default:
		return &TurnError{Kind: KindProviderUnavailable, Err: err}
	}
}
