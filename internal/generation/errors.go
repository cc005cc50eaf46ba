package generation

import "errors"

var (
	// ErrProvider marks generation backend failures (unreachable or
	// rate-limited). Retryable by the caller, not retried here.
	ErrProvider = errors.New("generation backend unavailable")

	// ErrInvalidFormat marks model output that failed schema validation.
	// Surfaced to the caller, never silently repaired.
	ErrInvalidFormat = errors.New("model output failed schema validation")
)
