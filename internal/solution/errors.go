package solution

import (
	"context"
	"errors"
	"fmt"
)

// CacheErrorKind classifies this package's failure modes.
type CacheErrorKind string

const (
	// ErrKindCancelled propagates to the cancelling caller only; it
	// never affects other holders of the same materialization.
	ErrKindCancelled CacheErrorKind = "cancelled"

	// ErrKindAssetFetchFailed reports an AssetProvider failure. Surfaced
	// through the FatalErrorSink and re-raised to every awaiter of the
	// failed materialization.
	ErrKindAssetFetchFailed CacheErrorKind = "asset_fetch_failed"

	// ErrKindSolutionBuildFailed reports a SolutionUpdater/SolutionBuilder
	// failure, same propagation as ErrKindAssetFetchFailed.
	ErrKindSolutionBuildFailed CacheErrorKind = "solution_build_failed"

	// ErrKindInvariantViolated indicates a programming bug in the
	// caller: addReference on a zero-refcount entry, a version going
	// backwards through a path that should have rejected it, or similar.
	ErrKindInvariantViolated CacheErrorKind = "invariant_violated"
)

// CacheError is the typed error this package returns: a kind, a
// message, an optional cause, and structured metadata for diagnostics.
type CacheError struct {
	Kind     CacheErrorKind
	Checksum Checksum
	Message  string
	Cause    error
	Metadata map[string]interface{}
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (checksum=%s): %v", e.Kind, e.Message, e.Checksum, e.Cause)
	}
	return fmt.Sprintf("%s: %s (checksum=%s)", e.Kind, e.Message, e.Checksum)
}

func (e *CacheError) Unwrap() error { return e.Cause }

func (e *CacheError) Is(target error) bool {
	var t *CacheError
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

func (e *CacheError) WithMetadata(key string, value interface{}) *CacheError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newCancelledError(cs Checksum, cause error) *CacheError {
	return &CacheError{Kind: ErrKindCancelled, Checksum: cs, Message: "materialization wait cancelled", Cause: cause}
}

func newAssetFetchFailedError(cs Checksum, cause error) *CacheError {
	return &CacheError{Kind: ErrKindAssetFetchFailed, Checksum: cs, Message: "failed to synchronize solution assets", Cause: cause}
}

func newSolutionBuildFailedError(cs Checksum, cause error) *CacheError {
	return &CacheError{Kind: ErrKindSolutionBuildFailed, Checksum: cs, Message: "failed to build solution snapshot", Cause: cause}
}

func newInvariantViolatedError(message string) *CacheError {
	return &CacheError{Kind: ErrKindInvariantViolated, Message: message}
}

// isContextCancellation reports whether err originates from context
// cancellation/deadline rather than a genuine materialization failure.
func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
