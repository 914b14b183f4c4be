package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")
	ErrInvalidQuery = errors.New("invalid query")

	// ErrEmbeddingUnavailable means the embedding capability is structurally
	// absent (no credential, no provider configured). Not retryable.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrEmbeddingThrottled covers rate limits, timeouts and provider 5xx.
	ErrEmbeddingThrottled = errors.New("embedding throttled")
	// ErrStorageUnavailable means the vector side of the store cannot be
	// provisioned (missing extension/column).
	ErrStorageUnavailable = errors.New("vector storage unavailable")
	// ErrEntityGone means the source entity vanished before reindexing.
	ErrEntityGone = errors.New("source entity gone")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsEntityGone(err error) bool {
	return errors.Is(err, ErrEntityGone)
}
