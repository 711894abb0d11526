package domain

import "errors"

// Sentinel errors shared across the pipeline. Validation failures are dropped
// at item granularity and never surface as system failures.
var (
	// ErrInvalidItem marks a malformed or too-short item (validation failure).
	ErrInvalidItem = errors.New("invalid item")

	// ErrDuplicatePage marks a page whose ID already exists; ingestion is
	// idempotent, so this is a no-op, not an error.
	ErrDuplicatePage = errors.New("duplicate page")

	// ErrStoryTooOld refuses merges into a story past its staleness window.
	ErrStoryTooOld = errors.New("story is too old")

	// ErrNoStoryTopics aborts cluster creation with no shared topics.
	ErrNoStoryTopics = errors.New("story candidates share no topics")

	// ErrNoStoryImage aborts cluster creation with no representative image.
	ErrNoStoryImage = errors.New("story candidates have no image")

	// ErrTooSmallImage rejects image payloads below the minimum byte size.
	ErrTooSmallImage = errors.New("image is too small")
)
