package forest

import "errors"

// Sentinel errors for the fatal conditions named in the error-handling
// taxonomy. Callers wrap these with github.com/pkg/errors to attach
// context (the offending path, the two sizes that disagreed, etc).
var (
	// ErrUnknownPathType is returned when a scan argument names
	// something that is neither a regular file, a directory, nor a
	// socket (e.g. a block device encountered as a top-level argument).
	ErrUnknownPathType = errors.New("forest: unknown path type")

	// ErrAncestryMismatch is returned when inserting a node into the
	// forest and the parent chain implied by the path does not match
	// the tree built so far. This indicates a scanner bug, not bad
	// input.
	ErrAncestryMismatch = errors.New("forest: ancestry mismatch during insertion")

	// ErrDigestCollision is returned by the resolver's integrity check
	// when two nodes share a digest but disagree on byte size: either a
	// SHA-1 preimage event or on-disk corruption, and the run must not
	// proceed to emit delete commands.
	ErrDigestCollision = errors.New("forest: digest collision with mismatched size")

	// ErrCacheUnavailable is returned when a hash cache was requested
	// but could not be opened.
	ErrCacheUnavailable = errors.New("forest: hash cache unavailable")
)
