// Package checkpoint provides append-only checkpoint storage for pause,
// resume, replay, and time-travel forking.
package checkpoint

import "errors"

// Store persists checkpoint trees keyed by thread ID.
// Implementations must be safe for concurrent use across threads; the engine
// assumes at most one active executor per thread ID at a time.
type Store interface {
	// Put appends a checkpoint. Checkpoints are never mutated; a duplicate
	// checkpoint ID within the thread fails with ErrConflict.
	Put(cp *Checkpoint) error

	// Get retrieves a checkpoint by ID.
	// Returns ErrNotFound if it doesn't exist.
	Get(threadID, checkpointID string) (*Checkpoint, error)

	// Latest returns the most recently written checkpoint for a thread,
	// regardless of which branch of the tree it belongs to.
	// Returns ErrNotFound if the thread has no checkpoints.
	Latest(threadID string) (*Checkpoint, error)

	// History returns all checkpoints for a thread, newest first.
	// Returns an empty slice (not an error) for an unknown thread.
	History(threadID string) ([]*Checkpoint, error)

	// DeleteThread removes all checkpoints for a thread. Retention policy
	// is the caller's concern; the engine never calls this.
	DeleteThread(threadID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrConflict indicates a checkpoint ID collision: a lineage-tracking
	// bug or a concurrent same-thread invocation.
	ErrConflict = errors.New("checkpoint id conflict")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
