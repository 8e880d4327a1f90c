// Package event provides the execution event stream: a pub/sub bus carrying
// run, superstep, node, and checkpoint lifecycle events so callers can
// observe a run as it progresses instead of waiting for the final result.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies an event kind.
type Type string

// Lifecycle event types published by the executor.
const (
	TypeRunStarted         Type = "run.started"
	TypeRunCompleted       Type = "run.completed"
	TypeRunSuspended       Type = "run.suspended"
	TypeRunFailed          Type = "run.failed"
	TypeNodeStarted        Type = "node.started"
	TypeNodeCompleted      Type = "node.completed"
	TypeNodeFailed         Type = "node.failed"
	TypeSuperstepCompleted Type = "superstep.completed"
	TypeCheckpointSaved    Type = "checkpoint.saved"
)

// Event is one lifecycle notification. Fields that don't apply to the type
// are zero: NodeID is empty on run-level events, CheckpointID is only set on
// checkpoint and superstep events, and so on.
type Event struct {
	// ID uniquely identifies this event.
	ID string `json:"id"`

	// Type is the event kind.
	Type Type `json:"type"`

	// ThreadID is the run's thread identity.
	ThreadID string `json:"thread_id"`

	// NodeID is set on node-level events.
	NodeID string `json:"node_id,omitempty"`

	// Superstep is the superstep the event belongs to.
	Superstep int `json:"superstep"`

	// CheckpointID is set on checkpoint.saved and superstep.completed.
	CheckpointID string `json:"checkpoint_id,omitempty"`

	// Frontier is the next frontier on superstep.completed and
	// run.suspended events.
	Frontier []string `json:"frontier,omitempty"`

	// State carries the merged state snapshot on superstep.completed,
	// mirroring value-mode streaming. Nil on other events.
	State map[string]any `json:"state,omitempty"`

	// Error is the failure message on node.failed and run.failed.
	Error string `json:"error,omitempty"`

	// At is the event timestamp.
	At time.Time `json:"at"`
}

// New creates an event of the given type with ID and timestamp filled in.
func New(t Type, threadID string) Event {
	return Event{
		ID:       uuid.NewString(),
		Type:     t,
		ThreadID: threadID,
		At:       time.Now().UTC(),
	}
}
