package stategraph

// Graph boundary markers. START is the synthetic entry: its edge targets form
// the first frontier. END is the terminal marker: execution completes when
// the frontier drains to it.
const (
	START = "__start__"
	END   = "__end__"
)

// NodeFunc is the signature for node bodies. A node receives the execution
// context and a read-only snapshot of the current state, and returns a
// partial update (a subset of declared channels) or an error.
//
// Nodes must not mutate the snapshot; the executor merges the returned
// update through the schema's reducers after the whole frontier has run.
//
// Example:
//
//	func generate(ctx stategraph.Context, state stategraph.State) (stategraph.Update, error) {
//	    draft := compose(state.String("topic"))
//	    return stategraph.Update{"draft": draft, "loop_count": state.Int("loop_count") + 1}, nil
//	}
type NodeFunc func(ctx Context, state State) (Update, error)

// RouterFunc decides where a conditional edge goes. It inspects the state
// merged at the end of the superstep and returns a label; the label is
// resolved through the edge's declared target mapping. A label absent from
// the mapping is a RoutingError, never a silent no-op.
//
// Example:
//
//	func route(ctx stategraph.Context, state stategraph.State) string {
//	    if state.Int("loop_count") > 2 {
//	        return "done"
//	    }
//	    return "revise"
//	}
type RouterFunc func(ctx Context, state State) string

// Status is the executor's lifecycle state for one run.
type Status string

// Run statuses. Pending transitions to Running when the superstep loop
// starts; Suspended transitions back to Running on an explicit resume.
const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSuspended Status = "suspended"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Result is the outcome of Run, Resume, or ResumeFrom.
type Result struct {
	// Status is Completed, Suspended, or Failed.
	Status Status

	// State is the final (or last good in-memory) state.
	State State

	// Next is the frontier that has not executed yet. Non-empty when the
	// run is Suspended (the guarded frontier) or Failed (the frontier to
	// re-run after fixing the cause).
	Next []string

	// CheckpointID is the last durable checkpoint, the resume point.
	CheckpointID string

	// ThreadID identifies the checkpoint lineage this run belongs to.
	ThreadID string

	// Superstep is the number of completed supersteps.
	Superstep int
}
