package stategraph

import (
	"encoding/json"
	"fmt"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// Resume continues a thread from its latest checkpoint. The checkpointed
// frontier executes next, so a run suspended before a guarded node proceeds
// through that node instead of suspending again.
//
// A non-nil input is merged into the restored state through the schema's
// reducers and persisted as its own checkpoint before execution, so the
// decision a human injected at the pause survives a crash.
//
// Resuming a completed thread with input starts a new pass from the entry
// frontier over the accumulated state; this is how multi-turn conversations
// continue on one thread. Without input a completed thread is a no-op.
//
// Example:
//
//	res, _ := compiled.Run(ctx, input,
//	    stategraph.WithCheckpointer(store),
//	    stategraph.WithThreadID("t1"),
//	    stategraph.WithInterruptBefore("publisher"))
//	// res.Status == StatusSuspended; inspect res.State, then:
//	res, err = compiled.Resume(ctx, stategraph.Update{"approved": true},
//	    stategraph.WithCheckpointer(store),
//	    stategraph.WithThreadID("t1"))
func (cg *CompiledGraph) Resume(ctx Context, input Update, opts ...RunOption) (*Result, error) {
	return cg.resume(ctx, "", input, opts...)
}

// ResumeFrom continues a thread from a specific historical checkpoint,
// forking a new branch in its checkpoint tree. The chosen checkpoint and
// its ancestors are untouched; new checkpoints record it as their parent.
// Checkpoints on other branches remain in the history.
//
// Use History to pick the checkpoint ID.
func (cg *CompiledGraph) ResumeFrom(ctx Context, checkpointID string, input Update, opts ...RunOption) (*Result, error) {
	if checkpointID == "" {
		return nil, fmt.Errorf("resume: %w", checkpoint.ErrNotFound)
	}
	return cg.resume(ctx, checkpointID, input, opts...)
}

func (cg *CompiledGraph) resume(ctx Context, checkpointID string, input Update, opts ...RunOption) (*Result, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.store == nil {
		return nil, ErrCheckpointerRequired
	}

	ec := threadScoped(ctx, cfg.threadID)
	threadID := ec.ThreadID()

	var cp *checkpoint.Checkpoint
	var err error
	if checkpointID == "" {
		cp, err = cfg.store.Latest(threadID)
	} else {
		cp, err = cfg.store.Get(threadID, checkpointID)
	}
	if err != nil {
		return nil, &CheckpointError{ThreadID: threadID, Op: "load", Err: err}
	}
	if cp.Version != checkpoint.Version {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}

	var state State
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}
	if state == nil {
		state = State{}
	}

	// The graph a thread resumes on must still contain the checkpointed
	// frontier. A renamed or removed node makes the checkpoint unrunnable.
	for _, node := range cp.Frontier {
		if node != END && !cg.HasNode(node) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidResumeNode, node)
		}
	}

	run := &execution{graph: cg, cfg: &cfg, threadID: threadID}
	parentID := cp.ID
	frontier := cp.Frontier

	// A drained frontier means the thread completed. Without input there is
	// nothing to execute; with input the thread re-enters the graph at its
	// entry frontier, carrying the accumulated state (the multi-turn case).
	if len(stripEnd(frontier)) == 0 {
		if len(input) == 0 {
			return &Result{
				Status:       StatusCompleted,
				State:        state,
				CheckpointID: parentID,
				ThreadID:     threadID,
				Superstep:    cp.Superstep,
			}, nil
		}
		frontier = cg.Entry()
	}

	if len(input) > 0 {
		state, err = cg.schema.Apply(state, input)
		if err != nil {
			return nil, err
		}
		injected, err := run.saveCheckpoint(ec, parentID, cp.Superstep, state, frontier)
		if err != nil {
			return nil, err
		}
		parentID = injected.ID
	}

	return run.loop(ec, state, frontier, parentID, cp.Superstep, true)
}
