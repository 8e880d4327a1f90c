package stategraph

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/event"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the graph for one thread, starting from the schema defaults
// merged with the given input.
//
// The run proceeds in supersteps: the current frontier executes
// concurrently, the collected partial updates are merged through the
// schema's reducers in lexical node-name order, a checkpoint is persisted,
// and the next frontier is computed from static and conditional edges. The
// loop ends when the frontier drains to END, a guarded node suspends the
// run, or a node fails.
//
// The returned Result is non-nil whenever the run started: on failure it
// carries the last good checkpoint and the frontier to re-run.
//
// Example:
//
//	res, err := compiled.Run(ctx, stategraph.Update{"query": "go generics"},
//	    stategraph.WithCheckpointer(store),
//	    stategraph.WithThreadID("user-123"))
func (cg *CompiledGraph) Run(ctx Context, input Update, opts ...RunOption) (*Result, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	state, err := cg.schema.Apply(cg.schema.Initial(), input)
	if err != nil {
		return nil, err
	}

	return cg.runFromState(ctx, state, opts...)
}

// runFromState starts the superstep loop from an already built initial
// state, bypassing the defaults-plus-input merge. The subgraph adapter uses
// it to overlay parent values onto the child's defaults itself.
func (cg *CompiledGraph) runFromState(ctx Context, state State, opts ...RunOption) (*Result, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	// A suspension without a durable checkpoint cannot be resumed.
	if cfg.guard != nil && cfg.store == nil {
		return nil, ErrCheckpointerRequired
	}

	ec := threadScoped(ctx, cfg.threadID)
	threadID := ec.ThreadID()

	run := &execution{graph: cg, cfg: &cfg, threadID: threadID}

	// Checkpoint 0 captures the merged input and the entry frontier, so a
	// run interrupted before its first superstep still has a resume point.
	parentID := ""
	frontier := cg.Entry()
	if cfg.store != nil {
		cp, err := run.saveCheckpoint(ec, parentID, 0, state, frontier)
		if err != nil {
			return nil, err
		}
		parentID = cp.ID
	}

	return run.loop(ec, state, frontier, parentID, 0, false)
}

// threadScoped reconciles the context's thread ID with the run option.
func threadScoped(ctx Context, threadID string) Context {
	if ec, ok := ctx.(*executionContext); ok {
		return ec.withThread(threadID)
	}
	return ctx
}

// execution carries per-invocation executor state.
type execution struct {
	graph    *CompiledGraph
	cfg      *runConfig
	threadID string
}

// loop is the superstep state machine. resumed suppresses the interrupt
// check for the first frontier so Resume proceeds through a guarded node
// instead of suspending again.
func (e *execution) loop(ctx Context, state State, frontier []string, parentID string, superstep int, resumed bool) (result *Result, runErr error) {
	cfg := e.cfg
	logger := ctx.Logger()
	startTime := time.Now()

	observability.LogRunStart(logger, e.threadID)
	e.publish(event.New(event.TypeRunStarted, e.threadID))

	var execCtx context.Context = ctx
	var runSpan trace.Span
	if cfg.tracingEnabled {
		execCtx, runSpan = cfg.spans.StartRunSpan(ctx, e.threadID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}
	defer func() {
		if result != nil {
			cfg.metrics.RecordRun(ctx, string(result.Status), time.Since(startTime))
		}
	}()

	iterations := 0
	for {
		frontier = stripEnd(frontier)

		// Terminal marker reached on every path.
		if len(frontier) == 0 {
			observability.LogRunComplete(logger, e.threadID, msSince(startTime), superstep)
			e.publish(event.New(event.TypeRunCompleted, e.threadID))
			return &Result{
				Status:       StatusCompleted,
				State:        state,
				CheckpointID: parentID,
				ThreadID:     e.threadID,
				Superstep:    superstep,
			}, nil
		}

		// Interrupt check covers the whole frontier, before any node runs.
		if !resumed && cfg.guard.shouldPause(frontier) {
			observability.LogRunSuspended(logger, e.threadID, frontier, parentID)
			evt := event.New(event.TypeRunSuspended, e.threadID)
			evt.Frontier = frontier
			evt.CheckpointID = parentID
			e.publish(evt)
			return &Result{
				Status:       StatusSuspended,
				State:        state,
				Next:         frontier,
				CheckpointID: parentID,
				ThreadID:     e.threadID,
				Superstep:    superstep,
			}, nil
		}
		resumed = false

		iterations++
		if iterations > cfg.maxSupersteps {
			err := &MaxSuperstepsError{Max: cfg.maxSupersteps, Frontier: frontier}
			return e.failed(ctx, state, frontier, parentID, superstep, "", err, startTime)
		}

		select {
		case <-ctx.Done():
			err := &CancellationError{Frontier: frontier, Cause: ctx.Err()}
			return e.failed(ctx, state, frontier, parentID, superstep, "", err, startTime)
		default:
		}

		observability.LogSuperstepStart(logger, superstep+1, frontier)
		stepStart := time.Now()

		stepCtx := execCtx
		var stepSpan trace.Span
		if cfg.tracingEnabled {
			stepCtx, stepSpan = cfg.spans.StartSuperstepSpan(execCtx, superstep+1, frontier)
		}

		// Run every node in the frontier; full barrier before merging.
		results := e.runFrontier(stepCtx, ctx, frontier, state, superstep+1)

		merged, failedNode, err := e.mergeResults(state, results)
		if err != nil {
			if cfg.tracingEnabled {
				cfg.spans.EndSpanWithError(stepSpan, err)
			}
			var nodeErr *NodeError
			if errors.As(err, &nodeErr) {
				nodeErr.CheckpointID = parentID
			}
			return e.failed(ctx, merged, frontier, parentID, superstep, failedNode, err, startTime)
		}

		// Routing runs against the merged state, before the checkpoint, so
		// the checkpoint records the frontier it hands off to.
		next, err := e.nextFrontier(ctx, merged, frontier, superstep+1)
		if err != nil {
			if cfg.tracingEnabled {
				cfg.spans.EndSpanWithError(stepSpan, err)
			}
			return e.failed(ctx, merged, frontier, parentID, superstep, "", err, startTime)
		}

		superstep++
		if cfg.store != nil {
			cp, err := e.saveCheckpoint(ctx, parentID, superstep, merged, next)
			if err != nil {
				if cfg.tracingEnabled {
					cfg.spans.EndSpanWithError(stepSpan, err)
				}
				return e.failed(ctx, state, frontier, parentID, superstep-1, "", err, startTime)
			}
			parentID = cp.ID
		}

		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(stepSpan, nil)
		}
		cfg.metrics.RecordSuperstep(ctx, len(frontier), time.Since(stepStart))
		observability.LogSuperstepComplete(logger, superstep, msSince(stepStart), next)

		evt := event.New(event.TypeSuperstepCompleted, e.threadID)
		evt.Superstep = superstep
		evt.CheckpointID = parentID
		evt.Frontier = next
		evt.State = merged
		e.publish(evt)

		state = merged
		frontier = next
	}
}

// mergeResults folds the frontier's partial updates into the state in
// lexical node-name order (results arrive sorted). On node failure the
// failure policy decides whether successful siblings still land; either
// way no checkpoint is written for the superstep.
func (e *execution) mergeResults(state State, results []nodeResult) (State, string, error) {
	var firstErr error
	var failedNode string
	for _, r := range results {
		if r.err != nil && firstErr == nil {
			firstErr = r.err
			failedNode = r.node
		}
	}

	if firstErr != nil && e.cfg.failurePolicy == DiscardSiblings {
		return state, failedNode, firstErr
	}

	merged := state
	for _, r := range results {
		if r.err != nil {
			continue
		}
		next, err := e.graph.schema.Apply(merged, r.update)
		if err != nil {
			// Undeclared channel write: the whole superstep aborts and the
			// pre-superstep state is preserved.
			return state, r.node, err
		}
		merged = next
	}

	if firstErr != nil {
		return merged, failedNode, firstErr
	}
	return merged, "", nil
}

// nextFrontier evaluates each executed node's outgoing edges against the
// merged state. Static edges contribute all their targets (fan-out);
// conditional edges route one label through their declared mapping.
// Duplicate targets collapse: a node reachable by two paths runs once.
func (e *execution) nextFrontier(ctx Context, state State, frontier []string, superstep int) ([]string, error) {
	var targets []string
	for _, node := range frontier {
		edge, conditional := e.graph.getConditional(node)
		if !conditional {
			targets = append(targets, e.graph.Successors(node)...)
			continue
		}

		routerCtx := ctx
		if ec, ok := ctx.(*executionContext); ok {
			routerCtx = ec.withNode(node, superstep)
		}
		label := edge.router(routerCtx, state)
		target, ok := edge.targets[label]
		if !ok {
			return nil, &RoutingError{FromNode: node, Label: label, Err: ErrUnknownRouteLabel}
		}
		targets = append(targets, target)
	}
	return stripEnd(dedupeSorted(targets)), nil
}

// saveCheckpoint serializes the state and appends a checkpoint.
func (e *execution) saveCheckpoint(ctx Context, parentID string, superstep int, state State, frontier []string) (*checkpoint.Checkpoint, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, &CheckpointError{ThreadID: e.threadID, Op: "serialize", Err: err}
	}

	cp := checkpoint.New(e.threadID, parentID, superstep, data, frontier)
	if err := e.cfg.store.Put(cp); err != nil {
		return nil, &CheckpointError{ThreadID: e.threadID, Op: "put", Err: err}
	}

	observability.LogCheckpoint(ctx.Logger(), cp.ID, superstep, len(data))
	e.cfg.metrics.RecordCheckpoint(ctx, int64(len(data)))

	evt := event.New(event.TypeCheckpointSaved, e.threadID)
	evt.Superstep = superstep
	evt.CheckpointID = cp.ID
	evt.Frontier = cp.Frontier
	e.publish(evt)

	return cp, nil
}

// failed builds the terminal Failed result. The last durable checkpoint and
// the unfinished frontier travel with it so the caller can resume after
// fixing the cause.
func (e *execution) failed(ctx Context, state State, frontier []string, parentID string, superstep int, nodeID string, err error, startTime time.Time) (*Result, error) {
	observability.LogRunError(ctx.Logger(), e.threadID, err, msSince(startTime), nodeID)

	evt := event.New(event.TypeRunFailed, e.threadID)
	evt.NodeID = nodeID
	evt.Error = err.Error()
	evt.CheckpointID = parentID
	e.publish(evt)

	return &Result{
		Status:       StatusFailed,
		State:        state,
		Next:         frontier,
		CheckpointID: parentID,
		ThreadID:     e.threadID,
		Superstep:    superstep,
	}, err
}

// publish sends an event if a bus is configured.
func (e *execution) publish(evt event.Event) {
	if e.cfg.bus != nil {
		e.cfg.bus.Publish(evt)
	}
}

// stripEnd removes the END marker from a frontier.
func stripEnd(frontier []string) []string {
	out := frontier[:0:0]
	for _, n := range frontier {
		if n != END {
			out = append(out, n)
		}
	}
	return out
}

// msSince returns elapsed wall time in milliseconds.
func msSince(t time.Time) float64 {
	return float64(time.Since(t).Milliseconds())
}

// History returns a thread's checkpoints, newest first. Time travel is
// caller-driven: inspect the history, pick a checkpoint, and hand its ID to
// ResumeFrom.
func History(store checkpoint.Store, threadID string) ([]*checkpoint.Checkpoint, error) {
	if store == nil {
		return nil, ErrCheckpointerRequired
	}
	return store.History(threadID)
}
