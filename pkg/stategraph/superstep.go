package stategraph

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/randalmurphal/stategraph/pkg/stategraph/event"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// nodeResult is one node's outcome within a superstep.
type nodeResult struct {
	node   string
	update Update
	err    error
}

// runFrontier executes every node in the frontier concurrently against a
// private snapshot of the state and waits for all of them (join barrier).
// Results come back sorted by node name so the merge order is deterministic
// regardless of completion order.
//
// traceCtx carries the superstep span for child node spans; ctx is the
// engine context node bodies see (narrowed per node).
func (e *execution) runFrontier(traceCtx context.Context, ctx Context, frontier []string, state State, superstep int) []nodeResult {
	results := make([]nodeResult, len(frontier))

	var wg sync.WaitGroup
	run := func(i int, nodeID string) {
		defer wg.Done()
		results[i] = e.runNode(traceCtx, ctx, nodeID, state, superstep)
	}

	if e.cfg.maxConcurrency > 0 && len(frontier) > 1 {
		pool, err := ants.NewPool(e.cfg.maxConcurrency)
		if err == nil {
			defer pool.Release()
			for i, nodeID := range frontier {
				i, nodeID := i, nodeID
				wg.Add(1)
				if submitErr := pool.Submit(func() { run(i, nodeID) }); submitErr != nil {
					// Submission only fails on a released pool; run inline
					// so the barrier still sees every node.
					run(i, nodeID)
				}
			}
			wg.Wait()
			sortResults(results)
			return results
		}
		// Pool creation failed; fall through to unbounded goroutines.
	}

	for i, nodeID := range frontier {
		i, nodeID := i, nodeID
		wg.Add(1)
		go run(i, nodeID)
	}
	wg.Wait()

	sortResults(results)
	return results
}

// runNode executes one node body with panic recovery. Each node gets a deep
// copy of the state, so concurrent siblings cannot observe each other.
func (e *execution) runNode(traceCtx context.Context, ctx Context, nodeID string, state State, superstep int) (res nodeResult) {
	res.node = nodeID
	cfg := e.cfg

	fn, ok := e.graph.getNode(nodeID)
	if !ok {
		res.err = &NodeError{NodeID: nodeID, Op: "lookup", Err: ErrNodeNotFound}
		return res
	}

	snapshot, err := state.Clone()
	if err != nil {
		res.err = &NodeError{NodeID: nodeID, Op: "snapshot", Err: err}
		return res
	}

	nodeCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		nodeCtx = ec.withNode(nodeID, superstep)
	}
	logger := nodeCtx.Logger()

	observability.LogNodeStart(logger, nodeID)
	e.publishNode(event.TypeNodeStarted, nodeID, superstep, "")
	start := time.Now()

	if cfg.tracingEnabled {
		_, span := cfg.spans.StartNodeSpan(traceCtx, nodeID)
		defer func() {
			cfg.spans.EndSpanWithError(span, res.err)
		}()
	}
	defer func() {
		cfg.metrics.RecordNodeExecution(nodeCtx, nodeID, time.Since(start), res.err)
	}()

	defer func() {
		if r := recover(); r != nil {
			res.err = &NodeError{
				NodeID: nodeID,
				Op:     "execute",
				Err:    &PanicError{NodeID: nodeID, Value: r, Stack: string(debug.Stack())},
			}
			observability.LogNodeError(logger, nodeID, res.err)
			e.publishNode(event.TypeNodeFailed, nodeID, superstep, fmt.Sprint(r))
		}
	}()

	update, err := fn(nodeCtx, snapshot)
	if err != nil {
		res.err = &NodeError{NodeID: nodeID, Op: "execute", Err: err}
		observability.LogNodeError(logger, nodeID, err)
		e.publishNode(event.TypeNodeFailed, nodeID, superstep, err.Error())
		return res
	}

	res.update = update
	observability.LogNodeComplete(logger, nodeID, msSince(start))
	e.publishNode(event.TypeNodeCompleted, nodeID, superstep, "")
	return res
}

// publishNode emits a node lifecycle event if a bus is configured.
func (e *execution) publishNode(t event.Type, nodeID string, superstep int, errMsg string) {
	if e.cfg.bus == nil {
		return
	}
	evt := event.New(t, e.threadID)
	evt.NodeID = nodeID
	evt.Superstep = superstep
	evt.Error = errMsg
	e.cfg.bus.Publish(evt)
}

func sortResults(results []nodeResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].node < results[j].node
	})
}
