/*
Package stategraph provides channel-based graph orchestration for LLM
workflows.

# Overview

stategraph is a Go library for building and executing directed graphs where
nodes read a shared state and return partial updates, and edges define flow.
Execution proceeds in supersteps: every node in the current frontier runs
concurrently against a snapshot of the state, their updates are merged
deterministically through per-channel reducers, a checkpoint is persisted,
and routing computes the next frontier.

The library is inspired by LangGraph but built for Go with:
  - Declared channel schemas with pluggable merge policies
  - Compile-time validation of graph structure
  - Checkpoint trees with resume, human-in-the-loop interrupts, and time
    travel
  - OpenTelemetry integration for observability

# Basic Usage

Declare a schema, wire nodes and edges, then compile and run:

	schema := stategraph.NewSchema(
	    stategraph.Overwrite("query"),
	    stategraph.Append("results"),
	)

	search := func(ctx stategraph.Context, s stategraph.State) (stategraph.Update, error) {
	    return stategraph.Update{"results": "hit for " + s.String("query")}, nil
	}

	graph := stategraph.NewGraph(schema).
	    AddNode("search", search).
	    AddEdge(stategraph.START, "search").
	    AddEdge("search", stategraph.END)

	compiled, err := graph.Compile()
	if err != nil {
	    log.Fatal(err)
	}

	ctx := stategraph.NewContext(context.Background())
	result, err := compiled.Run(ctx, stategraph.Update{"query": "go generics"})
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(result.State.Strings("results"))

# Channels and Reducers

Every state key is a declared channel with a merge policy. Overwrite is
last-write-wins, Append concatenates list items, MergeMessages upserts
chat messages by ID, and Custom takes any reducer function. Writes to
undeclared channels fail the superstep with a SchemaError.

When several frontier nodes write the same channel in one superstep, their
updates are folded in lexical node-name order, so concurrent fan-in is
deterministic run to run.

# Conditional Branching and Loops

Conditional edges route on the merged state through a declared label
mapping:

	graph.AddConditionalEdge("review",
	    func(ctx stategraph.Context, s stategraph.State) string {
	        if s.Bool("approved") {
	            return "approve"
	        }
	        return "revise"
	    },
	    map[string]string{
	        "approve": "publish",
	        "revise":  "editor", // loop back
	    })

Routing back to an earlier node forms a loop. Loops are bounded by
WithMaxSupersteps (default 1000).

# Checkpointing and Resume

Enable durable snapshots with a checkpoint store:

	store, err := checkpoint.NewSQLiteStore("./checkpoints.db")
	defer store.Close()

	result, err := compiled.Run(ctx, input,
	    stategraph.WithCheckpointer(store),
	    stategraph.WithThreadID("thread-123"))

	// After a crash, continue from the latest checkpoint.
	result, err = compiled.Resume(ctx, nil,
	    stategraph.WithCheckpointer(store),
	    stategraph.WithThreadID("thread-123"))

A checkpoint is written for the merged input and after every superstep. A
thread's checkpoints form a tree: ResumeFrom forks execution from any
historical checkpoint without disturbing the branch that followed it.

# Human in the Loop

WithInterruptBefore suspends the run before a guarded node executes:

	result, err := compiled.Run(ctx, input,
	    stategraph.WithCheckpointer(store),
	    stategraph.WithThreadID("thread-123"),
	    stategraph.WithInterruptBefore("publisher"))

	// result.Status == StatusSuspended; inspect result.State, then
	result, err = compiled.Resume(ctx, stategraph.Update{"approved": true},
	    stategraph.WithCheckpointer(store),
	    stategraph.WithThreadID("thread-123"))

The resume input is merged through the schema's reducers and persisted
before execution continues through the guarded node.

# Subgraphs

AddSubgraph embeds one compiled graph as a node of another. Channels shared
by name cross the boundary; everything else stays private to its side.

# Observability

Structured logs use log/slog with thread_id, node_id, and superstep fields.
OpenTelemetry metrics and tracing are opt-in:

	result, err := compiled.Run(ctx, input,
	    stategraph.WithMetrics(true),
	    stategraph.WithTracing(true))

An event bus streams run, superstep, and node lifecycle events for callers
that want progress before the final result; see the event subpackage.

# Error Handling

Errors carry enough context to locate and retry the failure:

	result, err := compiled.Run(ctx, input)
	var nodeErr *stategraph.NodeError
	if errors.As(err, &nodeErr) {
	    log.Printf("node %s failed after checkpoint %s: %v",
	        nodeErr.NodeID, nodeErr.CheckpointID, nodeErr.Err)
	}

Panics in node bodies are recovered into a PanicError with the stack trace.
A failed superstep writes no checkpoint, so the store never holds partially
merged state.

# Thread Safety

  - Graph is NOT safe for concurrent use during construction
  - CompiledGraph IS safe for concurrent use (immutable)
  - Context IS safe for concurrent use
  - Store implementations are safe for concurrent use

# Subpackages

  - checkpoint: Checkpoint storage (memory, SQLite)
  - config: Run configuration pass-through (YAML/JSON loading)
  - event: Execution event stream
  - observability: Logging, metrics, and tracing helpers
  - registry: Generic keyed registry used by the graph builder
*/
package stategraph
