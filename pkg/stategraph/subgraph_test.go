package stategraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// childGraph builds a two-node child graph over the given schema.
func childGraph(t *testing.T, schema *Schema, nodes ...NodeFunc) *CompiledGraph {
	t.Helper()
	g := NewGraph(schema)
	prev := START
	for i, fn := range nodes {
		id := string(rune('a'+i)) + "_child"
		g.AddNode(id, fn)
		g.AddEdge(prev, id)
		prev = id
	}
	g.AddEdge(prev, END)
	compiled, err := g.Compile()
	require.NoError(t, err)
	return compiled
}

// TestSubgraph_SharedOverwriteChannel tests that an overwrite channel crosses
// the boundary in both directions.
func TestSubgraph_SharedOverwriteChannel(t *testing.T) {
	childSchema := NewSchema(Overwrite("value"), Overwrite("scratch"))
	child := childGraph(t, childSchema,
		func(ctx Context, s State) (Update, error) {
			return Update{"scratch": s.String("value") + "+work"}, nil
		},
		func(ctx Context, s State) (Update, error) {
			return Update{"value": s.String("scratch") + "+done"}, nil
		},
	)

	parent := NewGraph(trackSchema()).
		AddSubgraph("worker", child).
		AddEdge(START, "worker").
		AddEdge("worker", END)

	compiled, err := parent.Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Update{"value": "in"})

	require.NoError(t, err)
	assert.Equal(t, "in+work+done", result.State.String("value"))
	// Channels only the child declares stay private.
	_, leaked := result.State["scratch"]
	assert.False(t, leaked)
}

// TestSubgraph_AppendChannelReturnsDelta tests that only the child's
// additions flow back, so the parent's list is not duplicated.
func TestSubgraph_AppendChannelReturnsDelta(t *testing.T) {
	childSchema := NewSchema(Append("trail"))
	child := childGraph(t, childSchema,
		func(ctx Context, s State) (Update, error) {
			return Update{"trail": "child-1"}, nil
		},
		func(ctx Context, s State) (Update, error) {
			return Update{"trail": "child-2"}, nil
		},
	)

	parent := NewGraph(trackSchema()).
		AddNode("before", makeTrackingNode("before", &tracker{})).
		AddSubgraph("inner", child).
		AddEdge(START, "before").
		AddEdge("before", "inner").
		AddEdge("inner", END)

	compiled, err := parent.Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"before", "child-1", "child-2"}, result.State.Strings("trail"))
}

// TestSubgraph_DefaultedAppendChannelNotDuplicated tests that a child
// default on a shared append channel is replaced by the parent's value, so
// translate-back carries only the child's additions and no parent item is
// re-appended.
func TestSubgraph_DefaultedAppendChannelNotDuplicated(t *testing.T) {
	childSchema := NewSchema(
		Append("log").WithDefault(func() any { return []any{"seed"} }),
	)
	child := childGraph(t, childSchema,
		func(ctx Context, s State) (Update, error) {
			return Update{"log": "child"}, nil
		},
	)

	parent := NewGraph(NewSchema(Append("log"))).
		AddSubgraph("inner", child).
		AddEdge(START, "inner").
		AddEdge("inner", END)

	compiled, err := parent.Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Update{"log": []any{"p1", "p2"}})

	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2", "child"}, result.State.Strings("log"))
}

// TestSubgraph_DefaultFillsUnsuppliedChannel tests that a child default
// still applies when the parent carries no value for the channel: the child
// sees the default, and only the child's own additions flow back.
func TestSubgraph_DefaultFillsUnsuppliedChannel(t *testing.T) {
	childSchema := NewSchema(
		Append("log").WithDefault(func() any { return []any{"seed"} }),
		Overwrite("first"),
	)
	child := childGraph(t, childSchema,
		func(ctx Context, s State) (Update, error) {
			list := s.List("log")
			if len(list) == 0 {
				return nil, errors.New("expected defaulted log")
			}
			return Update{"first": list[0], "log": "child"}, nil
		},
	)

	parent := NewGraph(NewSchema(Append("log"), Overwrite("first"))).
		AddSubgraph("inner", child).
		AddEdge(START, "inner").
		AddEdge("inner", END)

	compiled, err := parent.Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), nil)

	require.NoError(t, err)
	// The child saw its default.
	assert.Equal(t, "seed", result.State.String("first"))
	// The default stays with the child; only additions cross back.
	assert.Equal(t, []string{"child"}, result.State.Strings("log"))
}

// TestSubgraph_MergeMessagesIdempotent tests that message channels re-merge
// without duplication thanks to the ID upsert.
func TestSubgraph_MergeMessagesIdempotent(t *testing.T) {
	parentSchema := NewSchema(MergeMessages("messages"))
	childSchema := NewSchema(MergeMessages("messages"))

	reply := NewMessage("assistant", "hello back")
	child := childGraph(t, childSchema,
		func(ctx Context, s State) (Update, error) {
			return Update{"messages": []Message{reply}}, nil
		},
	)

	parent := NewGraph(parentSchema).
		AddSubgraph("responder", child).
		AddEdge(START, "responder").
		AddEdge("responder", END)

	compiled, err := parent.Compile()
	require.NoError(t, err)

	greeting := NewMessage("user", "hello")
	result, err := compiled.Run(testCtx(), Update{"messages": []Message{greeting}})

	require.NoError(t, err)
	msgs, err := asMessages(result.State["messages"])
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, greeting.ID, msgs[0].ID)
	assert.Equal(t, reply.ID, msgs[1].ID)
}

// TestSubgraph_ChildSupersteps tests that the child runs as one parent node:
// the parent's superstep count does not include the child's internal steps.
func TestSubgraph_ChildSupersteps(t *testing.T) {
	childSchema := NewSchema(Overwrite("value"))
	child := childGraph(t, childSchema,
		func(ctx Context, s State) (Update, error) { return Update{"value": "1"}, nil },
		func(ctx Context, s State) (Update, error) { return Update{"value": "2"}, nil },
		func(ctx Context, s State) (Update, error) { return Update{"value": "3"}, nil },
	)

	parent := NewGraph(trackSchema()).
		AddSubgraph("inner", child).
		AddEdge(START, "inner").
		AddEdge("inner", END)

	compiled, err := parent.Compile()
	require.NoError(t, err)

	store := newTestStore()
	result, err := compiled.Run(testCtx(), nil,
		WithCheckpointer(store), WithThreadID("t1"))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Superstep)
	assert.Equal(t, "3", result.State.String("value"))

	// Only the parent's checkpoints exist on the thread.
	history, err := store.History("t1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

// TestSubgraph_ChildFailurePropagates tests that a child node failure
// surfaces as the adapter node's failure.
func TestSubgraph_ChildFailurePropagates(t *testing.T) {
	boom := errors.New("child broke")
	childSchema := NewSchema(Overwrite("value"))
	child := childGraph(t, childSchema, makeFailingNode(boom))

	parent := NewGraph(trackSchema()).
		AddSubgraph("inner", child).
		AddEdge(START, "inner").
		AddEdge("inner", END)

	compiled, err := parent.Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), nil)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "inner", nodeErr.NodeID)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusFailed, result.Status)
}

// TestSubgraph_RequiredChannelMissing tests that a required child channel
// with no inbound value fails before the child runs.
func TestSubgraph_RequiredChannelMissing(t *testing.T) {
	executed := false
	childSchema := NewSchema(Overwrite("value").AsRequired())
	child := childGraph(t, childSchema,
		func(ctx Context, s State) (Update, error) {
			executed = true
			return nil, nil
		},
	)

	// Parent schema does not declare "value".
	parent := NewGraph(NewSchema(Append("trail"))).
		AddSubgraph("inner", child).
		AddEdge(START, "inner").
		AddEdge("inner", END)

	compiled, err := parent.Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), nil)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "value", schemaErr.Channel)
	assert.False(t, executed)
}

// TestSubgraph_PanicsOnNilChild tests nil child rejection.
func TestSubgraph_PanicsOnNilChild(t *testing.T) {
	assert.Panics(t, func() {
		NewGraph(trackSchema()).AddSubgraph("inner", nil)
	})
}

// TestSubgraph_NestedRunLogsTagged tests that the child's run-level log
// lines carry a subgraph marker, so they stay distinguishable from the
// parent's.
func TestSubgraph_NestedRunLogsTagged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := NewContext(context.Background(), WithLogger(logger))

	child := childGraph(t, NewSchema(Overwrite("value")), passthrough)

	parent := NewGraph(NewSchema(Overwrite("value"))).
		AddSubgraph("sub", child).
		AddEdge(START, "sub").
		AddEdge("sub", END)

	compiled, err := parent.Compile()
	require.NoError(t, err)

	_, err = compiled.Run(ctx, nil)
	require.NoError(t, err)

	var parentStarts, childStarts int
	for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal(line, &rec))
		if rec["msg"] != "graph run starting" {
			continue
		}
		if rec["subgraph"] == true {
			childStarts++
		} else {
			parentStarts++
		}
	}
	assert.Equal(t, 1, parentStarts)
	assert.Equal(t, 1, childStarts)
}
