package stategraph

import (
	"errors"
	"fmt"
)

// AddSubgraph registers a compiled graph as a node of this graph. The child
// runs as an opaque unit inside one parent superstep: the parent sees a
// single node execution, not the child's internal supersteps.
//
// State crosses the boundary by channel name. On entry, channels declared by
// both schemas are projected from the parent snapshot into the child's
// initial state, replacing any child default for those channels; a channel
// the parent does not supply starts from the child's default.
// On exit the shared channels translate back as an Update shaped by the
// parent's policy: overwrite channels carry the child's final value, append
// channels carry only the items the child added, and merge-messages channels
// carry the full child list (the ID upsert makes re-merging a no-op for
// entries the parent already holds).
//
// The child runs in memory only; its supersteps are not checkpointed on the
// parent's thread. A child failure surfaces as this node's failure.
//
// Panics if the id is invalid or already registered, or child is nil.
func (g *Graph) AddSubgraph(id string, child *CompiledGraph) *Graph {
	if child == nil {
		panic(fmt.Sprintf("stategraph: subgraph %q cannot be nil", id))
	}
	adapter := newSubgraphAdapter(g.schema, child)
	return g.AddNode(id, adapter.run)
}

// subgraphAdapter translates state between a parent schema and a child
// graph across their shared channel names.
type subgraphAdapter struct {
	parent *Schema
	child  *CompiledGraph
	shared []string
}

func newSubgraphAdapter(parent *Schema, child *CompiledGraph) *subgraphAdapter {
	a := &subgraphAdapter{parent: parent, child: child}
	for _, name := range parent.Names() {
		if child.Schema().Has(name) {
			a.shared = append(a.shared, name)
		}
	}
	return a
}

// run is the NodeFunc the adapter registers on the parent graph.
func (a *subgraphAdapter) run(ctx Context, state State) (Update, error) {
	input := Update{}
	for _, name := range a.shared {
		if v, ok := state[name]; ok {
			input[name] = v
		}
	}

	if err := a.checkRequired(input); err != nil {
		return nil, err
	}

	// Parent values replace the child's defaults outright; a default only
	// fills channels the parent does not supply. Running them through the
	// child's reducers instead would stack list inputs on top of defaulted
	// items and shift the append prefixes below.
	initial := a.child.Schema().Initial()
	for name, v := range input {
		initial[name] = v
	}

	prefix := make(map[string]int, len(a.shared))
	for _, name := range a.shared {
		if ch, _ := a.parent.Channel(name); ch.Policy == PolicyAppend {
			prefix[name] = len(asList(initial[name]))
		}
	}

	childCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		childCtx = ec.withLogger(ec.Logger().With("subgraph", true))
	}

	res, err := a.child.runFromState(childCtx, initial)
	if err != nil {
		return nil, fmt.Errorf("subgraph: %w", err)
	}

	out := Update{}
	for _, name := range a.shared {
		v, ok := res.State[name]
		if !ok {
			continue
		}
		ch, _ := a.parent.Channel(name)
		switch ch.Policy {
		case PolicyAppend:
			// Only the child's additions flow back; the parent still holds
			// the prefix it passed in.
			list := asList(v)
			if n := prefix[name]; n < len(list) {
				out[name] = list[n:]
			}
		default:
			out[name] = v
		}
	}
	return out, nil
}

// checkRequired verifies every required child channel is satisfied by the
// projected input or by a child default.
func (a *subgraphAdapter) checkRequired(input Update) error {
	for _, name := range a.child.Schema().Names() {
		ch, _ := a.child.Schema().Channel(name)
		if !ch.Required || ch.Default != nil {
			continue
		}
		if v, ok := input[name]; !ok || v == nil {
			return &SchemaError{Channel: name, Op: "subgraph", Err: errors.New("required channel has no value")}
		}
	}
	return nil
}
