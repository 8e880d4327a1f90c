package stategraph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/randalmurphal/stategraph/pkg/stategraph/registry"
)

// Graph is a mutable builder for execution graphs. Use NewGraph with a
// channel schema, then chain AddNode, AddEdge, AddConditionalEdge, and
// AddSubgraph calls to define the workflow.
//
// Graph is NOT thread-safe during building. Construct it from a single
// goroutine, then call Compile() to create an immutable CompiledGraph that
// can be shared freely.
//
// Example:
//
//	graph := stategraph.NewGraph(stategraph.NewSchema(
//	    stategraph.Overwrite("query"),
//	    stategraph.Append("results"),
//	)).
//	    AddNode("search", search).
//	    AddNode("summarize", summarize).
//	    AddEdge(stategraph.START, "search").
//	    AddEdge("search", "summarize").
//	    AddEdge("summarize", stategraph.END)
//
//	compiled, err := graph.Compile()
type Graph struct {
	mu          sync.RWMutex
	schema      *Schema
	nodes       *registry.Registry[string, NodeFunc]
	edges       map[string][]string
	conditional map[string]conditionalEdge
}

// conditionalEdge pairs a router with its declared label -> target mapping.
type conditionalEdge struct {
	router  RouterFunc
	targets map[string]string
}

// NewGraph creates a graph builder over the given channel schema.
// Panics if schema is nil.
func NewGraph(schema *Schema) *Graph {
	if schema == nil {
		panic("stategraph: schema cannot be nil")
	}
	return &Graph{
		schema:      schema,
		nodes:       registry.New[string, NodeFunc](),
		edges:       make(map[string][]string),
		conditional: make(map[string]conditionalEdge),
	}
}

// Schema returns the graph's channel schema.
func (g *Graph) Schema() *Schema {
	return g.schema
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is a reserved marker (START/END, case-insensitive)
//   - id contains whitespace
//   - fn is nil
//   - id already exists in the graph
func (g *Graph) AddNode(id string, fn NodeFunc) *Graph {
	if id == "" {
		panic("stategraph: node ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "start" || idLower == START || idLower == "end" || idLower == END {
		panic("stategraph: node ID cannot be a reserved marker")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("stategraph: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("stategraph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.nodes.Has(id) {
		panic(fmt.Sprintf("stategraph: duplicate node ID: %s", id))
	}

	g.nodes.Register(id, fn)
	return g
}

// AddEdge adds a static edge. The source can be stategraph.START and the
// target can be stategraph.END. Multiple edges from one source fan out: all
// targets join the next frontier together.
// Returns the graph for method chaining.
//
// Edge validation happens at Compile() time, not here, so edges may be
// added in any order.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge adds a conditional edge: after the source node runs,
// the router inspects the merged state and returns a label, which is
// resolved to a node through the targets mapping. Mapping values may be
// stategraph.END. A label the mapping doesn't declare is a RoutingError at
// runtime; a mapping target that doesn't exist is a compile error.
// Returns the graph for method chaining.
//
// A node has either static edges or a conditional edge, not both; the
// conditional edge takes precedence if both are present.
func (g *Graph) AddConditionalEdge(from string, router RouterFunc, targets map[string]string) *Graph {
	if router == nil {
		panic("stategraph: router function cannot be nil")
	}
	if len(targets) == 0 {
		panic("stategraph: conditional edge needs a target mapping")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	mapped := make(map[string]string, len(targets))
	for label, target := range targets {
		mapped[label] = target
	}
	g.conditional[from] = conditionalEdge{router: router, targets: mapped}
	return g
}
