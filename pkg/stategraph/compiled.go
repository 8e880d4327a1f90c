package stategraph

// CompiledGraph is an immutable, executable graph created by Compile().
//
// CompiledGraph is safe for concurrent use: multiple runs on different
// threads may share one instance. The structure cannot be modified after
// compilation.
type CompiledGraph struct {
	schema      *Schema
	nodes       map[string]NodeFunc
	edges       map[string][]string
	conditional map[string]conditionalEdge
	entry       []string
}

// Schema returns the graph's channel schema.
func (cg *CompiledGraph) Schema() *Schema {
	return cg.schema
}

// Entry returns the initial frontier: the targets of START's edges,
// deduplicated, in lexical order.
func (cg *CompiledGraph) Entry() []string {
	out := make([]string, len(cg.entry))
	copy(out, cg.entry)
	return out
}

// NodeIDs returns all node identifiers in the graph.
// The order is not guaranteed.
func (cg *CompiledGraph) NodeIDs() []string {
	ids := make([]string, 0, len(cg.nodes))
	for id := range cg.nodes {
		ids = append(ids, id)
	}
	return ids
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successors returns the static edge targets of the given node.
// Does not include conditional targets (those are runtime-determined).
func (cg *CompiledGraph) Successors(id string) []string {
	if id == END {
		return nil
	}
	targets := cg.edges[id]
	if targets == nil {
		return nil
	}
	out := make([]string, len(targets))
	copy(out, targets)
	return out
}

// IsConditional returns true if the node routes through a conditional edge.
func (cg *CompiledGraph) IsConditional(id string) bool {
	_, exists := cg.conditional[id]
	return exists
}

// ConditionalTargets returns the declared label -> target mapping for a
// node's conditional edge, or nil if the node has none.
func (cg *CompiledGraph) ConditionalTargets(id string) map[string]string {
	edge, exists := cg.conditional[id]
	if !exists {
		return nil
	}
	out := make(map[string]string, len(edge.targets))
	for label, target := range edge.targets {
		out[label] = target
	}
	return out
}

// getNode returns the node function for the given ID.
// Used internally by the executor.
func (cg *CompiledGraph) getNode(id string) (NodeFunc, bool) {
	fn, exists := cg.nodes[id]
	return fn, exists
}

// getConditional returns the conditional edge for the given node.
// Used internally by the executor.
func (cg *CompiledGraph) getConditional(id string) (conditionalEdge, bool) {
	edge, exists := cg.conditional[id]
	return edge, exists
}
