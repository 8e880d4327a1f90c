package stategraph

import (
	"errors"
	"fmt"
	"sort"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined.
//
// Validation checks (in order):
//  1. START must have at least one outgoing edge
//  2. All edge sources must be START or existing nodes
//  3. All static edge targets must be existing nodes or END
//  4. All conditional target mappings must point at existing nodes or END
//  5. Every node must be reachable from START
//  6. A path from START to END must exist
//
// Cycles are permitted; termination is the responsibility of routing logic
// (e.g. a loop-counter channel checked by a router).
func (g *Graph) Compile() (*CompiledGraph, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	// 1. START must lead somewhere
	if len(g.edges[START]) == 0 {
		errs = append(errs, ErrNoStartEdge)
	}

	// 2 & 3. Validate static edge references
	for from, targets := range g.edges {
		if from != START && !g.nodes.Has(from) {
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		for _, to := range targets {
			if to != END && !g.nodes.Has(to) {
				errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
			}
		}
	}

	// 4. Validate conditional edges and their mappings
	for from, edge := range g.conditional {
		if !g.nodes.Has(from) {
			errs = append(errs, fmt.Errorf("%w: conditional edge source '%s' does not exist", ErrNodeNotFound, from))
		}
		for label, target := range edge.targets {
			if target != END && !g.nodes.Has(target) {
				errs = append(errs, fmt.Errorf("%w: conditional target '%s' (label %q from '%s') does not exist",
					ErrNodeNotFound, target, label, from))
			}
		}
	}

	// 5. Every node must be reachable from START
	reachable := g.findReachable()
	for _, id := range g.nodes.Keys() {
		if !reachable[id] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnreachableNode, id))
		}
	}

	// 6. A path to END must exist
	if len(g.edges[START]) > 0 && !g.hasPathToEnd() {
		errs = append(errs, ErrNoPathToEnd)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.build(), nil
}

// findReachable returns the set of nodes reachable from START, following
// static edges and every declared conditional target.
func (g *Graph) findReachable() map[string]bool {
	reachable := make(map[string]bool)
	queue := append([]string(nil), g.edges[START]...)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == END || reachable[current] {
			continue
		}
		reachable[current] = true

		if edge, ok := g.conditional[current]; ok {
			for _, target := range edge.targets {
				if target != END && !reachable[target] {
					queue = append(queue, target)
				}
			}
			continue
		}
		for _, target := range g.edges[current] {
			if target != END && !reachable[target] {
				queue = append(queue, target)
			}
		}
	}

	return reachable
}

// hasPathToEnd checks that some execution path reaches END, using reverse
// propagation over static edges and conditional target mappings.
func (g *Graph) hasPathToEnd() bool {
	canReachEnd := map[string]bool{END: true}

	changed := true
	for changed {
		changed = false

		for from, targets := range g.edges {
			if canReachEnd[from] {
				continue
			}
			if _, hasConditional := g.conditional[from]; hasConditional {
				continue
			}
			for _, to := range targets {
				if canReachEnd[to] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}

		for from, edge := range g.conditional {
			if canReachEnd[from] {
				continue
			}
			for _, target := range edge.targets {
				if canReachEnd[target] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}
	}

	for _, entry := range g.edges[START] {
		if canReachEnd[entry] {
			return true
		}
	}
	return false
}

// build creates the immutable CompiledGraph from the builder state.
func (g *Graph) build() *CompiledGraph {
	nodes := make(map[string]NodeFunc, g.nodes.Len())
	g.nodes.Range(func(id string, fn NodeFunc) bool {
		nodes[id] = fn
		return true
	})

	edges := make(map[string][]string, len(g.edges))
	for from, targets := range g.edges {
		edges[from] = append([]string(nil), targets...)
	}

	conditional := make(map[string]conditionalEdge, len(g.conditional))
	for from, edge := range g.conditional {
		targets := make(map[string]string, len(edge.targets))
		for label, target := range edge.targets {
			targets[label] = target
		}
		conditional[from] = conditionalEdge{router: edge.router, targets: targets}
	}

	entry := dedupeSorted(edges[START])

	return &CompiledGraph{
		schema:      g.schema,
		nodes:       nodes,
		edges:       edges,
		conditional: conditional,
		entry:       entry,
	}
}

// dedupeSorted returns the unique values of names in lexical order.
func dedupeSorted(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
