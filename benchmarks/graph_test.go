package benchmarks

import (
	"testing"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
)

// noopNode does minimal work to measure framework overhead.
func noopNode(ctx stategraph.Context, s stategraph.State) (stategraph.Update, error) {
	return nil, nil
}

// BenchmarkNewGraph measures graph creation overhead.
func BenchmarkNewGraph(b *testing.B) {
	schema := stategraph.NewSchema(stategraph.Overwrite("value"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		stategraph.NewGraph(schema)
	}
}

// BenchmarkAddNode measures node addition overhead.
func BenchmarkAddNode(b *testing.B) {
	schema := stategraph.NewSchema(stategraph.Overwrite("value"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		graph := stategraph.NewGraph(schema)
		graph.AddNode("node", noopNode)
	}
}

// BenchmarkAddNode_10 measures adding 10 nodes.
func BenchmarkAddNode_10(b *testing.B) {
	schema := stategraph.NewSchema(stategraph.Overwrite("value"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		graph := stategraph.NewGraph(schema)
		for j := 0; j < 10; j++ {
			graph.AddNode(nodeID(j), noopNode)
		}
	}
}

// BenchmarkAddNode_100 measures adding 100 nodes.
func BenchmarkAddNode_100(b *testing.B) {
	schema := stategraph.NewSchema(stategraph.Overwrite("value"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		graph := stategraph.NewGraph(schema)
		for j := 0; j < 100; j++ {
			graph.AddNode(nodeID(j), noopNode)
		}
	}
}

// BenchmarkCompile_Linear_5 compiles a 5-node linear graph.
func BenchmarkCompile_Linear_5(b *testing.B) {
	graph := buildLinearGraph(5)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Compile()
	}
}

// BenchmarkCompile_Linear_10 compiles a 10-node linear graph.
func BenchmarkCompile_Linear_10(b *testing.B) {
	graph := buildLinearGraph(10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Compile()
	}
}

// BenchmarkCompile_Linear_50 compiles a 50-node linear graph.
func BenchmarkCompile_Linear_50(b *testing.B) {
	graph := buildLinearGraph(50)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Compile()
	}
}

// BenchmarkCompile_Linear_100 compiles a 100-node linear graph.
func BenchmarkCompile_Linear_100(b *testing.B) {
	graph := buildLinearGraph(100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Compile()
	}
}

// BenchmarkCompile_Branching compiles a graph with conditional edges.
func BenchmarkCompile_Branching(b *testing.B) {
	graph := buildBranchingGraph()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = graph.Compile()
	}
}

// Helper functions

func nodeID(n int) string {
	return string(rune('a'+n%26)) + string(rune('0'+n/26%10))
}

func buildLinearGraph(n int) *stategraph.Graph {
	schema := stategraph.NewSchema(stategraph.Overwrite("value"))
	graph := stategraph.NewGraph(schema)
	for i := 0; i < n; i++ {
		graph.AddNode(nodeID(i), noopNode)
	}
	graph.AddEdge(stategraph.START, nodeID(0))
	for i := 0; i < n-1; i++ {
		graph.AddEdge(nodeID(i), nodeID(i+1))
	}
	graph.AddEdge(nodeID(n-1), stategraph.END)
	return graph
}

func buildBranchingGraph() *stategraph.Graph {
	router := func(ctx stategraph.Context, s stategraph.State) string {
		if v, _ := s["value"].(int); v%2 == 0 {
			return "even"
		}
		return "odd"
	}

	schema := stategraph.NewSchema(stategraph.Overwrite("value"))
	return stategraph.NewGraph(schema).
		AddNode("split", noopNode).
		AddNode("even", noopNode).
		AddNode("odd", noopNode).
		AddNode("merge", noopNode).
		AddEdge(stategraph.START, "split").
		AddConditionalEdge("split", router, map[string]string{
			"even": "even",
			"odd":  "odd",
		}).
		AddEdge("even", "merge").
		AddEdge("odd", "merge").
		AddEdge("merge", stategraph.END)
}
