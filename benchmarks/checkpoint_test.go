package benchmarks

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// BenchmarkMemoryStore_Put measures in-memory checkpoint writes.
func BenchmarkMemoryStore_Put(b *testing.B) {
	store := checkpoint.NewMemoryStore()
	data := largeStateJSON()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cp := checkpoint.New("thread-1", "", i, data, []string{"node-1"})
		_ = store.Put(cp)
	}
}

// BenchmarkMemoryStore_Get measures in-memory checkpoint reads.
func BenchmarkMemoryStore_Get(b *testing.B) {
	store := checkpoint.NewMemoryStore()
	cp := checkpoint.New("thread-1", "", 0, largeStateJSON(), []string{"node-1"})
	_ = store.Put(cp)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Get("thread-1", cp.ID)
	}
}

// BenchmarkMemoryStore_Latest measures latest lookup in a deep thread.
func BenchmarkMemoryStore_Latest(b *testing.B) {
	store := checkpoint.NewMemoryStore()
	data := largeStateJSON()
	parent := ""
	for i := 0; i < 100; i++ {
		cp := checkpoint.New("thread-1", parent, i, data, []string{"node-1"})
		_ = store.Put(cp)
		parent = cp.ID
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Latest("thread-1")
	}
}

// BenchmarkSQLiteStore_Put measures SQLite checkpoint writes.
func BenchmarkSQLiteStore_Put(b *testing.B) {
	store, cleanup := createSQLiteStore(b)
	defer cleanup()

	data := largeStateJSON()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cp := checkpoint.New("thread-1", "", i, data, []string{"node-1"})
		_ = store.Put(cp)
	}
}

// BenchmarkSQLiteStore_Get measures SQLite checkpoint reads.
func BenchmarkSQLiteStore_Get(b *testing.B) {
	store, cleanup := createSQLiteStore(b)
	defer cleanup()

	cp := checkpoint.New("thread-1", "", 0, largeStateJSON(), []string{"node-1"})
	if err := store.Put(cp); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Get("thread-1", cp.ID)
	}
}

// BenchmarkRun_WithCheckpointing measures execution with a checkpointer attached.
func BenchmarkRun_WithCheckpointing(b *testing.B) {
	store := checkpoint.NewMemoryStore()
	compiled := mustCompile(buildLinearGraph(5))
	ctx := stategraph.NewContext(context.Background())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, stategraph.Update{"value": i},
			stategraph.WithCheckpointer(store),
			stategraph.WithThreadID("thread-"+nodeID(i)),
		)
	}
}

// BenchmarkRun_WithoutCheckpointing is the baseline without a checkpointer.
func BenchmarkRun_WithoutCheckpointing(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(5))
	ctx := stategraph.NewContext(context.Background())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, stategraph.Update{"value": i})
	}
}

// BenchmarkJSONMarshal measures state serialization overhead.
func BenchmarkJSONMarshal(b *testing.B) {
	state := largeUpdate()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = json.Marshal(state)
	}
}

// BenchmarkJSONUnmarshal measures state deserialization overhead.
func BenchmarkJSONUnmarshal(b *testing.B) {
	data := largeStateJSON()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var s stategraph.State
		_ = json.Unmarshal(data, &s)
	}
}

// Helper functions

func largeUpdate() stategraph.Update {
	return stategraph.Update{
		"value": 42,
		"results": []any{
			map[string]any{"id": "r1", "score": 0.91, "tags": []any{"a", "b"}},
			map[string]any{"id": "r2", "score": 0.44, "tags": []any{"c"}},
			map[string]any{"id": "r3", "score": 0.08, "tags": []any{}},
		},
	}
}

func largeStateJSON() []byte {
	data, err := json.Marshal(largeUpdate())
	if err != nil {
		panic(err)
	}
	return data
}

func createSQLiteStore(b *testing.B) (*checkpoint.SQLiteStore, func()) {
	b.Helper()
	tmpFile, err := os.CreateTemp("", "bench-*.db")
	if err != nil {
		b.Fatal(err)
	}
	tmpFile.Close()

	store, err := checkpoint.NewSQLiteStore(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		b.Fatal(err)
	}

	return store, func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}
}
