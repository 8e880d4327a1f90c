package stategraph

import (
	"context"
	"sync"

	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
)

// Shared schemas and helper nodes used across tests.

// counterSchema has a single overwrite counter channel.
func counterSchema() *Schema {
	return NewSchema(Overwrite("count"))
}

// trackSchema covers the common test shapes: an overwrite scalar, an append
// trail, and a boolean flag for routers.
func trackSchema() *Schema {
	return NewSchema(
		Overwrite("value"),
		Append("trail"),
		Overwrite("flag"),
	)
}

// increment bumps the counter by one.
func increment(ctx Context, s State) (Update, error) {
	return Update{"count": s.Int("count") + 1}, nil
}

// passthrough returns no update.
func passthrough(ctx Context, s State) (Update, error) {
	return nil, nil
}

// tracker records node executions in a goroutine-safe order log.
type tracker struct {
	mu    sync.Mutex
	order []string
}

func (t *tracker) record(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.order = append(t.order, name)
}

func (t *tracker) executions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.order...)
}

// makeTrackingNode records its execution and appends its name to the trail
// channel.
func makeTrackingNode(name string, tr *tracker) NodeFunc {
	return func(ctx Context, s State) (Update, error) {
		tr.record(name)
		return Update{"trail": name}, nil
	}
}

// makeFailingNode returns the given error.
func makeFailingNode(err error) NodeFunc {
	return func(ctx Context, s State) (Update, error) {
		return nil, err
	}
}

// makePanicNode panics with the given value.
func makePanicNode(value any) NodeFunc {
	return func(ctx Context, s State) (Update, error) {
		panic(value)
	}
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}

// newTestStore creates an in-memory checkpoint store.
func newTestStore() *checkpoint.MemoryStore {
	return checkpoint.NewMemoryStore()
}
