package stategraph

import (
	"github.com/randalmurphal/stategraph/pkg/stategraph/checkpoint"
	"github.com/randalmurphal/stategraph/pkg/stategraph/event"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
)

// FailurePolicy controls what happens to concurrent siblings' results when a
// node body in the frontier fails.
type FailurePolicy int

const (
	// ApplySiblings (default) merges successful siblings' updates into the
	// returned in-memory state. No checkpoint is written for the failed
	// superstep; the previous checkpoint remains the latest durable state.
	ApplySiblings FailurePolicy = iota

	// DiscardSiblings drops every update from the failed superstep.
	DiscardSiblings
)

// runConfig holds configuration for one graph invocation.
type runConfig struct {
	store          checkpoint.Store
	threadID       string
	maxSupersteps  int
	maxConcurrency int
	failurePolicy  FailurePolicy
	guard          *interruptGuard
	bus            *event.Bus

	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool
}

// defaultRunConfig returns the default execution configuration.
func defaultRunConfig() runConfig {
	return runConfig{
		maxSupersteps: 1000,
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithCheckpointer enables durable checkpointing through the given store.
// A checkpoint is written for the merged input and after every superstep.
// Without a store the run executes in memory only and cannot be resumed.
func WithCheckpointer(store checkpoint.Store) RunOption {
	return func(c *runConfig) {
		c.store = store
	}
}

// WithThreadID sets the thread identity checkpoints are filed under.
// Defaults to the context's thread ID.
func WithThreadID(id string) RunOption {
	return func(c *runConfig) {
		c.threadID = id
	}
}

// WithMaxSupersteps sets the superstep limit. Default: 1000.
//
// Cycles are legal, so this is the backstop against routers that never
// reach END.
func WithMaxSupersteps(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxSupersteps = n
		}
	}
}

// WithMaxConcurrency bounds how many frontier node bodies run at once,
// using a pooled worker per slot. 0 (default) runs the whole frontier
// concurrently.
func WithMaxConcurrency(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithInterruptBefore guards the named nodes: the run suspends before any
// superstep whose frontier contains one of them, returning a resumable
// handle. Interrupts are frontier-wide: one guarded node pauses the whole
// superstep. Requires a checkpoint store.
func WithInterruptBefore(nodes ...string) RunOption {
	return func(c *runConfig) {
		c.guard = newInterruptGuard(nodes)
	}
}

// WithFailurePolicy controls sibling handling on node failure.
// Default: ApplySiblings.
func WithFailurePolicy(p FailurePolicy) RunOption {
	return func(c *runConfig) {
		c.failurePolicy = p
	}
}

// WithEventBus streams run/superstep/node lifecycle events to the bus.
func WithEventBus(bus *event.Bus) RunOption {
	return func(c *runConfig) {
		c.bus = bus
	}
}

// WithMetrics enables OpenTelemetry metrics recording.
// Configure the global meter provider before the run.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables OpenTelemetry spans for the run, each superstep, and
// each node execution. Configure the global tracer provider before the run.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}
