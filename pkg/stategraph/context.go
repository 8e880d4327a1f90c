package stategraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/randalmurphal/stategraph/pkg/stategraph/config"
)

// Context provides execution context to node bodies and routers.
// It extends context.Context with engine services and metadata.
//
// Context is immutable after creation. The executor derives a context per
// node with the node ID set and the logger enriched.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with thread and node
	// context. Never returns nil; defaults to slog.Default().
	Logger() *slog.Logger

	// Config returns caller-supplied run configuration (model selection,
	// prompt variants, ...). Read-only and opaque to the executor except
	// for pass-through.
	Config() config.Config

	// ThreadID returns the logical run/conversation identity.
	// Auto-generated if not configured.
	ThreadID() string

	// NodeID returns the node currently executing, or "" outside a node.
	NodeID() string

	// Superstep returns the superstep the current node belongs to.
	Superstep() int
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger    *slog.Logger
	cfg       config.Config
	threadID  string
	nodeID    string
	superstep int
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// Config returns the run configuration.
func (c *executionContext) Config() config.Config {
	return c.cfg
}

// ThreadID returns the thread identifier.
func (c *executionContext) ThreadID() string {
	return c.threadID
}

// NodeID returns the current node identifier.
func (c *executionContext) NodeID() string {
	return c.nodeID
}

// Superstep returns the current superstep number.
func (c *executionContext) Superstep() int {
	return c.superstep
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context. The executor enriches it with
// thread_id and node_id during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		c.logger = logger
	}
}

// WithConfig sets the read-only run configuration passed through to nodes.
func WithConfig(cfg config.Config) ContextOption {
	return func(c *executionContext) {
		c.cfg = cfg
	}
}

// WithContextThreadID sets the thread identifier on the context. For
// checkpointing, prefer WithThreadID as a RunOption; the run option wins
// when both are set.
func WithContextThreadID(id string) ContextOption {
	return func(c *executionContext) {
		c.threadID = id
	}
}

// NewContext creates an execution context from a standard context.
//
// Example:
//
//	ctx := stategraph.NewContext(context.Background(),
//	    stategraph.WithLogger(logger),
//	    stategraph.WithContextThreadID("user-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context:  ctx,
		logger:   slog.Default(),
		cfg:      config.New(nil),
		threadID: uuid.NewString(),
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// withNode returns a derived context for one node execution.
func (c *executionContext) withNode(nodeID string, superstep int) *executionContext {
	return &executionContext{
		Context:   c.Context,
		logger:    c.logger.With("thread_id", c.threadID, "node_id", nodeID, "superstep", superstep),
		cfg:       c.cfg,
		threadID:  c.threadID,
		nodeID:    nodeID,
		superstep: superstep,
	}
}

// withLogger returns a derived context with the logger replaced.
func (c *executionContext) withLogger(logger *slog.Logger) *executionContext {
	return &executionContext{
		Context:   c.Context,
		logger:    logger,
		cfg:       c.cfg,
		threadID:  c.threadID,
		nodeID:    c.nodeID,
		superstep: c.superstep,
	}
}

// withThread returns a derived context with the thread ID overridden.
func (c *executionContext) withThread(threadID string) *executionContext {
	if threadID == "" || threadID == c.threadID {
		return c
	}
	return &executionContext{
		Context:  c.Context,
		logger:   c.logger,
		cfg:      c.cfg,
		threadID: threadID,
	}
}
