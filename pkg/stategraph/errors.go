// Package stategraph provides a channel-based graph orchestration engine
// for LLM workflows.
package stategraph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for graph building and compilation.
var (
	// ErrNoStartEdge indicates no edge leaves the START marker.
	ErrNoStartEdge = errors.New("no edge from START")

	// ErrNodeNotFound indicates an edge or mapping references a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrUnreachableNode indicates a node cannot be reached from START.
	ErrUnreachableNode = errors.New("node unreachable from START")

	// ErrNoPathToEnd indicates no path exists from START to END.
	ErrNoPathToEnd = errors.New("no path to END from START")
)

// Sentinel errors for execution.
var (
	// ErrMaxSupersteps indicates the superstep loop exceeded the configured limit.
	ErrMaxSupersteps = errors.New("exceeded maximum supersteps")

	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrUnknownRouteLabel indicates a router returned a label absent from its
	// target mapping.
	ErrUnknownRouteLabel = errors.New("router returned unmapped label")
)

// Sentinel errors for checkpointing and resume.
var (
	// ErrNoCheckpoints indicates no checkpoints exist for the thread.
	ErrNoCheckpoints = errors.New("no checkpoints found for thread")

	// ErrCheckpointerRequired indicates interrupts were configured without a
	// checkpoint store: a suspension without a durable checkpoint cannot be
	// resumed.
	ErrCheckpointerRequired = errors.New("checkpoint store required")

	// ErrInvalidResumeNode indicates a checkpointed frontier names a node
	// that does not exist in the graph.
	ErrInvalidResumeNode = errors.New("invalid resume node")

	// ErrSerializeState indicates state serialization failed.
	ErrSerializeState = errors.New("failed to serialize state")

	// ErrDeserializeState indicates state deserialization failed.
	ErrDeserializeState = errors.New("failed to deserialize state")

	// ErrCheckpointVersionMismatch indicates the checkpoint format version is
	// incompatible.
	ErrCheckpointVersionMismatch = errors.New("checkpoint version mismatch")
)

// SchemaError reports a write to a channel the graph's schema does not
// declare, or a value the channel's reducer cannot combine. It aborts the
// current superstep; state from before the superstep is preserved.
type SchemaError struct {
	// Channel is the offending channel name.
	Channel string
	// Op is the operation that failed ("merge", "translate", "default").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s channel %q: %v", e.Op, e.Channel, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SchemaError) Unwrap() error {
	return e.Err
}

// NodeError wraps a node body failure with execution context.
// CheckpointID names the last durable checkpoint, so the caller can resume
// from the failed superstep's frontier after fixing the cause.
type NodeError struct {
	// NodeID is the identifier of the node that failed.
	NodeID string
	// CheckpointID is the last checkpoint committed before the failure.
	CheckpointID string
	// Op is the operation that failed (e.g., "execute").
	Op string
	// Err is the underlying error from the node body.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.CheckpointID != "" {
		return fmt.Sprintf("node %s: %s: %v (last checkpoint %s)", e.NodeID, e.Op, e.Err, e.CheckpointID)
	}
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// RoutingError reports a conditional edge whose router returned a label
// absent from its declared target mapping. Silently defaulting could
// mis-route execution, so this is always fatal.
type RoutingError struct {
	// FromNode is the node with the conditional edge.
	FromNode string
	// Label is the value the router returned.
	Label string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *RoutingError) Error() string {
	return fmt.Sprintf("routing from %s: label %q: %v", e.FromNode, e.Label, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RoutingError) Unwrap() error {
	return e.Err
}

// PanicError captures panic information from node execution.
type PanicError struct {
	// NodeID is the identifier of the node that panicked.
	NodeID string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// CancellationError captures the frontier that was about to execute when the
// context was cancelled.
type CancellationError struct {
	// Frontier is the set of node names scheduled for the interrupted superstep.
	Frontier []string
	// Cause is the underlying cancellation cause.
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before frontier [%s]: %v", strings.Join(e.Frontier, " "), e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// MaxSuperstepsError provides context when the superstep limit is exceeded.
// Cycle termination is node/router responsibility; the limit is a backstop.
type MaxSuperstepsError struct {
	// Max is the configured superstep limit.
	Max int
	// Frontier is the frontier that would have executed next.
	Frontier []string
}

// Error implements the error interface.
func (e *MaxSuperstepsError) Error() string {
	return fmt.Sprintf("exceeded maximum supersteps (%d) at frontier [%s]", e.Max, strings.Join(e.Frontier, " "))
}

// Unwrap returns ErrMaxSupersteps for errors.Is support.
func (e *MaxSuperstepsError) Unwrap() error {
	return ErrMaxSupersteps
}

// CheckpointError wraps errors from checkpoint persistence during a run.
type CheckpointError struct {
	// ThreadID is the thread whose checkpoint failed.
	ThreadID string
	// Op is the operation that failed ("serialize", "put").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s for thread %s: %v", e.Op, e.ThreadID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}
