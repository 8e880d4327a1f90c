package stategraph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNodeError_Error tests NodeError formatting.
func TestNodeError_Error(t *testing.T) {
	err := &NodeError{
		NodeID: "process",
		Op:     "execute",
		Err:    errors.New("connection failed"),
	}

	assert.Equal(t, "node process: execute: connection failed", err.Error())
}

// TestNodeError_Error_WithCheckpoint tests the resumable form.
func TestNodeError_Error_WithCheckpoint(t *testing.T) {
	err := &NodeError{
		NodeID:       "process",
		CheckpointID: "cp-42",
		Op:           "execute",
		Err:          errors.New("connection failed"),
	}

	assert.Equal(t, "node process: execute: connection failed (last checkpoint cp-42)", err.Error())
}

// TestNodeError_Unwrap tests NodeError unwrapping.
func TestNodeError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying")
	err := &NodeError{NodeID: "test", Op: "execute", Err: underlying}

	assert.ErrorIs(t, err, underlying)
}

// TestSchemaError_Error tests SchemaError formatting and unwrapping.
func TestSchemaError_Error(t *testing.T) {
	underlying := errors.New("channel not declared")
	err := &SchemaError{Channel: "bogus", Op: "merge", Err: underlying}

	assert.Equal(t, `schema: merge channel "bogus": channel not declared`, err.Error())
	assert.ErrorIs(t, err, underlying)
}

// TestRoutingError_Error tests RoutingError formatting and unwrapping.
func TestRoutingError_Error(t *testing.T) {
	err := &RoutingError{FromNode: "review", Label: "typo", Err: ErrUnknownRouteLabel}

	assert.Equal(t, `routing from review: label "typo": router returned unmapped label`, err.Error())
	assert.ErrorIs(t, err, ErrUnknownRouteLabel)
}

// TestPanicError_Error tests PanicError formatting.
func TestPanicError_Error(t *testing.T) {
	err := &PanicError{
		NodeID: "crash",
		Value:  "unexpected nil",
		Stack:  "goroutine 1 [running]:\n...",
	}

	assert.Equal(t, "node crash panicked: unexpected nil", err.Error())
}

// TestCancellationError_Error tests cancellation formatting and unwrapping.
func TestCancellationError_Error(t *testing.T) {
	err := &CancellationError{
		Frontier: []string{"a", "b"},
		Cause:    context.Canceled,
	}

	assert.Equal(t, "cancelled before frontier [a b]: context canceled", err.Error())
	assert.ErrorIs(t, err, context.Canceled)
}

// TestMaxSuperstepsError_Error tests superstep limit formatting.
func TestMaxSuperstepsError_Error(t *testing.T) {
	err := &MaxSuperstepsError{Max: 10, Frontier: []string{"spin"}}

	assert.Equal(t, "exceeded maximum supersteps (10) at frontier [spin]", err.Error())
	assert.ErrorIs(t, err, ErrMaxSupersteps)
}

// TestCheckpointError_Error tests checkpoint error formatting and unwrapping.
func TestCheckpointError_Error(t *testing.T) {
	underlying := errors.New("disk full")
	err := &CheckpointError{ThreadID: "t1", Op: "put", Err: underlying}

	assert.Equal(t, "checkpoint put for thread t1: disk full", err.Error())
	assert.ErrorIs(t, err, underlying)
}
