// Package observability provides structured logging, metrics, and tracing
// for stategraph runs.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// Metrics and tracing are opt-in and have no-op implementations when
// disabled.
package observability

import "log/slog"

// LogRunStart logs the start of a graph run.
func LogRunStart(logger *slog.Logger, threadID string) {
	if logger == nil {
		return
	}
	logger.Info("graph run starting",
		slog.String("thread_id", threadID),
	)
}

// LogRunComplete logs successful graph run completion.
func LogRunComplete(logger *slog.Logger, threadID string, durationMs float64, supersteps int) {
	if logger == nil {
		return
	}
	logger.Info("graph run completed",
		slog.String("thread_id", threadID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("supersteps", supersteps),
	)
}

// LogRunSuspended logs a run pausing before a guarded frontier.
func LogRunSuspended(logger *slog.Logger, threadID string, frontier []string, checkpointID string) {
	if logger == nil {
		return
	}
	logger.Info("graph run suspended",
		slog.String("thread_id", threadID),
		slog.Any("next", frontier),
		slog.String("checkpoint_id", checkpointID),
	)
}

// LogRunError logs graph run failure.
func LogRunError(logger *slog.Logger, threadID string, err error, durationMs float64, nodeID string) {
	if logger == nil {
		return
	}
	logger.Error("graph run failed",
		slog.String("thread_id", threadID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("node_id", nodeID),
	)
}

// LogSuperstepStart logs the start of a superstep with its frontier.
func LogSuperstepStart(logger *slog.Logger, superstep int, frontier []string) {
	if logger == nil {
		return
	}
	logger.Debug("superstep starting",
		slog.Int("superstep", superstep),
		slog.Any("frontier", frontier),
	)
}

// LogSuperstepComplete logs a merged-and-checkpointed superstep.
func LogSuperstepComplete(logger *slog.Logger, superstep int, durationMs float64, next []string) {
	if logger == nil {
		return
	}
	logger.Debug("superstep completed",
		slog.Int("superstep", superstep),
		slog.Float64("duration_ms", durationMs),
		slog.Any("next", next),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs node execution error.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogCheckpoint logs checkpoint creation.
func LogCheckpoint(logger *slog.Logger, checkpointID string, superstep, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("checkpoint_id", checkpointID),
		slog.Int("superstep", superstep),
		slog.Int("size_bytes", sizeBytes),
	)
}
