package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across kgraph.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRequestID   = "request_id"
	FieldOperationID = "op_id"
	FieldSpace       = "space"

	// Components
	FieldComponent = "component"

	// Operations
	FieldOperation = "operation"
	FieldMode      = "mode"
	FieldQuery     = "query"
	FieldPath      = "path"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"
	FieldKind  = "kind"

	// Counts and sizes
	FieldCount     = "count"
	FieldAdded     = "added"
	FieldRemoved   = "removed"
	FieldBatchSize = "batch_size"
	FieldTotal     = "total"

	// Graph addressing
	FieldGraph  = "graph"
	FieldTarget = "target"
	FieldParent = "parent"
	FieldEntity = "entity"
	FieldFrame  = "frame"
)

type contextKey string

const (
	requestIDKey contextKey = "logger_request_id"
	spaceKey     contextKey = "logger_space"
)

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithSpace adds the space name to the context for logging
func WithSpace(ctx context.Context, space string) context.Context {
	return context.WithValue(ctx, spaceKey, space)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if space, ok := ctx.Value(spaceKey).(string); ok && space != "" {
		fields = append(fields, FieldSpace, space)
	}

	return fields
}

// FromContext returns base enriched with fields carried by ctx.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
