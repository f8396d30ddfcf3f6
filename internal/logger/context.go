package logger

import (
	"context"

	"github.com/google/uuid"
)

// WithRequestID adds a bridge request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// WithConnectionID adds a bridge connection ID to the context.
func WithConnectionID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, ContextKeyConnectionID, connID)
}

// GenerateID generates a new random identifier.
func GenerateID() string {
	return uuid.New().String()
}
