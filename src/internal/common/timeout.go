package common

import (
	"context"
	"time"
)

// WithTimeout derives a context bounded by the given duration. A zero or
// negative duration leaves the parent unbounded.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, duration)
}

// CreateContext creates a background context bounded by the given duration.
func CreateContext(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}
