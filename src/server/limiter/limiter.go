package limiter

import (
	"context"
	"time"

	"graph-context/src/internal/common"
)

// Limiter gates all language-server calls behind a bounded admission count
// and a per-call timeout. It keeps a burst of recursive expansion from
// overwhelming, or stalling on, the external server.
//
// Timeout is not a fatal condition: a call still outstanding when its
// timeout fires is abandoned and reported as "no result", and the rest of
// the traversal proceeds.
type Limiter struct {
	slots   chan struct{}
	timeout time.Duration
}

// New creates a limiter admitting at most limit concurrent operations, each
// bounded by callTimeout.
func New(limit int, callTimeout time.Duration) *Limiter {
	if limit <= 0 {
		limit = 1
	}
	return &Limiter{
		slots:   make(chan struct{}, limit),
		timeout: callTimeout,
	}
}

// result carries one operation's outcome across the collection channel.
type result[T any] struct {
	value T
	err   error
}

// Run executes op through the limiter. It blocks until a slot is free, runs
// op with a context bounded by the per-call timeout, and returns the value
// with ok=true on success. Timeout, cancellation and operation errors all
// return the zero value with ok=false; callers treat every one of those as
// "no result found".
//
// The operation receives the bounded context and is expected to honor it. A
// misbehaving operation that ignores cancellation keeps running in the
// background but its slot is released once it returns, so it never wedges
// the limiter indefinitely.
func Run[T any](ctx context.Context, l *Limiter, op func(context.Context) (T, error)) (T, bool) {
	var zero T

	// Admission. Stop queuing new work as soon as the caller cancels.
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return zero, false
	}

	callCtx, cancel := common.WithTimeout(ctx, l.timeout)

	resultCh := make(chan result[T], 1)
	go func() {
		defer func() { <-l.slots }()
		defer cancel()
		value, err := op(callCtx)
		resultCh <- result[T]{value: value, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			common.GraphLogger.Debug("limited operation failed: %v", res.err)
			return zero, false
		}
		return res.value, true
	case <-callCtx.Done():
		common.GraphLogger.Debug("limited operation abandoned: %v", callCtx.Err())
		return zero, false
	}
}
