package claims

import (
	"context"
	"time"
)

// DefaultFollowUpDelay is the settling time given to the upstream between a
// payment or reserve change and the automatic status query.
const DefaultFollowUpDelay = 10 * time.Second

// Runtime executes the side-effecting steps of an operation and its waits.
// The local runtime runs steps inline; a durable runtime journals them.
type Runtime interface {
	Step(ctx context.Context, name string, fn func(context.Context) (Result, error)) (Result, error)
	Sleep(ctx context.Context, d time.Duration) error
}

// LocalRuntime runs steps in the calling goroutine and waits on a timer.
// Sleep returns early with the context error when ctx is cancelled.
type LocalRuntime struct{}

func (LocalRuntime) Step(ctx context.Context, _ string, fn func(context.Context) (Result, error)) (Result, error) {
	return fn(ctx)
}

func (LocalRuntime) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
