package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var ErrTaskSkipped = errors.New("task skipped")

// Task is a best-effort side call running in the background. Its failure
// never affects the operation that started it; callers that care can Wait.
type Task struct {
	name    string
	done    chan struct{}
	err     error
	skipped bool
}

// StartTask runs fn in its own goroutine. fn gets a context that survives the
// cancellation of ctx, so a finished HTTP request does not abort it.
func StartTask(ctx context.Context, logger *zap.Logger, name string, fn func(ctx context.Context) error) *Task {
	t := &Task{name: name, done: make(chan struct{})}
	bg := context.WithoutCancel(ctx)

	go func() {
		defer close(t.done)
		t.err = fn(bg)
		if t.err != nil {
			logger.Warn("background call failed", zap.String("task", name), zap.Error(t.err))
		}
	}()
	return t
}

// SkippedTask is a task that never ran, e.g. because no user is known.
func SkippedTask(name string) *Task {
	t := &Task{name: name, done: make(chan struct{}), skipped: true}
	close(t.done)
	return t
}

func (t *Task) Name() string {
	return t.name
}

func (t *Task) Skipped() bool {
	return t.skipped
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done. A skipped task reports
// ErrTaskSkipped.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		if t.skipped {
			return ErrTaskSkipped
		}
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
