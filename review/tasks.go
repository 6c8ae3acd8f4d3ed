package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Tasks runs work that must finish after the interaction has been answered.
// Task contexts outlive the request context so the platform closing the
// request does not cancel pending storage work.
type Tasks struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
	group  errgroup.Group

	mu       sync.Mutex
	failures []error
}

func NewTasks(parent context.Context, timeout time.Duration, log *zap.Logger) *Tasks {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), timeout)
	return &Tasks{ctx: ctx, cancel: cancel, log: log}
}

// Go schedules fn. Failures are logged and never reach the caller of the interaction.
func (t *Tasks) Go(name string, fn func(ctx context.Context) error) {
	t.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
			if err != nil {
				t.log.Warn("deferred task failed", zap.String("task", name), zap.Error(err))
				t.mu.Lock()
				t.failures = append(t.failures, fmt.Errorf("%s: %w", name, err))
				t.mu.Unlock()
			}
		}()
		return fn(t.ctx)
	})
}

// Wait blocks until every scheduled task finished and returns their failures.
func (t *Tasks) Wait() []error {
	_ = t.group.Wait()
	t.cancel()
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]error(nil), t.failures...)
}
