package service

import (
	"context"
	"time"

	appErr "codeval/pkg/errors"
)

// slotWait bounds how long one test execution waits for a free slot
// before the submission is rejected as overload.
const slotWait = 30 * time.Second

// SlotPool is the process-wide execution semaphore. Every spawned test
// process holds one slot, across all concurrent submissions, so total
// child processes stay bounded under load.
type SlotPool struct {
	sem chan struct{}
}

func NewSlotPool(size int) *SlotPool {
	if size <= 0 {
		size = 8
	}
	return &SlotPool{sem: make(chan struct{}, size)}
}

func (p *SlotPool) Acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(slotWait):
		return appErr.New(appErr.EvaluationQueueFull).WithMessage("execution pool is full")
	}
}

func (p *SlotPool) Release() {
	select {
	case <-p.sem:
	default:
	}
}

func (p *SlotPool) TryAcquire() bool {
	select {
	case p.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// InUse reports the number of held slots. Exposed for health output.
func (p *SlotPool) InUse() int {
	return len(p.sem)
}

// Capacity reports the pool size.
func (p *SlotPool) Capacity() int {
	return cap(p.sem)
}
