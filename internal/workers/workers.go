package workers

import (
	"context"
	"os"
	"runtime"
	"strconv"

	"glitzhit/internal/metrics"
)

// Count returns the number of workers for a task type, respecting container
// CPU limits via GOMAXPROCS.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 1.5 for mixed tasks
//
// A positive integer in envVar overrides the computed count. The limit caps
// the result; use 0 for no limit.
func Count(envVar string, multiplier float64, limit int) int {
	if envVar != "" {
		if override := os.Getenv(envVar); override != "" {
			if count, err := strconv.Atoi(override); err == nil && count > 0 {
				if limit > 0 && count > limit {
					return limit
				}
				return count
			}
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}
	return workers
}

// ForCPU returns the worker count for CPU-bound tasks (1 per CPU).
func ForCPU(envVar string, limit int) int {
	return Count(envVar, 1.0, limit)
}

// ForMixed returns the worker count for mixed tasks (1.5 per CPU).
func ForMixed(envVar string, limit int) int {
	return Count(envVar, 1.5, limit)
}

// Pool bounds how many requests run a CPU-heavy step at once.
type Pool struct {
	name  string
	slots chan struct{}
}

// NewPool creates a pool with size slots. A size below 1 is treated as 1.
func NewPool(name string, size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{name: name, slots: make(chan struct{}, size)}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return cap(p.slots)
}

// InUse returns the number of slots currently held.
func (p *Pool) InUse() int {
	return len(p.slots)
}

// Acquire waits for a free slot or for ctx to end.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		metrics.WorkerSlotsInUse.WithLabelValues(p.name).Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a slot only if one is free.
func (p *Pool) TryAcquire() bool {
	select {
	case p.slots <- struct{}{}:
		metrics.WorkerSlotsInUse.WithLabelValues(p.name).Inc()
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (p *Pool) Release() {
	select {
	case <-p.slots:
		metrics.WorkerSlotsInUse.WithLabelValues(p.name).Dec()
	default:
		panic("workers: Release without Acquire")
	}
}
