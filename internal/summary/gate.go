package summary

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxGPUConcurrency is how many generation calls may run at once when
// no limit is configured.
const DefaultMaxGPUConcurrency = 2

// Gate bounds concurrent GPU-bound generation work process-wide. Every code
// path that touches the model goes through Do, so the device never sees more
// than the configured number of simultaneous decodes.
type Gate struct {
	sem *semaphore.Weighted
}

func NewGate(maxConcurrency int) *Gate {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxGPUConcurrency
	}
	return &Gate{sem: semaphore.NewWeighted(int64(maxConcurrency))}
}

func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)
	return fn(ctx)
}
