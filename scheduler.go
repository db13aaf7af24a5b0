package crdtsync

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// defaultSchedulerWorkers is available_parallelism() or 4 (spec §6).
func defaultSchedulerWorkers() int64 {
	if n := runtime.GOMAXPROCS(0); n > 0 {
		return int64(n)
	}
	return 4
}

// Scheduler is the external collaborator EventLoops run on (spec §1:
// "emits events to a Scheduler"). It serves two distinct purposes that
// must not share one gate: Go/Wait track each datatype's event loop
// goroutine for shutdown-time draining, while RunExclusive separately
// caps how many push_pull exchanges — the actual blocking network
// round-trip — run at once. An EventLoop's Run is long-lived (it idles
// between events for the datatype's whole life), so gating *that* on the
// same capacity slot as the exchange would mean one idle datatype
// permanently parks a worker, starving every datatype beyond the worker
// count (spec §5: "independent datatypes are independent").
type Scheduler struct {
	sem *semaphore.Weighted
	g   *errgroup.Group
}

// NewScheduler returns a Scheduler whose RunExclusive caps at workers
// concurrent push_pull exchanges (workers <= 0 picks
// defaultSchedulerWorkers()).
func NewScheduler(workers int64) *Scheduler {
	if workers <= 0 {
		workers = defaultSchedulerWorkers()
	}
	return &Scheduler{sem: semaphore.NewWeighted(workers), g: &errgroup.Group{}}
}

// Go runs fn under the scheduler's errgroup, so Wait can observe its
// completion. It does not bound concurrency; it is meant for a
// long-lived goroutine such as an EventLoop's Run, not for the bounded
// work RunExclusive gates.
func (s *Scheduler) Go(ctx context.Context, fn func(context.Context) error) {
	s.g.Go(func() error { return fn(ctx) })
}

// Wait blocks until every task scheduled via Go has returned.
func (s *Scheduler) Wait() error {
	return s.g.Wait()
}

// RunExclusive runs fn while holding one of the scheduler's capacity
// slots, blocking until a slot is free or ctx is done. Unlike Go, it
// runs fn synchronously in the caller's own goroutine and hands back
// its result directly, so a slot is only held for the duration of one
// blocking exchange rather than a caller's whole lifetime.
func (s *Scheduler) RunExclusive(ctx context.Context, fn func(context.Context) error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.sem.Release(1)
	return fn(ctx)
}
