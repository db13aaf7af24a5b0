package crdtsync

import (
	"context"
	"log/slog"
	"sync"
)

// EventLoop drives one datatype's push/pull cycle (spec §4.7). It has two
// event paths: a guaranteed, unbounded queue (sync(), Stop) and a
// best-effort, capacity-0 channel for realtime writes, where a send that
// would block is silently dropped because a concurrent push is already in
// flight and will observe the newer write via NeedPush.
type EventLoop struct {
	wired *WiredDatatype
	log   *slog.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []loopEvent
	closed   bool
	bestEff  chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

type loopEvent interface{ isLoopEvent() }

type stopEvent struct{ ack chan struct{} }
type pushEvent struct{}

func (stopEvent) isLoopEvent() {}
func (pushEvent) isLoopEvent() {}

// NewEventLoop constructs an EventLoop for wired. If log is nil,
// slog.Default() is used (matching the ancestor App's WithLogger pattern).
func NewEventLoop(wired *WiredDatatype, log *slog.Logger) *EventLoop {
	if log == nil {
		log = slog.Default()
	}
	l := &EventLoop{
		wired:   wired,
		log:     log,
		bestEff: make(chan struct{}),
		done:    make(chan struct{}),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// loopSender adapts EventLoop's guaranteed queue to the Connectivity
// EventSender capability (spec §9: Connectivity holds only a sender, not
// the EventLoop itself).
type loopSender struct{ l *EventLoop }

func (s loopSender) Notify() { s.l.postGuaranteed(pushEvent{}) }

func (l *EventLoop) postGuaranteed(ev loopEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.queue = append(l.queue, ev)
	l.cond.Signal()
}

// PostBestEffort implements the bounded capacity-0, non-blocking send
// described in spec §4.7.
func (l *EventLoop) PostBestEffort() {
	select {
	case l.bestEff <- struct{}{}:
	default:
	}
}

func (l *EventLoop) popGuaranteed() (loopEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(l.queue) == 0 && !l.closed {
		l.cond.Wait()
	}
	if len(l.queue) == 0 {
		return nil, false
	}
	ev := l.queue[0]
	l.queue = l.queue[1:]
	return ev, true
}

// Run registers the datatype with Connectivity and drives the loop until
// Stop is processed. It is meant to be called on a Scheduler goroutine.
func (l *EventLoop) Run(ctx context.Context) error {
	if err := l.wired.connectivity.Register(ctx, l.wired, loopSender{l}); err != nil {
		l.log.Error("crdtsync: register failed", "error", err)
	}

	// A background goroutine folds both event paths into the guaranteed
	// queue so the main loop has one place to read decisions from, while
	// still honoring best-effort's drop-on-full semantics.
	relay := make(chan struct{})
	go func() {
		defer close(relay)
		for {
			select {
			case _, ok := <-l.bestEff:
				if !ok {
					return
				}
				l.postGuaranteed(pushEvent{})
			case <-l.done:
				return
			}
		}
	}()

	for {
		if err := l.wired.PushIfNeeded(ctx); err != nil {
			l.log.Warn("crdtsync: push_if_needed failed", "error", err)
		}
		ev, ok := l.popGuaranteed()
		if !ok {
			<-relay
			return nil
		}
		switch e := ev.(type) {
		case stopEvent:
			l.mu.Lock()
			l.closed = true
			l.mu.Unlock()
			close(l.done)
			<-relay
			close(e.ack)
			return nil
		case pushEvent:
			if err := l.wired.PushPull(ctx); err != nil {
				l.log.Warn("crdtsync: push_pull failed", "error", err)
			}
		case syncEvent:
			err := l.wired.PushPull(e.ctx)
			e.done <- err
		}
	}
}

// Sync posts a guaranteed PushTransaction event and blocks until the
// round it triggered has completed (spec §4.7: "effectively a round-trip
// primitive").
func (l *EventLoop) Sync(ctx context.Context) error {
	done := make(chan error, 1)
	l.postGuaranteed(syncEvent{ctx: ctx, done: done})
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type syncEvent struct {
	ctx  context.Context
	done chan error
}

func (syncEvent) isLoopEvent() {}

// Stop drains pending work and acknowledges once the loop has exited.
func (l *EventLoop) Stop(ctx context.Context) error {
	ack := make(chan struct{})
	l.postGuaranteed(stopEvent{ack: ack})
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
