package managed

import (
	"context"
	"sync"
	"time"
)

// worker is a ticker-driven periodic task with an idempotent stop,
// grounded directly on the teacher's pkg/compliance/regwatch/swarm.go
// Start/Stop/pollLoop idiom: a mutex-guarded running flag, a stopCh
// closed once on Stop, and a first tick fired before the ticker ever
// fires (spec.md §4.9: "the first tick fires immediately on start").
type worker struct {
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	interval time.Duration
	tick     func(ctx context.Context)

	inFlight sync.Mutex // single-flight guard; held for the duration of one tick
}

func newWorker(interval time.Duration, tick func(ctx context.Context)) *worker {
	return &worker{interval: interval, tick: tick}
}

// Start begins the poll loop. Starting an already-running worker is a
// no-op, matching Swarm.Start's "already running" guard.
func (w *worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	go w.pollLoop(ctx)
}

// Stop cancels the timer. Idempotent: stopping a worker that is not
// running, or stopping it twice, does nothing (spec.md §5).
func (w *worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.stopCh)
	w.running = false
}

func (w *worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runTick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.runTick(ctx)
		}
	}
}

// runTick drops the tick entirely if a prior one is still in flight
// (spec.md §5: "config watcher drops in-flight overlapping polls
// (single-flight)"; applied uniformly to every worker here since none
// of them should pile up concurrent runs either).
func (w *worker) runTick(ctx context.Context) {
	if !w.inFlight.TryLock() {
		return
	}
	defer w.inFlight.Unlock()
	w.tick(ctx)
}
