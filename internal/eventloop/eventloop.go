// Package eventloop provides the non-blocking scheduling primitive the
// client orchestrator uses to delay retries without tying up a calling
// goroutine (spec.md §4.7, §4.8). It generalizes the
// start/stop/mutex/stopChan/doneChan lifecycle shape used elsewhere in this
// codebase for long-running background work into a reusable worker pool
// that runs arbitrary "after delay" callbacks.
package eventloop

import (
	"sync"
	"time"
)

// Group is a small pool of worker goroutines that execute scheduled
// callbacks. Unlike a bare time.AfterFunc per call, a Group bounds the
// number of in-flight timers' callbacks that can run concurrently and gives
// the orchestrator a single handle to shut down cleanly.
type Group struct {
	work chan func()

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// DefaultGroupSize is the worker count used when a caller doesn't override
// it via WithEventLoopGroup.
func DefaultGroupSize() int { return 4 }

// NewGroup starts size worker goroutines draining a shared work queue.
func NewGroup(size int) *Group {
	if size < 1 {
		size = 1
	}
	g := &Group{
		work:     make(chan func(), 64),
		running:  true,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	var wg sync.WaitGroup
	wg.Add(size)
	go func() {
		wg.Wait()
		close(g.doneChan)
	}()
	for i := 0; i < size; i++ {
		go g.runWorker(&wg)
	}
	return g
}

func (g *Group) runWorker(wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case fn, ok := <-g.work:
			if !ok {
				return
			}
			fn()
		case <-g.stopChan:
			return
		}
	}
}

// ScheduleAfter arranges for fn to run on a worker goroutine once delay has
// elapsed. It never blocks the caller; a timer goroutine enqueues fn onto
// the shared work channel when it fires. Calling ScheduleAfter after
// Shutdown is a no-op.
func (g *Group) ScheduleAfter(delay time.Duration, fn func()) {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	if delay <= 0 {
		select {
		case g.work <- fn:
		case <-g.stopChan:
		}
		return
	}

	timer := time.NewTimer(delay)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.C:
			select {
			case g.work <- fn:
			case <-g.stopChan:
			}
		case <-g.stopChan:
		}
	}()
}

// Shutdown stops all workers and waits for in-flight callbacks to drain.
// Safe to call more than once; subsequent calls are no-ops.
func (g *Group) Shutdown() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.running = false
	g.mu.Unlock()

	close(g.stopChan)
	<-g.doneChan
}
