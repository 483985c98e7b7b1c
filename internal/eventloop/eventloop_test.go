package eventloop

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_ScheduleAfterRunsCallback(t *testing.T) {
	g := NewGroup(2)
	defer g.Shutdown()

	done := make(chan struct{})
	g.ScheduleAfter(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}
}

func TestGroup_ScheduleAfterZeroDelayRunsPromptly(t *testing.T) {
	g := NewGroup(2)
	defer g.Shutdown()

	done := make(chan struct{})
	g.ScheduleAfter(0, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}
}

func TestGroup_RunsManyCallbacksConcurrently(t *testing.T) {
	g := NewGroup(4)
	defer g.Shutdown()

	var count int64
	var wg sync.WaitGroup
	const n = 50
	wg.Add(n)
	for i := 0; i < n; i++ {
		g.ScheduleAfter(time.Millisecond, func() {
			atomic.AddInt64(&count, 1)
			wg.Done()
		})
	}

	waitWithTimeout(t, &wg, time.Second)
	assert.Equal(t, int64(n), atomic.LoadInt64(&count))
}

func TestGroup_ShutdownIsIdempotent(t *testing.T) {
	g := NewGroup(1)
	g.Shutdown()
	require.NotPanics(t, func() { g.Shutdown() })
}

func TestGroup_ScheduleAfterShutdownIsNoOp(t *testing.T) {
	g := NewGroup(1)
	g.Shutdown()

	ran := false
	g.ScheduleAfter(0, func() { ran = true })
	time.Sleep(20 * time.Millisecond)
	assert.False(t, ran)
}

func waitWithTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("timed out waiting for callbacks")
	}
}
