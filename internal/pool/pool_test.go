package pool

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestEnqueueReturnsResult(t *testing.T) {
	p := New(2)
	defer p.Close()

	fut := Enqueue(p, func() int { return 42 })
	if got := fut.Get(); got != 42 {
		t.Fatalf("Get() = %d, want 42", got)
	}
}

func TestWaitForAllTasks(t *testing.T) {
	p := New(4)
	defer p.Close()

	var done int32
	for i := 0; i < 20; i++ {
		Enqueue(p, func() int {
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&done, 1)
			return 0
		})
	}
	p.WaitForAllTasks()
	if atomic.LoadInt32(&done) != 20 {
		t.Fatalf("expected all 20 tasks to finish, got %d", done)
	}
}

func TestCloseStopsWorkers(t *testing.T) {
	p := New(2)
	Enqueue(p, func() int { return 1 }).Get()
	p.Close()
	// Close must return once every worker has exited; a second call would hang forever if workers leaked.
}

func TestSingleExecutorGuardAllowsRecursion(t *testing.T) {
	var g SingleExecutorGuard
	tok := NewToken()
	exit1 := g.Enter(true, tok)
	exit2 := g.Enter(true, tok) // same token: recursive re-entry, must not panic
	exit2()
	exit1()
}

func TestSingleExecutorGuardNoOpWhenNotDebug(t *testing.T) {
	var g SingleExecutorGuard
	exit1 := g.Enter(false, nil)
	exit2 := g.Enter(false, nil)
	exit2()
	exit1()
}

func TestSingleExecutorGuardDetectsConcurrentAccess(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on concurrent access from a different token")
		}
	}()
	var g SingleExecutorGuard
	g.Enter(true, NewToken())
	g.Enter(true, NewToken()) // different token while the first is still held: must panic
}
