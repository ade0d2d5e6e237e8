package sessionsync

import (
	"sync"
	"testing"
	"time"
)

func TestLoopRunsInPostingOrder(t *testing.T) {
	loop := NewLoop()
	loop.Start()

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		if !loop.Post(func() { got = append(got, i) }) {
			t.Fatalf("post %d rejected", i)
		}
	}
	loop.Close()

	if len(got) != 100 {
		t.Fatalf("expected 100 closures to run, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("closure %d ran at position %d", v, i)
		}
	}
}

func TestLoopPostFromInsideClosure(t *testing.T) {
	loop := NewLoop()
	loop.Start()
	defer loop.Close()

	done := make(chan struct{})
	loop.Post(func() {
		loop.Post(func() { close(done) })
	})
	select {
	case <-done:
	case <-time.After(testTimeout):
		t.Fatalf("nested post never ran")
	}
}

func TestLoopRejectsPostAfterClose(t *testing.T) {
	loop := NewLoop()
	loop.Start()
	loop.Close()
	if loop.Post(func() {}) {
		t.Fatalf("expected post after close to be rejected")
	}
	loop.Close()
}

func TestLoopCloseWithoutStart(t *testing.T) {
	loop := NewLoop()
	loop.Close()
	if loop.Post(func() {}) {
		t.Fatalf("expected closed loop to reject work")
	}
}

func TestLoopExecutorReceivesClosures(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	loop := NewLoopWithExecutor(func(fn func()) {
		mu.Lock()
		count++
		mu.Unlock()
		fn()
	})
	loop.Start()

	ran := 0
	loop.Post(func() { ran++ })
	loop.Post(func() { ran++ })
	loop.Close()

	mu.Lock()
	defer mu.Unlock()
	if count != 2 || ran != 2 {
		t.Fatalf("expected executor to run both closures, count=%d ran=%d", count, ran)
	}
}
