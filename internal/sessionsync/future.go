package sessionsync

import (
	"context"
	"sync"
	"sync/atomic"
)

// Future is resolved exactly once, normally on the dispatcher. Every caller
// that joined the same logical operation holds the same Future, so one
// resolution broadcasts to all of them.
type Future struct {
	done chan struct{}

	mu        sync.Mutex
	resolved  bool
	callbacks []func()
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func resolvedFuture() *Future {
	f := newFuture()
	f.resolve()
	return f
}

func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future resolves. The only error is ctx.Err(); fetch
// failures are never surfaced here.
func (f *Future) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
		return nil
	default:
	}
	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Future) resolve() {
	if f == nil {
		return
	}
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return
	}
	f.resolved = true
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()
	for _, cb := range callbacks {
		cb()
	}
	close(f.done)
}

// onResolve runs fn on whichever goroutine resolves f, or immediately when f
// is already resolved.
func (f *Future) onResolve(fn func()) {
	if fn == nil {
		return
	}
	if f == nil {
		fn()
		return
	}
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		fn()
		return
	}
	f.callbacks = append(f.callbacks, fn)
	f.mu.Unlock()
}

// joinFutures resolves once every input has resolved.
func joinFutures(futures ...*Future) *Future {
	out := newFuture()
	if len(futures) == 0 {
		out.resolve()
		return out
	}
	var remaining atomic.Int32
	remaining.Store(int32(len(futures)))
	for _, f := range futures {
		f.onResolve(func() {
			if remaining.Add(-1) == 0 {
				out.resolve()
			}
		})
	}
	return out
}
