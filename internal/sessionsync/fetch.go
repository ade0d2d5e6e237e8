package sessionsync

import (
	"context"
	"errors"
	"sync"
)

// fetcher starts gateway calls off the dispatcher and posts their results
// back. wait returns once every started call has posted.
//
// When the dispatcher refuses a result, every tracked future is resolved
// without applying anything, since no completion can run any more.
type fetcher struct {
	ctx        context.Context
	dispatcher Dispatcher

	mu        sync.Mutex
	idle      *sync.Cond
	running   int
	pending   map[*Future]struct{}
	abandoned bool
}

func newFetcher(ctx context.Context, dispatcher Dispatcher) *fetcher {
	f := &fetcher{ctx: ctx, dispatcher: dispatcher, pending: map[*Future]struct{}{}}
	f.idle = sync.NewCond(&f.mu)
	return f
}

// track registers fut as waiting on a fetch result and returns it.
func (f *fetcher) track(fut *Future) *Future {
	f.mu.Lock()
	if f.abandoned {
		f.mu.Unlock()
		fut.resolve()
		return fut
	}
	f.pending[fut] = struct{}{}
	f.mu.Unlock()
	fut.onResolve(func() {
		f.mu.Lock()
		delete(f.pending, fut)
		f.mu.Unlock()
	})
	return fut
}

func (f *fetcher) abandon() {
	f.mu.Lock()
	f.abandoned = true
	futures := make([]*Future, 0, len(f.pending))
	for fut := range f.pending {
		futures = append(futures, fut)
	}
	clear(f.pending)
	f.mu.Unlock()
	for _, fut := range futures {
		fut.resolve()
	}
}

func (f *fetcher) stopped() bool {
	return f.ctx.Err() != nil
}

// run calls work on a new goroutine, then posts complete to the dispatcher.
func (f *fetcher) run(work func(ctx context.Context), complete func()) {
	f.mu.Lock()
	f.running++
	f.mu.Unlock()
	go func() {
		defer f.finish()
		work(f.ctx)
		if !f.dispatcher.Post(complete) {
			f.abandon()
		}
	}()
}

func (f *fetcher) finish() {
	f.mu.Lock()
	f.running--
	if f.running == 0 {
		f.idle.Broadcast()
	}
	f.mu.Unlock()
}

func (f *fetcher) wait() {
	f.mu.Lock()
	for f.running > 0 {
		f.idle.Wait()
	}
	f.mu.Unlock()
}

// shutdownErr reports whether err is the cancellation caused by Close.
func (f *fetcher) shutdownErr(err error) bool {
	if err == nil || !f.stopped() {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
