package sessionsync

import "sync"

// Dispatcher runs posted closures one at a time, in posting order. Post never
// blocks and reports false once the dispatcher stopped accepting work.
type Dispatcher interface {
	Post(fn func()) bool
}

// Loop is a FIFO Dispatcher. By default closures run on the loop goroutine.
// An executor can hand them to another single-threaded owner instead, e.g. a
// tea.Program, in which case the executor must block until the owner accepted
// the closure so ordering is preserved.
type Loop struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	closed  bool
	started bool
	exec    func(func())
	done    chan struct{}
	once    sync.Once
}

func NewLoop() *Loop {
	return NewLoopWithExecutor(nil)
}

func NewLoopWithExecutor(exec func(func())) *Loop {
	l := &Loop{exec: exec, done: make(chan struct{})}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *Loop) Start() {
	l.mu.Lock()
	if l.started || l.closed {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()
	go l.run()
}

func (l *Loop) Post(fn func()) bool {
	if l == nil || fn == nil {
		return false
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.cond.Signal()
	return true
}

// Close stops accepting work, drains what is already queued and waits for the
// loop goroutine to exit. It must not be called from a posted closure.
func (l *Loop) Close() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		started := l.started
		l.mu.Unlock()
		l.cond.Broadcast()
		if !started {
			close(l.done)
		}
	})
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.closed {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()
		l.execute(fn)
	}
}

func (l *Loop) execute(fn func()) {
	if l.exec != nil {
		l.exec(fn)
		return
	}
	fn()
}
