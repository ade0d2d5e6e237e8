package sessionsync

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"clawtui/internal/logging"
	"clawtui/internal/types"
)

const defaultHistoryLimit = 200

var errClosed = errors.New("session actions closed")

type Options struct {
	Source   RemoteSource
	Notifier Notifier
	ChatLog  ChatLog
	Logger   logging.Logger
	Observer Observer

	// Dispatcher runs every state mutation. When nil, Actions starts and
	// owns a Loop. If it stops accepting work before Close, pending futures
	// resolve without their results being applied.
	Dispatcher Dispatcher

	HistoryLimit   int
	IncludeGlobal  bool
	IncludeUnknown bool
}

// Actions is the host-facing API. Every method may be called from any
// goroutine, including from a closure running on the dispatcher, except
// Snapshot and RefreshState which wait on the dispatcher.
type Actions struct {
	state      *State
	dispatcher Dispatcher
	ownedLoop  *Loop
	fetcher    *fetcher
	cancel     context.CancelFunc
	closed     atomic.Bool

	notifier  Notifier
	logger    logging.Logger
	coalescer *RefreshCoalescer
	history   *HistoryLoader
}

// New wires the synchronizer around state. The host must not touch state
// except from the dispatcher.
func New(state *State, opts Options) *Actions {
	if state == nil {
		state = &State{}
	}
	if strings.TrimSpace(state.AgentDefaultID) == "" {
		state.AgentDefaultID = types.DefaultAgentID
	}
	if strings.TrimSpace(state.CurrentAgentID) == "" {
		state.CurrentAgentID = state.AgentDefaultID
	}
	if strings.TrimSpace(state.SessionMainKey) == "" {
		state.SessionMainKey = types.MainSessionKey(state.CurrentAgentID)
	}
	if strings.TrimSpace(state.CurrentSessionKey) == "" {
		state.CurrentSessionKey = state.SessionMainKey
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}
	chatLog := opts.ChatLog
	if chatLog == nil {
		chatLog = nopChatLog{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With(logging.F("component", "sessionsync"))
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	a := &Actions{state: state, notifier: notifier, logger: logger}
	a.dispatcher = opts.Dispatcher
	if a.dispatcher == nil {
		a.ownedLoop = NewLoop()
		a.ownedLoop.Start()
		a.dispatcher = a.ownedLoop
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.fetcher = newFetcher(ctx, a.dispatcher)

	a.coalescer = &RefreshCoalescer{
		fetcher:  a.fetcher,
		source:   opts.Source,
		applier:  NewStateApplier(state, notifier, logger),
		state:    state,
		chatLog:  chatLog,
		logger:   logger.With(logging.F("op", "refresh")),
		observer: observer,
		options: types.ListSessionsOptions{
			IncludeGlobal:  opts.IncludeGlobal,
			IncludeUnknown: opts.IncludeUnknown,
		},
	}
	a.history = &HistoryLoader{
		fetcher:  a.fetcher,
		source:   opts.Source,
		state:    state,
		chatLog:  chatLog,
		notifier: notifier,
		logger:   logger.With(logging.F("op", "history")),
		observer: observer,
		limit:    limit,
	}
	return a
}

// State returns the shared state. Only use it from the dispatcher.
func (a *Actions) State() *State {
	return a.state
}

// RefreshSessionInfo triggers or joins a coalesced session listing.
func (a *Actions) RefreshSessionInfo() *Future {
	return a.post(func() *Future { return a.coalescer.Refresh() })
}

// LoadHistory loads the current session's transcript. It resolves after the
// payload was applied or discarded.
func (a *Actions) LoadHistory() *Future {
	return a.post(func() *Future { return a.history.Load() })
}

// SetSession switches the current session, then reloads history and session
// info. An empty key selects the main session.
func (a *Actions) SetSession(key string) *Future {
	return a.post(func() *Future { return a.setSession(key) })
}

// SetAgent switches to the main session of agentID.
func (a *Actions) SetAgent(agentID string) *Future {
	return a.post(func() *Future {
		agentID = strings.TrimSpace(agentID)
		if agentID == "" {
			agentID = a.state.AgentDefaultID
		}
		a.state.CurrentAgentID = agentID
		a.state.SessionMainKey = types.MainSessionKey(agentID)
		return a.setSession(a.state.SessionMainKey)
	})
}

// Update runs fn against the shared state on the dispatcher.
func (a *Actions) Update(fn func(*State)) *Future {
	return a.post(func() *Future {
		fn(a.state)
		return resolvedFuture()
	})
}

// Snapshot returns a copy of the shared state. It must not be called from
// the dispatcher.
func (a *Actions) Snapshot(ctx context.Context) (State, error) {
	var out State
	err := a.read(ctx, func() { out = a.state.Clone() })
	return out, err
}

// RefreshState reports the coalescer state. It must not be called from the
// dispatcher.
func (a *Actions) RefreshState(ctx context.Context) (RefreshState, error) {
	var out RefreshState
	err := a.read(ctx, func() { out = a.coalescer.State() })
	return out, err
}

// CoalescerState is the dispatcher-side variant of RefreshState.
func (a *Actions) CoalescerState() RefreshState {
	return a.coalescer.State()
}

// Close cancels outstanding gateway calls and waits for their results to be
// posted. Futures still pending resolve once the dispatcher runs them.
func (a *Actions) Close() {
	if !a.closed.CompareAndSwap(false, true) {
		return
	}
	a.cancel()
	a.dispatcher.Post(func() {
		a.coalescer.close()
		a.history.closed = true
	})
	a.fetcher.wait()
	if a.ownedLoop != nil {
		a.ownedLoop.Close()
	}
}

func (a *Actions) setSession(key string) *Future {
	key = strings.TrimSpace(key)
	if key == "" {
		key = a.state.SessionMainKey
	}
	a.state.CurrentSessionKey = key
	a.state.CurrentSessionID = ""
	a.state.HistoryLoaded = false
	a.notifier.UpdateHeader()
	a.notifier.UpdateFooter()
	a.logger.Info("session selected", logging.F("session_key", key))
	return joinFutures(a.history.Load(), a.coalescer.Refresh())
}

func (a *Actions) post(start func() *Future) *Future {
	if a.closed.Load() {
		return resolvedFuture()
	}
	out := newFuture()
	if !a.dispatcher.Post(func() { start().onResolve(out.resolve) }) {
		return resolvedFuture()
	}
	return out
}

func (a *Actions) read(ctx context.Context, fn func()) error {
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan struct{})
	if a.closed.Load() || !a.dispatcher.Post(func() {
		fn()
		close(done)
	}) {
		return errClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
