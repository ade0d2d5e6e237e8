package sessionsync

import (
	"context"
	"errors"

	"clawtui/internal/logging"
	"clawtui/internal/types"
)

var errEmptySnapshot = errors.New("gateway returned no session snapshot")

// RefreshCoalescer allows one ListSessions call at a time. Requests that
// arrive while a call is outstanding share a single trailing call, issued as
// soon as the outstanding one completes.
//
// All methods run on the dispatcher.
type RefreshCoalescer struct {
	fetcher  *fetcher
	source   RemoteSource
	applier  *StateApplier
	state    *State
	chatLog  ChatLog
	logger   logging.Logger
	observer Observer
	options  types.ListSessionsOptions

	machine  RefreshState
	active   *Future
	trailing *Future
	closed   bool
}

func (c *RefreshCoalescer) State() RefreshState {
	return c.machine
}

// Refresh returns a future that resolves after a fetch covering this request
// has completed and, when it succeeded, been applied.
func (c *RefreshCoalescer) Refresh() *Future {
	if c.closed || c.fetcher.stopped() {
		return resolvedFuture()
	}
	c.observer.RefreshRequested()
	switch c.machine {
	case RefreshIdle:
		c.active = c.fetcher.track(newFuture())
		c.issue()
		return c.active
	case RefreshInFlight:
		c.trailing = c.fetcher.track(newFuture())
		c.setMachine(RefreshInFlightWithPending)
		c.observer.RefreshJoined()
		c.logger.Debug("refresh queued behind in-flight fetch")
		return c.trailing
	default:
		c.observer.RefreshJoined()
		return c.trailing
	}
}

func (c *RefreshCoalescer) issue() {
	opts := c.options
	opts.AgentID = c.state.CurrentAgentID
	c.setMachine(RefreshInFlight)
	c.observer.FetchIssued()
	c.logger.Debug("listing sessions", logging.F("agent_id", opts.AgentID))

	var (
		snapshot *types.SessionSnapshot
		err      error
	)
	c.fetcher.run(func(ctx context.Context) {
		snapshot, err = c.source.ListSessions(ctx, opts)
		if err == nil && snapshot == nil {
			err = errEmptySnapshot
		}
	}, func() {
		c.complete(snapshot, err)
	})
}

func (c *RefreshCoalescer) complete(snapshot *types.SessionSnapshot, err error) {
	done := c.active
	c.active = nil

	switch {
	case err != nil && c.fetcher.shutdownErr(err):
		c.logger.Debug("session listing cancelled", logging.F("err", err))
	case err != nil:
		c.observer.FetchFailed()
		c.logger.Warn("session listing failed", logging.F("err", err))
		c.chatLog.AddSystem("sessions refresh failed: " + err.Error())
	case c.closed:
	default:
		c.observer.FetchSucceeded()
		c.applier.Apply(snapshot)
	}

	if c.machine == RefreshInFlightWithPending && !c.closed && !c.fetcher.stopped() {
		c.active = c.trailing
		c.trailing = nil
		c.issue()
	} else {
		c.setMachine(RefreshIdle)
		trailing := c.trailing
		c.trailing = nil
		trailing.resolve()
	}
	done.resolve()
}

func (c *RefreshCoalescer) close() {
	c.closed = true
	if c.machine == RefreshIdle {
		return
	}
	c.logger.Debug("closing with fetch outstanding", logging.F("state", c.machine))
}

func (c *RefreshCoalescer) setMachine(next RefreshState) {
	if c.machine == next {
		return
	}
	c.machine = next
	c.observer.RefreshStateChanged(next)
}
