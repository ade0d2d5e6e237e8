// Package sessionsync keeps the terminal view's current-session state in step
// with the gateway. All state mutation runs on a single Dispatcher; gateway
// calls run on their own goroutines and post their results back.
package sessionsync

import "clawtui/internal/types"

// State is the view-model shared between the host and the synchronizer. The
// synchronizer writes SessionInfo, KnownSessionKeys, CurrentSessionID,
// HistoryLoaded and HistoryMessageCount. The host writes the rest through
// Actions.Update, SetSession or SetAgent.
type State struct {
	AgentDefaultID    string
	SessionMainKey    string
	CurrentAgentID    string
	CurrentSessionKey string
	CurrentSessionID  string
	ShowThinking      bool

	SessionInfo         types.SessionInfo
	KnownSessionKeys    []string
	HistoryLoaded       bool
	HistoryMessageCount int
}

func (s State) Clone() State {
	out := s
	if s.KnownSessionKeys != nil {
		out.KnownSessionKeys = append([]string(nil), s.KnownSessionKeys...)
	}
	if s.SessionInfo.UpdatedAt != nil {
		updated := *s.SessionInfo.UpdatedAt
		out.SessionInfo.UpdatedAt = &updated
	}
	return out
}

type RefreshState int

const (
	RefreshIdle RefreshState = iota
	RefreshInFlight
	RefreshInFlightWithPending
)

func (s RefreshState) String() string {
	switch s {
	case RefreshIdle:
		return "idle"
	case RefreshInFlight:
		return "in_flight"
	case RefreshInFlightWithPending:
		return "in_flight_with_pending"
	default:
		return "unknown"
	}
}

func (s RefreshState) Busy() bool {
	return s == RefreshInFlight || s == RefreshInFlightWithPending
}
