package sessionsync

import (
	"clawtui/internal/logging"
	"clawtui/internal/types"
)

// StateApplier folds a completed session listing into State and notifies the
// view once per applied snapshot.
type StateApplier struct {
	state    *State
	notifier Notifier
	logger   logging.Logger
}

func NewStateApplier(state *State, notifier Notifier, logger logging.Logger) *StateApplier {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &StateApplier{state: state, notifier: notifier, logger: logger}
}

// Apply keeps the previous SessionInfo when the snapshot has no row for the
// current key.
func (a *StateApplier) Apply(snapshot *types.SessionSnapshot) {
	if a == nil || a.state == nil || snapshot == nil {
		return
	}
	if desc, ok := snapshot.Find(a.state.CurrentSessionKey); ok {
		a.state.SessionInfo = types.SessionInfoFrom(desc, snapshot.Defaults)
	} else {
		a.logger.Debug("session snapshot has no current key",
			logging.F("session_key", a.state.CurrentSessionKey),
			logging.F("count", len(snapshot.Sessions)),
		)
	}
	a.state.KnownSessionKeys = snapshot.Keys()

	a.notifier.UpdateAutocompleteProvider()
	a.notifier.UpdateFooter()
	a.notifier.RequestRender()
}
