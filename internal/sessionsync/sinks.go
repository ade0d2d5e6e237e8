package sessionsync

import (
	"context"
	"encoding/json"

	"clawtui/internal/types"
)

type RemoteSource interface {
	ListSessions(ctx context.Context, opts types.ListSessionsOptions) (*types.SessionSnapshot, error)
	LoadHistory(ctx context.Context, sessionKey string, limit int) (*types.HistoryPayload, error)
}

// Notifier receives fire-and-forget view updates. Calls arrive on the
// dispatcher.
type Notifier interface {
	UpdateHeader()
	UpdateFooter()
	UpdateAutocompleteProvider()
	RequestRender()
}

// ChatLog is the transcript view. StartTool must be idempotent per id.
type ChatLog interface {
	AddSystem(text string)
	ClearAll()
	AddUser(text string)
	FinalizeAssistant(text string)
	StartTool(id, name string, args json.RawMessage)
	UpdateToolResult(id, text string, isError bool)
}

// Observer is told about coalescing decisions; used for metrics.
type Observer interface {
	RefreshRequested()
	RefreshJoined()
	FetchIssued()
	FetchSucceeded()
	FetchFailed()
	RefreshStateChanged(state RefreshState)
	HistoryRequested()
	HistoryApplied(messages int)
	HistoryDiscarded()
	HistoryFailed()
}

type nopNotifier struct{}

func (nopNotifier) UpdateHeader()               {}
func (nopNotifier) UpdateFooter()               {}
func (nopNotifier) UpdateAutocompleteProvider() {}
func (nopNotifier) RequestRender()              {}

type nopChatLog struct{}

func (nopChatLog) AddSystem(string)                          {}
func (nopChatLog) ClearAll()                                 {}
func (nopChatLog) AddUser(string)                            {}
func (nopChatLog) FinalizeAssistant(string)                  {}
func (nopChatLog) StartTool(string, string, json.RawMessage) {}
func (nopChatLog) UpdateToolResult(string, string, bool)     {}

// NopObserver ignores every event. Embed it to observe a subset.
type NopObserver struct{}

func (NopObserver) RefreshRequested()                {}
func (NopObserver) RefreshJoined()                   {}
func (NopObserver) FetchIssued()                     {}
func (NopObserver) FetchSucceeded()                  {}
func (NopObserver) FetchFailed()                     {}
func (NopObserver) RefreshStateChanged(RefreshState) {}
func (NopObserver) HistoryRequested()                {}
func (NopObserver) HistoryApplied(int)               {}
func (NopObserver) HistoryDiscarded()                {}
func (NopObserver) HistoryFailed()                   {}
