package sessionsync

import (
	"context"
	"strings"

	"clawtui/internal/logging"
	"clawtui/internal/types"
)

// HistoryLoader replaces the transcript with the current session's history.
// Only the most recently started load may apply. A payload is also dropped
// when the current session key changed while it was in flight.
//
// All methods run on the dispatcher.
type HistoryLoader struct {
	fetcher  *fetcher
	source   RemoteSource
	state    *State
	chatLog  ChatLog
	notifier Notifier
	logger   logging.Logger
	observer Observer
	limit    int
	closed   bool
	seq      uint64
}

func (h *HistoryLoader) Load() *Future {
	done := newFuture()
	if h.closed || h.fetcher.stopped() {
		done.resolve()
		return done
	}
	key := strings.TrimSpace(h.state.CurrentSessionKey)
	if key == "" {
		h.chatLog.AddSystem("history skipped: no session selected")
		done.resolve()
		return done
	}
	h.seq++
	seq := h.seq
	h.observer.HistoryRequested()
	h.logger.Debug("loading history", logging.F("session_key", key), logging.F("limit", h.limit))
	h.fetcher.track(done)

	var (
		payload *types.HistoryPayload
		err     error
	)
	h.fetcher.run(func(ctx context.Context) {
		payload, err = h.source.LoadHistory(ctx, key, h.limit)
	}, func() {
		h.complete(seq, key, payload, err)
		done.resolve()
	})
	return done
}

func (h *HistoryLoader) complete(seq uint64, key string, payload *types.HistoryPayload, err error) {
	if err != nil {
		if h.fetcher.shutdownErr(err) {
			return
		}
		h.observer.HistoryFailed()
		h.logger.Warn("history load failed", logging.F("session_key", key), logging.F("err", err))
		h.chatLog.AddSystem("history failed: " + err.Error())
		return
	}
	if h.closed {
		return
	}
	if seq != h.seq {
		h.observer.HistoryDiscarded()
		h.logger.Debug("discarding superseded history", logging.F("session_key", key))
		return
	}
	if current := strings.TrimSpace(h.state.CurrentSessionKey); current != key {
		h.observer.HistoryDiscarded()
		h.logger.Debug("discarding stale history",
			logging.F("session_key", key),
			logging.F("current_session_key", current),
		)
		return
	}
	if payload == nil {
		payload = &types.HistoryPayload{}
	}

	h.chatLog.ClearAll()
	for _, msg := range payload.Messages {
		h.replay(msg)
	}
	h.state.CurrentSessionID = payload.SessionID
	h.state.HistoryMessageCount = len(payload.Messages)
	h.state.HistoryLoaded = true
	h.observer.HistoryApplied(len(payload.Messages))

	h.notifier.UpdateHeader()
	h.notifier.RequestRender()
}

func (h *HistoryLoader) replay(msg types.ChatMessage) {
	switch msg.Role {
	case types.ChatRoleUser:
		if text := msg.Text(); text != "" {
			h.chatLog.AddUser(text)
		}
	case types.ChatRoleAssistant:
		text := msg.Text()
		if h.state.ShowThinking {
			text = withThinking(msg, text)
		}
		if text != "" {
			h.chatLog.FinalizeAssistant(text)
		}
		for _, call := range msg.ToolCalls() {
			h.chatLog.StartTool(call.ID, call.Name, call.Arguments)
		}
	case types.ChatRoleToolResult:
		h.chatLog.StartTool(msg.ToolCallID, msg.ToolName, nil)
		h.chatLog.UpdateToolResult(msg.ToolCallID, msg.Text(), msg.IsError)
	}
}

func withThinking(msg types.ChatMessage, text string) string {
	var parts []string
	for _, block := range msg.Content {
		if block.Type != types.ContentTypeThinking {
			continue
		}
		if thinking := strings.TrimSpace(block.Thinking); thinking != "" {
			parts = append(parts, "_"+thinking+"_")
		}
	}
	if text != "" {
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}
