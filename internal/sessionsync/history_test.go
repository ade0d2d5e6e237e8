package sessionsync

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"clawtui/internal/types"
)

func textMessage(role types.ChatRole, text string) types.ChatMessage {
	return types.ChatMessage{
		Role:    role,
		Content: []types.ContentBlock{{Type: types.ContentTypeText, Text: text}},
	}
}

func TestLoadHistoryAppliesPayload(t *testing.T) {
	src := newFakeSource()
	chatLog := &recordingChatLog{}
	notifier := &recordingNotifier{}
	actions := New(nil, Options{Source: src, ChatLog: chatLog, Notifier: notifier})
	defer actions.Close()

	f := actions.LoadHistory()
	call := nextHistory(t, src)
	if call.key != "agent:main:main" || call.limit != defaultHistoryLimit {
		t.Fatalf("unexpected history request: key=%q limit=%d", call.key, call.limit)
	}
	call.reply <- historyReply{payload: &types.HistoryPayload{
		SessionID: "sess-1",
		Messages:  []types.ChatMessage{textMessage(types.ChatRoleUser, "hi")},
	}}
	waitFuture(t, f)

	state := snapshotOf(t, actions)
	if state.HistoryMessageCount != 1 || !state.HistoryLoaded {
		t.Fatalf("expected one loaded message, got count=%d loaded=%t", state.HistoryMessageCount, state.HistoryLoaded)
	}
	if state.CurrentSessionID != "sess-1" {
		t.Fatalf("expected session id from payload, got %q", state.CurrentSessionID)
	}
	if got := strings.Join(chatLog.snapshot(), "|"); got != "clear|user:hi" {
		t.Fatalf("unexpected transcript: %s", got)
	}
	if got := strings.Join(notifier.snapshot(), ","); got != "header,render" {
		t.Fatalf("unexpected notifications: %s", got)
	}
}

func TestLoadHistoryDiscardsPayloadForOldSession(t *testing.T) {
	src := newFakeSource()
	chatLog := &recordingChatLog{}
	observer := &countingObserver{}
	actions := New(nil, Options{Source: src, ChatLog: chatLog, Observer: observer})
	defer actions.Close()

	stale := actions.LoadHistory()
	oldCall := nextHistory(t, src)
	switched := actions.SetSession("agent:main:other")
	newCall := nextHistory(t, src)
	if newCall.key != "agent:main:other" {
		t.Fatalf("expected load for new session, got %q", newCall.key)
	}

	oldCall.reply <- historyReply{payload: &types.HistoryPayload{
		SessionID: "old",
		Messages: []types.ChatMessage{
			textMessage(types.ChatRoleUser, "a"),
			textMessage(types.ChatRoleUser, "b"),
			textMessage(types.ChatRoleUser, "c"),
		},
	}}
	waitFuture(t, stale)
	if got := snapshotOf(t, actions).HistoryMessageCount; got != 0 {
		t.Fatalf("expected stale payload to leave count untouched, got %d", got)
	}

	newCall.reply <- historyReply{payload: &types.HistoryPayload{
		SessionID: "new",
		Messages:  []types.ChatMessage{textMessage(types.ChatRoleUser, "fresh")},
	}}
	listCall := nextList(t, src)
	listCall.reply <- listReply{snapshot: sessionsSnapshot(types.SessionDescriptor{Key: "agent:main:other", Model: "m2"})}
	waitFuture(t, switched)

	state := snapshotOf(t, actions)
	if state.HistoryMessageCount != 1 || state.CurrentSessionID != "new" {
		t.Fatalf("unexpected state after switch: %#v", state)
	}
	if state.SessionInfo.Model != "m2" {
		t.Fatalf("expected session info for new key, got %#v", state.SessionInfo)
	}
	if got := strings.Join(chatLog.snapshot(), "|"); got != "clear|user:fresh" {
		t.Fatalf("unexpected transcript: %s", got)
	}
	if got := observer.get("history_discarded"); got != 1 {
		t.Fatalf("expected one discarded payload, got %d", got)
	}
}

func TestLoadHistoryFailureKeepsState(t *testing.T) {
	src := newFakeSource()
	chatLog := &recordingChatLog{}
	actions := New(nil, Options{Source: src, ChatLog: chatLog})
	defer actions.Close()

	f := actions.LoadHistory()
	call := nextHistory(t, src)
	call.reply <- historyReply{err: errors.New("decode history: unexpected EOF")}
	waitFuture(t, f)

	state := snapshotOf(t, actions)
	if state.HistoryLoaded || state.HistoryMessageCount != 0 {
		t.Fatalf("expected no history state change, got %#v", state)
	}
	entries := chatLog.snapshot()
	if len(entries) != 1 || entries[0] != "system:history failed: decode history: unexpected EOF" {
		t.Fatalf("unexpected transcript: %v", entries)
	}
}

func TestLoadHistoryReplaysByRole(t *testing.T) {
	src := newFakeSource()
	chatLog := &recordingChatLog{}
	actions := New(&State{ShowThinking: true}, Options{Source: src, ChatLog: chatLog, HistoryLimit: 20})
	defer actions.Close()

	f := actions.LoadHistory()
	call := nextHistory(t, src)
	if call.limit != 20 {
		t.Fatalf("expected configured limit, got %d", call.limit)
	}
	call.reply <- historyReply{payload: &types.HistoryPayload{Messages: []types.ChatMessage{
		textMessage(types.ChatRoleUser, "list files"),
		{
			Role: types.ChatRoleAssistant,
			Content: []types.ContentBlock{
				{Type: types.ContentTypeThinking, Thinking: "need ls"},
				{Type: types.ContentTypeText, Text: "Running ls."},
				{Type: types.ContentTypeToolCall, ID: "call-1", Name: "exec", Arguments: json.RawMessage(`{"cmd":"ls"}`)},
			},
		},
		{
			Role:       types.ChatRoleToolResult,
			ToolCallID: "call-1",
			ToolName:   "exec",
			Content:    []types.ContentBlock{{Type: types.ContentTypeText, Text: "README.md"}},
		},
		textMessage(types.ChatRoleAssistant, ""),
	}}}
	waitFuture(t, f)

	want := []string{
		"clear",
		"user:list files",
		"assistant:_need ls_\n\nRunning ls.",
		`tool:call-1:exec:{"cmd":"ls"}`,
		"tool:call-1:exec:",
		"result:call-1:README.md:false",
	}
	got := chatLog.snapshot()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected replay:\n got %q\nwant %q", got, want)
	}
	if n := snapshotOf(t, actions).HistoryMessageCount; n != 4 {
		t.Fatalf("expected every message counted, got %d", n)
	}
}

func TestLoadHistoryWithoutSessionKeySkips(t *testing.T) {
	src := newFakeSource()
	chatLog := &recordingChatLog{}
	actions := New(nil, Options{Source: src, ChatLog: chatLog})
	defer actions.Close()

	waitFuture(t, actions.Update(func(s *State) { s.CurrentSessionKey = " " }))
	waitFuture(t, actions.LoadHistory())

	if got := src.historyCount(); got != 0 {
		t.Fatalf("expected no history request, got %d", got)
	}
	entries := chatLog.snapshot()
	if len(entries) != 1 || !strings.Contains(entries[0], "no session selected") {
		t.Fatalf("unexpected transcript: %v", entries)
	}
}

func TestLoadHistoryIgnoresOlderPayloadForSameSession(t *testing.T) {
	src := newFakeSource()
	chatLog := &recordingChatLog{}
	observer := &countingObserver{}
	actions := New(nil, Options{Source: src, ChatLog: chatLog, Observer: observer})
	defer actions.Close()

	older := actions.LoadHistory()
	olderCall := nextHistory(t, src)
	newer := actions.LoadHistory()
	newerCall := nextHistory(t, src)

	newerCall.reply <- historyReply{payload: &types.HistoryPayload{
		SessionID: "sess-1",
		Messages: []types.ChatMessage{
			textMessage(types.ChatRoleUser, "a"),
			textMessage(types.ChatRoleUser, "b"),
		},
	}}
	waitFuture(t, newer)
	olderCall.reply <- historyReply{payload: &types.HistoryPayload{
		SessionID: "sess-1",
		Messages:  []types.ChatMessage{textMessage(types.ChatRoleUser, "old")},
	}}
	waitFuture(t, older)

	if got := snapshotOf(t, actions).HistoryMessageCount; got != 2 {
		t.Fatalf("expected newer payload to stay applied, got count %d", got)
	}
	if got := strings.Join(chatLog.snapshot(), "|"); got != "clear|user:a|user:b" {
		t.Fatalf("unexpected transcript: %s", got)
	}
	if got := observer.get("history_discarded"); got != 1 {
		t.Fatalf("expected one discarded payload, got %d", got)
	}
}

func TestSetSessionBackAndForthKeepsLatestLoad(t *testing.T) {
	src := newFakeSource()
	actions := New(nil, Options{Source: src})
	defer actions.Close()

	first := actions.LoadHistory()
	firstCall := nextHistory(t, src)
	away := actions.SetSession("agent:main:other")
	awayCall := nextHistory(t, src)
	nextList(t, src).reply <- listReply{snapshot: sessionsSnapshot()}
	back := actions.SetSession("agent:main:main")
	backCall := nextHistory(t, src)
	nextList(t, src).reply <- listReply{snapshot: sessionsSnapshot()}

	backCall.reply <- historyReply{payload: &types.HistoryPayload{SessionID: "latest"}}
	waitFuture(t, back)
	awayCall.reply <- historyReply{payload: &types.HistoryPayload{SessionID: "other"}}
	firstCall.reply <- historyReply{payload: &types.HistoryPayload{SessionID: "first"}}
	waitFuture(t, away)
	waitFuture(t, first)

	if got := snapshotOf(t, actions).CurrentSessionID; got != "latest" {
		t.Fatalf("expected latest load to win, got %q", got)
	}
}
