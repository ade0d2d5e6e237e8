package types

import (
	"encoding/json"
	"testing"
)

func TestSessionSnapshotFindTrimsKeys(t *testing.T) {
	snapshot := &SessionSnapshot{
		Sessions: []SessionDescriptor{
			{Key: "agent:main:other", Model: "a"},
			{Key: " agent:main:main ", Model: "b"},
		},
	}
	desc, ok := snapshot.Find("agent:main:main")
	if !ok {
		t.Fatalf("expected descriptor to be found")
	}
	if desc.Model != "b" {
		t.Fatalf("unexpected descriptor: %#v", desc)
	}
	if _, ok := snapshot.Find(""); ok {
		t.Fatalf("expected empty key not to match")
	}
	var nilSnapshot *SessionSnapshot
	if _, ok := nilSnapshot.Find("agent:main:main"); ok {
		t.Fatalf("expected nil snapshot not to match")
	}
}

func TestSessionSnapshotKeysDedupes(t *testing.T) {
	snapshot := &SessionSnapshot{
		Sessions: []SessionDescriptor{{Key: "a"}, {Key: "b"}, {Key: "a"}, {Key: " "}},
	}
	keys := snapshot.Keys()
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("unexpected keys: %#v", keys)
	}
}

func TestSessionInfoFromFallsBackToDefaults(t *testing.T) {
	info := SessionInfoFrom(
		SessionDescriptor{Key: "k", Label: "Main", TotalTokens: 10, UpdatedAt: 1700000000000},
		SessionDefaults{Model: "claude", ModelProvider: "anthropic", ContextTokens: 200000},
	)
	if info.Model != "claude" || info.ModelProvider != "anthropic" {
		t.Fatalf("expected defaults for model, got %#v", info)
	}
	if info.ContextTokens != 200000 {
		t.Fatalf("expected default context tokens, got %d", info.ContextTokens)
	}
	if info.DisplayName != "Main" {
		t.Fatalf("expected label as display name, got %q", info.DisplayName)
	}
	if info.UpdatedAt == nil || info.UpdatedAt.UnixMilli() != 1700000000000 {
		t.Fatalf("unexpected updated at: %v", info.UpdatedAt)
	}

	info = SessionInfoFrom(SessionDescriptor{Key: "k", Model: "Minimax-M2.1", ModelProvider: "minimax"}, SessionDefaults{Model: "claude"})
	if info.Model != "Minimax-M2.1" || info.ModelProvider != "minimax" {
		t.Fatalf("expected descriptor model to win, got %#v", info)
	}
}

func TestChatMessageDecodesContentBlocks(t *testing.T) {
	raw := `{"role":"assistant","content":[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"hello"},{"type":"toolCall","id":"call-1","name":"read","arguments":{"path":"a.txt"}},{"type":"text","text":"done"}]}`
	var msg ChatMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Role != ChatRoleAssistant {
		t.Fatalf("unexpected role %q", msg.Role)
	}
	if got := msg.Text(); got != "hello\n\ndone" {
		t.Fatalf("unexpected text %q", got)
	}
	calls := msg.ToolCalls()
	if len(calls) != 1 || calls[0].ID != "call-1" || calls[0].Name != "read" {
		t.Fatalf("unexpected tool calls: %#v", calls)
	}
	if string(calls[0].Arguments) != `{"path":"a.txt"}` {
		t.Fatalf("unexpected arguments %s", calls[0].Arguments)
	}
}

func TestAppStateRememberSession(t *testing.T) {
	state := &AppState{}
	state.RememberSession("main", "agent:main:main")
	state.RememberSession("ops", "agent:ops:main")
	if state.CurrentAgentID != "ops" || state.CurrentSessionKey != "agent:ops:main" {
		t.Fatalf("unexpected current selection: %#v", state)
	}
	if state.LastSessionKeyByAgent["main"] != "agent:main:main" {
		t.Fatalf("expected per-agent memory, got %#v", state.LastSessionKeyByAgent)
	}
}
