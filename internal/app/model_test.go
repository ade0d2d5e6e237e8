package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"clawtui/internal/client"
	"clawtui/internal/sessionsync"
	"clawtui/internal/types"
)

type stubSource struct {
	mu          sync.Mutex
	snapshot    *types.SessionSnapshot
	listErr     error
	histories   map[string]*types.HistoryPayload
	listCalls   int
	historyKeys []string
}

func (s *stubSource) ListSessions(_ context.Context, _ types.ListSessionsOptions) (*types.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.snapshot, nil
}

func (s *stubSource) LoadHistory(_ context.Context, key string, _ int) (*types.HistoryPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyKeys = append(s.historyKeys, key)
	if payload, ok := s.histories[key]; ok {
		return payload, nil
	}
	return &types.HistoryPayload{}, nil
}

func (s *stubSource) requestedHistory() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.historyKeys...)
}

type queueDispatcher struct {
	ch chan func()
}

func newQueueDispatcher() *queueDispatcher {
	return &queueDispatcher{ch: make(chan func(), 256)}
}

func (d *queueDispatcher) Post(fn func()) bool {
	d.ch <- fn
	return true
}

type stubHealth struct {
	resp *client.HealthResponse
	err  error
}

func (h stubHealth) Health(context.Context) (*client.HealthResponse, error) {
	return h.resp, h.err
}

func newTestModel(t *testing.T, src *stubSource) (*Model, *queueDispatcher) {
	t.Helper()
	d := newQueueDispatcher()
	m := NewModel(Options{
		Source:         src,
		Dispatcher:     d,
		RenderInterval: time.Nanosecond,
		IncludeGlobal:  true,
	})
	t.Cleanup(m.actions.Close)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return m, d
}

// pump feeds dispatched closures through Update until cond holds.
func pump(t *testing.T, m *Model, d *queueDispatcher, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case fn := <-d.ch:
			m.Update(dispatchMsg(fn))
		case <-deadline:
			t.Fatalf("condition not reached")
		}
	}
}

func settled(m *Model) func() bool {
	return func() bool {
		return m.state.HistoryLoaded && m.actions.CoalescerState() == sessionsync.RefreshIdle && m.state.SessionInfo.Model != ""
	}
}

func workSnapshot() *types.SessionSnapshot {
	return &types.SessionSnapshot{
		Defaults: types.SessionDefaults{ContextTokens: 200000},
		Sessions: []types.SessionDescriptor{
			{Key: "agent:main:main", SessionID: "s-main", Model: "Minimax-M2.1", ModelProvider: "minimax", TotalTokens: 1500},
			{Key: "agent:main:work", SessionID: "s-work", Model: "gpt-5"},
		},
	}
}

func TestModelInitLoadsSessionAndHistory(t *testing.T) {
	src := &stubSource{
		snapshot: workSnapshot(),
		histories: map[string]*types.HistoryPayload{
			"agent:main:main": {SessionID: "s-main", Messages: []types.ChatMessage{{
				Role:    types.ChatRoleUser,
				Content: []types.ContentBlock{{Type: types.ContentTypeText, Text: "hello there"}},
			}}},
		},
	}
	m, d := newTestModel(t, src)

	m.Init()
	pump(t, m, d, settled(m))

	if !strings.Contains(m.footer, "minimax/Minimax-M2.1") || !strings.Contains(m.footer, "history 1") {
		t.Fatalf("unexpected footer %q", m.footer)
	}
	if !strings.Contains(m.footer, "1.5k/200k (0%)") {
		t.Fatalf("expected token usage in footer, got %q", m.footer)
	}
	if !strings.Contains(m.header, "agent:main:main") || !strings.Contains(m.header, "s-main") {
		t.Fatalf("unexpected header %q", m.header)
	}
	if !strings.Contains(m.viewport.View(), "hello there") {
		t.Fatalf("expected history in viewport")
	}
	if !strings.Contains(m.View(), "hello there") {
		t.Fatalf("expected history in view")
	}
}

func TestModelSessionCommandSwitchesSession(t *testing.T) {
	src := &stubSource{snapshot: workSnapshot()}
	m, d := newTestModel(t, src)
	m.Init()
	pump(t, m, d, settled(m))

	m.input.SetValue("/session agent:main:work")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	pump(t, m, d, func() bool {
		return m.state.CurrentSessionKey == "agent:main:work" && settled(m)() && m.state.SessionInfo.Model == "gpt-5"
	})

	keys := src.requestedHistory()
	if len(keys) != 2 || keys[1] != "agent:main:work" {
		t.Fatalf("unexpected history requests %v", keys)
	}
	if m.input.Value() != "" {
		t.Fatalf("expected input to be cleared")
	}
}

func TestModelSuggestionsFollowKnownSessions(t *testing.T) {
	src := &stubSource{snapshot: workSnapshot()}
	m, d := newTestModel(t, src)
	m.Init()
	pump(t, m, d, settled(m))

	got := strings.Join(m.suggestions(), "|")
	if !strings.Contains(got, "/session agent:main:work") || !strings.Contains(got, "/refresh") {
		t.Fatalf("unexpected suggestions %s", got)
	}
}

func TestModelRefreshFailureAddsSystemLine(t *testing.T) {
	src := &stubSource{listErr: errors.New("gateway down")}
	m, d := newTestModel(t, src)

	f := m.actions.RefreshSessionInfo()
	pump(t, m, d, func() bool {
		select {
		case <-f.Done():
			return true
		default:
			return false
		}
	})
	if m.transcript.Len() != 1 || !strings.Contains(m.transcript.Render(80, false), "gateway down") {
		t.Fatalf("expected failure line, got %q", m.transcript.Render(80, false))
	}
}

func TestModelRefreshTickRequestsRefresh(t *testing.T) {
	src := &stubSource{snapshot: workSnapshot()}
	m, d := newTestModel(t, src)

	_, cmd := m.Update(refreshTickMsg{})
	if cmd == nil {
		t.Fatalf("expected next tick to be scheduled")
	}
	pump(t, m, d, func() bool { return m.state.SessionInfo.Model != "" })
	if !m.spinning {
		t.Fatalf("expected spinner to start while the refresh was in flight")
	}
}

func TestModelHealthUpdatesHeader(t *testing.T) {
	m, _ := newTestModel(t, &stubSource{})
	m.health = stubHealth{resp: &client.HealthResponse{OK: true, Version: "2.1.0"}}

	m.Update(m.checkHealth()())
	if !strings.Contains(m.header, "gateway ok 2.1.0") {
		t.Fatalf("unexpected header %q", m.header)
	}

	m.health = stubHealth{err: errors.New("refused")}
	m.Update(m.checkHealth()())
	if !strings.Contains(m.header, "gateway unreachable") {
		t.Fatalf("unexpected header %q", m.header)
	}
}

func TestRunCommandQuit(t *testing.T) {
	m, _ := newTestModel(t, &stubSource{})
	cmd := m.runCommand("/quit")
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func TestRunCommandRejectsPlainTextAndUnknown(t *testing.T) {
	m, _ := newTestModel(t, &stubSource{})
	m.runCommand("hello")
	m.runCommand("/bogus")
	m.runCommand("/agent")

	out := m.transcript.Render(120, false)
	for _, want := range []string{"read-only", "unknown command /bogus", "usage: /agent <id>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestRunCommandListsSessions(t *testing.T) {
	m, _ := newTestModel(t, &stubSource{})
	m.state.KnownSessionKeys = []string{"agent:main:main", "agent:main:work"}
	m.runCommand("/sessions")

	out := m.transcript.Render(120, false)
	if !strings.Contains(out, "* agent:main:main") || !strings.Contains(out, "  agent:main:work") {
		t.Fatalf("unexpected listing %q", out)
	}
}

func TestRunCommandThinkingReloadsHistory(t *testing.T) {
	src := &stubSource{}
	m, d := newTestModel(t, src)

	m.runCommand("/thinking on")
	pump(t, m, d, func() bool { return m.state.HistoryLoaded })
	if !m.state.ShowThinking {
		t.Fatalf("expected thinking to be shown")
	}
	if got := src.requestedHistory(); len(got) != 1 {
		t.Fatalf("expected one history reload, got %v", got)
	}
}

func TestScheduleRenderThrottles(t *testing.T) {
	m, _ := newTestModel(t, &stubSource{})
	m.scheduler = NewThrottledRenderScheduler(time.Hour)
	now := time.Now()

	if cmd := m.scheduleRender(now); cmd != nil {
		t.Fatalf("expected first render to happen immediately")
	}
	if cmd := m.scheduleRender(now.Add(time.Second)); cmd == nil {
		t.Fatalf("expected a deferred render tick")
	}
	if cmd := m.scheduleRender(now.Add(2 * time.Second)); cmd != nil {
		t.Fatalf("expected pending tick to be reused")
	}
}

func TestFormatTokens(t *testing.T) {
	cases := []struct {
		total, window int64
		want          string
	}{
		{42, 0, "42"},
		{1500, 200000, "1.5k/200k (0%)"},
		{64000, 128000, "64k/128k (50%)"},
		{2_000_000, 0, "2m"},
		{999, 1000, "999/1k (99%)"},
	}
	for _, tc := range cases {
		if got := formatTokens(tc.total, tc.window); got != tc.want {
			t.Fatalf("formatTokens(%d, %d) = %q, want %q", tc.total, tc.window, got, tc.want)
		}
	}
}
