package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"clawtui/internal/client"
	"clawtui/internal/logging"
	"clawtui/internal/sessionsync"
)

const (
	defaultRefreshInterval = 15 * time.Second
	healthTimeout          = 5 * time.Second
	chromeLines            = 4
)

type HealthChecker interface {
	Health(ctx context.Context) (*client.HealthResponse, error)
}

type Options struct {
	Source   sessionsync.RemoteSource
	Health   HealthChecker
	State    *sessionsync.State
	Observer sessionsync.Observer
	Logger   logging.Logger

	// Dispatcher is set by Run. Tests supply their own.
	Dispatcher sessionsync.Dispatcher

	HistoryLimit    int
	IncludeGlobal   bool
	IncludeUnknown  bool
	RefreshInterval time.Duration
	RenderInterval  time.Duration
	Markdown        bool
}

// Selection is the agent and session the view ended on.
type Selection struct {
	AgentID    string
	SessionKey string
}

type (
	refreshTickMsg struct{}
	renderTickMsg  struct{}
	healthMsg      struct {
		version string
		err     error
	}
)

// Model is the session view. Session state lives in state and is only
// touched from Update, where synchronizer closures arrive as dispatchMsg.
type Model struct {
	actions    *sessionsync.Actions
	state      *sessionsync.State
	transcript *Transcript
	health     HealthChecker
	logger     logging.Logger
	scheduler  RenderScheduler

	initialKey      string
	refreshInterval time.Duration
	markdown        bool

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	width      int
	height     int
	ready      bool
	header     string
	footer     string
	connection string

	headerDirty       bool
	footerDirty       bool
	suggestionsDirty  bool
	renderDirty       bool
	renderTickPending bool
	spinning          bool
}

func NewModel(opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	state := opts.State
	if state == nil {
		state = &sessionsync.State{}
	}
	refresh := opts.RefreshInterval
	if refresh <= 0 {
		refresh = defaultRefreshInterval
	}
	scheduler := NewDefaultRenderScheduler()
	if opts.RenderInterval > 0 {
		scheduler = NewThrottledRenderScheduler(opts.RenderInterval)
	}

	ti := textinput.New()
	ti.Placeholder = "/help for commands"
	ti.Prompt = "› "
	ti.ShowSuggestions = true
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := &Model{
		state:            state,
		transcript:       NewTranscript(),
		health:           opts.Health,
		logger:           logger.With(logging.F("component", "ui")),
		scheduler:        scheduler,
		initialKey:       state.CurrentSessionKey,
		refreshInterval:  refresh,
		markdown:         opts.Markdown,
		input:            ti,
		viewport:         viewport.New(0, 0),
		spinner:          sp,
		headerDirty:      true,
		footerDirty:      true,
		suggestionsDirty: true,
	}
	observer := opts.Observer
	if observer == nil {
		observer = sessionsync.NopObserver{}
	}
	m.actions = sessionsync.New(state, sessionsync.Options{
		Source:         opts.Source,
		Notifier:       m,
		ChatLog:        m.transcript,
		Logger:         logger,
		Observer:       stateObserver{Observer: observer, model: m},
		Dispatcher:     opts.Dispatcher,
		HistoryLimit:   opts.HistoryLimit,
		IncludeGlobal:  opts.IncludeGlobal,
		IncludeUnknown: opts.IncludeUnknown,
	})
	return m
}

func (m *Model) Actions() *sessionsync.Actions {
	return m.actions
}

func (m *Model) Init() tea.Cmd {
	m.actions.SetSession(m.initialKey)
	cmds := []tea.Cmd{textinput.Blink, m.refreshTick()}
	if m.health != nil {
		cmds = append(cmds, m.checkHealth())
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case dispatchMsg:
		msg()
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			cmds = append(cmds, m.runCommand(line))
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	case refreshTickMsg:
		m.actions.RefreshSessionInfo()
		cmds = append(cmds, m.refreshTick())
	case renderTickMsg:
		m.renderTickPending = false
		if now := time.Now(); m.scheduler.ShouldRender(now) {
			m.renderTranscript(now)
		}
	case spinner.TickMsg:
		if m.actions.CoalescerState().Busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.footerDirty = true
			cmds = append(cmds, cmd)
		} else {
			m.spinning = false
		}
	case healthMsg:
		if msg.err != nil {
			m.connection = "gateway unreachable"
			m.logger.Warn("gateway health check failed", logging.F("err", msg.err))
		} else {
			m.connection = "gateway " + strings.TrimSpace("ok "+msg.version)
		}
		m.headerDirty = true
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, m.flush(time.Now()))
	return m, tea.Batch(cmds...)
}

func (m *Model) View() string {
	if !m.ready {
		return "connecting…"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.header,
		m.viewport.View(),
		dividerStyle.Render(strings.Repeat("─", max(m.width, 1))),
		m.footer,
		m.input.View(),
	)
}

// flush rebuilds whatever notifications marked stale since the last Update.
func (m *Model) flush(now time.Time) tea.Cmd {
	var cmds []tea.Cmd
	if m.actions.CoalescerState().Busy() && !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}
	if m.suggestionsDirty {
		m.suggestionsDirty = false
		m.input.SetSuggestions(m.suggestions())
	}
	if !m.ready {
		return tea.Batch(cmds...)
	}
	if m.headerDirty {
		m.headerDirty = false
		m.header = m.renderHeader()
	}
	if m.footerDirty {
		m.footerDirty = false
		m.footer = m.renderFooter()
	}
	if m.renderDirty {
		m.renderDirty = false
		cmds = append(cmds, m.scheduleRender(now))
	}
	return tea.Batch(cmds...)
}

func (m *Model) scheduleRender(now time.Time) tea.Cmd {
	if m.scheduler.Request(now) {
		m.renderTranscript(now)
		return nil
	}
	if m.renderTickPending {
		return nil
	}
	m.renderTickPending = true
	return tea.Tick(m.scheduler.Delay(now), func(time.Time) tea.Msg { return renderTickMsg{} })
}

func (m *Model) renderTranscript(now time.Time) {
	m.viewport.SetContent(m.transcript.Render(m.viewport.Width, m.markdown))
	m.viewport.GotoBottom()
	m.scheduler.MarkRendered(now)
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-chromeLines, 1)
	m.input.Width = max(width-len(m.input.Prompt)-1, 1)
	m.ready = true
	m.headerDirty = true
	m.footerDirty = true
	m.renderDirty = true
}

func (m *Model) refreshTick() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

func (m *Model) checkHealth() tea.Cmd {
	health := m.health
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
		defer cancel()
		resp, err := health.Health(ctx)
		if err != nil {
			return healthMsg{err: err}
		}
		if resp == nil {
			return healthMsg{err: errors.New("empty health response")}
		}
		if !resp.OK {
			return healthMsg{err: errors.New("gateway reported not ok")}
		}
		return healthMsg{version: resp.Version}
	}
}

func (m *Model) selection() Selection {
	return Selection{AgentID: m.state.CurrentAgentID, SessionKey: m.state.CurrentSessionKey}
}

// Run shows the view until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) (Selection, error) {
	setMarkdownBackgroundDark(lipgloss.HasDarkBackground())

	dispatcher := newProgramDispatcher()
	opts.Dispatcher = dispatcher
	model := NewModel(opts)
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	dispatcher.attach(program)

	_, err := program.Run()
	selection := model.selection()
	model.actions.Close()
	dispatcher.Close()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	return selection, err
}
