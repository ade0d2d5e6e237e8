package app

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"clawtui/internal/logging"
	"clawtui/internal/sessionsync"
)

var commandNames = []string{"agent", "copy", "help", "history", "quit", "refresh", "session", "sessions", "thinking"}

const helpText = `commands:
  /session <key>     switch session (empty for the agent's main session)
  /agent <id>        switch agent
  /sessions          list known sessions
  /refresh           refresh session info
  /history           reload the transcript
  /thinking on|off   show reasoning in replayed history
  /copy              copy the last reply
  /quit              exit`

// runCommand handles one submitted input line.
func (m *Model) runCommand(line string) tea.Cmd {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		m.systemLine("this view is read-only; type /help for commands")
		return nil
	}
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "refresh":
		m.actions.RefreshSessionInfo()
	case "history":
		m.actions.LoadHistory()
	case "session":
		m.actions.SetSession(arg)
	case "agent":
		if arg == "" {
			m.systemLine("usage: /agent <id>")
			return nil
		}
		m.actions.SetAgent(arg)
	case "sessions":
		m.listSessions()
	case "thinking":
		m.setThinking(arg)
	case "copy":
		m.copyLastReply()
	case "help":
		m.systemLine(helpText)
	case "quit", "exit":
		return tea.Quit
	default:
		m.systemLine(fmt.Sprintf("unknown command /%s; type /help", name))
	}
	return nil
}

func (m *Model) systemLine(text string) {
	m.transcript.AddSystem(text)
	m.renderDirty = true
}

func (m *Model) listSessions() {
	keys := m.state.KnownSessionKeys
	if len(keys) == 0 {
		m.systemLine("no sessions known yet; try /refresh")
		return
	}
	var b strings.Builder
	b.WriteString("sessions:")
	for _, key := range keys {
		marker := "  "
		if key == m.state.CurrentSessionKey {
			marker = "* "
		}
		b.WriteString("\n" + marker + key)
	}
	m.systemLine(b.String())
}

func (m *Model) setThinking(arg string) {
	var show bool
	switch strings.ToLower(arg) {
	case "on", "true", "1":
		show = true
	case "off", "false", "0":
		show = false
	default:
		m.systemLine("usage: /thinking on|off")
		return
	}
	m.actions.Update(func(s *sessionsync.State) { s.ShowThinking = show })
	m.actions.LoadHistory()
}

func (m *Model) copyLastReply() {
	text := m.transcript.LastAssistant()
	if text == "" {
		m.systemLine("nothing to copy")
		return
	}
	method, err := copyTextToClipboard(text)
	if err != nil {
		m.logger.Warn("copy failed", logging.F("err", err))
		m.systemLine("copy failed: " + err.Error())
		return
	}
	m.systemLine("copied last reply via " + method.String())
}
