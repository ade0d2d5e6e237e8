package app

import (
	"bytes"
	"encoding/json"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"

	"clawtui/internal/sessionsync"
)

type entryKind uint8

const (
	entrySystem entryKind = iota
	entryUser
	entryAssistant
	entryTool
)

type transcriptEntry struct {
	kind     entryKind
	text     string
	toolID   string
	toolName string
	args     string
	result   string
	isError  bool
	resolved bool
}

// Transcript is the chat log shown in the viewport. It is only touched from
// the program's update loop.
type Transcript struct {
	entries []transcriptEntry
	tools   map[string]int
}

var _ sessionsync.ChatLog = (*Transcript)(nil)

func NewTranscript() *Transcript {
	return &Transcript{tools: map[string]int{}}
}

func (t *Transcript) AddSystem(text string) {
	t.entries = append(t.entries, transcriptEntry{kind: entrySystem, text: text})
}

func (t *Transcript) ClearAll() {
	t.entries = nil
	t.tools = map[string]int{}
}

func (t *Transcript) AddUser(text string) {
	t.entries = append(t.entries, transcriptEntry{kind: entryUser, text: text})
}

func (t *Transcript) FinalizeAssistant(text string) {
	t.entries = append(t.entries, transcriptEntry{kind: entryAssistant, text: text})
}

// StartTool adds a tool entry unless one with the same id exists. Arguments
// given later fill an entry that was started without them.
func (t *Transcript) StartTool(id, name string, args json.RawMessage) {
	if idx, ok := t.tools[id]; ok && id != "" {
		entry := &t.entries[idx]
		if entry.args == "" && len(args) > 0 {
			entry.args = compactJSON(args)
		}
		if entry.toolName == "" {
			entry.toolName = name
		}
		return
	}
	t.entries = append(t.entries, transcriptEntry{
		kind:     entryTool,
		toolID:   id,
		toolName: name,
		args:     compactJSON(args),
	})
	if id != "" {
		t.tools[id] = len(t.entries) - 1
	}
}

func (t *Transcript) UpdateToolResult(id, text string, isError bool) {
	idx, ok := t.tools[id]
	if !ok {
		t.StartTool(id, "", nil)
		idx = len(t.entries) - 1
	}
	entry := &t.entries[idx]
	entry.result = text
	entry.isError = isError
	entry.resolved = true
}

func (t *Transcript) Len() int {
	return len(t.entries)
}

// LastAssistant returns the most recent assistant reply, or "".
func (t *Transcript) LastAssistant() string {
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].kind == entryAssistant {
			return t.entries[i].text
		}
	}
	return ""
}

// Render lays the transcript out for a viewport of the given width.
func (t *Transcript) Render(width int, markdown bool) string {
	if width <= 0 {
		width = 80
	}
	blocks := make([]string, 0, len(t.entries))
	for _, entry := range t.entries {
		blocks = append(blocks, renderEntry(entry, width, markdown))
	}
	return strings.Join(blocks, "\n\n")
}

func renderEntry(entry transcriptEntry, width int, markdown bool) string {
	switch entry.kind {
	case entryUser:
		return userLabelStyle.Render("you") + "\n" + xansi.Wordwrap(entry.text, width, "")
	case entryAssistant:
		body := entry.text
		if markdown {
			body = renderMarkdown(body, width)
		} else {
			body = xansi.Wordwrap(body, width, "")
		}
		return agentLabelStyle.Render("agent") + "\n" + body
	case entryTool:
		return renderTool(entry, width)
	default:
		return systemLineStyle.Render(xansi.Wordwrap(entry.text, width, ""))
	}
}

func renderTool(entry transcriptEntry, width int) string {
	name := entry.toolName
	if name == "" {
		name = "tool"
	}
	head := "⚙ " + name
	if entry.args != "" {
		head += " " + entry.args
	}
	style := toolStyle
	if entry.isError {
		style = toolErrorStyle
	}
	out := style.Render(xansi.Truncate(head, width, "…"))
	if entry.resolved && strings.TrimSpace(entry.result) != "" {
		out += "\n" + toolOutputStyle.Render(xansi.Wordwrap(strings.TrimRight(entry.result, "\n"), max(width-2, 1), ""))
	}
	return out
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
