package types

import (
	"encoding/json"
	"strings"
)

type ChatRole string

const (
	ChatRoleUser       ChatRole = "user"
	ChatRoleAssistant  ChatRole = "assistant"
	ChatRoleToolResult ChatRole = "toolResult"
)

const (
	ContentTypeText     = "text"
	ContentTypeThinking = "thinking"
	ContentTypeToolCall = "toolCall"
)

type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type ChatMessage struct {
	Role       ChatRole       `json:"role"`
	Content    []ContentBlock `json:"content"`
	ToolCallID string         `json:"toolCallId,omitempty"`
	ToolName   string         `json:"toolName,omitempty"`
	IsError    bool           `json:"isError,omitempty"`
	Timestamp  int64          `json:"timestamp,omitempty"`
}

// Text joins the text blocks of the message. Thinking and tool blocks are
// skipped.
func (m ChatMessage) Text() string {
	parts := make([]string, 0, len(m.Content))
	for _, block := range m.Content {
		if block.Type != ContentTypeText {
			continue
		}
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

func (m ChatMessage) ToolCalls() []ContentBlock {
	var calls []ContentBlock
	for _, block := range m.Content {
		if block.Type == ContentTypeToolCall {
			calls = append(calls, block)
		}
	}
	return calls
}

// HistoryPayload is a one-shot transcript for a session.
type HistoryPayload struct {
	SessionID string        `json:"sessionId"`
	Messages  []ChatMessage `json:"messages"`
}
