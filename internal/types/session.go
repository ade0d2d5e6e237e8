package types

import (
	"strings"
	"time"
)

const DefaultAgentID = "main"

// SessionDescriptor is one row of a gateway session listing.
type SessionDescriptor struct {
	Key           string `json:"key"`
	SessionID     string `json:"sessionId,omitempty"`
	DisplayName   string `json:"displayName,omitempty"`
	Label         string `json:"label,omitempty"`
	Model         string `json:"model,omitempty"`
	ModelProvider string `json:"modelProvider,omitempty"`
	ThinkingLevel string `json:"thinkingLevel,omitempty"`
	VerboseLevel  string `json:"verboseLevel,omitempty"`
	InputTokens   int64  `json:"inputTokens,omitempty"`
	OutputTokens  int64  `json:"outputTokens,omitempty"`
	TotalTokens   int64  `json:"totalTokens,omitempty"`
	ContextTokens int64  `json:"contextTokens,omitempty"`
	UpdatedAt     int64  `json:"updatedAt,omitempty"`
}

type SessionDefaults struct {
	Model         string `json:"model,omitempty"`
	ModelProvider string `json:"modelProvider,omitempty"`
	ContextTokens int64  `json:"contextTokens,omitempty"`
}

// SessionSnapshot is the result of a single list-sessions call. It is never
// mutated after it is received.
type SessionSnapshot struct {
	Timestamp int64               `json:"ts"`
	Path      string              `json:"path"`
	Count     int                 `json:"count"`
	Defaults  SessionDefaults     `json:"defaults"`
	Sessions  []SessionDescriptor `json:"sessions"`
}

// Find returns the descriptor whose key matches key after trimming.
func (s *SessionSnapshot) Find(key string) (SessionDescriptor, bool) {
	if s == nil {
		return SessionDescriptor{}, false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return SessionDescriptor{}, false
	}
	for _, session := range s.Sessions {
		if strings.TrimSpace(session.Key) == key {
			return session, true
		}
	}
	return SessionDescriptor{}, false
}

func (s *SessionSnapshot) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.Sessions))
	seen := make(map[string]struct{}, len(s.Sessions))
	for _, session := range s.Sessions {
		key := strings.TrimSpace(session.Key)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

// SessionInfo is the subset of a descriptor the view keeps for the current
// session.
type SessionInfo struct {
	SessionID     string
	DisplayName   string
	Model         string
	ModelProvider string
	ThinkingLevel string
	VerboseLevel  string
	InputTokens   int64
	OutputTokens  int64
	TotalTokens   int64
	ContextTokens int64
	UpdatedAt     *time.Time
}

// SessionInfoFrom copies a descriptor, filling model and context gaps from the
// snapshot defaults.
func SessionInfoFrom(desc SessionDescriptor, defaults SessionDefaults) SessionInfo {
	info := SessionInfo{
		SessionID:     desc.SessionID,
		DisplayName:   firstNonEmpty(desc.DisplayName, desc.Label),
		Model:         firstNonEmpty(desc.Model, defaults.Model),
		ModelProvider: firstNonEmpty(desc.ModelProvider, defaults.ModelProvider),
		ThinkingLevel: desc.ThinkingLevel,
		VerboseLevel:  desc.VerboseLevel,
		InputTokens:   desc.InputTokens,
		OutputTokens:  desc.OutputTokens,
		TotalTokens:   desc.TotalTokens,
		ContextTokens: desc.ContextTokens,
	}
	if info.ContextTokens <= 0 {
		info.ContextTokens = defaults.ContextTokens
	}
	if desc.UpdatedAt > 0 {
		updated := time.UnixMilli(desc.UpdatedAt).UTC()
		info.UpdatedAt = &updated
	}
	return info
}

// MainSessionKey is the canonical key of an agent's main session.
func MainSessionKey(agentID string) string {
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		agentID = DefaultAgentID
	}
	return "agent:" + agentID + ":main"
}

// ListSessionsOptions scopes a listing to the view's agent.
type ListSessionsOptions struct {
	AgentID        string
	IncludeGlobal  bool
	IncludeUnknown bool
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
