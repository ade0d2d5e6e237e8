package types

// AppState is the UI selection persisted between runs.
type AppState struct {
	CurrentAgentID        string            `json:"current_agent_id,omitempty"`
	CurrentSessionKey     string            `json:"current_session_key,omitempty"`
	LastSessionKeyByAgent map[string]string `json:"last_session_key_by_agent,omitempty"`
}

func (s *AppState) RememberSession(agentID, sessionKey string) {
	if s == nil {
		return
	}
	s.CurrentAgentID = agentID
	s.CurrentSessionKey = sessionKey
	if agentID == "" || sessionKey == "" {
		return
	}
	if s.LastSessionKeyByAgent == nil {
		s.LastSessionKeyByAgent = map[string]string{}
	}
	s.LastSessionKeyByAgent[agentID] = sessionKey
}
