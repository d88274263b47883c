package server

type chatRequest struct {
	Messages []ChatMessage  `json:"messages"`
	Message  string         `json:"message"`
	Session  *SessionMemory `json:"session"`

	// Anonymous analytics identifiers, optional. Never message text.
	AnonID    string `json:"anonId"`
	SessionID string `json:"sessionId"`
}
