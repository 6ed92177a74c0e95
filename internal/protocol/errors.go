package protocol

import "errors"

var (
	ErrInvalidFormat   = errors.New("invalid message format")
	ErrMessageTooLarge = errors.New("message exceeds maximum size")
)

// AgentError represents an error that should be sent back to the agent.
// These are not system failures - just invalid requests.
type AgentError struct {
	Message string
}

func (e *AgentError) Error() string {
	return e.Message
}

// NewAgentError creates an agent-facing error.
func NewAgentError(msg string) *AgentError {
	return &AgentError{Message: msg}
}
