package session

import (
	"fmt"

	"github.com/mpostma/toolgate/internal/llm"
)

// GetHistory returns a copy of the ordered message history. Mutating the
// returned slice does not affect the session.
func (s *Session) GetHistory() []llm.Message {
	return copyMessages(s.history)
}

// LoadHistory replaces the history wholesale after validating message roles.
func (s *Session) LoadHistory(msgs []llm.Message) error {
	for i, m := range msgs {
		switch m.Role {
		case llm.RoleUser, llm.RoleAssistant, llm.RoleTool:
		default:
			return fmt.Errorf("message %d: invalid role %q", i, m.Role)
		}
	}
	s.history = copyMessages(msgs)
	return nil
}

// Reset clears the history.
func (s *Session) Reset() {
	s.history = nil
}

// SetSystemPrompt replaces the stored system prompt for subsequent calls.
func (s *Session) SetSystemPrompt(prompt string) {
	s.cfg.SystemPrompt = prompt
}

// copyMessages deep-copies a message slice, including block payloads.
func copyMessages(msgs []llm.Message) []llm.Message {
	if msgs == nil {
		return nil
	}
	out := make([]llm.Message, len(msgs))
	for i, m := range msgs {
		cp := m
		cp.Content = make([]llm.ContentBlock, len(m.Content))
		for j, b := range m.Content {
			bc := b
			if b.ToolUse != nil {
				tu := *b.ToolUse
				tu.Input = append([]byte(nil), b.ToolUse.Input...)
				bc.ToolUse = &tu
			}
			if b.ToolResult != nil {
				tr := *b.ToolResult
				bc.ToolResult = &tr
			}
			cp.Content[j] = bc
		}
		out[i] = cp
	}
	return out
}
