// Package llm defines the chat-completion client interface and the message
// types shared between the conversation session and its providers.
package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Role constants for messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Stop reasons signaled by the provider.
const (
	StopEndTurn = "end_turn"
	StopToolUse = "tool_use"
)

// ContentBlock is one piece of message content. Type discriminates the
// variant; exactly one of the payload fields is set.
type ContentBlock struct {
	Type string `json:"type"` // "text", "tool_use", "tool_result", "document"

	Text       string           `json:"text,omitempty"`
	ToolUse    *ToolUse         `json:"toolUse,omitempty"`
	ToolResult *ToolResultBlock `json:"toolResult,omitempty"`
	FileID     string           `json:"fileId,omitempty"`
}

// ToolUse is a provider request to invoke a tool.
type ToolUse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResultBlock carries a tool execution result back to the provider, tied
// to the tool_use id that requested it.
type ToolResultBlock struct {
	ToolUseID string `json:"toolUseId"`
	Content   string `json:"content"`
	IsError   bool   `json:"isError,omitempty"`
}

// Message is a single turn in a conversation.
type Message struct {
	Role      string         `json:"role"`
	Content   []ContentBlock `json:"content"`
	Timestamp time.Time      `json:"timestamp,omitempty"`
}

// TextMessage builds a message with a single text block.
func TextMessage(role, text string) Message {
	return Message{
		Role:      role,
		Content:   []ContentBlock{{Type: "text", Text: text}},
		Timestamp: time.Now(),
	}
}

// Text concatenates the message's text blocks.
func (m Message) Text() string {
	var b strings.Builder
	for _, c := range m.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// ToolDefinition describes a tool offered to the provider.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Properties  map[string]any `json:"properties"`
	Required    []string       `json:"required,omitempty"`
}

// CompletionRequest is the input to a Complete call.
type CompletionRequest struct {
	Model          string           `json:"model"`
	System         string           `json:"system,omitempty"`
	Messages       []Message        `json:"messages"`
	Tools          []ToolDefinition `json:"tools,omitempty"`
	MaxTokens      int              `json:"maxTokens"`
	Temperature    *float64         `json:"temperature,omitempty"`
	ThinkingBudget int              `json:"thinkingBudget,omitempty"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Add accumulates usage across loop iterations.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// CompletionResponse is the result of a completion call.
type CompletionResponse struct {
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stopReason"`
	Model      string         `json:"model,omitempty"`
	Usage      Usage          `json:"usage"`
}

// Text concatenates the response's text blocks.
func (r *CompletionResponse) Text() string {
	return Message{Content: r.Content}.Text()
}

// ToolUses returns the tool_use blocks in the response, in order.
func (r *CompletionResponse) ToolUses() []ToolUse {
	var uses []ToolUse
	for _, c := range r.Content {
		if c.Type == "tool_use" && c.ToolUse != nil {
			uses = append(uses, *c.ToolUse)
		}
	}
	return uses
}

// Client is the chat-completion provider interface.
type Client interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// FileInfo is remote file metadata.
type FileInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	MediaType string    `json:"mediaType"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// FileStore manages files uploaded to the provider.
type FileStore interface {
	// Upload stores the file at path and returns its metadata.
	Upload(ctx context.Context, path string) (*FileInfo, error)

	// Delete removes a file by id.
	Delete(ctx context.Context, id string) error

	// List returns all uploaded files.
	List(ctx context.Context) ([]FileInfo, error)
}
