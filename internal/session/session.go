// Package session implements the conversation-state wrapper around a
// chat-completion provider: ordered message history, attached files, per-call
// parameter overrides, and the tool-dispatch loop.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mpostma/toolgate/internal/llm"
	"github.com/mpostma/toolgate/internal/logging"
	"github.com/mpostma/toolgate/internal/tool"
)

// ErrTurnLimitExceeded is returned by Call when the model keeps requesting
// tools past the configured round limit.
var ErrTurnLimitExceeded = errors.New("turn limit exceeded")

const (
	defaultModel          = "claude-sonnet-4-20250514"
	defaultMaxTokens      = 4096
	defaultMaxToolRounds  = 10
	defaultMaxAttachments = 4
)

// Config holds the session's fixed parameters. Fields change only through the
// session's explicit setters.
type Config struct {
	Model          string
	SystemPrompt   string
	MaxTokens      int
	Temperature    *float64
	ThinkingBudget int
	MaxToolRounds  int
	MaxAttachments int
	Debug          bool
}

func (c *Config) applyDefaults() {
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if c.MaxToolRounds <= 0 {
		c.MaxToolRounds = defaultMaxToolRounds
	}
	if c.MaxAttachments <= 0 {
		c.MaxAttachments = defaultMaxAttachments
	}
}

// HistoryStore persists session history between runs.
type HistoryStore interface {
	SaveHistory(sessionID string, msgs []llm.Message) error
	LoadHistory(sessionID string) ([]llm.Message, error)
}

// Session owns one conversation: its history, attachments, and config.
// A session is not safe for concurrent Call; callers serialize. File
// operations may run concurrently with an in-flight Call.
type Session struct {
	id      string
	cfg     Config
	client  llm.Client
	tools   *tool.Registry
	store   HistoryStore
	log     *logging.Logger
	history []llm.Message
	callSeq int

	files *attachmentSet
}

// Option configures a Session.
type Option func(*Session)

// WithID sets the session id (default: random uuid).
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithHistoryStore enables history persistence after each completed turn.
func WithHistoryStore(store HistoryStore) Option {
	return func(s *Session) { s.store = store }
}

// WithFileStore enables file upload/attachment support.
func WithFileStore(fs llm.FileStore) Option {
	return func(s *Session) { s.files.remote = fs }
}

// New creates a session. The registry supplies the base tool set offered to
// the model and dispatches its tool calls.
func New(cfg Config, client llm.Client, tools *tool.Registry, log *logging.Logger, opts ...Option) *Session {
	cfg.applyDefaults()
	s := &Session{
		id:     uuid.New().String(),
		cfg:    cfg,
		client: client,
		tools:  tools,
		log:    log.Sub("session"),
		files:  newAttachmentSet(cfg.MaxAttachments),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// ToolCallRecord describes one tool call made during a turn.
type ToolCallRecord struct {
	ID    string          `json:"id"`
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input"`
	OK    bool            `json:"ok"`
}

// CallResult is the outcome of one Call.
type CallResult struct {
	Text       string           `json:"text"`
	StopReason string           `json:"stopReason"`
	Usage      llm.Usage        `json:"usage"`
	ToolCalls  []ToolCallRecord `json:"toolCalls,omitempty"`
	Rounds     int              `json:"rounds"`
}

// Call sends a user message through the model round-trip / tool-dispatch loop
// and returns the final answer. Options override config for this call only.
func (s *Session) Call(ctx context.Context, message string, opts *CallOptions) (*CallResult, error) {
	s.callSeq++
	seq := s.callSeq

	params := s.resolveParams(opts)
	registry, toolDefs := s.resolveTools(opts)

	s.history = append(s.history, s.userMessage(message))

	if s.cfg.Debug {
		s.log.Debug().
			Int("call", seq).
			Str("model", params.model).
			Str("system", params.system).
			Int("maxTokens", params.maxTokens).
			Int("thinkingBudget", params.thinkingBudget).
			Int("tools", len(toolDefs)).
			Int("historyLen", len(s.history)).
			Msg("call start")
	}

	result := &CallResult{}
	for round := 1; round <= params.maxToolRounds; round++ {
		req := llm.CompletionRequest{
			Model:          params.model,
			System:         params.system,
			Messages:       s.history,
			Tools:          toolDefs,
			MaxTokens:      params.maxTokens,
			Temperature:    params.temperature,
			ThinkingBudget: params.thinkingBudget,
		}

		resp, err := s.client.Complete(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("completion: %w", err)
		}

		s.history = append(s.history, llm.Message{
			Role:    llm.RoleAssistant,
			Content: resp.Content,
		})
		result.Usage.Add(resp.Usage)
		result.Rounds = round

		if s.cfg.Debug {
			s.log.Debug().
				Int("call", seq).
				Int("round", round).
				Str("stopReason", resp.StopReason).
				Int("inputTokens", resp.Usage.InputTokens).
				Int("outputTokens", resp.Usage.OutputTokens).
				Msg("model response")
		}

		uses := resp.ToolUses()
		if resp.StopReason != llm.StopToolUse || len(uses) == 0 {
			result.Text = resp.Text()
			result.StopReason = resp.StopReason
			s.persist()
			return result, nil
		}

		toolMsg := llm.Message{Role: llm.RoleTool}
		for _, use := range uses {
			res := s.dispatch(ctx, registry, use)
			result.ToolCalls = append(result.ToolCalls, ToolCallRecord{
				ID:    use.ID,
				Tool:  use.Name,
				Input: use.Input,
				OK:    res.OK(),
			})
			toolMsg.Content = append(toolMsg.Content, toolResultBlock(use.ID, res))
		}
		s.history = append(s.history, toolMsg)
	}

	s.persist()
	return nil, fmt.Errorf("%w after %d rounds", ErrTurnLimitExceeded, params.maxToolRounds)
}

// userMessage builds the outgoing user message, referencing persistent
// attachments when present.
func (s *Session) userMessage(text string) llm.Message {
	ids := s.files.persistentIDs()
	if len(ids) == 0 {
		return llm.TextMessage(llm.RoleUser, text)
	}
	msg := llm.Message{Role: llm.RoleUser}
	for _, id := range ids {
		msg.Content = append(msg.Content, llm.ContentBlock{Type: "document", FileID: id})
	}
	msg.Content = append(msg.Content, llm.ContentBlock{Type: "text", Text: text})
	return msg
}

// dispatch routes one model tool request through the registry.
func (s *Session) dispatch(ctx context.Context, reg *tool.Registry, use llm.ToolUse) tool.Result {
	var args map[string]any
	if len(use.Input) > 0 {
		if err := json.Unmarshal(use.Input, &args); err != nil {
			return tool.Result{Failure: tool.Failf(tool.KindInvalidArguments, "malformed tool input: %v", err)}
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	s.log.Debug().Str("tool", use.Name).Str("requestId", use.ID).Msg("executing tool call")
	return reg.Dispatch(ctx, tool.Request{ID: use.ID, Tool: use.Name, Args: args})
}

// toolResultBlock renders a dispatch result for the model.
func toolResultBlock(useID string, res tool.Result) llm.ContentBlock {
	block := &llm.ToolResultBlock{ToolUseID: useID}
	if res.Failure != nil {
		block.IsError = true
		block.Content = res.Failure.Error()
	} else {
		data, err := json.Marshal(res.Content)
		if err != nil {
			block.IsError = true
			block.Content = fmt.Sprintf("unserializable tool result: %v", err)
		} else {
			block.Content = string(data)
		}
	}
	return llm.ContentBlock{Type: "tool_result", ToolResult: block}
}

// persist saves history if a store is configured. Persistence problems do not
// fail the turn. The store gets its own copy so it may retain the slice.
func (s *Session) persist() {
	if s.store == nil {
		return
	}
	if err := s.store.SaveHistory(s.id, copyMessages(s.history)); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist history")
	}
}

// Restore loads previously persisted history for this session id.
func (s *Session) Restore() error {
	if s.store == nil {
		return errors.New("no history store configured")
	}
	msgs, err := s.store.LoadHistory(s.id)
	if err != nil {
		return err
	}
	return s.LoadHistory(msgs)
}
