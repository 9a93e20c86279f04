package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/mpostma/toolgate/internal/logging"
)

// filesBeta is the beta flag required for file-backed document blocks.
const filesBeta = "files-api-2025-04-14"

// AnthropicClient implements Client over the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	log    *logging.Logger
}

// NewAnthropicClient creates an Anthropic-backed client. With an empty apiKey
// the SDK falls back to the ANTHROPIC_API_KEY environment variable.
func NewAnthropicClient(apiKey string, log *logging.Logger) *AnthropicClient {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	c := anthropic.NewClient(opts...)
	return &AnthropicClient{client: &c, log: log.Sub("anthropic")}
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string { return "anthropic" }

// Complete sends a messages request. When req.ThinkingBudget is at least 1 the
// request enables extended thinking, which requires temperature 1; any caller
// temperature is overridden in that case.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	params := buildParams(req)

	var callOpts []option.RequestOption
	if hasDocumentBlocks(req.Messages) {
		callOpts = append(callOpts, option.WithHeader("anthropic-beta", filesBeta))
	}

	resp, err := c.client.Messages.New(ctx, params, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	out := &CompletionResponse{
		StopReason: string(resp.StopReason),
		Model:      string(resp.Model),
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Content = append(out.Content, ContentBlock{Type: "text", Text: block.Text})
		case "tool_use":
			toolUse := block.AsToolUse()
			out.Content = append(out.Content, ContentBlock{
				Type: "tool_use",
				ToolUse: &ToolUse{
					ID:    toolUse.ID,
					Name:  toolUse.Name,
					Input: toolUse.Input,
				},
			})
		case "thinking":
			// Thinking blocks are deliberation, not output.
			c.log.Debug().Int("len", len(block.AsThinking().Thinking)).Msg("thinking block received")
		}
	}
	return out, nil
}

// buildParams assembles the messages request. A thinking budget of at least 1
// enables extended thinking and pins temperature to 1; otherwise the caller
// temperature, if any, passes through.
func buildParams(req CompletionRequest) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  toAnthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
	}

	if req.ThinkingBudget >= 1 {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(int64(req.ThinkingBudget))
		params.Temperature = anthropic.Float(1.0)
	} else if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	return params
}

func hasDocumentBlocks(msgs []Message) bool {
	for _, m := range msgs {
		for _, b := range m.Content {
			if b.Type == "document" {
				return true
			}
		}
	}
	return false
}

func toAnthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, td := range tools {
		schema := anthropic.ToolInputSchemaParam{Properties: td.Properties}
		if len(td.Required) > 0 {
			schema.Required = td.Required
		}
		t := anthropic.ToolUnionParamOfTool(schema, td.Name)
		if td.Description != "" {
			t.OfTool.Description = param.NewOpt(td.Description)
		}
		out[i] = t
	}
	return out
}

func toAnthropicMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case RoleUser:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
			for _, b := range msg.Content {
				switch b.Type {
				case "text":
					blocks = append(blocks, anthropic.NewTextBlock(b.Text))
				case "document":
					blocks = append(blocks, documentBlock(b.FileID))
				}
			}
			out = append(out, anthropic.NewUserMessage(blocks...))

		case RoleAssistant:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
			for _, b := range msg.Content {
				switch b.Type {
				case "text":
					blocks = append(blocks, anthropic.NewTextBlock(b.Text))
				case "tool_use":
					if b.ToolUse != nil {
						var input map[string]any
						_ = json.Unmarshal(b.ToolUse.Input, &input)
						blocks = append(blocks, anthropic.NewToolUseBlock(b.ToolUse.ID, input, b.ToolUse.Name))
					}
				}
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))

		case RoleTool:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
			for _, b := range msg.Content {
				if b.Type == "tool_result" && b.ToolResult != nil {
					blocks = append(blocks, anthropic.NewToolResultBlock(
						b.ToolResult.ToolUseID, b.ToolResult.Content, b.ToolResult.IsError))
				}
			}
			// The API has no tool role; results travel as user content.
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

// documentBlock references an uploaded file with ephemeral caching, so a
// persistent attachment is not re-tokenized on every turn.
func documentBlock(fileID string) anthropic.ContentBlockParamUnion {
	return anthropic.ContentBlockParamUnion{
		OfDocument: &anthropic.DocumentBlockParam{
			Source: anthropic.DocumentBlockParamSourceUnion{
				OfFile: &anthropic.FileDocumentSourceParam{FileID: fileID},
			},
			CacheControl: anthropic.NewCacheControlEphemeralParam(),
		},
	}
}
