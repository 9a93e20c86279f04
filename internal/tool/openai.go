package tool

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the outbound OpenAI tools.
type OpenAIConfig struct {
	APIKey     string
	ChatModel  string
	ImageModel string
}

// OpenAITools exposes chat completion and image generation as tools.
type OpenAITools struct {
	cfg    OpenAIConfig
	client *openai.Client
}

// NewOpenAITools creates the OpenAI tools. The client is only constructed when
// a credential is present; without one every call fails with
// KindUpstreamUnavailable.
func NewOpenAITools(cfg OpenAIConfig) *OpenAITools {
	if cfg.ChatModel == "" {
		cfg.ChatModel = openai.GPT4oMini
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = openai.CreateImageModelDallE3
	}
	t := &OpenAITools{cfg: cfg}
	if cfg.APIKey != "" {
		t.client = openai.NewClient(cfg.APIKey)
	}
	return t
}

// Available reports whether the OpenAI credential is configured.
func (t *OpenAITools) Available() bool { return t.client != nil }

// RegisterAll adds the OpenAI tools to a registry.
func (t *OpenAITools) RegisterAll(reg *Registry) error {
	defs := []Definition{
		NewDefinition("openai_chat", "Send a prompt to an OpenAI chat model and return its reply.",
			ObjectSchema(map[string]Property{
				"prompt": {Type: "string", Description: "The prompt to send"},
			}, "prompt"),
			t.chat),
		NewDefinition("generate_image", "Generate an image from a text prompt and return its URL.",
			ObjectSchema(map[string]Property{
				"prompt": {Type: "string", Description: "Description of the image to generate"},
			}, "prompt"),
			t.generateImage),
	}
	for _, d := range defs {
		if err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

// upstreamFailure converts an OpenAI client error into a Failure carrying the
// provider's own message where possible.
func upstreamFailure(err error) *Failure {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return Failf(KindUpstreamError, "openai: %s", apiErr.Message)
	}
	return Failf(KindUpstreamError, "openai: %v", err)
}

func (t *OpenAITools) chat(ctx context.Context, args map[string]any) (any, error) {
	if !t.Available() {
		return nil, Failf(KindUpstreamUnavailable, "OPENAI_API_KEY is not configured")
	}
	prompt, _ := args["prompt"].(string)

	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.cfg.ChatModel,
		Messages: []openai.ChatCompletionMessage{{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		}},
	})
	if err != nil {
		return nil, upstreamFailure(err)
	}
	if len(resp.Choices) == 0 {
		return nil, Failf(KindUpstreamError, "openai: empty response")
	}
	return map[string]any{
		"model": resp.Model,
		"reply": resp.Choices[0].Message.Content,
	}, nil
}

func (t *OpenAITools) generateImage(ctx context.Context, args map[string]any) (any, error) {
	if !t.Available() {
		return nil, Failf(KindUpstreamUnavailable, "OPENAI_API_KEY is not configured")
	}
	prompt, _ := args["prompt"].(string)

	resp, err := t.client.CreateImage(ctx, openai.ImageRequest{
		Model:          t.cfg.ImageModel,
		Prompt:         prompt,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return nil, upstreamFailure(err)
	}
	if len(resp.Data) == 0 {
		return nil, Failf(KindUpstreamError, "openai: no image returned")
	}
	return map[string]any{
		"prompt": prompt,
		"url":    resp.Data[0].URL,
	}, nil
}
