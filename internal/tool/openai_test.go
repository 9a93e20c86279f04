package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIUnavailableWithoutCredential(t *testing.T) {
	tools := NewOpenAITools(OpenAIConfig{})
	assert.False(t, tools.Available())

	_, err := tools.chat(context.Background(), map[string]any{"prompt": "hi"})
	var fail *Failure
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, KindUpstreamUnavailable, fail.Kind)

	_, err = tools.generateImage(context.Background(), map[string]any{"prompt": "a cat"})
	require.ErrorAs(t, err, &fail)
	assert.Equal(t, KindUpstreamUnavailable, fail.Kind)
}

func TestOpenAIRegisterAll(t *testing.T) {
	reg := NewRegistry(silentLog())
	tools := NewOpenAITools(OpenAIConfig{})
	require.NoError(t, tools.RegisterAll(reg))

	_, ok := reg.Get("openai_chat")
	assert.True(t, ok)
	_, ok = reg.Get("generate_image")
	assert.True(t, ok)

	// Tools stay registered without a credential so callers get a clear
	// upstream_unavailable failure instead of unknown_tool.
	res := reg.Dispatch(context.Background(), Request{Tool: "openai_chat", Args: map[string]any{"prompt": "hi"}})
	require.NotNil(t, res.Failure)
	assert.Equal(t, KindUpstreamUnavailable, res.Failure.Kind)
}
