package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpostma/toolgate/internal/logging"
	"github.com/mpostma/toolgate/internal/tool"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logging.New(nil, "silent")

	reg := tool.NewRegistry(log)
	reg.MustRegister(tool.NewDefinition("echo", "Echo the input back.",
		tool.ObjectSchema(map[string]tool.Property{
			"text": {Type: "string", Description: "Text to echo"},
		}, "text"),
		func(ctx context.Context, args map[string]any) (any, error) {
			return map[string]any{"text": args["text"]}, nil
		}))
	reg.MustRegister(tool.NewDefinition("denied", "Always fails.",
		tool.ObjectSchema(nil),
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, tool.Failf(tool.KindAccessDenied, "no entry")
		}))

	srv := New(reg, Capabilities{Filesystem: true, Runner: true}, log)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postRPC(t *testing.T, ts *httptest.Server, body string) (int, rpcResponse) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/mcp", "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) == 0 {
		return resp.StatusCode, rpcResponse{}
	}

	var out rpcResponse
	require.NoError(t, json.Unmarshal(raw, &out))
	return resp.StatusCode, out
}

func TestInitialize(t *testing.T) {
	ts := newTestServer(t)

	status, resp := postRPC(t, ts, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	assert.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]any)
	assert.Equal(t, protocolVersion, result["protocolVersion"])
	info := result["serverInfo"].(map[string]any)
	assert.Equal(t, "toolgate", info["name"])
}

func TestInitializedNotification(t *testing.T) {
	ts := newTestServer(t)

	status, _ := postRPC(t, ts, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestListTools(t *testing.T) {
	ts := newTestServer(t)

	_, resp := postRPC(t, ts, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]any)
	tools := result["tools"].([]any)
	require.Len(t, tools, 2)

	seen := map[string]bool{}
	for _, item := range tools {
		entry := item.(map[string]any)
		name := entry["name"].(string)
		assert.False(t, seen[name], "duplicate tool %s", name)
		seen[name] = true
		require.Contains(t, entry, "inputSchema")
	}
	assert.True(t, seen["echo"])
	assert.True(t, seen["denied"])
}

func TestCallToolSuccess(t *testing.T) {
	ts := newTestServer(t)

	_, resp := postRPC(t, ts, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`)
	require.Nil(t, resp.Error)

	result := resp.Result.(map[string]any)
	assert.Nil(t, result["isError"])

	content := result["content"].([]any)
	require.Len(t, content, 1)
	item := content[0].(map[string]any)
	assert.Equal(t, "text", item["type"])

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(item["text"].(string)), &payload))
	assert.Equal(t, "hi", payload["text"])
}

func TestCallToolHandlerFailureIsInBand(t *testing.T) {
	ts := newTestServer(t)

	_, resp := postRPC(t, ts, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"denied","arguments":{}}}`)
	require.Nil(t, resp.Error, "handler failures must not become protocol errors")

	result := resp.Result.(map[string]any)
	assert.Equal(t, true, result["isError"])
	assert.Equal(t, string(tool.KindAccessDenied), result["failureKind"])
}

func TestCallToolUnknownToolIsProtocolError(t *testing.T) {
	ts := newTestServer(t)

	_, resp := postRPC(t, ts, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"nope"}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestCallToolInvalidArgumentsIsProtocolError(t *testing.T) {
	ts := newTestServer(t)

	_, resp := postRPC(t, ts, `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"echo","arguments":{}}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestCallToolMissingName(t *testing.T) {
	ts := newTestServer(t)

	_, resp := postRPC(t, ts, `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{}}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestMalformedEnvelope(t *testing.T) {
	ts := newTestServer(t)

	_, resp := postRPC(t, ts, `{not json`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeParseError, resp.Error.Code)
}

func TestMissingMethod(t *testing.T) {
	ts := newTestServer(t)

	_, resp := postRPC(t, ts, `{"jsonrpc":"2.0","id":8}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidRequest, resp.Error.Code)
}

func TestMissingID(t *testing.T) {
	ts := newTestServer(t)

	_, resp := postRPC(t, ts, `{"jsonrpc":"2.0","method":"tools/list"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidRequest, resp.Error.Code)
}

func TestUnknownMethod(t *testing.T) {
	ts := newTestServer(t)

	_, resp := postRPC(t, ts, `{"jsonrpc":"2.0","id":9,"method":"tools/destroy"}`)
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 2, health.Tools)
	assert.True(t, health.Capabilities["filesystem"])
	assert.True(t, health.Capabilities["runner"])
	assert.False(t, health.Capabilities["openai"])
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/other")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
