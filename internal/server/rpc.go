package server

import (
	"encoding/json"

	"github.com/mpostma/toolgate/internal/tool"
)

const jsonrpcVersion = "2.0"

// JSON-RPC protocol error codes. These cover envelope-level faults and are
// distinct from tool-level failure kinds, which travel inside call results.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// rpcRequest is the JSON-RPC request envelope.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// rpcResponse is the JSON-RPC response envelope.
type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

// rpcError is the JSON-RPC error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// callToolParams are the parameters of a tools/call request.
type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// contentItem is one entry in a tool result's content list.
type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// toolCallResult is the tools/call result payload. Handler failures are
// reported in-band with isError so the calling conversation can continue.
type toolCallResult struct {
	Content     []contentItem    `json:"content"`
	IsError     bool             `json:"isError,omitempty"`
	FailureKind tool.FailureKind `json:"failureKind,omitempty"`
}

// listToolsResult is the tools/list result payload.
type listToolsResult struct {
	Tools []tool.Definition `json:"tools"`
}

// initializeResult is the initialize handshake payload.
type initializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    capabilities `json:"capabilities"`
	ServerInfo      serverInfo   `json:"serverInfo"`
}

type capabilities struct {
	Tools map[string]any `json:"tools"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// healthResponse is the GET /health payload. It reports availability without
// executing any tool.
type healthResponse struct {
	Status       string          `json:"status"`
	Version      string          `json:"version"`
	Tools        int             `json:"tools"`
	Capabilities map[string]bool `json:"capabilities"`
}
