// Package tool provides the tool registry and dispatcher: named,
// schema-described capabilities that can be invoked with structured arguments
// either over the MCP endpoint or directly from a conversation session.
package tool

import (
	"context"
	"fmt"
)

// FailureKind classifies tool call failures.
type FailureKind string

const (
	KindUnknownTool         FailureKind = "unknown_tool"
	KindInvalidArguments    FailureKind = "invalid_arguments"
	KindAccessDenied        FailureKind = "access_denied"
	KindNotFound            FailureKind = "not_found"
	KindTooLarge            FailureKind = "too_large"
	KindTimeout             FailureKind = "timeout"
	KindExecutionError      FailureKind = "execution_error"
	KindUpstreamUnavailable FailureKind = "upstream_unavailable"
	KindUpstreamError       FailureKind = "upstream_error"
	KindInternal            FailureKind = "internal"
)

// Failure describes why a tool call did not produce a result. It implements
// error so handlers can return it directly.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

func (f *Failure) Error() string {
	return string(f.Kind) + ": " + f.Message
}

// Failf builds a Failure with a formatted message.
func Failf(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Handler executes a tool call. Arguments have already been validated against
// the tool's input schema. A handler reports typed failures by returning a
// *Failure; any other error is treated as an internal fault.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Property describes a single schema parameter.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// InputSchema is the JSON Schema (object-typed) for a tool's arguments.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// ObjectSchema builds an object-typed input schema.
func ObjectSchema(props map[string]Property, required ...string) InputSchema {
	return InputSchema{Type: "object", Properties: props, Required: required}
}

// Definition describes a registered tool. Immutable once registered.
type Definition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`

	handler Handler
}

// NewDefinition builds a tool definition with its handler bound.
func NewDefinition(name, description string, schema InputSchema, h Handler) Definition {
	return Definition{Name: name, Description: description, InputSchema: schema, handler: h}
}

// Request is one tool invocation. Lives only for the duration of a dispatch.
type Request struct {
	ID   string         `json:"id,omitempty"`
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// Result is either a success payload or a failure descriptor, never both.
type Result struct {
	Content any      `json:"content,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Failure == nil }
