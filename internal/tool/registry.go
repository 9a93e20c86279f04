package tool

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mpostma/toolgate/internal/logging"
)

// ErrDuplicateTool is returned by Register when a tool name is already taken.
var ErrDuplicateTool = errors.New("duplicate tool")

// Registry holds the available tools and dispatches calls to them.
//
// Registration must finish before serving begins; after that the registry is
// read-only and Dispatch is safe for concurrent use.
type Registry struct {
	tools map[string]Definition
	sem   chan struct{}
	log   *logging.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMaxConcurrent caps the number of in-flight dispatches. Zero or negative
// means unbounded.
func WithMaxConcurrent(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.sem = make(chan struct{}, n)
		}
	}
}

// NewRegistry creates an empty tool registry.
func NewRegistry(log *logging.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		tools: make(map[string]Definition),
		log:   log.Sub("tools"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool definition. Fails with ErrDuplicateTool if the name is
// already registered.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if def.handler == nil {
		return fmt.Errorf("tool %q has no handler", def.Name)
	}
	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
	}
	r.tools[def.Name] = def
	r.log.Debug().Str("tool", def.Name).Msg("tool registered")
	return nil
}

// MustRegister is Register that panics on error, for startup wiring.
func (r *Registry) MustRegister(def Definition) {
	if err := r.Register(def); err != nil {
		panic(err)
	}
}

// Get returns a tool definition by name.
func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.tools[name]
	return def, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// Definitions returns all registered definitions sorted by name, one entry per
// tool.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.tools))
	for _, d := range r.tools {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Dispatch validates and routes a tool call to its handler. Handler errors and
// panics are captured into the Result; they never propagate to the caller.
func (r *Registry) Dispatch(ctx context.Context, req Request) Result {
	def, ok := r.tools[req.Tool]
	if !ok {
		return Result{Failure: Failf(KindUnknownTool, "tool not found: %s", req.Tool)}
	}

	if f := validateArgs(def.InputSchema, req.Args); f != nil {
		return Result{Failure: f}
	}

	if r.sem != nil {
		select {
		case r.sem <- struct{}{}:
			defer func() { <-r.sem }()
		case <-ctx.Done():
			// Not a tool timeout; the caller gave up while queued for a slot.
			return Result{Failure: Failf(KindInternal, "dispatch canceled while waiting for a slot: %v", ctx.Err())}
		}
	}

	r.log.Debug().Str("tool", req.Tool).Str("requestId", req.ID).Msg("dispatching tool call")
	return r.invoke(ctx, def, req)
}

// invoke runs the handler with panic recovery.
func (r *Registry) invoke(ctx context.Context, def Definition, req Request) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("tool", req.Tool).Any("panic", rec).Msg("tool handler panicked")
			res = Result{Failure: Failf(KindInternal, "tool %s panicked: %v", req.Tool, rec)}
		}
	}()

	content, err := def.handler(ctx, req.Args)
	if err != nil {
		var f *Failure
		if errors.As(err, &f) {
			r.log.Debug().Str("tool", req.Tool).Str("kind", string(f.Kind)).Msg("tool call failed")
			return Result{Failure: f}
		}
		r.log.Warn().Str("tool", req.Tool).Err(err).Msg("tool call failed")
		return Result{Failure: Failf(KindInternal, "%v", err)}
	}
	return Result{Content: content}
}

// validateArgs checks the argument map against the schema. Returns a Failure
// naming the offending field, or nil.
func validateArgs(schema InputSchema, args map[string]any) *Failure {
	for _, name := range schema.Required {
		if _, ok := args[name]; !ok {
			return Failf(KindInvalidArguments, "missing required argument: %s", name)
		}
	}
	for name, val := range args {
		prop, ok := schema.Properties[name]
		if !ok {
			return Failf(KindInvalidArguments, "unrecognized argument: %s", name)
		}
		if !typeMatches(prop.Type, val) {
			return Failf(KindInvalidArguments, "argument %s: expected %s", name, prop.Type)
		}
	}
	return nil
}

// typeMatches checks a decoded JSON value against a schema type name.
func typeMatches(typ string, val any) bool {
	if val == nil {
		return true
	}
	switch typ {
	case "string":
		_, ok := val.(string)
		return ok
	case "number":
		switch val.(type) {
		case float64, int, int64:
			return true
		}
		return false
	case "integer":
		switch v := val.(type) {
		case int, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "boolean":
		_, ok := val.(bool)
		return ok
	case "array":
		_, ok := val.([]any)
		return ok
	case "object":
		_, ok := val.(map[string]any)
		return ok
	default:
		return true
	}
}
