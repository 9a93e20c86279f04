package session

import (
	"github.com/mpostma/toolgate/internal/llm"
	"github.com/mpostma/toolgate/internal/tool"
)

// CallOptions override session config for a single call. Nil fields keep the
// stored values; the stored config is never mutated.
type CallOptions struct {
	// Temperature overrides the sampling temperature. Ignored when a
	// nonzero thinking budget is in effect (the provider pins it to 1).
	Temperature *float64

	// MaxTokens overrides the output token cap.
	MaxTokens *int

	// ThinkingBudget overrides the reasoning-token budget. Zero disables
	// the reasoning request path entirely.
	ThinkingBudget *int

	// SystemPrompt overrides the system prompt for this call.
	SystemPrompt *string

	// Tools replaces the offered tool list entirely.
	Tools []tool.Definition

	// AdditionalTools extends the base tool list. A definition sharing a base
	// tool's name wins for this call. Ignored when Tools is set.
	AdditionalTools []tool.Definition
}

// callParams are the merged per-call parameters.
type callParams struct {
	model          string
	system         string
	maxTokens      int
	temperature    *float64
	thinkingBudget int
	maxToolRounds  int
}

func (s *Session) resolveParams(opts *CallOptions) callParams {
	p := callParams{
		model:          s.cfg.Model,
		system:         s.cfg.SystemPrompt,
		maxTokens:      s.cfg.MaxTokens,
		temperature:    s.cfg.Temperature,
		thinkingBudget: s.cfg.ThinkingBudget,
		maxToolRounds:  s.cfg.MaxToolRounds,
	}
	if opts == nil {
		return p
	}
	if opts.Temperature != nil {
		p.temperature = opts.Temperature
	}
	if opts.MaxTokens != nil {
		p.maxTokens = *opts.MaxTokens
	}
	if opts.ThinkingBudget != nil {
		p.thinkingBudget = *opts.ThinkingBudget
	}
	if opts.SystemPrompt != nil {
		p.system = *opts.SystemPrompt
	}
	if p.thinkingBudget < 1 {
		p.thinkingBudget = 0
	}
	return p
}

// resolveTools computes the effective dispatch registry and the definitions
// offered to the model for this call.
func (s *Session) resolveTools(opts *CallOptions) (*tool.Registry, []llm.ToolDefinition) {
	base := s.tools

	var extra []tool.Definition
	replace := false
	if opts != nil {
		if opts.Tools != nil {
			extra = opts.Tools
			replace = true
		} else if len(opts.AdditionalTools) > 0 {
			extra = opts.AdditionalTools
		}
	}

	if len(extra) == 0 && !replace {
		return base, toLLMTools(base.Definitions())
	}

	byName := make(map[string]tool.Definition, base.Len()+len(extra))
	if !replace {
		for _, d := range base.Definitions() {
			byName[d.Name] = d
		}
	}
	for _, d := range extra {
		// A per-call definition shadows a base tool of the same name.
		byName[d.Name] = d
	}

	merged := tool.NewRegistry(s.log)
	for _, d := range byName {
		if err := merged.Register(d); err != nil {
			s.log.Warn().Str("tool", d.Name).Err(err).Msg("skipping per-call tool")
		}
	}
	return merged, toLLMTools(merged.Definitions())
}

// toLLMTools converts registry definitions into the provider tool shape.
func toLLMTools(defs []tool.Definition) []llm.ToolDefinition {
	if len(defs) == 0 {
		return nil
	}
	out := make([]llm.ToolDefinition, len(defs))
	for i, d := range defs {
		props := make(map[string]any, len(d.InputSchema.Properties))
		for name, p := range d.InputSchema.Properties {
			prop := map[string]any{"type": p.Type}
			if p.Description != "" {
				prop["description"] = p.Description
			}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}
			props[name] = prop
		}
		out[i] = llm.ToolDefinition{
			Name:        d.Name,
			Description: d.Description,
			Properties:  props,
			Required:    d.InputSchema.Required,
		}
	}
	return out
}
