// Package narrative abstracts the text-generation providers behind a
// single Generator contract. The debate agents hand it a role prompt and
// a set of declared tools; what comes back is free-form text plus any
// tool invocations the model requested. Provider selection, fallback,
// rate limiting, and timeouts all live here so the debate core stays
// free of I/O concerns.
package narrative

import "context"

// ToolSpec declares a callable tool offered to the generator.
type ToolSpec struct {
	Name        string
	Description string
	// Parameters maps parameter name to a JSON-schema fragment.
	Parameters map[string]any
	Required   []string
}

// ToolCall is a tool invocation requested by the generator.
type ToolCall struct {
	Name string
	Args map[string]any
}

// Request carries one role-specific invocation.
type Request struct {
	System      string
	Prompt      string
	Tools       []ToolSpec
	Temperature float64
}

// Response is what a provider produced for a Request.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Generator produces narrative text, optionally requesting tool calls.
// Implementations may block on network I/O; callers bound them with the
// request context.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, req Request) (*Response, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
