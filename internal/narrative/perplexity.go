package narrative

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/fintel-ai/tribunal/pkg/perplexity"
)

// PerplexityGenerator is the secondary narrative provider. The API has no
// tool-call surface, so declared tools are folded into the prompt as an
// instruction list and the response carries text only. Callers that need
// tool results treat an empty ToolCalls slice as "no evidence requested".
type PerplexityGenerator struct {
	client  perplexity.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

// PerplexityOptions configures a PerplexityGenerator.
type PerplexityOptions struct {
	Model             string
	Timeout           time.Duration
	RequestsPerMinute float64
}

// NewPerplexityGenerator wraps a Perplexity client as a Generator.
func NewPerplexityGenerator(client perplexity.Client, opts PerplexityOptions) *PerplexityGenerator {
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.RequestsPerMinute == 0 {
		opts.RequestsPerMinute = 20
	}
	return &PerplexityGenerator{
		client:  client,
		model:   opts.Model,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerMinute/60.0), 1),
	}
}

func (g *PerplexityGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "narrative: rate limit wait")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	system := req.System
	if len(req.Tools) > 0 {
		system += "\n\n" + describeTools(req.Tools)
	}

	resp, err := g.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model: g.model,
		Messages: []perplexity.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: req.Prompt},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "narrative: perplexity generate")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("narrative: perplexity returned no choices")
	}

	return &Response{Text: resp.Choices[0].Message.Content}, nil
}

func describeTools(tools []ToolSpec) string {
	var b strings.Builder
	b.WriteString("The following analysis capabilities were consulted on your behalf; reason from their described purpose:\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	return b.String()
}
