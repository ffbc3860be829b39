package narrative

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fintel-ai/tribunal/internal/resilience"
	"github.com/fintel-ai/tribunal/pkg/anthropic"
)

// AnthropicGenerator is the primary narrative provider. It supports tool
// declarations and surfaces the model's tool invocations to the caller.
type AnthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
	role      string
}

// AnthropicOptions configures an AnthropicGenerator.
type AnthropicOptions struct {
	Model             string
	MaxTokens         int64
	Timeout           time.Duration
	RequestsPerMinute float64
	// Role labels log lines, e.g. "prosecutor".
	Role string
}

// NewAnthropicGenerator wraps an Anthropic client as a Generator.
func NewAnthropicGenerator(client anthropic.Client, opts AnthropicOptions) *AnthropicGenerator {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 8192
	}
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.RequestsPerMinute == 0 {
		opts.RequestsPerMinute = 30
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = func(attempt int, err error) {
		zap.L().Warn("retrying anthropic request",
			zap.String("role", opts.Role),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	return &AnthropicGenerator{
		client:    client,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		timeout:   opts.Timeout,
		limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerMinute/60.0), 1),
		retry:     retry,
		role:      opts.Role,
	}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "narrative: rate limit wait")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msgReq := anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    req.System,
		Messages: []anthropic.Message{
			{Role: "user", Content: req.Prompt},
		},
	}
	if req.Temperature > 0 {
		t := req.Temperature
		msgReq.Temperature = &t
	}
	for _, tool := range req.Tools {
		msgReq.Tools = append(msgReq.Tools, anthropic.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			Properties:  tool.Parameters,
			Required:    tool.Required,
		})
	}

	resp, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return g.client.CreateMessage(ctx, msgReq)
	})
	if err != nil {
		return nil, eris.Wrap(err, "narrative: anthropic generate")
	}
	resp.Usage.LogUsage(resp.Model, g.role)

	out := &Response{Text: resp.Text}
	for _, tu := range resp.ToolUses {
		out.ToolCalls = append(out.ToolCalls, ToolCall{Name: tu.Name, Args: tu.Args})
	}
	return out, nil
}
