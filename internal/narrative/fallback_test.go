package narrative

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stub(resp *Response, err error) GeneratorFunc {
	return func(ctx context.Context, req Request) (*Response, error) {
		return resp, err
	}
}

func TestFallbackPrimarySucceeds(t *testing.T) {
	g := NewFallbackGenerator(
		stub(&Response{Text: "primary"}, nil),
		stub(&Response{Text: "secondary"}, nil),
	)

	resp, err := g.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "primary", resp.Text)
}

func TestFallbackOnRateLimit(t *testing.T) {
	g := NewFallbackGenerator(
		stub(nil, errors.New("anthropic: create message: 429 Too Many Requests")),
		stub(&Response{Text: "secondary"}, nil),
	)

	resp, err := g.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "secondary", resp.Text)
}

func TestFallbackQuotaExhausted(t *testing.T) {
	g := NewFallbackGenerator(
		stub(nil, errors.New("monthly quota exceeded")),
		stub(&Response{Text: "secondary"}, nil),
	)

	resp, err := g.Generate(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "secondary", resp.Text)
}

func TestFallbackNonRateErrorPropagates(t *testing.T) {
	primaryErr := errors.New("anthropic: create message: invalid request")
	secondaryCalled := false
	g := NewFallbackGenerator(
		stub(nil, primaryErr),
		GeneratorFunc(func(ctx context.Context, req Request) (*Response, error) {
			secondaryCalled = true
			return &Response{Text: "secondary"}, nil
		}),
	)

	_, err := g.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.False(t, secondaryCalled)
}

func TestFallbackSecondaryFailurePropagates(t *testing.T) {
	secondaryErr := errors.New("perplexity: unexpected status 500")
	g := NewFallbackGenerator(
		stub(nil, errors.New("rate limit hit")),
		stub(nil, secondaryErr),
	)

	_, err := g.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, secondaryErr, err)
}

func TestFallbackNoSecondary(t *testing.T) {
	g := NewFallbackGenerator(
		stub(nil, errors.New("429 rate limited")),
		nil,
	)

	_, err := g.Generate(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
}
