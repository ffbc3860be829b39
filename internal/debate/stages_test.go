package debate

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintel-ai/tribunal/internal/model"
	"github.com/fintel-ai/tribunal/internal/narrative"
)

func failingGenerator() narrative.GeneratorFunc {
	return func(ctx context.Context, req narrative.Request) (*narrative.Response, error) {
		return nil, eris.New("provider unreachable")
	}
}

func TestProsecutorGeneratorFailureDegrades(t *testing.T) {
	p := NewProsecutor(failingGenerator(), nil, testPolicy.MaxRounds)
	state := model.NewState("tx-flow", sampleTransaction())

	delta := p.Run(context.Background(), state)
	require.Len(t, delta.ProsecutorFindings, 1)
	assert.Contains(t, delta.ProsecutorFindings[0], "Investigation error")
	require.Len(t, delta.Messages, 1)
	assert.Equal(t, model.SpeakerProsecutor, delta.Messages[0].Speaker)
	assert.Contains(t, delta.Messages[0].Content, "Unable to complete analysis")
	require.NotNil(t, delta.CurrentPhase)
	assert.Equal(t, model.PhaseRebuttal, *delta.CurrentPhase)
	assert.Nil(t, delta.GraphRiskScore)
}

func TestSkepticGeneratorFailureDegrades(t *testing.T) {
	s := NewSkeptic(failingGenerator(), nil, testPolicy.MaxRounds)
	state := model.NewState("tx-flow", sampleTransaction())

	delta := s.Run(context.Background(), state)
	require.Len(t, delta.SkepticFindings, 1)
	assert.Contains(t, delta.SkepticFindings[0], "Defense analysis error")
	require.Len(t, delta.Messages, 1)
	assert.Equal(t, model.SpeakerSkeptic, delta.Messages[0].Speaker)
	require.NotNil(t, delta.CurrentPhase)
	assert.Equal(t, model.PhaseVerdict, *delta.CurrentPhase)
	assert.Nil(t, delta.SemanticRiskScore)
}

func TestProsecutorPromptCarriesCase(t *testing.T) {
	state := model.NewState("tx-flow", sampleTransaction())
	state.Messages = []model.DebateMessage{{
		Speaker: model.SpeakerSkeptic,
		Content: "The defense notes a signed contract on file.",
	}}

	prompt := buildProsecutorPrompt(state, testPolicy.MaxRounds)
	assert.Contains(t, prompt, "Apex Trading Ltd")
	assert.Contains(t, prompt, "9900.00")
	assert.Contains(t, prompt, "signed contract")
}

func TestJudgePromptFinalRoundInstruction(t *testing.T) {
	state := model.NewState("tx-flow", sampleTransaction())
	state.RoundCount = testPolicy.MaxRounds

	prompt := buildJudgePrompt(state, 0.66, model.RiskHigh, testPolicy.MaxRounds, testPolicy.ConfidenceThreshold)
	assert.Contains(t, prompt, "Final round")

	state.RoundCount = 1
	prompt = buildJudgePrompt(state, 0.66, model.RiskHigh, testPolicy.MaxRounds, testPolicy.ConfidenceThreshold)
	assert.NotContains(t, prompt, "Final round")
}
