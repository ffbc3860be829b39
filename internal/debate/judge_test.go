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

func TestRiskLevelExtremes(t *testing.T) {
	assert.Equal(t, model.RiskCritical, RiskLevelFor(1, 1, 1, testPolicy))
	assert.Equal(t, model.RiskLow, RiskLevelFor(0, 0, 0, testPolicy))
}

func TestRiskLevelBoundaries(t *testing.T) {
	// combined = 1.0*0.5 + 0.5*0.3 + 1.0*0.2 = 0.85, inclusive critical.
	assert.Equal(t, model.RiskCritical, RiskLevelFor(1.0, 0.5, 1.0, testPolicy))

	// combined just under 0.85 stays high.
	assert.Equal(t, model.RiskHigh, RiskLevelFor(1.0, 0.5, 0.9995, testPolicy))

	// combined = 1.0*0.5 + 0.5*0.3 = 0.65, inclusive high.
	assert.Equal(t, model.RiskHigh, RiskLevelFor(1.0, 0.5, 0, testPolicy))

	// combined = 0.5*0.5 = 0.25, low.
	assert.Equal(t, model.RiskLow, RiskLevelFor(0.5, 0, 0, testPolicy))

	// combined just under 0.40 stays low.
	assert.Equal(t, model.RiskLow, RiskLevelFor(0.79, 0, 0.0095, testPolicy))
}

func TestRiskLevelMonotonic(t *testing.T) {
	rank := map[model.RiskLevel]int{
		model.RiskLow:      0,
		model.RiskMedium:   1,
		model.RiskHigh:     2,
		model.RiskCritical: 3,
	}
	steps := []float64{0, 0.25, 0.5, 0.75, 1}

	for _, s := range steps {
		for _, d := range steps {
			prev := -1
			for _, g := range steps {
				cur := rank[RiskLevelFor(g, s, d, testPolicy)]
				assert.GreaterOrEqual(t, cur, prev, "g=%v s=%v d=%v", g, s, d)
				prev = cur
			}
		}
	}
}

func TestExtractVerdictFencedBlock(t *testing.T) {
	text := "Here is my ruling.\n```json\n{\"verdict\": \"APPROVE\", \"risk_level\": \"low\", \"confidence_score\": 0.9, \"reasoning\": \"clean\"}\n```\nThank you."

	v, err := extractVerdictJSON(text)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictApprove, v.Decision)
	assert.Equal(t, model.RiskLow, v.RiskLevel)
	assert.InDelta(t, 0.9, v.ConfidenceScore, 0.001)
}

func TestExtractVerdictBraceSpan(t *testing.T) {
	text := `My verdict follows: {"verdict": "BLOCK", "risk_level": "critical", "confidence_score": 0.95, "reasoning": "sanctions hit"} end of ruling`

	v, err := extractVerdictJSON(text)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictBlock, v.Decision)
	assert.Equal(t, model.RiskCritical, v.RiskLevel)
}

func TestExtractVerdictWholeText(t *testing.T) {
	v, err := extractVerdictJSON(`{"verdict": "REVIEW", "confidence_score": 0.6}`)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictReview, v.Decision)
}

func TestExtractVerdictProseFailsToRegexTier(t *testing.T) {
	prose := "I believe this transaction is broadly acceptable but cannot be certain."

	_, err := extractVerdictJSON(prose)
	require.Error(t, err)

	v := verdictFromRegex(prose, model.RiskMedium)
	assert.Equal(t, model.VerdictReview, v.Decision)
	assert.Equal(t, model.RiskMedium, v.RiskLevel)
	assert.InDelta(t, 0.5, v.ConfidenceScore, 0.001)
	assert.True(t, v.NeedsMoreEvidence)
	assert.True(t, v.Compliance.HumanOversightRequired)
	assert.Contains(t, v.RecommendedActions, "Review case manually due to parsing uncertainty")
	assert.Contains(t, v.Reasoning, "broadly acceptable")
}

func TestVerdictFromRegexSalvagesLabeledFields(t *testing.T) {
	text := `the model said "verdict": "BLOCK" and "confidence_score": 0.91 with "risk_level": "high" somewhere in broken output`

	v := verdictFromRegex(text, model.RiskLow)
	assert.Equal(t, model.VerdictBlock, v.Decision)
	assert.Equal(t, model.RiskHigh, v.RiskLevel)
	assert.InDelta(t, 0.91, v.ConfidenceScore, 0.001)
	assert.True(t, v.NeedsMoreEvidence)
}

func judgeState() model.DebateState {
	s := model.NewState("tx-judge", model.Transaction{
		UETR:     "tx-judge",
		Debtor:   model.Party{Name: "Apex Trading Ltd"},
		Creditor: model.Party{Name: "Baltic Freight OU"},
		Amount:   model.Amount{Value: "9900.00", Currency: "EUR"},
	})
	s.GraphRiskScore = 0.85
	s.SemanticRiskScore = 0.35
	s.HistoricalDrift = 0.65
	return s
}

func fixedGenerator(text string) narrative.GeneratorFunc {
	return func(ctx context.Context, req narrative.Request) (*narrative.Response, error) {
		return &narrative.Response{Text: text}, nil
	}
}

func TestJudgeRunParsesVerdict(t *testing.T) {
	j := NewJudge(fixedGenerator("```json\n{\"verdict\": \"ESCALATE\", \"risk_level\": \"high\", \"confidence_score\": 0.85, \"reasoning\": \"mixed evidence\", \"needs_more_evidence\": false}\n```"), testPolicy)
	state := judgeState()

	delta := j.Run(context.Background(), state)
	require.NotNil(t, delta.Verdict)
	assert.Equal(t, model.VerdictEscalate, delta.Verdict.Decision)
	require.NotNil(t, delta.RiskLevel)
	assert.Equal(t, model.RiskHigh, *delta.RiskLevel)
	require.NotNil(t, delta.RoundCount)
	assert.Equal(t, state.RoundCount+1, *delta.RoundCount)
	require.NotNil(t, delta.NeedsMoreEvidence)
	assert.False(t, *delta.NeedsMoreEvidence)
	require.NotNil(t, delta.CurrentPhase)
	assert.Equal(t, model.PhaseComplete, *delta.CurrentPhase)
}

func TestJudgeLowConfidenceForcesAnotherRound(t *testing.T) {
	j := NewJudge(fixedGenerator(`{"verdict": "REVIEW", "risk_level": "medium", "confidence_score": 0.5, "reasoning": "unclear", "needs_more_evidence": false}`), testPolicy)
	state := judgeState()

	delta := j.Run(context.Background(), state)
	require.NotNil(t, delta.NeedsMoreEvidence)
	assert.True(t, *delta.NeedsMoreEvidence)
	require.NotNil(t, delta.CurrentPhase)
	assert.Equal(t, model.PhaseInvestigation, *delta.CurrentPhase)
}

func TestJudgeLowConfidenceFinalRoundNoOverride(t *testing.T) {
	j := NewJudge(fixedGenerator(`{"verdict": "REVIEW", "risk_level": "medium", "confidence_score": 0.5, "reasoning": "unclear", "needs_more_evidence": false}`), testPolicy)
	state := judgeState()
	state.RoundCount = 3

	delta := j.Run(context.Background(), state)
	require.NotNil(t, delta.NeedsMoreEvidence)
	assert.False(t, *delta.NeedsMoreEvidence)
	require.NotNil(t, delta.CurrentPhase)
	assert.Equal(t, model.PhaseComplete, *delta.CurrentPhase)
}

func TestJudgeInvalidRiskLevelFallsBackToFormula(t *testing.T) {
	j := NewJudge(fixedGenerator(`{"verdict": "REVIEW", "risk_level": "catastrophic", "confidence_score": 0.9, "reasoning": "x"}`), testPolicy)
	state := judgeState()

	delta := j.Run(context.Background(), state)
	require.NotNil(t, delta.RiskLevel)

	// combined = 0.85*0.5 + 0.35*0.3 + 0.65*0.2 = 0.66, high.
	assert.Equal(t, model.RiskHigh, *delta.RiskLevel)
}

func TestJudgeGeneratorFailureEscalates(t *testing.T) {
	failing := narrative.GeneratorFunc(func(ctx context.Context, req narrative.Request) (*narrative.Response, error) {
		return nil, eris.New("provider unreachable")
	})
	j := NewJudge(failing, testPolicy)
	state := judgeState()

	delta := j.Run(context.Background(), state)
	require.NotNil(t, delta.Verdict)
	assert.Equal(t, model.VerdictEscalate, delta.Verdict.Decision)
	assert.InDelta(t, 0.3, delta.Verdict.ConfidenceScore, 0.001)
	assert.Contains(t, delta.Verdict.Reasoning, "system error")
	assert.True(t, delta.Verdict.Compliance.HumanOversightRequired)
	assert.False(t, delta.Verdict.Compliance.Satisfied)

	require.NotNil(t, delta.NeedsMoreEvidence)
	assert.False(t, *delta.NeedsMoreEvidence)
	require.NotNil(t, delta.RoundCount)
	assert.Equal(t, state.RoundCount+1, *delta.RoundCount)
	require.NotNil(t, delta.RiskLevel)
	assert.Equal(t, model.RiskHigh, *delta.RiskLevel)
	require.Len(t, delta.Messages, 1)
	assert.Equal(t, model.SpeakerJudge, delta.Messages[0].Speaker)
}
