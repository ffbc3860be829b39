package evidence

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintel-ai/tribunal/internal/intel"
	"github.com/fintel-ai/tribunal/internal/model"
	"github.com/fintel-ai/tribunal/internal/narrative"
)

func sampleState() model.DebateState {
	return model.NewState("tx-100", model.Transaction{
		UETR:   "tx-100",
		Debtor: model.Party{Name: "Apex Trading Ltd"},
		Creditor: model.Party{
			Name: "Baltic Freight OU",
		},
		Amount: model.Amount{Value: "9900.00", Currency: "EUR"},
	})
}

func TestProsecutorFoldAppliesFloors(t *testing.T) {
	g := NewProsecutorGatherer(nil, nil, defaultTestPolicy)
	state := sampleState()

	outcomes := []ToolOutcome{
		{
			Kind: KindHiddenLinks,
			Name: KindHiddenLinks.Name(),
			Payload: &intel.HiddenLinkResult{
				HasHiddenLinks:   true,
				ConnectionsFound: 1,
				Paths: []intel.LinkPath{
					{Distance: 2, RiskEntity: "Crimson Holdings SA", RiskLabels: []string{"sanctioned"}},
				},
			},
		},
		{
			Kind:    KindBehavioralDrift,
			Name:    KindBehavioralDrift.Name(),
			Payload: &intel.DriftResult{DriftDetected: true, DriftScore: 0.8, DriftReasons: []string{"Sector shift detected"}},
		},
	}

	delta := g.Fold(state, outcomes)
	require.NotNil(t, delta.GraphRiskScore)

	// Hidden link floor dominates the drift floor.
	assert.InDelta(t, 0.85, *delta.GraphRiskScore, 0.001)
	assert.Len(t, delta.ProsecutorFindings, 2)
	assert.Len(t, delta.HiddenLinks, 1)
	assert.Contains(t, delta.ProsecutorFindings[0], "Crimson Holdings SA")
}

func TestProsecutorFoldRatchetsNeverDown(t *testing.T) {
	g := NewProsecutorGatherer(nil, nil, defaultTestPolicy)
	state := sampleState()
	state.GraphRiskScore = 0.92

	outcomes := []ToolOutcome{
		{
			Kind:    KindLayering,
			Name:    KindLayering.Name(),
			Payload: &intel.LayeringResult{LayeringRisk: "high", CyclesDetected: 2},
		},
	}

	delta := g.Fold(state, outcomes)
	require.NotNil(t, delta.GraphRiskScore)
	assert.InDelta(t, 0.92, *delta.GraphRiskScore, 0.001)
}

func TestProsecutorFoldFraudRingFloor(t *testing.T) {
	g := NewProsecutorGatherer(nil, nil, defaultTestPolicy)

	delta := g.Fold(sampleState(), []ToolOutcome{
		{
			Kind:    KindFraudRings,
			Name:    KindFraudRings.Name(),
			Payload: &intel.FraudRingResult{HighRisk: true, RingsDetected: 1},
		},
	})

	require.NotNil(t, delta.GraphRiskScore)
	assert.InDelta(t, 0.90, *delta.GraphRiskScore, 0.001)
}

func TestProsecutorFoldErrorOutcomeFailOpen(t *testing.T) {
	g := NewProsecutorGatherer(nil, nil, defaultTestPolicy)

	delta := g.Fold(sampleState(), []ToolOutcome{
		{
			Kind: KindHiddenLinks,
			Name: KindHiddenLinks.Name(),
			Err:  eris.New("graph service unavailable"),
		},
	})

	require.NotNil(t, delta.GraphRiskScore)
	assert.Zero(t, *delta.GraphRiskScore)
	assert.Empty(t, delta.ProsecutorFindings)

	// The failed attempt still lands in the audit trail.
	require.Len(t, delta.ToolCalls, 1)
	assert.Contains(t, delta.ToolCalls[0].Result, "graph service unavailable")
	assert.Equal(t, model.SpeakerProsecutor, delta.ToolCalls[0].Agent)
}

func TestProsecutorFoldNonTriggeringResults(t *testing.T) {
	g := NewProsecutorGatherer(nil, nil, defaultTestPolicy)

	delta := g.Fold(sampleState(), []ToolOutcome{
		{Kind: KindHiddenLinks, Name: KindHiddenLinks.Name(), Payload: &intel.HiddenLinkResult{HasHiddenLinks: false}},
		{Kind: KindLayering, Name: KindLayering.Name(), Payload: &intel.LayeringResult{LayeringRisk: "low"}},
		{Kind: KindInvestigationHistory, Name: KindInvestigationHistory.Name(), Payload: &intel.History{HasPriorIssues: false}},
	})

	require.NotNil(t, delta.GraphRiskScore)
	assert.Zero(t, *delta.GraphRiskScore)
	assert.Empty(t, delta.ProsecutorFindings)
	assert.Len(t, delta.ToolCalls, 3)
	assert.NotEmpty(t, delta.GraphContext)
}

func TestProsecutorExecuteDefaultsToDebtor(t *testing.T) {
	fixture := &intel.Fixture{
		Entities: []intel.FixtureEntity{
			{Name: "Apex Trading Ltd"},
			{Name: "Crimson Holdings SA", Labels: []string{"sanctioned"}},
		},
		Edges: []intel.FixtureEdge{
			{From: "Apex Trading Ltd", To: "Crimson Holdings SA", Kind: "sent_funds", Amount: 5000},
		},
	}
	g := NewProsecutorGatherer(intel.NewGraph(fixture), nil, defaultTestPolicy)

	out := g.Execute(context.Background(), narrative.ToolCall{Name: "find_hidden_links"}, sampleState())
	require.NoError(t, out.Err)

	res, ok := out.Payload.(*intel.HiddenLinkResult)
	require.True(t, ok)
	assert.True(t, res.HasHiddenLinks)
}

func TestProsecutorExecuteUnknownTool(t *testing.T) {
	g := NewProsecutorGatherer(nil, nil, defaultTestPolicy)

	out := g.Execute(context.Background(), narrative.ToolCall{Name: "launch_missiles"}, sampleState())
	require.Error(t, out.Err)
	assert.Equal(t, KindUnknown, out.Kind)
}
