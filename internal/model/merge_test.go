package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStateDefaults(t *testing.T) {
	s := NewState("tx-1", Transaction{UETR: "tx-1"})

	assert.Equal(t, "tx-1", s.UETR)
	assert.Equal(t, 0.5, s.SemanticRiskScore)
	assert.Equal(t, 0.0, s.GraphRiskScore)
	assert.Equal(t, RiskMedium, s.RiskLevel)
	assert.Equal(t, PhaseInvestigation, s.CurrentPhase)
	assert.Equal(t, 1, s.RoundCount)
	assert.False(t, s.NeedsMoreEvidence)
	assert.Nil(t, s.Verdict)
}

func TestMergeAppendsListFields(t *testing.T) {
	s := NewState("tx-1", Transaction{})
	s.ProsecutorFindings = []string{"first"}
	s.Messages = []DebateMessage{{Speaker: SpeakerProsecutor, Content: "opening"}}

	merged := Merge(s, StateDelta{
		ProsecutorFindings: []string{"second"},
		SkepticFindings:    []string{"alibi found"},
		Messages:           []DebateMessage{{Speaker: SpeakerSkeptic, Content: "rebuttal"}},
	})

	assert.Equal(t, []string{"first", "second"}, merged.ProsecutorFindings)
	assert.Equal(t, []string{"alibi found"}, merged.SkepticFindings)
	require.Len(t, merged.Messages, 2)
	assert.Equal(t, SpeakerSkeptic, merged.Messages[1].Speaker)

	// The input state is untouched.
	assert.Equal(t, []string{"first"}, s.ProsecutorFindings)
	assert.Len(t, s.Messages, 1)
}

func TestMergeDoesNotAliasBackingArrays(t *testing.T) {
	s := NewState("tx-1", Transaction{})
	s.SkepticFindings = make([]string, 1, 8)
	s.SkepticFindings[0] = "original"

	merged := Merge(s, StateDelta{SkepticFindings: []string{"added"}})
	merged.SkepticFindings[0] = "mutated"

	assert.Equal(t, "original", s.SkepticFindings[0])
}

func TestMergeScalarOverwritesOnlyWhenSet(t *testing.T) {
	s := NewState("tx-1", Transaction{})
	s.GraphRiskScore = 0.4
	s.ConfidenceScore = 0.7

	merged := Merge(s, StateDelta{GraphRiskScore: Float(0.9)})

	assert.Equal(t, 0.9, merged.GraphRiskScore)
	assert.Equal(t, 0.7, merged.ConfidenceScore)
	assert.Equal(t, 0.5, merged.SemanticRiskScore)
}

func TestMergeFullVerdictDelta(t *testing.T) {
	s := NewState("tx-1", Transaction{})

	v := &Verdict{Decision: VerdictBlock, RiskLevel: RiskCritical, ConfidenceScore: 0.92}
	merged := Merge(s, StateDelta{
		Verdict:           v,
		RiskLevel:         RiskLevelPtr(RiskCritical),
		ConfidenceScore:   Float(0.92),
		CurrentPhase:      PhasePtr(PhaseComplete),
		RoundCount:        Int(2),
		NeedsMoreEvidence: Bool(false),
	})

	assert.Same(t, v, merged.Verdict)
	assert.Equal(t, RiskCritical, merged.RiskLevel)
	assert.Equal(t, 0.92, merged.ConfidenceScore)
	assert.Equal(t, PhaseComplete, merged.CurrentPhase)
	assert.Equal(t, 2, merged.RoundCount)
}

func TestMergeConcatenatesContexts(t *testing.T) {
	s := NewState("tx-1", Transaction{})
	s.GraphContext = "hops: "

	merged := Merge(s, StateDelta{GraphContext: "2 via shell company", DocContext: "no documents"})

	assert.Equal(t, "hops: 2 via shell company", merged.GraphContext)
	assert.Equal(t, "no documents", merged.DocContext)
}

func TestMergeEmptyDeltaIsIdentity(t *testing.T) {
	s := NewState("tx-1", Transaction{UETR: "tx-1"})
	s.ProsecutorFindings = []string{"kept"}
	s.RoundCount = 3

	merged := Merge(s, StateDelta{})

	assert.Equal(t, s, merged)
}
