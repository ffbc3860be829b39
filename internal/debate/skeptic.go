package debate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fintel-ai/tribunal/internal/evidence"
	"github.com/fintel-ai/tribunal/internal/model"
	"github.com/fintel-ai/tribunal/internal/narrative"
)

// Skeptic builds the defense case for one debate round.
type Skeptic struct {
	gen       narrative.Generator
	gatherer  *evidence.SkepticGatherer
	maxRounds int
	now       func() time.Time
}

// NewSkeptic wires the defense role.
func NewSkeptic(gen narrative.Generator, gatherer *evidence.SkepticGatherer, maxRounds int) *Skeptic {
	return &Skeptic{gen: gen, gatherer: gatherer, maxRounds: maxRounds, now: time.Now}
}

// Run executes one defense turn. Generator failures degrade into an error
// finding and transcript message, mirroring the prosecution.
func (s *Skeptic) Run(ctx context.Context, state model.DebateState) model.StateDelta {
	zap.L().Info("skeptic turn starting",
		zap.String("uetr", state.UETR),
		zap.Int("round", state.RoundCount),
	)

	resp, err := s.gen.Generate(ctx, narrative.Request{
		System:      skepticSystemPrompt,
		Prompt:      buildSkepticPrompt(state, s.maxRounds),
		Tools:       evidence.SkepticToolSpecs(),
		Temperature: 0.3,
	})
	if err != nil {
		zap.L().Error("skeptic generation failed", zap.Error(err))
		return model.StateDelta{
			SkepticFindings: []string{fmt.Sprintf("Defense analysis error: %v", err)},
			Messages: []model.DebateMessage{{
				Speaker:     model.SpeakerSkeptic,
				Content:     fmt.Sprintf("Defense analysis encountered an error: %v. Unable to complete review.", err),
				EvidenceIDs: []string{},
				Timestamp:   s.now().UTC(),
			}},
			CurrentPhase: model.PhasePtr(model.PhaseVerdict),
		}
	}

	outcomes := make([]evidence.ToolOutcome, 0, len(resp.ToolCalls))
	for _, call := range resp.ToolCalls {
		outcomes = append(outcomes, s.gatherer.Execute(ctx, call, state))
	}
	delta := s.gatherer.Fold(state, outcomes)

	defenseIDs := make([]string, len(delta.SkepticFindings))
	for i := range delta.SkepticFindings {
		defenseIDs[i] = fmt.Sprintf("DEF-%03d", i+1)
	}
	delta.Messages = []model.DebateMessage{{
		Speaker:     model.SpeakerSkeptic,
		Content:     resp.Text,
		EvidenceIDs: defenseIDs,
		Timestamp:   s.now().UTC(),
	}}
	delta.CurrentPhase = model.PhasePtr(model.PhaseVerdict)

	zap.L().Info("skeptic turn complete",
		zap.String("uetr", state.UETR),
		zap.Int("findings", len(delta.SkepticFindings)),
		zap.Float64p("semantic_risk", delta.SemanticRiskScore),
	)
	return delta
}
