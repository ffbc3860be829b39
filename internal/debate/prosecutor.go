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

// Prosecutor builds the incriminating case for one debate round.
type Prosecutor struct {
	gen       narrative.Generator
	gatherer  *evidence.ProsecutorGatherer
	maxRounds int
	now       func() time.Time
}

// NewProsecutor wires the prosecution role.
func NewProsecutor(gen narrative.Generator, gatherer *evidence.ProsecutorGatherer, maxRounds int) *Prosecutor {
	return &Prosecutor{gen: gen, gatherer: gatherer, maxRounds: maxRounds, now: time.Now}
}

// Run executes one prosecution turn. A generator failure degrades into an
// error finding and transcript message rather than an error return, so a
// provider outage never aborts the investigation.
func (p *Prosecutor) Run(ctx context.Context, state model.DebateState) model.StateDelta {
	zap.L().Info("prosecutor turn starting",
		zap.String("uetr", state.UETR),
		zap.Int("round", state.RoundCount),
	)

	resp, err := p.gen.Generate(ctx, narrative.Request{
		System:      prosecutorSystemPrompt,
		Prompt:      buildProsecutorPrompt(state, p.maxRounds),
		Tools:       evidence.ProsecutorToolSpecs(),
		Temperature: 0.3,
	})
	if err != nil {
		zap.L().Error("prosecutor generation failed", zap.Error(err))
		return model.StateDelta{
			ProsecutorFindings: []string{fmt.Sprintf("Investigation error: %v", err)},
			Messages: []model.DebateMessage{{
				Speaker:     model.SpeakerProsecutor,
				Content:     fmt.Sprintf("Investigation encountered an error: %v. Unable to complete analysis.", err),
				EvidenceIDs: []string{},
				Timestamp:   p.now().UTC(),
			}},
			CurrentPhase: model.PhasePtr(model.PhaseRebuttal),
		}
	}

	outcomes := make([]evidence.ToolOutcome, 0, len(resp.ToolCalls))
	for _, call := range resp.ToolCalls {
		outcomes = append(outcomes, p.gatherer.Execute(ctx, call, state))
	}
	delta := p.gatherer.Fold(state, outcomes)

	evidenceIDs := make([]string, len(delta.ProsecutorFindings))
	for i := range delta.ProsecutorFindings {
		evidenceIDs[i] = fmt.Sprintf("EVID-%03d", i+1)
	}
	delta.Messages = []model.DebateMessage{{
		Speaker:     model.SpeakerProsecutor,
		Content:     resp.Text,
		EvidenceIDs: evidenceIDs,
		Timestamp:   p.now().UTC(),
	}}
	delta.CurrentPhase = model.PhasePtr(model.PhaseRebuttal)

	zap.L().Info("prosecutor turn complete",
		zap.String("uetr", state.UETR),
		zap.Int("findings", len(delta.ProsecutorFindings)),
		zap.Int("hidden_links", len(delta.HiddenLinks)),
		zap.Float64p("graph_risk", delta.GraphRiskScore),
	)
	return delta
}
