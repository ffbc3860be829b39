package evidence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fintel-ai/tribunal/internal/config"
	"github.com/fintel-ai/tribunal/internal/intel"
	"github.com/fintel-ai/tribunal/internal/model"
	"github.com/fintel-ai/tribunal/internal/narrative"
)

// ProsecutorGatherer executes the prosecution's investigation tools and
// folds results into incriminating findings and a ratcheting graph risk
// score.
type ProsecutorGatherer struct {
	graph  intel.GraphService
	memory intel.MemoryService
	policy config.PolicyConfig
	now    func() time.Time
}

// NewProsecutorGatherer wires the prosecution tools.
func NewProsecutorGatherer(graph intel.GraphService, memory intel.MemoryService, policy config.PolicyConfig) *ProsecutorGatherer {
	return &ProsecutorGatherer{graph: graph, memory: memory, policy: policy, now: time.Now}
}

// Execute runs one requested tool call. The debtor is the default subject
// when the generator did not name an entity.
func (g *ProsecutorGatherer) Execute(ctx context.Context, call narrative.ToolCall, state model.DebateState) ToolOutcome {
	kind, ok := KindFromName(call.Name)
	out := ToolOutcome{Kind: kind, Name: call.Name, Args: call.Args}
	if !ok {
		out.Err = eris.Errorf("evidence: unknown tool %q", call.Name)
		return out
	}

	debtor := state.Transaction.Debtor.Name

	var payload any
	var err error
	switch kind {
	case KindHiddenLinks:
		entity := stringArg(call.Args, "entity_name", debtor)
		maxHops := intArg(call.Args, "max_hops", 3)
		payload, err = g.graph.FindHiddenLinks(ctx, entity, maxHops)
	case KindFraudRings:
		payload, err = g.graph.DetectFraudRings(ctx)
	case KindTopology:
		uetr := stringArg(call.Args, "uetr", state.UETR)
		payload, err = g.graph.TransactionTopology(ctx, uetr)
	case KindLayering:
		entity := stringArg(call.Args, "entity_name", debtor)
		minLen := intArg(call.Args, "min_cycle_length", 3)
		maxLen := intArg(call.Args, "max_cycle_length", 6)
		payload, err = g.graph.FindLayeringCycles(ctx, entity, minLen, maxLen)
	case KindBehavioralDrift:
		entity := stringArg(call.Args, "entity_id", debtor)
		payload, err = g.memory.CheckBehavioralDrift(ctx, entity)
	case KindEntityProfile:
		entity := stringArg(call.Args, "entity_id", debtor)
		payload, err = g.memory.EntityProfile(ctx, entity)
	case KindInvestigationHistory:
		entity := stringArg(call.Args, "entity_id", debtor)
		payload, err = g.memory.InvestigationHistory(ctx, entity)
	default:
		err = eris.Errorf("evidence: tool %q is not a prosecution tool", call.Name)
	}

	if err != nil {
		zap.L().Warn("prosecution tool failed",
			zap.String("tool", call.Name),
			zap.Error(err),
		)
		out.Err = err
		return out
	}
	out.Payload = payload
	return out
}

// Fold turns executed outcomes into the prosecution's state delta. The
// graph risk score starts from the current state value and only ratchets
// upward through the policy floors; failed outcomes contribute nothing
// beyond their audit record.
func (g *ProsecutorGatherer) Fold(state model.DebateState, outcomes []ToolOutcome) model.StateDelta {
	score := state.GraphRiskScore
	now := g.now().UTC()

	var delta model.StateDelta
	for _, o := range outcomes {
		delta.ToolCalls = append(delta.ToolCalls, o.record(model.SpeakerProsecutor, now))
		if o.Err != nil || o.Payload == nil {
			continue
		}
		delta.GraphContext += o.contextSection()

		switch res := o.Payload.(type) {
		case *intel.HiddenLinkResult:
			if !res.HasHiddenLinks {
				continue
			}
			for _, p := range res.Paths {
				delta.HiddenLinks = append(delta.HiddenLinks, model.HiddenLink{
					RiskEntity: p.RiskEntity,
					RiskLabels: p.RiskLabels,
					PathNodes:  p.PathNodes,
					Distance:   p.Distance,
				})
			}
			score = max(score, g.policy.FloorHiddenLink)
			riskEntity := "Unknown"
			if len(res.Paths) > 0 {
				riskEntity = res.Paths[0].RiskEntity
			}
			delta.ProsecutorFindings = append(delta.ProsecutorFindings, fmt.Sprintf(
				"HIDDEN LINK TO HIGH-RISK ENTITY: Found %d connection path(s) to sanctioned or watchlisted entities. Risk entity: %s",
				len(res.Paths), riskEntity))

		case *intel.FraudRingResult:
			if !res.HighRisk {
				continue
			}
			score = max(score, g.policy.FloorFraudRing)
			delta.ProsecutorFindings = append(delta.ProsecutorFindings, fmt.Sprintf(
				"FRAUD RING MEMBERSHIP: Entity is part of %d potential fraud ring structure(s). Ring members include known high-risk entities.",
				res.RingsDetected))

		case *intel.LayeringResult:
			if res.LayeringRisk != "high" {
				continue
			}
			score = max(score, g.policy.FloorLayering)
			delta.ProsecutorFindings = append(delta.ProsecutorFindings, fmt.Sprintf(
				"LAYERING PATTERN DETECTED: Found %d circular money flow pattern(s) consistent with money laundering layering techniques.",
				res.CyclesDetected))

		case *intel.DriftResult:
			if !res.DriftDetected {
				continue
			}
			score = max(score, g.policy.FloorDrift)
			delta.ProsecutorFindings = append(delta.ProsecutorFindings, fmt.Sprintf(
				"BEHAVIORAL ANOMALY: Entity shows significant deviation from historical baseline. Drift score: %.2f. Anomalies: %s",
				res.DriftScore, strings.Join(res.DriftReasons, "; ")))

		case *intel.Profile:
			if len(res.RiskFlags) == 0 {
				continue
			}
			score = max(score, g.policy.FloorRiskFlags)
			flags := make([]string, 0, 5)
			for i, f := range res.RiskFlags {
				if i >= 5 {
					break
				}
				flags = append(flags, f.Content)
			}
			delta.ProsecutorFindings = append(delta.ProsecutorFindings, fmt.Sprintf(
				"ENTITY RISK FLAGS: %d risk indicator(s) found: %s",
				len(res.RiskFlags), strings.Join(flags, ", ")))

		case *intel.History:
			if !res.HasPriorIssues {
				continue
			}
			score = max(score, g.policy.FloorPriorHistory)
			delta.ProsecutorFindings = append(delta.ProsecutorFindings, fmt.Sprintf(
				"PRIOR INVESTIGATION HISTORY: Entity has %d prior suspicious activity report(s) or investigation(s) on record.",
				res.PastInvestigations+len(res.ActiveRiskFlags)))
		}
	}

	delta.GraphRiskScore = model.Float(score)
	return delta
}
