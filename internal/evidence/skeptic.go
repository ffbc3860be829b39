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

// SkepticGatherer executes the defense tools and folds exculpatory
// results into a reduced semantic risk score.
type SkepticGatherer struct {
	docs   intel.DocumentService
	memory intel.MemoryService
	policy config.PolicyConfig
	now    func() time.Time
}

// NewSkepticGatherer wires the defense tools.
func NewSkepticGatherer(docs intel.DocumentService, memory intel.MemoryService, policy config.PolicyConfig) *SkepticGatherer {
	return &SkepticGatherer{docs: docs, memory: memory, policy: policy, now: time.Now}
}

// Execute runs one requested defense tool call.
func (g *SkepticGatherer) Execute(ctx context.Context, call narrative.ToolCall, state model.DebateState) ToolOutcome {
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
	case KindAlibi:
		query := stringArg(call.Args, "query", "legitimate business "+debtor)
		entity := stringArg(call.Args, "entity_name", debtor)
		payload, err = g.docs.SearchAlibi(ctx, query, entity)
	case KindPaymentJustification:
		entity := stringArg(call.Args, "entity_name", debtor)
		purpose := stringArg(call.Args, "purpose", state.Transaction.RemittanceInfo)
		payload, err = g.docs.SearchPaymentJustification(ctx, entity, purpose)
	case KindRegulation:
		query := stringArg(call.Args, "query", "transparency requirements high risk AI")
		regType := stringArg(call.Args, "regulation_type", "eu_ai_act")
		payload, err = g.docs.ConsultRegulation(ctx, query, regType)
	case KindAdverseMedia:
		entity := stringArg(call.Args, "entity_name", debtor)
		payload, err = g.docs.SearchAdverseMedia(ctx, entity)
	case KindEntityProfile:
		entity := stringArg(call.Args, "entity_id", debtor)
		payload, err = g.memory.EntityProfile(ctx, entity)
	case KindPeerGroup:
		entity := stringArg(call.Args, "entity_id", debtor)
		peerType := stringArg(call.Args, "peer_type", "similar_industry")
		payload, err = g.memory.ComparePeerGroup(ctx, entity, peerType)
	default:
		err = eris.Errorf("evidence: tool %q is not a defense tool", call.Name)
	}

	if err != nil {
		zap.L().Warn("defense tool failed",
			zap.String("tool", call.Name),
			zap.Error(err),
		)
		out.Err = err
		return out
	}
	out.Payload = payload
	return out
}

// Fold turns executed outcomes into the defense's state delta. Each
// exculpatory result adds a fixed reduction; an adverse media hit moves
// the score the other way. The final semantic risk is the current score
// minus the total reduction, clamped to [0,1].
func (g *SkepticGatherer) Fold(state model.DebateState, outcomes []ToolOutcome) model.StateDelta {
	reduction := 0.0
	now := g.now().UTC()

	var delta model.StateDelta
	for _, o := range outcomes {
		delta.ToolCalls = append(delta.ToolCalls, o.record(model.SpeakerSkeptic, now))
		if o.Err != nil || o.Payload == nil {
			continue
		}
		delta.DocContext += o.contextSection()

		switch res := o.Payload.(type) {
		case *intel.AlibiResult:
			if !res.HasAlibi {
				continue
			}
			for _, e := range res.Evidence {
				delta.AlibiEvidence = append(delta.AlibiEvidence, e.Content)
			}
			reduction += g.policy.ReductionAlibi
			delta.SkepticFindings = append(delta.SkepticFindings, fmt.Sprintf(
				"LEGITIMATE BUSINESS CONTEXT FOUND: %d supporting document(s) provide business justification for the transaction pattern.",
				len(res.Evidence)))

		case *intel.JustificationResult:
			if !res.HasValidAuthorization {
				continue
			}
			for _, j := range res.Justifications {
				delta.AlibiEvidence = append(delta.AlibiEvidence, j.Content)
			}
			reduction += g.policy.ReductionPaymentAuth
			delta.SkepticFindings = append(delta.SkepticFindings,
				"AUTHORIZED PAYMENT FOUND: Transaction matches authorized payment schedule. Amount is consistent with established payment grid.")

		case *intel.RegulationResult:
			// Regulatory guidance informs the judge but moves no score.
			if len(res.Citations) == 0 {
				continue
			}
			guidance := res.Citations[0].Content
			if len(guidance) > 200 {
				guidance = guidance[:200] + "..."
			}
			delta.SkepticFindings = append(delta.SkepticFindings, "REGULATORY CONTEXT: "+guidance)

		case *intel.Profile:
			if res.ProfileCompleteness != "complete" {
				continue
			}
			reduction += g.policy.ReductionCleanProfile
			if len(res.RiskFlags) == 0 {
				delta.SkepticFindings = append(delta.SkepticFindings,
					"CLEAN ENTITY PROFILE: Entity has complete profile with no outstanding risk flags. Historical behavior pattern is consistent and well-documented.")
			} else {
				flags := make([]string, 0, 3)
				for i, f := range res.RiskFlags {
					if i >= 3 {
						break
					}
					flags = append(flags, f.Content)
				}
				delta.SkepticFindings = append(delta.SkepticFindings, fmt.Sprintf(
					"ENTITY PROFILE: Profile is complete. Some flags exist: %s", strings.Join(flags, ", ")))
			}

		case *intel.PeerComparison:
			if res.WithinPeerNorms {
				reduction += g.policy.ReductionPeerNorms
				delta.SkepticFindings = append(delta.SkepticFindings,
					"INDUSTRY NORMAL BEHAVIOR: Entity's transaction patterns are within peer group norms. No outlier behavior detected.")
			} else {
				delta.SkepticFindings = append(delta.SkepticFindings, fmt.Sprintf(
					"PEER COMPARISON NOTE: Entity shows %d deviation(s) from peer norms, but this alone is not indicative of wrongdoing.",
					len(res.Deviations)))
			}

		case *intel.AdverseMediaResult:
			switch res.AdverseMediaRisk {
			case "low":
				reduction += g.policy.ReductionCleanMedia
				delta.SkepticFindings = append(delta.SkepticFindings,
					"NO ADVERSE MEDIA: Media scan found no negative coverage. Entity has clean public reputation.")
			case "high":
				// Incriminating, not exculpatory. Reported anyway: the
				// defense does not suppress unfavorable evidence.
				reduction -= g.policy.PenaltyAdverseMedia
				delta.SkepticFindings = append(delta.SkepticFindings, fmt.Sprintf(
					"ADVERSE MEDIA FOUND (NOTE: Incriminating, not exculpatory): %d negative media hit(s) on record.",
					res.NegativeHits))
			}
		}
	}

	adjusted := state.SemanticRiskScore - reduction
	if adjusted < 0 {
		adjusted = 0
	} else if adjusted > 1 {
		adjusted = 1
	}
	delta.SemanticRiskScore = model.Float(adjusted)
	return delta
}
