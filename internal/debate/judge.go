package debate

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fintel-ai/tribunal/internal/config"
	"github.com/fintel-ai/tribunal/internal/model"
	"github.com/fintel-ai/tribunal/internal/narrative"
)

// Judge weighs both cases and renders the structured verdict.
type Judge struct {
	gen    narrative.Generator
	policy config.PolicyConfig
	now    func() time.Time
}

// NewJudge wires the adjudication role.
func NewJudge(gen narrative.Generator, policy config.PolicyConfig) *Judge {
	return &Judge{gen: gen, policy: policy, now: time.Now}
}

// CombinedRisk is the deterministic weighted risk formula.
func CombinedRisk(graph, semantic, drift float64, p config.PolicyConfig) float64 {
	return graph*p.GraphWeight + semantic*p.SemanticWeight + drift*p.DriftWeight
}

// RiskLevelFor classifies the combined risk score. It is always
// computable regardless of what the narrative generator produced, and
// serves as the fallback whenever the generator's own stated level is
// missing or invalid.
func RiskLevelFor(graph, semantic, drift float64, p config.PolicyConfig) model.RiskLevel {
	combined := CombinedRisk(graph, semantic, drift, p)
	switch {
	case combined >= p.CriticalThreshold:
		return model.RiskCritical
	case combined >= p.HighThreshold:
		return model.RiskHigh
	case combined >= p.MediumThreshold:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// extractVerdictJSON pulls the verdict object out of generator text.
// Three strategies in order: a fenced JSON block, the outermost brace
// span, and the whole text.
func extractVerdictJSON(content string) (*model.Verdict, error) {
	if m := fencedJSONRe.FindStringSubmatch(content); m != nil {
		var v model.Verdict
		if err := json.Unmarshal([]byte(m[1]), &v); err == nil {
			return &v, nil
		}
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end > start {
		var v model.Verdict
		if err := json.Unmarshal([]byte(content[start:end+1]), &v); err == nil {
			return &v, nil
		}
	}

	var v model.Verdict
	if err := json.Unmarshal([]byte(content), &v); err == nil {
		return &v, nil
	}

	return nil, eris.New("debate: could not extract valid JSON from verdict response")
}

var (
	verdictFieldRe    = regexp.MustCompile(`"verdict":\s*"([^"]+)"`)
	riskFieldRe       = regexp.MustCompile(`"risk_level":\s*"([^"]+)"`)
	confidenceFieldRe = regexp.MustCompile(`"confidence_score":\s*([\d.]+)`)
	reasoningFieldRe  = regexp.MustCompile(`"reasoning":\s*"((?:[^"\\]|\\.)*)"`)
)

// verdictFromRegex salvages labeled fields from malformed generator
// output. Everything it cannot find gets a conservative default, and the
// result always demands manual review.
func verdictFromRegex(content string, calculated model.RiskLevel) *model.Verdict {
	v := &model.Verdict{
		Decision:          model.VerdictReview,
		RiskLevel:         calculated,
		ConfidenceScore:   0.5,
		NeedsMoreEvidence: true,
		Compliance: model.ComplianceStatement{
			Satisfied:              true,
			TransparencyText:       "Verdict extracted via fallback parsing due to response format issues.",
			HumanOversightRequired: true,
		},
		RecommendedActions: []string{"Review case manually due to parsing uncertainty"},
	}

	if m := verdictFieldRe.FindStringSubmatch(content); m != nil {
		v.Decision = model.VerdictDecision(m[1])
	}
	if m := riskFieldRe.FindStringSubmatch(content); m != nil {
		v.RiskLevel = model.RiskLevel(m[1])
	}
	if m := confidenceFieldRe.FindStringSubmatch(content); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			v.ConfidenceScore = f
		}
	}
	if m := reasoningFieldRe.FindStringSubmatch(content); m != nil {
		v.Reasoning = m[1]
	} else {
		stripped := strings.NewReplacer(
			"{", "", "}", "", "```json", "", "```", "", `"`, "",
		).Replace(content)
		stripped = strings.TrimSpace(stripped)
		if len(stripped) > 500 {
			stripped = stripped[:500]
		}
		if len(stripped) > 490 {
			stripped += "..."
		}
		v.Reasoning = stripped
	}
	return v
}

func validRiskLevel(r model.RiskLevel) bool {
	switch r {
	case model.RiskLow, model.RiskMedium, model.RiskHigh, model.RiskCritical:
		return true
	}
	return false
}

// Run executes one adjudication turn. A total generator failure produces
// a terminal ESCALATE verdict rather than an error: the investigation
// always ends with a verdict on record. The round counter increments on
// every pass through the judge.
func (j *Judge) Run(ctx context.Context, state model.DebateState) model.StateDelta {
	calculated := RiskLevelFor(state.GraphRiskScore, state.SemanticRiskScore, state.HistoricalDrift, j.policy)
	combined := CombinedRisk(state.GraphRiskScore, state.SemanticRiskScore, state.HistoricalDrift, j.policy)

	zap.L().Info("judge turn starting",
		zap.String("uetr", state.UETR),
		zap.Int("round", state.RoundCount),
		zap.Float64("combined_risk", combined),
	)

	resp, err := j.gen.Generate(ctx, narrative.Request{
		System:      judgeSystemPrompt,
		Prompt:      buildJudgePrompt(state, combined, calculated, j.policy.MaxRounds, j.policy.ConfidenceThreshold),
		Temperature: 0.1,
	})
	if err != nil {
		zap.L().Error("judge generation failed, escalating", zap.Error(err))
		verdict := &model.Verdict{
			Decision:        model.VerdictEscalate,
			RiskLevel:       calculated,
			ConfidenceScore: 0.3,
			Reasoning:       fmt.Sprintf("Unable to complete judicial evaluation due to system error: %v. Escalating for human review.", err),
			Compliance: model.ComplianceStatement{
				Satisfied:              false,
				TransparencyText:       "System error prevented full evaluation.",
				HumanOversightRequired: true,
			},
			RecommendedActions: []string{"Escalate to senior compliance for manual review"},
		}
		return model.StateDelta{
			Verdict:         verdict,
			RiskLevel:       model.RiskLevelPtr(calculated),
			ConfidenceScore: model.Float(0.3),
			Messages: []model.DebateMessage{{
				Speaker:     model.SpeakerJudge,
				Content:     fmt.Sprintf("**Verdict: ESCALATE** (System Error)\n\n%s", verdict.Reasoning),
				EvidenceIDs: []string{},
				Timestamp:   j.now().UTC(),
			}},
			NeedsMoreEvidence: model.Bool(false),
			RoundCount:        model.Int(state.RoundCount + 1),
			CurrentPhase:      model.PhasePtr(model.PhaseComplete),
		}
	}

	verdict, parseErr := extractVerdictJSON(resp.Text)
	if parseErr != nil {
		zap.L().Warn("verdict JSON parsing failed, using regex fallback", zap.Error(parseErr))
		verdict = verdictFromRegex(resp.Text, calculated)
	}

	if verdict.Decision == "" {
		verdict.Decision = model.VerdictReview
	}
	if !validRiskLevel(verdict.RiskLevel) {
		verdict.RiskLevel = calculated
	}

	needsMore := verdict.NeedsMoreEvidence
	if verdict.ConfidenceScore < j.policy.ConfidenceThreshold && state.RoundCount < j.policy.MaxRounds {
		needsMore = true
		zap.L().Info("confidence below threshold, requesting more evidence",
			zap.Float64("confidence", verdict.ConfidenceScore),
			zap.Int("round", state.RoundCount),
		)
	}
	verdict.NeedsMoreEvidence = needsMore

	phase := model.PhaseComplete
	if needsMore {
		phase = model.PhaseInvestigation
	}

	evidenceIDs := verdict.EvidenceSummary
	if len(evidenceIDs) > 15 {
		evidenceIDs = evidenceIDs[:15]
	}

	zap.L().Info("judge verdict rendered",
		zap.String("uetr", state.UETR),
		zap.String("verdict", string(verdict.Decision)),
		zap.String("risk_level", string(verdict.RiskLevel)),
		zap.Float64("confidence", verdict.ConfidenceScore),
		zap.Bool("needs_more_evidence", needsMore),
	)

	return model.StateDelta{
		Verdict:         verdict,
		RiskLevel:       model.RiskLevelPtr(verdict.RiskLevel),
		ConfidenceScore: model.Float(verdict.ConfidenceScore),
		Messages: []model.DebateMessage{{
			Speaker:     model.SpeakerJudge,
			Content:     renderVerdictMessage(verdict),
			EvidenceIDs: evidenceIDs,
			Timestamp:   j.now().UTC(),
		}},
		NeedsMoreEvidence: model.Bool(needsMore),
		RoundCount:        model.Int(state.RoundCount + 1),
		CurrentPhase:      model.PhasePtr(phase),
	}
}

// renderVerdictMessage builds the human-readable transcript entry for a
// verdict.
func renderVerdictMessage(v *model.Verdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Judicial Verdict: %s\n\n", v.Decision)
	fmt.Fprintf(&b, "**Risk Level**: %s | **Confidence**: %d%%\n\n", strings.ToUpper(string(v.RiskLevel)), int(v.ConfidenceScore*100))
	fmt.Fprintf(&b, "### Reasoning\n%s\n", v.Reasoning)

	if len(v.KeyFactors) > 0 {
		b.WriteString("\n### Key Factors in Decision\n")
		for i, f := range v.KeyFactors {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(v.RecommendedActions) > 0 {
		b.WriteString("\n### Recommended Actions\n")
		for i, a := range v.RecommendedActions {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}
	if v.Compliance.TransparencyText != "" {
		fmt.Fprintf(&b, "\n### EU AI Act Transparency\n%s\n", v.Compliance.TransparencyText)
	}
	if v.NeedsMoreEvidence {
		b.WriteString("\n### Additional Evidence Required\n")
		if len(v.AdditionalQuestions) > 0 {
			for i, q := range v.AdditionalQuestions {
				if i >= 3 {
					break
				}
				fmt.Fprintf(&b, "- %s\n", q)
			}
		} else {
			b.WriteString("- Further investigation needed before final determination\n")
		}
	}
	return b.String()
}
