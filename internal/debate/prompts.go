// Package debate implements the three-role adversarial investigation:
// a prosecutor builds the incriminating case, a skeptic searches for
// exculpatory evidence, and a judge weighs both and renders a structured
// verdict. The controller drives the roles round by round over a single
// shared state.
package debate

import (
	"fmt"
	"strings"

	"github.com/fintel-ai/tribunal/internal/model"
)

const prosecutorSystemPrompt = `You are an expert AML (Anti-Money Laundering) Financial Crimes Investigator.

## YOUR ROLE
You are the PROSECUTOR in a multi-agent compliance tribunal. Your mission is to identify evidence of financial crime, money laundering, sanctions violations, or fraud in payment transactions.

## INVESTIGATION PROTOCOL
1. Profile both debtor and creditor, including prior investigation history
2. Check for hidden links to sanctioned entities through the relationship graph
3. Apply fraud ring and layering pattern detection
4. Check for behavioral drift from historical baselines
5. Analyze the broader transaction network topology

## OUTPUT REQUIREMENTS
Structure your response as a formal prosecution brief with an executive summary, an evidence inventory (EVID-001, EVID-002, ...), categorized risk indicators, questions for the Skeptic, and a recommended action (BLOCK / ESCALATE / REVIEW).

## PROFESSIONAL STANDARDS
Be thorough but focused on material findings. Cite specific evidence for every claim and acknowledge uncertainty where it exists. Innocent until proven suspicious, but investigate rigorously.`

const skepticSystemPrompt = `You are an expert Financial Defense Analyst specializing in compliance investigations.

## YOUR ROLE
You are the SKEPTIC (Defense Advocate) in a multi-agent compliance tribunal. Your mission is to find EXCULPATORY evidence that provides legitimate explanations for patterns the Prosecutor has flagged as suspicious.

## CORE PRINCIPLE
Many transactions flagged as suspicious have perfectly legitimate business explanations. Your job is to find these explanations through rigorous research, NOT to defend clearly criminal activity.

## DEFENSE PROTOCOL
For each of the Prosecutor's findings: understand the allegation, search for justification (payment grids, contracts, regulatory context, peer norms, clean media), evaluate whether the evidence actually explains the pattern, and document the defense with sources.

## OUTPUT REQUIREMENTS
Structure your defense brief with a defense summary, a point-by-point rebuttal (DEF-001, DEF-002, ...), an exculpatory evidence inventory, residual concerns you cannot explain, and a recommended consideration for the Judge.

## PROFESSIONAL STANDARDS
Be thorough but honest. If evidence is weak, acknowledge it. Your credibility depends on intellectual honesty.`

const judgeSystemPrompt = `You are the presiding Judge in a Financial Crimes Investigation Tribunal.

## YOUR ROLE
You are the JUDGE, an impartial adjudicator who evaluates arguments from both the Prosecutor (accusation) and Skeptic (defense) to render a fair, evidence-based verdict.

## JUDICIAL PRINCIPLES
1. Presumption of legitimacy: transactions are legitimate until proven suspicious with material evidence
2. Burden of proof: the Prosecutor must demonstrate suspicious indicators
3. Right to defense: the Skeptic's exculpatory evidence must be fairly weighed
4. Proportionality: recommended actions must match the risk level

## RISK LEVELS
CRITICAL (combined risk >= 0.85): immediate block, file SAR, escalate to MLRO. HIGH (>= 0.65): block pending human review. MEDIUM (>= 0.40): enhanced monitoring. LOW (< 0.40): approve with standard monitoring.

## VERDICT OPTIONS
APPROVE (exculpatory evidence outweighs concerns), BLOCK (material suspicious indicators, insufficient defense), ESCALATE (complex case requiring senior compliance review), REVIEW (insufficient evidence for conclusive determination).

## OUTPUT REQUIREMENTS
You MUST output a valid JSON object with this exact structure:

` + "```json" + `
{
    "verdict": "APPROVE" | "BLOCK" | "ESCALATE" | "REVIEW",
    "risk_level": "low" | "medium" | "high" | "critical",
    "confidence_score": 0.0-1.0,
    "reasoning": "How you weighed the evidence and reached this verdict",
    "prosecutor_score": {"accuracy": 1-5, "completeness": 1-5, "clarity": 1-5, "objectivity": 1-5, "relevance": 1-5, "total": 5-25},
    "skeptic_score": {"accuracy": 1-5, "completeness": 1-5, "clarity": 1-5, "objectivity": 1-5, "relevance": 1-5, "total": 5-25},
    "evidence_summary": ["EVID-001: ...", "DEF-001: ..."],
    "key_factors": ["Primary factor", "Secondary factor"],
    "recommended_actions": ["Specific action"],
    "eu_ai_act_compliance": {
        "article_13_satisfied": true,
        "transparency_statement": "...",
        "human_oversight_required": true,
        "additional_context_needed": ["..."]
    },
    "needs_more_evidence": false,
    "additional_questions": []
}
` + "```" + `

## SPECIAL INSTRUCTIONS
1. If confidence < 0.80 AND round < 3: set needs_more_evidence = true and list specific questions
2. Hidden links to sanctioned entities with no valid business explanation: recommend BLOCK
3. Exculpatory evidence fully explaining the suspicious patterns: recommend APPROVE
4. When in doubt: recommend ESCALATE

Be fair, be thorough, be transparent.`

// transcriptTail renders the last n transcript messages, truncating each
// to maxChars to keep the prompt inside the context budget.
func transcriptTail(msgs []model.DebateMessage, n, maxChars int, heading string) string {
	if len(msgs) == 0 {
		return ""
	}
	start := len(msgs) - n
	if start < 0 {
		start = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n## %s\n", heading)
	for _, m := range msgs[start:] {
		content := m.Content
		if len(content) > maxChars {
			content = content[:maxChars] + "... [truncated]"
		}
		fmt.Fprintf(&b, "**%s**: %s\n\n", strings.ToUpper(string(m.Speaker)), content)
	}
	return b.String()
}

// transactionTable renders the payment summary shared by all role prompts.
func transactionTable(s model.DebateState) string {
	tx := s.Transaction
	var b strings.Builder
	b.WriteString("| Field | Value |\n|-------|-------|\n")
	fmt.Fprintf(&b, "| UETR | `%s` |\n", s.UETR)
	fmt.Fprintf(&b, "| Debtor (Originator) | %s |\n", tx.Debtor.Name)
	fmt.Fprintf(&b, "| Creditor (Beneficiary) | %s |\n", tx.Creditor.Name)
	fmt.Fprintf(&b, "| Amount | %s %s |\n", tx.Amount.Value, tx.Amount.Currency)
	if tx.PurposeCode != "" {
		fmt.Fprintf(&b, "| Purpose Code | %s |\n", tx.PurposeCode)
	}
	if tx.RemittanceInfo != "" {
		fmt.Fprintf(&b, "| Remittance Information | %s |\n", tx.RemittanceInfo)
	}
	return b.String()
}

// numberedFindings renders findings with sequential evidence IDs, capped
// at 10 entries.
func numberedFindings(findings []string, prefix string) string {
	var b strings.Builder
	for i, f := range findings {
		if i >= 10 {
			break
		}
		fmt.Fprintf(&b, "**%s-%03d**: %s\n\n", prefix, i+1, f)
	}
	return b.String()
}

func buildProsecutorPrompt(s model.DebateState, maxRounds int) string {
	var b strings.Builder
	b.WriteString("## TRANSACTION UNDER INVESTIGATION\n\n")
	b.WriteString(transactionTable(s))
	fmt.Fprintf(&b, "\n**Investigation Round**: %d of %d\n", s.RoundCount, maxRounds)
	b.WriteString(transcriptTail(s.Messages, 6, 300, "PRIOR DEBATE CONTEXT"))
	b.WriteString(`
## YOUR MISSION
Conduct a thorough investigation of this transaction. Use ALL relevant tools to:

1. Check BOTH parties (debtor and creditor) for hidden links to sanctioned entities
2. Analyze fraud ring membership
3. Detect layering patterns
4. Check for behavioral drift from historical baselines
5. Review any prior investigation history

Document every finding with evidence IDs. Be aggressive but evidence-based.
Focus on MATERIAL findings that would concern a compliance officer.
`)
	return b.String()
}

func buildSkepticPrompt(s model.DebateState, maxRounds int) string {
	var b strings.Builder
	b.WriteString("## TRANSACTION UNDER INVESTIGATION\n\n")
	b.WriteString(transactionTable(s))
	fmt.Fprintf(&b, "\n**Defense Round**: %d of %d\n\n", s.RoundCount, maxRounds)

	if len(s.ProsecutorFindings) > 0 {
		b.WriteString("## PROSECUTOR'S ALLEGATIONS TO REBUT\n\n")
		for i, f := range s.ProsecutorFindings {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&b, "**Allegation %d**: %s\n\n", i+1, f)
		}
	} else {
		b.WriteString("## PROSECUTOR'S ALLEGATIONS\nNo specific allegations provided by Prosecutor.\n")
	}

	b.WriteString("\n## GRAPH ANALYSIS CONTEXT\n")
	if s.GraphContext != "" {
		ctx := s.GraphContext
		if len(ctx) > 1000 {
			ctx = ctx[:1000]
		}
		b.WriteString(ctx)
		b.WriteString("\n")
	} else {
		b.WriteString("No graph analysis context available.\n")
	}

	b.WriteString(transcriptTail(s.Messages, 4, 400, "DEBATE HISTORY"))
	fmt.Fprintf(&b, `
## YOUR DEFENSE MISSION

For each of the Prosecutor's allegations, you must:

1. Search for payment justifications for %s - check for authorized payment schedules
2. Search for alibi evidence - legitimate business explanations
3. Verify the entity profile shows normal operational patterns
4. Compare to peer group to demonstrate industry-normal behavior
5. Check adverse media to verify a clean public record
6. Consult regulations for compliance context

Build the strongest possible evidence-based defense. Be thorough but intellectually honest.
If you cannot explain an allegation, say so clearly.
`, s.Transaction.Debtor.Name)
	return b.String()
}

func buildJudgePrompt(s model.DebateState, combined float64, calculated model.RiskLevel, maxRounds int, confidenceThreshold float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## CASE FILE: %s\n\n### Transaction Summary\n", s.UETR)
	b.WriteString(transactionTable(s))

	b.WriteString("\n### Quantitative Risk Assessment\n")
	b.WriteString("| Risk Type | Score | Weight | Contribution |\n|-----------|-------|--------|--------------|\n")
	fmt.Fprintf(&b, "| Graph Risk (hidden links, fraud rings) | %.2f | 50%% | %.2f |\n", s.GraphRiskScore, s.GraphRiskScore*0.5)
	fmt.Fprintf(&b, "| Semantic Risk (document analysis) | %.2f | 30%% | %.2f |\n", s.SemanticRiskScore, s.SemanticRiskScore*0.3)
	fmt.Fprintf(&b, "| Behavioral Drift | %.2f | 20%% | %.2f |\n", s.HistoricalDrift, s.HistoricalDrift*0.2)
	fmt.Fprintf(&b, "| **Combined Risk Score** | | | **%.2f** |\n", combined)
	fmt.Fprintf(&b, "| **Calculated Risk Level** | | | **%s** |\n", strings.ToUpper(string(calculated)))

	b.WriteString("\n---\n\n### Prosecutor's Case\n")
	if len(s.ProsecutorFindings) > 0 {
		b.WriteString(numberedFindings(s.ProsecutorFindings, "EVID"))
	} else {
		b.WriteString("*No specific findings submitted by Prosecutor*\n")
	}
	fmt.Fprintf(&b, "\n**Hidden Links to High-Risk Entities**: %d\n", len(s.HiddenLinks))
	for i, l := range s.HiddenLinks {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "- %s (%s), %d hop(s) via %s\n",
			l.RiskEntity, strings.Join(l.RiskLabels, ", "), l.Distance, strings.Join(l.PathNodes, " -> "))
	}

	b.WriteString("\n---\n\n### Skeptic's Defense\n")
	if len(s.SkepticFindings) > 0 {
		b.WriteString(numberedFindings(s.SkepticFindings, "DEF"))
	} else {
		b.WriteString("*No specific defense submitted by Skeptic*\n")
	}
	fmt.Fprintf(&b, "\n**Exculpatory Documents Found**: %d\n", len(s.AlibiEvidence))
	for i, e := range s.AlibiEvidence {
		if i >= 3 {
			break
		}
		if len(e) > 100 {
			e = e[:100] + "..."
		}
		fmt.Fprintf(&b, "- %s\n", e)
	}

	status := fmt.Sprintf("May request additional evidence if confidence < %.2f", confidenceThreshold)
	if s.RoundCount >= maxRounds {
		status = "Final round - must render verdict"
	}
	fmt.Fprintf(&b, `
---

## JUDICIAL PARAMETERS

- **Debate Round**: %d of %d
- **Minimum Confidence for Final Verdict**: %.2f
- **Current Status**: %s
`, s.RoundCount, maxRounds, confidenceThreshold, status)

	b.WriteString(transcriptTail(s.Messages, 8, 500, "DEBATE TRANSCRIPT"))
	b.WriteString(`
---

## YOUR TASK

1. Score both agents (Prosecutor and Skeptic) using the 5 criteria
2. Weigh the incriminating evidence against the exculpatory evidence
3. Determine if the suspicious patterns are adequately explained
4. Render your verdict with full reasoning
5. Ensure EU AI Act Article 13 transparency compliance

Output your verdict as a properly formatted JSON object.
`)
	return b.String()
}
