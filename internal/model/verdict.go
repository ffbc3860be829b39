package model

// VerdictDecision is the judge's classification of the transaction.
type VerdictDecision string

const (
	VerdictApprove  VerdictDecision = "APPROVE"
	VerdictBlock    VerdictDecision = "BLOCK"
	VerdictEscalate VerdictDecision = "ESCALATE"
	VerdictReview   VerdictDecision = "REVIEW"
)

// AgentScore is the judge's 5-criterion rubric for one debate agent.
// Each criterion is scored 1-5, so Total ranges 5-25.
type AgentScore struct {
	Accuracy     int `json:"accuracy"`
	Completeness int `json:"completeness"`
	Clarity      int `json:"clarity"`
	Objectivity  int `json:"objectivity"`
	Relevance    int `json:"relevance"`
	Total        int `json:"total"`
}

// ComplianceStatement carries the transparency obligations attached to
// every verdict (Regulation (EU) 2024/1689 Article 13).
type ComplianceStatement struct {
	Satisfied               bool     `json:"article_13_satisfied"`
	TransparencyText        string   `json:"transparency_statement"`
	HumanOversightRequired  bool     `json:"human_oversight_required"`
	AdditionalContextNeeded []string `json:"additional_context_needed,omitempty"`
}

// Verdict is the judge's structured output. It is overwritten on each
// judge pass, never accumulated.
type Verdict struct {
	Decision            VerdictDecision     `json:"verdict"`
	RiskLevel           RiskLevel           `json:"risk_level"`
	ConfidenceScore     float64             `json:"confidence_score"`
	Reasoning           string              `json:"reasoning"`
	ProsecutorScore     *AgentScore         `json:"prosecutor_score,omitempty"`
	SkepticScore        *AgentScore         `json:"skeptic_score,omitempty"`
	EvidenceSummary     []string            `json:"evidence_summary,omitempty"`
	KeyFactors          []string            `json:"key_factors,omitempty"`
	RecommendedActions  []string            `json:"recommended_actions,omitempty"`
	Compliance          ComplianceStatement `json:"eu_ai_act_compliance"`
	NeedsMoreEvidence   bool                `json:"needs_more_evidence"`
	AdditionalQuestions []string            `json:"additional_questions,omitempty"`
}
