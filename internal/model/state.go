package model

import "time"

// Speaker identifies which debate role produced a message.
type Speaker string

const (
	SpeakerProsecutor Speaker = "prosecutor"
	SpeakerSkeptic    Speaker = "skeptic"
	SpeakerJudge      Speaker = "judge"
)

// Phase tracks where an investigation sits in the debate cycle.
type Phase string

const (
	PhaseInvestigation Phase = "investigation"
	PhaseRebuttal      Phase = "rebuttal"
	PhaseVerdict       Phase = "verdict"
	PhaseComplete      Phase = "complete"
)

// RiskLevel is the structured outcome classification of an investigation.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Party is one side of a payment (debtor or creditor).
type Party struct {
	Name        string `json:"name"`
	AccountIBAN string `json:"account_iban,omitempty"`
	AgentBIC    string `json:"agent_bic,omitempty"`
	Country     string `json:"country,omitempty"`
}

// Amount is a monetary value with its currency.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Transaction is the payment under investigation. Immutable once an
// investigation has been opened for it.
type Transaction struct {
	UETR           string `json:"uetr"`
	EndToEndID     string `json:"end_to_end_id,omitempty"`
	Debtor         Party  `json:"debtor"`
	Creditor       Party  `json:"creditor"`
	Amount         Amount `json:"amount"`
	PurposeCode    string `json:"purpose_code,omitempty"`
	RemittanceInfo string `json:"remittance_info,omitempty"`
	SettlementDate string `json:"settlement_date,omitempty"`
}

// DebateMessage is one entry in the investigation transcript. Immutable
// once created.
type DebateMessage struct {
	Speaker     Speaker   `json:"speaker"`
	Content     string    `json:"content"`
	EvidenceIDs []string  `json:"evidence_ids"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToolCallRecord is an audit-trail entry for a single tool execution.
type ToolCallRecord struct {
	Agent     Speaker        `json:"agent"`
	ToolName  string         `json:"tool_name"`
	Args      map[string]any `json:"args"`
	Result    string         `json:"result"`
	Timestamp time.Time      `json:"timestamp"`
}

// HiddenLink is a discovered path from a transaction party to a flagged
// entity in the relationship graph.
type HiddenLink struct {
	RiskEntity string   `json:"risk_entity"`
	RiskLabels []string `json:"risk_labels"`
	PathNodes  []string `json:"path_nodes"`
	Distance   int      `json:"distance"`
}

// DebateState is the single record threaded through every round of an
// investigation. List fields are append-only across rounds; scalar fields
// and the verdict are overwritten by whichever stage owns them.
type DebateState struct {
	UETR        string      `json:"uetr"`
	Transaction Transaction `json:"transaction"`

	GraphRiskScore    float64 `json:"graph_risk_score"`
	SemanticRiskScore float64 `json:"semantic_risk_score"`
	HistoricalDrift   float64 `json:"historical_drift"`

	ProsecutorFindings []string         `json:"prosecutor_findings"`
	SkepticFindings    []string         `json:"skeptic_findings"`
	Messages           []DebateMessage  `json:"messages"`
	ToolCalls          []ToolCallRecord `json:"tool_calls"`

	GraphContext string       `json:"graph_context,omitempty"`
	HiddenLinks  []HiddenLink `json:"hidden_links"`

	DocContext    string   `json:"doc_context,omitempty"`
	AlibiEvidence []string `json:"alibi_evidence"`

	Verdict         *Verdict  `json:"verdict,omitempty"`
	RiskLevel       RiskLevel `json:"risk_level"`
	ConfidenceScore float64   `json:"confidence_score"`

	CurrentPhase      Phase `json:"current_phase"`
	RoundCount        int   `json:"round_count"`
	NeedsMoreEvidence bool  `json:"needs_more_evidence"`
}

// NewState creates the round-1 state for a fresh investigation.
// Semantic risk starts neutral at 0.5; the risk level starts at medium
// until the first judge pass classifies it.
func NewState(uetr string, tx Transaction) DebateState {
	return DebateState{
		UETR:              uetr,
		Transaction:       tx,
		SemanticRiskScore: 0.5,
		RiskLevel:         RiskMedium,
		CurrentPhase:      PhaseInvestigation,
		RoundCount:        1,
	}
}
