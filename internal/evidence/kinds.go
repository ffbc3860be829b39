// Package evidence executes the investigation tools the debate agents
// request and folds their results into state updates. The prosecutor
// gatherer drives the graph and memory services and ratchets the graph
// risk score upward through fixed floors; the skeptic gatherer drives the
// document and memory services and reduces the semantic risk score for
// each exculpatory result.
package evidence

// ToolKind identifies one investigation tool. Dispatch switches on the
// kind rather than on raw tool-name strings, so an unrecognized name is
// rejected in exactly one place.
type ToolKind int

const (
	KindUnknown ToolKind = iota

	// Prosecutor tools.
	KindHiddenLinks
	KindFraudRings
	KindTopology
	KindLayering
	KindBehavioralDrift
	KindEntityProfile
	KindInvestigationHistory

	// Skeptic tools. KindEntityProfile is shared by both roles.
	KindAlibi
	KindRegulation
	KindPaymentJustification
	KindAdverseMedia
	KindPeerGroup
)

var kindNames = map[ToolKind]string{
	KindHiddenLinks:          "find_hidden_links",
	KindFraudRings:           "detect_fraud_rings",
	KindTopology:             "analyze_transaction_topology",
	KindLayering:             "find_layering_patterns",
	KindBehavioralDrift:      "check_behavioral_drift",
	KindEntityProfile:        "get_entity_profile",
	KindInvestigationHistory: "get_investigation_history",
	KindAlibi:                "search_alibi",
	KindRegulation:           "consult_regulation",
	KindPaymentJustification: "search_payment_justification",
	KindAdverseMedia:         "search_adverse_media",
	KindPeerGroup:            "compare_to_peer_group",
}

var kindsByName = func() map[string]ToolKind {
	m := make(map[string]ToolKind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

// Name returns the wire name the narrative generators see.
func (k ToolKind) Name() string {
	return kindNames[k]
}

// KindFromName resolves a requested tool name to its kind.
func KindFromName(name string) (ToolKind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}
