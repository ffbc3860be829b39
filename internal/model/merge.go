package model

// StateDelta is the update one debate stage hands back to the controller.
// List fields are concatenated onto the state; pointer fields overwrite
// the corresponding scalar only when set.
type StateDelta struct {
	ProsecutorFindings []string
	SkepticFindings    []string
	Messages           []DebateMessage
	ToolCalls          []ToolCallRecord
	HiddenLinks        []HiddenLink
	AlibiEvidence      []string

	GraphContext string
	DocContext   string

	GraphRiskScore    *float64
	SemanticRiskScore *float64
	HistoricalDrift   *float64

	Verdict           *Verdict
	RiskLevel         *RiskLevel
	ConfidenceScore   *float64
	CurrentPhase      *Phase
	RoundCount        *int
	NeedsMoreEvidence *bool
}

// Merge applies a delta to a state and returns the result. It is a pure
// function: the input state is not modified. Append-only list fields
// concatenate; context strings concatenate; scalars and the verdict
// overwrite when the delta carries them.
func Merge(s DebateState, d StateDelta) DebateState {
	s.ProsecutorFindings = appendCopy(s.ProsecutorFindings, d.ProsecutorFindings)
	s.SkepticFindings = appendCopy(s.SkepticFindings, d.SkepticFindings)
	s.Messages = appendCopy(s.Messages, d.Messages)
	s.ToolCalls = appendCopy(s.ToolCalls, d.ToolCalls)
	s.HiddenLinks = appendCopy(s.HiddenLinks, d.HiddenLinks)
	s.AlibiEvidence = appendCopy(s.AlibiEvidence, d.AlibiEvidence)

	s.GraphContext += d.GraphContext
	s.DocContext += d.DocContext

	if d.GraphRiskScore != nil {
		s.GraphRiskScore = *d.GraphRiskScore
	}
	if d.SemanticRiskScore != nil {
		s.SemanticRiskScore = *d.SemanticRiskScore
	}
	if d.HistoricalDrift != nil {
		s.HistoricalDrift = *d.HistoricalDrift
	}
	if d.Verdict != nil {
		s.Verdict = d.Verdict
	}
	if d.RiskLevel != nil {
		s.RiskLevel = *d.RiskLevel
	}
	if d.ConfidenceScore != nil {
		s.ConfidenceScore = *d.ConfidenceScore
	}
	if d.CurrentPhase != nil {
		s.CurrentPhase = *d.CurrentPhase
	}
	if d.RoundCount != nil {
		s.RoundCount = *d.RoundCount
	}
	if d.NeedsMoreEvidence != nil {
		s.NeedsMoreEvidence = *d.NeedsMoreEvidence
	}

	return s
}

// appendCopy concatenates without aliasing the input slices, so a merged
// state never shares backing arrays with its predecessor.
func appendCopy[T any](prior, delta []T) []T {
	if len(delta) == 0 {
		return prior
	}
	out := make([]T, 0, len(prior)+len(delta))
	out = append(out, prior...)
	return append(out, delta...)
}

// Float, Int, Bool, and friends build the optional scalar fields of a
// StateDelta without cluttering call sites with temporaries.
func Float(v float64) *float64 { return &v }

func Int(v int) *int { return &v }

func Bool(v bool) *bool { return &v }

func PhasePtr(v Phase) *Phase { return &v }

func RiskLevelPtr(v RiskLevel) *RiskLevel { return &v }
