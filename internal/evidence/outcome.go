package evidence

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fintel-ai/tribunal/internal/model"
)

// ToolOutcome is the result of executing one requested tool call. Err is
// set when execution failed; a failed outcome still lands in the audit
// trail but contributes nothing to scores or findings.
type ToolOutcome struct {
	Kind    ToolKind
	Name    string
	Args    map[string]any
	Payload any
	Err     error
}

// record turns an outcome into its audit-trail entry. Failed executions
// serialize the error so the trail shows what was attempted.
func (o ToolOutcome) record(agent model.Speaker, now time.Time) model.ToolCallRecord {
	var result string
	switch {
	case o.Err != nil:
		raw, _ := json.Marshal(map[string]string{"error": o.Err.Error(), "tool": o.Name})
		result = string(raw)
	case o.Payload != nil:
		raw, err := json.Marshal(o.Payload)
		if err != nil {
			result = fmt.Sprintf(`{"error":%q}`, err.Error())
		} else {
			result = string(raw)
		}
	default:
		result = "null"
	}

	return model.ToolCallRecord{
		Agent:     agent,
		ToolName:  o.Name,
		Args:      o.Args,
		Result:    result,
		Timestamp: now,
	}
}

// contextSection renders an outcome for the accumulated analysis context
// shown to later debate stages.
func (o ToolOutcome) contextSection() string {
	if o.Err != nil || o.Payload == nil {
		return ""
	}
	raw, err := json.MarshalIndent(o.Payload, "", "  ")
	if err != nil {
		return ""
	}
	return fmt.Sprintf("\n### %s\n%s\n", o.Name, raw)
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}
