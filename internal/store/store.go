// Package store persists completed investigations, their audit trails,
// and monitoring alerts. SQLite backs local runs; Postgres backs shared
// deployments.
package store

import (
	"context"
	"time"

	"github.com/fintel-ai/tribunal/internal/alerts"
	"github.com/fintel-ai/tribunal/internal/model"
)

// Investigation is one persisted debate outcome. The full final state is
// stored as JSON; the scalar columns exist for filtering.
type Investigation struct {
	ID         string                `json:"id"`
	UETR       string                `json:"uetr"`
	State      model.DebateState     `json:"state"`
	RiskLevel  model.RiskLevel       `json:"risk_level"`
	Verdict    model.VerdictDecision `json:"verdict"`
	Confidence float64               `json:"confidence"`
	CreatedAt  time.Time             `json:"created_at"`
}

// InvestigationFilter specifies criteria for listing investigations.
type InvestigationFilter struct {
	RiskLevel model.RiskLevel       `json:"risk_level,omitempty"`
	Verdict   model.VerdictDecision `json:"verdict,omitempty"`
	Limit     int                   `json:"limit,omitempty"`
	Offset    int                   `json:"offset,omitempty"`
}

// Store defines the persistence interface for the investigation system.
// Get methods return (nil, nil) when nothing matches.
type Store interface {
	// Investigations
	SaveInvestigation(ctx context.Context, state *model.DebateState) (*Investigation, error)
	GetInvestigation(ctx context.Context, uetr string) (*Investigation, error)
	ListInvestigations(ctx context.Context, filter InvestigationFilter) ([]Investigation, error)

	// Audit trail
	AppendAuditTrail(ctx context.Context, uetr string, records []model.ToolCallRecord) error
	GetAuditTrail(ctx context.Context, uetr string) ([]model.ToolCallRecord, error)

	// Alerts
	SaveAlerts(ctx context.Context, items []alerts.Alert) error
	ListAlerts(ctx context.Context, status alerts.AlertStatus) ([]alerts.Alert, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// verdictOf extracts the filterable verdict columns from a state.
func verdictOf(state *model.DebateState) (model.VerdictDecision, float64) {
	if state.Verdict == nil {
		return "", state.ConfidenceScore
	}
	return state.Verdict.Decision, state.Verdict.ConfidenceScore
}
