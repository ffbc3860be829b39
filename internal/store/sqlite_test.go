package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintel-ai/tribunal/internal/alerts"
	"github.com/fintel-ai/tribunal/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "tribunal.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func finalState(uetr string, level model.RiskLevel, decision model.VerdictDecision) *model.DebateState {
	state := model.NewState(uetr, model.Transaction{
		UETR:     uetr,
		Debtor:   model.Party{Name: "Apex Trading Ltd"},
		Creditor: model.Party{Name: "Baltic Freight OU"},
		Amount:   model.Amount{Value: "9900.00", Currency: "EUR"},
	})
	state.RiskLevel = level
	state.ProsecutorFindings = []string{"LAYERING PATTERN DETECTED: 1 circular flow(s)"}
	state.Verdict = &model.Verdict{
		Decision:        decision,
		RiskLevel:       level,
		ConfidenceScore: 0.85,
		Reasoning:       "graph evidence",
	}
	state.ConfidenceScore = 0.85
	state.RoundCount = 2
	state.CurrentPhase = model.PhaseComplete
	return &state
}

func TestSQLiteSaveAndGetInvestigation(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	saved, err := s.SaveInvestigation(ctx, finalState("tx-1", model.RiskHigh, model.VerdictEscalate))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, model.VerdictEscalate, saved.Verdict)
	assert.InDelta(t, 0.85, saved.Confidence, 0.001)

	got, err := s.GetInvestigation(ctx, "tx-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, model.RiskHigh, got.RiskLevel)
	require.NotNil(t, got.State.Verdict)
	assert.Equal(t, "graph evidence", got.State.Verdict.Reasoning)
	assert.Equal(t, []string{"LAYERING PATTERN DETECTED: 1 circular flow(s)"}, got.State.ProsecutorFindings)
}

func TestSQLiteGetInvestigationMissing(t *testing.T) {
	s := newTestSQLite(t)

	got, err := s.GetInvestigation(context.Background(), "tx-missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteGetInvestigationLatestWins(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.SaveInvestigation(ctx, finalState("tx-rerun", model.RiskMedium, model.VerdictReview))
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	second, err := s.SaveInvestigation(ctx, finalState("tx-rerun", model.RiskHigh, model.VerdictBlock))
	require.NoError(t, err)

	got, err := s.GetInvestigation(ctx, "tx-rerun")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, second.ID, got.ID)
	assert.Equal(t, model.VerdictBlock, got.Verdict)
}

func TestSQLiteListInvestigationsFilter(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.SaveInvestigation(ctx, finalState("tx-a", model.RiskHigh, model.VerdictEscalate))
	require.NoError(t, err)
	_, err = s.SaveInvestigation(ctx, finalState("tx-b", model.RiskLow, model.VerdictApprove))
	require.NoError(t, err)
	_, err = s.SaveInvestigation(ctx, finalState("tx-c", model.RiskHigh, model.VerdictBlock))
	require.NoError(t, err)

	all, err := s.ListInvestigations(ctx, InvestigationFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	high, err := s.ListInvestigations(ctx, InvestigationFilter{RiskLevel: model.RiskHigh})
	require.NoError(t, err)
	assert.Len(t, high, 2)

	blocked, err := s.ListInvestigations(ctx, InvestigationFilter{Verdict: model.VerdictBlock})
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, "tx-c", blocked[0].UETR)

	limited, err := s.ListInvestigations(ctx, InvestigationFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLiteAuditTrailRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	records := []model.ToolCallRecord{
		{
			Agent:     model.SpeakerProsecutor,
			ToolName:  "find_hidden_links",
			Args:      map[string]any{"entity_name": "Apex Trading Ltd", "max_hops": float64(3)},
			Result:    `{"total_paths_found":1}`,
			Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			Agent:     model.SpeakerSkeptic,
			ToolName:  "search_alibi",
			Args:      map[string]any{"query": "legitimate business"},
			Result:    `{"alibi_found":true}`,
			Timestamp: time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC),
		},
	}
	require.NoError(t, s.AppendAuditTrail(ctx, "tx-audit", records))

	got, err := s.GetAuditTrail(ctx, "tx-audit")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.SpeakerProsecutor, got[0].Agent)
	assert.Equal(t, "find_hidden_links", got[0].ToolName)
	assert.Equal(t, "Apex Trading Ltd", got[0].Args["entity_name"])
	assert.Equal(t, "search_alibi", got[1].ToolName)

	empty, err := s.GetAuditTrail(ctx, "tx-other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteAlertsUpsert(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	a := alerts.Alert{
		ID:        "ALERT-1",
		UETR:      "tx-1",
		Type:      alerts.AlertStructuring,
		Severity:  model.RiskHigh,
		Details:   "near threshold",
		Status:    alerts.StatusOpen,
		CreatedAt: now,
	}
	require.NoError(t, s.SaveAlerts(ctx, []alerts.Alert{a}))

	open, err := s.ListAlerts(ctx, alerts.StatusOpen)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Nil(t, open[0].ResolvedAt)

	resolved := now.Add(time.Hour)
	a.Status = alerts.StatusResolved
	a.ResolvedAt = &resolved
	require.NoError(t, s.SaveAlerts(ctx, []alerts.Alert{a}))

	open, err = s.ListAlerts(ctx, alerts.StatusOpen)
	require.NoError(t, err)
	assert.Empty(t, open)

	all, err := s.ListAlerts(ctx, "all")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, alerts.StatusResolved, all[0].Status)
	require.NotNil(t, all[0].ResolvedAt)
	assert.True(t, all[0].ResolvedAt.Equal(resolved))
}
