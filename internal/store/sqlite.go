package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/fintel-ai/tribunal/internal/alerts"
	"github.com/fintel-ai/tribunal/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS investigations (
	id         TEXT PRIMARY KEY,
	uetr       TEXT NOT NULL,
	state      TEXT NOT NULL,
	risk_level TEXT NOT NULL,
	verdict    TEXT,
	confidence REAL NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS audit_trail (
	id          TEXT PRIMARY KEY,
	uetr        TEXT NOT NULL,
	agent       TEXT NOT NULL,
	tool_name   TEXT NOT NULL,
	args        TEXT NOT NULL,
	result      TEXT NOT NULL,
	recorded_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
	id              TEXT PRIMARY KEY,
	uetr            TEXT NOT NULL,
	alert_type      TEXT NOT NULL,
	severity        TEXT NOT NULL,
	details         TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'open',
	created_at      DATETIME NOT NULL,
	acknowledged_at DATETIME,
	resolved_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_investigations_uetr ON investigations(uetr);
CREATE INDEX IF NOT EXISTS idx_investigations_risk ON investigations(risk_level);
CREATE INDEX IF NOT EXISTS idx_audit_trail_uetr ON audit_trail(uetr);
CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
CREATE INDEX IF NOT EXISTS idx_alerts_uetr ON alerts(uetr);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveInvestigation(ctx context.Context, state *model.DebateState) (*Investigation, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal state")
	}
	decision, confidence := verdictOf(state)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO investigations (id, uetr, state, risk_level, verdict, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, state.UETR, string(stateJSON), string(state.RiskLevel), string(decision), confidence, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert investigation %s", state.UETR)
	}

	return &Investigation{
		ID:         id,
		UETR:       state.UETR,
		State:      *state,
		RiskLevel:  state.RiskLevel,
		Verdict:    decision,
		Confidence: confidence,
		CreatedAt:  now,
	}, nil
}

func (s *SQLiteStore) GetInvestigation(ctx context.Context, uetr string) (*Investigation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, uetr, state, risk_level, verdict, confidence, created_at FROM investigations
		 WHERE uetr = ? ORDER BY created_at DESC LIMIT 1`,
		uetr,
	)

	var inv Investigation
	var stateJSON string
	err := row.Scan(&inv.ID, &inv.UETR, &stateJSON, &inv.RiskLevel, &inv.Verdict, &inv.Confidence, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get investigation %s", uetr)
	}
	if err := json.Unmarshal([]byte(stateJSON), &inv.State); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal state")
	}
	return &inv, nil
}

func (s *SQLiteStore) ListInvestigations(ctx context.Context, filter InvestigationFilter) ([]Investigation, error) {
	query := `SELECT id, uetr, state, risk_level, verdict, confidence, created_at FROM investigations WHERE 1=1`
	var args []any

	if filter.RiskLevel != "" {
		query += ` AND risk_level = ?`
		args = append(args, string(filter.RiskLevel))
	}
	if filter.Verdict != "" {
		query += ` AND verdict = ?`
		args = append(args, string(filter.Verdict))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list investigations")
	}
	defer rows.Close()

	var out []Investigation
	for rows.Next() {
		var inv Investigation
		var stateJSON string
		if err := rows.Scan(&inv.ID, &inv.UETR, &stateJSON, &inv.RiskLevel, &inv.Verdict, &inv.Confidence, &inv.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan investigation")
		}
		if err := json.Unmarshal([]byte(stateJSON), &inv.State); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal state")
		}
		out = append(out, inv)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list investigations iterate")
}

func (s *SQLiteStore) AppendAuditTrail(ctx context.Context, uetr string, records []model.ToolCallRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin audit tx")
	}
	defer tx.Rollback()

	for _, rec := range records {
		argsJSON, err := json.Marshal(rec.Args)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal audit args")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO audit_trail (id, uetr, agent, tool_name, args, result, recorded_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), uetr, string(rec.Agent), rec.ToolName, string(argsJSON), rec.Result, rec.Timestamp.UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert audit record %s", rec.ToolName)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit audit tx")
}

func (s *SQLiteStore) GetAuditTrail(ctx context.Context, uetr string) ([]model.ToolCallRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT agent, tool_name, args, result, recorded_at FROM audit_trail
		 WHERE uetr = ? ORDER BY recorded_at ASC`,
		uetr,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get audit trail %s", uetr)
	}
	defer rows.Close()

	var out []model.ToolCallRecord
	for rows.Next() {
		var rec model.ToolCallRecord
		var argsJSON string
		if err := rows.Scan(&rec.Agent, &rec.ToolName, &argsJSON, &rec.Result, &rec.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit record")
		}
		if err := json.Unmarshal([]byte(argsJSON), &rec.Args); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal audit args")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: audit trail iterate")
}

func (s *SQLiteStore) SaveAlerts(ctx context.Context, items []alerts.Alert) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin alerts tx")
	}
	defer tx.Rollback()

	for _, a := range items {
		id := a.ID
		if id == "" {
			id = uuid.New().String()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO alerts (id, uetr, alert_type, severity, details, status, created_at, acknowledged_at, resolved_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET status = excluded.status,
			   acknowledged_at = excluded.acknowledged_at, resolved_at = excluded.resolved_at`,
			id, a.UETR, string(a.Type), string(a.Severity), a.Details, string(a.Status),
			a.CreatedAt.UTC(), a.AcknowledgedAt, a.ResolvedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: upsert alert %s", id)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit alerts tx")
}

func (s *SQLiteStore) ListAlerts(ctx context.Context, status alerts.AlertStatus) ([]alerts.Alert, error) {
	query := `SELECT id, uetr, alert_type, severity, details, status, created_at, acknowledged_at, resolved_at FROM alerts`
	var args []any
	if status != "" && status != "all" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list alerts")
	}
	defer rows.Close()

	var out []alerts.Alert
	for rows.Next() {
		var a alerts.Alert
		if err := rows.Scan(&a.ID, &a.UETR, &a.Type, &a.Severity, &a.Details, &a.Status,
			&a.CreatedAt, &a.AcknowledgedAt, &a.ResolvedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan alert")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list alerts iterate")
}
