package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/fintel-ai/tribunal/internal/alerts"
	"github.com/fintel-ai/tribunal/internal/db"
	"github.com/fintel-ai/tribunal/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS investigations (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	uetr       TEXT NOT NULL,
	state      JSONB NOT NULL,
	risk_level TEXT NOT NULL,
	verdict    TEXT,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audit_trail (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	uetr        TEXT NOT NULL,
	agent       TEXT NOT NULL,
	tool_name   TEXT NOT NULL,
	args        JSONB NOT NULL,
	result      TEXT NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
	id              TEXT PRIMARY KEY,
	uetr            TEXT NOT NULL,
	alert_type      TEXT NOT NULL,
	severity        TEXT NOT NULL,
	details         TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'open',
	created_at      TIMESTAMPTZ NOT NULL,
	acknowledged_at TIMESTAMPTZ,
	resolved_at     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_investigations_uetr ON investigations(uetr);
CREATE INDEX IF NOT EXISTS idx_investigations_risk ON investigations(risk_level);
CREATE INDEX IF NOT EXISTS idx_investigations_created ON investigations(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_audit_trail_uetr ON audit_trail(uetr);
CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);
CREATE INDEX IF NOT EXISTS idx_alerts_uetr ON alerts(uetr);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveInvestigation(ctx context.Context, state *model.DebateState) (*Investigation, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal state")
	}
	decision, confidence := verdictOf(state)

	_, err = s.pool.Exec(ctx,
		`INSERT INTO investigations (id, uetr, state, risk_level, verdict, confidence, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, state.UETR, stateJSON, string(state.RiskLevel), string(decision), confidence, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert investigation %s", state.UETR)
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

func (s *PostgresStore) GetInvestigation(ctx context.Context, uetr string) (*Investigation, error) {
	var inv Investigation
	var stateJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, uetr, state, risk_level, verdict, confidence, created_at FROM investigations
		 WHERE uetr = $1 ORDER BY created_at DESC LIMIT 1`,
		uetr,
	).Scan(&inv.ID, &inv.UETR, &stateJSON, &inv.RiskLevel, &inv.Verdict, &inv.Confidence, &inv.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get investigation %s", uetr)
	}
	if err := json.Unmarshal(stateJSON, &inv.State); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal state")
	}
	return &inv, nil
}

func (s *PostgresStore) ListInvestigations(ctx context.Context, filter InvestigationFilter) ([]Investigation, error) {
	query := `SELECT id, uetr, state, risk_level, verdict, confidence, created_at FROM investigations WHERE true`
	args := []any{}
	argIdx := 1

	if filter.RiskLevel != "" {
		query += fmt.Sprintf(` AND risk_level = $%d`, argIdx)
		args = append(args, string(filter.RiskLevel))
		argIdx++
	}
	if filter.Verdict != "" {
		query += fmt.Sprintf(` AND verdict = $%d`, argIdx)
		args = append(args, string(filter.Verdict))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list investigations")
	}
	defer rows.Close()

	var out []Investigation
	for rows.Next() {
		var inv Investigation
		var stateJSON []byte
		if err := rows.Scan(&inv.ID, &inv.UETR, &stateJSON, &inv.RiskLevel, &inv.Verdict, &inv.Confidence, &inv.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan investigation")
		}
		if err := json.Unmarshal(stateJSON, &inv.State); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal state")
		}
		out = append(out, inv)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list investigations iterate")
}

// AppendAuditTrail bulk-inserts audit records via the COPY protocol.
func (s *PostgresStore) AppendAuditTrail(ctx context.Context, uetr string, records []model.ToolCallRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		argsJSON, err := json.Marshal(rec.Args)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal audit args")
		}
		rows = append(rows, []any{
			uuid.New().String(), uetr, string(rec.Agent), rec.ToolName, argsJSON, rec.Result, rec.Timestamp.UTC(),
		})
	}

	_, err := db.CopyFrom(ctx, s.pool, "audit_trail",
		[]string{"id", "uetr", "agent", "tool_name", "args", "result", "recorded_at"}, rows)
	return eris.Wrapf(err, "postgres: append audit trail %s", uetr)
}

func (s *PostgresStore) GetAuditTrail(ctx context.Context, uetr string) ([]model.ToolCallRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT agent, tool_name, args, result, recorded_at FROM audit_trail
		 WHERE uetr = $1 ORDER BY recorded_at ASC`,
		uetr,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get audit trail %s", uetr)
	}
	defer rows.Close()

	var out []model.ToolCallRecord
	for rows.Next() {
		var rec model.ToolCallRecord
		var argsJSON []byte
		if err := rows.Scan(&rec.Agent, &rec.ToolName, &argsJSON, &rec.Result, &rec.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit record")
		}
		if err := json.Unmarshal(argsJSON, &rec.Args); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal audit args")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: audit trail iterate")
}

// SaveAlerts upserts alerts so triage transitions overwrite status.
func (s *PostgresStore) SaveAlerts(ctx context.Context, items []alerts.Alert) error {
	if len(items) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(items))
	for _, a := range items {
		id := a.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{
			id, a.UETR, string(a.Type), string(a.Severity), a.Details, string(a.Status),
			a.CreatedAt.UTC(), a.AcknowledgedAt, a.ResolvedAt,
		})
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "alerts",
		Columns:      []string{"id", "uetr", "alert_type", "severity", "details", "status", "created_at", "acknowledged_at", "resolved_at"},
		ConflictKeys: []string{"id"},
		UpdateCols:   []string{"status", "acknowledged_at", "resolved_at"},
	}, rows)
	return eris.Wrap(err, "postgres: save alerts")
}

func (s *PostgresStore) ListAlerts(ctx context.Context, status alerts.AlertStatus) ([]alerts.Alert, error) {
	query := `SELECT id, uetr, alert_type, severity, details, status, created_at, acknowledged_at, resolved_at FROM alerts`
	args := []any{}
	if status != "" && status != "all" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list alerts")
	}
	defer rows.Close()

	var out []alerts.Alert
	for rows.Next() {
		var a alerts.Alert
		if err := rows.Scan(&a.ID, &a.UETR, &a.Type, &a.Severity, &a.Details, &a.Status,
			&a.CreatedAt, &a.AcknowledgedAt, &a.ResolvedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan alert")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list alerts iterate")
}
