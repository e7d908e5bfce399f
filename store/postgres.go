package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/liamcoop/payrollrisk/delta"
	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/rules"
	"github.com/liamcoop/payrollrisk/tiers"
)

// DefaultBatchSize is how many rows one upsert transaction writes.
const DefaultBatchSize = 500

// jsonDataset stores a payroll.Dataset in a JSONB column.
type jsonDataset payroll.Dataset

// Value implements driver.Valuer
func (d jsonDataset) Value() (driver.Value, error) {
	return json.Marshal(payroll.Dataset(d))
}

// Scan implements sql.Scanner
func (d *jsonDataset) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*d = jsonDataset{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported dataset column type %T", value)
	}
	var out payroll.Dataset
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode dataset: %w", err)
	}
	*d = jsonDataset(out)
	return nil
}

type sessionRow struct {
	ID         string      `db:"id"`
	TenantID   string      `db:"tenant_id"`
	Tier       string      `db:"tier"`
	Status     string      `db:"status"`
	Dataset    jsonDataset `db:"dataset"`
	ApprovedBy string      `db:"approved_by"`
	ApprovedAt *time.Time  `db:"approved_at"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func (r sessionRow) session() Session {
	return Session{
		ID:         r.ID,
		TenantID:   r.TenantID,
		Tier:       tiers.Tier(r.Tier),
		Status:     Status(r.Status),
		Dataset:    payroll.Dataset(r.Dataset),
		ApprovedBy: r.ApprovedBy,
		ApprovedAt: r.ApprovedAt,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type deltaRow struct {
	EmployeeID      string   `db:"employee_id"`
	Metric          string   `db:"metric"`
	ChangeType      string   `db:"change_type"`
	BaselineValue   *float64 `db:"baseline_value"`
	CurrentValue    *float64 `db:"current_value"`
	DeltaAbsolute   *float64 `db:"delta_absolute"`
	DeltaPercentage *float64 `db:"delta_percentage"`
}

type judgementRow struct {
	EmployeeID      string   `db:"employee_id"`
	Metric          string   `db:"metric"`
	RuleID          string   `db:"rule_id"`
	RuleName        string   `db:"rule_name"`
	Category        string   `db:"category"`
	Severity        string   `db:"severity"`
	IsMaterial      bool     `db:"is_material"`
	IsBlocker       bool     `db:"is_blocker"`
	Confidence      float64  `db:"confidence"`
	Reasoning       string   `db:"reasoning"`
	DeltaPercentage *float64 `db:"delta_percentage"`
}

const (
	sessionColumns = `id, tenant_id, tier, status, dataset, approved_by, approved_at, created_at, updated_at`

	upsertDeltaSQL = `
		INSERT INTO deltas (id, session_id, employee_id, metric, change_type,
			baseline_value, current_value, delta_absolute, delta_percentage)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (session_id, employee_id, metric) DO UPDATE SET
			change_type = EXCLUDED.change_type,
			baseline_value = EXCLUDED.baseline_value,
			current_value = EXCLUDED.current_value,
			delta_absolute = EXCLUDED.delta_absolute,
			delta_percentage = EXCLUDED.delta_percentage`

	upsertJudgementSQL = `
		INSERT INTO judgements (id, session_id, employee_id, metric, rule_id, rule_name,
			category, severity, is_material, is_blocker, confidence, reasoning, delta_percentage)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (session_id, employee_id, metric, rule_id) DO UPDATE SET
			rule_name = EXCLUDED.rule_name,
			category = EXCLUDED.category,
			severity = EXCLUDED.severity,
			is_material = EXCLUDED.is_material,
			is_blocker = EXCLUDED.is_blocker,
			confidence = EXCLUDED.confidence,
			reasoning = EXCLUDED.reasoning,
			delta_percentage = EXCLUDED.delta_percentage`
)

// PostgresStore implements ReviewStore backed by PostgreSQL
type PostgresStore struct {
	db        *sqlx.DB
	batchSize int
}

// NewPostgresStore creates a store writing batchSize rows per transaction.
// A non-positive batchSize uses DefaultBatchSize.
func NewPostgresStore(db *sqlx.DB, batchSize int) *PostgresStore {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &PostgresStore{db: db, batchSize: batchSize}
}

// CreateSession inserts a new session
func (s *PostgresStore) CreateSession(ctx context.Context, sess *Session) error {
	now := time.Now().UTC()
	sess.CreatedAt = now
	sess.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO review_sessions (id, tenant_id, tier, status, dataset, approved_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, sess.ID, sess.TenantID, string(sess.Tier), string(sess.Status), jsonDataset(sess.Dataset),
		sess.ApprovedBy, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*Session, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `SELECT `+sessionColumns+` FROM review_sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	out := row.session()
	return &out, nil
}

// ListSessions returns the tenant's sessions, newest first
func (s *PostgresStore) ListSessions(ctx context.Context, tenantID string) ([]Session, error) {
	var rows []sessionRow
	err := s.db.SelectContext(ctx, &rows, `SELECT `+sessionColumns+`
		FROM review_sessions
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := make([]Session, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.session())
	}
	return out, nil
}

// UpdateStatus moves a session to status unless it is already approved
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE review_sessions
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status <> $4
	`, string(status), time.Now().UTC(), id, string(StatusApproved))
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	changed, err := changedRow(result)
	if err != nil || changed {
		return err
	}
	_, err = s.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s", ErrStatusConflict, id, StatusApproved)
}

// Approve marks a processed session approved. The status and blocker checks
// are part of the UPDATE so a concurrent re-process cannot slip between them.
func (s *PostgresStore) Approve(ctx context.Context, id, approvedBy string) error {
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE review_sessions
		SET status = $1, approved_by = $2, approved_at = $3, updated_at = $3
		WHERE id = $4 AND status = $5
		  AND NOT EXISTS (SELECT 1 FROM judgements WHERE session_id = $4 AND is_blocker)
	`, string(StatusApproved), approvedBy, now, id, string(StatusProcessed))
	if err != nil {
		return fmt.Errorf("failed to approve session: %w", err)
	}
	changed, err := changedRow(result)
	if err != nil || changed {
		return err
	}

	status, err := s.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	if status != StatusProcessed {
		return fmt.Errorf("%w: %s is %s", ErrStatusConflict, id, status)
	}
	return fmt.Errorf("%w: %s", ErrBlockersPresent, id)
}

// currentStatus explains an UPDATE that matched no row.
func (s *PostgresStore) currentStatus(ctx context.Context, id string) (Status, error) {
	var status string
	err := s.db.GetContext(ctx, &status, `SELECT status FROM review_sessions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session status: %w", err)
	}
	return Status(status), nil
}

func changedRow(result sql.Result) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ClearSession deletes the session's judgements and deltas in one transaction
func (s *PostgresStore) ClearSession(ctx context.Context, id string) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM judgements WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear judgements: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM deltas WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear deltas: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit clear: %w", err)
	}
	return nil
}

// UpsertDeltas writes deltas in chunks, one transaction per chunk
func (s *PostgresStore) UpsertDeltas(ctx context.Context, sessionID string, deltas []delta.Delta) error {
	return s.inChunks(ctx, len(deltas), upsertDeltaSQL, func(i int) []any {
		d := deltas[i]
		return []any{
			DeltaRowID(sessionID, d.Key()).String(), sessionID, d.EmployeeID, string(d.Metric), string(d.ChangeType),
			d.BaselineValue, d.CurrentValue, d.DeltaAbsolute, d.DeltaPercentage,
		}
	})
}

// UpsertJudgements writes judgements in chunks, one transaction per chunk
func (s *PostgresStore) UpsertJudgements(ctx context.Context, sessionID string, judgements []rules.Judgement) error {
	return s.inChunks(ctx, len(judgements), upsertJudgementSQL, func(i int) []any {
		j := judgements[i]
		return []any{
			JudgementRowID(sessionID, j).String(), sessionID, j.EmployeeID, string(j.Delta.Metric), j.RuleID, j.RuleName,
			string(j.Category), string(j.Severity), j.IsMaterial, j.IsBlocker, j.Confidence, j.Reasoning, j.DeltaPercentage,
		}
	})
}

// inChunks runs query for rows [0,n) in batches. A failed batch rolls back
// on its own; earlier batches stay committed and are overwritten by the next run.
func (s *PostgresStore) inChunks(ctx context.Context, n int, query string, args func(i int) []any) error {
	for start := 0; start < n; start += s.batchSize {
		end := min(start+s.batchSize, n)
		if err := s.execBatch(ctx, query, start, end, args); err != nil {
			return fmt.Errorf("failed to write rows %d-%d: %w", start, end, err)
		}
	}
	return nil
}

func (s *PostgresStore) execBatch(ctx context.Context, query string, start, end int, args func(i int) []any) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := start; i < end; i++ {
		if _, err = stmt.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListDeltas returns the session's deltas in employee and metric order
func (s *PostgresStore) ListDeltas(ctx context.Context, sessionID string) ([]delta.Delta, error) {
	var rows []deltaRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT employee_id, metric, change_type, baseline_value, current_value, delta_absolute, delta_percentage
		FROM deltas
		WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deltas: %w", err)
	}

	out := make([]delta.Delta, 0, len(rows))
	for _, r := range rows {
		out = append(out, delta.Delta{
			EmployeeID:      r.EmployeeID,
			Metric:          payroll.Metric(r.Metric),
			ChangeType:      delta.ChangeType(r.ChangeType),
			BaselineValue:   r.BaselineValue,
			CurrentValue:    r.CurrentValue,
			DeltaAbsolute:   r.DeltaAbsolute,
			DeltaPercentage: r.DeltaPercentage,
		})
	}
	sortDeltas(out)
	return out, nil
}

// ListJudgements returns the session's persisted judgements
func (s *PostgresStore) ListJudgements(ctx context.Context, sessionID string) ([]rules.Judgement, error) {
	var rows []judgementRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT employee_id, metric, rule_id, rule_name, category, severity,
			is_material, is_blocker, confidence, reasoning, delta_percentage
		FROM judgements
		WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list judgements: %w", err)
	}

	out := make([]rules.Judgement, 0, len(rows))
	for _, r := range rows {
		out = append(out, rules.Judgement{
			EmployeeID:      r.EmployeeID,
			RuleID:          r.RuleID,
			RuleName:        r.RuleName,
			Category:        payroll.Category(r.Category),
			Severity:        rules.Severity(r.Severity),
			IsMaterial:      r.IsMaterial,
			IsBlocker:       r.IsBlocker,
			Confidence:      r.Confidence,
			Reasoning:       r.Reasoning,
			Delta:           delta.Key{EmployeeID: r.EmployeeID, Metric: payroll.Metric(r.Metric)},
			DeltaPercentage: r.DeltaPercentage,
		})
	}
	sortJudgements(out)
	return out, nil
}
