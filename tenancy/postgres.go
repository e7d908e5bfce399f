package tenancy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/liamcoop/payrollrisk/tiers"
)

// PostgresDirectory implements Directory over the tenants table.
type PostgresDirectory struct {
	db *sqlx.DB
}

// NewPostgresDirectory creates a directory backed by db.
func NewPostgresDirectory(db *sqlx.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) List(ctx context.Context) ([]Tenant, error) {
	var out []Tenant
	err := d.db.SelectContext(ctx, &out, `SELECT id, name, tier, created_at, updated_at FROM tenants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tenants: %w", err)
	}
	return out, nil
}

func (d *PostgresDirectory) Get(ctx context.Context, id string) (*Tenant, error) {
	var t Tenant
	err := d.db.GetContext(ctx, &t, `SELECT id, name, tier, created_at, updated_at FROM tenants WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}

func (d *PostgresDirectory) Create(ctx context.Context, t *Tenant) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := d.db.NamedExecContext(ctx, `
		INSERT INTO tenants (id, name, tier, created_at, updated_at)
		VALUES (:id, :name, :tier, :created_at, :updated_at)
	`, t)
	if err != nil {
		return fmt.Errorf("failed to insert tenant: %w", err)
	}
	return nil
}

func (d *PostgresDirectory) UpdateTier(ctx context.Context, id string, tier tiers.Tier) error {
	result, err := d.db.ExecContext(ctx, `
		UPDATE tenants
		SET tier = $1, updated_at = $2
		WHERE id = $3
	`, string(tier), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update tenant tier: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrTenantNotFound, id)
	}
	return nil
}
