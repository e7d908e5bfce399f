package tenancy

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/payrollrisk/tiers"
)

func newMockDirectory(t *testing.T) (*PostgresDirectory, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewPostgresDirectory(sqlx.NewDb(mockDB, "postgres")), mock
}

func TestPostgresDirectory_List(t *testing.T) {
	dir, mock := newMockDirectory(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "name", "tier", "created_at", "updated_at"}).
		AddRow("acme", "Acme", "pro", now, now).
		AddRow("globex", "Globex", "starter", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, tier, created_at, updated_at FROM tenants ORDER BY id")).
		WillReturnRows(rows)

	list, err := dir.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, tiers.Pro, list[0].Tier)
	assert.Equal(t, "globex", list[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectory_GetNotFound(t *testing.T) {
	dir, mock := newMockDirectory(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tenants WHERE id = $1")).
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	_, err := dir.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrTenantNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectory_Create(t *testing.T) {
	dir, mock := newMockDirectory(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tenants")).
		WithArgs("acme", "Acme", "pro", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := dir.Create(context.Background(), &Tenant{ID: "acme", Name: "Acme", Tier: tiers.Pro})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectory_UpdateTier(t *testing.T) {
	dir, mock := newMockDirectory(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE tenants")).
		WithArgs("enterprise", sqlmock.AnyArg(), "acme").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE tenants")).
		WithArgs("enterprise", sqlmock.AnyArg(), "nobody").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, dir.UpdateTier(context.Background(), "acme", tiers.Enterprise))
	assert.ErrorIs(t, dir.UpdateTier(context.Background(), "nobody", tiers.Enterprise), ErrTenantNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
