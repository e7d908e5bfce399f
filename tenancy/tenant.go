// Package tenancy maps tenants to the subscription tier that gates which rules
// their review sessions evaluate.
package tenancy

import (
	"context"
	"errors"
	"time"

	"github.com/liamcoop/payrollrisk/tiers"
)

// ErrTenantNotFound is returned when a tenant id is unknown.
var ErrTenantNotFound = errors.New("tenant not found")

// Tenant is one customer organization.
type Tenant struct {
	ID        string     `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Tier      tiers.Tier `json:"tier" db:"tier"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Directory is the source of truth for tenants.
type Directory interface {
	List(ctx context.Context) ([]Tenant, error)
	Get(ctx context.Context, id string) (*Tenant, error)
	Create(ctx context.Context, t *Tenant) error
	UpdateTier(ctx context.Context, id string, tier tiers.Tier) error
}
