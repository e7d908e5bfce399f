package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/liamcoop/payrollrisk/internal/logger"
	"github.com/liamcoop/payrollrisk/tiers"
)

// Manager resolves tenant tiers through a cache in front of a Directory.
type Manager struct {
	dir   Directory
	cache TierCache
}

// NewManager creates a manager. A nil cache uses an InMemoryTierCache with
// DefaultCacheConfig.
func NewManager(dir Directory, cache TierCache) *Manager {
	if cache == nil {
		cache = NewInMemoryTierCache(DefaultCacheConfig())
	}
	return &Manager{dir: dir, cache: cache}
}

// LoadAll warms the cache with every tenant in the directory.
func (m *Manager) LoadAll(ctx context.Context) (int, error) {
	tenants, err := m.dir.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load tenants: %w", err)
	}

	loaded := 0
	for _, t := range tenants {
		if !t.Tier.Valid() {
			logger.Warn("skipping tenant with invalid tier", "tenant_id", t.ID, "tier", t.Tier)
			continue
		}
		m.cache.Set(t.ID, t.Tier)
		loaded++
	}
	logger.Info("tenants loaded", "count", loaded)
	return loaded, nil
}

// TierFor returns the tier a tenant's sessions run at.
func (m *Manager) TierFor(ctx context.Context, tenantID string) (tiers.Tier, error) {
	if tier, ok := m.cache.Get(tenantID); ok {
		return tier, nil
	}

	t, err := m.dir.Get(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if !t.Tier.Valid() {
		return "", fmt.Errorf("tenant %s: %w: %q", tenantID, tiers.ErrUnknownTier, t.Tier)
	}
	m.cache.Set(tenantID, t.Tier)
	return t.Tier, nil
}

// CreateTenant validates and stores a new tenant.
func (m *Manager) CreateTenant(ctx context.Context, t *Tenant) error {
	if err := ValidateTenant(*t); err != nil {
		return err
	}
	if err := m.dir.Create(ctx, t); err != nil {
		return err
	}
	m.cache.Set(t.ID, t.Tier)
	return nil
}

// UpdateTier changes a tenant's tier. The new tier applies to sessions
// processed after the call; persisted results are not re-evaluated.
func (m *Manager) UpdateTier(ctx context.Context, tenantID string, tier tiers.Tier) error {
	if !tier.Valid() {
		return fmt.Errorf("%w: %q", tiers.ErrUnknownTier, tier)
	}
	m.cache.Invalidate(tenantID)
	if err := m.dir.UpdateTier(ctx, tenantID, tier); err != nil {
		return err
	}
	m.cache.Set(tenantID, tier)
	return nil
}

// Get returns the directory's record for a tenant.
func (m *Manager) Get(ctx context.Context, tenantID string) (*Tenant, error) {
	return m.dir.Get(ctx, tenantID)
}

// ListTenants returns every tenant in the directory.
func (m *Manager) ListTenants(ctx context.Context) ([]Tenant, error) {
	return m.dir.List(ctx)
}

// IsNotFound reports whether err means the tenant does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}
