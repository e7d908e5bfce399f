package tenancy

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/liamcoop/payrollrisk/tiers"
)

// countingDirectory records how often Get reaches the directory.
type countingDirectory struct {
	*InMemoryDirectory
	mu   sync.Mutex
	gets int
}

func (d *countingDirectory) Get(ctx context.Context, id string) (*Tenant, error) {
	d.mu.Lock()
	d.gets++
	d.mu.Unlock()
	return d.InMemoryDirectory.Get(ctx, id)
}

func newCountingDirectory(seed ...Tenant) *countingDirectory {
	return &countingDirectory{InMemoryDirectory: NewInMemoryDirectory(seed...)}
}

// TestManagerLoadAll verifies valid tenants are cached and invalid tiers skipped.
func TestManagerLoadAll(t *testing.T) {
	dir := newCountingDirectory(
		Tenant{ID: "acme", Name: "Acme", Tier: tiers.Pro},
		Tenant{ID: "globex", Name: "Globex", Tier: tiers.Enterprise},
		Tenant{ID: "legacy", Name: "Legacy", Tier: "gold"},
	)
	m := NewManager(dir, nil)

	loaded, err := m.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("Failed to load tenants: %v", err)
	}
	if loaded != 2 {
		t.Errorf("Expected 2 tenants loaded, got %d", loaded)
	}

	tier, err := m.TierFor(context.Background(), "globex")
	if err != nil {
		t.Fatalf("Failed to resolve tier: %v", err)
	}
	if tier != tiers.Enterprise {
		t.Errorf("Expected enterprise, got %s", tier)
	}
	if dir.gets != 0 {
		t.Errorf("Expected cached lookup, directory was read %d times", dir.gets)
	}

	if _, err := m.TierFor(context.Background(), "legacy"); !errors.Is(err, tiers.ErrUnknownTier) {
		t.Errorf("Expected ErrUnknownTier for invalid stored tier, got: %v", err)
	}
}

// TestManagerTierForCachesMisses verifies a miss is read once then served from cache.
func TestManagerTierForCachesMisses(t *testing.T) {
	dir := newCountingDirectory(Tenant{ID: "acme", Name: "Acme", Tier: tiers.Starter})
	m := NewManager(dir, nil)

	for i := 0; i < 3; i++ {
		tier, err := m.TierFor(context.Background(), "acme")
		if err != nil {
			t.Fatalf("Failed to resolve tier: %v", err)
		}
		if tier != tiers.Starter {
			t.Errorf("Expected starter, got %s", tier)
		}
	}
	if dir.gets != 1 {
		t.Errorf("Expected 1 directory read, got %d", dir.gets)
	}
}

// TestManagerTierForUnknownTenant verifies unknown tenants wrap ErrTenantNotFound.
func TestManagerTierForUnknownTenant(t *testing.T) {
	m := NewManager(NewInMemoryDirectory(), nil)

	_, err := m.TierFor(context.Background(), "nobody")
	if !IsNotFound(err) {
		t.Errorf("Expected ErrTenantNotFound, got: %v", err)
	}
}

// TestManagerUpdateTier verifies tier changes are visible immediately.
func TestManagerUpdateTier(t *testing.T) {
	m := NewManager(NewInMemoryDirectory(Tenant{ID: "acme", Name: "Acme", Tier: tiers.Starter}), nil)
	ctx := context.Background()

	if _, err := m.TierFor(ctx, "acme"); err != nil {
		t.Fatalf("Failed to resolve tier: %v", err)
	}
	if err := m.UpdateTier(ctx, "acme", tiers.Enterprise); err != nil {
		t.Fatalf("Failed to update tier: %v", err)
	}

	tier, err := m.TierFor(ctx, "acme")
	if err != nil {
		t.Fatalf("Failed to resolve tier: %v", err)
	}
	if tier != tiers.Enterprise {
		t.Errorf("Expected enterprise after update, got %s", tier)
	}

	if err := m.UpdateTier(ctx, "acme", "platinum"); !errors.Is(err, tiers.ErrUnknownTier) {
		t.Errorf("Expected ErrUnknownTier, got: %v", err)
	}
	if err := m.UpdateTier(ctx, "nobody", tiers.Pro); !IsNotFound(err) {
		t.Errorf("Expected ErrTenantNotFound, got: %v", err)
	}
}

// TestManagerCreateTenant verifies validation runs before the directory write.
func TestManagerCreateTenant(t *testing.T) {
	m := NewManager(NewInMemoryDirectory(), nil)
	ctx := context.Background()

	if err := m.CreateTenant(ctx, &Tenant{ID: "bad id", Name: "x", Tier: tiers.Pro}); err == nil {
		t.Error("Expected validation error, got nil")
	}

	tenant := &Tenant{ID: "acme", Name: "Acme", Tier: tiers.Pro}
	if err := m.CreateTenant(ctx, tenant); err != nil {
		t.Fatalf("Failed to create tenant: %v", err)
	}
	if tenant.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
	if err := m.CreateTenant(ctx, &Tenant{ID: "acme", Name: "Acme", Tier: tiers.Pro}); err == nil {
		t.Error("Expected duplicate tenant error, got nil")
	}

	list, err := m.ListTenants(ctx)
	if err != nil {
		t.Fatalf("Failed to list tenants: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 tenant, got %d", len(list))
	}
}

// TestInMemoryTierCacheTTL verifies entries expire after the configured TTL.
func TestInMemoryTierCacheTTL(t *testing.T) {
	c := NewInMemoryTierCache(CacheConfig{TTL: time.Minute})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("acme", tiers.Pro)
	if tier, ok := c.Get("acme"); !ok || tier != tiers.Pro {
		t.Errorf("Expected cached pro, got %q (hit=%v)", tier, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("acme"); ok {
		t.Error("Expected entry to expire")
	}

	c.Set("acme", tiers.Pro)
	c.Set("globex", tiers.Starter)
	c.Invalidate("acme")
	if _, ok := c.Get("acme"); ok {
		t.Error("Expected invalidated entry to miss")
	}
	c.InvalidateAll()
	if _, ok := c.Get("globex"); ok {
		t.Error("Expected all entries to miss after InvalidateAll")
	}
}

// TestInMemoryTierCacheNoTTL verifies a zero TTL never expires.
func TestInMemoryTierCacheNoTTL(t *testing.T) {
	c := NewInMemoryTierCache(CacheConfig{})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("acme", tiers.Enterprise)
	now = now.Add(24 * 365 * time.Hour)
	if _, ok := c.Get("acme"); !ok {
		t.Error("Expected entry without TTL to stay cached")
	}
}
