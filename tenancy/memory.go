package tenancy

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/liamcoop/payrollrisk/tiers"
)

// InMemoryDirectory implements Directory without a database.
type InMemoryDirectory struct {
	tenants map[string]Tenant
	mu      sync.RWMutex
}

// NewInMemoryDirectory creates a directory seeded with tenants.
func NewInMemoryDirectory(seed ...Tenant) *InMemoryDirectory {
	d := &InMemoryDirectory{tenants: make(map[string]Tenant, len(seed))}
	for _, t := range seed {
		d.tenants[t.ID] = t
	}
	return d
}

func (d *InMemoryDirectory) List(ctx context.Context) ([]Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Tenant, 0, len(d.tenants))
	for _, t := range d.tenants {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (d *InMemoryDirectory) Get(ctx context.Context, id string) (*Tenant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	t, ok := d.tenants[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, id)
	}
	return &t, nil
}

func (d *InMemoryDirectory) Create(ctx context.Context, t *Tenant) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.tenants[t.ID]; exists {
		return fmt.Errorf("tenant %s already exists", t.ID)
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	d.tenants[t.ID] = *t
	return nil
}

func (d *InMemoryDirectory) UpdateTier(ctx context.Context, id string, tier tiers.Tier) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.tenants[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTenantNotFound, id)
	}
	t.Tier = tier
	t.UpdatedAt = time.Now().UTC()
	d.tenants[id] = t
	return nil
}
