package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/liamcoop/payrollrisk/delta"
	"github.com/liamcoop/payrollrisk/rules"
)

type judgementKey struct {
	delta.Key
	RuleID string
}

// InMemoryStore implements ReviewStore with maps guarded by a RWMutex.
type InMemoryStore struct {
	sessions   map[string]*Session
	deltas     map[string]map[delta.Key]delta.Delta
	judgements map[string]map[judgementKey]rules.Judgement
	mu         sync.RWMutex
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:   make(map[string]*Session),
		deltas:     make(map[string]map[delta.Key]delta.Delta),
		judgements: make(map[string]map[judgementKey]rules.Judgement),
	}
}

// CreateSession stores s, setting its timestamps.
func (m *InMemoryStore) CreateSession(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; exists {
		return fmt.Errorf("session %s already exists", s.ID)
	}

	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	stored := *s
	m.sessions[s.ID] = &stored
	return nil
}

// GetSession returns a copy of the session.
func (m *InMemoryStore) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	out := *s
	return &out, nil
}

// ListSessions returns the tenant's sessions, newest first.
func (m *InMemoryStore) ListSessions(ctx context.Context, tenantID string) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Session
	for _, s := range m.sessions {
		if s.TenantID == tenantID {
			out = append(out, *s)
		}
	}
	sortSessions(out)
	return out, nil
}

// UpdateStatus moves a session to status unless it is already approved.
func (m *InMemoryStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if s.Status == StatusApproved {
		return fmt.Errorf("%w: %s is %s", ErrStatusConflict, id, s.Status)
	}
	s.Status = status
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// Approve marks a processed session approved by approvedBy. The status and
// blocker checks run under the same lock as the write.
func (m *InMemoryStore) Approve(ctx context.Context, id, approvedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if s.Status != StatusProcessed {
		return fmt.Errorf("%w: %s is %s", ErrStatusConflict, id, s.Status)
	}
	for _, j := range m.judgements[id] {
		if j.IsBlocker {
			return fmt.Errorf("%w: %s", ErrBlockersPresent, id)
		}
	}

	now := time.Now().UTC()
	s.Status = StatusApproved
	s.ApprovedBy = approvedBy
	s.ApprovedAt = &now
	s.UpdatedAt = now
	return nil
}

// ClearSession drops the session's deltas and judgements.
func (m *InMemoryStore) ClearSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.deltas, id)
	delete(m.judgements, id)
	return nil
}

// UpsertDeltas writes deltas, replacing any with the same key.
func (m *InMemoryStore) UpsertDeltas(ctx context.Context, sessionID string, deltas []delta.Delta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.deltas[sessionID]
	if !ok {
		rows = make(map[delta.Key]delta.Delta, len(deltas))
		m.deltas[sessionID] = rows
	}
	for _, d := range deltas {
		rows[d.Key()] = d
	}
	return nil
}

// UpsertJudgements writes judgements, replacing any with the same key.
func (m *InMemoryStore) UpsertJudgements(ctx context.Context, sessionID string, judgements []rules.Judgement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.judgements[sessionID]
	if !ok {
		rows = make(map[judgementKey]rules.Judgement, len(judgements))
		m.judgements[sessionID] = rows
	}
	for _, j := range judgements {
		rows[judgementKey{Key: j.Delta, RuleID: j.RuleID}] = j
	}
	return nil
}

// ListDeltas returns the session's deltas in employee and metric order.
func (m *InMemoryStore) ListDeltas(ctx context.Context, sessionID string) ([]delta.Delta, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]delta.Delta, 0, len(m.deltas[sessionID]))
	for _, d := range m.deltas[sessionID] {
		out = append(out, d)
	}
	sortDeltas(out)
	return out, nil
}

// ListJudgements returns the session's judgements in employee, metric and rule order.
func (m *InMemoryStore) ListJudgements(ctx context.Context, sessionID string) ([]rules.Judgement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]rules.Judgement, 0, len(m.judgements[sessionID]))
	for _, j := range m.judgements[sessionID] {
		out = append(out, j)
	}
	sortJudgements(out)
	return out, nil
}
