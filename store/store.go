// Package store persists review sessions with their deltas and judgements.
package store

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/payrollrisk/delta"
	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/rules"
	"github.com/liamcoop/payrollrisk/tiers"
)

var (
	// ErrSessionNotFound is returned when a session id does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStatusConflict is returned when a session's current status forbids the transition.
	ErrStatusConflict = errors.New("session status conflict")
	// ErrBlockersPresent is returned when approval finds blocker judgements.
	ErrBlockersPresent = errors.New("session has blocker judgements")
)

// Status is where a session is in its lifecycle.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusApproved   Status = "approved"
	StatusFailed     Status = "failed"
)

// Session is one review of a current payroll against its baseline.
type Session struct {
	ID         string          `json:"id"`
	TenantID   string          `json:"tenant_id"`
	Tier       tiers.Tier      `json:"tier"`
	Status     Status          `json:"status"`
	Dataset    payroll.Dataset `json:"-"`
	ApprovedBy string          `json:"approved_by,omitempty"`
	ApprovedAt *time.Time      `json:"approved_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ReviewStore persists sessions and their results. Upserts are keyed on
// (session, employee, metric) for deltas and (session, employee, metric,
// rule) for judgements, so writing the same run twice never duplicates rows.
type ReviewStore interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	ListSessions(ctx context.Context, tenantID string) ([]Session, error)
	// UpdateStatus never moves an approved session; it returns ErrStatusConflict instead.
	UpdateStatus(ctx context.Context, id string, status Status) error
	// Approve moves a processed session with no blocker judgements to approved
	// in one step. It returns ErrStatusConflict when the session is not
	// processed and ErrBlockersPresent when a blocker is stored.
	Approve(ctx context.Context, id, approvedBy string) error

	// ClearSession drops every delta and judgement of a session.
	ClearSession(ctx context.Context, id string) error
	UpsertDeltas(ctx context.Context, sessionID string, deltas []delta.Delta) error
	UpsertJudgements(ctx context.Context, sessionID string, judgements []rules.Judgement) error
	ListDeltas(ctx context.Context, sessionID string) ([]delta.Delta, error)
	ListJudgements(ctx context.Context, sessionID string) ([]rules.Judgement, error)
}

// DeltaRowID is the deterministic row id of a delta within a session.
func DeltaRowID(sessionID string, k delta.Key) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(sessionID+"/"+k.EmployeeID+"/"+string(k.Metric)))
}

// JudgementRowID is the deterministic row id of a judgement within a session.
func JudgementRowID(sessionID string, j rules.Judgement) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID,
		[]byte(sessionID+"/"+j.EmployeeID+"/"+string(j.Delta.Metric)+"/"+j.RuleID))
}

// sortDeltas orders deltas by employee id, then canonical metric order.
func sortDeltas(ds []delta.Delta) {
	slices.SortStableFunc(ds, func(a, b delta.Delta) int {
		if c := cmp.Compare(a.EmployeeID, b.EmployeeID); c != 0 {
			return c
		}
		return cmp.Compare(payroll.Order(a.Metric), payroll.Order(b.Metric))
	})
}

// sortJudgements orders judgements by employee id, metric order, then rule id.
func sortJudgements(js []rules.Judgement) {
	slices.SortStableFunc(js, func(a, b rules.Judgement) int {
		if c := cmp.Compare(a.EmployeeID, b.EmployeeID); c != 0 {
			return c
		}
		if c := cmp.Compare(payroll.Order(a.Delta.Metric), payroll.Order(b.Delta.Metric)); c != 0 {
			return c
		}
		return cmp.Compare(a.RuleID, b.RuleID)
	})
}

// sortSessions orders sessions newest first, then by id.
func sortSessions(ss []Session) {
	slices.SortStableFunc(ss, func(a, b Session) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
