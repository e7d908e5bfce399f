// Package review runs review sessions end to end: diff, evaluate, persist,
// classify and gate approval.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/liamcoop/payrollrisk/classify"
	"github.com/liamcoop/payrollrisk/delta"
	"github.com/liamcoop/payrollrisk/internal/logger"
	"github.com/liamcoop/payrollrisk/internal/telemetry"
	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/rules"
	"github.com/liamcoop/payrollrisk/store"
	"github.com/liamcoop/payrollrisk/tiers"
	"github.com/liamcoop/payrollrisk/verdict"
)

var (
	// ErrApprovalBlocked is returned when a session still has blocker judgements.
	ErrApprovalBlocked = errors.New("approval blocked by unresolved blockers")
	// ErrNotProcessed is returned when results are requested before processing finished.
	ErrNotProcessed = errors.New("session has not been processed")
	// ErrAlreadyApproved is returned when an approved session would change.
	ErrAlreadyApproved = errors.New("session already approved")
)

// Result is everything a reviewer sees for one session.
type Result struct {
	Session    store.Session     `json:"session"`
	Sections   classify.Sections `json:"sections"`
	Verdict    verdict.Verdict   `json:"verdict"`
	Volatility Volatility        `json:"volatility"`
	Stats      *rules.Stats      `json:"stats,omitempty"`
}

// Service coordinates the engine and a ReviewStore.
type Service struct {
	engine      *rules.Engine
	store       store.ReviewStore
	recorder    *telemetry.Recorder
	concurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sends session metrics to r.
func WithRecorder(r *telemetry.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithConcurrency bounds how many sessions ProcessAll runs at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService creates a Service.
func NewService(engine *rules.Engine, st store.ReviewStore, opts ...Option) *Service {
	s := &Service{engine: engine, store: st, concurrency: 4}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the rule engine the service evaluates with.
func (s *Service) Engine() *rules.Engine {
	return s.engine
}

// Create stores a pending session for tenantID at tier.
func (s *Service) Create(ctx context.Context, tenantID string, tier tiers.Tier, data payroll.Dataset) (*store.Session, error) {
	if !tier.Valid() {
		return nil, fmt.Errorf("%w: %q", tiers.ErrUnknownTier, tier)
	}
	sess := &store.Session{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Tier:     tier,
		Status:   store.StatusPending,
		Dataset:  data,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Sessions lists a tenant's sessions, newest first.
func (s *Service) Sessions(ctx context.Context, tenantID string) ([]store.Session, error) {
	return s.store.ListSessions(ctx, tenantID)
}

// Process computes deltas and judgements for a session and replaces any
// previously stored results. Running it again yields the same rows.
func (s *Service) Process(ctx context.Context, sessionID string) (*Result, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == store.StatusApproved {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyApproved, sessionID)
	}
	// the store refuses to move a session approved since the read above
	if err := s.store.UpdateStatus(ctx, sessionID, store.StatusProcessing); err != nil {
		return nil, approvedOr(err, sessionID)
	}

	start := time.Now()
	deltas, judgements, stats, err := s.evaluate(sess)
	if err == nil {
		err = s.persist(ctx, sessionID, deltas, judgements)
	}
	if err != nil {
		s.fail(ctx, sess, start)
		return nil, fmt.Errorf("failed to process session %s: %w", sessionID, err)
	}

	if err := s.store.UpdateStatus(ctx, sessionID, store.StatusProcessed); err != nil {
		return nil, approvedOr(err, sessionID)
	}
	sess.Status = store.StatusProcessed

	s.recorder.RecordSession(ctx, string(sess.Tier), string(store.StatusProcessed), time.Since(start))
	s.recorder.RecordJudgements(ctx, countBySeverity(judgements))
	s.recorder.RecordFaults(ctx, stats.Faults)

	res := buildResult(*sess, deltas, judgements)
	res.Stats = &stats
	logger.Info("session processed",
		"session_id", sessionID,
		"tenant_id", sess.TenantID,
		"tier", sess.Tier,
		"deltas", len(deltas),
		"judgements", len(judgements),
		"faults", stats.Faults,
		"status", res.Verdict.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (s *Service) evaluate(sess *store.Session) ([]delta.Delta, []rules.Judgement, rules.Stats, error) {
	deltas, err := delta.ComputeDeltas(sess.Dataset.Baseline, sess.Dataset.Current)
	if err != nil {
		return nil, nil, rules.Stats{}, err
	}
	judgements, stats, err := s.engine.EvaluateWithStats(deltas, sess.Dataset, sess.Tier)
	if err != nil {
		return nil, nil, stats, err
	}
	return deltas, judgements, stats, nil
}

func (s *Service) persist(ctx context.Context, sessionID string, deltas []delta.Delta, judgements []rules.Judgement) error {
	if err := s.store.ClearSession(ctx, sessionID); err != nil {
		return err
	}
	if err := s.store.UpsertDeltas(ctx, sessionID, deltas); err != nil {
		return err
	}
	return s.store.UpsertJudgements(ctx, sessionID, judgements)
}

func (s *Service) fail(ctx context.Context, sess *store.Session, start time.Time) {
	if err := s.store.UpdateStatus(ctx, sess.ID, store.StatusFailed); err != nil {
		logger.Error("failed to mark session failed", "session_id", sess.ID, "error", err)
	}
	s.recorder.RecordSession(ctx, string(sess.Tier), string(store.StatusFailed), time.Since(start))
}

// Report rebuilds sections and verdict from the persisted judgements.
func (s *Service) Report(ctx context.Context, sessionID string) (*Result, error) {
	sess, err := s.processedSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	deltas, err := s.store.ListDeltas(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	judgements, err := s.store.ListJudgements(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return buildResult(*sess, deltas, judgements), nil
}

// Verdict returns the session's verdict computed from persisted judgements.
func (s *Service) Verdict(ctx context.Context, sessionID string) (verdict.Verdict, error) {
	if _, err := s.processedSession(ctx, sessionID); err != nil {
		return verdict.Verdict{}, err
	}
	judgements, err := s.store.ListJudgements(ctx, sessionID)
	if err != nil {
		return verdict.Verdict{}, err
	}
	return verdict.Summarize(classify.Classify(judgements)), nil
}

// Deltas returns the persisted deltas of a processed session.
func (s *Service) Deltas(ctx context.Context, sessionID string) ([]delta.Delta, error) {
	if _, err := s.processedSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.ListDeltas(ctx, sessionID)
}

// Approve records approval. The store re-checks status and blockers in the
// same write that approves.
func (s *Service) Approve(ctx context.Context, sessionID, approvedBy string) error {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	switch sess.Status {
	case store.StatusApproved:
		return fmt.Errorf("%w: %s", ErrAlreadyApproved, sessionID)
	case store.StatusProcessed:
	default:
		return fmt.Errorf("%w: %s is %s", ErrNotProcessed, sessionID, sess.Status)
	}

	judgements, err := s.store.ListJudgements(ctx, sessionID)
	if err != nil {
		return err
	}
	if !verdict.CanApprove(judgements) {
		return s.rejectBlocked(sessionID, countBlockers(judgements))
	}

	err = s.store.Approve(ctx, sessionID, approvedBy)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrBlockersPresent):
		return s.rejectBlocked(sessionID, -1)
	case errors.Is(err, store.ErrStatusConflict):
		current, getErr := s.store.GetSession(ctx, sessionID)
		if getErr == nil && current.Status == store.StatusApproved {
			return fmt.Errorf("%w: %s", ErrAlreadyApproved, sessionID)
		}
		return fmt.Errorf("%w: %v", ErrNotProcessed, err)
	default:
		return err
	}
	logger.Info("session approved", "session_id", sessionID, "approved_by", approvedBy)
	return nil
}

// rejectBlocked logs and builds the approval error. blockers < 0 means the
// store found blockers written after the judgements were read.
func (s *Service) rejectBlocked(sessionID string, blockers int) error {
	logger.Warn("approval rejected", "session_id", sessionID, "blockers", blockers)
	if blockers < 0 {
		return fmt.Errorf("%w: %s", ErrApprovalBlocked, sessionID)
	}
	return fmt.Errorf("%w: %d blocker(s)", ErrApprovalBlocked, blockers)
}

func countBlockers(judgements []rules.Judgement) int {
	n := 0
	for _, j := range judgements {
		if j.IsBlocker {
			n++
		}
	}
	return n
}

// approvedOr maps a store status conflict to ErrAlreadyApproved.
func approvedOr(err error, sessionID string) error {
	if errors.Is(err, store.ErrStatusConflict) {
		return fmt.Errorf("%w: %s", ErrAlreadyApproved, sessionID)
	}
	return err
}

// ProcessAll processes independent sessions in parallel. Results are in the
// order of sessionIDs; the first error cancels the remaining work.
func (s *Service) ProcessAll(ctx context.Context, sessionIDs []string) ([]*Result, error) {
	results := make([]*Result, len(sessionIDs))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)
	for i, id := range sessionIDs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			res, err := s.Process(egCtx, id)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) processedSession(ctx context.Context, sessionID string) (*store.Session, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != store.StatusProcessed && sess.Status != store.StatusApproved {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotProcessed, sessionID, sess.Status)
	}
	return sess, nil
}

func buildResult(sess store.Session, deltas []delta.Delta, judgements []rules.Judgement) *Result {
	sections := classify.Classify(judgements)
	return &Result{
		Session:    sess,
		Sections:   sections,
		Verdict:    verdict.Summarize(sections),
		Volatility: SummarizeVolatility(deltas),
	}
}

func countBySeverity(judgements []rules.Judgement) map[string]int {
	out := make(map[string]int, 3)
	for _, j := range judgements {
		out[string(j.Severity)]++
	}
	return out
}
