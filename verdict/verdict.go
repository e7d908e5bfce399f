// Package verdict reduces classified judgements to an overall status and
// guards approval.
package verdict

import (
	"github.com/liamcoop/payrollrisk/classify"
	"github.com/liamcoop/payrollrisk/rules"
)

// Status is the overall outcome of a review session.
type Status string

const (
	Blocked        Status = "blocked"
	ReviewRequired Status = "review_required"
	ReadyToApprove Status = "ready_to_approve"
)

// Verdict is derived from sections on demand and never stored.
type Verdict struct {
	Status        Status `json:"status"`
	BlockersCount int    `json:"blockers_count"`
	ReviewsCount  int    `json:"reviews_count"`
	InfoCount     int    `json:"info_count"`
}

// Summarize counts sections and picks the status: blocked when anything
// blocks, review_required when anything needs review, otherwise ready.
func Summarize(s classify.Sections) Verdict {
	v := Verdict{
		BlockersCount: len(s.Blockers),
		ReviewsCount:  len(s.HighRisk) + len(s.Compliance) + len(s.Volatility) + len(s.Systemic),
		InfoCount:     len(s.Noise),
	}
	switch {
	case v.BlockersCount > 0:
		v.Status = Blocked
	case v.ReviewsCount > 0:
		v.Status = ReviewRequired
	default:
		v.Status = ReadyToApprove
	}
	return v
}

// CanApprove re-checks stored judgements at approval time. It looks only at
// the judgements themselves, never at a previously computed verdict.
func CanApprove(judgements []rules.Judgement) bool {
	for _, j := range judgements {
		if j.IsBlocker {
			return false
		}
	}
	return true
}
