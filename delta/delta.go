// Package delta compares a baseline payroll run with a current run and emits
// one Delta per detected change.
package delta

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/liamcoop/payrollrisk/payroll"
)

// ErrEmptyDataset is returned when either side of the comparison has no records.
var ErrEmptyDataset = errors.New("dataset is empty")

// ChangeType describes how a metric moved between runs.
type ChangeType string

const (
	Increase        ChangeType = "increase"
	Decrease        ChangeType = "decrease"
	NewEmployee     ChangeType = "new_employee"
	RemovedEmployee ChangeType = "removed_employee"
	NoChange        ChangeType = "no_change"
)

// Key identifies a Delta within one run.
type Key struct {
	EmployeeID string         `json:"employee_id"`
	Metric     payroll.Metric `json:"metric"`
}

// Delta is one detected difference for one employee on one metric.
// DeltaPercentage is nil whenever BaselineValue is nil or zero.
type Delta struct {
	EmployeeID      string         `json:"employee_id"`
	Metric          payroll.Metric `json:"metric"`
	ChangeType      ChangeType     `json:"change_type"`
	BaselineValue   *float64       `json:"baseline_value"`
	CurrentValue    *float64       `json:"current_value"`
	DeltaAbsolute   *float64       `json:"delta_absolute"`
	DeltaPercentage *float64       `json:"delta_percentage"`
}

// Key returns the (employee, metric) identity of d.
func (d Delta) Key() Key {
	return Key{EmployeeID: d.EmployeeID, Metric: d.Metric}
}

// IsMetricChange reports whether d is an increase or decrease on a metric,
// as opposed to an employee-level marker.
func (d Delta) IsMetricChange() bool {
	return d.ChangeType == Increase || d.ChangeType == Decrease
}

// ComputeDeltas diffs baseline against current. Records are matched on the
// trimmed employee id; when an id repeats within one collection the first
// occurrence is compared and the repeat is left for the rule library to report.
// The result is ordered by employee id and then canonical metric order.
func ComputeDeltas(baseline, current []payroll.Record) ([]Delta, error) {
	if len(baseline) == 0 {
		return nil, fmt.Errorf("baseline: %w", ErrEmptyDataset)
	}
	if len(current) == 0 {
		return nil, fmt.Errorf("current: %w", ErrEmptyDataset)
	}

	base := index(baseline)
	curr := index(current)

	ids := make([]string, 0, len(base)+len(curr))
	for id := range base {
		ids = append(ids, id)
	}
	for id := range curr {
		if _, ok := base[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var out []Delta
	for _, id := range ids {
		b, inBase := base[id]
		c, inCurr := curr[id]

		switch {
		case inBase && !inCurr:
			out = append(out, Delta{
				EmployeeID:    id,
				Metric:        payroll.NetPay,
				ChangeType:    RemovedEmployee,
				BaselineValue: b.Ptr(payroll.NetPay),
			})
		case !inBase && inCurr:
			out = append(out, Delta{
				EmployeeID:   id,
				Metric:       payroll.NetPay,
				ChangeType:   NewEmployee,
				CurrentValue: c.Ptr(payroll.NetPay),
			})
		default:
			changes := compare(id, b, c)
			if len(changes) == 0 {
				out = append(out, unchanged(id, c))
				continue
			}
			out = append(out, changes...)
		}
	}
	return out, nil
}

// compare emits one Delta per registry metric whose value moved. Null is
// compared as zero but stored as nil.
func compare(id string, b, c *payroll.Record) []Delta {
	var out []Delta
	for _, m := range payroll.Metrics() {
		bv := b.ValueOrZero(m)
		cv := c.ValueOrZero(m)
		if bv == cv {
			continue
		}

		abs := cv - bv
		d := Delta{
			EmployeeID:    id,
			Metric:        m,
			ChangeType:    Increase,
			BaselineValue: b.Ptr(m),
			CurrentValue:  c.Ptr(m),
			DeltaAbsolute: &abs,
		}
		if abs < 0 {
			d.ChangeType = Decrease
		}
		if d.BaselineValue != nil && bv != 0 {
			pct := abs / math.Abs(bv) * 100
			d.DeltaPercentage = &pct
		}
		out = append(out, d)
	}
	return out
}

// unchanged builds the synthetic marker that lets employee-level rules
// attach to an employee with no metric movement.
func unchanged(id string, c *payroll.Record) Delta {
	net := c.ValueOrZero(payroll.NetPay)
	baseNet := net
	var zero float64
	d := Delta{
		EmployeeID:    id,
		Metric:        payroll.NetPay,
		ChangeType:    NoChange,
		BaselineValue: &baseNet,
		CurrentValue:  &net,
		DeltaAbsolute: &zero,
	}
	if baseNet != 0 {
		var pct float64
		d.DeltaPercentage = &pct
	}
	return d
}

func index(records []payroll.Record) map[string]*payroll.Record {
	out := make(map[string]*payroll.Record, len(records))
	for i := range records {
		id := records[i].ID()
		if _, seen := out[id]; seen {
			continue
		}
		out[id] = &records[i]
	}
	return out
}

// GroupByEmployee splits deltas into per-employee slices, preserving order.
func GroupByEmployee(deltas []Delta) (map[string][]Delta, []string) {
	groups := make(map[string][]Delta)
	var order []string
	for _, d := range deltas {
		if _, ok := groups[d.EmployeeID]; !ok {
			order = append(order, d.EmployeeID)
		}
		groups[d.EmployeeID] = append(groups[d.EmployeeID], d)
	}
	return groups, order
}

// Representative picks the Delta an employee-level finding attaches to:
// the net_pay Delta when present, otherwise the first one.
func Representative(deltas []Delta) (Delta, bool) {
	if len(deltas) == 0 {
		return Delta{}, false
	}
	for _, d := range deltas {
		if d.Metric == payroll.NetPay {
			return d, true
		}
	}
	return deltas[0], true
}
