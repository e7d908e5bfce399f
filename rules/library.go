package rules

import (
	"math"
	"strings"
	"sync"

	"github.com/liamcoop/payrollrisk/payroll"
)

var (
	libraryOnce sync.Once
	library     []Rule
)

// Library returns the built-in rule library, grouped by category and ordered
// by ID within each category.
func Library() []Rule {
	libraryOnce.Do(func() {
		var all []Rule
		all = append(all, identityRules()...)
		all = append(all, hoursRules()...)
		all = append(all, earningsRules()...)
		all = append(all, taxRules()...)
		all = append(all, deductionRules()...)
		all = append(all, fundamentalRules()...)
		all = append(all, crossRules()...)
		for i := range all {
			all[i].ConfidenceLevel = LevelFor(all[i].Confidence)
		}
		library = all
	})
	return append([]Rule(nil), library...)
}

// reconcileTolerance is the largest gap, in currency or hours, a total may
// have against the sum of its parts before it is reported.
const reconcileTolerance = 1.0

var (
	hoursMetrics     = []payroll.Metric{payroll.RegularHours, payroll.OvertimeHours, payroll.PTOHours}
	earningsMetrics  = []payroll.Metric{payroll.RegularPay, payroll.OvertimePay, payroll.BonusPay, payroll.CommissionPay, payroll.OtherEarnings}
	taxMetrics       = []payroll.Metric{payroll.FederalIncomeTax, payroll.StateIncomeTax, payroll.LocalTax, payroll.SocialSecurityTax, payroll.MedicareTax}
	deductionMetrics = []payroll.Metric{payroll.PretaxDeductions, payroll.BenefitsDeductions, payroll.Garnishments, payroll.PostTaxDeductions}
)

// negativeAny fires when any of metrics is negative in the current record.
func negativeAny(metrics ...payroll.Metric) Predicate {
	return func(ctx *Context) (bool, error) {
		for _, m := range metrics {
			if v, ok := ctx.Cur(m); ok && v < 0 {
				return true, nil
			}
		}
		return false, nil
	}
}

// sumOf adds the non-null values of metrics and counts how many were present.
func sumOf(r *payroll.Record, metrics ...payroll.Metric) (float64, int) {
	var total float64
	present := 0
	for _, m := range metrics {
		if v, ok := r.Value(m); ok {
			total += v
			present++
		}
	}
	return total, present
}

// totalMismatch fires when total is present alongside at least one part and
// the two disagree beyond tolerance.
func totalMismatch(total payroll.Metric, parts []payroll.Metric, tolerance float64) Predicate {
	return func(ctx *Context) (bool, error) {
		t, ok := ctx.Cur(total)
		if !ok {
			return false, nil
		}
		sum, n := sumOf(ctx.Current, parts...)
		if n == 0 {
			return false, nil
		}
		return math.Abs(t-sum) > tolerance, nil
	}
}

// totalOrParts returns total when present, else the sum of parts.
func totalOrParts(r *payroll.Record, total payroll.Metric, parts []payroll.Metric) (float64, bool) {
	if v, ok := r.Value(total); ok {
		return v, true
	}
	sum, n := sumOf(r, parts...)
	return sum, n > 0
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// attributeChanged fires for a continuing employee whose attribute moved
// between two non-blank values.
func attributeChanged(get func(*payroll.Record) string) Predicate {
	return func(ctx *Context) (bool, error) {
		if !ctx.Continuing() {
			return false, nil
		}
		b, c := normalize(get(ctx.Baseline)), normalize(get(ctx.Current))
		return b != "" && c != "" && b != c, nil
	}
}

// positive reports whether m is present and greater than zero.
func positive(r *payroll.Record, m payroll.Metric) bool {
	v, ok := r.Value(m)
	return ok && v > 0
}

// zeroOrNull reports whether m is absent or exactly zero.
func zeroOrNull(r *payroll.Record, m payroll.Metric) bool {
	v, ok := r.Value(m)
	return !ok || v == 0
}
