package rules

import (
	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/tiers"
)

// maxHours is the most hours one pay period of a frequency can plausibly hold.
func maxHours(frequency string) float64 {
	switch normalize(frequency) {
	case "weekly", "w":
		return 100
	case "biweekly", "bi-weekly", "b":
		return 200
	case "semimonthly", "semi-monthly", "s":
		return 220
	default:
		return 400
	}
}

func hoursRules() []Rule {
	return []Rule{
		{
			ID: "HRS-001", Name: "Negative hours", Category: payroll.CategoryHours,
			Severity: SeverityBlocker, Confidence: 1.0, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition:     Func(negativeAny(payroll.RegularHours, payroll.OvertimeHours, payroll.PTOHours, payroll.TotalHours)),
			FlagReason:    "Hours are negative",
			RiskStatement: "Negative hours reduce pay and usually indicate a reversal entered in the wrong period.",
			CommonCauses:  []string{"Correction of a prior period keyed as negative hours", "Sign error during import"},
			ReviewSteps:   []string{"Find the adjustment that produced negative hours", "Process corrections as a separate adjustment"},
		},
		{
			ID: "HRS-002", Name: "Hours exceed period maximum", Category: payroll.CategoryHours,
			Severity: SeverityBlocker, Confidence: 0.96, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				if ctx.Current == nil {
					return false, nil
				}
				total, ok := totalOrParts(ctx.Current, payroll.TotalHours, hoursMetrics)
				return ok && total > maxHours(ctx.Current.PayFrequency), nil
			}),
			FlagReason:    "Hours exceed what one pay period can hold",
			RiskStatement: "Impossible hours lead directly to overpayment.",
			CommonCauses:  []string{"Annual or monthly figure keyed as period hours", "Extra digit during time entry"},
			ReviewSteps:   []string{"Check the timesheet totals", "Correct the hours before approval"},
		},
		{
			ID: "HRS-003", Name: "Hours do not reconcile", Category: payroll.CategoryHours,
			Severity: SeverityReview, Confidence: 0.9, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition:     Func(totalMismatch(payroll.TotalHours, hoursMetrics, 0.1)),
			FlagReason:    "Total hours do not equal regular plus overtime plus PTO",
			RiskStatement: "Hour buckets that disagree hide unpaid or double-paid time.",
			CommonCauses:  []string{"Hour type missing from the export", "Manual override of total hours"},
			ReviewSteps:   []string{"Compare each hour bucket with the timesheet", "Correct the bucket that is off"},
		},
		{
			ID: "HRS-004", Name: "Overtime spike", Category: payroll.CategoryHours,
			Severity: SeverityReview, Confidence: 0.87, MinTier: tiers.Starter, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.OvertimeHours},
			Condition:     PctIncrease(50),
			FlagReason:    "Overtime hours rose 50% or more",
			RiskStatement: "Overtime spikes are a leading source of overpayment and time fraud.",
			CommonCauses:  []string{"Seasonal workload", "Missed clock-out", "Overtime approved for a project"},
			ReviewSteps:   []string{"Confirm overtime approval with the manager", "Spot check punches for the period"},
		},
		{
			ID: "HRS-005", Name: "Overtime without regular hours", Category: payroll.CategoryHours,
			Severity: SeverityReview, Confidence: 0.86, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				return positive(ctx.Current, payroll.OvertimeHours) && zeroOrNull(ctx.Current, payroll.RegularHours), nil
			}),
			FlagReason:    "Overtime paid with no regular hours",
			RiskStatement: "Overtime normally requires a full regular schedule first.",
			CommonCauses:  []string{"Regular hours coded to the wrong earning", "Import dropped the regular hours column"},
			ReviewSteps:   []string{"Check the timesheet for regular hours", "Recode hours if misclassified"},
		},
		{
			ID: "HRS-006", Name: "Regular hours dropped", Category: payroll.CategoryHours,
			Severity: SeverityReview, Confidence: 0.85, MinTier: tiers.Pro, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.RegularHours},
			Condition:     PctDecrease(25),
			FlagReason:    "Regular hours fell 25% or more",
			RiskStatement: "A large drop can mean missing time and an underpaid employee.",
			CommonCauses:  []string{"Unpaid leave", "Schedule reduction", "Timesheet not submitted"},
			ReviewSteps:   []string{"Confirm the timesheet was approved", "Check for unpaid leave requests"},
		},
		{
			ID: "HRS-007", Name: "PTO spike", Category: payroll.CategoryHours,
			Severity: SeverityInfo, Confidence: 0.75, MinTier: tiers.Pro, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.PTOHours},
			Condition:     Expr(`has_pct && delta_pct >= 100.0`),
			FlagReason:    "PTO hours doubled or more",
			RiskStatement: "PTO taken beyond the accrued balance may be overpaid.",
			CommonCauses:  []string{"Vacation", "PTO payout"},
			ReviewSteps:   []string{"Check the PTO balance covers the hours"},
		},
		{
			ID: "HRS-008", Name: "Overtime dominates hours", Category: payroll.CategoryHours,
			Severity: SeverityReview, Confidence: 0.85, MinTier: tiers.Enterprise, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				ot, ok := ctx.Cur(payroll.OvertimeHours)
				if !ok || ot <= 0 {
					return false, nil
				}
				reg := ctx.Current.ValueOrZero(payroll.RegularHours)
				return ot/(reg+ot) > 0.5, nil
			}),
			FlagReason:    "More than half of worked hours are overtime",
			RiskStatement: "Sustained overtime at this level is unusual and costly.",
			CommonCauses:  []string{"Staffing shortage", "Hours coded to overtime by mistake"},
			ReviewSteps:   []string{"Confirm the overtime with the manager", "Review the earning codes used"},
		},
	}
}
