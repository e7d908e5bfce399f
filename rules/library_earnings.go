package rules

import (
	"math"

	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/tiers"
)

// federalMinimumWage is the FLSA hourly floor.
const federalMinimumWage = 7.25

func earningsRules() []Rule {
	return []Rule{
		{
			ID: "ERN-001", Name: "Negative earnings", Category: payroll.CategoryEarnings,
			Severity: SeverityBlocker, Confidence: 1.0, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition:     Func(negativeAny(append([]payroll.Metric{payroll.GrossPay}, earningsMetrics...)...)),
			FlagReason:    "An earning amount is negative",
			RiskStatement: "Negative earnings claw back pay without the employee's consent.",
			CommonCauses:  []string{"Overpayment recovery keyed as an earning", "Reversal of a prior check"},
			ReviewSteps:   []string{"Confirm the recovery is authorized in writing", "Check state limits on wage deductions"},
		},
		{
			ID: "ERN-002", Name: "Gross pay does not reconcile", Category: payroll.CategoryEarnings,
			Severity: SeverityBlocker, Confidence: 0.95, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition:     Func(totalMismatch(payroll.GrossPay, earningsMetrics, reconcileTolerance)),
			FlagReason:    "Gross pay does not equal the sum of its earnings",
			RiskStatement: "An earning is missing from gross or counted twice.",
			CommonCauses:  []string{"Earning code not mapped to gross", "Manual gross override"},
			ReviewSteps:   []string{"List every earning on the check", "Find the earning missing from or duplicated in gross"},
		},
		{
			ID: "ERN-003", Name: "Gross pay increase", Category: payroll.CategoryEarnings,
			Severity: SeverityReview, Confidence: 0.88, MinTier: tiers.Starter, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.GrossPay},
			Condition:     PctIncrease(25),
			FlagReason:    "Gross pay rose 25% or more",
			RiskStatement: "Large increases are the most common form of overpayment.",
			CommonCauses:  []string{"Raise", "Bonus or commission", "Extra hours", "Duplicate earning"},
			ReviewSteps:   []string{"Identify which earnings drove the increase", "Match the change to an approval"},
		},
		{
			ID: "ERN-004", Name: "Gross pay decrease", Category: payroll.CategoryEarnings,
			Severity: SeverityReview, Confidence: 0.88, MinTier: tiers.Starter, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.GrossPay},
			Condition:     PctDecrease(25),
			FlagReason:    "Gross pay fell 25% or more",
			RiskStatement: "The employee may be underpaid.",
			CommonCauses:  []string{"Unpaid leave", "Missing timesheet", "Rate entered incorrectly"},
			ReviewSteps:   []string{"Confirm hours and rate", "Check for missing earnings"},
		},
		{
			ID: "ERN-005", Name: "Bonus spike", Category: payroll.CategoryEarnings,
			Severity: SeverityReview, Confidence: 0.86, MinTier: tiers.Pro, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.BonusPay},
			Condition:     Expr(`(has_pct && delta_pct >= 100.0) || (!has_pct && delta_abs >= 1000.0)`),
			FlagReason:    "Bonus pay doubled or a large bonus appeared",
			RiskStatement: "Unapproved bonuses are a frequent source of overpayment.",
			CommonCauses:  []string{"Annual or spot bonus", "Bonus keyed twice"},
			ReviewSteps:   []string{"Match the bonus to an approval", "Check supplemental tax withholding"},
		},
		{
			ID: "ERN-006", Name: "Commission swing", Category: payroll.CategoryEarnings,
			Severity: SeverityInfo, Confidence: 0.75, MinTier: tiers.Pro, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.CommissionPay},
			Condition:     Expr(`has_pct && (delta_pct >= 50.0 || delta_pct <= -50.0)`),
			FlagReason:    "Commission moved by half or more",
			RiskStatement: "Commission naturally varies but large swings deserve a glance.",
			CommonCauses:  []string{"Sales cycle", "Quarterly true-up"},
			ReviewSteps:   []string{"Compare with the commission report"},
		},
		{
			ID: "ERN-007", Name: "Overtime pay without overtime hours", Category: payroll.CategoryEarnings,
			Severity: SeverityReview, Confidence: 0.9, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				return positive(ctx.Current, payroll.OvertimePay) && zeroOrNull(ctx.Current, payroll.OvertimeHours), nil
			}),
			FlagReason:    "Overtime pay with no overtime hours",
			RiskStatement: "Overtime dollars without hours cannot be verified.",
			CommonCauses:  []string{"Flat overtime amount keyed manually", "Hours exported under a different code"},
			ReviewSteps:   []string{"Find the hours that support the overtime pay"},
		},
		{
			ID: "ERN-008", Name: "Regular pay does not match rate", Category: payroll.CategoryEarnings,
			Severity: SeverityReview, Confidence: 0.85, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				rate, ok1 := ctx.Cur(payroll.HourlyRate)
				hours, ok2 := ctx.Cur(payroll.RegularHours)
				pay, ok3 := ctx.Cur(payroll.RegularPay)
				if !ok1 || !ok2 || !ok3 || rate <= 0 || hours <= 0 {
					return false, nil
				}
				return math.Abs(rate*hours-pay) > math.Max(reconcileTolerance, 0.01*pay), nil
			}),
			FlagReason:    "Regular pay differs from hourly rate times regular hours",
			RiskStatement: "The employee is paid at a rate other than the one on file.",
			CommonCauses:  []string{"Rate change effective mid-period", "Shift differential folded into regular pay"},
			ReviewSteps:   []string{"Recalculate regular pay from the rate on file", "Check for mid-period rate changes"},
		},
		{
			ID: "ERN-009", Name: "Overtime rate below time and a half", Category: payroll.CategoryEarnings,
			Severity: SeverityReview, Confidence: 0.87, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				rate, ok1 := ctx.Cur(payroll.HourlyRate)
				hours, ok2 := ctx.Cur(payroll.OvertimeHours)
				pay, ok3 := ctx.Cur(payroll.OvertimePay)
				if !ok1 || !ok2 || !ok3 || rate <= 0 || hours <= 0 {
					return false, nil
				}
				return pay/hours < 1.5*rate-0.01, nil
			}),
			FlagReason:    "Overtime is paid below 1.5 times the hourly rate",
			RiskStatement: "Underpaid overtime is a wage and hour violation.",
			CommonCauses:  []string{"Overtime earning configured at straight time", "Rate not updated for overtime"},
			ReviewSteps:   []string{"Recalculate the overtime premium", "Check the overtime earning configuration"},
		},
		{
			ID: "ERN-010", Name: "Below federal minimum wage", Category: payroll.CategoryEarnings,
			Severity: SeverityReview, Confidence: 0.9, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				if rate, ok := ctx.Cur(payroll.HourlyRate); ok && rate > 0 && rate < federalMinimumWage {
					return true, nil
				}
				hours, ok1 := ctx.Cur(payroll.RegularHours)
				pay, ok2 := ctx.Cur(payroll.RegularPay)
				if !ok1 || !ok2 || hours <= 0 {
					return false, nil
				}
				return pay/hours < federalMinimumWage-0.005, nil
			}),
			FlagReason:    "Effective hourly pay is below the federal minimum wage",
			RiskStatement: "Paying below minimum wage is a compliance violation.",
			CommonCauses:  []string{"Hours inflated", "Rate entered per day instead of per hour", "Tipped employee without tip credit data"},
			ReviewSteps:   []string{"Confirm hours and rate", "Check state minimum wage which may be higher"},
		},
		{
			ID: "ERN-011", Name: "Active employee with zero gross", Category: payroll.CategoryEarnings,
			Severity: SeverityReview, Confidence: 0.86, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				if ctx.Current == nil || !ctx.Current.IsActive() {
					return false, nil
				}
				gross, ok := ctx.Cur(payroll.GrossPay)
				return ok && gross == 0, nil
			}),
			FlagReason:    "Active employee has zero gross pay",
			RiskStatement: "An active employee may go unpaid.",
			CommonCauses:  []string{"Missing timesheet", "Unpaid leave not reflected in status"},
			ReviewSteps:   []string{"Confirm whether the employee worked this period"},
		},
		{
			ID: "ERN-012", Name: "Other earnings spike", Category: payroll.CategoryEarnings,
			Severity: SeverityInfo, Confidence: 0.7, MinTier: tiers.Enterprise, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.OtherEarnings},
			Condition:     Expr(`has_pct && delta_pct >= 100.0`),
			FlagReason:    "Other earnings doubled or more",
			RiskStatement: "Miscellaneous earnings are easy to misuse.",
			CommonCauses:  []string{"Reimbursement run through payroll", "One-time allowance"},
			ReviewSteps:   []string{"Identify the earning codes behind the amount"},
		},
	}
}
