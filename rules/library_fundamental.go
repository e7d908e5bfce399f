package rules

import (
	"math"

	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/tiers"
)

func fundamentalRules() []Rule {
	return []Rule{
		{
			ID: "FND-001", Name: "Negative net pay", Category: payroll.CategoryFundamental,
			Severity: SeverityBlocker, Confidence: 1.0, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition:     Below(payroll.NetPay, 0),
			FlagReason:    "Net pay is negative",
			RiskStatement: "A negative paycheck cannot be issued.",
			CommonCauses:  []string{"Deductions or taxes exceed gross", "Reversal processed in the regular run"},
			ReviewSteps:   []string{"Find the deduction or tax that pushed net below zero", "Defer or reduce it"},
		},
		{
			ID: "FND-002", Name: "Net pay does not reconcile", Category: payroll.CategoryFundamental,
			Severity: SeverityBlocker, Confidence: 0.95, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				gross, ok1 := ctx.Cur(payroll.GrossPay)
				net, ok2 := ctx.Cur(payroll.NetPay)
				taxes, ok3 := totalOrParts(ctx.Current, payroll.TotalTaxes, taxMetrics)
				ded, ok4 := totalOrParts(ctx.Current, payroll.TotalDeductions, deductionMetrics)
				if !ok1 || !ok2 || !ok3 || !ok4 {
					return false, nil
				}
				return math.Abs(gross-taxes-ded-net) > reconcileTolerance, nil
			}),
			FlagReason:    "Net pay does not equal gross minus taxes minus deductions",
			RiskStatement: "The amount deposited does not match the earnings statement.",
			CommonCauses:  []string{"Net pay override", "Reimbursement added after taxes", "Export missing a column"},
			ReviewSteps:   []string{"Recalculate net pay from the check detail", "Identify the unexplained difference"},
		},
		{
			ID: "FND-003", Name: "Net pay drop", Category: payroll.CategoryFundamental,
			Severity: SeverityReview, Confidence: 0.9, MinTier: tiers.Starter, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.NetPay},
			Condition:     PctDecrease(20),
			FlagReason:    "Net pay fell 20% or more",
			RiskStatement: "Employees notice and escalate large drops in take-home pay.",
			CommonCauses:  []string{"New deduction", "Fewer hours", "Tax change"},
			ReviewSteps:   []string{"Identify which component drove the drop", "Confirm each change is authorized"},
		},
		{
			ID: "FND-004", Name: "Net pay increase", Category: payroll.CategoryFundamental,
			Severity: SeverityReview, Confidence: 0.87, MinTier: tiers.Starter, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.NetPay},
			Condition:     PctIncrease(25),
			FlagReason:    "Net pay rose 25% or more",
			RiskStatement: "Overpayments are hard to recover once deposited.",
			CommonCauses:  []string{"Raise or bonus", "Deduction stopped", "Duplicate earning"},
			ReviewSteps:   []string{"Identify which component drove the increase", "Match it to an approval"},
		},
		{
			ID: "FND-005", Name: "Net pay exceeds gross", Category: payroll.CategoryFundamental,
			Severity: SeverityBlocker, Confidence: 0.98, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				gross, ok1 := ctx.Cur(payroll.GrossPay)
				net, ok2 := ctx.Cur(payroll.NetPay)
				return ok1 && ok2 && net > gross+0.005, nil
			}),
			FlagReason:    "Net pay is greater than gross pay",
			RiskStatement: "Take-home pay cannot exceed wages outside of reimbursements.",
			CommonCauses:  []string{"Negative deduction", "Reimbursement included in net only"},
			ReviewSteps:   []string{"Look for negative deductions or taxes", "Confirm any non-taxable reimbursement"},
		},
		{
			ID: "FND-006", Name: "Hourly rate increase", Category: payroll.CategoryFundamental,
			Severity: SeverityReview, Confidence: 0.85, MinTier: tiers.Pro, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.HourlyRate},
			Condition:     PctIncrease(10),
			FlagReason:    "Hourly rate rose 10% or more",
			RiskStatement: "Rate changes persist into every future payroll.",
			CommonCauses:  []string{"Promotion", "Market adjustment", "Rate keyed incorrectly"},
			ReviewSteps:   []string{"Match the new rate to a signed change form"},
		},
		{
			ID: "FND-007", Name: "Hourly rate decrease", Category: payroll.CategoryFundamental,
			Severity: SeverityReview, Confidence: 0.9, MinTier: tiers.Pro, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.HourlyRate},
			Condition:     Expr(`change == "decrease"`),
			FlagReason:    "Hourly rate went down",
			RiskStatement: "Pay rate reductions need advance notice in many states.",
			CommonCauses:  []string{"Demotion", "Temporary rate ended", "Rate keyed incorrectly"},
			ReviewSteps:   []string{"Confirm the reduction was communicated in writing"},
		},
		{
			ID: "FND-008", Name: "Salary change", Category: payroll.CategoryFundamental,
			Severity: SeverityReview, Confidence: 0.86, MinTier: tiers.Pro, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.AnnualSalary},
			Condition:     PctSwing(10),
			FlagReason:    "Annual salary moved 10% or more",
			RiskStatement: "Salary changes persist into every future payroll.",
			CommonCauses:  []string{"Promotion", "Annual review", "Salary keyed incorrectly"},
			ReviewSteps:   []string{"Match the new salary to a signed change form"},
		},
		{
			ID: "FND-009", Name: "Zero net pay with earnings", Category: payroll.CategoryFundamental,
			Severity: SeverityReview, Confidence: 0.88, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				net, ok := ctx.Cur(payroll.NetPay)
				return ok && net == 0 && positive(ctx.Current, payroll.GrossPay), nil
			}),
			FlagReason:    "Net pay is zero even though gross pay is positive",
			RiskStatement: "The employee will receive nothing for time worked.",
			CommonCauses:  []string{"Deductions consumed the whole check", "Arrears recovery"},
			ReviewSteps:   []string{"Confirm the employee agreed to the recovery", "Check minimum net pay rules"},
		},
		{
			ID: "FND-010", Name: "Net pay missing", Category: payroll.CategoryFundamental,
			Severity: SeverityReview, Confidence: 0.9, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition:     Missing(payroll.NetPay),
			FlagReason:    "Current record has no net pay",
			RiskStatement: "The payment amount cannot be verified.",
			CommonCauses:  []string{"Net pay column missing or non-numeric", "Check not calculated"},
			ReviewSteps:   []string{"Confirm the payroll was fully calculated before export"},
		},
		{
			ID: "FND-011", Name: "Pay rate missing", Category: payroll.CategoryFundamental,
			Severity: SeverityInfo, Confidence: 0.7, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				if ctx.Current == nil {
					return false, nil
				}
				_, hourly := ctx.Cur(payroll.HourlyRate)
				_, salary := ctx.Cur(payroll.AnnualSalary)
				return !hourly && !salary, nil
			}),
			FlagReason:    "Neither an hourly rate nor a salary is reported",
			RiskStatement: "Earnings cannot be checked against the rate on file.",
			CommonCauses:  []string{"Rate columns excluded from the export"},
			ReviewSteps:   []string{"Include rate data in the export"},
		},
	}
}
