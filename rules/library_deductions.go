package rules

import (
	"strings"

	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/tiers"
)

var retirementMarkers = []string{"401k", "401(k)", "403b", "403(b)", "457", "retirement", "pension"}

func isRetirement(name string) bool {
	n := normalize(name)
	for _, m := range retirementMarkers {
		if strings.Contains(n, m) {
			return true
		}
	}
	return false
}

func hasRetirement(r *payroll.Record) bool {
	if r == nil {
		return false
	}
	for _, c := range r.Components {
		if c.Kind == payroll.ComponentDeduction && c.Amount > 0 && isRetirement(c.Name) {
			return true
		}
	}
	return false
}

func deductionRules() []Rule {
	return []Rule{
		{
			ID: "DED-001", Name: "Negative deduction", Category: payroll.CategoryDeductions,
			Severity: SeverityBlocker, Confidence: 1.0, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition:     Func(negativeAny(append([]payroll.Metric{payroll.TotalDeductions}, deductionMetrics...)...)),
			FlagReason:    "A deduction is negative",
			RiskStatement: "Negative deductions pay the employee money that may not be owed.",
			CommonCauses:  []string{"Refund of an over-deduction", "Sign error during import"},
			ReviewSteps:   []string{"Confirm the refund is documented", "Check the benefit carrier was notified"},
		},
		{
			ID: "DED-002", Name: "Deduction spike", Category: payroll.CategoryDeductions,
			Severity: SeverityReview, Confidence: 0.88, MinTier: tiers.Pro, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.TotalDeductions},
			Condition:     PctIncrease(50),
			FlagReason:    "Total deductions rose 50% or more",
			RiskStatement: "Unexpected deductions reduce take-home pay and may lack authorization.",
			CommonCauses:  []string{"Open enrollment", "New garnishment", "Catch-up deduction"},
			ReviewSteps:   []string{"Identify which deductions changed", "Match each change to an election or order"},
		},
		{
			ID: "DED-003", Name: "Deductions exceed gross", Category: payroll.CategoryDeductions,
			Severity: SeverityBlocker, Confidence: 0.96, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				gross, ok := ctx.Cur(payroll.GrossPay)
				if !ok {
					return false, nil
				}
				ded, ok := totalOrParts(ctx.Current, payroll.TotalDeductions, deductionMetrics)
				return ok && ded > gross+0.005, nil
			}),
			FlagReason:    "Deductions are greater than gross pay",
			RiskStatement: "The employee would owe money to receive a paycheck.",
			CommonCauses:  []string{"Deduction not prorated for a short period", "Arrears taken in one check"},
			ReviewSteps:   []string{"Apply deduction limits", "Defer arrears to later periods"},
		},
		{
			ID: "DED-004", Name: "Garnishment added", Category: payroll.CategoryDeductions,
			Severity: SeverityReview, Confidence: 0.9, MinTier: tiers.Pro, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.Garnishments},
			Condition:     Expr(`(!has_baseline || baseline == 0.0) && current > 0.0`),
			FlagReason:    "A garnishment started this period",
			RiskStatement: "Garnishments must follow the order's amount, priority and disposable income limits.",
			CommonCauses:  []string{"New child support order", "Tax levy", "Creditor garnishment"},
			ReviewSteps:   []string{"Match the amount to the order", "Check the disposable income limit"},
		},
		{
			ID: "DED-005", Name: "Garnishment stopped", Category: payroll.CategoryDeductions,
			Severity: SeverityReview, Confidence: 0.88, MinTier: tiers.Pro, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.Garnishments},
			Condition:     Expr(`has_baseline && baseline > 0.0 && (!has_current || current == 0.0)`),
			FlagReason:    "A garnishment withheld last period is gone",
			RiskStatement: "Stopping a garnishment without a release makes the employer liable for the amount.",
			CommonCauses:  []string{"Order satisfied", "Release received", "Deduction end-dated by mistake"},
			ReviewSteps:   []string{"Confirm a release or satisfaction notice is on file"},
		},
		{
			ID: "DED-006", Name: "Benefits deduction change", Category: payroll.CategoryDeductions,
			Severity: SeverityInfo, Confidence: 0.78, MinTier: tiers.Pro, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.BenefitsDeductions},
			Condition:     Expr(`has_pct && (delta_pct >= 30.0 || delta_pct <= -30.0)`),
			FlagReason:    "Benefits deductions moved 30% or more",
			RiskStatement: "Benefit deductions out of line with elections cause coverage disputes.",
			CommonCauses:  []string{"Open enrollment", "Qualifying life event", "Premium change"},
			ReviewSteps:   []string{"Compare with the benefits election"},
		},
		{
			ID: "DED-007", Name: "Deductions do not reconcile", Category: payroll.CategoryDeductions,
			Severity: SeverityReview, Confidence: 0.9, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition:     Func(totalMismatch(payroll.TotalDeductions, deductionMetrics, reconcileTolerance)),
			FlagReason:    "Total deductions do not equal the sum of individual deductions",
			RiskStatement: "A deduction is missing from or duplicated in the total.",
			CommonCauses:  []string{"Deduction code not mapped to the total", "Manual override of total deductions"},
			ReviewSteps:   []string{"List every deduction on the check", "Find the deduction missing from or duplicated in the total"},
		},
		{
			ID: "DED-008", Name: "Retirement contribution stopped", Category: payroll.CategoryDeductions,
			Severity: SeverityReview, Confidence: 0.85, MinTier: tiers.Enterprise, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				return ctx.Continuing() && hasRetirement(ctx.Baseline) && !hasRetirement(ctx.Current), nil
			}),
			FlagReason:    "A retirement deduction present last period is missing",
			RiskStatement: "Missed deferrals require corrective contributions from the employer.",
			CommonCauses:  []string{"Employee opted out", "Annual limit reached", "Deduction end-dated by mistake"},
			ReviewSteps:   []string{"Confirm an opt-out or limit", "Restore the deferral if missing in error"},
		},
		{
			ID: "DED-009", Name: "Deduction breakdown missing", Category: payroll.CategoryDeductions,
			Severity: SeverityInfo, Confidence: 0.7, MinTier: tiers.Enterprise, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				if !positive(ctx.Current, payroll.TotalDeductions) {
					return false, nil
				}
				if _, n := sumOf(ctx.Current, deductionMetrics...); n > 0 {
					return false, nil
				}
				_, found := ctx.Current.ComponentTotal(payroll.ComponentDeduction)
				return !found, nil
			}),
			FlagReason:    "Total deductions are reported without any breakdown",
			RiskStatement: "Individual deductions cannot be checked.",
			CommonCauses:  []string{"Export includes only the deduction total"},
			ReviewSteps:   []string{"Include deduction detail in the export"},
		},
	}
}
