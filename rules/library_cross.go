package rules

import (
	"math"

	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/tiers"
)

func crossRules() []Rule {
	return []Rule{
		{
			ID: "XC-001", Name: "Amount introduced from zero", Category: payroll.CategoryCross,
			Severity: SeverityReview, Confidence: 0.85, MinTier: tiers.Pro, Scope: ScopeDelta,
			Condition:     Expr(`(!has_baseline || baseline == 0.0) && has_current && current != 0.0`),
			FlagReason:    "A value appeared where the baseline was zero or empty",
			RiskStatement: "Percentage checks cannot measure growth from zero so new amounts need a direct look.",
			CommonCauses:  []string{"New earning, tax or deduction", "Column newly included in the export"},
			ReviewSteps:   []string{"Confirm the new amount is expected"},
		},
		{
			ID: "XC-002", Name: "Rounding-level change", Category: payroll.CategoryCross,
			Severity: SeverityInfo, Confidence: 0.7, MinTier: tiers.Enterprise, Scope: ScopeDelta,
			Condition:     Expr(`delta_abs < 0.05 && delta_abs > -0.05`),
			FlagReason:    "Value moved by less than five cents",
			RiskStatement: "Penny differences usually come from rounding and are safe to ignore.",
			CommonCauses:  []string{"Rounding in tax tables", "Prorated deduction"},
			ReviewSteps:   []string{"No action needed unless the pattern repeats"},
		},
		{
			ID: "XC-003", Name: "Payroll-wide net shift", Category: payroll.CategoryCross,
			Severity: SeverityReview, Confidence: 0.85, MinTier: tiers.Enterprise, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				p := ctx.Population
				if !ctx.Continuing() || p.BaselineNetTotal == 0 {
					return false, nil
				}
				shift := (p.CurrentNetTotal - p.BaselineNetTotal) / math.Abs(p.BaselineNetTotal)
				if math.Abs(shift) < 0.15 {
					return false, nil
				}
				own := ctx.Current.ValueOrZero(payroll.NetPay) - ctx.Baseline.ValueOrZero(payroll.NetPay)
				return own != 0 && (own > 0) == (shift > 0), nil
			}),
			FlagReason:    "Total net pay across the payroll moved 15% or more and this employee moved with it",
			RiskStatement: "A payroll-wide swing points at a configuration or calendar problem rather than one employee.",
			CommonCauses:  []string{"Extra pay period", "Tax table update", "Bulk rate change"},
			ReviewSteps:   []string{"Compare run totals with the prior run", "Check the payroll calendar"},
		},
		{
			ID: "XC-004", Name: "Headcount change", Category: payroll.CategoryCross,
			Severity: SeverityReview, Confidence: 0.85, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				p := ctx.Population
				if ctx.Continuing() || p.BaselineHeadcount == 0 {
					return false, nil
				}
				change := float64(p.CurrentHeadcount-p.BaselineHeadcount) / float64(p.BaselineHeadcount)
				return math.Abs(change) >= 0.10, nil
			}),
			FlagReason:    "Headcount moved 10% or more and this employee is part of the change",
			RiskStatement: "Large hiring or separation waves often carry setup errors.",
			CommonCauses:  []string{"Seasonal hiring", "Reduction in force", "Pay group merge"},
			ReviewSteps:   []string{"Reconcile hires and terminations with HR"},
		},
		{
			ID: "XC-005", Name: "Gross up while net down", Category: payroll.CategoryCross,
			Severity: SeverityReview, Confidence: 0.86, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				if !ctx.Continuing() {
					return false, nil
				}
				bg, ok1 := ctx.Base(payroll.GrossPay)
				cg, ok2 := ctx.Cur(payroll.GrossPay)
				bn, ok3 := ctx.Base(payroll.NetPay)
				cn, ok4 := ctx.Cur(payroll.NetPay)
				if !ok1 || !ok2 || !ok3 || !ok4 {
					return false, nil
				}
				return cg > bg && cn < bn, nil
			}),
			FlagReason:    "Gross pay went up while net pay went down",
			RiskStatement: "Withholding or deductions grew faster than earnings.",
			CommonCauses:  []string{"New deduction", "Tax bracket change", "Garnishment started"},
			ReviewSteps:   []string{"Identify the deduction or tax that outgrew earnings"},
		},
	}
}
