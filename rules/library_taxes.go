package rules

import (
	"math"

	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/tiers"
)

const (
	socialSecurityRate = 0.062
	medicareRate       = 0.0145
	// additional Medicare withholding above the wage threshold
	medicareMaxRate = 0.0235
)

func taxRules() []Rule {
	return []Rule{
		{
			ID: "TAX-001", Name: "Negative tax", Category: payroll.CategoryTaxes,
			Severity: SeverityBlocker, Confidence: 1.0, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition:     Func(negativeAny(append([]payroll.Metric{payroll.TotalTaxes}, taxMetrics...)...)),
			FlagReason:    "A tax withholding is negative",
			RiskStatement: "Negative withholding refunds tax through payroll and must be reconciled with filings.",
			CommonCauses:  []string{"Tax refund processed as a negative withholding", "Prior period correction"},
			ReviewSteps:   []string{"Confirm the refund is documented", "Check quarterly filing adjustments"},
		},
		{
			ID: "TAX-002", Name: "Federal tax spike", Category: payroll.CategoryTaxes,
			Severity: SeverityReview, Confidence: 0.9, MinTier: tiers.Starter, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.FederalIncomeTax},
			Condition:     PctIncrease(40),
			FlagReason:    "Federal income tax rose 40% or more",
			RiskStatement: "Over-withholding reduces take-home pay and generates complaints.",
			CommonCauses:  []string{"New W-4", "Supplemental earnings", "Filing status changed"},
			ReviewSteps:   []string{"Check for a W-4 change", "Compare with the change in taxable wages"},
		},
		{
			ID: "TAX-003", Name: "Federal tax drop", Category: payroll.CategoryTaxes,
			Severity: SeverityReview, Confidence: 0.9, MinTier: tiers.Starter, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.FederalIncomeTax},
			Condition:     PctDecrease(40),
			FlagReason:    "Federal income tax fell 40% or more",
			RiskStatement: "Under-withholding creates a liability for the employee and penalties for the employer.",
			CommonCauses:  []string{"Exempt status claimed", "Additional withholding removed", "Taxable wages fell"},
			ReviewSteps:   []string{"Check the W-4 on file", "Compare with the change in taxable wages"},
		},
		{
			ID: "TAX-004", Name: "State tax swing", Category: payroll.CategoryTaxes,
			Severity: SeverityReview, Confidence: 0.86, MinTier: tiers.Pro, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.StateIncomeTax},
			Condition:     PctSwing(40),
			FlagReason:    "State income tax moved 40% or more",
			RiskStatement: "State withholding errors surface as year-end balances due or notices.",
			CommonCauses:  []string{"State withholding form changed", "Work state changed", "Taxable wages changed"},
			ReviewSteps:   []string{"Check the state withholding election", "Confirm the work state"},
		},
		{
			ID: "TAX-005", Name: "Federal withholding stopped", Category: payroll.CategoryTaxes,
			Severity: SeverityReview, Confidence: 0.88, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				if !positive(ctx.Baseline, payroll.FederalIncomeTax) || !positive(ctx.Current, payroll.GrossPay) {
					return false, nil
				}
				fed, ok := ctx.Cur(payroll.FederalIncomeTax)
				return ok && fed == 0, nil
			}),
			FlagReason:    "Federal income tax was withheld before but is zero now despite gross pay",
			RiskStatement: "Missing withholding creates an employee tax liability.",
			CommonCauses:  []string{"Exempt W-4 filed", "Tax setup cleared during an edit"},
			ReviewSteps:   []string{"Confirm an exempt W-4 is on file and current"},
		},
		{
			ID: "TAX-006", Name: "Social Security rate mismatch", Category: payroll.CategoryTaxes,
			Severity: SeverityReview, Confidence: 0.86, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				gross, ok1 := ctx.Cur(payroll.GrossPay)
				ss, ok2 := ctx.Cur(payroll.SocialSecurityTax)
				if !ok1 || !ok2 || gross <= 0 {
					return false, nil
				}
				ratio := ss / gross
				return ratio > socialSecurityRate+0.001 || (ss > 0 && ratio < 0.05), nil
			}),
			FlagReason:    "Social Security withholding is not 6.2% of gross",
			RiskStatement: "FICA errors must be corrected on quarterly returns.",
			CommonCauses:  []string{"Wage base reached", "Pre-tax deductions misconfigured", "Tax exemption flag set incorrectly"},
			ReviewSteps:   []string{"Recalculate Social Security on taxable wages", "Check year-to-date wages against the wage base"},
		},
		{
			ID: "TAX-007", Name: "Medicare rate mismatch", Category: payroll.CategoryTaxes,
			Severity: SeverityReview, Confidence: 0.86, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				gross, ok1 := ctx.Cur(payroll.GrossPay)
				med, ok2 := ctx.Cur(payroll.MedicareTax)
				if !ok1 || !ok2 || gross <= 0 {
					return false, nil
				}
				ratio := med / gross
				return ratio < medicareRate*0.85 || ratio > medicareMaxRate+0.001, nil
			}),
			FlagReason:    "Medicare withholding is outside 1.45% to 2.35% of gross",
			RiskStatement: "Medicare has no wage base so any gap is an error.",
			CommonCauses:  []string{"Tax exemption flag set incorrectly", "Pre-tax deductions misconfigured"},
			ReviewSteps:   []string{"Recalculate Medicare on taxable wages"},
		},
		{
			ID: "TAX-008", Name: "Taxes do not reconcile", Category: payroll.CategoryTaxes,
			Severity: SeverityBlocker, Confidence: 0.95, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition:     Func(totalMismatch(payroll.TotalTaxes, taxMetrics, reconcileTolerance)),
			FlagReason:    "Total taxes do not equal the sum of individual taxes",
			RiskStatement: "A withholding is missing from or duplicated in the total remitted.",
			CommonCauses:  []string{"Tax code not mapped to the total", "Manual override of total taxes"},
			ReviewSteps:   []string{"List every tax on the check", "Find the tax missing from or duplicated in the total"},
		},
		{
			ID: "TAX-009", Name: "Taxes exceed gross", Category: payroll.CategoryTaxes,
			Severity: SeverityBlocker, Confidence: 0.97, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				gross, ok := ctx.Cur(payroll.GrossPay)
				if !ok {
					return false, nil
				}
				taxes, ok := totalOrParts(ctx.Current, payroll.TotalTaxes, taxMetrics)
				return ok && taxes > gross+0.005, nil
			}),
			FlagReason:    "Taxes withheld are greater than gross pay",
			RiskStatement: "Withholding cannot exceed wages.",
			CommonCauses:  []string{"Additional withholding set as an amount instead of a percent", "Imputed income taxed without cash wages"},
			ReviewSteps:   []string{"Review additional withholding elections", "Check imputed income setup"},
		},
		{
			ID: "TAX-010", Name: "State tax unchanged after relocation", Category: payroll.CategoryTaxes,
			Severity: SeverityReview, Confidence: 0.85, MinTier: tiers.Enterprise, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				moved, _ := attributeChanged(func(r *payroll.Record) string { return r.WorkState })(ctx)
				if !moved {
					return false, nil
				}
				b, ok1 := ctx.Base(payroll.StateIncomeTax)
				c, ok2 := ctx.Cur(payroll.StateIncomeTax)
				return ok1 && ok2 && b == c, nil
			}),
			FlagReason:    "Work state changed but state tax withheld is identical",
			RiskStatement: "Tax is likely still withheld for the old state.",
			CommonCauses:  []string{"State tax setup not updated after a move"},
			ReviewSteps:   []string{"Update the state tax setup", "Check registration in the new state"},
		},
		{
			ID: "TAX-011", Name: "State tax distribution shift", Category: payroll.CategoryTaxes,
			Severity: SeverityReview, Confidence: 0.85, MinTier: tiers.Enterprise, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				if ctx.Current == nil || ctx.Current.WorkState == "" {
					return false, nil
				}
				cur, base := ctx.Population.StateTaxShare(ctx.Current.WorkState)
				return base > 0 && math.Abs(cur-base) >= 0.25, nil
			}),
			FlagReason:    "The employee's work state carries a very different share of state tax than before",
			RiskStatement: "A payroll-wide shift in state withholding points at a configuration change.",
			CommonCauses:  []string{"State tax tables updated", "Bulk relocation of employees"},
			ReviewSteps:   []string{"Compare state tax totals by state with the previous run"},
		},
		{
			ID: "TAX-012", Name: "Local tax appeared", Category: payroll.CategoryTaxes,
			Severity: SeverityInfo, Confidence: 0.75, MinTier: tiers.Pro, Scope: ScopeDelta,
			Metrics:       []payroll.Metric{payroll.LocalTax},
			Condition:     Expr(`(!has_baseline || baseline == 0.0) && current > 0.0`),
			FlagReason:    "Local tax is withheld for the first time",
			RiskStatement: "A new local jurisdiction requires registration.",
			CommonCauses:  []string{"Relocation into a taxing locality", "Local tax newly configured"},
			ReviewSteps:   []string{"Confirm the locality and registration"},
		},
	}
}
