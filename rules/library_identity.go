package rules

import (
	"strings"

	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/tiers"
)

func identityRules() []Rule {
	return []Rule{
		{
			ID: "ID-001", Name: "Missing employee identifier", Category: payroll.CategoryIdentity,
			Severity: SeverityBlocker, Confidence: 1.0, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				return strings.TrimSpace(ctx.EmployeeID) == "", nil
			}),
			FlagReason:    "Record has no employee identifier",
			RiskStatement: "Pay cannot be attributed to a person and may be issued to no one or to the wrong account.",
			CommonCauses:  []string{"Blank cell in the export", "Header row shifted during upload", "Contractor row without an employee number"},
			ReviewSteps:   []string{"Locate the row in the source export", "Assign or restore the employee identifier", "Re-upload the corrected file"},
		},
		{
			ID: "ID-002", Name: "Duplicate employee in current payroll", Category: payroll.CategoryIdentity,
			Severity: SeverityBlocker, Confidence: 0.99, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				return ctx.Population.CurrentOccurrences(ctx.EmployeeID) > 1, nil
			}),
			FlagReason:    "Employee identifier appears more than once in the current payroll",
			RiskStatement: "The employee may be paid twice for the same period.",
			CommonCauses:  []string{"Off-cycle check merged into the regular run", "Export run twice and concatenated", "Rehire created a second record"},
			ReviewSteps:   []string{"Compare the duplicate rows", "Confirm which payment is intended", "Remove or void the extra record"},
		},
		{
			ID: "ID-003", Name: "Duplicate employee in baseline payroll", Category: payroll.CategoryIdentity,
			Severity: SeverityReview, Confidence: 0.9, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				return ctx.Population.BaselineOccurrences(ctx.EmployeeID) > 1, nil
			}),
			FlagReason:    "Employee identifier appears more than once in the baseline payroll",
			RiskStatement: "Comparisons for this employee use only the first baseline row and may be misleading.",
			CommonCauses:  []string{"Baseline export contained an off-cycle payment", "Baseline file was assembled from several runs"},
			ReviewSteps:   []string{"Confirm the baseline file is a single regular run", "Check which baseline row represents the regular payment"},
		},
		{
			ID: "ID-004", Name: "New employee", Category: payroll.CategoryIdentity,
			Severity: SeverityInfo, Confidence: 0.8, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				return ctx.Current != nil && ctx.Baseline == nil, nil
			}),
			FlagReason:    "Employee is paid in the current payroll but not in the baseline",
			RiskStatement: "New hires are a common source of setup errors in rate, tax and deduction elections.",
			CommonCauses:  []string{"New hire", "Rehire", "Transfer from another pay group"},
			ReviewSteps:   []string{"Confirm the hire paperwork is complete", "Verify rate, tax setup and deductions"},
		},
		{
			ID: "ID-005", Name: "Employee removed from payroll", Category: payroll.CategoryIdentity,
			Severity: SeverityReview, Confidence: 0.85, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				return ctx.Baseline != nil && ctx.Current == nil, nil
			}),
			FlagReason:    "Employee was paid in the baseline but is missing from the current payroll",
			RiskStatement: "An active employee may go unpaid.",
			CommonCauses:  []string{"Termination", "Unpaid leave", "Employee dropped from the pay group by mistake"},
			ReviewSteps:   []string{"Confirm the employee was terminated or is on unpaid leave", "Check for a final paycheck obligation"},
		},
		{
			ID: "ID-006", Name: "Employment status changed", Category: payroll.CategoryIdentity,
			Severity: SeverityReview, Confidence: 0.88, MinTier: tiers.Starter, Scope: ScopeEmployee,
			Condition: Func(attributeChanged(func(r *payroll.Record) string { return r.Status })),
			FlagReason:    "Employment status differs from the baseline",
			RiskStatement: "Status drives benefits eligibility, accruals and final pay rules.",
			CommonCauses:  []string{"Termination", "Leave of absence", "Full-time to part-time change"},
			ReviewSteps:   []string{"Confirm the status change is documented", "Check dependent benefits and accruals"},
		},
		{
			ID: "ID-007", Name: "Terminated employee paid", Category: payroll.CategoryIdentity,
			Severity: SeverityBlocker, Confidence: 0.97, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				if ctx.Current == nil || !ctx.Current.IsTerminated() {
					return false, nil
				}
				return positive(ctx.Current, payroll.GrossPay) || positive(ctx.Current, payroll.NetPay), nil
			}),
			FlagReason:    "Employee has a terminated status but is receiving pay",
			RiskStatement: "Payments after separation are often unrecoverable.",
			CommonCauses:  []string{"Termination entered before the final check", "Recurring earning not end-dated"},
			ReviewSteps:   []string{"Confirm whether this is an intended final payment", "End-date recurring earnings"},
		},
		{
			ID: "ID-008", Name: "Pay frequency changed", Category: payroll.CategoryIdentity,
			Severity: SeverityReview, Confidence: 0.9, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition: Func(attributeChanged(func(r *payroll.Record) string { return r.PayFrequency })),
			FlagReason:    "Pay frequency differs from the baseline",
			RiskStatement: "Per-period amounts, tax withholding tables and deduction caps all depend on frequency.",
			CommonCauses:  []string{"Employee moved to a different pay schedule", "Data entry error"},
			ReviewSteps:   []string{"Confirm the schedule change was approved", "Verify salary and deductions were re-annualized"},
		},
		{
			ID: "ID-009", Name: "Pay group changed", Category: payroll.CategoryIdentity,
			Severity: SeverityInfo, Confidence: 0.8, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition: Func(attributeChanged(func(r *payroll.Record) string { return r.PayGroup })),
			FlagReason:    "Pay group differs from the baseline",
			RiskStatement: "Moving pay groups can skip or double a pay period.",
			CommonCauses:  []string{"Transfer between entities", "Pay group consolidation"},
			ReviewSteps:   []string{"Confirm the transfer date", "Check the employee is not paid in both groups"},
		},
		{
			ID: "ID-010", Name: "Department changed", Category: payroll.CategoryIdentity,
			Severity: SeverityInfo, Confidence: 0.75, MinTier: tiers.Enterprise, Scope: ScopeEmployee,
			Condition: Func(attributeChanged(func(r *payroll.Record) string { return r.Department })),
			FlagReason:    "Department differs from the baseline",
			RiskStatement: "Labor cost will post to a different cost center.",
			CommonCauses:  []string{"Internal transfer", "Reorganization"},
			ReviewSteps:   []string{"Confirm the transfer with the manager", "Check the general ledger mapping"},
		},
		{
			ID: "ID-011", Name: "Department missing", Category: payroll.CategoryIdentity,
			Severity: SeverityInfo, Confidence: 0.7, MinTier: tiers.Enterprise, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				return ctx.Current != nil && normalize(ctx.Current.Department) == "", nil
			}),
			FlagReason:    "Current record has no department",
			RiskStatement: "Labor cost cannot be allocated.",
			CommonCauses:  []string{"Incomplete new hire setup", "Department column missing from the export"},
			ReviewSteps:   []string{"Assign a department in the payroll system"},
		},
		{
			ID: "ID-012", Name: "Pay period differs from cohort", Category: payroll.CategoryIdentity,
			Severity: SeverityReview, Confidence: 0.86, MinTier: tiers.Enterprise, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				if ctx.Current == nil {
					return false, nil
				}
				mode := ctx.Population.PeriodMode()
				own := ctx.Current.PeriodStart + "|" + ctx.Current.PeriodEnd
				return mode != "" && own != "|" && own != mode, nil
			}),
			FlagReason:    "Pay period dates differ from the rest of the payroll",
			RiskStatement: "The employee may be paid for the wrong period.",
			CommonCauses:  []string{"Off-cycle payment mixed into the run", "Retroactive adjustment", "Wrong period selected during entry"},
			ReviewSteps:   []string{"Compare the period dates with the payroll calendar", "Confirm any retro or off-cycle intent"},
		},
		{
			ID: "ID-013", Name: "Employee name missing", Category: payroll.CategoryIdentity,
			Severity: SeverityInfo, Confidence: 0.7, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition: Func(func(ctx *Context) (bool, error) {
				return ctx.Current != nil && normalize(ctx.Current.Name) == "", nil
			}),
			FlagReason:    "Current record has no employee name",
			RiskStatement: "Reviewers cannot confirm who is being paid.",
			CommonCauses:  []string{"Name column excluded from the export"},
			ReviewSteps:   []string{"Include employee names in the export"},
		},
		{
			ID: "ID-014", Name: "Work state changed", Category: payroll.CategoryIdentity,
			Severity: SeverityReview, Confidence: 0.89, MinTier: tiers.Pro, Scope: ScopeEmployee,
			Condition: Func(attributeChanged(func(r *payroll.Record) string { return r.WorkState })),
			FlagReason:    "Work state differs from the baseline",
			RiskStatement: "State and local tax registration and withholding must follow the employee.",
			CommonCauses:  []string{"Relocation", "Remote work arrangement", "Data entry error"},
			ReviewSteps:   []string{"Confirm the new work location", "Verify state tax setup and registration"},
		},
	}
}
