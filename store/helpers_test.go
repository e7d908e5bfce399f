package store

import (
	"github.com/liamcoop/payrollrisk/delta"
	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/rules"
)

func f(v float64) *float64 { return &v }

func sampleDeltas() []delta.Delta {
	return []delta.Delta{
		{EmployeeID: "E2", Metric: payroll.NetPay, ChangeType: delta.Increase,
			BaselineValue: f(1000), CurrentValue: f(1100), DeltaAbsolute: f(100), DeltaPercentage: f(10)},
		{EmployeeID: "E1", Metric: payroll.NetPay, ChangeType: delta.Decrease,
			BaselineValue: f(1000), CurrentValue: f(900), DeltaAbsolute: f(-100), DeltaPercentage: f(-10)},
		{EmployeeID: "E1", Metric: payroll.GrossPay, ChangeType: delta.Decrease,
			BaselineValue: f(2000), CurrentValue: f(1800), DeltaAbsolute: f(-200), DeltaPercentage: f(-10)},
	}
}

func sampleJudgement(employeeID, ruleID string, m payroll.Metric) rules.Judgement {
	return rules.Judgement{
		EmployeeID: employeeID,
		RuleID:     ruleID,
		RuleName:   "rule " + ruleID,
		Category:   payroll.CategoryFundamental,
		Severity:   rules.SeverityReview,
		IsMaterial: true,
		Confidence: 0.9,
		Reasoning:  "changed",
		Delta:      delta.Key{EmployeeID: employeeID, Metric: m},
	}
}
