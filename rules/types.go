package rules

import (
	"github.com/liamcoop/payrollrisk/delta"
	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/tiers"
)

// Severity is how strongly a fired rule affects approval.
type Severity string

const (
	SeverityBlocker Severity = "blocker"
	SeverityReview  Severity = "review"
	SeverityInfo    Severity = "info"
)

// IsBlocker reports whether a rule of this severity prevents approval.
func (s Severity) IsBlocker() bool { return s == SeverityBlocker }

// IsMaterial reports whether a rule of this severity needs a human to look.
func (s Severity) IsMaterial() bool { return s == SeverityBlocker || s == SeverityReview }

// ConfidenceLevel is a coarse label derived from a numeric confidence.
type ConfidenceLevel string

const (
	ConfidenceCertain  ConfidenceLevel = "certain"
	ConfidenceVeryHigh ConfidenceLevel = "very_high"
	ConfidenceHigh     ConfidenceLevel = "high"
	ConfidenceModerate ConfidenceLevel = "moderate"
	ConfidenceLow      ConfidenceLevel = "low"
)

// LevelFor maps a confidence in [0,1] onto its label.
func LevelFor(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= 0.99:
		return ConfidenceCertain
	case confidence >= 0.95:
		return ConfidenceVeryHigh
	case confidence >= 0.85:
		return ConfidenceHigh
	case confidence >= 0.7:
		return ConfidenceModerate
	default:
		return ConfidenceLow
	}
}

// Scope decides what a rule is evaluated against.
type Scope string

const (
	// ScopeEmployee rules run once per employee against whole records.
	ScopeEmployee Scope = "employee"
	// ScopeDelta rules run against each metric change of an employee.
	ScopeDelta Scope = "delta"
)

// ConditionKind selects how a Condition is checked.
type ConditionKind string

const (
	KindFunc             ConditionKind = "func"
	KindCurrentBelow     ConditionKind = "current_below"
	KindCurrentAbove     ConditionKind = "current_above"
	KindPercentIncrease  ConditionKind = "pct_increase"
	KindPercentDecrease  ConditionKind = "pct_decrease"
	KindPercentSwing     ConditionKind = "pct_swing"
	KindAbsoluteIncrease ConditionKind = "abs_increase"
	KindFieldMissing     ConditionKind = "field_missing"
	KindExpression       ConditionKind = "expression"
)

// Predicate is a hand-written check over an evaluation context.
type Predicate func(ctx *Context) (bool, error)

// Condition is the tagged test a rule applies. Only the fields relevant to
// Kind are read.
type Condition struct {
	Kind       ConditionKind  `json:"kind" yaml:"kind"`
	Field      payroll.Metric `json:"field,omitempty" yaml:"field,omitempty"`
	Threshold  float64        `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Expression string         `json:"expression,omitempty" yaml:"expression,omitempty"`
	Eval       Predicate      `json:"-" yaml:"-"`
}

// Below fires when the current value of field is below limit.
func Below(field payroll.Metric, limit float64) Condition {
	return Condition{Kind: KindCurrentBelow, Field: field, Threshold: limit}
}

// Above fires when the current value of field is above limit.
func Above(field payroll.Metric, limit float64) Condition {
	return Condition{Kind: KindCurrentAbove, Field: field, Threshold: limit}
}

// PctIncrease fires when the delta percentage is at least pct.
func PctIncrease(pct float64) Condition {
	return Condition{Kind: KindPercentIncrease, Threshold: pct}
}

// PctDecrease fires when the delta percentage is at most -pct.
func PctDecrease(pct float64) Condition {
	return Condition{Kind: KindPercentDecrease, Threshold: pct}
}

// PctSwing fires when the delta percentage moves pct or more either way.
func PctSwing(pct float64) Condition {
	return Condition{Kind: KindPercentSwing, Threshold: pct}
}

// AbsIncrease fires when the absolute delta is at least amount.
func AbsIncrease(amount float64) Condition {
	return Condition{Kind: KindAbsoluteIncrease, Threshold: amount}
}

// Missing fires when the current record has no value for field and the
// baseline record, if any, had one.
func Missing(field payroll.Metric) Condition {
	return Condition{Kind: KindFieldMissing, Field: field}
}

// Expr fires when the CEL expression evaluates to true.
func Expr(expression string) Condition {
	return Condition{Kind: KindExpression, Expression: expression}
}

// Func fires when fn returns true.
func Func(fn Predicate) Condition {
	return Condition{Kind: KindFunc, Eval: fn}
}

// Rule is one entry of the rule library.
type Rule struct {
	ID              string           `json:"id" yaml:"id"`
	Name            string           `json:"name" yaml:"name"`
	Category        payroll.Category `json:"category" yaml:"category"`
	Severity        Severity         `json:"severity" yaml:"severity"`
	Confidence      float64          `json:"confidence" yaml:"confidence"`
	ConfidenceLevel ConfidenceLevel  `json:"confidence_level" yaml:"confidence_level"`
	MinTier         tiers.Tier       `json:"min_tier" yaml:"min_tier"`
	Scope           Scope            `json:"scope" yaml:"scope"`
	// Metrics limits a delta-scoped rule to these metrics. Empty means all.
	Metrics       []payroll.Metric `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Condition     Condition        `json:"condition" yaml:"condition"`
	FlagReason    string           `json:"flag_reason" yaml:"flag_reason"`
	RiskStatement string           `json:"risk_statement" yaml:"risk_statement"`
	CommonCauses  []string         `json:"common_causes" yaml:"common_causes"`
	ReviewSteps   []string         `json:"review_steps" yaml:"review_steps"`
}

// AppliesTo reports whether a delta-scoped rule should look at metric m.
func (r *Rule) AppliesTo(m payroll.Metric) bool {
	if len(r.Metrics) == 0 {
		return true
	}
	for _, want := range r.Metrics {
		if want == m {
			return true
		}
	}
	return false
}

// Judgement is a fired rule for one employee.
type Judgement struct {
	EmployeeID      string           `json:"employee_id"`
	RuleID          string           `json:"rule_id"`
	RuleName        string           `json:"rule_name"`
	Category        payroll.Category `json:"category"`
	Severity        Severity         `json:"severity"`
	IsMaterial      bool             `json:"is_material"`
	IsBlocker       bool             `json:"is_blocker"`
	Confidence      float64          `json:"confidence"`
	Reasoning       string           `json:"reasoning"`
	Delta           delta.Key        `json:"delta"`
	DeltaPercentage *float64         `json:"delta_percentage,omitempty"`
}
