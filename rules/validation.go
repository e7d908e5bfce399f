package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/liamcoop/payrollrisk/payroll"
)

var ruleIDPattern = regexp.MustCompile(`^([A-Z]+)-[0-9]{3}$`)

// categoryPrefix is the ID prefix every rule of a category carries.
var categoryPrefix = map[payroll.Category]string{
	payroll.CategoryIdentity:    "ID",
	payroll.CategoryHours:       "HRS",
	payroll.CategoryEarnings:    "ERN",
	payroll.CategoryTaxes:       "TAX",
	payroll.CategoryDeductions:  "DED",
	payroll.CategoryFundamental: "FND",
	payroll.CategoryCross:       "XC",
}

// confidenceBands bounds the confidence a rule of each severity may carry.
var confidenceBands = map[Severity][2]float64{
	SeverityBlocker: {0.95, 1},
	SeverityReview:  {0.85, 0.93},
	SeverityInfo:    {0, 0.85},
}

// ValidateLibrary checks every rule is well formed and IDs are unique.
// All problems are reported together.
func ValidateLibrary(library []Rule) error {
	if len(library) == 0 {
		return fmt.Errorf("rule library cannot be empty")
	}

	var errs []error
	seen := make(map[string]bool, len(library))
	for i := range library {
		r := &library[i]
		if seen[r.ID] {
			errs = append(errs, fmt.Errorf("rule %s: duplicate id", r.ID))
		}
		seen[r.ID] = true
		if err := ValidateRule(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ValidateRule checks a single rule definition.
func ValidateRule(r *Rule) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("rule %s: %s", r.ID, fmt.Sprintf(format, args...))
	}

	m := ruleIDPattern.FindStringSubmatch(r.ID)
	if m == nil {
		return fail("id must look like PREFIX-000")
	}
	prefix, ok := categoryPrefix[r.Category]
	if !ok {
		return fail("unknown category %q", r.Category)
	}
	if m[1] != prefix {
		return fail("id prefix %q does not match category %q", m[1], r.Category)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fail("name is required")
	}

	switch r.Severity {
	case SeverityBlocker, SeverityReview, SeverityInfo:
	default:
		return fail("unknown severity %q", r.Severity)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fail("confidence %v outside [0,1]", r.Confidence)
	}
	if band := confidenceBands[r.Severity]; r.Confidence < band[0] || r.Confidence > band[1] {
		return fail("confidence %v outside the %s band [%v,%v]", r.Confidence, r.Severity, band[0], band[1])
	}
	if !r.MinTier.Valid() {
		return fail("unknown min tier %q", r.MinTier)
	}

	switch r.Scope {
	case ScopeEmployee:
		if len(r.Metrics) > 0 {
			return fail("metrics filter only applies to delta scope")
		}
	case ScopeDelta:
		for _, metric := range r.Metrics {
			if !payroll.IsMetric(metric) {
				return fail("unknown metric %q", metric)
			}
		}
	default:
		return fail("unknown scope %q", r.Scope)
	}

	if err := validateCondition(r); err != nil {
		return fail("%v", err)
	}

	if strings.TrimSpace(r.FlagReason) == "" || strings.TrimSpace(r.RiskStatement) == "" {
		return fail("flag reason and risk statement are required")
	}
	if len(r.CommonCauses) == 0 || len(r.ReviewSteps) == 0 {
		return fail("at least one common cause and review step are required")
	}
	return nil
}

func validateCondition(r *Rule) error {
	c := r.Condition
	switch c.Kind {
	case KindFunc:
		if c.Eval == nil {
			return fmt.Errorf("func condition has no predicate")
		}
	case KindCurrentBelow, KindCurrentAbove, KindFieldMissing:
		if c.Field == "" && r.Scope == ScopeEmployee {
			return fmt.Errorf("%s condition needs a field in employee scope", c.Kind)
		}
		if c.Field != "" && !payroll.IsMetric(c.Field) {
			return fmt.Errorf("unknown field %q", c.Field)
		}
	case KindPercentIncrease, KindPercentDecrease, KindPercentSwing, KindAbsoluteIncrease:
		if r.Scope != ScopeDelta {
			return fmt.Errorf("%s condition needs delta scope", c.Kind)
		}
		if c.Threshold < 0 {
			return fmt.Errorf("threshold must not be negative")
		}
	case KindExpression:
		if r.Scope != ScopeDelta {
			return fmt.Errorf("expression condition needs delta scope")
		}
		if strings.TrimSpace(c.Expression) == "" {
			return fmt.Errorf("expression is empty")
		}
	default:
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}
	return nil
}
