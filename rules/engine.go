package rules

import (
	"fmt"
	"math"

	"github.com/google/cel-go/cel"

	"github.com/liamcoop/payrollrisk/delta"
	"github.com/liamcoop/payrollrisk/internal/logger"
	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/tiers"
)

// Engine evaluates a fixed rule library against computed deltas.
// It is immutable after NewEngine and safe for concurrent use.
type Engine struct {
	env      *cel.Env
	library  []Rule
	eligible map[tiers.Tier][]*Rule
	programs map[string]cel.Program // ruleID -> compiled expression
}

// Stats counts what one evaluation did.
type Stats struct {
	Evaluations int
	Fired       int
	Faults      int
}

// NewEngine validates library, compiles its expression rules and precomputes
// the eligible rule set of every tier.
func NewEngine(library []Rule) (*Engine, error) {
	if err := ValidateLibrary(library); err != nil {
		return nil, err
	}

	env, err := NewEnv()
	if err != nil {
		return nil, err
	}

	en := &Engine{
		env:      env,
		library:  append([]Rule(nil), library...),
		eligible: make(map[tiers.Tier][]*Rule),
		programs: make(map[string]cel.Program),
	}

	for i := range en.library {
		r := &en.library[i]
		if r.ConfidenceLevel == "" {
			r.ConfidenceLevel = LevelFor(r.Confidence)
		}
		if r.Condition.Kind != KindExpression {
			continue
		}
		if err := en.CompileRule(r.ID, r.Condition.Expression); err != nil {
			return nil, fmt.Errorf("failed to compile rule %s: %w", r.ID, err)
		}
	}

	for _, t := range tiers.All() {
		for i := range en.library {
			if t.AtLeast(en.library[i].MinTier) {
				en.eligible[t] = append(en.eligible[t], &en.library[i])
			}
		}
	}

	return en, nil
}

// NewDefaultEngine builds an engine over the built-in library.
func NewDefaultEngine() (*Engine, error) {
	return NewEngine(Library())
}

// CompileRule compiles a boolean CEL expression for ruleID.
// Only called while the engine is being constructed.
func (en *Engine) CompileRule(ruleID, expression string) error {
	ast, issues := en.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}

	// Cost limit bounds runaway expressions
	prog, err := en.env.Program(ast, cel.CostLimit(1000000))
	if err != nil {
		return fmt.Errorf("program creation error: %w", err)
	}

	en.programs[ruleID] = prog
	return nil
}

// Library returns the rules the engine was built with.
func (en *Engine) Library() []Rule {
	return append([]Rule(nil), en.library...)
}

// Eligible returns the rules a tier may evaluate, in library order.
func (en *Engine) Eligible(t tiers.Tier) []Rule {
	out := make([]Rule, 0, len(en.eligible[t]))
	for _, r := range en.eligible[t] {
		out = append(out, *r)
	}
	return out
}

// Evaluate runs the tier's eligible rules over deltas and returns the fired
// judgements. See EvaluateWithStats.
func (en *Engine) Evaluate(deltas []delta.Delta, data payroll.Dataset, tier tiers.Tier) ([]Judgement, error) {
	judgements, _, err := en.EvaluateWithStats(deltas, data, tier)
	return judgements, err
}

// EvaluateWithStats runs the tier's eligible rules over deltas.
//
// Rules above the tier are never evaluated. For each employee the
// employee-scoped rules run once, then the delta-scoped rules run over each
// metric change. A rule fires at most once per employee; the first match
// wins. A rule that errors or panics is logged and skipped for that
// employee without aborting the run.
func (en *Engine) EvaluateWithStats(deltas []delta.Delta, data payroll.Dataset, tier tiers.Tier) ([]Judgement, Stats, error) {
	var stats Stats
	if !tier.Valid() {
		return nil, stats, fmt.Errorf("%w: %q", tiers.ErrUnknownTier, tier)
	}

	var employeeRules, deltaRules []*Rule
	for _, r := range en.eligible[tier] {
		if r.Scope == ScopeEmployee {
			employeeRules = append(employeeRules, r)
		} else {
			deltaRules = append(deltaRules, r)
		}
	}

	pop := NewPopulation(data)
	groups, order := delta.GroupByEmployee(deltas)

	var out []Judgement
	for _, id := range order {
		changes := groups[id]
		rep, _ := delta.Representative(changes)
		fired := make(map[string]bool)

		ctx := &Context{
			EmployeeID: id,
			Current:    pop.Current(id),
			Baseline:   pop.Baseline(id),
			Metric:     payroll.EmployeeLevel,
			Population: pop,
		}

		for _, r := range employeeRules {
			stats.Evaluations++
			matched, err := en.evaluateRule(r, ctx)
			if err != nil {
				stats.Faults++
				logger.WarnRuleFault(r.ID, id, err)
				continue
			}
			if !matched {
				continue
			}
			fired[r.ID] = true
			out = append(out, judge(r, rep, describeEmployee(r, rep)))
		}

		for i := range changes {
			d := &changes[i]
			if !d.IsMetricChange() {
				continue
			}
			dctx := &Context{
				EmployeeID: id,
				Current:    ctx.Current,
				Baseline:   ctx.Baseline,
				Metric:     d.Metric,
				Delta:      d,
				Population: pop,
			}
			for _, r := range deltaRules {
				if fired[r.ID] || !r.AppliesTo(d.Metric) {
					continue
				}
				stats.Evaluations++
				matched, err := en.evaluateRule(r, dctx)
				if err != nil {
					stats.Faults++
					logger.WarnRuleFault(r.ID, id, err)
					continue
				}
				if !matched {
					continue
				}
				fired[r.ID] = true
				out = append(out, judge(r, *d, describeDelta(r, *d)))
			}
		}
	}

	stats.Fired = len(out)
	return out, stats, nil
}

// evaluateRule checks one rule, turning a panic into an error.
func (en *Engine) evaluateRule(r *Rule, ctx *Context) (matched bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			matched = false
			err = fmt.Errorf("rule %s panicked: %v", r.ID, p)
		}
	}()
	return en.check(r, ctx)
}

func (en *Engine) check(r *Rule, ctx *Context) (bool, error) {
	c := r.Condition
	field := c.Field
	if field == "" {
		field = ctx.Metric
	}

	switch c.Kind {
	case KindFunc:
		return c.Eval(ctx)
	case KindCurrentBelow:
		v, ok := ctx.Cur(field)
		return ok && v < c.Threshold, nil
	case KindCurrentAbove:
		v, ok := ctx.Cur(field)
		return ok && v > c.Threshold, nil
	case KindPercentIncrease:
		pct := ctx.Percentage()
		return pct != nil && *pct >= c.Threshold, nil
	case KindPercentDecrease:
		pct := ctx.Percentage()
		return pct != nil && *pct <= -c.Threshold, nil
	case KindPercentSwing:
		pct := ctx.Percentage()
		return pct != nil && math.Abs(*pct) >= c.Threshold, nil
	case KindAbsoluteIncrease:
		abs := ctx.Absolute()
		return abs != nil && *abs >= c.Threshold, nil
	case KindFieldMissing:
		if ctx.Current == nil {
			return false, nil
		}
		if _, ok := ctx.Cur(field); ok {
			return false, nil
		}
		if ctx.Baseline == nil {
			return true, nil
		}
		// Both sides lacking the field is an unchanged export, not a finding.
		_, had := ctx.Base(field)
		return had, nil
	case KindExpression:
		prog, ok := en.programs[r.ID]
		if !ok {
			return false, fmt.Errorf("rule %s is not compiled", r.ID)
		}
		out, _, err := prog.Eval(FactsFor(ctx).Activation())
		if err != nil {
			return false, err
		}
		matched, _ := out.Value().(bool)
		return matched, nil
	default:
		return false, fmt.Errorf("unknown condition kind %q", c.Kind)
	}
}

func judge(r *Rule, d delta.Delta, reasoning string) Judgement {
	return Judgement{
		EmployeeID:      d.EmployeeID,
		RuleID:          r.ID,
		RuleName:        r.Name,
		Category:        r.Category,
		Severity:        r.Severity,
		IsMaterial:      r.Severity.IsMaterial(),
		IsBlocker:       r.Severity.IsBlocker(),
		Confidence:      r.Confidence,
		Reasoning:       reasoning,
		Delta:           d.Key(),
		DeltaPercentage: d.DeltaPercentage,
	}
}

func describeEmployee(r *Rule, d delta.Delta) string {
	return fmt.Sprintf("%s (employee %q, %s)", r.FlagReason, d.EmployeeID, d.ChangeType)
}

func describeDelta(r *Rule, d delta.Delta) string {
	msg := fmt.Sprintf("%s (%s: %s -> %s", r.FlagReason, payroll.Label(d.Metric),
		formatValue(d.BaselineValue), formatValue(d.CurrentValue))
	if d.DeltaPercentage != nil {
		msg += fmt.Sprintf(", %+.1f%%", *d.DeltaPercentage)
	}
	return msg + ")"
}

func formatValue(v *float64) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%.2f", *v)
}
