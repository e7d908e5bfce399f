package rules

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Facts is the activation handed to expression rules. Nulls are carried as
// zero with the matching has_* flag cleared, so expressions only ever see
// doubles, strings and bools.
type Facts struct {
	Metric      string  `json:"metric"`
	Change      string  `json:"change"`
	Baseline    float64 `json:"baseline"`
	Current     float64 `json:"current"`
	DeltaAbs    float64 `json:"delta_abs"`
	DeltaPct    float64 `json:"delta_pct"`
	HasBaseline bool    `json:"has_baseline"`
	HasCurrent  bool    `json:"has_current"`
	HasPct      bool    `json:"has_pct"`
}

// FactsFor builds the expression activation for a delta-scoped context.
func FactsFor(ctx *Context) Facts {
	f := Facts{Metric: string(ctx.Metric)}
	d := ctx.Delta
	if d == nil {
		return f
	}
	f.Change = string(d.ChangeType)
	if d.BaselineValue != nil {
		f.Baseline, f.HasBaseline = *d.BaselineValue, true
	}
	if d.CurrentValue != nil {
		f.Current, f.HasCurrent = *d.CurrentValue, true
	}
	if d.DeltaAbsolute != nil {
		f.DeltaAbs = *d.DeltaAbsolute
	}
	if d.DeltaPercentage != nil {
		f.DeltaPct, f.HasPct = *d.DeltaPercentage, true
	}
	return f
}

// Activation converts f into the variable map CEL programs evaluate against.
func (f Facts) Activation() map[string]any {
	return map[string]any{
		"metric":       f.Metric,
		"change":       f.Change,
		"baseline":     f.Baseline,
		"current":      f.Current,
		"delta_abs":    f.DeltaAbs,
		"delta_pct":    f.DeltaPct,
		"has_baseline": f.HasBaseline,
		"has_current":  f.HasCurrent,
		"has_pct":      f.HasPct,
	}
}

// NewEnv declares the variables expression rules may reference.
func NewEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("metric", cel.StringType),
		cel.Variable("change", cel.StringType),
		cel.Variable("baseline", cel.DoubleType),
		cel.Variable("current", cel.DoubleType),
		cel.Variable("delta_abs", cel.DoubleType),
		cel.Variable("delta_pct", cel.DoubleType),
		cel.Variable("has_baseline", cel.BoolType),
		cel.Variable("has_current", cel.BoolType),
		cel.Variable("has_pct", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}
