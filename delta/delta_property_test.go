package delta

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/liamcoop/payrollrisk/payroll"
)

// buildRun turns generated integers into records; 5 encodes a null net pay.
func buildRun(values []int, offset int) []payroll.Record {
	out := make([]payroll.Record, 0, len(values))
	for i, v := range values {
		r := payroll.Record{
			EmployeeID: fmt.Sprintf("E%03d", i+offset),
			Values:     map[payroll.Metric]float64{payroll.GrossPay: float64(v * 2)},
		}
		if v != 5 {
			r.Values[payroll.NetPay] = float64(v)
		}
		out = append(out, r)
	}
	return out
}

func reversed(in []payroll.Record) []payroll.Record {
	out := make([]payroll.Record, len(in))
	for i := range in {
		out[len(in)-1-i] = in[i]
	}
	return out
}

func TestComputeDeltasProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	values := gen.SliceOf(gen.IntRange(-5, 5)).SuchThat(func(v []int) bool { return len(v) > 0 })

	properties.Property("input order does not change the delta set", prop.ForAll(
		func(base, curr []int) bool {
			b := buildRun(base, 0)
			c := buildRun(curr, 1)

			first, err1 := ComputeDeltas(b, c)
			second, err2 := ComputeDeltas(reversed(b), reversed(c))
			if err1 != nil || err2 != nil {
				return false
			}
			return reflect.DeepEqual(first, second)
		},
		values, values,
	))

	properties.Property("percentage is present exactly when baseline is non-null and non-zero", prop.ForAll(
		func(base, curr []int) bool {
			deltas, err := ComputeDeltas(buildRun(base, 0), buildRun(curr, 0))
			if err != nil {
				return false
			}
			for _, d := range deltas {
				if !d.IsMetricChange() && d.ChangeType != NoChange {
					continue
				}
				hasBase := d.BaselineValue != nil && *d.BaselineValue != 0
				if hasBase != (d.DeltaPercentage != nil) {
					return false
				}
			}
			return true
		},
		values, values,
	))

	properties.Property("every employee gets at least one delta and at most one per metric", prop.ForAll(
		func(base, curr []int) bool {
			deltas, err := ComputeDeltas(buildRun(base, 0), buildRun(curr, 2))
			if err != nil {
				return false
			}
			seen := make(map[Key]bool)
			for _, d := range deltas {
				if seen[d.Key()] {
					return false
				}
				seen[d.Key()] = true
			}
			ids := make(map[string]bool)
			for _, r := range buildRun(base, 0) {
				ids[r.EmployeeID] = true
			}
			for _, r := range buildRun(curr, 2) {
				ids[r.EmployeeID] = true
			}
			groups, _ := GroupByEmployee(deltas)
			return len(groups) == len(ids)
		},
		values, values,
	))

	properties.TestingRun(t)
}
