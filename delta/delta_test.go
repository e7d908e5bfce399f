package delta

import (
	"errors"
	"testing"

	"github.com/liamcoop/payrollrisk/payroll"
)

func rec(id string, values map[payroll.Metric]float64) payroll.Record {
	return payroll.Record{EmployeeID: id, Status: "active", Values: values}
}

// TestComputeDeltasIdenticalDatasets verifies identical runs produce only no_change markers
func TestComputeDeltasIdenticalDatasets(t *testing.T) {
	baseline := []payroll.Record{
		rec("E1", map[payroll.Metric]float64{payroll.NetPay: 1000, payroll.GrossPay: 1500}),
		rec("E2", map[payroll.Metric]float64{payroll.NetPay: 0}),
	}
	current := []payroll.Record{
		rec("E2", map[payroll.Metric]float64{payroll.NetPay: 0}),
		rec("E1", map[payroll.Metric]float64{payroll.NetPay: 1000, payroll.GrossPay: 1500}),
	}

	deltas, err := ComputeDeltas(baseline, current)
	if err != nil {
		t.Fatalf("ComputeDeltas() failed: %v", err)
	}
	if len(deltas) != 2 {
		t.Fatalf("len(deltas) = %d, want 2", len(deltas))
	}
	for _, d := range deltas {
		if d.ChangeType != NoChange {
			t.Errorf("%s change type = %s, want no_change", d.EmployeeID, d.ChangeType)
		}
		if d.Metric != payroll.NetPay {
			t.Errorf("%s metric = %s, want net_pay", d.EmployeeID, d.Metric)
		}
	}
	if *deltas[0].CurrentValue != 1000 || *deltas[0].BaselineValue != 1000 {
		t.Errorf("E1 marker values = %v/%v, want 1000/1000", *deltas[0].BaselineValue, *deltas[0].CurrentValue)
	}
	if deltas[1].DeltaPercentage != nil {
		t.Error("marker with zero net pay must have nil percentage")
	}
}

// TestComputeDeltasNewAndRemoved verifies one delta per employee present on only one side
func TestComputeDeltasNewAndRemoved(t *testing.T) {
	baseline := []payroll.Record{rec("GONE", map[payroll.Metric]float64{payroll.NetPay: 800})}
	current := []payroll.Record{rec("HIRE", map[payroll.Metric]float64{payroll.NetPay: 900})}

	deltas, err := ComputeDeltas(baseline, current)
	if err != nil {
		t.Fatalf("ComputeDeltas() failed: %v", err)
	}
	if len(deltas) != 2 {
		t.Fatalf("len(deltas) = %d, want 2", len(deltas))
	}

	gone, hire := deltas[0], deltas[1]
	if gone.EmployeeID != "GONE" || gone.ChangeType != RemovedEmployee {
		t.Errorf("first delta = %+v, want removed GONE", gone)
	}
	if gone.CurrentValue != nil || gone.BaselineValue == nil || *gone.BaselineValue != 800 {
		t.Errorf("removed delta values wrong: %+v", gone)
	}
	if hire.EmployeeID != "HIRE" || hire.ChangeType != NewEmployee {
		t.Errorf("second delta = %+v, want new HIRE", hire)
	}
	if hire.BaselineValue != nil || hire.CurrentValue == nil || *hire.CurrentValue != 900 {
		t.Errorf("new delta values wrong: %+v", hire)
	}
}

func TestComputeDeltasMetricChanges(t *testing.T) {
	baseline := []payroll.Record{rec("E1", map[payroll.Metric]float64{
		payroll.NetPay:          1000,
		payroll.TotalDeductions: 100,
		payroll.BonusPay:        0,
	})}
	current := []payroll.Record{rec("E1", map[payroll.Metric]float64{
		payroll.NetPay:          -50,
		payroll.TotalDeductions: 160,
		payroll.BonusPay:        250,
		payroll.OvertimeHours:   4,
	})}

	deltas, err := ComputeDeltas(baseline, current)
	if err != nil {
		t.Fatalf("ComputeDeltas() failed: %v", err)
	}

	byMetric := make(map[payroll.Metric]Delta)
	for _, d := range deltas {
		byMetric[d.Metric] = d
	}
	if len(byMetric) != 4 {
		t.Fatalf("got %d deltas, want 4: %+v", len(byMetric), deltas)
	}

	net := byMetric[payroll.NetPay]
	if net.ChangeType != Decrease || *net.DeltaAbsolute != -1050 || *net.DeltaPercentage != -105 {
		t.Errorf("net_pay delta = %+v", net)
	}

	ded := byMetric[payroll.TotalDeductions]
	if ded.ChangeType != Increase || *ded.DeltaPercentage != 60 {
		t.Errorf("total_deductions delta = %+v", ded)
	}

	bonus := byMetric[payroll.BonusPay]
	if bonus.DeltaPercentage != nil {
		t.Error("zero baseline must give nil percentage")
	}
	if bonus.BaselineValue == nil || *bonus.BaselineValue != 0 {
		t.Error("stored zero baseline must be kept as 0, not null")
	}

	ot := byMetric[payroll.OvertimeHours]
	if ot.BaselineValue != nil {
		t.Error("null baseline must stay nil in storage")
	}
	if ot.DeltaPercentage != nil || *ot.DeltaAbsolute != 4 {
		t.Errorf("overtime_hours delta = %+v", ot)
	}
}

func TestComputeDeltasEmptyDataset(t *testing.T) {
	one := []payroll.Record{rec("E1", nil)}

	if _, err := ComputeDeltas(nil, one); !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("empty baseline error = %v, want ErrEmptyDataset", err)
	}
	if _, err := ComputeDeltas(one, []payroll.Record{}); !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("empty current error = %v, want ErrEmptyDataset", err)
	}
}

// TestComputeDeltasDuplicateIDs verifies repeats do not fail the calculator
func TestComputeDeltasDuplicateIDs(t *testing.T) {
	baseline := []payroll.Record{rec("E1", map[payroll.Metric]float64{payroll.NetPay: 100})}
	current := []payroll.Record{
		rec("E1", map[payroll.Metric]float64{payroll.NetPay: 100}),
		rec("E1", map[payroll.Metric]float64{payroll.NetPay: 999}),
	}

	deltas, err := ComputeDeltas(baseline, current)
	if err != nil {
		t.Fatalf("ComputeDeltas() failed: %v", err)
	}
	if len(deltas) != 1 || deltas[0].ChangeType != NoChange {
		t.Errorf("deltas = %+v, want one no_change marker from first occurrence", deltas)
	}
}

func TestRepresentative(t *testing.T) {
	if _, ok := Representative(nil); ok {
		t.Error("Representative(nil) should report false")
	}

	deltas := []Delta{
		{EmployeeID: "E1", Metric: payroll.GrossPay},
		{EmployeeID: "E1", Metric: payroll.NetPay},
	}
	if d, _ := Representative(deltas); d.Metric != payroll.NetPay {
		t.Errorf("Representative() = %s, want net_pay", d.Metric)
	}
	if d, _ := Representative(deltas[:1]); d.Metric != payroll.GrossPay {
		t.Errorf("Representative() = %s, want first delta", d.Metric)
	}
}

func TestGroupByEmployee(t *testing.T) {
	deltas := []Delta{
		{EmployeeID: "A", Metric: payroll.GrossPay},
		{EmployeeID: "A", Metric: payroll.NetPay},
		{EmployeeID: "B", Metric: payroll.NetPay},
	}
	groups, order := GroupByEmployee(deltas)
	if len(order) != 2 || order[0] != "A" || order[1] != "B" {
		t.Errorf("order = %v, want [A B]", order)
	}
	if len(groups["A"]) != 2 || len(groups["B"]) != 1 {
		t.Errorf("groups = %v", groups)
	}
}
