package rules

import (
	"strings"
	"testing"

	"github.com/liamcoop/payrollrisk/delta"
	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/tiers"
)

// TestLibraryIsValid verifies every built-in rule passes validation
func TestLibraryIsValid(t *testing.T) {
	if err := ValidateLibrary(Library()); err != nil {
		t.Fatalf("ValidateLibrary() failed: %v", err)
	}
}

// TestLibraryCoverage verifies every category and tier has rules
func TestLibraryCoverage(t *testing.T) {
	categories := make(map[payroll.Category]int)
	minTiers := make(map[tiers.Tier]int)
	blockers := 0
	for _, r := range Library() {
		categories[r.Category]++
		minTiers[r.MinTier]++
		if r.Severity.IsBlocker() {
			blockers++
		}
		if r.ConfidenceLevel != LevelFor(r.Confidence) {
			t.Errorf("rule %s: level %s does not match confidence %v", r.ID, r.ConfidenceLevel, r.Confidence)
		}
	}

	for c := range categoryPrefix {
		if categories[c] == 0 {
			t.Errorf("no rules for category %s", c)
		}
	}
	for _, tier := range tiers.All() {
		if minTiers[tier] == 0 {
			t.Errorf("no rules introduced at tier %s", tier)
		}
	}
	if blockers == 0 {
		t.Error("library has no blockers")
	}
}

// TestLibraryReturnsCopy verifies callers cannot mutate the shared library
func TestLibraryReturnsCopy(t *testing.T) {
	lib := Library()
	lib[0].Severity = SeverityInfo
	lib[0].ID = "XX-000"

	again := Library()
	if again[0].ID != "ID-001" || again[0].Severity != SeverityBlocker {
		t.Errorf("Library() should return an independent slice, got %s/%s", again[0].ID, again[0].Severity)
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		in   float64
		want ConfidenceLevel
	}{
		{1.0, ConfidenceCertain},
		{0.99, ConfidenceCertain},
		{0.96, ConfidenceVeryHigh},
		{0.9, ConfidenceHigh},
		{0.75, ConfidenceModerate},
		{0.5, ConfidenceLow},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.in); got != tt.want {
			t.Errorf("LevelFor(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

// TestValidateRuleRejects verifies malformed rules are caught
func TestValidateRuleRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Rule)
		want   string
	}{
		{"bad id", func(r *Rule) { r.ID = "fnd1" }, "PREFIX-000"},
		{"prefix mismatch", func(r *Rule) { r.ID = "TAX-001" }, "does not match category"},
		{"severity", func(r *Rule) { r.Severity = "urgent" }, "unknown severity"},
		{"confidence", func(r *Rule) { r.Confidence = 1.5 }, "outside [0,1]"},
		{"confidence band", func(r *Rule) { r.Confidence = 0.99 }, "review band"},
		{"tier", func(r *Rule) { r.MinTier = "gold" }, "unknown min tier"},
		{"scope", func(r *Rule) { r.Scope = "payroll" }, "unknown scope"},
		{"func without predicate", func(r *Rule) { r.Condition = Condition{Kind: KindFunc} }, "no predicate"},
		{"pct in employee scope", func(r *Rule) { r.Condition = PctIncrease(10) }, "needs delta scope"},
		{"expression in employee scope", func(r *Rule) { r.Condition = Expr(`true`) }, "needs delta scope"},
		{"below without field", func(r *Rule) { r.Condition = Below("", 0) }, "needs a field"},
		{"unknown field", func(r *Rule) { r.Condition = Below("bogus", 0) }, "unknown field"},
		{"metrics in employee scope", func(r *Rule) { r.Metrics = []payroll.Metric{payroll.NetPay} }, "only applies to delta"},
		{"missing guidance", func(r *Rule) { r.ReviewSteps = nil }, "review step"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testRule("FND-900", ScopeEmployee, Below(payroll.NetPay, 0))
			tt.mutate(&r)
			err := ValidateRule(&r)
			if err == nil {
				t.Fatal("ValidateRule() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

// TestValidateLibraryDuplicateIDs verifies duplicate rule IDs are reported
func TestValidateLibraryDuplicateIDs(t *testing.T) {
	r := testRule("FND-900", ScopeEmployee, Below(payroll.NetPay, 0))
	err := ValidateLibrary([]Rule{r, r})
	if err == nil || !strings.Contains(err.Error(), "duplicate id") {
		t.Errorf("error = %v, want duplicate id", err)
	}
	if err := ValidateLibrary(nil); err == nil {
		t.Error("empty library should be rejected")
	}
}

// TestPopulation verifies dataset-wide facts
func TestPopulation(t *testing.T) {
	a := cleanRecord("E1")
	b := cleanRecord("E2")
	b.WorkState = "NY"
	odd := cleanRecord("E3")
	odd.PeriodStart = "2023-12-18"
	dup := cleanRecord("E1")

	pop := NewPopulation(payroll.Dataset{
		Baseline: []payroll.Record{cleanRecord("E1"), cleanRecord("E2")},
		Current:  []payroll.Record{a, b, odd, dup},
	})

	if pop.CurrentOccurrences("E1") != 2 || pop.BaselineOccurrences("E1") != 1 {
		t.Errorf("occurrences = %d/%d, want 2/1", pop.CurrentOccurrences("E1"), pop.BaselineOccurrences("E1"))
	}
	if pop.CurrentHeadcount != 3 || pop.BaselineHeadcount != 2 {
		t.Errorf("headcount = %d/%d, want 3/2", pop.CurrentHeadcount, pop.BaselineHeadcount)
	}
	if pop.PeriodMode() != "2024-01-01|2024-01-14" {
		t.Errorf("PeriodMode() = %q", pop.PeriodMode())
	}
	cur, base := pop.StateTaxShare("NY")
	// current: CA 160, NY 80; baseline: CA 160
	if base != 0 || cur < 0.33 || cur > 0.34 {
		t.Errorf("StateTaxShare(NY) = %v, %v", cur, base)
	}
	if pop.Current("missing") != nil {
		t.Error("unknown id should return nil")
	}
}

// TestStateTaxShareStable verifies state totals are summed in a fixed order
func TestStateTaxShareStable(t *testing.T) {
	// Float addition of these totals depends on order: A, B, C, D gives 1.
	taxes := map[string]float64{"A": 1e16, "B": 1, "C": -1e16, "D": 1}
	var current []payroll.Record
	for state, tax := range taxes {
		r := valuesRecord("E-"+state, map[payroll.Metric]float64{payroll.StateIncomeTax: tax})
		r.WorkState = state
		current = append(current, r)
	}

	for i := 0; i < 50; i++ {
		pop := NewPopulation(payroll.Dataset{Current: current})
		cur, base := pop.StateTaxShare("D")
		if cur != 1 || base != 0 {
			t.Fatalf("run %d: StateTaxShare(D) = %v, %v, want 1, 0", i, cur, base)
		}
	}
}

// TestFactsFor verifies nulls become zero with the has flags cleared
func TestFactsFor(t *testing.T) {
	cur := 50.0
	abs := 50.0
	d := &delta.Delta{
		EmployeeID:    "E1",
		Metric:        payroll.Garnishments,
		ChangeType:    delta.Increase,
		CurrentValue:  &cur,
		DeltaAbsolute: &abs,
	}
	f := FactsFor(&Context{EmployeeID: "E1", Metric: d.Metric, Delta: d})

	if f.HasBaseline || f.HasPct || !f.HasCurrent {
		t.Errorf("unexpected flags: %+v", f)
	}
	if f.Baseline != 0 || f.Current != 50 || f.DeltaAbs != 50 {
		t.Errorf("unexpected values: %+v", f)
	}
	act := f.Activation()
	if act["metric"] != string(payroll.Garnishments) || act["change"] != "increase" {
		t.Errorf("unexpected activation: %v", act)
	}
}
