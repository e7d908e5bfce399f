package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/rules"
)

func pct(v float64) *float64 { return &v }

func judgement(employee, ruleID string, severity rules.Severity, confidence float64) rules.Judgement {
	return rules.Judgement{
		EmployeeID: employee,
		RuleID:     ruleID,
		Severity:   severity,
		IsBlocker:  severity.IsBlocker(),
		IsMaterial: severity.IsMaterial(),
		Confidence: confidence,
	}
}

// TestBlockerOverride verifies blockers always land in Blockers whatever the table says
func TestBlockerOverride(t *testing.T) {
	section, ok := Mapped("ID-002")
	require.True(t, ok)
	require.Equal(t, Systemic, section)

	j := judgement("E1", "ID-002", rules.SeverityBlocker, 0.99)
	assert.Equal(t, Blockers, SectionFor(j))

	// a blocker from an unmapped rule still blocks
	custom := judgement("E1", "FND-900", rules.SeverityBlocker, 1.0)
	assert.Equal(t, Blockers, SectionFor(custom))
}

func TestUnmappedDefaultsToNoise(t *testing.T) {
	j := judgement("E1", "ZZ-404", rules.SeverityReview, 0.9)
	assert.Equal(t, Noise, SectionFor(j))
}

// TestEveryLibraryRuleIsMapped verifies the table keeps up with the library
func TestEveryLibraryRuleIsMapped(t *testing.T) {
	for _, r := range rules.Library() {
		section, ok := Mapped(r.ID)
		if !assert.True(t, ok, "rule %s has no section", r.ID) {
			continue
		}
		if r.Severity == rules.SeverityInfo {
			assert.Equal(t, Noise, section, "info rule %s should be noise", r.ID)
		}
		if r.Severity == rules.SeverityBlocker && section != Blockers {
			// only allowed when the table deliberately shows the override
			assert.Equal(t, "ID-002", r.ID, "blocker rule %s mapped to %s", r.ID, section)
		}
	}
}

// TestClassifySorting verifies each section's ordering
func TestClassifySorting(t *testing.T) {
	low := judgement("E2", "FND-003", rules.SeverityReview, 0.88)
	high := judgement("E9", "TAX-002", rules.SeverityReview, 0.9)
	tieA := judgement("E5", "ERN-003", rules.SeverityReview, 0.88)

	volSmall := judgement("E1", "DED-002", rules.SeverityReview, 0.88)
	volSmall.DeltaPercentage = pct(60)
	volLarge := judgement("E2", "HRS-004", rules.SeverityReview, 0.87)
	volLarge.DeltaPercentage = pct(-300)
	volNil := judgement("E3", "XC-001", rules.SeverityReview, 0.85)

	sysB := judgement("E7", "ID-003", rules.SeverityReview, 0.9)
	sysA := judgement("E3", "ID-012", rules.SeverityReview, 0.86)

	s := Classify([]rules.Judgement{low, volSmall, sysB, high, volNil, tieA, volLarge, sysA})

	require.Len(t, s.HighRisk, 3)
	assert.Equal(t, []string{"TAX-002", "ERN-003", "FND-003"}, ruleIDs(s.HighRisk))

	require.Len(t, s.Volatility, 3)
	assert.Equal(t, []string{"XC-001", "HRS-004", "DED-002"}, ruleIDs(s.Volatility))

	require.Len(t, s.Systemic, 2)
	assert.Equal(t, "E3", s.Systemic[0].EmployeeID)
	assert.Equal(t, "E7", s.Systemic[1].EmployeeID)

	assert.Equal(t, 8, s.Total())
	assert.Empty(t, s.Blockers)
}

func TestClassifyEmpty(t *testing.T) {
	s := Classify(nil)
	assert.Equal(t, 0, s.Total())
	for _, section := range All() {
		assert.Empty(t, s.Get(section))
	}
}

// TestClassifyEndToEnd verifies engine output buckets as expected
func TestClassifyEndToEnd(t *testing.T) {
	en, err := rules.NewDefaultEngine()
	require.NoError(t, err)

	records := func(net float64) []payroll.Record {
		return []payroll.Record{{EmployeeID: "E1", Values: map[payroll.Metric]float64{payroll.NetPay: net}}}
	}
	data := payroll.Dataset{Baseline: records(1000), Current: records(-50)}

	deltas := mustDeltas(t, data)
	judgements, err := en.Evaluate(deltas, data, "starter")
	require.NoError(t, err)

	s := Classify(judgements)
	require.NotEmpty(t, s.Blockers)
	assert.Equal(t, "FND-001", s.Blockers[0].RuleID)
	assert.Contains(t, ruleIDs(s.HighRisk), "FND-003")
}

func ruleIDs(js []rules.Judgement) []string {
	out := make([]string, len(js))
	for i, j := range js {
		out[i] = j.RuleID
	}
	return out
}
