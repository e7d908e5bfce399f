// Package classify buckets judgements into the six review sections.
package classify

import (
	"cmp"
	"math"
	"slices"

	"github.com/liamcoop/payrollrisk/rules"
)

// Section is one presentation bucket of the review screen.
type Section string

const (
	Blockers   Section = "blockers"
	HighRisk   Section = "high_risk"
	Compliance Section = "compliance"
	Volatility Section = "volatility"
	Systemic   Section = "systemic"
	Noise      Section = "noise"
)

// All returns the sections in display order.
func All() []Section {
	return []Section{Blockers, HighRisk, Compliance, Volatility, Systemic, Noise}
}

// Sections holds the sorted judgements of every section.
type Sections struct {
	Blockers   []rules.Judgement `json:"blockers"`
	HighRisk   []rules.Judgement `json:"high_risk"`
	Compliance []rules.Judgement `json:"compliance"`
	Volatility []rules.Judgement `json:"volatility"`
	Systemic   []rules.Judgement `json:"systemic"`
	Noise      []rules.Judgement `json:"noise"`
}

// Get returns the judgements of section s.
func (s *Sections) Get(section Section) []rules.Judgement {
	if p := s.slot(section); p != nil {
		return *p
	}
	return nil
}

func (s *Sections) slot(section Section) *[]rules.Judgement {
	switch section {
	case Blockers:
		return &s.Blockers
	case HighRisk:
		return &s.HighRisk
	case Compliance:
		return &s.Compliance
	case Volatility:
		return &s.Volatility
	case Systemic:
		return &s.Systemic
	case Noise:
		return &s.Noise
	}
	return nil
}

// Total is the number of judgements across all sections.
func (s *Sections) Total() int {
	n := 0
	for _, section := range All() {
		n += len(s.Get(section))
	}
	return n
}

// SectionFor returns where j is shown. A blocker always lands in Blockers,
// whatever the table says.
func SectionFor(j rules.Judgement) Section {
	if j.IsBlocker {
		return Blockers
	}
	if section, ok := sectionByRule[j.RuleID]; ok {
		return section
	}
	return Noise
}

// Classify buckets judgements and sorts each section.
func Classify(judgements []rules.Judgement) Sections {
	var s Sections
	for _, j := range judgements {
		p := s.slot(SectionFor(j))
		*p = append(*p, j)
	}

	slices.SortStableFunc(s.Blockers, byConfidence)
	slices.SortStableFunc(s.HighRisk, byConfidence)
	slices.SortStableFunc(s.Compliance, byConfidence)
	slices.SortStableFunc(s.Volatility, byMagnitude)
	slices.SortStableFunc(s.Systemic, byEmployee)
	slices.SortStableFunc(s.Noise, byEmployee)
	return s
}

func byConfidence(a, b rules.Judgement) int {
	if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
		return c
	}
	return cmp.Compare(a.RuleID, b.RuleID)
}

// byMagnitude puts the largest moves first. A missing percentage is a move
// from zero and counts as unbounded.
func byMagnitude(a, b rules.Judgement) int {
	if c := cmp.Compare(magnitude(b), magnitude(a)); c != 0 {
		return c
	}
	return cmp.Compare(a.RuleID, b.RuleID)
}

func magnitude(j rules.Judgement) float64 {
	if j.DeltaPercentage == nil {
		return math.Inf(1)
	}
	return math.Abs(*j.DeltaPercentage)
}

func byEmployee(a, b rules.Judgement) int {
	if c := cmp.Compare(a.EmployeeID, b.EmployeeID); c != 0 {
		return c
	}
	return cmp.Compare(a.RuleID, b.RuleID)
}
