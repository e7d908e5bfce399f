package payroll

import (
	"math"
	"strconv"
	"strings"
)

// ComponentKind classifies a named pay component.
type ComponentKind string

const (
	ComponentEarning   ComponentKind = "earning"
	ComponentDeduction ComponentKind = "deduction"
	ComponentTax       ComponentKind = "tax"
)

// PayComponent is one named line of an earning, deduction or tax breakdown.
type PayComponent struct {
	Name   string        `json:"name" yaml:"name"`
	Kind   ComponentKind `json:"kind" yaml:"kind"`
	Amount float64       `json:"amount" yaml:"amount"`
}

// Record is one employee's canonical row in one dataset.
// A metric absent from Values is null. Records are not mutated after ingestion.
type Record struct {
	EmployeeID   string             `json:"employee_id" yaml:"employee_id"`
	Name         string             `json:"name,omitempty" yaml:"name,omitempty"`
	Status       string             `json:"status,omitempty" yaml:"status,omitempty"`
	PayGroup     string             `json:"pay_group,omitempty" yaml:"pay_group,omitempty"`
	PayFrequency string             `json:"pay_frequency,omitempty" yaml:"pay_frequency,omitempty"`
	Department   string             `json:"department,omitempty" yaml:"department,omitempty"`
	WorkState    string             `json:"work_state,omitempty" yaml:"work_state,omitempty"`
	PeriodStart  string             `json:"period_start,omitempty" yaml:"period_start,omitempty"`
	PeriodEnd    string             `json:"period_end,omitempty" yaml:"period_end,omitempty"`
	Values       map[Metric]float64 `json:"values,omitempty" yaml:"values,omitempty"`
	Components   []PayComponent     `json:"components,omitempty" yaml:"components,omitempty"`
}

// Dataset is the pair of collections compared in one review session.
type Dataset struct {
	Baseline []Record `json:"baseline" yaml:"baseline"`
	Current  []Record `json:"current" yaml:"current"`
}

// ID returns the trimmed employee identifier.
func (r *Record) ID() string {
	return strings.TrimSpace(r.EmployeeID)
}

// Value returns the value of m and whether it is non-null.
func (r *Record) Value(m Metric) (float64, bool) {
	if r == nil || r.Values == nil {
		return 0, false
	}
	v, ok := r.Values[m]
	return v, ok
}

// ValueOrZero returns the value of m, treating null as 0.
func (r *Record) ValueOrZero(m Metric) float64 {
	v, _ := r.Value(m)
	return v
}

// Ptr returns a pointer to the value of m, or nil when it is null.
func (r *Record) Ptr(m Metric) *float64 {
	v, ok := r.Value(m)
	if !ok {
		return nil
	}
	return &v
}

// ComponentTotal sums the components of one kind and reports whether any existed.
func (r *Record) ComponentTotal(kind ComponentKind) (float64, bool) {
	if r == nil {
		return 0, false
	}
	var total float64
	found := false
	for _, c := range r.Components {
		if c.Kind == kind {
			total += c.Amount
			found = true
		}
	}
	return total, found
}

// IsActive reports whether the status reads as an active employee.
// A blank status is treated as active.
func (r *Record) IsActive() bool {
	switch strings.ToLower(strings.TrimSpace(r.Status)) {
	case "", "active", "a", "full_time", "part_time", "ft", "pt":
		return true
	}
	return false
}

// IsTerminated reports whether the status reads as separated from payroll.
func (r *Record) IsTerminated() bool {
	switch strings.ToLower(strings.TrimSpace(r.Status)) {
	case "terminated", "term", "t", "inactive", "separated", "deceased":
		return true
	}
	return false
}

// ParseAmount coerces an uploaded cell into a value. Blank and non-numeric
// input yields ok=false (null) rather than an error. Currency symbols,
// thousands separators and accounting-style parentheses are accepted.
func ParseAmount(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if strings.HasSuffix(s, "-") {
		negative = !negative
		s = strings.TrimSuffix(s, "-")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// FromRaw builds a Record from a header→cell map. Unknown headers are ignored
// and non-numeric metric cells are dropped to null.
func FromRaw(row map[string]string) Record {
	rec := Record{Values: make(map[Metric]float64)}
	for header, cell := range row {
		key := strings.ToLower(strings.TrimSpace(header))
		switch key {
		case "employee_id", "employee id", "emp_id", "id":
			rec.EmployeeID = strings.TrimSpace(cell)
			continue
		case "name", "employee_name":
			rec.Name = strings.TrimSpace(cell)
			continue
		case "status":
			rec.Status = strings.TrimSpace(cell)
			continue
		case "pay_group":
			rec.PayGroup = strings.TrimSpace(cell)
			continue
		case "pay_frequency", "frequency":
			rec.PayFrequency = strings.TrimSpace(cell)
			continue
		case "department", "dept":
			rec.Department = strings.TrimSpace(cell)
			continue
		case "work_state", "state":
			rec.WorkState = strings.ToUpper(strings.TrimSpace(cell))
			continue
		case "period_start":
			rec.PeriodStart = strings.TrimSpace(cell)
			continue
		case "period_end":
			rec.PeriodEnd = strings.TrimSpace(cell)
			continue
		}
		m, ok := ResolveField(header)
		if !ok {
			continue
		}
		if v, ok := ParseAmount(cell); ok {
			rec.Values[m] = v
		}
	}
	return rec
}
