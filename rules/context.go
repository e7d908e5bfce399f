package rules

import (
	"maps"
	"slices"

	"github.com/liamcoop/payrollrisk/delta"
	"github.com/liamcoop/payrollrisk/payroll"
)

// Context is what a rule sees when it is evaluated. Employee-scoped rules get
// both records and Metric set to payroll.EmployeeLevel; delta-scoped rules
// also get the change under evaluation.
type Context struct {
	EmployeeID string
	Current    *payroll.Record
	Baseline   *payroll.Record
	Metric     payroll.Metric
	Delta      *delta.Delta
	Population *Population
}

// Cur returns the current value of m.
func (c *Context) Cur(m payroll.Metric) (float64, bool) { return c.Current.Value(m) }

// Base returns the baseline value of m.
func (c *Context) Base(m payroll.Metric) (float64, bool) { return c.Baseline.Value(m) }

// Continuing reports whether the employee is present in both runs.
func (c *Context) Continuing() bool { return c.Current != nil && c.Baseline != nil }

// Percentage is the percentage of the delta under evaluation, if any.
func (c *Context) Percentage() *float64 {
	if c.Delta == nil {
		return nil
	}
	return c.Delta.DeltaPercentage
}

// Absolute is the absolute change of the delta under evaluation, if any.
func (c *Context) Absolute() *float64 {
	if c.Delta == nil {
		return nil
	}
	return c.Delta.DeltaAbsolute
}

// Population holds dataset-wide facts that cross-employee rules compare an
// individual employee against. It is built once per evaluation and only read
// afterwards.
type Population struct {
	currentByID  map[string]*payroll.Record
	baselineByID map[string]*payroll.Record
	currentSeen  map[string]int
	baselineSeen map[string]int

	currentStates  map[string]float64
	baselineStates map[string]float64

	periodMode string

	CurrentHeadcount  int
	BaselineHeadcount int
	CurrentNetTotal   float64
	BaselineNetTotal  float64
}

// NewPopulation indexes data. Lookups by id return the first occurrence.
func NewPopulation(data payroll.Dataset) *Population {
	p := &Population{
		currentByID:    make(map[string]*payroll.Record, len(data.Current)),
		baselineByID:   make(map[string]*payroll.Record, len(data.Baseline)),
		currentSeen:    make(map[string]int, len(data.Current)),
		baselineSeen:   make(map[string]int, len(data.Baseline)),
		currentStates:  make(map[string]float64),
		baselineStates: make(map[string]float64),
	}

	periods := make(map[string]int)
	for i := range data.Current {
		r := &data.Current[i]
		id := r.ID()
		p.currentSeen[id]++
		if p.currentSeen[id] > 1 {
			continue
		}
		p.currentByID[id] = r
		p.CurrentHeadcount++
		p.CurrentNetTotal += r.ValueOrZero(payroll.NetPay)
		if r.WorkState != "" {
			p.currentStates[r.WorkState] += r.ValueOrZero(payroll.StateIncomeTax)
		}
		if r.PeriodStart != "" || r.PeriodEnd != "" {
			periods[r.PeriodStart+"|"+r.PeriodEnd]++
		}
	}
	for i := range data.Baseline {
		r := &data.Baseline[i]
		id := r.ID()
		p.baselineSeen[id]++
		if p.baselineSeen[id] > 1 {
			continue
		}
		p.baselineByID[id] = r
		p.BaselineHeadcount++
		p.BaselineNetTotal += r.ValueOrZero(payroll.NetPay)
		if r.WorkState != "" {
			p.baselineStates[r.WorkState] += r.ValueOrZero(payroll.StateIncomeTax)
		}
	}

	best := 0
	for period, n := range periods {
		// ties resolve to the lexically smaller period so the mode is stable
		if n > best || (n == best && period < p.periodMode) {
			best = n
			p.periodMode = period
		}
	}
	return p
}

// Current returns the first current record with id, or nil.
func (p *Population) Current(id string) *payroll.Record { return p.currentByID[id] }

// Baseline returns the first baseline record with id, or nil.
func (p *Population) Baseline(id string) *payroll.Record { return p.baselineByID[id] }

// CurrentOccurrences counts how many current records carry id.
func (p *Population) CurrentOccurrences(id string) int { return p.currentSeen[id] }

// BaselineOccurrences counts how many baseline records carry id.
func (p *Population) BaselineOccurrences(id string) int { return p.baselineSeen[id] }

// PeriodMode is the most common "start|end" pay period in the current run.
func (p *Population) PeriodMode() string { return p.periodMode }

// StateTaxShare returns the share of total state income tax withheld for
// state in the current and baseline runs.
func (p *Population) StateTaxShare(state string) (current, baseline float64) {
	return share(p.currentStates, state), share(p.baselineStates, state)
}

func share(totals map[string]float64, key string) float64 {
	var sum float64
	for _, k := range slices.Sorted(maps.Keys(totals)) {
		sum += totals[k]
	}
	if sum == 0 {
		return 0
	}
	return totals[key] / sum
}
