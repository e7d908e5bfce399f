// Package payroll holds the canonical payroll schema every uploaded record is
// normalized to before two runs are compared.
package payroll

import "strings"

// Metric names one numeric canonical field.
type Metric string

// EmployeeLevel is the sentinel metric carried by employee-scoped rule
// evaluations that are not tied to a single changed field.
const EmployeeLevel Metric = "__employee__"

// Category groups canonical fields the way the review UI presents them.
type Category string

const (
	CategoryIdentity    Category = "identity"
	CategoryHours       Category = "hours"
	CategoryEarnings    Category = "earnings"
	CategoryTaxes       Category = "taxes"
	CategoryDeductions  Category = "deductions"
	CategoryFundamental Category = "fundamental"
	CategoryCross       Category = "cross"
)

// Hours
const (
	RegularHours  Metric = "regular_hours"
	OvertimeHours Metric = "overtime_hours"
	PTOHours      Metric = "pto_hours"
	TotalHours    Metric = "total_hours"
)

// Earnings
const (
	GrossPay      Metric = "gross_pay"
	RegularPay    Metric = "regular_pay"
	OvertimePay   Metric = "overtime_pay"
	BonusPay      Metric = "bonus_pay"
	CommissionPay Metric = "commission_pay"
	OtherEarnings Metric = "other_earnings"
)

// Taxes
const (
	FederalIncomeTax  Metric = "federal_income_tax"
	StateIncomeTax    Metric = "state_income_tax"
	LocalTax          Metric = "local_tax"
	SocialSecurityTax Metric = "social_security_tax"
	MedicareTax       Metric = "medicare_tax"
	TotalTaxes        Metric = "total_taxes"
)

// Deductions
const (
	PretaxDeductions   Metric = "pretax_deductions"
	BenefitsDeductions Metric = "benefits_deductions"
	Garnishments       Metric = "garnishments"
	PostTaxDeductions  Metric = "post_tax_deductions"
	TotalDeductions    Metric = "total_deductions"
)

// Fundamental pay
const (
	NetPay       Metric = "net_pay"
	HourlyRate   Metric = "hourly_rate"
	AnnualSalary Metric = "annual_salary"
)

type fieldDef struct {
	metric   Metric
	category Category
	label    string
}

// registry is the fixed field order used for diffing and output ordering.
var registry = []fieldDef{
	{RegularHours, CategoryHours, "Regular hours"},
	{OvertimeHours, CategoryHours, "Overtime hours"},
	{PTOHours, CategoryHours, "PTO hours"},
	{TotalHours, CategoryHours, "Total hours"},

	{GrossPay, CategoryEarnings, "Gross pay"},
	{RegularPay, CategoryEarnings, "Regular pay"},
	{OvertimePay, CategoryEarnings, "Overtime pay"},
	{BonusPay, CategoryEarnings, "Bonus pay"},
	{CommissionPay, CategoryEarnings, "Commission pay"},
	{OtherEarnings, CategoryEarnings, "Other earnings"},

	{FederalIncomeTax, CategoryTaxes, "Federal income tax"},
	{StateIncomeTax, CategoryTaxes, "State income tax"},
	{LocalTax, CategoryTaxes, "Local tax"},
	{SocialSecurityTax, CategoryTaxes, "Social Security tax"},
	{MedicareTax, CategoryTaxes, "Medicare tax"},
	{TotalTaxes, CategoryTaxes, "Total taxes"},

	{PretaxDeductions, CategoryDeductions, "Pre-tax deductions"},
	{BenefitsDeductions, CategoryDeductions, "Benefits deductions"},
	{Garnishments, CategoryDeductions, "Garnishments"},
	{PostTaxDeductions, CategoryDeductions, "Post-tax deductions"},
	{TotalDeductions, CategoryDeductions, "Total deductions"},

	{NetPay, CategoryFundamental, "Net pay"},
	{HourlyRate, CategoryFundamental, "Hourly rate"},
	{AnnualSalary, CategoryFundamental, "Annual salary"},
}

var (
	metricIndex    = make(map[Metric]int, len(registry))
	metricCategory = make(map[Metric]Category, len(registry))
	metricLabel    = make(map[Metric]string, len(registry))
)

func init() {
	for i, f := range registry {
		metricIndex[f.metric] = i
		metricCategory[f.metric] = f.category
		metricLabel[f.metric] = f.label
	}
}

// aliases maps common upload headers onto canonical names. Fuzzy matching
// lives upstream in the column mapper; these are exact spellings only.
var aliases = map[string]Metric{
	"gross":           GrossPay,
	"gross_wages":     GrossPay,
	"net":             NetPay,
	"take_home":       NetPay,
	"reg_hours":       RegularHours,
	"ot_hours":        OvertimeHours,
	"ot_pay":          OvertimePay,
	"bonus":           BonusPay,
	"commission":      CommissionPay,
	"fed_tax":         FederalIncomeTax,
	"fit":             FederalIncomeTax,
	"state_tax":       StateIncomeTax,
	"sit":             StateIncomeTax,
	"social_security": SocialSecurityTax,
	"oasdi":           SocialSecurityTax,
	"medicare":        MedicareTax,
	"taxes":           TotalTaxes,
	"401k":            PretaxDeductions,
	"benefits":        BenefitsDeductions,
	"garnishment":     Garnishments,
	"deductions":      TotalDeductions,
	"rate":            HourlyRate,
	"pay_rate":        HourlyRate,
	"salary":          AnnualSalary,
}

// Metrics returns every numeric canonical metric in registry order.
func Metrics() []Metric {
	out := make([]Metric, len(registry))
	for i, f := range registry {
		out[i] = f.metric
	}
	return out
}

// IsMetric reports whether m is a registered numeric metric.
func IsMetric(m Metric) bool {
	_, ok := metricIndex[m]
	return ok
}

// Order returns the registry position of m, or -1 when m is unknown.
func Order(m Metric) int {
	if i, ok := metricIndex[m]; ok {
		return i
	}
	return -1
}

// CategoryOf returns the category of a registered metric.
func CategoryOf(m Metric) Category {
	return metricCategory[m]
}

// Label returns a human readable name for m.
func Label(m Metric) string {
	if l, ok := metricLabel[m]; ok {
		return l
	}
	if m == EmployeeLevel {
		return "Employee"
	}
	return string(m)
}

// ResolveField maps a header (canonical name or known alias) to a metric.
func ResolveField(name string) (Metric, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if m := Metric(key); IsMetric(m) {
		return m, true
	}
	m, ok := aliases[key]
	return m, ok
}
