// Package report exports a processed review as an XLSX workbook.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/liamcoop/payrollrisk/classify"
	"github.com/liamcoop/payrollrisk/delta"
	"github.com/liamcoop/payrollrisk/payroll"
	"github.com/liamcoop/payrollrisk/review"
	"github.com/liamcoop/payrollrisk/rules"
)

const (
	summarySheet = "Summary"
	deltasSheet  = "Deltas"
)

var judgementHeader = []any{
	"Employee", "Rule", "Name", "Category", "Severity", "Confidence", "Metric", "Change %", "Reasoning",
}

var deltaHeader = []any{
	"Employee", "Metric", "Change", "Baseline", "Current", "Absolute", "Percent",
}

// SheetName is the worksheet a section is written to.
func SheetName(s classify.Section) string {
	switch s {
	case classify.Blockers:
		return "Blockers"
	case classify.HighRisk:
		return "High Risk"
	case classify.Compliance:
		return "Compliance"
	case classify.Volatility:
		return "Volatility"
	case classify.Systemic:
		return "Systemic"
	case classify.Noise:
		return "Noise"
	}
	return string(s)
}

// Build lays out the summary, one sheet per section and the deltas.
func Build(res *review.Result, deltas []delta.Delta) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeSummary(f, res); err != nil {
		f.Close()
		return nil, fmt.Errorf("summary: %w", err)
	}
	for _, section := range classify.All() {
		if err := writeSection(f, SheetName(section), res.Sections.Get(section)); err != nil {
			f.Close()
			return nil, fmt.Errorf("section %s: %w", section, err)
		}
	}
	if err := writeDeltas(f, deltas); err != nil {
		f.Close()
		return nil, fmt.Errorf("deltas: %w", err)
	}
	return f, nil
}

// WriteWorkbook writes the report workbook to w.
func WriteWorkbook(w io.Writer, res *review.Result, deltas []delta.Delta) error {
	f, err := Build(res, deltas)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, res *review.Result) error {
	rows := [][]any{
		{"Session", res.Session.ID},
		{"Tenant", res.Session.TenantID},
		{"Tier", string(res.Session.Tier)},
		{"Status", string(res.Verdict.Status)},
		{"Blockers", res.Verdict.BlockersCount},
		{"Reviews", res.Verdict.ReviewsCount},
		{"Info", res.Verdict.InfoCount},
		{"Metric changes", res.Volatility.Changes},
		{"Unbounded changes", res.Volatility.Unbounded},
		{"Median |change %|", res.Volatility.MedianPercent},
		{"P90 |change %|", res.Volatility.P90Percent},
		{"Max |change %|", res.Volatility.MaxPercent},
	}
	for _, section := range classify.All() {
		rows = append(rows, []any{SheetName(section), len(res.Sections.Get(section))})
	}
	return setRows(f, summarySheet, rows)
}

func writeSection(f *excelize.File, sheet string, judgements []rules.Judgement) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	rows := make([][]any, 0, len(judgements)+1)
	rows = append(rows, judgementHeader)
	for _, j := range judgements {
		rows = append(rows, []any{
			j.EmployeeID,
			j.RuleID,
			j.RuleName,
			string(j.Category),
			string(j.Severity),
			j.Confidence,
			payroll.Label(j.Delta.Metric),
			optional(j.DeltaPercentage),
			j.Reasoning,
		})
	}
	if err := setRows(f, sheet, rows); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func writeDeltas(f *excelize.File, deltas []delta.Delta) error {
	if _, err := f.NewSheet(deltasSheet); err != nil {
		return err
	}
	rows := make([][]any, 0, len(deltas)+1)
	rows = append(rows, deltaHeader)
	for _, d := range deltas {
		rows = append(rows, []any{
			d.EmployeeID,
			payroll.Label(d.Metric),
			string(d.ChangeType),
			optional(d.BaselineValue),
			optional(d.CurrentValue),
			optional(d.DeltaAbsolute),
			optional(d.DeltaPercentage),
		})
	}
	return setRows(f, deltasSheet, rows)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// optional leaves null values as empty cells.
func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
