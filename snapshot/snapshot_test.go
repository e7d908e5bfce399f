package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/liamcoop/payrollrisk/payroll"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeWorkbook(t *testing.T, name string, sheets map[string][][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for sheet, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", sheet))
			first = false
		} else {
			_, err := f.NewSheet(sheet)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		}
	}

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestFormatOf(t *testing.T) {
	tests := map[string]Format{
		"run.json": FormatJSON,
		"run.YAML": FormatYAML,
		"run.yml":  FormatYAML,
		"run.xlsx": FormatXLSX,
		"run.csv":  FormatCSV,
	}
	for path, want := range tests {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatOf("run.txt")
	assert.Error(t, err)
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "run.json", `{
		"baseline": [{"employee_id": "E1", "values": {"net_pay": 1000, "gross_pay": 1500}}],
		"current":  [{"employee_id": "E1", "values": {"net_pay": 900}}]
	}`)

	data, err := Load(path)
	require.NoError(t, err)
	require.Len(t, data.Baseline, 1)
	require.Len(t, data.Current, 1)
	assert.Equal(t, 1500.0, data.Baseline[0].Values[payroll.GrossPay])
	_, ok := data.Current[0].Value(payroll.GrossPay)
	assert.False(t, ok)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "run.yaml", `
baseline:
  - employee_id: E1
    pay_frequency: biweekly
    values:
      net_pay: 1000
current:
  - employee_id: E1
    pay_frequency: biweekly
    values:
      net_pay: -50
`)

	data, err := Load(path)
	require.NoError(t, err)
	require.Len(t, data.Current, 1)
	assert.Equal(t, "biweekly", data.Current[0].PayFrequency)
	assert.Equal(t, -50.0, data.Current[0].Values[payroll.NetPay])
}

func TestLoadWorkbook(t *testing.T) {
	path := writeWorkbook(t, "run.xlsx", map[string][][]any{
		"Baseline": {
			{"Employee ID", "Gross", "Net", "State"},
			{"E1", 2000, 1500, "ca"},
			{"E2", 1000, "n/a", "NY"},
		},
		"Current": {
			{"Employee ID", "Gross", "Net", "State"},
			{"E1", 2100, "$1,560.00", "CA"},
			{},
			{"E2", 1000},
		},
	})

	data, err := Load(path)
	require.NoError(t, err)
	require.Len(t, data.Baseline, 2)
	require.Len(t, data.Current, 2)

	e1 := data.Baseline[0]
	assert.Equal(t, "E1", e1.EmployeeID)
	assert.Equal(t, "CA", e1.WorkState)
	assert.Equal(t, 2000.0, e1.Values[payroll.GrossPay])

	_, ok := data.Baseline[1].Value(payroll.NetPay)
	assert.False(t, ok, "non-numeric cell should be null")

	assert.Equal(t, 1560.0, data.Current[0].Values[payroll.NetPay])
	_, ok = data.Current[1].Value(payroll.NetPay)
	assert.False(t, ok, "short row should leave trailing fields null")
}

func TestLoadWorkbookMissingSheet(t *testing.T) {
	path := writeWorkbook(t, "run.xlsx", map[string][][]any{
		"Baseline": {{"employee_id", "net_pay"}, {"E1", 100}},
	})

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadPair(t *testing.T) {
	baseline := writeFile(t, "baseline.csv", "employee_id,net_pay,fed_tax\nE1,1000,120\nE2,800,90\n")
	current := writeWorkbook(t, "current.xlsx", map[string][][]any{
		"Sheet1": {{"employee_id", "net_pay", "fed_tax"}, {"E1", 1000, 180}},
	})

	data, err := LoadPair(baseline, current)
	require.NoError(t, err)
	require.Len(t, data.Baseline, 2)
	require.Len(t, data.Current, 1)
	assert.Equal(t, 120.0, data.Baseline[0].Values[payroll.FederalIncomeTax])
	assert.Equal(t, 180.0, data.Current[0].Values[payroll.FederalIncomeTax])
}

func TestLoadCSVNeedsPair(t *testing.T) {
	path := writeFile(t, "run.csv", "employee_id,net_pay\nE1,1\n")
	_, err := Load(path)
	assert.Error(t, err)
}
