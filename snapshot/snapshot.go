// Package snapshot reads payroll runs from files for offline review.
package snapshot

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/liamcoop/payrollrisk/payroll"
)

// Format is a snapshot file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported snapshot file type: %s", path)
}

// Load reads a dataset holding both runs. JSON and YAML files carry
// baseline and current keys; workbooks carry baseline and current sheets.
func Load(path string) (payroll.Dataset, error) {
	format, err := FormatOf(path)
	if err != nil {
		return payroll.Dataset{}, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return payroll.Dataset{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Decode(format, raw)
}

// Decode parses a dataset from raw bytes.
func Decode(format Format, raw []byte) (payroll.Dataset, error) {
	var data payroll.Dataset
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(raw, &data); err != nil {
			return data, fmt.Errorf("failed to decode JSON snapshot: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return data, fmt.Errorf("failed to decode YAML snapshot: %w", err)
		}
	case FormatXLSX:
		return decodeWorkbook(bytes.NewReader(raw))
	default:
		return data, fmt.Errorf("format %s cannot hold both runs; load each side with LoadPair", format)
	}
	return data, nil
}

// LoadPair reads the baseline and current runs from separate files.
func LoadPair(baselinePath, currentPath string) (payroll.Dataset, error) {
	baseline, err := LoadRecords(baselinePath)
	if err != nil {
		return payroll.Dataset{}, fmt.Errorf("baseline: %w", err)
	}
	current, err := LoadRecords(currentPath)
	if err != nil {
		return payroll.Dataset{}, fmt.Errorf("current: %w", err)
	}
	return payroll.Dataset{Baseline: baseline, Current: current}, nil
}

// LoadRecords reads one run. Tabular files use their header row as field
// names; workbooks are read from the first sheet.
func LoadRecords(path string) ([]payroll.Record, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var records []payroll.Record
	switch format {
	case FormatJSON:
		err = json.Unmarshal(raw, &records)
	case FormatYAML:
		err = yaml.Unmarshal(raw, &records)
	case FormatCSV:
		var rows [][]string
		rows, err = csv.NewReader(bytes.NewReader(raw)).ReadAll()
		if err == nil {
			records, err = fromRows(rows)
		}
	case FormatXLSX:
		records, err = readFirstSheet(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return records, nil
}

func decodeWorkbook(r io.Reader) (payroll.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return payroll.Dataset{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var data payroll.Dataset
	found := 0
	for _, sheet := range f.GetSheetList() {
		var dst *[]payroll.Record
		switch strings.ToLower(strings.TrimSpace(sheet)) {
		case "baseline":
			dst = &data.Baseline
		case "current":
			dst = &data.Current
		default:
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return data, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		if *dst, err = fromRows(rows); err != nil {
			return data, fmt.Errorf("sheet %s: %w", sheet, err)
		}
		found++
	}
	if found != 2 {
		return data, fmt.Errorf("workbook must contain baseline and current sheets")
	}
	return data, nil
}

func readFirstSheet(r io.Reader) ([]payroll.Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return fromRows(rows)
}

// fromRows maps a header row plus data rows onto records. Blank rows are
// skipped; short rows leave their trailing fields null.
func fromRows(rows [][]string) ([]payroll.Record, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header row")
	}
	headers := rows[0]

	records := make([]payroll.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		cells := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(row) {
				cells[h] = row[i]
			}
		}
		records = append(records, payroll.FromRaw(cells))
	}
	return records, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
