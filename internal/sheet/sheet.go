// Package sheet reads certificate batches from XLSX workbooks and writes
// batch reports back to XLSX.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"coagen/internal/coa"

	"github.com/xuri/excelize/v2"
)

// Input column headers. Matching is exact and case-sensitive.
const (
	ColCode         = "Code"
	ColDate         = "Date"
	ColBatchNo      = "Batch No"
	ColMoisture     = "Moisture"
	ColPH           = "pH"
	ColMesh200      = "200 Mesh"
	ColViscosity2H  = "Viscosity 2H"
	ColViscosity24H = "Viscosity 24H"
)

// Columns lists the required input columns in their conventional order.
var Columns = []string{ColCode, ColDate, ColBatchNo, ColMoisture, ColPH, ColMesh200, ColViscosity2H, ColViscosity24H}

var (
	// ErrMissingColumn is returned when the header row lacks a required column.
	ErrMissingColumn = errors.New("missing column")
	// ErrEmptyWorkbook is returned for a workbook with no header row.
	ErrEmptyWorkbook = errors.New("workbook has no rows")
)

// ReadRecords parses the first sheet of an XLSX workbook. The first row is
// the header; every later row that is not blank becomes a coa.Row numbered
// from 1. Rows whose moisture is not a number are returned as skips.
// Columns beyond the required ones are carried in Record.Extra under their
// header text.
func ReadRecords(r io.Reader) ([]coa.Row, []coa.Skip, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, ErrEmptyWorkbook
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		if _, dup := index[h]; !dup && h != "" {
			index[h] = i
		}
	}
	var missing []string
	for _, c := range Columns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	var out []coa.Row
	var skips []coa.Skip
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		get := func(col string) string {
			j := index[col]
			if j >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[j])
		}

		num := i + 1
		rec := coa.Record{
			Code:         get(ColCode),
			Date:         get(ColDate),
			BatchNo:      get(ColBatchNo),
			PH:           get(ColPH),
			Mesh200:      get(ColMesh200),
			Viscosity2H:  get(ColViscosity2H),
			Viscosity24H: get(ColViscosity24H),
		}
		m, err := ParseMoisture(get(ColMoisture))
		if err != nil {
			skips = append(skips, coa.Skip{Row: num, Code: rec.Code, Batch: rec.BatchNo, Reason: err.Error()})
			continue
		}
		rec.Moisture = m
		rec.Extra = extras(rows[0], cells)
		out = append(out, coa.Row{Number: num, Record: rec})
	}
	return out, skips, nil
}

// ParseMoisture accepts a number with an optional trailing percent sign.
func ParseMoisture(s string) (float64, error) {
	v := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if v == "" {
		return 0, errors.New("moisture is empty")
	}
	m, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("moisture %q is not a number", s)
	}
	return m, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func extras(header, cells []string) map[string]string {
	required := make(map[string]bool, len(Columns))
	for _, c := range Columns {
		required[c] = true
	}
	var out map[string]string
	for i, h := range header {
		if h == "" || required[h] || i >= len(cells) || strings.TrimSpace(cells[i]) == "" {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[h] = strings.TrimSpace(cells[i])
	}
	return out
}
