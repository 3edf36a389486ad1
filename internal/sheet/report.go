package sheet

import (
	"fmt"
	"io"

	"coagen/internal/coa"

	"github.com/xuri/excelize/v2"
)

// ReportName is the download name of a batch report.
const ReportName = "coa_batch_report.xlsx"

var (
	generatedHeaders = []string{"Row", "Code", "Batch No", "Date", "Best Before", "Moisture",
		"Gum Content", "Protein", "ASH Content", "AIR", "Fat", "File"}
	skippedHeaders = []string{"Row", "Code", "Batch No", "Reason"}
)

// WriteReport writes a workbook with a "Generated" sheet listing each
// certificate and its derived components and a "Skipped" sheet listing
// rejected rows with their reason.
func WriteReport(w io.Writer, res *coa.BatchResult) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D3D3D3"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	var generated [][]any
	for _, g := range res.Generated {
		generated = append(generated, []any{
			g.Row, g.Record.Code, g.Record.BatchNo, g.Record.Date, g.Fields[coa.FieldBestBefore], g.Record.Moisture,
			g.Components.GumContent, g.Components.Protein, g.Components.Ash, g.Components.AIR, g.Components.Fat,
			g.FileName,
		})
	}
	var skipped [][]any
	for _, s := range res.Skipped {
		skipped = append(skipped, []any{s.Row, s.Code, s.Batch, s.Reason})
	}

	if err := writeSheet(f, "Generated", generatedHeaders, generated, headerStyle); err != nil {
		return err
	}
	if err := writeSheet(f, "Skipped", skippedHeaders, skipped, headerStyle); err != nil {
		return err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex("Generated"); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, headers []string, data [][]any, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(name, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(name, cell, cell, headerStyle); err != nil {
			return err
		}
	}
	for r, row := range data {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(name, cell, v); err != nil {
				return err
			}
		}
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetColWidth(name, "A", last, 15)
}

// WriteTemplate writes an empty input workbook with the required header
// row, for operators starting a new batch.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for i, h := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue("Sheet1", cell, h)
		f.SetCellStyle("Sheet1", cell, cell, style)
	}
	last, _ := excelize.ColumnNumberToName(len(Columns))
	f.SetColWidth("Sheet1", "A", last, 15)
	return f.Write(w)
}
