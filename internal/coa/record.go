// Package coa turns certificate-of-analysis records into filled documents:
// it builds the field map for a record, resolves the product template,
// names the output file and runs single and batch generation.
package coa

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"coagen/internal/composition"
	"coagen/internal/fill"
)

// Placeholder names filled for every certificate.
const (
	FieldDate         = "DATE"
	FieldBatchNo      = "BATCH_NO"
	FieldBestBefore   = "BEST_BEFORE"
	FieldMoisture     = "MOISTURE"
	FieldPH           = "PH"
	FieldMesh200      = "MESH_200"
	FieldViscosity2H  = "VISCOSITY_2H"
	FieldViscosity24H = "VISCOSITY_24H"
	FieldGumContent   = "GUM_CONTENT"
	FieldProtein      = "PROTEIN"
	FieldAsh          = "ASH_CONTENT"
	FieldAIR          = "AIR"
	FieldFat          = "FAT"
)

// NotAvailable is written when a derived value cannot be computed.
const NotAvailable = "N/A"

// Record is one certificate's measured input.
type Record struct {
	Code         string  `json:"code"`
	Date         string  `json:"date"`
	BatchNo      string  `json:"batch_no"`
	Moisture     float64 `json:"moisture"`
	PH           string  `json:"ph"`
	Mesh200      string  `json:"mesh_200"`
	Viscosity2H  string  `json:"viscosity_2h"`
	Viscosity24H string  `json:"viscosity_24h"`
	// Extra holds further placeholder values and specification sheet
	// results (for example "Customer" or "Lead"). Extra keys never
	// override the computed fields.
	Extra map[string]string `json:"extra,omitempty"`
}

// BestBefore returns the best-before month for a "Month YYYY" date: two
// years later, one month earlier, with the month upper-cased
// ("March 2024" gives "FEBRUARY 2026"). Any other input gives "N/A".
func BestBefore(date string) string {
	t, err := time.Parse("January 2006", strings.TrimSpace(date))
	if err != nil {
		return NotAvailable
	}
	bb := t.AddDate(2, -1, 0)
	return strings.ToUpper(bb.Format("January")) + " " + strconv.Itoa(bb.Year())
}

// Percent formats v with a percent sign using the shortest decimal form
// that keeps at least one fractional digit, so 10 reads "10.0%" and 9.25
// reads "9.25%".
func Percent(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s + "%"
}

// Fields builds the placeholder map for rec with the given components.
func Fields(rec Record, c composition.Components) fill.Fields {
	f := make(fill.Fields, 13+len(rec.Extra))
	for k, v := range rec.Extra {
		f[k] = v
	}
	f[FieldDate] = rec.Date
	f[FieldBatchNo] = rec.BatchNo
	f[FieldBestBefore] = BestBefore(rec.Date)
	f[FieldMoisture] = Percent(rec.Moisture)
	f[FieldPH] = rec.PH
	f[FieldMesh200] = rec.Mesh200 + "%"
	f[FieldViscosity2H] = rec.Viscosity2H
	f[FieldViscosity24H] = rec.Viscosity24H
	f[FieldGumContent] = fmt.Sprintf("%.2f%%", c.GumContent)
	f[FieldProtein] = fmt.Sprintf("%.2f%%", c.Protein)
	f[FieldAsh] = fmt.Sprintf("%.2f%%", c.Ash)
	f[FieldAIR] = fmt.Sprintf("%.2f%%", c.AIR)
	f[FieldFat] = fmt.Sprintf("%.2f%%", c.Fat)
	return f
}

// SafeName makes a batch number usable in a file name by replacing path
// separators and spaces with underscores.
func SafeName(batch string) string {
	return strings.NewReplacer("/", "_", `\`, "_", " ", "_").Replace(batch)
}

// TemplateName is the template file for a product code.
func TemplateName(code string) string {
	return "COA " + code + ".docx"
}

// OutputName is the generated file name for a record. Two records with the
// same batch and code share a name; the later one overwrites the earlier.
func OutputName(rec Record) string {
	return "COA-" + SafeName(rec.BatchNo) + "-" + rec.Code + ".docx"
}
