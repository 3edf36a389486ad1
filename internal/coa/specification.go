package coa

import "coagen/internal/composition"

// Specification is the printable specification sheet for one certificate.
type Specification struct {
	Title        string
	Header       []Entry
	Organoleptic []Entry
	Parameters   []Parameter
}

// Entry is a label/value line.
type Entry struct {
	Label string
	Value string
}

// Parameter is one row of the parameter table: the product specification
// and the measured or derived result.
type Parameter struct {
	Name   string
	Spec   string
	Result string
}

// NewSpecification builds the sheet for rec. Header and result values the
// record does not measure are taken from rec.Extra under the label shown
// on the sheet, and are blank when absent.
func NewSpecification(rec Record, c composition.Components) Specification {
	f := Fields(rec, c)
	extra := func(label string) string { return rec.Extra[label] }

	return Specification{
		Title: "CERTIFICATE OF ANALYSIS",
		Header: []Entry{
			{"Customer", extra("Customer")},
			{"Product", rec.Code},
			{"Date", rec.Date},
			{"Batch No.", rec.BatchNo},
			{"Best Before", f[FieldBestBefore]},
			{"Invoice No.", extra("Invoice No.")},
			{"PO No.", extra("PO No.")},
		},
		Organoleptic: []Entry{
			{"Appearance/Colour", "Cream/White Powder"},
			{"Odour", "Natural"},
			{"Taste", "Natural"},
		},
		Parameters: []Parameter{
			{"Gum Content (%)", "more than 80%", f[FieldGumContent]},
			{"Moisture (%)", "less than 12%", f[FieldMoisture]},
			{"Protein (%)", "less than 5%", f[FieldProtein]},
			{"ASH Content (%)", "less than 1%", f[FieldAsh]},
			{"AIR (%)", "less than 6%", f[FieldAIR]},
			{"Fat (%)", "less than 1%", f[FieldFat]},
			{"pH", "5.5 - 7.0", f[FieldPH]},
			{"Arsenic", "less than 3.0 mg/kg", extra("Arsenic")},
			{"Lead", "less than 2.0 mg/kg", extra("Lead")},
			{"Heavy Metals", "less than 1.0 mg/kg", extra("Heavy Metals")},
			{"Through 100 Mesh", "99%", extra("Through 100 Mesh")},
			{"Through 200 Mesh", "95%-99%", f[FieldMesh200]},
			{"Viscosity 2H", "", f[FieldViscosity2H]},
			{"Viscosity 24H", "", f[FieldViscosity24H]},
			{"APC/gm", "less than 5000/gm", extra("APC/gm")},
			{"Yeast & Mould", "less than 500/gm", extra("Yeast & Mould")},
			{"Coliform", "Negative", extra("Coliform")},
			{"Ecoli", "Negative", extra("Ecoli")},
			{"Salmonella", "Negative", extra("Salmonella")},
		},
	}
}
