package preview

import (
	"fmt"
	"html/template"
	"io"

	"coagen/internal/coa"
)

var sheetTmpl = template.Must(template.New("sheet").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} {{range .Header}}{{if eq .Label "Batch No."}}{{.Value}}{{end}}{{end}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 2cm; color: #000; }
h1 { font-size: 16pt; text-align: center; }
h2 { font-size: 12pt; margin-top: 1.5em; }
dl { display: grid; grid-template-columns: 12em auto; row-gap: .3em; }
dt { font-weight: bold; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #000; padding: 4px 6px; text-align: left; }
th { background: #d3d3d3; }
@media print { body { margin: 1cm; } }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<dl>
{{range .Header}}<dt>{{.Label}}:</dt><dd>{{.Value}}</dd>
{{end}}</dl>
<h2>ORGANOLEPTIC ANALYSIS</h2>
<dl>
{{range .Organoleptic}}<dt>{{.Label}}:</dt><dd>{{.Value}}</dd>
{{end}}</dl>
<h2>PARAMETERS SPECIFICATIONS TEST RESULTS</h2>
<table>
<tr><th>Parameter</th><th>Specification</th><th>Test Result</th></tr>
{{range .Parameters}}<tr><td>{{.Name}}</td><td>{{.Spec}}</td><td>{{.Result}}</td></tr>
{{end}}</table>
</body>
</html>
`))

// RenderSheet writes the specification sheet as a printable HTML page.
func RenderSheet(w io.Writer, s coa.Specification) error {
	if err := sheetTmpl.Execute(w, s); err != nil {
		return fmt.Errorf("render sheet: %w", err)
	}
	return nil
}
