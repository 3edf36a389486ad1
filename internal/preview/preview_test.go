package preview_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"coagen/internal/coa"
	"coagen/internal/composition"
	"coagen/internal/docx"
	"coagen/internal/preview"
	"coagen/internal/testutil"
)

func parse(t *testing.T, body string) *docx.Document {
	t.Helper()
	doc, err := docx.Parse(testutil.BuildDocx(t, body, nil))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

const certBody = `<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Certificate of Analysis</w:t></w:r></w:p>` +
	`<w:p><w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">Batch: </w:t></w:r><w:r><w:t>B1 &lt;script&gt;</w:t></w:r></w:p>` +
	`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Parameter</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Result</w:t></w:r></w:p></w:tc></w:tr>` +
	`<w:tr><w:tc><w:p><w:r><w:t>Moisture</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:rPr><w:i/></w:rPr><w:t>10%</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`

func TestHTML(t *testing.T) {
	r := preview.New(nil)
	got := r.HTML(parse(t, certBody))

	for _, want := range []string{
		"<h1>Certificate of Analysis</h1>",
		"<p><strong>Batch: </strong>B1 &lt;script&gt;</p>",
		"<th>Parameter</th><th>Result</th>",
		"<td>Moisture</td><td><em>10%</em></td>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("HTML missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "<script>") {
		t.Errorf("unescaped markup in preview:\n%s", got)
	}
}

func TestMarkdown(t *testing.T) {
	r := preview.New(nil)
	got, err := r.Markdown(parse(t, certBody))
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	for _, want := range []string{"# Certificate of Analysis", "Batch:", "B1", "Moisture", "|"} {
		if !strings.Contains(got, want) {
			t.Errorf("Markdown missing %q:\n%s", want, got)
		}
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	_, err := preview.New(nil).Render(parse(t, certBody), "pdf")
	if !errors.Is(err, preview.ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestRenderFileMissing(t *testing.T) {
	if _, err := preview.New(nil).RenderFile(t.TempDir()+"/nope.docx", preview.FormatHTML); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRenderSheet(t *testing.T) {
	rec := coa.Record{Code: "101", Date: "March 2024", BatchNo: "B1", Moisture: 10, PH: "6.5",
		Extra: map[string]string{"Customer": "Acme & Sons"}}
	c, _ := composition.FixedBaseline{}.Compute(10)

	var buf bytes.Buffer
	if err := preview.RenderSheet(&buf, coa.NewSpecification(rec, c)); err != nil {
		t.Fatalf("RenderSheet: %v", err)
	}
	got := buf.String()
	for _, want := range []string{
		"<h1>CERTIFICATE OF ANALYSIS</h1>",
		"<dt>Customer:</dt><dd>Acme &amp; Sons</dd>",
		"<dt>Appearance/Colour:</dt><dd>Cream/White Powder</dd>",
		"<tr><td>Gum Content (%)</td><td>more than 80%</td><td>82.51%</td></tr>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("sheet missing %q", want)
		}
	}
}
