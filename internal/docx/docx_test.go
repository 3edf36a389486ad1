package docx_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"coagen/internal/docx"
	"coagen/internal/testutil"

	"github.com/google/go-cmp/cmp"
)

func ptr[T any](v T) *T { return &v }

func parse(t *testing.T, body string, extra map[string]string) *docx.Document {
	t.Helper()
	doc, err := docx.Parse(testutil.BuildDocx(t, body, extra))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func texts(part docx.Part) []string {
	var out []string
	part.EachParagraph(func(p docx.Paragraph) { out = append(out, p.Text()) })
	return out
}

func TestParagraphTextJoinsRuns(t *testing.T) {
	body := testutil.Para(
		testutil.Run("", "Batch: "),
		`<w:hyperlink r:id="rId9">`+testutil.Run("", "{{BATCH")+`</w:hyperlink>`,
		testutil.Run("<w:b/>", "_NO}}"),
	)
	doc := parse(t, body, nil)

	paras := doc.Body().Paragraphs()
	if len(paras) != 1 {
		t.Fatalf("expected 1 paragraph, got %d", len(paras))
	}
	if got := len(paras[0].Runs()); got != 3 {
		t.Errorf("expected 3 runs, got %d", got)
	}
	if got := paras[0].Text(); got != "Batch: {{BATCH_NO}}" {
		t.Errorf("Text() = %q", got)
	}
}

func TestEachParagraphOrder(t *testing.T) {
	body := testutil.Para(testutil.Run("", "first")) +
		testutil.Table(
			[]string{testutil.Para(testutil.Run("", "r1c1")), testutil.Para(testutil.Run("", "r1c2"))},
			[]string{testutil.Para(testutil.Run("", "r2c1")) + testutil.Table([]string{testutil.Para(testutil.Run("", "nested"))}), testutil.Para(testutil.Run("", "r2c2"))},
		) +
		testutil.Para(testutil.Run("", "last"))
	doc := parse(t, body, nil)

	want := []string{"first", "last", "r1c1", "r1c2", "r2c1", "nested", "r2c2"}
	if diff := cmp.Diff(want, texts(doc.Body())); diff != "" {
		t.Errorf("paragraph order mismatch (-want +got):\n%s", diff)
	}

	blocks := doc.Body().Blocks()
	if len(blocks) != 3 || blocks[0].Paragraph == nil || blocks[1].Table == nil || blocks[2].Paragraph == nil {
		t.Errorf("Blocks() did not keep document order: %+v", blocks)
	}
}

func TestReadStyle(t *testing.T) {
	rpr := `<w:rFonts w:ascii="Arial" w:hAnsi="Arial"/><w:b/><w:i w:val="0"/><w:color w:val="1F3864"/><w:sz w:val="24"/><w:u w:val="double"/>`
	doc := parse(t, testutil.Para(testutil.Run(rpr, "x")), nil)

	got := doc.Body().Paragraphs()[0].Runs()[0].Style()
	want := docx.Style{
		FontFamily:     ptr("Arial"),
		Size:           ptr(12.0),
		Bold:           ptr(true),
		Italic:         ptr(false),
		Underline:      ptr(true),
		UnderlineStyle: "double",
		Color:          &docx.RGB{R: 0x1F, G: 0x38, B: 0x64},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Style() mismatch (-want +got):\n%s", diff)
	}
}

func TestSetStyleRoundTrip(t *testing.T) {
	doc := parse(t, testutil.Para(testutil.Run(`<w:rStyle w:val="Strong"/><w:b/>`, "x")), nil)
	run := doc.Body().Paragraphs()[0].Runs()[0]

	want := docx.Style{
		FontFamily: ptr("Calibri"),
		Size:       ptr(10.5),
		Italic:     ptr(true),
		Underline:  ptr(false),
		Color:      &docx.RGB{R: 255},
	}
	run.SetStyle(want)

	reparsed := reparse(t, doc)
	got := reparsed.Body().Paragraphs()[0].Runs()[0].Style()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("style after save mismatch (-want +got):\n%s", diff)
	}

	xml := mainXML(t, reparsed)
	if !strings.Contains(xml, `<w:rPr><w:rStyle w:val="Strong"/><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri"/><w:i/><w:color w:val="FF0000"/><w:sz w:val="21"/><w:u w:val="none"/></w:rPr>`) {
		t.Errorf("rPr children not in schema order:\n%s", xml)
	}
}

func TestSetStyleReplacesThemeFonts(t *testing.T) {
	rPr := `<w:rFonts w:asciiTheme="minorHAnsi" w:hAnsiTheme="minorHAnsi" w:eastAsia="MS Mincho"/>`
	doc := parse(t, testutil.Para(testutil.Run(rPr, "x")), nil)
	run := doc.Body().Paragraphs()[0].Runs()[0]

	run.SetStyle(docx.Style{FontFamily: ptr("Arial")})

	xml := mainXML(t, reparse(t, doc))
	if strings.Contains(xml, "asciiTheme") || strings.Contains(xml, "hAnsiTheme") {
		t.Errorf("theme font attributes kept:\n%s", xml)
	}
	if !strings.Contains(xml, `<w:rFonts w:eastAsia="MS Mincho" w:ascii="Arial" w:hAnsi="Arial"/>`) {
		t.Errorf("explicit font not written:\n%s", xml)
	}
}

func TestSetTextSpecialCharacters(t *testing.T) {
	doc := parse(t, testutil.Para(testutil.Run("", "old")), nil)
	run := doc.Body().Paragraphs()[0].Runs()[0]
	run.SetText(" a<b & c\td\ne ")

	reparsed := reparse(t, doc)
	if got := reparsed.Body().Paragraphs()[0].Text(); got != " a<b & c\td\ne " {
		t.Errorf("Text() after save = %q", got)
	}
	xml := mainXML(t, reparsed)
	if !strings.Contains(xml, `<w:t xml:space="preserve"> a&lt;b &amp; c</w:t><w:tab/>`) {
		t.Errorf("unexpected run markup:\n%s", xml)
	}
}

func TestParagraphSetTextCollapsesRuns(t *testing.T) {
	doc := parse(t, testutil.Para(testutil.Run("<w:b/>", "Hello "), testutil.Run("<w:i/>", "World")), nil)
	p := doc.Body().Paragraphs()[0]
	p.SetText("Goodbye")

	runs := p.Runs()
	if len(runs) != 1 {
		t.Fatalf("expected a single run, got %d", len(runs))
	}
	if runs[0].Text() != "Goodbye" {
		t.Errorf("Text() = %q", runs[0].Text())
	}
	if b := runs[0].Style().Bold; b == nil || !*b {
		t.Errorf("first run lost its formatting: %+v", runs[0].Style())
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := parse(t, testutil.Para(testutil.Run("", "template")), nil)
	c := orig.Clone()
	c.Body().Paragraphs()[0].Runs()[0].SetText("changed")

	if got := orig.Body().Paragraphs()[0].Text(); got != "template" {
		t.Errorf("original modified through clone: %q", got)
	}
}

func TestWritePreservesOtherEntries(t *testing.T) {
	styles := `<?xml version="1.0"?><w:styles xmlns:w="x"><w:style w:styleId="Normal"/></w:styles>`
	header := testutil.HeaderXML(testutil.Para(testutil.Run("", "Batch {{BATCH_NO}}")))
	doc := parse(t, testutil.Para(testutil.Run("", "body")), map[string]string{
		"word/styles.xml":  styles,
		"word/header1.xml": header,
	})

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
		if f.Name == "word/styles.xml" {
			rc, _ := f.Open()
			got, _ := io.ReadAll(rc)
			rc.Close()
			if string(got) != styles {
				t.Errorf("styles.xml changed:\n%s", got)
			}
		}
	}
	want := []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml", "word/header1.xml", "word/styles.xml"}
	if diff := cmp.Diff(want, sortedCopy(names)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}

	hf := doc.HeadersFooters()
	if len(hf) != 1 || hf[0].Name != "word/header1.xml" {
		t.Fatalf("HeadersFooters() = %+v", hf)
	}
	if got := texts(hf[0]); len(got) != 1 || got[0] != "Batch {{BATCH_NO}}" {
		t.Errorf("header text = %q", got)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := docx.Open(filepath.Join(t.TempDir(), "COA 999.docx"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestReadRejectsArchiveWithoutBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/styles.xml")
	w.Write([]byte("<x/>"))
	zw.Close()

	_, err := docx.Parse(buf.Bytes())
	if !errors.Is(err, docx.ErrNoBody) {
		t.Fatalf("expected ErrNoBody, got %v", err)
	}
}

func TestSaveAndOpen(t *testing.T) {
	doc := parse(t, testutil.Para(testutil.Run("", "saved")), nil)
	path := filepath.Join(t.TempDir(), "out.docx")
	if err := doc.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := docx.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if txt := got.Body().Paragraphs()[0].Text(); txt != "saved" {
		t.Errorf("Text() = %q", txt)
	}
}

func reparse(t *testing.T, doc *docx.Document) *docx.Document {
	t.Helper()
	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	out, err := docx.Parse(data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	return out
}

func mainXML(t *testing.T, doc *docx.Document) string {
	t.Helper()
	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name == docx.MainPart {
			rc, _ := f.Open()
			defer rc.Close()
			b, _ := io.ReadAll(rc)
			return string(b)
		}
	}
	t.Fatal("main part missing")
	return ""
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
