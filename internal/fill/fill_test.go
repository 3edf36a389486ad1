package fill_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"coagen/internal/docx"
	"coagen/internal/fill"
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

func bodyTexts(doc *docx.Document) []string {
	var out []string
	doc.Body().EachParagraph(func(p docx.Paragraph) { out = append(out, p.Text()) })
	return out
}

func runTexts(p docx.Paragraph) []string {
	var out []string
	for _, r := range p.Runs() {
		out = append(out, r.Text())
	}
	return out
}

func TestSplitTokenTakesFirstRunStyle(t *testing.T) {
	body := testutil.Para(
		testutil.Run(`<w:rFonts w:ascii="Arial" w:hAnsi="Arial"/><w:b/><w:sz w:val="24"/>`, "{{"),
		testutil.Run(`<w:i/>`, "NAME"),
		testutil.Run(`<w:u w:val="single"/>`, "}}"),
	)
	tpl := parse(t, body, nil)

	out, rep := fill.New(fill.Config{}).Apply(tpl, fill.Fields{"NAME": "Acme"})

	p := out.Body().Paragraphs()[0]
	if diff := cmp.Diff([]string{"Acme", "", ""}, runTexts(p)); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
	want := docx.Style{FontFamily: ptr("Arial"), Size: ptr(12.0), Bold: ptr(true)}
	if diff := cmp.Diff(want, p.Runs()[0].Style()); diff != "" {
		t.Errorf("style mismatch (-want +got):\n%s", diff)
	}
	if rep.Replaced["NAME"] != 1 {
		t.Errorf("Replaced = %v", rep.Replaced)
	}
}

func TestAnchorIsRunHoldingWholeToken(t *testing.T) {
	body := testutil.Para(
		testutil.Run(`<w:b/>`, "Batch: "),
		testutil.Run(`<w:color w:val="FF0000"/>`, "{{BATCH_NO}}"),
		testutil.Run("", " end"),
	)
	tpl := parse(t, body, nil)

	out, _ := fill.New(fill.Config{}).Apply(tpl, fill.Fields{"BATCH_NO": "B-17"})

	p := out.Body().Paragraphs()[0]
	if got := p.Text(); got != "Batch: B-17 end" {
		t.Errorf("Text() = %q", got)
	}
	if diff := cmp.Diff([]string{"Batch: B-17", "", " end"}, runTexts(p)); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
	want := docx.Style{Color: &docx.RGB{R: 0xFF}}
	if diff := cmp.Diff(want, p.Runs()[0].Style()); diff != "" {
		t.Errorf("merged run should take the token run's style (-want +got):\n%s", diff)
	}
	if got := p.Runs()[2].Style(); got.Bold != nil || got.Color != nil {
		t.Errorf("run after the group changed: %+v", got)
	}
}

func TestNonPlaceholderTextUnchanged(t *testing.T) {
	body := testutil.Para(testutil.Run("", "Certificate of Analysis")) +
		testutil.Para(testutil.Run("", "Moisture: "), testutil.Run("", "{{MOISTURE}}")) +
		testutil.Table(
			[]string{testutil.Para(testutil.Run("", "Parameter")), testutil.Para(testutil.Run("", "Result"))},
			[]string{testutil.Para(testutil.Run("", "pH")), testutil.Para(testutil.Run("", "{{PH}}"))},
		)
	tpl := parse(t, body, nil)

	out, rep := fill.New(fill.Config{}).Apply(tpl, fill.Fields{"MOISTURE": "9.5%", "PH": "6.2", "UNUSED": "x"})

	want := []string{"Certificate of Analysis", "Moisture: 9.5%", "Parameter", "Result", "pH", "6.2"}
	if diff := cmp.Diff(want, bodyTexts(out)); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
	if _, ok := rep.Replaced["UNUSED"]; ok {
		t.Errorf("extra key reported as replaced: %v", rep.Replaced)
	}
	if diff := cmp.Diff([]string{"Certificate of Analysis", "Moisture: {{MOISTURE}}", "Parameter", "Result", "pH", "{{PH}}"}, bodyTexts(tpl)); diff != "" {
		t.Errorf("template was modified (-want +got):\n%s", diff)
	}
}

func TestUnmatchedTokensStayLiteral(t *testing.T) {
	tpl := parse(t, testutil.Para(testutil.Run("", "{{DATE}} / {{UNKNOWN}}")), nil)
	f := fill.New(fill.Config{})

	out, rep := f.Apply(tpl, fill.Fields{"DATE": "March 2024"})

	if got := bodyTexts(out)[0]; got != "March 2024 / {{UNKNOWN}}" {
		t.Errorf("Text() = %q", got)
	}
	if diff := cmp.Diff([]string{"UNKNOWN"}, rep.Unmatched); diff != "" {
		t.Errorf("Unmatched mismatch (-want +got):\n%s", diff)
	}
}

func TestMultipleOccurrences(t *testing.T) {
	body := testutil.Para(
		testutil.Run("", "{{A}} and {"),
		testutil.Run("", "{A}"),
		testutil.Run("", "} and {{A}}"),
	)
	tpl := parse(t, body, nil)

	out, rep := fill.New(fill.Config{}).Apply(tpl, fill.Fields{"A": "x"})

	if got := bodyTexts(out)[0]; got != "x and x and x" {
		t.Errorf("Text() = %q", got)
	}
	if rep.Replaced["A"] != 3 {
		t.Errorf("Replaced = %v", rep.Replaced)
	}
}

func TestValueContainingTokenDoesNotLoop(t *testing.T) {
	tpl := parse(t, testutil.Para(testutil.Run("", "{{A}}")), nil)

	out, rep := fill.New(fill.Config{}).Apply(tpl, fill.Fields{"A": "[{{A}}]"})

	if got := bodyTexts(out)[0]; got != "[{{A}}]" {
		t.Errorf("Text() = %q", got)
	}
	if rep.Replaced["A"] != 1 {
		t.Errorf("Replaced = %v", rep.Replaced)
	}
}

func TestValueContainingTokenAcrossRuns(t *testing.T) {
	tests := []struct {
		name string
		runs []string
		want string
	}{
		{"separate runs", []string{"{{A}}", " and ", "{{A}}"}, "x{{A}} and x{{A}}"},
		{"split second token", []string{"{{A}} and {", "{A}}"}, "x{{A}} and x{{A}}"},
		{"adjacent runs", []string{"{{A}}", "{{A}}"}, "x{{A}}x{{A}}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var runs []string
			for _, r := range tt.runs {
				runs = append(runs, testutil.Run("", r))
			}
			tpl := parse(t, testutil.Para(runs...), nil)

			out, rep := fill.New(fill.Config{}).Apply(tpl, fill.Fields{"A": "x{{A}}"})

			if got := bodyTexts(out)[0]; got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
			if rep.Replaced["A"] != 2 {
				t.Errorf("Replaced = %v", rep.Replaced)
			}
		})
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	body := testutil.Para(testutil.Run("<w:b/>", "{{"), testutil.Run("", "FAT}}"), testutil.Run("", " tail"))
	tpl := parse(t, body, nil)
	f := fill.New(fill.Config{})
	fields := fill.Fields{"FAT": "0.70%"}

	once, _ := f.Apply(tpl, fields)
	twice, rep := f.Apply(once, fields)

	a, err := once.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	b, err := twice.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Error("second pass changed the document")
	}
	if rep.Total() != 0 {
		t.Errorf("second pass replaced %d tokens", rep.Total())
	}
}

func TestHeadersAndFootersFilled(t *testing.T) {
	extra := map[string]string{
		"word/header1.xml": testutil.HeaderXML(testutil.Para(testutil.Run("", "Batch {{BATCH_NO}}"))),
	}
	tpl := parse(t, testutil.Para(testutil.Run("", "{{BATCH_NO}}")), extra)

	out, rep := fill.New(fill.Config{}).Apply(tpl, fill.Fields{"BATCH_NO": "G-1"})

	var got []string
	for _, part := range out.HeadersFooters() {
		part.EachParagraph(func(p docx.Paragraph) { got = append(got, p.Text()) })
	}
	if diff := cmp.Diff([]string{"Batch G-1"}, got); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	if rep.Replaced["BATCH_NO"] != 2 {
		t.Errorf("Replaced = %v", rep.Replaced)
	}
}

func TestPlainModeCollapsesParagraph(t *testing.T) {
	body := testutil.Para(
		testutil.Run("<w:b/>", "Ash: "),
		testutil.Run("<w:i/>", "{{ASH"),
		testutil.Run("", "_CONTENT}}"),
	)
	tpl := parse(t, body, nil)

	out, _ := fill.New(fill.Config{Mode: fill.Plain}).Apply(tpl, fill.Fields{"ASH_CONTENT": "0.64%"})

	p := out.Body().Paragraphs()[0]
	if diff := cmp.Diff([]string{"Ash: 0.64%"}, runTexts(p)); diff != "" {
		t.Errorf("runs mismatch (-want +got):\n%s", diff)
	}
	if b := p.Runs()[0].Style().Bold; b == nil || !*b {
		t.Errorf("first run lost its style: %+v", p.Runs()[0].Style())
	}
}

func TestCustomDelimiters(t *testing.T) {
	tpl := parse(t, testutil.Para(testutil.Run("", "&lt;&lt;PH&gt;&gt; {{PH}}")), nil)
	f := fill.New(fill.Config{Open: "<<", Close: ">>"})

	out, _ := f.Apply(tpl, fill.Fields{"PH": "6.5"})

	if got := bodyTexts(out)[0]; got != "6.5 {{PH}}" {
		t.Errorf("Text() = %q", got)
	}
}

func TestTokens(t *testing.T) {
	body := testutil.Para(testutil.Run("", "{{DATE}}"), testutil.Run("", "{{BATCH"), testutil.Run("", "_NO}}")) +
		testutil.Table([]string{testutil.Para(testutil.Run("", "{{DATE}} {{PH}} {{ not a token }}"))})
	tpl := parse(t, body, nil)

	got := fill.New(fill.Config{}).Tokens(tpl)
	if diff := cmp.Diff([]string{"BATCH_NO", "DATE", "PH"}, got); diff != "" {
		t.Errorf("Tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    fill.Mode
		wantErr bool
	}{
		{"", fill.PreserveStyle, false},
		{"preserve", fill.PreserveStyle, false},
		{"Plain", fill.Plain, false},
		{"fancy", fill.PreserveStyle, true},
	}
	for _, tt := range tests {
		got, err := fill.ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGenerateMissingTemplate(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.docx")

	_, err := fill.New(fill.Config{}).Generate(context.Background(), filepath.Join(dir, "COA 404.docx"), out, nil)
	if !errors.Is(err, fill.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error should also match fs.ErrNotExist: %v", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Errorf("output written despite missing template")
	}
}

func TestGenerateWritesOutput(t *testing.T) {
	dir := t.TempDir()
	tplPath := testutil.WriteDocx(t, dir, "COA 101.docx", testutil.Para(testutil.Run("", "{{BATCH_NO}}")))
	outPath := filepath.Join(dir, "generated", "COA-B1-101.docx")

	rep, err := fill.New(fill.Config{}).Generate(context.Background(), tplPath, outPath, fill.Fields{"BATCH_NO": "B1"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if rep.Total() != 1 {
		t.Errorf("Total() = %d", rep.Total())
	}
	doc, err := docx.Open(outPath)
	if err != nil {
		t.Fatalf("Open output: %v", err)
	}
	if got := bodyTexts(doc)[0]; got != "B1" {
		t.Errorf("output text = %q", got)
	}
}
