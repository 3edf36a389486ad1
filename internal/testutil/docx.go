package testutil

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const rootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"`

// DocumentXML wraps body markup in a w:document/w:body envelope.
func DocumentXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document ` + wordNS + `><w:body>` + body + `<w:sectPr/></w:body></w:document>`
}

// HeaderXML wraps markup in a w:hdr envelope.
func HeaderXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:hdr ` + wordNS + `>` + body + `</w:hdr>`
}

// BuildDocx returns a minimal .docx package whose body is the given
// WordprocessingML markup. Extra parts (for example "word/header1.xml")
// are added verbatim.
func BuildDocx(t *testing.T, body string, extra map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("[Content_Types].xml", contentTypes)
	write("_rels/.rels", rootRels)
	write("word/document.xml", DocumentXML(body))
	for name, content := range extra {
		write(name, content)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// WriteDocx writes a fixture package to dir/name and returns its path.
func WriteDocx(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, BuildDocx(t, body, nil), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Para builds a w:p element from runs.
func Para(runs ...string) string {
	out := "<w:p>"
	for _, r := range runs {
		out += r
	}
	return out + "</w:p>"
}

// Run builds a w:r element with optional w:rPr markup.
func Run(rPr, text string) string {
	out := "<w:r>"
	if rPr != "" {
		out += "<w:rPr>" + rPr + "</w:rPr>"
	}
	return out + `<w:t xml:space="preserve">` + text + "</w:t></w:r>"
}

// Table builds a w:tbl from rows of cell markup.
func Table(rows ...[]string) string {
	out := "<w:tbl>"
	for _, row := range rows {
		out += "<w:tr>"
		for _, cell := range row {
			out += "<w:tc>" + cell + "</w:tc>"
		}
		out += "</w:tr>"
	}
	return out + "</w:tbl>"
}
