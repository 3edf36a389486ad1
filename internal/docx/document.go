// Package docx reads, edits and writes WordprocessingML (.docx) files.
//
// Only the parts that carry text are parsed: the main document and any
// header and footer parts. Every other archive entry (styles, media,
// relationships) is carried through to the output untouched.
//
// Usage:
//
//	doc, err := docx.Open("COA 1020.docx")
//	for _, p := range doc.Body().Paragraphs() {
//		fmt.Println(p.Text())
//	}
//	err = doc.Save("out.docx")
package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// MainPart is the archive path of the main document body.
const MainPart = "word/document.xml"

// ErrNoBody is returned when an archive has no word/document.xml.
var ErrNoBody = errors.New("word/document.xml not found in archive")

type entry struct {
	name   string
	method uint16
	data   []byte
}

// Document is an opened .docx package.
type Document struct {
	entries []entry
	parts   map[string]*Node
}

// Open reads the .docx file at path. A missing file yields an error that
// satisfies errors.Is(err, fs.ErrNotExist).
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	doc, err := Read(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return doc, nil
}

// Parse reads a .docx package held in memory.
func Parse(data []byte) (*Document, error) {
	return Read(bytes.NewReader(data), int64(len(data)))
}

// Read reads a .docx package from r.
func Read(r io.ReaderAt, size int64) (*Document, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	doc := &Document{parts: make(map[string]*Node)}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return nil, err
		}
		doc.entries = append(doc.entries, entry{name: f.Name, method: f.Method, data: data})

		if !isTextPart(f.Name) {
			continue
		}
		root, err := parseXML(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name, err)
		}
		doc.parts[f.Name] = root
	}

	if _, ok := doc.parts[MainPart]; !ok {
		return nil, ErrNoBody
	}
	return doc, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

// isTextPart reports whether an archive entry is a part whose paragraphs
// are exposed for editing.
func isTextPart(name string) bool {
	if name == MainPart {
		return true
	}
	dir, file := path.Split(name)
	if dir != "word/" || path.Ext(file) != ".xml" {
		return false
	}
	return strings.HasPrefix(file, "header") || strings.HasPrefix(file, "footer")
}

// Clone returns an independent working copy. Edits to the copy never reach
// the receiver.
func (d *Document) Clone() *Document {
	c := &Document{
		entries: append([]entry(nil), d.entries...),
		parts:   make(map[string]*Node, len(d.parts)),
	}
	for name, root := range d.parts {
		c.parts[name] = root.Clone()
	}
	return c
}

// Body returns the main document part.
func (d *Document) Body() Part {
	return Part{Name: MainPart, root: d.parts[MainPart]}
}

// HeadersFooters returns the header and footer parts in archive name order.
func (d *Document) HeadersFooters() []Part {
	var names []string
	for name := range d.parts {
		if name != MainPart {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]Part, 0, len(names))
	for _, name := range names {
		out = append(out, Part{Name: name, root: d.parts[name]})
	}
	return out
}

// Parts returns the body followed by headers and footers.
func (d *Document) Parts() []Part {
	return append([]Part{d.Body()}, d.HeadersFooters()...)
}

// Write serializes the package. Entries keep their original order;
// edited parts are re-encoded and everything else is copied byte for byte.
func (d *Document) Write(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, e := range d.entries {
		hdr := &zip.FileHeader{Name: e.name, Method: e.method}
		ew, err := zw.CreateHeader(hdr)
		if err != nil {
			return fmt.Errorf("create %s: %w", e.name, err)
		}
		if root, ok := d.parts[e.name]; ok {
			if err := writeXML(ew, root); err != nil {
				return fmt.Errorf("write %s: %w", e.name, err)
			}
			continue
		}
		if _, err := ew.Write(e.data); err != nil {
			return fmt.Errorf("write %s: %w", e.name, err)
		}
	}
	return zw.Close()
}

// Bytes returns the serialized package.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the package to path. The file is written next to its
// destination and renamed into place, so a failed save leaves no partial
// document behind.
func (d *Document) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".docx-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := d.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
