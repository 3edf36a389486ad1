package docx

import "strings"

// Part is one text-bearing XML part of the package: the main document or a
// header/footer.
type Part struct {
	Name string
	root *Node
}

// container is the element whose children are the part's block content:
// w:body for the main document, w:hdr or w:ftr for the others.
func (p Part) container() *Node {
	if p.root == nil {
		return nil
	}
	for _, c := range p.root.Children {
		if c.Kind != ElementNode {
			continue
		}
		if c.Is("document") {
			return c.Child("body")
		}
		return c
	}
	return nil
}

// Paragraphs returns the top-level paragraphs of the part, excluding those
// inside tables.
func (p Part) Paragraphs() []Paragraph {
	return paragraphsOf(p.container())
}

// Tables returns the top-level tables of the part.
func (p Part) Tables() []Table {
	return tablesOf(p.container())
}

// Block is a paragraph or a table, in document order.
type Block struct {
	Paragraph *Paragraph
	Table     *Table
}

// Blocks returns paragraphs and tables in the order they appear.
func (p Part) Blocks() []Block {
	return blocksOf(p.container())
}

func paragraphsOf(n *Node) []Paragraph {
	if n == nil {
		return nil
	}
	var out []Paragraph
	for _, c := range n.Elements("p") {
		out = append(out, Paragraph{n: c})
	}
	return out
}

func tablesOf(n *Node) []Table {
	if n == nil {
		return nil
	}
	var out []Table
	for _, c := range n.Elements("tbl") {
		out = append(out, Table{n: c})
	}
	return out
}

func blocksOf(n *Node) []Block {
	if n == nil {
		return nil
	}
	var out []Block
	for _, c := range n.Children {
		switch {
		case c.Is("p"):
			out = append(out, Block{Paragraph: &Paragraph{n: c}})
		case c.Is("tbl"):
			out = append(out, Block{Table: &Table{n: c}})
		}
	}
	return out
}

// Paragraph wraps a w:p element.
type Paragraph struct {
	n *Node
}

// Runs returns the paragraph's runs in order, including runs nested in
// hyperlinks, smart tags, tracked insertions and content controls. Runs of
// paragraphs nested inside text boxes belong to those paragraphs and are
// not returned.
func (p Paragraph) Runs() []Run {
	var out []Run
	var walk func(*Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			switch {
			case c.Kind != ElementNode:
			case c.Is("r"):
				out = append(out, Run{n: c, parent: n})
			case c.Is("p"), c.Is("pPr"), c.Is("del"):
			default:
				walk(c)
			}
		}
	}
	walk(p.n)
	return out
}

// Text is the concatenation of the paragraph's run texts.
func (p Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs() {
		sb.WriteString(r.Text())
	}
	return sb.String()
}

// StyleID returns the paragraph style id (w:pStyle), or "".
func (p Paragraph) StyleID() string {
	ppr := p.n.Child("pPr")
	if ppr == nil {
		return ""
	}
	ps := ppr.Child("pStyle")
	if ps == nil {
		return ""
	}
	v, _ := ps.AttrValue("val")
	return v
}

// SetText rewrites the paragraph as a single run holding text. The first
// run survives with its own formatting; every other run is removed. A
// paragraph without runs gets a new unformatted one.
func (p Paragraph) SetText(text string) {
	runs := p.Runs()
	if len(runs) == 0 {
		r := Run{n: newElement("w", "r"), parent: p.n}
		p.n.Children = append(p.n.Children, r.n)
		r.SetText(text)
		return
	}
	runs[0].SetText(text)
	for _, r := range runs[1:] {
		r.parent.removeChild(r.n)
	}
}

// AppendRun adds a run with the given text and style at the end of the
// paragraph.
func (p Paragraph) AppendRun(text string, style Style) Run {
	r := Run{n: newElement("w", "r"), parent: p.n}
	p.n.Children = append(p.n.Children, r.n)
	r.SetStyle(style)
	r.SetText(text)
	return r
}

// Table wraps a w:tbl element.
type Table struct {
	n *Node
}

// Rows returns the table rows.
func (t Table) Rows() []Row {
	var out []Row
	for _, c := range t.n.Elements("tr") {
		out = append(out, Row{n: c})
	}
	return out
}

// Row wraps a w:tr element.
type Row struct {
	n *Node
}

// Cells returns the row's cells.
func (r Row) Cells() []Cell {
	var out []Cell
	for _, c := range r.n.Elements("tc") {
		out = append(out, Cell{n: c})
	}
	return out
}

// Cell wraps a w:tc element.
type Cell struct {
	n *Node
}

// Paragraphs returns the cell's own paragraphs.
func (c Cell) Paragraphs() []Paragraph { return paragraphsOf(c.n) }

// Tables returns tables nested in the cell.
func (c Cell) Tables() []Table { return tablesOf(c.n) }

// Blocks returns the cell content in order.
func (c Cell) Blocks() []Block { return blocksOf(c.n) }

// Text joins the cell's paragraph texts with newlines.
func (c Cell) Text() string {
	var parts []string
	for _, p := range c.Paragraphs() {
		parts = append(parts, p.Text())
	}
	return strings.Join(parts, "\n")
}

// EachParagraph calls fn for every paragraph of the part: top-level
// paragraphs first, then table cells row by row, cell by cell. Tables nested
// in a cell are visited right after that cell's own paragraphs.
func (p Part) EachParagraph(fn func(Paragraph)) {
	for _, para := range p.Paragraphs() {
		fn(para)
	}
	for _, t := range p.Tables() {
		eachTableParagraph(t, fn)
	}
}

func eachTableParagraph(t Table, fn func(Paragraph)) {
	for _, row := range t.Rows() {
		for _, cell := range row.Cells() {
			for _, para := range cell.Paragraphs() {
				fn(para)
			}
			for _, nested := range cell.Tables() {
				eachTableParagraph(nested, fn)
			}
		}
	}
}
