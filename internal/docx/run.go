package docx

import (
	"encoding/xml"
	"strings"
)

// Run wraps a w:r element, a span of text sharing one formatting.
type Run struct {
	n      *Node
	parent *Node
}

// Text returns the run's text. Tabs and line breaks are reported as '\t'
// and '\n'.
func (r Run) Text() string {
	var sb strings.Builder
	for _, c := range r.n.Children {
		switch {
		case c.Is("t"):
			for _, t := range c.Children {
				if t.Kind == TextNode {
					sb.WriteString(t.Text)
				}
			}
		case c.Is("tab"):
			sb.WriteByte('\t')
		case c.Is("br"), c.Is("cr"):
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// SetText replaces the run's text content. Formatting (w:rPr) and
// non-text children such as drawings are kept.
func (r Run) SetText(text string) {
	r.n.removeElements("t", "tab", "br", "cr")

	var seg strings.Builder
	flush := func() {
		if seg.Len() == 0 {
			return
		}
		s := seg.String()
		t := newElement("w", "t")
		if strings.TrimSpace(s) != s {
			t.Attr = []xml.Attr{{Name: xml.Name{Space: "xml", Local: "space"}, Value: "preserve"}}
		}
		t.Children = []*Node{{Kind: TextNode, Text: s}}
		r.n.Children = append(r.n.Children, t)
		seg.Reset()
	}
	for _, ch := range text {
		switch ch {
		case '\t':
			flush()
			r.n.Children = append(r.n.Children, newElement("w", "tab"))
		case '\n':
			flush()
			r.n.Children = append(r.n.Children, newElement("w", "br"))
		default:
			seg.WriteRune(ch)
		}
	}
	flush()
}

// Style returns the run's direct formatting.
func (r Run) Style() Style {
	return readStyle(r.n.Child("rPr"))
}

// SetStyle applies s as the run's direct formatting. Every attribute the
// Style describes is written: a nil field removes that property so the run
// inherits it from the paragraph style.
func (r Run) SetStyle(s Style) {
	rpr := r.n.Child("rPr")
	if rpr == nil {
		rpr = newElement("w", "rPr")
		r.n.Children = append([]*Node{rpr}, r.n.Children...)
	}
	writeStyle(rpr, s)
}
