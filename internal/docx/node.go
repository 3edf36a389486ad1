package docx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// NodeKind tells element nodes apart from the character data and markup
// that sits between them.
type NodeKind int

const (
	DocumentNode NodeKind = iota
	ElementNode
	TextNode
	CommentNode
	ProcInstNode
	DirectiveNode
)

// Node is a raw XML tree node. Element names keep their source prefix in
// Name.Space (for example "w"), so a parsed part serializes back with the
// same prefixes and namespace declarations it was read with.
type Node struct {
	Kind     NodeKind
	Name     xml.Name
	Attr     []xml.Attr
	Children []*Node
	// Text holds character data, comment text, directive text or the
	// processing instruction body depending on Kind.
	Text string
	// Target is the processing instruction target ("xml").
	Target string
}

func newElement(prefix, local string, attrs ...xml.Attr) *Node {
	return &Node{Kind: ElementNode, Name: xml.Name{Space: prefix, Local: local}, Attr: attrs}
}

func wAttr(local, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Space: "w", Local: local}, Value: value}
}

// Is reports whether n is an element with the given local name.
func (n *Node) Is(local string) bool {
	return n != nil && n.Kind == ElementNode && n.Name.Local == local
}

// Child returns the first element child with the given local name.
func (n *Node) Child(local string) *Node {
	for _, c := range n.Children {
		if c.Is(local) {
			return c
		}
	}
	return nil
}

// Elements returns the element children with the given local name.
func (n *Node) Elements(local string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Is(local) {
			out = append(out, c)
		}
	}
	return out
}

// AttrValue returns the value of the attribute with the given local name.
func (n *Node) AttrValue(local string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

func (n *Node) setAttr(prefix, local, value string) {
	for i, a := range n.Attr {
		if a.Name.Local == local && a.Name.Space == prefix {
			n.Attr[i].Value = value
			return
		}
	}
	n.Attr = append(n.Attr, xml.Attr{Name: xml.Name{Space: prefix, Local: local}, Value: value})
}

func (n *Node) removeAttrs(locals ...string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		drop := false
		for _, l := range locals {
			if a.Name.Local == l {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func (n *Node) removeChild(target *Node) bool {
	for i, c := range n.Children {
		if c == target {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return true
		}
	}
	return false
}

func (n *Node) removeElements(locals ...string) {
	kept := n.Children[:0]
	for _, c := range n.Children {
		drop := false
		for _, l := range locals {
			if c.Is(l) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(n.Children); i++ {
		n.Children[i] = nil
	}
	n.Children = kept
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Name: n.Name, Text: n.Text, Target: n.Target}
	if n.Attr != nil {
		c.Attr = append([]xml.Attr(nil), n.Attr...)
	}
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, ch := range n.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// parseXML reads a whole XML part into a tree. RawToken is used so the
// decoder leaves prefixes alone instead of resolving them to namespace URLs.
func parseXML(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	root := &Node{Kind: DocumentNode}
	stack := []*Node{root}

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		parent := stack[len(stack)-1]

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Node{Kind: ElementNode, Name: t.Name}
			if len(t.Attr) > 0 {
				el.Attr = append([]xml.Attr(nil), t.Attr...)
			}
			parent.Children = append(parent.Children, el)
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 1 {
				return nil, fmt.Errorf("unexpected end element </%s>", t.Name.Local)
			}
			if top := stack[len(stack)-1]; top.Name != t.Name {
				return nil, fmt.Errorf("mismatched end element </%s>, open <%s>", t.Name.Local, top.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			parent.Children = append(parent.Children, &Node{Kind: TextNode, Text: string(t)})
		case xml.Comment:
			parent.Children = append(parent.Children, &Node{Kind: CommentNode, Text: string(t)})
		case xml.ProcInst:
			parent.Children = append(parent.Children, &Node{Kind: ProcInstNode, Target: t.Target, Text: string(t.Inst)})
		case xml.Directive:
			parent.Children = append(parent.Children, &Node{Kind: DirectiveNode, Text: string(t)})
		}
	}
	if len(stack) != 1 {
		return nil, fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].Name.Local)
	}
	return root, nil
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\t", "&#x9;", "\n", "&#xA;", "\r", "&#xD;")
)

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

// writeXML serializes the tree. Elements without children are written in
// the short form, the way Word itself writes them.
func writeXML(w io.Writer, n *Node) error {
	var buf bytes.Buffer
	encodeNode(&buf, n)
	_, err := w.Write(buf.Bytes())
	return err
}

func encodeNode(buf *bytes.Buffer, n *Node) {
	switch n.Kind {
	case DocumentNode:
		for _, c := range n.Children {
			encodeNode(buf, c)
		}
	case TextNode:
		textEscaper.WriteString(buf, n.Text)
	case CommentNode:
		buf.WriteString("<!--")
		buf.WriteString(n.Text)
		buf.WriteString("-->")
	case ProcInstNode:
		buf.WriteString("<?")
		buf.WriteString(n.Target)
		if n.Text != "" {
			buf.WriteByte(' ')
			buf.WriteString(n.Text)
		}
		buf.WriteString("?>")
	case DirectiveNode:
		buf.WriteString("<!")
		buf.WriteString(n.Text)
		buf.WriteByte('>')
	case ElementNode:
		buf.WriteByte('<')
		buf.WriteString(qualified(n.Name))
		for _, a := range n.Attr {
			buf.WriteByte(' ')
			buf.WriteString(qualified(a.Name))
			buf.WriteString(`="`)
			attrEscaper.WriteString(buf, a.Value)
			buf.WriteByte('"')
		}
		if len(n.Children) == 0 {
			buf.WriteString("/>")
			return
		}
		buf.WriteByte('>')
		for _, c := range n.Children {
			encodeNode(buf, c)
		}
		buf.WriteString("</")
		buf.WriteString(qualified(n.Name))
		buf.WriteByte('>')
	}
}
