package docx

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RGB is a 24-bit text color.
type RGB struct {
	R, G, B uint8
}

// Hex returns the color as six upper-case hex digits, the form w:color uses.
func (c RGB) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c.R, c.G, c.B)
}

// ParseRGB parses a six digit hex color such as "1F3864".
func ParseRGB(s string) (RGB, error) {
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// Style is the direct formatting of a run. A nil field means the property
// is not set on the run and is inherited.
type Style struct {
	FontFamily *string
	// Size is in points.
	Size      *float64
	Bold      *bool
	Italic    *bool
	Underline *bool
	// UnderlineStyle is the w:u value ("single", "double", ...) used when
	// Underline is true. Empty means "single".
	UnderlineStyle string
	Color          *RGB
}

// rPrOrder is the schema order of the w:rPr children this package writes
// among the ones Word may already have there.
var rPrOrder = map[string]int{
	"rStyle": 0, "rFonts": 1, "b": 2, "bCs": 3, "i": 4, "iCs": 5, "caps": 6,
	"smallCaps": 7, "strike": 8, "dstrike": 9, "outline": 10, "shadow": 11,
	"emboss": 12, "imprint": 13, "noProof": 14, "snapToGrid": 15, "vanish": 16,
	"webHidden": 17, "color": 18, "spacing": 19, "w": 20, "kern": 21,
	"position": 22, "sz": 23, "szCs": 24, "highlight": 25, "u": 26,
	"effect": 27, "bdr": 28, "shd": 29, "fitText": 30, "vertAlign": 31,
	"rtl": 32, "cs": 33, "em": 34, "lang": 35, "eastAsianLayout": 36,
	"specVanish": 37, "oMath": 38,
}

func readStyle(rpr *Node) Style {
	var s Style
	if rpr == nil {
		return s
	}
	if f := rpr.Child("rFonts"); f != nil {
		for _, key := range []string{"ascii", "hAnsi", "cs", "eastAsia"} {
			if v, ok := f.AttrValue(key); ok && v != "" {
				name := v
				s.FontFamily = &name
				break
			}
		}
	}
	if sz := rpr.Child("sz"); sz != nil {
		if v, ok := sz.AttrValue("val"); ok {
			if half, err := strconv.ParseFloat(v, 64); err == nil {
				pt := half / 2
				s.Size = &pt
			}
		}
	}
	s.Bold = readToggle(rpr.Child("b"))
	s.Italic = readToggle(rpr.Child("i"))
	if u := rpr.Child("u"); u != nil {
		v, _ := u.AttrValue("val")
		on := v != "none" && v != "0" && v != "false"
		s.Underline = &on
		if on && v != "" && v != "single" && v != "1" && v != "true" {
			s.UnderlineStyle = v
		}
	}
	if c := rpr.Child("color"); c != nil {
		if v, ok := c.AttrValue("val"); ok && !strings.EqualFold(v, "auto") {
			if rgb, err := ParseRGB(v); err == nil {
				s.Color = &rgb
			}
		}
	}
	return s
}

// readToggle decodes an on/off property such as <w:b/> or <w:b w:val="0"/>.
func readToggle(n *Node) *bool {
	if n == nil {
		return nil
	}
	v, ok := n.AttrValue("val")
	on := !ok || (v != "0" && v != "false" && v != "off")
	return &on
}

func writeStyle(rpr *Node, s Style) {
	if s.FontFamily != nil {
		f := rpr.Child("rFonts")
		if f == nil {
			f = newElement("w", "rFonts")
			insertRPr(rpr, f)
		}
		// Theme fonts take precedence over explicit names.
		f.removeAttrs("asciiTheme", "hAnsiTheme")
		f.setAttr("w", "ascii", *s.FontFamily)
		f.setAttr("w", "hAnsi", *s.FontFamily)
	} else if f := rpr.Child("rFonts"); f != nil {
		rpr.removeChild(f)
	}

	setToggle(rpr, "b", s.Bold)
	setToggle(rpr, "i", s.Italic)

	rpr.removeElements("color")
	if s.Color != nil {
		insertRPr(rpr, newElement("w", "color", wAttr("val", s.Color.Hex())))
	}

	rpr.removeElements("sz")
	if s.Size != nil {
		half := int(math.Round(*s.Size * 2))
		insertRPr(rpr, newElement("w", "sz", wAttr("val", strconv.Itoa(half))))
	}

	rpr.removeElements("u")
	if s.Underline != nil {
		val := "none"
		if *s.Underline {
			val = "single"
			if s.UnderlineStyle != "" {
				val = s.UnderlineStyle
			}
		}
		insertRPr(rpr, newElement("w", "u", wAttr("val", val)))
	}
}

func setToggle(rpr *Node, local string, v *bool) {
	rpr.removeElements(local)
	if v == nil {
		return
	}
	el := newElement("w", local)
	if !*v {
		el.Attr = append(el.Attr, wAttr("val", "0"))
	}
	insertRPr(rpr, el)
}

// insertRPr places el among rpr's children according to schema order.
func insertRPr(rpr *Node, el *Node) {
	rank, known := rPrOrder[el.Name.Local]
	if !known {
		rpr.Children = append(rpr.Children, el)
		return
	}
	for i, c := range rpr.Children {
		if c.Kind != ElementNode {
			continue
		}
		if r, ok := rPrOrder[c.Name.Local]; ok && r > rank {
			rpr.Children = append(rpr.Children[:i], append([]*Node{el}, rpr.Children[i:]...)...)
			return
		}
	}
	rpr.Children = append(rpr.Children, el)
}
