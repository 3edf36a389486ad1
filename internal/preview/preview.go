// Package preview renders generated certificates for display: a sanitized
// HTML view of the document, a Markdown view derived from it, and the
// printable specification sheet.
package preview

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"coagen/internal/docx"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Formats.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// ErrUnknownFormat is returned for a format other than html or markdown.
var ErrUnknownFormat = errors.New("unknown preview format")

// Renderer converts documents to preview markup. It is safe for concurrent
// use.
type Renderer struct {
	policy *bluemonday.Policy
	md     *converter.Converter
	logger *zap.Logger
}

// New returns a Renderer. A nil logger discards output.
func New(logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		policy: bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: logger,
	}
}

// Render returns the document in the requested format.
func (r *Renderer) Render(doc *docx.Document, format string) (string, error) {
	switch format {
	case "", FormatHTML:
		return r.HTML(doc), nil
	case FormatMarkdown:
		return r.Markdown(doc)
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// RenderFile opens a .docx file and renders it.
func (r *Renderer) RenderFile(path, format string) (string, error) {
	doc, err := docx.Open(path)
	if err != nil {
		return "", err
	}
	out, err := r.Render(doc, format)
	if err != nil {
		return "", err
	}
	r.logger.Debug("preview rendered", zap.String("path", path), zap.String("format", format), zap.Int("bytes", len(out)))
	return out, nil
}

// HTML renders the document body as sanitized HTML. Headings follow the
// paragraph style, bold, italic and underline follow run formatting, and
// tables keep their cell structure.
func (r *Renderer) HTML(doc *docx.Document) string {
	var sb strings.Builder
	writeBlocks(&sb, doc.Body().Blocks())
	return r.policy.Sanitize(sb.String())
}

// Markdown renders the document body as Markdown.
func (r *Renderer) Markdown(doc *docx.Document) (string, error) {
	md, err := r.md.ConvertString(r.HTML(doc))
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

func writeBlocks(sb *strings.Builder, blocks []docx.Block) {
	for _, b := range blocks {
		switch {
		case b.Paragraph != nil:
			writeParagraph(sb, *b.Paragraph)
		case b.Table != nil:
			writeTable(sb, *b.Table)
		}
	}
}

func writeParagraph(sb *strings.Builder, p docx.Paragraph) {
	tag := "p"
	if level := headingLevel(p.StyleID()); level > 0 {
		tag = "h" + strconv.Itoa(level)
	}
	sb.WriteString("<" + tag + ">")
	for _, run := range p.Runs() {
		writeRun(sb, run)
	}
	sb.WriteString("</" + tag + ">\n")
}

func writeRun(sb *strings.Builder, run docx.Run) {
	text := run.Text()
	if text == "" {
		return
	}
	s := run.Style()
	var pre, post string
	if s.Bold != nil && *s.Bold {
		pre, post = pre+"<strong>", "</strong>"+post
	}
	if s.Italic != nil && *s.Italic {
		pre, post = pre+"<em>", "</em>"+post
	}
	if s.Underline != nil && *s.Underline {
		pre, post = pre+"<u>", "</u>"+post
	}
	sb.WriteString(pre + strings.ReplaceAll(html.EscapeString(text), "\n", "<br>") + post)
}

func writeTable(sb *strings.Builder, t docx.Table) {
	sb.WriteString("<table>\n")
	for i, row := range t.Rows() {
		cell := "td"
		if i == 0 {
			cell = "th"
		}
		sb.WriteString("<tr>")
		for _, c := range row.Cells() {
			sb.WriteString("<" + cell + ">")
			writeCell(sb, c)
			sb.WriteString("</" + cell + ">")
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</table>\n")
}

// writeCell inlines single-paragraph cells so tables stay flat.
func writeCell(sb *strings.Builder, c docx.Cell) {
	blocks := c.Blocks()
	if len(blocks) == 1 && blocks[0].Paragraph != nil && headingLevel(blocks[0].Paragraph.StyleID()) == 0 {
		for _, run := range blocks[0].Paragraph.Runs() {
			writeRun(sb, run)
		}
		return
	}
	writeBlocks(sb, blocks)
}

// headingLevel maps a paragraph style ID to a heading level, 0 for body
// text. "Title" is level 1, "Subtitle" level 2, "Heading1".."Heading6"
// their number.
func headingLevel(style string) int {
	lower := strings.ToLower(style)
	switch lower {
	case "title":
		return 1
	case "subtitle":
		return 2
	}
	if rest, ok := strings.CutPrefix(lower, "heading"); ok && len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
		return int(rest[0] - '0')
	}
	return 0
}
