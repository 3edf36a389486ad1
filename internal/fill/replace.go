package fill

import (
	"strings"

	"coagen/internal/docx"
)

// ReplaceParagraph substitutes every occurrence of token in p with value,
// keeping formatting as far as the run layout allows.
//
// Runs are accumulated until their joined text contains the token. That
// group collapses into its first run, which takes the style of the first
// run in the group that holds the whole token on its own (or of the group's
// first run when the token is split). The other runs of the group are left
// in place with no text.
//
// Scanning resumes right after the last replaced occurrence, so text
// written by a replacement is never matched again. It returns the number of
// occurrences replaced.
func ReplaceParagraph(p docx.Paragraph, token, value string) int {
	if token == "" {
		return 0
	}
	runs := p.Runs()
	pending := strings.Count(p.Text(), token)
	replaced, start, skip := 0, 0, 0
	for replaced < pending && start < len(runs) {
		n, next, nextSkip := replaceGroup(runs, start, skip, token, value)
		if n == 0 {
			break
		}
		replaced += n
		start, skip = next, nextSkip
	}
	return replaced
}

// replaceGroup replaces the first group of runs, starting at runs[start]
// with its first skip bytes ignored, whose text contains token. It returns
// the number of occurrences replaced and where the next scan starts.
func replaceGroup(runs []docx.Run, start, skip int, token, value string) (n, next, nextSkip int) {
	var acc strings.Builder
	for i := start; i < len(runs); i++ {
		text := runs[i].Text()
		if i == start {
			text = text[skip:]
		}
		acc.WriteString(text)

		rest := acc.String()
		if !strings.Contains(rest, token) {
			continue
		}

		group := runs[start : i+1]
		first := group[0]
		prefix := first.Text()[:skip]

		anchor := first
		for j, r := range group {
			t := r.Text()
			if j == 0 {
				t = t[skip:]
			}
			if strings.Contains(t, token) {
				anchor = r
				break
			}
		}
		style := anchor.Style()

		tail := rest[strings.LastIndex(rest, token)+len(token):]
		out := strings.ReplaceAll(rest, token, value)
		for _, r := range group {
			r.SetText("")
		}
		first.SetText(prefix + out)
		first.SetStyle(style)

		n = strings.Count(rest, token)
		if tail == "" {
			return n, i + 1, 0
		}
		// The tail may open a token that later runs complete.
		return n, start, len(prefix) + len(out) - len(tail)
	}
	return 0, len(runs), 0
}

// ReplacePlain substitutes token in the paragraph's full text and rewrites
// the paragraph as a single run. Mixed formatting inside the paragraph is
// lost; the surviving run keeps the first run's formatting.
func ReplacePlain(p docx.Paragraph, token, value string) int {
	if token == "" {
		return 0
	}
	text := p.Text()
	n := strings.Count(text, token)
	if n == 0 {
		return 0
	}
	p.SetText(strings.ReplaceAll(text, token, value))
	return n
}
