// Package fill substitutes {{NAME}} placeholder tokens in .docx templates.
//
// A Filler never modifies the template it is given: Apply works on a clone
// and returns the filled copy. Two substitution modes are available.
// PreserveStyle (the default) keeps the formatting of the run that held the
// token even when Word split the token across several runs. Plain rewrites
// each affected paragraph as a single run.
package fill

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"coagen/internal/docx"

	"go.uber.org/zap"
)

// ErrTemplateNotFound is returned when the template file does not exist.
// It wraps fs.ErrNotExist.
var ErrTemplateNotFound = fmt.Errorf("template not found: %w", fs.ErrNotExist)

// ErrUnknownMode is returned by ParseMode for an unrecognised mode name.
var ErrUnknownMode = errors.New("unknown fill mode")

// Fields maps placeholder names (without delimiters) to display values.
type Fields map[string]string

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Mode selects the substitution policy.
type Mode int

const (
	PreserveStyle Mode = iota
	Plain
)

func (m Mode) String() string {
	switch m {
	case Plain:
		return "plain"
	default:
		return "preserve"
	}
}

// ParseMode converts "preserve" or "plain" to a Mode. The empty string
// selects PreserveStyle.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "preserve", "preserve-style":
		return PreserveStyle, nil
	case "plain":
		return Plain, nil
	}
	return PreserveStyle, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Config configures a Filler.
type Config struct {
	Mode Mode
	// Open and Close delimit a placeholder. Defaults are "{{" and "}}".
	Open   string
	Close  string
	Logger *zap.Logger
}

func (c *Config) defaults() {
	if c.Open == "" {
		c.Open = "{{"
	}
	if c.Close == "" {
		c.Close = "}}"
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Filler fills templates. It holds no per-call state and is safe for
// concurrent use.
type Filler struct {
	cfg     Config
	tokenRE *regexp.Regexp
}

// New returns a Filler for cfg.
func New(cfg Config) *Filler {
	cfg.defaults()
	re := regexp.MustCompile(regexp.QuoteMeta(cfg.Open) + `([A-Za-z0-9_.\-]+)` + regexp.QuoteMeta(cfg.Close))
	return &Filler{cfg: cfg, tokenRE: re}
}

// Mode reports the substitution mode in use.
func (f *Filler) Mode() Mode { return f.cfg.Mode }

// Token returns the placeholder text for name, e.g. "{{BATCH_NO}}".
func (f *Filler) Token(name string) string {
	return f.cfg.Open + name + f.cfg.Close
}

// Report summarises one Apply call.
type Report struct {
	// Replaced counts substitutions per field name. Fields that matched
	// nothing are absent.
	Replaced map[string]int
	// Unmatched lists placeholder names still present in the output, i.e.
	// tokens the template has but the field map did not supply.
	Unmatched []string
}

// Total returns the number of substitutions made.
func (r Report) Total() int {
	n := 0
	for _, c := range r.Replaced {
		n += c
	}
	return n
}

// Apply returns a filled copy of tpl. Keys are applied in sorted order to
// the body first, then to headers and footers.
func (f *Filler) Apply(tpl *docx.Document, fields Fields) (*docx.Document, Report) {
	out := tpl.Clone()
	rep := Report{Replaced: make(map[string]int)}

	replace := ReplaceParagraph
	if f.cfg.Mode == Plain {
		replace = ReplacePlain
	}

	keys := fields.Keys()
	for _, part := range out.Parts() {
		part.EachParagraph(func(p docx.Paragraph) {
			for _, k := range keys {
				if n := replace(p, f.Token(k), fields[k]); n > 0 {
					rep.Replaced[k] += n
				}
			}
		})
	}
	rep.Unmatched = f.Tokens(out)
	return out, rep
}

// Tokens lists the distinct placeholder names present in doc, sorted.
func (f *Filler) Tokens(doc *docx.Document) []string {
	seen := make(map[string]bool)
	for _, part := range doc.Parts() {
		part.EachParagraph(func(p docx.Paragraph) {
			for _, m := range f.tokenRE.FindAllStringSubmatch(p.Text(), -1) {
				seen[m[1]] = true
			}
		})
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open loads a template, mapping a missing file to ErrTemplateNotFound.
func Open(path string) (*docx.Document, error) {
	doc, err := docx.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, filepath.Base(path))
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Generate fills the template at tplPath and writes the result to outPath.
// Nothing is written when the template cannot be read.
func (f *Filler) Generate(ctx context.Context, tplPath, outPath string, fields Fields) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	tpl, err := Open(tplPath)
	if err != nil {
		return Report{}, err
	}
	out, rep := f.Apply(tpl, fields)

	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return rep, fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := out.Save(outPath); err != nil {
		return rep, fmt.Errorf("save %s: %w", filepath.Base(outPath), err)
	}

	f.cfg.Logger.Debug("template filled",
		zap.String("template", filepath.Base(tplPath)),
		zap.String("output", outPath),
		zap.Int("replaced", rep.Total()),
		zap.Strings("unmatched", rep.Unmatched),
		zap.Stringer("mode", f.cfg.Mode),
	)
	return rep, nil
}
