package coa

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"coagen/internal/composition"
	"coagen/internal/fill"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidCode is returned for product codes that are empty or could
// escape the template directory.
var ErrInvalidCode = errors.New("invalid product code")

// Config configures a Generator.
type Config struct {
	TemplateDir string
	OutputDir   string
	Policy      composition.Policy
	Filler      *fill.Filler
	Logger      *zap.Logger
}

func (c *Config) defaults() {
	if c.TemplateDir == "" {
		c.TemplateDir = "."
	}
	if c.OutputDir == "" {
		c.OutputDir = "generated_coas"
	}
	if c.Policy == nil {
		c.Policy = composition.FixedBaseline{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Filler == nil {
		c.Filler = fill.New(fill.Config{Logger: c.Logger})
	}
}

// Generator produces certificate documents from records.
type Generator struct {
	cfg Config
}

// NewGenerator returns a Generator for cfg.
func NewGenerator(cfg Config) *Generator {
	cfg.defaults()
	return &Generator{cfg: cfg}
}

// WithPolicy returns a copy of g that uses p for derived components.
func (g *Generator) WithPolicy(p composition.Policy) *Generator {
	cfg := g.cfg
	cfg.Policy = p
	return &Generator{cfg: cfg}
}

// Policy returns the composition policy in use.
func (g *Generator) Policy() composition.Policy { return g.cfg.Policy }

// TemplateDir returns the directory templates are resolved in.
func (g *Generator) TemplateDir() string { return g.cfg.TemplateDir }

// OutputDir returns the directory generated files are written to.
func (g *Generator) OutputDir() string { return g.cfg.OutputDir }

// Filler returns the filler used for substitution.
func (g *Generator) Filler() *fill.Filler { return g.cfg.Filler }

// TemplatePath resolves the template for a product code.
func (g *Generator) TemplatePath(code string) (string, error) {
	if err := checkCode(code); err != nil {
		return "", err
	}
	return filepath.Join(g.cfg.TemplateDir, TemplateName(code)), nil
}

// Result describes one generated certificate.
type Result struct {
	ID         string                 `json:"id"`
	Row        int                    `json:"row,omitempty"`
	Record     Record                 `json:"record"`
	Components composition.Components `json:"components"`
	Fields     fill.Fields            `json:"fields"`
	Template   string                 `json:"template"`
	FileName   string                 `json:"file_name"`
	Path       string                 `json:"-"`
	Unmatched  []string               `json:"unmatched,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// Generate fills the template for rec.Code and writes the certificate to
// the output directory.
func (g *Generator) Generate(ctx context.Context, rec Record) (Result, error) {
	tplPath, err := g.TemplatePath(rec.Code)
	if err != nil {
		return Result{}, err
	}
	comps, err := g.cfg.Policy.Compute(rec.Moisture)
	if err != nil {
		return Result{}, fmt.Errorf("batch %s: %w", rec.BatchNo, err)
	}

	res := Result{
		ID:         uuid.NewString(),
		Record:     rec,
		Components: comps,
		Fields:     Fields(rec, comps),
		Template:   filepath.Base(tplPath),
		FileName:   OutputName(rec),
	}
	res.Path = filepath.Join(g.cfg.OutputDir, res.FileName)

	rep, err := g.cfg.Filler.Generate(ctx, tplPath, res.Path, res.Fields)
	if err != nil {
		return Result{}, err
	}
	res.Unmatched = rep.Unmatched
	res.CreatedAt = time.Now().UTC()

	g.cfg.Logger.Info("certificate generated",
		zap.String("code", rec.Code),
		zap.String("batch", rec.BatchNo),
		zap.String("file", res.FileName),
		zap.String("policy", g.cfg.Policy.Name()),
	)
	return res, nil
}

// Templates lists the product codes that have a template in the template
// directory, sorted.
func (g *Generator) Templates() ([]string, error) {
	entries, err := os.ReadDir(g.cfg.TemplateDir)
	if err != nil {
		return nil, fmt.Errorf("read template dir: %w", err)
	}
	var codes []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "COA ") || !strings.HasSuffix(name, ".docx") {
			continue
		}
		codes = append(codes, strings.TrimSuffix(strings.TrimPrefix(name, "COA "), ".docx"))
	}
	sort.Strings(codes)
	return codes, nil
}

func checkCode(code string) error {
	c := strings.TrimSpace(code)
	if c == "" || c == "." || c == ".." || strings.ContainsAny(c, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	return nil
}
