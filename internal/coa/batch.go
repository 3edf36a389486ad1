package coa

import (
	"context"
	"errors"
	"time"

	"coagen/internal/fill"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Row is a record together with its 1-based position in the input.
type Row struct {
	Number int
	Record Record
}

// Skip is a row that produced no certificate.
type Skip struct {
	Row    int    `json:"row"`
	Code   string `json:"code"`
	Batch  string `json:"batch_no,omitempty"`
	Reason string `json:"reason"`
}

// Notifier observes batch progress. Implementations must be safe to call
// from the goroutine running the batch.
type Notifier interface {
	Generated(batchID string, res Result)
	Skipped(batchID string, s Skip)
}

// BatchResult is the outcome of a batch run. Generated and Skipped are in
// row order.
type BatchResult struct {
	ID         string    `json:"id"`
	Generated  []Result  `json:"generated"`
	Skipped    []Skip    `json:"skipped"`
	Cancelled  bool      `json:"cancelled,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewBatchResult starts an empty result with a fresh ID.
func NewBatchResult() *BatchResult {
	return &BatchResult{
		ID:        uuid.NewString(),
		Generated: []Result{},
		Skipped:   []Skip{},
		StartedAt: time.Now().UTC(),
	}
}

// AddSkips records rows rejected before generation, such as spreadsheet
// rows whose moisture could not be parsed.
func (b *BatchResult) AddSkips(skips ...Skip) {
	b.Skipped = append(b.Skipped, skips...)
}

// Paths returns the output paths of the generated certificates.
func (b *BatchResult) Paths() []string {
	out := make([]string, 0, len(b.Generated))
	for _, r := range b.Generated {
		out = append(out, r.Path)
	}
	return out
}

// Batch generates a certificate for each row in order. A row that fails is
// recorded as a Skip and the remaining rows still run. Cancelling ctx stops
// the batch between rows. n may be nil.
func (g *Generator) Batch(ctx context.Context, rows []Row, n Notifier) *BatchResult {
	res := NewBatchResult()
	g.RunBatch(ctx, res, rows, n)
	return res
}

// RunBatch is Batch for a result that already holds pre-generation skips.
func (g *Generator) RunBatch(ctx context.Context, res *BatchResult, rows []Row, n Notifier) {
	for _, row := range rows {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		out, err := g.Generate(ctx, row.Record)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				res.Cancelled = true
				break
			}
			s := Skip{Row: row.Number, Code: row.Record.Code, Batch: row.Record.BatchNo, Reason: skipReason(row.Record, err)}
			res.Skipped = append(res.Skipped, s)
			g.cfg.Logger.Warn("row skipped",
				zap.String("batch_id", res.ID),
				zap.Int("row", s.Row),
				zap.String("code", s.Code),
				zap.Error(err),
			)
			if n != nil {
				n.Skipped(res.ID, s)
			}
			continue
		}
		out.Row = row.Number
		res.Generated = append(res.Generated, out)
		if n != nil {
			n.Generated(res.ID, out)
		}
	}
	res.FinishedAt = time.Now().UTC()

	g.cfg.Logger.Info("batch finished",
		zap.String("batch_id", res.ID),
		zap.Int("generated", len(res.Generated)),
		zap.Int("skipped", len(res.Skipped)),
		zap.Bool("cancelled", res.Cancelled),
	)
}

func skipReason(rec Record, err error) string {
	if errors.Is(err, fill.ErrTemplateNotFound) {
		return "template " + TemplateName(rec.Code) + " not found"
	}
	return err.Error()
}
