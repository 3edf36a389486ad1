package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coagen/internal/coa"
	"coagen/internal/composition"
	"coagen/internal/fill"
	"coagen/internal/models"
)

// timeFormat has a fixed-width fraction so stored timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000Z07:00"

func now() string { return time.Now().UTC().Format(timeFormat) }

// CreateBatch records the start of a batch run.
func (s *Store) CreateBatch(ctx context.Context, id, source, actor string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO batches (id, source, status, actor, created_at) VALUES (?, ?, ?, ?, ?)",
		id, source, StatusRunning, actor, now())
	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// FinishBatch stores the final counts and status of a batch.
func (s *Store) FinishBatch(ctx context.Context, res *coa.BatchResult) error {
	status := StatusCompleted
	if res.Cancelled {
		status = StatusCancelled
	}
	finished := res.FinishedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}
	r, err := s.db.ExecContext(ctx,
		"UPDATE batches SET status=?, generated=?, skipped=?, finished_at=? WHERE id=?",
		status, len(res.Generated), len(res.Skipped), finished.UTC().Format(timeFormat), res.ID)
	if err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	if n, _ := r.RowsAffected(); n == 0 {
		return fmt.Errorf("finish batch %s: %w", res.ID, ErrNotFound)
	}
	return nil
}

// RecordGeneration stores a generated certificate. batchID may be empty
// for single generations.
func (s *Store) RecordGeneration(ctx context.Context, batchID, actor, policy string, res coa.Result) error {
	record, err := json.Marshal(res.Record)
	if err != nil {
		return err
	}
	comps, err := json.Marshal(res.Components)
	if err != nil {
		return err
	}
	fields, err := json.Marshal(res.Fields)
	if err != nil {
		return err
	}
	created := res.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO generations (id, batch_id, row_number, code, batch_no, date, moisture, policy, file_name,
			record, components, fields, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, nullable(batchID), res.Row, res.Record.Code, res.Record.BatchNo, res.Record.Date, res.Record.Moisture,
		policy, res.FileName, string(record), string(comps), string(fields), actor, created.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("record generation: %w", err)
	}
	return nil
}

// RecordSkip stores a skipped batch row.
func (s *Store) RecordSkip(ctx context.Context, batchID string, sk coa.Skip) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO batch_skips (batch_id, row_number, code, batch_no, reason) VALUES (?, ?, ?, ?, ?)",
		batchID, sk.Row, sk.Code, sk.Batch, sk.Reason)
	if err != nil {
		return fmt.Errorf("record skip: %w", err)
	}
	return nil
}

// Batch returns a batch summary with its generations and skips.
func (s *Store) Batch(ctx context.Context, id string) (models.Batch, error) {
	var b models.Batch
	var finished sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, source, status, generated, skipped, actor, created_at, finished_at FROM batches WHERE id=?", id).
		Scan(&b.ID, &b.Source, &b.Status, &b.Generated, &b.Skipped, &b.Actor, &b.CreatedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return b, fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return b, err
	}
	if finished.Valid {
		b.FinishedAt = &finished.String
	}

	b.Generations, err = s.generations(ctx, "WHERE batch_id=? ORDER BY row_number, created_at", id)
	if err != nil {
		return b, err
	}
	b.Skips, err = s.skips(ctx, id)
	if err != nil {
		return b, err
	}
	return b, nil
}

// BatchResult rebuilds the generation outcome of a stored batch, for
// archives and reports. Result.Path is left empty.
func (s *Store) BatchResult(ctx context.Context, id string) (*coa.BatchResult, error) {
	var started string
	var finished sql.NullString
	var status string
	err := s.db.QueryRowContext(ctx, "SELECT status, created_at, finished_at FROM batches WHERE id=?", id).
		Scan(&status, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	res := &coa.BatchResult{ID: id, Generated: []coa.Result{}, Skipped: []coa.Skip{}, Cancelled: status == StatusCancelled}
	res.StartedAt, _ = time.Parse(timeFormat, started)
	if finished.Valid {
		res.FinishedAt, _ = time.Parse(timeFormat, finished.String)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, row_number, file_name, record, components, fields, created_at
		FROM generations WHERE batch_id=? ORDER BY row_number, created_at`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		res.Generated = append(res.Generated, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	skips, err := s.skips(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, sk := range skips {
		res.Skipped = append(res.Skipped, coa.Skip{Row: sk.Row, Code: sk.Code, Batch: sk.Batch, Reason: sk.Reason})
	}
	return res, nil
}

// LatestGeneration returns the most recent generation written to fileName.
func (s *Store) LatestGeneration(ctx context.Context, fileName string) (coa.Result, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, row_number, file_name, record, components, fields, created_at
		FROM generations WHERE file_name=? ORDER BY created_at DESC LIMIT 1`, fileName)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("generation %s: %w", fileName, ErrNotFound)
	}
	return r, err
}

// History returns recent generations, newest first, and the total count.
func (s *Store) History(ctx context.Context, limit, offset int) ([]models.Generation, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM generations").Scan(&total); err != nil {
		return nil, 0, err
	}
	gens, err := s.generations(ctx, "ORDER BY created_at DESC LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return gens, total, nil
}

func (s *Store) generations(ctx context.Context, where string, args ...any) ([]models.Generation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(batch_id,''), row_number, code, batch_no, date, moisture, policy, file_name, fields, actor, created_at
		FROM generations `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Generation{}
	for rows.Next() {
		var g models.Generation
		var fields string
		if err := rows.Scan(&g.ID, &g.BatchID, &g.Row, &g.Code, &g.BatchNo, &g.Date, &g.Moisture, &g.Policy,
			&g.FileName, &fields, &g.Actor, &g.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fields), &g.Fields); err != nil {
			return nil, fmt.Errorf("decode fields of %s: %w", g.ID, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) skips(ctx context.Context, batchID string) ([]models.Skip, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT row_number, code, batch_no, reason FROM batch_skips WHERE batch_id=? ORDER BY row_number, id", batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Skip{}
	for rows.Next() {
		var sk models.Skip
		if err := rows.Scan(&sk.Row, &sk.Code, &sk.Batch, &sk.Reason); err != nil {
			return nil, err
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(sc scanner) (coa.Result, error) {
	var r coa.Result
	var record, comps, fields, created string
	if err := sc.Scan(&r.ID, &r.Row, &r.FileName, &record, &comps, &fields, &created); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(record), &r.Record); err != nil {
		return r, fmt.Errorf("decode record of %s: %w", r.ID, err)
	}
	var c composition.Components
	if err := json.Unmarshal([]byte(comps), &c); err != nil {
		return r, fmt.Errorf("decode components of %s: %w", r.ID, err)
	}
	r.Components = c
	var f fill.Fields
	if err := json.Unmarshal([]byte(fields), &f); err != nil {
		return r, fmt.Errorf("decode fields of %s: %w", r.ID, err)
	}
	r.Fields = f
	r.Template = coa.TemplateName(r.Record.Code)
	r.CreatedAt, _ = time.Parse(timeFormat, created)
	return r, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
