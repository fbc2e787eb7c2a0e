package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// StartRun inserts a run in the running state.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	status := run.Status
	if status == "" {
		status = RunRunning
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (
            id, base_name, input_dir, output_dir, language, status,
            chunk_count, outputs, log_path, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.BaseName,
		run.InputDir,
		nullableString(run.OutputDir),
		nullableString(run.Language),
		string(status),
		run.ChunkCount,
		encodeOutputs(run.Outputs),
		nullableString(run.LogPath),
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordChunk stores the outcome of one chunk, replacing any earlier row for
// the same run and index.
func (s *Store) RecordChunk(ctx context.Context, rec ChunkRecord) error {
	status := rec.Status
	if status == "" {
		status = ChunkOK
		if rec.ErrorMessage != "" {
			status = ChunkFailed
		}
	}
	_, err := s.execWithRetry(ctx,
		`INSERT OR REPLACE INTO chunks (`+chunkColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.Index,
		rec.Name,
		rec.Offset,
		rec.Duration,
		rec.DurationSource,
		rec.SegmentCount,
		rec.FirstOrdinal,
		string(status),
		boolToInt(rec.Retried),
		nullableString(rec.DroppedOption),
		nullableString(rec.ErrorMessage),
		rec.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record chunk %s: %w", rec.Name, err)
	}
	return nil
}

// FinishRun writes the final counters and status for a run.
func (s *Store) FinishRun(ctx context.Context, id string, result RunResult) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET
            status = ?, chunk_count = ?, segment_count = ?, failed_chunks = ?,
            total_seconds = ?, outputs = COALESCE(?, outputs), language = COALESCE(?, language),
            error_message = ?, finished_at = ?
        WHERE id = ?`,
		string(result.Status),
		result.ChunkCount,
		result.SegmentCount,
		result.FailedChunks,
		result.TotalSeconds,
		encodeOutputs(result.Outputs),
		nullableString(result.Language),
		nullableString(result.ErrorMessage),
		formatTime(result.FinishedAt),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose id equals or uniquely starts with id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id LIKE ? ESCAPE '\\' LIMIT 2", escapeLike(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()
	var matches []*Run
	for rows.Next() {
		match, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
	}
}

// ListChunks returns a run's chunk records in index order.
func (s *Store) ListChunks(ctx context.Context, runID string) ([]ChunkRecord, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE run_id = ? ORDER BY idx", runID)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []ChunkRecord
	for rows.Next() {
		rec, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, *rec)
	}
	return chunks, rows.Err()
}

// PruneBefore deletes runs started before cutoff along with their chunks.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM runs WHERE started_at < ?", formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
