package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const runColumns = "id, base_name, input_dir, output_dir, language, status, chunk_count, segment_count, failed_chunks, total_seconds, outputs, log_path, error_message, started_at, finished_at"

const chunkColumns = "run_id, idx, name, offset_seconds, duration, duration_source, segment_count, first_ordinal, status, retried, dropped_option, error_message, elapsed_ms"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		outputDir   sql.NullString
		language    sql.NullString
		status      string
		outputs     sql.NullString
		logPath     sql.NullString
		errorMsg    sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.BaseName,
		&run.InputDir,
		&outputDir,
		&language,
		&status,
		&run.ChunkCount,
		&run.SegmentCount,
		&run.FailedChunks,
		&run.TotalSeconds,
		&outputs,
		&logPath,
		&errorMsg,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	run.OutputDir = outputDir.String
	run.Language = language.String
	run.Status = RunStatus(status)
	run.LogPath = logPath.String
	run.ErrorMessage = errorMsg.String
	if outputs.Valid && outputs.String != "" {
		_ = json.Unmarshal([]byte(outputs.String), &run.Outputs)
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}

func scanChunk(scanner interface{ Scan(dest ...any) error }) (*ChunkRecord, error) {
	var (
		rec       ChunkRecord
		status    string
		retried   int
		dropped   sql.NullString
		errorMsg  sql.NullString
		elapsedMS int64
	)
	if err := scanner.Scan(
		&rec.RunID,
		&rec.Index,
		&rec.Name,
		&rec.Offset,
		&rec.Duration,
		&rec.DurationSource,
		&rec.SegmentCount,
		&rec.FirstOrdinal,
		&status,
		&retried,
		&dropped,
		&errorMsg,
		&elapsedMS,
	); err != nil {
		return nil, err
	}
	rec.Status = ChunkStatus(status)
	rec.Retried = retried != 0
	rec.DroppedOption = dropped.String
	rec.ErrorMessage = errorMsg.String
	rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func encodeOutputs(outputs []string) any {
	if len(outputs) == 0 {
		return nil
	}
	data, err := json.Marshal(outputs)
	if err != nil {
		return nil
	}
	return string(data)
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
