package database

import (
	"context"
	"database/sql"
	"time"

	"glitzhit/internal/jobs"
)

// Conversion is one finished job in the history table.
type Conversion struct {
	ID          int64     `json:"id"`
	JobID       string    `json:"jobId"`
	Source      string    `json:"source"`
	Algorithm   string    `json:"algorithm,omitempty"`
	PixelFormat string    `json:"pixelFormat"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	FrameRate   float64   `json:"frameRate"`
	ScaleWidth  int       `json:"scaleWidth"`
	ScaleHeight int       `json:"scaleHeight"`
	State       string    `json:"state"`
	ExitCode    int       `json:"exitCode"`
	TotalFrames int64     `json:"totalFrames"`
	Frames      int64     `json:"frames"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Duration    int64     `json:"durationMs"`
}

// DefaultHistoryLimit is used when a caller asks for a non-positive number of rows.
const DefaultHistoryLimit = 50

// MaxHistoryLimit caps a single history query.
const MaxHistoryLimit = 500

// RecordOutcome appends the terminal state of job. Recording the same job
// twice keeps the first row.
func (d *Database) RecordOutcome(ctx context.Context, job jobs.Job, exitCode int) (err error) {
	start := time.Now()
	defer func() { recordQuery("record_outcome", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	finished := job.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	var durationMs int64
	if !job.StartedAt.IsZero() {
		durationMs = finished.Sub(job.StartedAt).Milliseconds()
	}

	var algorithm sql.NullString
	if s := job.Params.Synthesis; s != nil {
		algorithm = sql.NullString{String: string(s.Algorithm), Valid: true}
	}

	_, err = d.db.ExecContext(ctx, `
	INSERT INTO conversions (
		job_id, source, algorithm, pixel_format, width, height, frame_rate,
		scale_width, scale_height, state, exit_code, total_frames, frames,
		message, created_at, finished_at, duration_ms
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(job_id) DO NOTHING`,
		job.ID,
		job.Params.Source(),
		algorithm,
		job.Params.PixelFormat,
		job.Params.Width,
		job.Params.Height,
		job.Params.FrameRate,
		job.Params.Scale.Width,
		job.Params.Scale.Height,
		string(job.State),
		exitCode,
		job.TotalFrames,
		job.Frame,
		job.Message,
		job.CreatedAt.UnixMilli(),
		finished.UnixMilli(),
		durationMs,
	)
	return err
}

// Recent returns up to limit conversions, newest first.
func (d *Database) Recent(ctx context.Context, limit int) (_ []Conversion, err error) {
	start := time.Now()
	defer func() { recordQuery("recent", start, err) }()

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
	SELECT id, job_id, source, COALESCE(algorithm, ''), pixel_format, width, height, frame_rate,
	       scale_width, scale_height, state, exit_code, total_frames, frames,
	       COALESCE(message, ''), created_at, finished_at, duration_ms
	FROM conversions
	ORDER BY finished_at DESC, id DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	conversions := make([]Conversion, 0, limit)
	for rows.Next() {
		var c Conversion
		var created, finished int64
		if err = rows.Scan(
			&c.ID, &c.JobID, &c.Source, &c.Algorithm, &c.PixelFormat, &c.Width, &c.Height, &c.FrameRate,
			&c.ScaleWidth, &c.ScaleHeight, &c.State, &c.ExitCode, &c.TotalFrames, &c.Frames,
			&c.Message, &created, &finished, &c.Duration,
		); err != nil {
			return nil, err
		}
		c.CreatedAt = time.UnixMilli(created)
		c.FinishedAt = time.UnixMilli(finished)
		conversions = append(conversions, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return conversions, nil
}

// Summary counts recorded conversions by terminal state.
func (d *Database) Summary(ctx context.Context) (_ map[string]int, err error) {
	start := time.Now()
	defer func() { recordQuery("summary", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM conversions GROUP BY state`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	summary := map[string]int{
		string(jobs.StateSucceeded): 0,
		string(jobs.StateFailed):    0,
		string(jobs.StateCancelled): 0,
	}
	for rows.Next() {
		var state string
		var n int
		if err = rows.Scan(&state, &n); err != nil {
			return nil, err
		}
		summary[state] = n
	}
	return summary, rows.Err()
}
