package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"glitzhit/internal/jobs"
	"glitzhit/internal/synth"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()

	db, err := New(context.Background(), filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

func finishedJob(id string, state jobs.State, finished time.Time) jobs.Job {
	return jobs.Job{
		ID: id,
		Params: jobs.Params{
			PixelFormat: "rgb24",
			Width:       64,
			Height:      64,
			FrameRate:   10,
			Scale:       jobs.SquareScale(512),
			Audio:       jobs.DefaultAudioParams(),
		},
		State:       state,
		CreatedAt:   finished.Add(-2 * time.Second),
		StartedAt:   finished.Add(-1500 * time.Millisecond),
		FinishedAt:  finished,
		TotalFrames: 10,
		Frame:       10,
	}
}

func TestNewCreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	var count int
	err := db.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='conversions'`).Scan(&count)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected conversions table, found %d", count)
	}

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	first, err := New(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.RecordOutcome(context.Background(), finishedJob("a", jobs.StateSucceeded, time.Now()), 0); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := New(context.Background(), path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	rows, err := second.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("Expected 1 row after reopen, got %d", len(rows))
	}
}

func TestNewMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", FileName)
	if _, err := New(context.Background(), path); err == nil {
		t.Error("Expected error for a database in a missing directory")
	}
}

func TestRecordOutcomeAndRecent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	upload := finishedJob("upload-1", jobs.StateSucceeded, base)
	synthJob := finishedJob("synth-1", jobs.StateCancelled, base.Add(time.Minute))
	synthJob.Params.Synthesis = &jobs.SynthesisParams{Algorithm: synth.Sawtooth, Duration: 2, Dials: synth.DefaultDials()}
	synthJob.Message = "Processing canceled by user."
	synthJob.Frame = 4

	if err := db.RecordOutcome(ctx, upload, 0); err != nil {
		t.Fatalf("RecordOutcome(upload) failed: %v", err)
	}
	if err := db.RecordOutcome(ctx, synthJob, 255); err != nil {
		t.Fatalf("RecordOutcome(synth) failed: %v", err)
	}

	rows, err := db.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}

	newest := rows[0]
	if newest.JobID != "synth-1" {
		t.Errorf("Expected newest row synth-1, got %s", newest.JobID)
	}
	if newest.Source != "synth" || newest.Algorithm != "sawtooth" {
		t.Errorf("Unexpected source/algorithm: %s/%s", newest.Source, newest.Algorithm)
	}
	if newest.State != "cancelled" || newest.ExitCode != 255 || newest.Frames != 4 {
		t.Errorf("Unexpected outcome: %+v", newest)
	}
	if newest.Message != "Processing canceled by user." {
		t.Errorf("Unexpected message %q", newest.Message)
	}
	if newest.Duration != 1500 {
		t.Errorf("Expected duration 1500ms, got %d", newest.Duration)
	}
	if !newest.FinishedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("Expected finishedAt %v, got %v", base.Add(time.Minute), newest.FinishedAt)
	}

	oldest := rows[1]
	if oldest.Source != "upload" || oldest.Algorithm != "" {
		t.Errorf("Unexpected upload row: %+v", oldest)
	}
	if oldest.ScaleWidth != 512 || oldest.Width != 64 || oldest.FrameRate != 10 {
		t.Errorf("Unexpected upload params: %+v", oldest)
	}
}

func TestRecordOutcomeIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	job := finishedJob("dup", jobs.StateFailed, time.Now())

	for i := 0; i < 3; i++ {
		if err := db.RecordOutcome(ctx, job, 1); err != nil {
			t.Fatalf("RecordOutcome #%d failed: %v", i, err)
		}
	}

	rows, err := db.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("Expected 1 row, got %d", len(rows))
	}
}

func TestRecordOutcomeWithoutStart(t *testing.T) {
	db := setupTestDB(t)
	job := finishedJob("spawn-fail", jobs.StateFailed, time.Now())
	job.StartedAt = time.Time{}

	if err := db.RecordOutcome(context.Background(), job, -1); err != nil {
		t.Fatal(err)
	}
	rows, err := db.Recent(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].Duration != 0 || rows[0].ExitCode != -1 {
		t.Errorf("Unexpected row: %+v", rows[0])
	}
}

func TestRecentLimit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 5; i++ {
		job := finishedJob(jobs.NewID(), jobs.StateSucceeded, base.Add(time.Duration(i)*time.Second))
		if err := db.RecordOutcome(ctx, job, 0); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		limit int
		want  int
	}{
		{2, 2},
		{10, 5},
		{0, 5},
		{-1, 5},
	}
	for _, tt := range tests {
		rows, err := db.Recent(ctx, tt.limit)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != tt.want {
			t.Errorf("Recent(%d) returned %d rows, want %d", tt.limit, len(rows), tt.want)
		}
	}
}

func TestSummary(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now()

	states := []jobs.State{jobs.StateSucceeded, jobs.StateSucceeded, jobs.StateFailed}
	for _, s := range states {
		if err := db.RecordOutcome(ctx, finishedJob(jobs.NewID(), s, now), 0); err != nil {
			t.Fatal(err)
		}
	}

	summary, err := db.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary["succeeded"] != 2 || summary["failed"] != 1 || summary["cancelled"] != 0 {
		t.Errorf("Unexpected summary: %v", summary)
	}
}

func TestRecordOutcomeAfterClose(t *testing.T) {
	db, err := New(context.Background(), filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	err = db.RecordOutcome(context.Background(), finishedJob("x", jobs.StateFailed, time.Now()), 1)
	if err == nil {
		t.Error("Expected error after Close")
	}
}

func TestRecordQuery(t *testing.T) {
	// Should not panic for either outcome.
	recordQuery("recent", time.Now(), nil)
	recordQuery("recent", time.Now(), errors.New("boom"))
}

func TestDiagnoseDatabasePermissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path+"-wal", nil, 0o400); err != nil {
		t.Fatal(err)
	}

	if err := diagnoseDatabasePermissions(path); err != nil {
		t.Fatalf("diagnoseDatabasePermissions failed: %v", err)
	}

	info, err := os.Stat(path + "-wal")
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o200 == 0 {
		t.Error("Expected read-only WAL file to be made writable")
	}

	if err := diagnoseDatabasePermissions(filepath.Join(dir, "missing", FileName)); err == nil {
		t.Error("Expected error for a missing directory")
	}
}
