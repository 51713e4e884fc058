package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/mdmirror/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func sampleRun(root string, started time.Time) *model.RunResult {
	run := model.NewRunResult(root, model.NamingAscending, 2)
	run.StartedAt = started
	run.FinishedAt = started.Add(3 * time.Second)
	run.FilesFound = 3
	run.FilesProcessed = 2
	run.Failures = append(run.Failures, model.DocumentFailure{Path: "broken.md", Error: "permission denied"})
	run.ImagesSeen = 5
	run.ImagesProcessed = 3
	run.ImagesDownloaded = 2
	run.ImagesFailed = 1
	run.ImagesWithMetadata = 1
	run.RemovedDirs = []string{"empty_images"}
	return run
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, DBFileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, DBFileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})

	t.Run("reopens existing database without WAL", func(t *testing.T) {
		t.Parallel()

		dbDir := t.TempDir()
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: false})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

// TestRunLifecycle tests starting, finishing and reading back a run.
func TestRunLifecycle(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	run := sampleRun("/notes", started)

	id, err := db.StartRun(ctx, run)
	if err != nil {
		t.Fatalf("failed to start run: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty run ID")
	}

	pending, err := db.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if pending.Finished() {
		t.Error("expected run to be unfinished before FinishRun")
	}

	if err := db.FinishRun(ctx, id, run); err != nil {
		t.Fatalf("failed to finish run: %v", err)
	}

	got, err := db.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}

	if got.Root != "/notes" || got.Naming != "asc" || got.Workers != 2 {
		t.Errorf("unexpected run header: %+v", got)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("expected start %v, got %v", started, got.StartedAt)
	}
	if !got.FinishedAt.Equal(started.Add(3 * time.Second)) {
		t.Errorf("unexpected finish time %v", got.FinishedAt)
	}
	if got.FilesFound != 3 || got.FilesProcessed != 2 || got.FilesFailed != 1 {
		t.Errorf("unexpected file counters: %+v", got)
	}
	if got.ImagesSeen != 5 || got.ImagesProcessed != 3 || got.ImagesDownloaded != 2 || got.ImagesFailed != 1 {
		t.Errorf("unexpected image counters: %+v", got)
	}
	if got.ImagesWithMetadata != 1 || got.RemovedDirs != 1 {
		t.Errorf("unexpected extra counters: %+v", got)
	}
}

// TestGetRunNotFound tests lookups of unknown runs.
func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)

	if _, err := db.GetRun(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if err := db.FinishRun(context.Background(), "missing", sampleRun("/x", time.Now())); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

// TestListRuns tests ordering and limits.
func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	roots := []string{"/first", "/second", "/third"}
	for i, root := range roots {
		if _, err := db.StartRun(ctx, sampleRun(root, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("failed to start run: %v", err)
		}
	}

	runs, err := db.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].Root != "/third" || runs[2].Root != "/first" {
		t.Errorf("expected newest first, got %s ... %s", runs[0].Root, runs[2].Root)
	}

	limited, err := db.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 runs, got %d", len(limited))
	}
}

// TestDownloads tests storing and reading download records.
func TestDownloads(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	id, err := db.StartRun(ctx, sampleRun("/notes", time.Now()))
	if err != nil {
		t.Fatalf("failed to start run: %v", err)
	}

	records := []model.DownloadRecord{
		{
			Document:  "/notes/a.md",
			Line:      3,
			URL:       "https://cdn.example.com/a.jpg",
			LocalPath: "/notes/a_images/a.jpg",
			Outcome:   model.OutcomeDownloaded,
			Bytes:     1024,
			Worker:    "worker-1",
			Metadata: []model.MetadataFinding{
				{Category: model.MetadataLocation, Tag: "GPSLatitude", Value: "35/1"},
			},
		},
		{
			Document:   "/notes/a.md",
			Line:       7,
			URL:        "https://cdn.example.com/gone.png",
			LocalPath:  "/notes/a_images/gone.png",
			Outcome:    model.OutcomeHTTPError,
			StatusCode: 404,
			Error:      "unexpected status 404",
			Worker:     "worker-1",
		},
		{
			Document:  "/notes/a.md",
			Line:      9,
			URL:       "https://cdn.example.com/b.png",
			LocalPath: "/notes/a_images/b.png",
			Outcome:   model.OutcomeExists,
			Worker:    "worker-1",
		},
	}

	if err := db.InsertDownloads(ctx, id, records); err != nil {
		t.Fatalf("failed to insert downloads: %v", err)
	}
	if err := db.InsertDownloads(ctx, id, nil); err != nil {
		t.Fatalf("expected empty insert to succeed: %v", err)
	}

	got, err := db.GetRunDownloads(ctx, id)
	if err != nil {
		t.Fatalf("failed to get downloads: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}

	if got[0].Outcome != model.OutcomeDownloaded || got[0].Bytes != 1024 || got[0].Line != 3 {
		t.Errorf("unexpected first record: %+v", got[0])
	}
	if len(got[0].Metadata) != 1 || got[0].Metadata[0].Tag != "GPSLatitude" {
		t.Errorf("expected metadata to round-trip, got %+v", got[0].Metadata)
	}
	if got[1].StatusCode != 404 || got[1].Error == "" {
		t.Errorf("unexpected failure record: %+v", got[1])
	}
	if got[2].Metadata != nil {
		t.Errorf("expected nil metadata, got %+v", got[2].Metadata)
	}

	counts, err := db.CountDownloadsByOutcome(ctx, id)
	if err != nil {
		t.Fatalf("failed to count downloads: %v", err)
	}
	if counts[model.OutcomeDownloaded] != 1 || counts[model.OutcomeHTTPError] != 1 || counts[model.OutcomeExists] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

// TestParseTimestamp tests timestamp parsing with various formats.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		zero  bool
	}{
		{name: "stored layout", input: "2026-01-02T03:04:05.000000000Z"},
		{name: "sqlite default", input: "2026-01-02 03:04:05"},
		{name: "iso with Z", input: "2026-01-02T03:04:05Z"},
		{name: "rfc3339 offset", input: "2026-01-02T03:04:05+09:00"},
		{name: "garbage", input: "not a time", zero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := parseTimestamp(tt.input)
			if got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) zero=%v, want zero=%v", tt.input, got.IsZero(), tt.zero)
			}
		})
	}
}
