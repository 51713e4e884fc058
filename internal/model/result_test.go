package model

import (
	"errors"
	"testing"
	"time"
)

// TestRunResultAddDocument tests aggregation of document results.
func TestRunResultAddDocument(t *testing.T) {
	t.Parallel()

	r := NewRunResult("/notes", NamingOriginal, 2)

	r.AddDocument(&DocumentResult{
		Path:             "/notes/a.md",
		ImageDir:         "/notes/a_images",
		ImagesSeen:       3,
		ImagesProcessed:  2,
		ImagesDownloaded: 1,
		ImagesFailed:     1,
		Downloads: []DownloadRecord{
			{URL: "https://cdn.example.com/x.png", Outcome: OutcomeDownloaded},
			{URL: "https://cdn.example.com/y.png", Outcome: OutcomeHTTPError, StatusCode: 404},
		},
	})
	r.AddDocument(&DocumentResult{
		Path:            "/notes/b.md",
		ImageDir:        "/notes/b_images",
		ImagesSeen:      1,
		ImagesProcessed: 1,
	})

	if r.FilesProcessed != 2 {
		t.Errorf("expected 2 files processed, got %d", r.FilesProcessed)
	}
	if r.ImagesSeen != 4 {
		t.Errorf("expected 4 images seen, got %d", r.ImagesSeen)
	}
	if r.ImagesProcessed != 3 {
		t.Errorf("expected 3 images processed, got %d", r.ImagesProcessed)
	}
	if r.ImagesDownloaded != 1 {
		t.Errorf("expected 1 image downloaded, got %d", r.ImagesDownloaded)
	}
	if r.ImagesFailed != 1 {
		t.Errorf("expected 1 image failed, got %d", r.ImagesFailed)
	}
	if len(r.Downloads) != 2 {
		t.Errorf("expected 2 download records, got %d", len(r.Downloads))
	}

	dirs := r.SortedImageDirs()
	if len(dirs) != 2 || dirs[0] != "/notes/a_images" || dirs[1] != "/notes/b_images" {
		t.Errorf("unexpected image dirs: %v", dirs)
	}
}

// TestRunResultAddFailure tests that failed documents keep their image directory.
func TestRunResultAddFailure(t *testing.T) {
	t.Parallel()

	r := NewRunResult("/notes", NamingAscending, 1)
	r.AddFailure("/notes/broken.md", "/notes/broken_images", errors.New("permission denied"))

	if r.FilesProcessed != 0 {
		t.Errorf("failed documents must not count as processed, got %d", r.FilesProcessed)
	}
	if len(r.Failures) != 1 || r.Failures[0].Error != "permission denied" {
		t.Errorf("unexpected failures: %+v", r.Failures)
	}
	if _, ok := r.ImageDirs["/notes/broken_images"]; !ok {
		t.Error("expected image dir of failed document to be tracked")
	}
}

// TestRunResultElapsed tests elapsed time calculation.
func TestRunResultElapsed(t *testing.T) {
	t.Parallel()

	r := NewRunResult("/notes", NamingUUID, 1)
	r.StartedAt = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.FinishedAt = r.StartedAt.Add(3 * time.Second)

	if got := r.Elapsed(); got != 3*time.Second {
		t.Errorf("expected 3s, got %s", got)
	}
}

// TestDownloadOutcomeSucceeded tests the success classification of outcomes.
func TestDownloadOutcomeSucceeded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		outcome DownloadOutcome
		want    bool
	}{
		{OutcomeDownloaded, true},
		{OutcomeExists, true},
		{OutcomeHTTPError, false},
		{OutcomeTransportError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.outcome), func(t *testing.T) {
			t.Parallel()
			if got := tt.outcome.Succeeded(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
