package model

import (
	"sort"
	"time"
)

// DownloadOutcome classifies what happened to one eligible image reference.
type DownloadOutcome string

const (
	// OutcomeDownloaded means the image was fetched and written to disk.
	OutcomeDownloaded DownloadOutcome = "downloaded"

	// OutcomeExists means the local file was already present and the fetch was skipped.
	OutcomeExists DownloadOutcome = "exists"

	// OutcomeHTTPError means the server answered with a status other than 200.
	OutcomeHTTPError DownloadOutcome = "http_error"

	// OutcomeTransportError means the request failed before a response arrived.
	OutcomeTransportError DownloadOutcome = "transport_error"
)

// Succeeded reports whether the reference now points at a local file.
func (o DownloadOutcome) Succeeded() bool {
	return o == OutcomeDownloaded || o == OutcomeExists
}

// DownloadRecord describes the outcome for one eligible image reference.
type DownloadRecord struct {
	// Document is the path of the document containing the reference.
	Document string `json:"document"`

	// Line is the 1-based line number of the reference.
	Line int `json:"line"`

	// URL is the remote image URL.
	URL string `json:"url"`

	// LocalPath is the computed destination on disk.
	LocalPath string `json:"localPath"`

	// Outcome is the classified result.
	Outcome DownloadOutcome `json:"outcome"`

	// StatusCode is the HTTP status for OutcomeHTTPError, zero otherwise.
	StatusCode int `json:"statusCode,omitempty"`

	// Bytes is the number of bytes written for OutcomeDownloaded.
	Bytes int64 `json:"bytes,omitempty"`

	// Error holds the failure message for failed outcomes.
	Error string `json:"error,omitempty"`

	// Worker identifies the pool worker that handled the document.
	Worker string `json:"worker"`

	// Metadata lists identifying EXIF tags found in the downloaded file.
	Metadata []MetadataFinding `json:"metadata,omitempty"`
}

// DocumentResult holds the counters of a single rewritten document.
type DocumentResult struct {
	// Path is the document path.
	Path string

	// ImageDir is the sibling image directory used for this document.
	ImageDir string

	// ImagesSeen counts every reference with an image extension,
	// including local, excluded and failed ones.
	ImagesSeen int

	// ImagesProcessed counts references that now point at a local copy.
	ImagesProcessed int

	// ImagesDownloaded counts references whose image was fetched in this run.
	ImagesDownloaded int

	// ImagesFailed counts eligible references whose download failed.
	ImagesFailed int

	// ImagesWithMetadata counts newly downloaded images that carry
	// identifying EXIF metadata. Only populated when the audit is enabled.
	ImagesWithMetadata int

	// Downloads lists the outcome of every eligible reference in textual order.
	Downloads []DownloadRecord
}

// DocumentFailure records a document that could not be processed.
type DocumentFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// RunResult aggregates the results of a batch run.
// It is only mutated by the goroutine coordinating the batch.
type RunResult struct {
	// Root is the directory that was scanned.
	Root string

	// Naming is the policy used for the run.
	Naming NamingPolicy

	// Workers is the pool size used for the run.
	Workers int

	StartedAt  time.Time
	FinishedAt time.Time

	// FilesFound is the number of Markdown documents discovered.
	FilesFound int

	// FilesProcessed is the number of documents rewritten without error.
	FilesProcessed int

	ImagesSeen       int
	ImagesProcessed  int
	ImagesDownloaded int
	ImagesFailed     int

	// ImagesWithMetadata counts mirrored images flagged by the EXIF audit.
	ImagesWithMetadata int

	// Failures lists documents whose processing returned an error.
	Failures []DocumentFailure

	// ImageDirs is the set of image directories touched during the run.
	ImageDirs map[string]struct{}

	// RemovedDirs lists the empty image directories deleted after the run.
	RemovedDirs []string

	// Downloads holds every download record produced during the run.
	Downloads []DownloadRecord
}

// NewRunResult creates an empty RunResult for the given root.
func NewRunResult(root string, naming NamingPolicy, workers int) *RunResult {
	return &RunResult{
		Root:      root,
		Naming:    naming,
		Workers:   workers,
		StartedAt: time.Now(),
		Failures:  make([]DocumentFailure, 0),
		ImageDirs: make(map[string]struct{}),
	}
}

// AddDocument folds a successful document result into the run totals.
func (r *RunResult) AddDocument(doc *DocumentResult) {
	r.FilesProcessed++
	r.ImagesSeen += doc.ImagesSeen
	r.ImagesProcessed += doc.ImagesProcessed
	r.ImagesDownloaded += doc.ImagesDownloaded
	r.ImagesFailed += doc.ImagesFailed
	r.ImagesWithMetadata += doc.ImagesWithMetadata
	if doc.ImageDir != "" {
		r.ImageDirs[doc.ImageDir] = struct{}{}
	}
	r.Downloads = append(r.Downloads, doc.Downloads...)
}

// AddFailure records a document that failed.
// The image directory is still tracked so that cleanup can consider it.
func (r *RunResult) AddFailure(path, imageDir string, err error) {
	r.Failures = append(r.Failures, DocumentFailure{Path: path, Error: err.Error()})
	if imageDir != "" {
		r.ImageDirs[imageDir] = struct{}{}
	}
}

// SortedImageDirs returns the touched image directories in lexical order.
func (r *RunResult) SortedImageDirs() []string {
	dirs := make([]string, 0, len(r.ImageDirs))
	for d := range r.ImageDirs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Elapsed returns the wall time of the run.
func (r *RunResult) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
