package report

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/nao1215/mdmirror/internal/model"
)

// Writer defines the interface for run summary output.
//
// Design decision: We use an interface to allow different output formats
// and destinations. The CLI picks one based on the --report flag.
type Writer interface {
	// Write outputs the summary to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(run *model.RunResult) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for printing to the terminal and saving a file at once.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the summary to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(run *model.RunResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// NewWriterForPath returns the writer matching the extension of path:
// JSON for ".json", Markdown for everything else.
func NewWriterForPath(path string, output io.Writer, version string) Writer {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return NewJSONWriter(output, version, WithPrettyPrint())
	}
	return NewMarkdownWriter(output)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// failedDownloads returns the records whose download failed.
func failedDownloads(run *model.RunResult) []model.DownloadRecord {
	failed := make([]model.DownloadRecord, 0)
	for _, rec := range run.Downloads {
		if !rec.Outcome.Succeeded() {
			failed = append(failed, rec)
		}
	}
	return failed
}

// flaggedDownloads returns the records with identifying metadata.
func flaggedDownloads(run *model.RunResult) []model.DownloadRecord {
	flagged := make([]model.DownloadRecord, 0)
	for _, rec := range run.Downloads {
		if len(rec.Metadata) > 0 {
			flagged = append(flagged, rec)
		}
	}
	return flagged
}

// skippedImages is the number of image references that were neither
// mirrored nor failed: local, relative or excluded ones.
func skippedImages(run *model.RunResult) int {
	n := run.ImagesSeen - run.ImagesProcessed - run.ImagesFailed
	if n < 0 {
		return 0
	}
	return n
}

// statusText summarizes the run outcome in a few words.
func statusText(run *model.RunResult) string {
	switch {
	case len(run.Failures) > 0 && run.FilesProcessed == 0:
		return "Failed"
	case len(run.Failures) > 0 || run.ImagesFailed > 0:
		return "Completed with errors"
	default:
		return "Complete"
	}
}
