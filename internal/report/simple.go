package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/mdmirror/internal/model"
)

// SimpleWriter outputs a human-readable text summary.
// This is what the run command prints when no report file is requested.
type SimpleWriter struct {
	baseWriter

	// verbose lists every failed download and removed directory.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary in human-readable format.
func (w *SimpleWriter) Write(run *model.RunResult) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, run)
	w.writeCounters(&sb, run)
	w.writeFailures(&sb, run)
	if w.verbose {
		w.writeRemovedDirs(&sb, run)
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, run *model.RunResult) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          MDMIRROR SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Root:           %s\n", run.Root))
	sb.WriteString(fmt.Sprintf("Naming Policy:  %s\n", run.Naming))
	sb.WriteString(fmt.Sprintf("Workers:        %d\n", run.Workers))
	sb.WriteString(fmt.Sprintf("Elapsed:        %s\n", run.Elapsed().Round(time.Millisecond)))
	sb.WriteString(fmt.Sprintf("Status:         %s\n", statusText(run)))
	sb.WriteString("\n")
}

// writeCounters writes the aggregate counters.
func (w *SimpleWriter) writeCounters(sb *strings.Builder, run *model.RunResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("TOTALS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Files processed:          %d of %d\n", run.FilesProcessed, run.FilesFound))
	sb.WriteString(fmt.Sprintf("  Images seen:              %d\n", run.ImagesSeen))
	sb.WriteString(fmt.Sprintf("  Images processed:         %d\n", run.ImagesProcessed))
	sb.WriteString(fmt.Sprintf("  Images newly downloaded:  %d\n", run.ImagesDownloaded))
	sb.WriteString(fmt.Sprintf("  Images failed:            %d\n", run.ImagesFailed))
	if run.ImagesWithMetadata > 0 {
		sb.WriteString(fmt.Sprintf("  Images with metadata:     %d\n", run.ImagesWithMetadata))
	}
	sb.WriteString(fmt.Sprintf("  Empty dirs removed:       %d\n", len(run.RemovedDirs)))
	sb.WriteString("\n")
}

// writeFailures writes failed documents, and failed downloads when verbose.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, run *model.RunResult) {
	failed := failedDownloads(run)
	if len(run.Failures) == 0 && (!w.verbose || len(failed) == 0) {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FAILURES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, f := range run.Failures {
		sb.WriteString(fmt.Sprintf("  [!] %s\n", f.Path))
		sb.WriteString(fmt.Sprintf("      %s\n", f.Error))
	}

	if w.verbose {
		for _, rec := range failed {
			sb.WriteString(fmt.Sprintf("  [-] %s:%d %s (%s)\n", rec.Document, rec.Line, rec.URL, failureReason(rec)))
		}
	}
	sb.WriteString("\n")
}

// writeRemovedDirs lists the directories deleted during cleanup.
func (w *SimpleWriter) writeRemovedDirs(sb *strings.Builder, run *model.RunResult) {
	if len(run.RemovedDirs) == 0 {
		return
	}

	sb.WriteString("Removed empty image directories:\n")
	for _, dir := range run.RemovedDirs {
		sb.WriteString(fmt.Sprintf("  [x] %s\n", dir))
	}
	sb.WriteString("\n")
}

// failureReason renders the cause of a failed download.
func failureReason(rec model.DownloadRecord) string {
	if rec.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d", rec.StatusCode)
	}
	if rec.Error != "" {
		return rec.Error
	}
	return string(rec.Outcome)
}
