package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/mdmirror/internal/model"
)

// MarkdownWriter outputs run summaries in Markdown format.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides tables, GitHub alerts and mermaid charts without
// hand-escaping.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(run *model.RunResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, run)
	w.writeSummary(md, run)
	w.writeFailures(md, run)
	w.writeMetadata(md, run)
	w.writeRemovedDirs(md, run)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.RunResult) {
	md.H1("mdmirror Run Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Root", "`" + run.Root + "`"},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", run.Elapsed().Round(time.Millisecond).String()},
			{"Naming Policy", string(run.Naming)},
			{"Workers", strconv.Itoa(run.Workers)},
			{"Status", statusText(run)},
		},
	})
	md.PlainText("")
}

// writeSummary writes the counters, an outcome chart and an alert.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, run *model.RunResult) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Count"},
		Rows: [][]string{
			{"Documents found", strconv.Itoa(run.FilesFound)},
			{"Documents processed", strconv.Itoa(run.FilesProcessed)},
			{"Documents failed", strconv.Itoa(len(run.Failures))},
			{"Images seen", strconv.Itoa(run.ImagesSeen)},
			{"Images processed", strconv.Itoa(run.ImagesProcessed)},
			{"Images newly downloaded", strconv.Itoa(run.ImagesDownloaded)},
			{"Images failed", strconv.Itoa(run.ImagesFailed)},
			{"Empty image directories removed", strconv.Itoa(len(run.RemovedDirs))},
		},
	})
	md.PlainText("")

	if run.ImagesSeen > 0 {
		w.writePieChart(md, run)
	}

	w.writeAlert(md, run)
}

// writePieChart writes a mermaid pie chart of image outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, run *model.RunResult) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Image Outcomes"),
		piechart.WithShowData(true),
	)

	cached := run.ImagesProcessed - run.ImagesDownloaded
	if run.ImagesDownloaded > 0 {
		chart.LabelAndIntValue("Downloaded", uint64(run.ImagesDownloaded)) //nolint:gosec // counters are never negative
	}
	if cached > 0 {
		chart.LabelAndIntValue("Already local", uint64(cached)) //nolint:gosec // checked above
	}
	if run.ImagesFailed > 0 {
		chart.LabelAndIntValue("Failed", uint64(run.ImagesFailed)) //nolint:gosec // counters are never negative
	}
	if skipped := skippedImages(run); skipped > 0 {
		chart.LabelAndIntValue("Not mirrored", uint64(skipped)) //nolint:gosec // skippedImages clamps at zero
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the most important problem.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.RunResult) {
	switch {
	case len(run.Failures) > 0:
		md.Cautionf("%d document(s) could not be processed. They were left unchanged.", len(run.Failures))
	case run.ImagesWithMetadata > 0:
		md.Warningf("%d mirrored image(s) carry identifying EXIF metadata.", run.ImagesWithMetadata)
	case run.ImagesFailed > 0:
		md.Warningf("%d image(s) could not be downloaded. Their references still point at the remote URL.", run.ImagesFailed)
	case run.FilesFound == 0:
		md.Note("No Markdown documents were found.")
	default:
		md.Tip("All eligible images are mirrored locally.")
	}
	md.PlainText("")
}

// writeFailures lists failed documents and failed downloads.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, run *model.RunResult) {
	failed := failedDownloads(run)
	if len(run.Failures) == 0 && len(failed) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	if len(run.Failures) > 0 {
		rows := make([][]string, len(run.Failures))
		for i, f := range run.Failures {
			rows[i] = []string{"`" + f.Path + "`", truncateString(f.Error, 80)}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Document", "Error"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(failed) > 0 {
		rows := make([][]string, len(failed))
		for i, rec := range failed {
			rows[i] = []string{
				fmt.Sprintf("`%s`:%d", rec.Document, rec.Line),
				truncateString(rec.URL, 60),
				truncateString(failureReason(rec), 60),
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Location", "URL", "Reason"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// writeMetadata lists images flagged by the EXIF audit.
func (w *MarkdownWriter) writeMetadata(md *markdown.Markdown, run *model.RunResult) {
	flagged := flaggedDownloads(run)
	if len(flagged) == 0 {
		return
	}

	md.H2("Identifying Metadata")
	md.PlainText("")

	rows := make([][]string, len(flagged))
	for i, rec := range flagged {
		categories := make([]string, 0, len(rec.Metadata))
		seen := make(map[model.MetadataCategory]bool)
		for _, f := range rec.Metadata {
			if !seen[f.Category] {
				seen[f.Category] = true
				categories = append(categories, string(f.Category))
			}
		}
		rows[i] = []string{"`" + rec.LocalPath + "`", strings.Join(categories, ", ")}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Image", "Categories"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, rec := range flagged {
		var sb strings.Builder
		for _, f := range rec.Metadata {
			sb.WriteString(fmt.Sprintf("%s: %s\n", f.Tag, f.Value))
		}
		md.Details(rec.LocalPath, sb.String())
	}
	md.PlainText("")
}

// writeRemovedDirs lists the image directories deleted during cleanup.
func (w *MarkdownWriter) writeRemovedDirs(md *markdown.Markdown, run *model.RunResult) {
	if len(run.RemovedDirs) == 0 {
		return
	}

	md.H2("Removed Empty Directories")
	md.PlainText("")
	md.BulletList(run.RemovedDirs...)
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [mdmirror](https://github.com/nao1215/mdmirror)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
