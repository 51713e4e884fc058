package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/mdmirror/internal/model"
)

// JSONWriter outputs run summaries in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because it is sufficient for a one-shot summary document.
type JSONWriter struct {
	baseWriter

	// version is the mdmirror version recorded in the output.
	version string

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONReport is the serialized form of a run.
//
// Design decision: We build a dedicated view instead of tagging
// model.RunResult because the run keeps its image directories in a set,
// which has no useful JSON form.
type JSONReport struct {
	Version            string                  `json:"version"`
	Root               string                  `json:"root"`
	Naming             string                  `json:"naming"`
	Workers            int                     `json:"workers"`
	StartedAt          time.Time               `json:"startedAt"`
	FinishedAt         time.Time               `json:"finishedAt"`
	ElapsedSeconds     float64                 `json:"elapsedSeconds"`
	FilesFound         int                     `json:"filesFound"`
	FilesProcessed     int                     `json:"filesProcessed"`
	ImagesSeen         int                     `json:"imagesSeen"`
	ImagesProcessed    int                     `json:"imagesProcessed"`
	ImagesDownloaded   int                     `json:"imagesDownloaded"`
	ImagesFailed       int                     `json:"imagesFailed"`
	ImagesWithMetadata int                     `json:"imagesWithMetadata"`
	Failures           []model.DocumentFailure `json:"failures"`
	ImageDirs          []string                `json:"imageDirs"`
	RemovedDirs        []string                `json:"removedDirs"`
	Downloads          []model.DownloadRecord  `json:"downloads"`
}

// NewJSONReport builds the serialized view of run.
func NewJSONReport(run *model.RunResult, version string) *JSONReport {
	report := &JSONReport{
		Version:            version,
		Root:               run.Root,
		Naming:             string(run.Naming),
		Workers:            run.Workers,
		StartedAt:          run.StartedAt,
		FinishedAt:         run.FinishedAt,
		ElapsedSeconds:     run.Elapsed().Seconds(),
		FilesFound:         run.FilesFound,
		FilesProcessed:     run.FilesProcessed,
		ImagesSeen:         run.ImagesSeen,
		ImagesProcessed:    run.ImagesProcessed,
		ImagesDownloaded:   run.ImagesDownloaded,
		ImagesFailed:       run.ImagesFailed,
		ImagesWithMetadata: run.ImagesWithMetadata,
		Failures:           run.Failures,
		ImageDirs:          run.SortedImageDirs(),
		RemovedDirs:        run.RemovedDirs,
		Downloads:          run.Downloads,
	}

	// Emit [] rather than null for empty lists.
	if report.Failures == nil {
		report.Failures = []model.DocumentFailure{}
	}
	if report.RemovedDirs == nil {
		report.RemovedDirs = []string{}
	}
	if report.Downloads == nil {
		report.Downloads = []model.DownloadRecord{}
	}

	return report
}

// Write outputs the run in JSON format.
func (w *JSONWriter) Write(run *model.RunResult) (int, error) {
	return w.writeJSON(NewJSONReport(run, w.version))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
