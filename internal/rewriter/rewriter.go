package rewriter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/nao1215/mdmirror/internal/fetcher"
	"github.com/nao1215/mdmirror/internal/link"
	"github.com/nao1215/mdmirror/internal/model"
	"github.com/nao1215/mdmirror/internal/naming"
)

// ImageDirSuffix is appended to the document stem to name its image directory.
const ImageDirSuffix = "_images"

// Fetcher downloads one image into destDir/name.
// *fetcher.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL, destDir, name string) (int64, error)
}

// Auditor inspects a downloaded image for identifying metadata.
// *exifaudit.Auditor implements it.
type Auditor interface {
	Audit(path string) ([]model.MetadataFinding, error)
}

// Rewriter processes single documents. One Rewriter is shared by all workers
// of a batch; it holds no per-document state.
type Rewriter struct {
	classifier     *link.Classifier
	namer          *naming.Namer
	fetcher        Fetcher
	auditor        Auditor
	logger         *slog.Logger
	downloadLogger *slog.Logger
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithLogger sets the run logger used for per-document progress.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Rewriter) {
		r.logger = logger
	}
}

// WithDownloadLogger sets the logger that receives one entry per image outcome.
func WithDownloadLogger(logger *slog.Logger) Option {
	return func(r *Rewriter) {
		r.downloadLogger = logger
	}
}

// WithAuditor enables the metadata audit of newly downloaded images.
func WithAuditor(auditor Auditor) Option {
	return func(r *Rewriter) {
		r.auditor = auditor
	}
}

// New creates a Rewriter.
func New(classifier *link.Classifier, namer *naming.Namer, f Fetcher, opts ...Option) *Rewriter {
	r := &Rewriter{
		classifier: classifier,
		namer:      namer,
		fetcher:    f,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.downloadLogger == nil {
		r.downloadLogger = r.logger
	}

	return r
}

// ImageDirFor returns the image directory of docPath and the relative URL
// prefix that rewritten references use.
func ImageDirFor(docPath string) (dir, urlPrefix string) {
	base := filepath.Base(docPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(docPath), stem+ImageDirSuffix), "./" + stem + ImageDirSuffix + "/"
}

// Rewrite mirrors the images of docPath and rewrites it in place.
// worker identifies the calling pool worker in the download log.
//
// Download failures are not errors: the reference keeps its remote URL and
// the failure is counted. An error is returned only when the document itself
// cannot be read or written. The returned result is non-nil even on error so
// that callers can still track the image directory.
func (r *Rewriter) Rewrite(ctx context.Context, docPath, worker string) (*model.DocumentResult, error) {
	imageDir, urlPrefix := ImageDirFor(docPath)
	result := &model.DocumentResult{
		Path:      docPath,
		ImageDir:  imageDir,
		Downloads: make([]model.DownloadRecord, 0),
	}

	r.logger.Info("processing document", "path", docPath)

	if err := os.MkdirAll(imageDir, 0o755); err != nil { //nolint:gosec // image directories are shared with the notes
		return result, fmt.Errorf("failed to create image directory: %w", err)
	}

	info, err := os.Stat(docPath)
	if err != nil {
		return result, fmt.Errorf("failed to stat document: %w", err)
	}

	content, err := readDocument(docPath)
	if err != nil {
		return result, err
	}

	doc := &document{
		rewriter:  r,
		result:    result,
		imageDir:  imageDir,
		urlPrefix: urlPrefix,
		worker:    worker,
		dlog:      r.downloadLogger.With("worker", worker),
	}

	var out strings.Builder
	out.Grow(len(content))
	for i, line := range splitLines(content) {
		body, ending := splitEnding(line)
		out.WriteString(doc.rewriteLine(ctx, i+1, body))
		out.WriteString(ending)
	}

	if err := writeDocument(docPath, out.String(), info.Mode().Perm()); err != nil {
		return result, err
	}

	r.logger.Info("document processed",
		"path", docPath,
		"images_seen", result.ImagesSeen,
		"images_processed", result.ImagesProcessed,
		"images_downloaded", result.ImagesDownloaded,
		"images_failed", result.ImagesFailed,
	)

	return result, nil
}

// document carries the per-call state of one Rewrite invocation.
type document struct {
	rewriter  *Rewriter
	result    *model.DocumentResult
	imageDir  string
	urlPrefix string
	worker    string
	dlog      *slog.Logger

	// counter is the ascending naming index. It restarts at zero for
	// every document, so ascending names are unique per document only.
	counter int
}

// replacement substitutes text for span in a line.
type replacement struct {
	span link.Span
	text string
}

// rewriteLine returns the rewritten form of one line (without its ending).
// Lines without any link are returned verbatim, even when the fragment
// normalization would have altered them.
func (d *document) rewriteLine(ctx context.Context, lineNum int, body string) string {
	normalized := link.NormalizeFragments(body)
	matches := link.Extract(normalized)
	if len(matches) == 0 {
		return body
	}

	replacements := make([]replacement, 0, len(matches))
	for _, m := range matches {
		rawURL := m.Text(normalized)
		c := d.rewriter.classifier.Classify(rawURL)
		if !c.IsImage() {
			continue
		}
		d.result.ImagesSeen++

		if !c.Eligible() {
			d.dlog.Debug("leaving image reference untouched",
				"url", rawURL,
				"document", d.result.Path,
				"line", lineNum,
				"remote", c.IsRemote,
				"excluded", c.Excluded,
			)
			continue
		}

		name := d.rewriter.namer.Name(rawURL, c.Extension, d.counter)
		d.counter++

		if d.mirror(ctx, lineNum, rawURL, name) {
			replacements = append(replacements, replacement{span: m.URL, text: d.urlPrefix + name})
		}
	}

	return applyReplacements(normalized, replacements)
}

// mirror makes sure rawURL is available locally as name and reports whether
// the reference can be rewritten.
func (d *document) mirror(ctx context.Context, lineNum int, rawURL, name string) bool {
	localPath := filepath.Join(d.imageDir, name)
	record := model.DownloadRecord{
		Document:  d.result.Path,
		Line:      lineNum,
		URL:       rawURL,
		LocalPath: localPath,
		Worker:    d.worker,
	}

	if _, err := os.Stat(localPath); err == nil {
		record.Outcome = model.OutcomeExists
		d.result.ImagesProcessed++
		d.result.Downloads = append(d.result.Downloads, record)
		d.dlog.Info("image already exists, skipping download", "path", localPath, "url", rawURL)
		return true
	}

	n, err := d.rewriter.fetcher.Fetch(ctx, rawURL, d.imageDir, name)
	if err != nil {
		d.recordFailure(&record, err)
		d.result.ImagesFailed++
		d.result.Downloads = append(d.result.Downloads, record)
		return false
	}

	record.Outcome = model.OutcomeDownloaded
	record.Bytes = n
	d.result.ImagesProcessed++
	d.result.ImagesDownloaded++
	d.dlog.Info("image downloaded", "path", localPath, "url", rawURL, "bytes", n)

	if d.rewriter.auditor != nil {
		d.audit(&record)
	}

	d.result.Downloads = append(d.result.Downloads, record)
	return true
}

// recordFailure classifies a fetch error and writes exactly one log entry.
func (d *document) recordFailure(record *model.DownloadRecord, err error) {
	record.Error = err.Error()

	var statusErr *fetcher.StatusError
	if errors.As(err, &statusErr) {
		record.Outcome = model.OutcomeHTTPError
		record.StatusCode = statusErr.StatusCode
		d.dlog.Error("image download failed",
			"url", record.URL,
			"status", statusErr.StatusCode,
			"document", record.Document,
			"line", record.Line,
		)
		return
	}

	record.Outcome = model.OutcomeTransportError
	kind := fmt.Sprintf("%T", err)
	var transportErr *fetcher.TransportError
	if errors.As(err, &transportErr) {
		kind = transportErr.Kind()
	}
	d.dlog.Error("image download error",
		"url", record.URL,
		"error_type", kind,
		"error", err,
		"document", record.Document,
		"line", record.Line,
	)
}

// audit attaches identifying metadata findings to a fresh download.
func (d *document) audit(record *model.DownloadRecord) {
	findings, err := d.rewriter.auditor.Audit(record.LocalPath)
	if err != nil {
		d.dlog.Warn("metadata audit failed", "path", record.LocalPath, "error", err)
		return
	}
	if len(findings) == 0 {
		return
	}

	record.Metadata = findings
	d.result.ImagesWithMetadata++
	for _, f := range findings {
		d.dlog.Warn("image contains identifying metadata",
			"path", record.LocalPath,
			"category", string(f.Category),
			"tag", f.Tag,
			"value", f.Value,
		)
	}
}

// applyReplacements folds replacements into line from the highest start
// offset to the lowest. Spans come from one Extract call and never overlap.
func applyReplacements(line string, replacements []replacement) string {
	if len(replacements) == 0 {
		return line
	}

	sorted := append([]replacement(nil), replacements...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].span.Start > sorted[j].span.Start
	})

	out := line
	for _, rep := range sorted {
		out = out[:rep.span.Start] + rep.text + out[rep.span.End:]
	}
	return out
}

// readDocument reads docPath as UTF-8, replacing malformed byte sequences
// with U+FFFD instead of failing.
//
// Design decision: We decode with golang.org/x/text rather than checking
// utf8.Valid ourselves so that exported notes with stray bytes are repaired
// the same way every time without aborting the batch.
func readDocument(docPath string) (string, error) {
	raw, err := os.ReadFile(docPath) //nolint:gosec // documents come from the walked root
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	decoded, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode document: %w", err)
	}
	return string(decoded), nil
}

// writeDocument replaces docPath with content through a temporary file in
// the same directory, so a crash never leaves a half-written document.
func writeDocument(docPath, content string, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(docPath), ".mdmirror-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary document: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set document permissions: %w", err)
	}
	if err := os.Rename(tmpPath, docPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}

// splitLines splits content after each "\n", keeping the separators.
// A trailing newline does not produce an extra empty line.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// splitEnding separates a line from its "\n" or "\r\n" terminator.
func splitEnding(line string) (body, ending string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	default:
		return line, ""
	}
}
