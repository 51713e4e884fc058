package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/mdmirror/internal/model"
	"github.com/nao1215/mdmirror/internal/rewriter"
)

// DefaultConcurrency is the worker count used when none is configured.
const DefaultConcurrency = 4

// MarkdownSuffix selects the documents a run processes.
const MarkdownSuffix = ".md"

// ErrNotDirectory is returned when the batch root is not a directory.
var ErrNotDirectory = errors.New("root is not a directory")

// DocumentRewriter processes a single document.
// *rewriter.Rewriter implements it.
type DocumentRewriter interface {
	Rewrite(ctx context.Context, docPath, worker string) (*model.DocumentResult, error)
}

// BatchProcessor runs a DocumentRewriter over every document below a root.
type BatchProcessor struct {
	// rewriter is shared by all workers and must be safe for concurrent use.
	rewriter DocumentRewriter

	// concurrency is the number of documents processed at the same time.
	concurrency int

	// naming is recorded in the RunResult.
	naming model.NamingPolicy

	logger *slog.Logger

	// onDocument is called on the coordinating goroutine for every
	// document that completed without error.
	onDocument func(*model.DocumentResult)

	// removeDir deletes an empty image directory during cleanup.
	removeDir func(string) error
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets the logger for batch-level progress.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the worker pool size.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithNamingPolicy records the naming policy in the run result.
func WithNamingPolicy(policy model.NamingPolicy) BatchOption {
	return func(b *BatchProcessor) {
		b.naming = policy
	}
}

// WithOnDocument registers a callback for completed documents.
// The callback runs on the goroutine that called Run, never concurrently.
func WithOnDocument(fn func(*model.DocumentResult)) BatchOption {
	return func(b *BatchProcessor) {
		b.onDocument = fn
	}
}

// NewBatchProcessor creates a BatchProcessor.
func NewBatchProcessor(rw DocumentRewriter, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		rewriter:    rw,
		concurrency: DefaultConcurrency,
		naming:      model.NamingOriginal,
		removeDir:   os.Remove,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// Concurrency returns the worker pool size.
func (bp *BatchProcessor) Concurrency() int {
	return bp.concurrency
}

// outcome is the message a worker sends for one document.
type outcome struct {
	path     string
	worker   string
	imageDir string
	result   *model.DocumentResult
	err      error
}

// Run processes every Markdown document below root.
//
// Per-document failures are recorded in the result and never stop the batch.
// When ctx is cancelled, documents that have not started are recorded as
// failures, documents already in progress run to completion, the cleanup
// pass still runs, and ctx.Err() is returned with the partial result.
func (bp *BatchProcessor) Run(ctx context.Context, root string) (*model.RunResult, error) {
	run := model.NewRunResult(root, bp.naming, bp.concurrency)

	docs, err := FindDocuments(root, bp.logger)
	if err != nil {
		return nil, err
	}
	run.FilesFound = len(docs)

	if len(docs) == 0 {
		bp.logger.Info("no markdown documents found", "root", root)
		run.FinishedAt = time.Now()
		return run, nil
	}

	bp.logger.Info("starting batch",
		"root", root,
		"documents", len(docs),
		"workers", bp.concurrency,
		"naming", string(bp.naming),
	)

	results := make(chan outcome)
	go func() {
		defer close(results)
		bp.dispatch(ctx, docs, results)
	}()

	for out := range results {
		bp.collect(run, out)
	}

	bp.cleanup(run)

	run.FinishedAt = time.Now()
	bp.logger.Info("batch complete",
		"files_found", run.FilesFound,
		"files_processed", run.FilesProcessed,
		"files_failed", len(run.Failures),
		"images_seen", run.ImagesSeen,
		"images_processed", run.ImagesProcessed,
		"images_downloaded", run.ImagesDownloaded,
		"images_failed", run.ImagesFailed,
		"removed_dirs", len(run.RemovedDirs),
		"elapsed", run.Elapsed(),
	)

	return run, ctx.Err()
}

// dispatch submits every document to the pool and waits for all of them.
//
// Design decision: errgroup.SetLimit bounds the goroutines, and the slots
// channel hands each running goroutine a stable worker id in 1..N so that
// download log entries can be attributed to a pool slot.
func (bp *BatchProcessor) dispatch(ctx context.Context, docs []string, results chan<- outcome) {
	slots := make(chan int, bp.concurrency)
	for id := 1; id <= bp.concurrency; id++ {
		slots <- id
	}

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			results <- notStarted(doc, err)
			continue
		}

		// g.Go blocks while the pool is full, so ctx is checked again once
		// a slot frees up.
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results <- notStarted(doc, err)
				return nil
			}

			id := <-slots
			defer func() { slots <- id }()

			results <- bp.process(ctx, doc, fmt.Sprintf("worker-%d", id))
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers report through the results channel
}

// notStarted builds the failure message for a document skipped by cancellation.
func notStarted(doc string, err error) outcome {
	imageDir, _ := rewriter.ImageDirFor(doc)
	return outcome{path: doc, imageDir: imageDir, err: fmt.Errorf("document not started: %w", err)}
}

// process runs the rewriter for one document and converts a panic into a
// document failure.
func (bp *BatchProcessor) process(ctx context.Context, doc, worker string) (out outcome) {
	out = outcome{path: doc, worker: worker}

	defer func() {
		if r := recover(); r != nil {
			out.err = fmt.Errorf("panic while processing document: %v", r)
			if out.imageDir == "" {
				out.imageDir, _ = rewriter.ImageDirFor(doc)
			}
		}
	}()

	result, err := bp.rewriter.Rewrite(ctx, doc, worker)
	out.result = result
	out.err = err
	if result != nil {
		out.imageDir = result.ImageDir
	}
	return out
}

// collect folds one worker message into the run result.
func (bp *BatchProcessor) collect(run *model.RunResult, out outcome) {
	if out.err != nil {
		bp.logger.Error("failed to process document",
			"path", out.path,
			"worker", out.worker,
			"error", out.err,
		)
		run.AddFailure(out.path, out.imageDir, out.err)
		return
	}

	run.AddDocument(out.result)
	bp.logger.Debug("document completed",
		"path", out.path,
		"worker", out.worker,
		"images_downloaded", out.result.ImagesDownloaded,
	)

	if bp.onDocument != nil {
		bp.onDocument(out.result)
	}
}

// cleanup removes image directories that exist and are empty.
// Failures are logged and do not stop the pass.
func (bp *BatchProcessor) cleanup(run *model.RunResult) {
	for _, dir := range run.SortedImageDirs() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				bp.logger.Warn("failed to inspect image directory", "path", dir, "error", err)
			}
			continue
		}
		if len(entries) > 0 {
			continue
		}

		if err := bp.removeDir(dir); err != nil {
			bp.logger.Error("failed to remove empty image directory", "path", dir, "error", err)
			continue
		}
		run.RemovedDirs = append(run.RemovedDirs, dir)
		bp.logger.Info("removed empty image directory", "path", dir)
	}
}

// FindDocuments returns every file below root whose name ends in ".md", in
// lexical walk order. Unreadable subdirectories are logged and skipped.
func FindDocuments(root string, logger *slog.Logger) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	docs := make([]string, 0)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			logger.Warn("skipping unreadable path", "path", path, "error", walkErr)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(d.Name()) == MarkdownSuffix {
			docs = append(docs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk root: %w", err)
	}

	return docs, nil
}
