// Package pipeline coordinates a batch run over a directory of Markdown
// documents.
//
// The BatchProcessor walks the root directory, hands every document to a
// DocumentRewriter under a bounded pool of workers, and folds the per-document
// results into a single model.RunResult. When all documents are done it
// removes the image directories that ended up empty.
//
// Design decision: Workers never touch the RunResult. Each worker sends one
// message per document on a channel and the goroutine that called Run is the
// only reader, so the aggregation needs no mutex and completion order does
// not matter.
package pipeline
