// Package model defines the core data structures shared by the mdmirror
// packages.
//
// This package contains the following main types:
//   - NamingPolicy: How a mirrored image is named on disk
//   - ImageReference: One image link found in a document
//   - DownloadRecord: The outcome of one eligible image reference
//   - DocumentResult: Counters and records for one rewritten document
//   - RunResult: The aggregate of a whole batch run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The rewriter, pipeline, database and report packages all need
// these types, so centralizing them prevents import cycles.
package model
