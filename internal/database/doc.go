// Package database provides SQLite-based run history for mdmirror.
//
// This package implements the HistoryDB, which stores:
//   - One record per batch run with its aggregate counters
//   - One record per eligible image reference with its download outcome
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. WAL mode lets the history command read while a run is writing
//
// The history is append-only. It is never consulted to decide whether an
// image should be downloaded; that decision is made from the file system.
package database
