// Package log provides the structured loggers used by mdmirror, built on top
// of the standard slog package.
//
// A run writes two append-only log streams into the target directory:
//   - the run log (mdmirror_main.log), also mirrored to the console, which
//     records progress, per-document results and cleanup
//   - the download log (mdmirror_downloads.log), which records one entry per
//     image reference outcome, tagged with the worker that produced it
//
// Both loggers are explicit handles passed into each component rather than
// process-wide state, so tests can capture events with a bytes.Buffer.
//
// # Redaction
//
// Image URLs exported from note platforms frequently carry signed query
// parameters (X-Amz-Signature, token, auth_key, ...). The RedactingHandler
// masks those values, and values of sensitive attribute keys such as
// "cookie" or "authorization", before records reach the log files:
//
//	logger := log.NewLogger(os.Stderr, true)
//	logger.Info("downloaded", "url", "https://cdn/a.png?token=abc")
//	// url=https://cdn/a.png?token=***REDACTED***
package log
