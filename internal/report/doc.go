// Package report renders the summary of a mirror run.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - MarkdownWriter: GitHub Flavored Markdown for saving next to the notes
//   - JSONWriter: Structured JSON output for tool integration
//
// Design decision: We separate report writing from the run data structures
// (which are in the model package) so that new output formats can be added
// without touching the pipeline.
package report
