// Package link finds Markdown link and image references in a single line of
// text and decides which of them point at remote images worth mirroring.
//
// Extraction works line by line on purpose: a reference never spans lines in
// the exported notes we process, and the rewriter needs byte offsets within a
// line to splice replacements in place.
package link
