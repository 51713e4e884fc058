// Package rewriter mirrors the remote images of one Markdown document and
// rewrites the document to reference the local copies.
//
// For a document notes/guide.md the images go to notes/guide_images/ and the
// rewritten references read ./guide_images/<name>. The rewriter works line by
// line: it extracts every link span of a line first, decides the replacement
// for each eligible image in order of appearance, and then folds the
// replacements into the line from the highest byte offset to the lowest so
// that no replacement shifts the offsets of another.
package rewriter
