package model

// ImageReference is one image link found while rewriting a document.
// It only lives for the duration of a single rewriter pass.
type ImageReference struct {
	// Line is the 1-based line number in the document.
	Line int

	// Start and End delimit the URL inside the (normalized) line, in bytes.
	Start int
	End   int

	// URL is the raw URL text as written in the document.
	URL string

	// Extension is the matched image extension including the leading dot.
	Extension string
}
