package link

import "regexp"

// markdownLinkPattern matches `[label](url)` and `![label](url)`.
// Group 1 is the opening part up to and including "(", group 2 is the URL
// and group 3 is the closing ")".
//
// Design decision: We use a regular expression rather than a Markdown parser
// such as goldmark. The rewriter splices replacements into the original bytes
// of a line, and goldmark's AST does not keep byte offsets for link
// destinations. It also skips code spans, which would change which links are
// mirrored.
var markdownLinkPattern = regexp.MustCompile(`(!?\[.*?\]\s*\()([^)]+)(\))`)

// fragmentPattern matches the "png#..." tail some note exports append to
// image URLs. Everything from "png#" to the end of the line is discarded.
var fragmentPattern = regexp.MustCompile(`png#.*`)

// Span is a half-open byte range [Start, End) within a line.
type Span struct {
	Start int
	End   int
}

// Match is one Markdown link found in a line.
type Match struct {
	// Full covers the optional "!", the bracketed label and the parentheses.
	Full Span

	// URL covers only the link destination.
	URL Span

	// IsImage reports whether the link uses the "![...]" image form.
	IsImage bool
}

// Text returns the URL substring of line for this match.
func (m Match) Text(line string) string {
	return line[m.URL.Start:m.URL.End]
}

// NormalizeFragments rewrites a trailing "png#..." artifact to "png)".
// It is lossy: anything after "png#" on the line is dropped. Callers apply it
// to every line before Extract.
func NormalizeFragments(line string) string {
	return fragmentPattern.ReplaceAllLiteralString(line, "png)")
}

// Extract returns all Markdown links in line in order of appearance.
// It returns nil when the line contains no link.
func Extract(line string) []Match {
	idx := markdownLinkPattern.FindAllStringSubmatchIndex(line, -1)
	if len(idx) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(idx))
	for _, loc := range idx {
		// loc: [full start, full end, g1 start, g1 end, g2 start, g2 end, g3 start, g3 end]
		matches = append(matches, Match{
			Full:    Span{Start: loc[0], End: loc[1]},
			URL:     Span{Start: loc[4], End: loc[5]},
			IsImage: line[loc[0]] == '!',
		})
	}
	return matches
}
