package link

import "strings"

// ImageExtensions is the allow-list of image suffixes, checked in order.
var ImageExtensions = []string{".png", ".jpeg", ".jpg", ".gif", ".webp", ".bmp", ".svg"}

// DefaultExcludePrefixes are URL prefixes that are never mirrored:
// relative paths and hosts that are already under our control.
var DefaultExcludePrefixes = []string{
	"./",
	"../",
	"http://localhost",
	"https://example.com/my-internal-images/",
}

// Classification is the verdict for one candidate URL.
type Classification struct {
	// IsRemote is true for http:// and https:// URLs.
	IsRemote bool

	// Extension is the matched image extension (lower case, with dot),
	// or empty when the URL does not look like an image.
	Extension string

	// Excluded is true when the URL starts with a configured exclusion prefix.
	Excluded bool
}

// IsImage reports whether the URL has a recognized image extension.
// Every image counts toward the "seen" statistic, eligible or not.
func (c Classification) IsImage() bool {
	return c.Extension != ""
}

// Eligible reports whether the URL should be mirrored.
func (c Classification) Eligible() bool {
	return c.IsRemote && c.IsImage() && !c.Excluded
}

// Classifier decides whether candidate URLs are mirrorable remote images.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	excludePrefixes []string
}

// NewClassifier creates a Classifier with the given exclusion prefixes.
// Empty prefixes are ignored because they would exclude everything.
func NewClassifier(excludePrefixes []string) *Classifier {
	prefixes := make([]string, 0, len(excludePrefixes))
	for _, p := range excludePrefixes {
		if p != "" {
			prefixes = append(prefixes, p)
		}
	}
	return &Classifier{excludePrefixes: prefixes}
}

// Classify inspects a candidate URL.
func (c *Classifier) Classify(rawURL string) Classification {
	lower := strings.ToLower(rawURL)

	return Classification{
		IsRemote:  strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://"),
		Extension: ImageExtension(rawURL),
		Excluded:  c.isExcluded(rawURL),
	}
}

// ExcludePrefixes returns a copy of the configured exclusion prefixes.
func (c *Classifier) ExcludePrefixes() []string {
	return append([]string(nil), c.excludePrefixes...)
}

func (c *Classifier) isExcluded(rawURL string) bool {
	for _, prefix := range c.excludePrefixes {
		if strings.HasPrefix(rawURL, prefix) {
			return true
		}
	}
	return false
}

// ImageExtension returns the allow-listed extension rawURL ends with,
// ignoring case and any query string. It returns "" for non-images.
func ImageExtension(rawURL string) string {
	lower := strings.ToLower(StripQuery(rawURL))
	for _, ext := range ImageExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return ""
}

// StripQuery removes a "?query" suffix from rawURL.
func StripQuery(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}
