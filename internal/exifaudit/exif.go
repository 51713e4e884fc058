// Package exifaudit inspects mirrored images for EXIF metadata that can
// identify the author of a document: GPS coordinates, device serial numbers
// and author fields.
//
// Images copied out of a note-taking platform are often phone photos that
// the platform served with their original metadata intact. Once mirrored
// into a repository next to the Markdown, that metadata travels with it.
package exifaudit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/nao1215/mdmirror/internal/model"
)

// DefaultMaxImageSize limits how much of an image is read for the audit.
// EXIF blocks live at the start of the file, so larger files are truncated.
const DefaultMaxImageSize = 10 * 1024 * 1024 // 10MB

// Auditor extracts identifying EXIF tags from image files.
// It is stateless and safe for concurrent use.
type Auditor struct {
	maxImageSize int64
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithMaxImageSize sets how many bytes of each image are inspected.
func WithMaxImageSize(n int64) Option {
	return func(a *Auditor) {
		if n > 0 {
			a.maxImageSize = n
		}
	}
}

// New creates an Auditor.
func New(opts ...Option) *Auditor {
	a := &Auditor{maxImageSize: DefaultMaxImageSize}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Audit reads the image at path and returns its identifying EXIF tags.
// Images without EXIF data and vector images return no findings and no error.
func (a *Auditor) Audit(path string) ([]model.MetadataFinding, error) {
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		return nil, nil
	}

	f, err := os.Open(path) //nolint:gosec // path is a file we just downloaded
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, a.maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	return Inspect(data)
}

// Inspect returns the identifying EXIF tags found in raw image bytes.
func Inspect(data []byte) ([]model.MetadataFinding, error) {
	// exif.ErrNoExif and undecodable blocks both mean "nothing to report".
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return nil, nil //nolint:nilerr // absent EXIF is not an audit failure
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil, nil //nolint:nilerr // partial EXIF blocks are treated as absent
	}

	findings := make([]model.MetadataFinding, 0)
	for _, entry := range entries {
		category, ok := categorize(entry.TagName)
		if !ok {
			continue
		}
		findings = append(findings, model.MetadataFinding{
			Category: category,
			Tag:      entry.TagName,
			Value:    entry.Formatted,
		})
	}
	return findings, nil
}

// categorize maps an EXIF tag name to the kind of information it leaks.
func categorize(tagName string) (model.MetadataCategory, bool) {
	switch tagName {
	case "GPSLatitude", "GPSLongitude", "GPSLatitudeRef", "GPSLongitudeRef", "GPSAltitude":
		return model.MetadataLocation, true
	case "Make", "Model", "SerialNumber", "CameraSerialNumber", "BodySerialNumber", "LensSerialNumber":
		return model.MetadataDevice, true
	case "Artist", "Author", "Copyright", "XPAuthor", "CameraOwnerName":
		return model.MetadataAuthor, true
	case "Software", "ProcessingSoftware", "HostComputer":
		return model.MetadataSoftware, true
	default:
		return "", false
	}
}
