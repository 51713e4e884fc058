package exifaudit

import (
	"os"
	"path/filepath"
	"testing"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"

	"github.com/nao1215/mdmirror/internal/model"
)

// buildExifImage returns JPEG-like bytes carrying an EXIF block with camera,
// author and GPS tags.
func buildExifImage(t *testing.T) []byte {
	t.Helper()

	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		t.Fatalf("failed to create IFD mapping: %v", err)
	}
	ti := exif.NewTagIndex()

	rootIb := exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder)
	for name, value := range map[string]string{
		"Make":   "Canon",
		"Model":  "EOS 5D",
		"Artist": "Jane Doe",
	} {
		if err := rootIb.SetStandardWithName(name, value); err != nil {
			t.Fatalf("failed to set %s: %v", name, err)
		}
	}

	gpsIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/GPSInfo")
	if err != nil {
		t.Fatalf("failed to create GPS IFD: %v", err)
	}
	if err := gpsIb.SetStandardWithName("GPSLatitudeRef", "N"); err != nil {
		t.Fatalf("failed to set GPSLatitudeRef: %v", err)
	}
	latitude := []exifcommon.Rational{
		{Numerator: 35, Denominator: 1},
		{Numerator: 39, Denominator: 1},
		{Numerator: 2, Denominator: 1},
	}
	if err := gpsIb.SetStandardWithName("GPSLatitude", latitude); err != nil {
		t.Fatalf("failed to set GPSLatitude: %v", err)
	}

	exifData, err := exif.NewIfdByteEncoder().EncodeToExif(rootIb)
	if err != nil {
		t.Fatalf("failed to encode EXIF: %v", err)
	}

	// SOI and APP1 "Exif" marker in front of the TIFF block, as in a JPEG.
	data := []byte{0xff, 0xd8, 0xff, 0xe1, 0x00, 0x00, 'E', 'x', 'i', 'f', 0, 0}
	return append(data, exifData...)
}

// findingsByCategory groups findings by category and tag.
func findingsByCategory(findings []model.MetadataFinding) map[model.MetadataCategory]map[string]string {
	got := make(map[model.MetadataCategory]map[string]string)
	for _, f := range findings {
		if got[f.Category] == nil {
			got[f.Category] = make(map[string]string)
		}
		got[f.Category][f.Tag] = f.Value
	}
	return got
}

// TestAuditWithMetadata tests auditing an image that carries identifying tags.
func TestAuditWithMetadata(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(path, buildExifImage(t), 0600); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}

	findings, err := New().Audit(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := findingsByCategory(findings)

	tests := []struct {
		category model.MetadataCategory
		tag      string
	}{
		{model.MetadataDevice, "Make"},
		{model.MetadataDevice, "Model"},
		{model.MetadataAuthor, "Artist"},
		{model.MetadataLocation, "GPSLatitude"},
		{model.MetadataLocation, "GPSLatitudeRef"},
	}
	for _, tt := range tests {
		if _, ok := got[tt.category][tt.tag]; !ok {
			t.Errorf("expected %s finding for %s, got %+v", tt.category, tt.tag, findings)
		}
	}

	if v := got[model.MetadataDevice]["Make"]; v != "Canon" {
		t.Errorf("expected Make value Canon, got %q", v)
	}
}

// TestInspectWithMetadata tests that only identifying tags are reported.
func TestInspectWithMetadata(t *testing.T) {
	t.Parallel()

	findings, err := Inspect(buildExifImage(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) == 0 {
		t.Fatal("expected findings")
	}
	for _, f := range findings {
		if _, ok := categorize(f.Tag); !ok {
			t.Errorf("unexpected non-identifying tag %q reported", f.Tag)
		}
	}
}

// TestAudit tests auditing files without identifying metadata.
func TestAudit(t *testing.T) {
	t.Parallel()

	t.Run("image without EXIF has no findings", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "plain.png")
		// PNG signature followed by garbage, no EXIF block.
		data := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
		if err := os.WriteFile(path, data, 0600); err != nil {
			t.Fatalf("failed to write image: %v", err)
		}

		findings, err := New().Audit(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(findings) != 0 {
			t.Errorf("expected no findings, got %+v", findings)
		}
	})

	t.Run("svg is skipped", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "logo.SVG")
		if err := os.WriteFile(path, []byte("<svg/>"), 0600); err != nil {
			t.Fatalf("failed to write image: %v", err)
		}

		findings, err := New().Audit(path)
		if err != nil || findings != nil {
			t.Errorf("expected nil findings and error, got %v, %v", findings, err)
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		t.Parallel()

		_, err := New().Audit(filepath.Join(t.TempDir(), "missing.jpg"))
		if err == nil {
			t.Fatal("expected error for missing file")
		}
	})
}

// TestInspectEmpty tests that empty input is treated as no metadata.
func TestInspectEmpty(t *testing.T) {
	t.Parallel()

	findings, err := Inspect(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(findings) != 0 {
		t.Errorf("expected no findings, got %+v", findings)
	}
}

// TestCategorize tests EXIF tag categorization.
func TestCategorize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag    string
		want   model.MetadataCategory
		wantOK bool
	}{
		{"GPSLatitude", model.MetadataLocation, true},
		{"BodySerialNumber", model.MetadataDevice, true},
		{"Artist", model.MetadataAuthor, true},
		{"HostComputer", model.MetadataSoftware, true},
		{"ExposureTime", "", false},
		{"Orientation", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			t.Parallel()

			got, ok := categorize(tt.tag)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("categorize(%q) = %q, %v; want %q, %v", tt.tag, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// TestWithMaxImageSize tests the size option.
func TestWithMaxImageSize(t *testing.T) {
	t.Parallel()

	if got := New(WithMaxImageSize(1024)).maxImageSize; got != 1024 {
		t.Errorf("expected 1024, got %d", got)
	}
	if got := New(WithMaxImageSize(-1)).maxImageSize; got != DefaultMaxImageSize {
		t.Errorf("expected default, got %d", got)
	}
}
