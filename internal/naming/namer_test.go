package naming

import (
	"strings"
	"testing"

	"github.com/nao1215/mdmirror/internal/model"
)

// TestNamerOriginal tests the original naming policy.
func TestNamerOriginal(t *testing.T) {
	t.Parallel()

	n := New(model.NamingOriginal)

	tests := []struct {
		name string
		url  string
		ext  string
		want string
	}{
		{
			name: "query string is stripped",
			url:  "https://cdn.example.com/foo/bar.png?x=1",
			ext:  ".png",
			want: "bar.png",
		},
		{
			name: "plain file name",
			url:  "https://cdn.nlark.com/yuque/0/2024/png/123/1700000000-abc.png",
			ext:  ".png",
			want: "1700000000-abc.png",
		},
		{
			name: "extension check is case-insensitive",
			url:  "https://h/PHOTO.JPG",
			ext:  ".jpg",
			want: "PHOTO.JPG",
		},
		{
			name: "missing extension is appended",
			url:  "https://h/render?format=.svg",
			ext:  ".svg",
			want: "render.svg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := n.Name(tt.url, tt.ext, 0); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

// TestNamerAscending tests the ascending naming policy.
func TestNamerAscending(t *testing.T) {
	t.Parallel()

	n := New(model.NamingAscending)

	if got := n.Name("https://h/a.png", ".png", 0); got != "image-0.png" {
		t.Errorf("expected image-0.png, got %q", got)
	}
	if got := n.Name("https://h/b.gif", ".gif", 7); got != "image-7.gif" {
		t.Errorf("expected image-7.gif, got %q", got)
	}
	// Deterministic for identical input.
	if n.Name("https://h/a.png", ".png", 3) != n.Name("https://h/a.png", ".png", 3) {
		t.Error("ascending names must be deterministic")
	}
}

// TestNamerUUID tests the random unique naming policy.
func TestNamerUUID(t *testing.T) {
	t.Parallel()

	n := New(model.NamingUUID)

	a := n.Name("https://h/a.png", ".png", 0)
	b := n.Name("https://h/a.png", ".png", 0)

	if a == b {
		t.Errorf("expected unique names, got %q twice", a)
	}
	if !strings.HasSuffix(a, ".png") {
		t.Errorf("expected .png suffix, got %q", a)
	}
	// 36 characters of UUID plus the extension.
	if len(a) != 36+len(".png") {
		t.Errorf("unexpected name length %d for %q", len(a), a)
	}
}

// TestNewFallsBackToOriginal tests that an invalid policy uses original naming.
func TestNewFallsBackToOriginal(t *testing.T) {
	t.Parallel()

	n := New(model.NamingPolicy("bogus"))
	if n.Policy() != model.NamingOriginal {
		t.Errorf("expected fallback to original, got %q", n.Policy())
	}
}
