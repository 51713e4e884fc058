package link

import (
	"testing"
)

// TestNormalizeFragments tests removal of the "png#..." export artifact.
func TestNormalizeFragments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want string
	}{
		{
			name: "fragment after png is dropped",
			line: "![shot](https://cdn.nlark.com/a/b.png#averageHue=%23f0f0f0&id=abc)",
			want: "![shot](https://cdn.nlark.com/a/b.png)",
		},
		{
			name: "text after the fragment is dropped too",
			line: "![x](https://h/x.png#frag) trailing words",
			want: "![x](https://h/x.png)",
		},
		{
			name: "applies to lines without links",
			line: "see file.png#section",
			want: "see file.png)",
		},
		{
			name: "no fragment is unchanged",
			line: "![x](https://h/x.png)",
			want: "![x](https://h/x.png)",
		},
		{
			name: "other extensions keep their fragment",
			line: "![x](https://h/x.jpg#frag)",
			want: "![x](https://h/x.jpg#frag)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeFragments(tt.line); got != tt.want {
				t.Errorf("NormalizeFragments(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

// TestExtract tests Markdown link extraction from a single line.
func TestExtract(t *testing.T) {
	t.Parallel()

	t.Run("no links returns nil", func(t *testing.T) {
		t.Parallel()

		for _, line := range []string{"", "plain text", "[not a link]", "(just parens)", "[open](unclosed"} {
			if got := Extract(line); got != nil {
				t.Errorf("Extract(%q) = %+v, want nil", line, got)
			}
		}
	})

	t.Run("single image link", func(t *testing.T) {
		t.Parallel()

		line := "before ![alt text](https://cdn.example.com/a.png) after"
		matches := Extract(line)
		if len(matches) != 1 {
			t.Fatalf("expected 1 match, got %d", len(matches))
		}

		m := matches[0]
		if !m.IsImage {
			t.Error("expected image match")
		}
		if got := line[m.Full.Start:m.Full.End]; got != "![alt text](https://cdn.example.com/a.png)" {
			t.Errorf("unexpected full span %q", got)
		}
		if got := m.Text(line); got != "https://cdn.example.com/a.png" {
			t.Errorf("unexpected url %q", got)
		}
	})

	t.Run("multiple links keep order", func(t *testing.T) {
		t.Parallel()

		line := "![a](https://h/1.png) [doc](./readme.md) ![b](https://h/2.gif)"
		matches := Extract(line)
		if len(matches) != 3 {
			t.Fatalf("expected 3 matches, got %d", len(matches))
		}

		want := []string{"https://h/1.png", "./readme.md", "https://h/2.gif"}
		for i, m := range matches {
			if got := m.Text(line); got != want[i] {
				t.Errorf("match %d: expected %q, got %q", i, want[i], got)
			}
			if i > 0 && m.Full.Start < matches[i-1].Full.End {
				t.Errorf("match %d overlaps previous match", i)
			}
		}
		if matches[1].IsImage {
			t.Error("plain link must not be reported as image")
		}
	})

	t.Run("whitespace between label and url", func(t *testing.T) {
		t.Parallel()

		line := "![a] (https://h/1.png)"
		matches := Extract(line)
		if len(matches) != 1 {
			t.Fatalf("expected 1 match, got %d", len(matches))
		}
		if got := matches[0].Text(line); got != "https://h/1.png" {
			t.Errorf("unexpected url %q", got)
		}
	})

	t.Run("url span length", func(t *testing.T) {
		t.Parallel()

		line := "![](x.png)"
		matches := Extract(line)
		if len(matches) != 1 {
			t.Fatalf("expected 1 match, got %d", len(matches))
		}
		if got := matches[0].URL.End - matches[0].URL.Start; got != len("x.png") {
			t.Errorf("expected span length %d, got %d", len("x.png"), got)
		}
	})
}
