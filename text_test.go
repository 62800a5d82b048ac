package partychat

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a   b   c", "a b c"},
		{"  leading and trailing  ", "leading and trailing"},
		{"tabs\tand\nnewlines\r\n", "tabs and newlines"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	t.Run("collapses whitespace under the bound", func(t *testing.T) {
		if got := Truncate("a   b   c", DefaultPreviewLimit); got != "a b c" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("long input is cut to the bound", func(t *testing.T) {
		got := Truncate(strings.Repeat("x", 200), 90)
		if n := utf8.RuneCountInString(got); n != 90 {
			t.Fatalf("length = %d, want 90", n)
		}
		if !strings.HasSuffix(got, "…") || strings.Count(got, "…") != 1 {
			t.Fatalf("want a single trailing ellipsis, got %q", got)
		}
		if strings.TrimSuffix(got, "…") != strings.Repeat("x", 89) {
			t.Fatalf("unexpected prefix %q", got)
		}
	})

	t.Run("exact length is kept", func(t *testing.T) {
		in := strings.Repeat("y", 70)
		if got := Truncate(in, DefaultSnippetLimit); got != in {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("counts runes not bytes", func(t *testing.T) {
		if got := Truncate("ééééé", 3); got != "éé…" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("non-positive limit disables truncation", func(t *testing.T) {
		if got := Truncate(" a  b ", 0); got != "a b" {
			t.Fatalf("got %q", got)
		}
	})
}
