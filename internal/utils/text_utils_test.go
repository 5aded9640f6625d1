package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
)

func TestPlainTextStripsMarkup(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tags removed", "<p>Hello <b>world</b></p>", "Hello world"},
		{"entities decoded", "Fish &amp; Chips &lt;fresh&gt;", "Fish & Chips <fresh>"},
		{"whitespace collapsed", "a\n\n  b\t\tc", "a b c"},
		{"plain passthrough", "already plain", "already plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tp.PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPlainTextDropsInvalidUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	got := tp.PlainText("abc\xffdef")
	if !utf8.ValidString(got) {
		t.Fatalf("result is not valid UTF-8: %q", got)
	}
	if got != "abcdef" {
		t.Errorf("PlainText = %q, want %q", got, "abcdef")
	}
}

func TestSnippetBounded(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	long := strings.Repeat("x", SnippetLimit+100)
	got := tp.Snippet(long)
	if len(got) != SnippetLimit+len("...") {
		t.Errorf("snippet length = %d, want %d", len(got), SnippetLimit+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncated snippet must carry an ellipsis")
	}

	short := "short body"
	if tp.Snippet(short) != short {
		t.Error("short bodies must pass through unmodified")
	}
}

func TestExtractLinksDistinctAndCapped(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	text := "see https://a.example/1 and https://a.example/1 again, " +
		"then https://b.example/2 https://c.example/3 " +
		"https://d.example/4 https://e.example/5 https://f.example/6"
	links := tp.ExtractLinks(text)
	if len(links) != MaxLinks {
		t.Fatalf("expected %d links, got %d: %v", MaxLinks, len(links), links)
	}
	if links[0] != "https://a.example/1" || links[1] != "https://b.example/2" {
		t.Errorf("links must keep first-appearance order, got %v", links)
	}
	for i, l := range links {
		for j := i + 1; j < len(links); j++ {
			if l == links[j] {
				t.Errorf("duplicate link %q", l)
			}
		}
	}
}

func TestTruncateTextRespectsUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	in := "héllo wörld"
	got := tp.TruncateText(in, 7)
	if !strings.HasPrefix(in, strings.TrimSuffix(got, "...")) {
		t.Errorf("truncation broke the original prefix: %q", got)
	}
	if tp.TruncateText("ok", 10) != "ok" {
		t.Error("short input must pass through")
	}
}
