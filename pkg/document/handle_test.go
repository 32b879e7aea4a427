package document

import (
	"testing"

	"github.com/sloked-go/sloked/internal/buffer"
	"github.com/sloked-go/sloked/internal/encoding"
)

func TestHandleTextJoinsLinesUnderNewlineStyle(t *testing.T) {
	h := &Handle{
		block:   buffer.New([]string{"one", "two", "three"}),
		codec:   encoding.UTF8{},
		newline: CRLF,
	}
	want := "one\r\ntwo\r\nthree"
	if got := h.Text(); got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}
}

func TestHandleUpstreamUnsetByDefault(t *testing.T) {
	h := &Handle{block: buffer.Empty(), codec: encoding.UTF8{}}
	if _, ok := h.Upstream(); ok {
		t.Fatalf("expected no upstream for a fresh handle")
	}
	h.SetUpstream("https://example.test/doc")
	uri, ok := h.Upstream()
	if !ok || uri != "https://example.test/doc" {
		t.Fatalf("Upstream() = %q, %v, want set URI", uri, ok)
	}
}

func TestSplitAndJoinLinesRoundtrip(t *testing.T) {
	content := "a\r\nb\r\nc"
	lines := splitLines(content, CRLF)
	want := []string{"a", "b", "c"}
	if len(lines) != len(want) {
		t.Fatalf("splitLines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("splitLines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
	if got := joinLines(lines, CRLF); got != content {
		t.Fatalf("joinLines = %q, want %q", got, content)
	}
}

func TestSplitLinesOfEmptyContentIsSingleEmptyLine(t *testing.T) {
	lines := splitLines("", LF)
	if len(lines) != 1 || lines[0] != "" {
		t.Fatalf("splitLines(\"\") = %v, want [\"\"]", lines)
	}
}
