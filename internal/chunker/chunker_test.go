package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func mustSplitter(t *testing.T, cfg Config) *Splitter {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New(%+v): %v", cfg, err)
	}
	return s
}

// 25 lines of 100 bytes each (99 chars + newline) = 2500 bytes.
func lines2500() string {
	var b strings.Builder
	for i := 0; i < 25; i++ {
		b.WriteString(strings.Repeat("x", 99))
		b.WriteString("\n")
	}
	return b.String()
}

func TestSplitLineDocument(t *testing.T) {
	s := mustSplitter(t, Config{ChunkSize: 1000, Overlap: 200, Separator: "\n"})
	text := lines2500()

	chunks := s.Split(text)
	want := []struct{ start, end int }{
		{0, 1000},
		{800, 1800},
		{1600, 2500},
	}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(want))
	}
	for i, w := range want {
		if chunks[i].Start != w.start || chunks[i].End != w.end {
			t.Errorf("chunk %d: got [%d,%d), want [%d,%d)",
				i, chunks[i].Start, chunks[i].End, w.start, w.end)
		}
	}
}

func TestSplitOffsetsMatchText(t *testing.T) {
	s := mustSplitter(t, Config{ChunkSize: 50, Overlap: 10, Separator: "\n"})
	text := "alpha\nbravo charlie\ndelta\necho foxtrot golf hotel india\njuliett\nkilo lima mike november oscar papa\nquebec"

	chunks := s.Split(text)
	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d: Index = %d", i, ch.Index)
		}
		if ch.Text != text[ch.Start:ch.End] {
			t.Errorf("chunk %d: Text does not match source span [%d,%d)", i, ch.Start, ch.End)
		}
	}
	// No gaps: each chunk starts at or before the previous end.
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Start > chunks[i-1].End {
			t.Errorf("gap between chunk %d (end %d) and chunk %d (start %d)",
				i-1, chunks[i-1].End, i, chunks[i].Start)
		}
	}
	if chunks[0].Start != 0 {
		t.Errorf("first chunk starts at %d", chunks[0].Start)
	}
	if last := chunks[len(chunks)-1]; last.End != len(text) {
		t.Errorf("last chunk ends at %d, want %d", last.End, len(text))
	}
}

func TestSplitMultiByteText(t *testing.T) {
	s := mustSplitter(t, Config{ChunkSize: 100, Overlap: 30, Separator: "\n"})
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString(strings.Repeat("日本語テキスト", 3)) // 3 bytes per rune
		b.WriteString("\n")
	}
	text := b.String()

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several overlapping ones", len(chunks))
	}
	for i, ch := range chunks {
		if !utf8.ValidString(ch.Text) {
			t.Errorf("chunk %d is not valid UTF-8, starts with % x", i, ch.Text[:3])
		}
		if ch.Text != text[ch.Start:ch.End] {
			t.Errorf("chunk %d: Text does not match source span [%d,%d)", i, ch.Start, ch.End)
		}
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Start > chunks[i-1].End {
			t.Errorf("gap between chunk %d and chunk %d", i-1, i)
		}
	}
	if last := chunks[len(chunks)-1]; last.End != len(text) {
		t.Errorf("last chunk ends at %d, want %d", last.End, len(text))
	}
}

func TestSplitShortText(t *testing.T) {
	s := mustSplitter(t, Config{ChunkSize: 1000, Overlap: 200, Separator: "\n"})
	chunks := s.Split("just one short line")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != "just one short line" {
		t.Errorf("unexpected chunk text %q", chunks[0].Text)
	}
}

func TestSplitOversizedUnit(t *testing.T) {
	s := mustSplitter(t, Config{ChunkSize: 10, Overlap: 2, Separator: "\n"})
	long := strings.Repeat("y", 40) // no separator anywhere

	chunks := s.Split(long)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1 oversized chunk", len(chunks))
	}
	if chunks[0].Text != long {
		t.Error("oversized unit should be emitted whole")
	}
}

func TestSplitEmptyAndBlank(t *testing.T) {
	s := mustSplitter(t, Config{ChunkSize: 100, Overlap: 10, Separator: "\n"})
	if got := s.Split(""); got != nil {
		t.Errorf("Split(\"\") = %v, want nil", got)
	}
	if got := s.Split("  \n\t\n  "); got != nil {
		t.Errorf("Split(blank) = %v, want nil", got)
	}
}

func TestSplitNoSeparator(t *testing.T) {
	s := mustSplitter(t, Config{ChunkSize: 10, Overlap: 2, Separator: ""})
	text := "abcdefghijklmnop"
	chunks := s.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != text {
		t.Errorf("unexpected chunk text %q", chunks[0].Text)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []Config{
		{ChunkSize: 0, Overlap: 0, Separator: "\n"},
		{ChunkSize: -5, Overlap: 0, Separator: "\n"},
		{ChunkSize: 100, Overlap: -1, Separator: "\n"},
		{ChunkSize: 100, Overlap: 100, Separator: "\n"},
		{ChunkSize: 100, Overlap: 150, Separator: "\n"},
	}
	for _, cfg := range cases {
		_, err := New(cfg)
		if err == nil {
			t.Errorf("New(%+v): expected error", cfg)
			continue
		}
		var cfgErr *ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("New(%+v): error %v is not a ConfigError", cfg, err)
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	s := mustSplitter(t, Config{ChunkSize: 300, Overlap: 60, Separator: "\n"})
	text := lines2500()
	a := s.Split(text)
	b := s.Split(text)
	if len(a) != len(b) {
		t.Fatalf("run lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}
