package chunking

import (
	"strings"
	"testing"
)

func TestSplit_Empty(t *testing.T) {
	s := NewSplitter(100, 20)
	if got := s.Split(""); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
}

func TestSplit_ShortTextIsSingleChunk(t *testing.T) {
	s := NewSplitter(100, 20)
	got := s.Split("a short passage")
	if len(got) != 1 || got[0] != "a short passage" {
		t.Fatalf("got %v", got)
	}
}

func TestSplit_OverlappingWindows(t *testing.T) {
	s := NewSplitter(10, 4)
	text := "abcdefghijklmnopqrstuvwxyz"

	got := s.Split(text)

	if len(got) < 3 {
		t.Fatalf("expected multiple chunks, got %v", got)
	}
	if got[0] != "abcdefghij" {
		t.Fatalf("first chunk = %q", got[0])
	}
	// step is size-overlap, so the second window re-reads the last 4 runes
	if got[1] != "ghijklmnop" {
		t.Fatalf("second chunk = %q", got[1])
	}
	if !strings.HasSuffix(got[len(got)-1], "z") {
		t.Fatalf("last chunk must reach end of text, got %q", got[len(got)-1])
	}
}

func TestSplit_UnicodeBoundaries(t *testing.T) {
	s := NewSplitter(4, 1)
	got := s.Split("日本語のテキストです")

	for _, chunk := range got {
		if strings.ContainsRune(chunk, '�') {
			t.Fatalf("chunk %q contains replacement rune, split cut a codepoint", chunk)
		}
	}
}

func TestNewSplitter_NormalizesBadConfig(t *testing.T) {
	s := NewSplitter(0, -5)
	if s.ChunkSize != 900 || s.Overlap != 0 {
		t.Fatalf("got size=%d overlap=%d", s.ChunkSize, s.Overlap)
	}

	s = NewSplitter(100, 100)
	if s.Overlap >= s.ChunkSize {
		t.Fatalf("overlap %d must be below chunk size %d", s.Overlap, s.ChunkSize)
	}
}
