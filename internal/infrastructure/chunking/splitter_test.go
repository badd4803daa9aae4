package chunking

import (
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("A firewall filters traffic. It enforces rules! Does it log?\nYes.")
	want := []string{
		"A firewall filters traffic.",
		"It enforces rules!",
		"Does it log?",
		"Yes.",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d sentences, got %d: %q", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sentence %d: want %q, got %q", i, want[i], got[i])
		}
	}
}

func TestSplitSentencesCollapsesLineBreaks(t *testing.T) {
	got := SplitSentences("Network\nsecurity   covers\nfirewalls.")
	if len(got) != 1 || got[0] != "Network security covers firewalls." {
		t.Fatalf("unexpected sentences: %q", got)
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(100, 20)
	if chunks := s.Split("   \n  "); chunks != nil {
		t.Fatalf("expected nil for blank text, got %q", chunks)
	}
}

func TestSplitPacksSentencesUnderBudget(t *testing.T) {
	s := NewSplitter(40, 0)
	chunks := s.Split("First sentence here. Second one follows. Third closes it.")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %q", chunks)
	}
	for _, chunk := range chunks {
		if len([]rune(chunk)) > 40 {
			t.Fatalf("chunk over budget: %q", chunk)
		}
		if strings.TrimSpace(chunk) == "" {
			t.Fatalf("blank chunk produced")
		}
	}
}

func TestSplitOversizedSentenceFallsBackToWindow(t *testing.T) {
	long := strings.Repeat("x", 95)
	s := NewSplitter(30, 0)
	chunks := s.Split(long)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 window chunks, got %d: %q", len(chunks), chunks)
	}
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	if total != 95 {
		t.Fatalf("window split lost runes: %d", total)
	}
}

func TestSplitOverlapCarriesTrailingSentence(t *testing.T) {
	s := NewSplitter(50, 25)
	chunks := s.Split("Alpha is first. Beta is second. Gamma is third. Delta is fourth.")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %q", chunks)
	}
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		first := strings.SplitN(chunks[i], ".", 2)[0] + "."
		if !strings.Contains(prev, first) {
			t.Fatalf("chunk %d does not overlap previous: prev=%q cur=%q", i, prev, chunks[i])
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	s := NewSplitter(60, 15)
	text := "One sentence. Another sentence. Yet another sentence here. Final words."
	a := s.Split(text)
	b := s.Split(text)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic chunk count: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic chunk %d: %q vs %q", i, a[i], b[i])
		}
	}
}
