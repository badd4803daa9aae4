// Package chunking splits extracted document text into embedder-sized
// query chunks. Chunks follow sentence boundaries where possible so a
// retrieval query never starts mid-sentence.
package chunking

import (
	"strings"
	"unicode"
)

type Splitter struct {
	ChunkSize int // max chunk length in runes
	Overlap   int // runes of trailing sentences carried into the next chunk
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap}
}

func (s *Splitter) Split(text string) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var out []string
	var current []string
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(current, " "))
		if chunk != "" {
			out = append(out, chunk)
		}

		// Seed the next chunk with trailing sentences up to the overlap
		// budget so context is not cut at the boundary.
		var carried []string
		carriedLen := 0
		for i := len(current) - 1; i >= 0 && carriedLen < s.Overlap; i-- {
			carried = append([]string{current[i]}, carried...)
			carriedLen += len([]rune(current[i])) + 1
		}
		current = carried
		currentLen = carriedLen
	}

	for _, sentence := range sentences {
		runeLen := len([]rune(sentence))
		if runeLen > s.ChunkSize {
			flush()
			current = nil
			currentLen = 0
			out = append(out, windowSplit(sentence, s.ChunkSize)...)
			continue
		}
		if currentLen+runeLen > s.ChunkSize {
			flush()
		}
		current = append(current, sentence)
		currentLen += runeLen + 1
	}
	flush()

	return dropCarryOnlyTail(out)
}

// dropCarryOnlyTail removes a final chunk that is a pure suffix of the
// previous one (possible when the last flush carried only overlap).
func dropCarryOnlyTail(chunks []string) []string {
	n := len(chunks)
	if n >= 2 && strings.HasSuffix(chunks[n-2], chunks[n-1]) {
		return chunks[:n-1]
	}
	return chunks
}

func windowSplit(text string, size int) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

// SplitSentences breaks text on terminal punctuation followed by space.
// Whitespace runs are collapsed first so PDF line breaks do not fragment
// sentences.
func SplitSentences(text string) []string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if collapsed == "" {
		return nil
	}

	var out []string
	runes := []rune(collapsed)
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		// Consume a run of terminals ("...", "?!").
		for i+1 < len(runes) && isTerminal(runes[i+1]) {
			i++
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			out = append(out, sentence)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
