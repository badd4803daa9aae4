// Package textspan maps extracted answer text back onto the document's
// text runs. Matching is purely lexical and in-process: the inference
// collaborator decides WHAT answers a question, this package decides WHERE
// that text sits on the page.
package textspan

import (
	"sort"

	"github.com/intelliject/intelliject/internal/core/domain"
	"github.com/intelliject/intelliject/internal/infrastructure/chunking"
)

// Locator finds highlight regions for an answer span.
//
// Each span sentence is matched against the per-page token stream: exact
// token-sequence occurrences first, then the best-overlap window of the
// same length when the model paraphrased punctuation or casing. Matched
// runs are grouped by contiguity into one region per group.
type Locator struct {
	// MinOverlap is the token-overlap ratio a fuzzy window must reach
	// before its runs count as located.
	MinOverlap float64
}

func NewLocator(minOverlap float64) *Locator {
	if minOverlap <= 0 || minOverlap > 1 {
		minOverlap = 0.6
	}
	return &Locator{MinOverlap: minOverlap}
}

type pageToken struct {
	text string
	run  int
}

func (l *Locator) Locate(doc domain.DocumentText, span string) []domain.HighlightRegion {
	sentences := chunking.SplitSentences(span)
	if len(sentences) == 0 {
		return nil
	}

	streams := make([][]pageToken, len(doc.Pages))
	for p, page := range doc.Pages {
		streams[p] = tokenizePage(page)
	}

	// matched[pageIdx] holds the set of located run indices on that page.
	matched := make([]map[int]bool, len(doc.Pages))
	for _, sentence := range sentences {
		tokens := tokenize(sentence)
		if len(tokens) == 0 {
			continue
		}
		if !markExactOccurrences(streams, tokens, matched) {
			markBestWindow(streams, tokens, l.MinOverlap, matched)
		}
	}

	return regionsFromRuns(doc, matched)
}

// markExactOccurrences marks every exact token-sequence occurrence across
// all pages. Returns false when the sentence appears nowhere verbatim.
func markExactOccurrences(streams [][]pageToken, tokens []string, matched []map[int]bool) bool {
	found := false
	for p, stream := range streams {
		for start := 0; start+len(tokens) <= len(stream); start++ {
			if !tokenSeqEqual(stream[start:start+len(tokens)], tokens) {
				continue
			}
			markRuns(matched, p, stream[start:start+len(tokens)])
			found = true
			start += len(tokens) - 1
		}
	}
	return found
}

// markBestWindow finds the single window with the highest token overlap
// across all pages and marks it when it clears the threshold. Ties keep
// the earliest window on the earliest page, so output is deterministic.
func markBestWindow(streams [][]pageToken, tokens []string, minOverlap float64, matched []map[int]bool) {
	bestPage, bestStart := -1, -1
	bestRatio := 0.0

	want := make(map[string]int, len(tokens))
	for _, token := range tokens {
		want[token]++
	}

	for p, stream := range streams {
		if len(stream) < len(tokens) {
			continue
		}
		for start := 0; start+len(tokens) <= len(stream); start++ {
			ratio := overlapRatio(stream[start:start+len(tokens)], want, len(tokens))
			if ratio > bestRatio {
				bestRatio = ratio
				bestPage, bestStart = p, start
			}
		}
	}

	if bestPage < 0 || bestRatio < minOverlap {
		return
	}
	markRuns(matched, bestPage, streams[bestPage][bestStart:bestStart+len(tokens)])
}

func overlapRatio(window []pageToken, want map[string]int, total int) float64 {
	remaining := make(map[string]int, len(want))
	for token, n := range want {
		remaining[token] = n
	}
	hits := 0
	for _, pt := range window {
		if remaining[pt.text] > 0 {
			remaining[pt.text]--
			hits++
		}
	}
	return float64(hits) / float64(total)
}

func markRuns(matched []map[int]bool, page int, window []pageToken) {
	if matched[page] == nil {
		matched[page] = make(map[int]bool)
	}
	for _, pt := range window {
		matched[page][pt.run] = true
	}
}

func regionsFromRuns(doc domain.DocumentText, matched []map[int]bool) []domain.HighlightRegion {
	var out []domain.HighlightRegion
	for p, runSet := range matched {
		if len(runSet) == 0 {
			continue
		}
		runs := make([]int, 0, len(runSet))
		for run := range runSet {
			runs = append(runs, run)
		}
		sort.Ints(runs)

		page := doc.Pages[p]
		groupStart := 0
		for i := 1; i <= len(runs); i++ {
			if i < len(runs) && runs[i] == runs[i-1]+1 {
				continue
			}
			box := page.Runs[runs[groupStart]].Box
			for _, run := range runs[groupStart+1 : i] {
				box = box.Union(page.Runs[run].Box)
			}
			out = append(out, domain.HighlightRegion{
				Page: page.Number,
				Box:  box.ClampTo(page.Width, page.Height),
			})
			groupStart = i
		}
	}
	return out
}

func tokenizePage(page domain.Page) []pageToken {
	var out []pageToken
	for runIdx, run := range page.Runs {
		for _, token := range tokenize(run.Text) {
			out = append(out, pageToken{text: token, run: runIdx})
		}
	}
	return out
}

func tokenSeqEqual(window []pageToken, tokens []string) bool {
	for i, token := range tokens {
		if window[i].text != token {
			return false
		}
	}
	return true
}

func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	tokens := make([]string, 0, 16)
	current := make([]rune, 0, 16)
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			current = append(current, r)
		case r >= 'A' && r <= 'Z':
			current = append(current, r+('a'-'A'))
		default:
			if len(current) > 0 {
				tokens = append(tokens, string(current))
				current = current[:0]
			}
		}
	}
	if len(current) > 0 {
		tokens = append(tokens, string(current))
	}
	return tokens
}
