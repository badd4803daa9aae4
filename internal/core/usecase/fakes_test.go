package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/intelliject/intelliject/internal/core/domain"
	"github.com/intelliject/intelliject/internal/core/ports"
)

// fakeEmbedder maps known texts to fixed vectors. Unknown texts embed to
// the fallback vector, so tests control similarity precisely.
type fakeEmbedder struct {
	identity string
	vectors  map[string][]float32
	fallback []float32
	err      error

	mu    sync.Mutex
	calls int
}

func newFakeEmbedder(identity string) *fakeEmbedder {
	return &fakeEmbedder{
		identity: identity,
		vectors:  make(map[string][]float32),
		fallback: []float32{0, 0, 1},
	}
}

func (f *fakeEmbedder) Identity() string { return f.identity }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := f.vectors[text]; ok {
			out[i] = v
			continue
		}
		matched := false
		for key, v := range f.vectors {
			if strings.Contains(text, key) {
				out[i] = v
				matched = true
				break
			}
		}
		if !matched {
			out[i] = f.fallback
		}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// fakeIndex is a brute-force cosine index over fixed vectors.
type fakeIndex struct {
	subject  string
	identity string
	records  []domain.PYQRecord
	vectors  [][]float32
}

func (f *fakeIndex) Subject() string                     { return f.subject }
func (f *fakeIndex) EmbedderIdentity() string            { return f.identity }
func (f *fakeIndex) Len() int                            { return len(f.records) }
func (f *fakeIndex) Record(ordinal int) domain.PYQRecord { return f.records[ordinal] }

func (f *fakeIndex) SubTopics() []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range f.records {
		if rec.SubTopic != "" && !seen[rec.SubTopic] {
			seen[rec.SubTopic] = true
			out = append(out, rec.SubTopic)
		}
	}
	return out
}

func (f *fakeIndex) Search(vector []float32, k int) ([]domain.IndexHit, error) {
	if k <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidArgument, "fake search", fmt.Errorf("k = %d", k))
	}
	if len(f.vectors) > 0 && len(vector) != len(f.vectors[0]) {
		return nil, domain.WrapError(domain.ErrIndexMismatch, "fake search", fmt.Errorf("dimension mismatch"))
	}
	hits := make([]domain.IndexHit, 0, len(f.vectors))
	for ordinal, v := range f.vectors {
		hits = append(hits, domain.IndexHit{Ordinal: ordinal, Score: cosine(vector, v)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ordinal < hits[j].Ordinal
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

type fakeRegistry struct {
	mu      sync.RWMutex
	indexes map[string]ports.SubjectIndex
	swaps   int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{indexes: make(map[string]ports.SubjectIndex)}
}

func (r *fakeRegistry) Get(subject string) (ports.SubjectIndex, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.indexes[subject]
	return idx, ok
}

func (r *fakeRegistry) Swap(index ports.SubjectIndex) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexes[index.Subject()] = index
	r.swaps++
}

type fakeBuilder struct {
	err error
}

func (b *fakeBuilder) Build(subject, embedderIdentity string, records []domain.PYQRecord, vectors [][]float32) (ports.SubjectIndex, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(records) != len(vectors) {
		return nil, domain.WrapError(domain.ErrIngestion, "fake build", fmt.Errorf("records/vectors mismatch"))
	}
	return &fakeIndex{
		subject:  subject,
		identity: embedderIdentity,
		records:  records,
		vectors:  vectors,
	}, nil
}

type fakeStore struct {
	records map[string][]domain.PYQRecord
	err     error
}

func (s *fakeStore) ListBySubject(_ context.Context, subject string) ([]domain.PYQRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records[subject], nil
}

func (s *fakeStore) ReplaceSubject(_ context.Context, subject string, records []domain.PYQRecord) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.records == nil {
		s.records = make(map[string][]domain.PYQRecord)
	}
	s.records[subject] = records
	return len(records), nil
}

type fakeClassifier struct {
	fn func(question string, labels []string) (domain.SubTopicGuess, error)
}

func (c *fakeClassifier) Classify(_ context.Context, question string, labels []string) (domain.SubTopicGuess, error) {
	if c.fn == nil {
		return domain.SubTopicGuess{Label: domain.SubTopicUnclassified}, nil
	}
	return c.fn(question, labels)
}

type fakeExtractor struct {
	fn func(question, documentText string) (domain.AnswerSpan, error)
}

func (x *fakeExtractor) ExtractAnswer(_ context.Context, question, documentText string) (domain.AnswerSpan, error) {
	if x.fn == nil {
		return domain.AnswerSpan{}, nil
	}
	return x.fn(question, documentText)
}

// fakeLocator returns one region per page whose text contains the span.
type fakeLocator struct{}

func (fakeLocator) Locate(doc domain.DocumentText, span string) []domain.HighlightRegion {
	var out []domain.HighlightRegion
	for _, page := range doc.Pages {
		for _, run := range page.Runs {
			if strings.Contains(run.Text, span) || strings.Contains(span, run.Text) {
				out = append(out, domain.HighlightRegion{Page: page.Number, Box: run.Box})
				break
			}
		}
	}
	return out
}

type staticChunker struct {
	chunks []string
}

func (c *staticChunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if c.chunks != nil {
		return c.chunks
	}
	return []string{text}
}

func singleRunDoc(text string) domain.DocumentText {
	return domain.DocumentText{Pages: []domain.Page{{
		Number: 0,
		Width:  600,
		Height: 800,
		Runs: []domain.TextRun{{
			Text: text,
			Box:  domain.BoundingBox{X: 40, Y: 100, W: 400, H: 14},
		}},
	}}}
}
