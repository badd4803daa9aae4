package ports

import (
	"context"
	"io"

	"github.com/intelliject/intelliject/internal/core/domain"
)

// Embedder builds vectors for question texts and document chunks. Identity
// tags the embedding function (provider + model) so an index built with one
// embedder refuses queries from another.
type Embedder interface {
	Identity() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SubTopicClassifier infers a sub-topic for a question, constrained to the
// closed label set known for its subject.
type SubTopicClassifier interface {
	Classify(ctx context.Context, question string, labels []string) (domain.SubTopicGuess, error)
}

// AnswerExtractor returns the passage of the document that answers the
// question, or an empty span when no passage qualifies.
type AnswerExtractor interface {
	ExtractAnswer(ctx context.Context, question, documentText string) (domain.AnswerSpan, error)
}

// SubjectIndex is an immutable semantic index over one subject's records.
// Safe for concurrent reads; replaced wholesale on re-ingestion.
type SubjectIndex interface {
	Subject() string
	EmbedderIdentity() string
	Len() int
	Record(ordinal int) domain.PYQRecord
	SubTopics() []string
	Search(vector []float32, k int) ([]domain.IndexHit, error)
}

// IndexBuilder constructs a SubjectIndex from validated records and their
// precomputed vectors.
type IndexBuilder interface {
	Build(subject, embedderIdentity string, records []domain.PYQRecord, vectors [][]float32) (SubjectIndex, error)
}

// IndexRegistry holds the live per-subject indexes. Swap is atomic: readers
// see either the previous or the new index in full.
type IndexRegistry interface {
	Get(subject string) (SubjectIndex, bool)
	Swap(index SubjectIndex)
}

// Chunker splits long text into embedder-sized query chunks.
type Chunker interface {
	Split(text string) []string
}

// SpanLocator maps an answer span back to the document runs that carry it.
type SpanLocator interface {
	Locate(doc domain.DocumentText, span string) []domain.HighlightRegion
}

// CorpusStore is the corpus-storage collaborator: the source of truth for
// PYQ records per subject.
type CorpusStore interface {
	ListBySubject(ctx context.Context, subject string) ([]domain.PYQRecord, error)
	ReplaceSubject(ctx context.Context, subject string, records []domain.PYQRecord) (int, error)
}

// HistoryStore persists processed-upload history.
type HistoryStore interface {
	Append(ctx context.Context, entry domain.HistoryEntry) error
	ListRecent(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
}

// CorpusEvents broadcasts corpus re-ingestion so running processes rebuild
// their in-process indexes.
type CorpusEvents interface {
	PublishCorpusUpdated(ctx context.Context, subject string) error
	SubscribeCorpusUpdated(ctx context.Context, handler func(context.Context, string) error) error
}

// DocumentExtractor is the PDF-extraction collaborator: raw bytes in,
// DocumentText with per-run boxes out.
type DocumentExtractor interface {
	Extract(ctx context.Context, r io.ReaderAt, size int64) (domain.DocumentText, error)
}
