package ports

import (
	"context"

	"github.com/intelliject/intelliject/internal/core/domain"
)

// CorpusIndexer is the inbound contract for (re)building a subject index.
type CorpusIndexer interface {
	Rebuild(ctx context.Context, subject string) (SubjectIndex, error)
}

// Retriever returns the PYQs most relevant to a document's text.
type Retriever interface {
	Retrieve(ctx context.Context, subject string, doc domain.DocumentText, k int, minScore float64) ([]domain.MatchCandidate, error)
}

// Annotator locates answers for retrieved candidates.
type Annotator interface {
	Locate(ctx context.Context, candidate domain.MatchCandidate, doc domain.DocumentText, labels []string) (*domain.AnnotationResult, error)
	LocateAll(ctx context.Context, candidates []domain.MatchCandidate, doc domain.DocumentText, labels []string) ([]domain.AnnotationResult, []domain.FailedCandidate, error)
}

// Pipeline is the caller-facing entry point: subject + document text in,
// ranked annotations plus failed-candidate visibility out.
type Pipeline interface {
	Process(ctx context.Context, subject string, doc domain.DocumentText) (*domain.MatchReport, error)
}
