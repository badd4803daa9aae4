package usecase

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/intelliject/intelliject/internal/core/domain"
	"github.com/intelliject/intelliject/internal/core/ports"
)

// AnnotateUseCase turns retrieval candidates into annotated results: a
// sub-topic, the answering passage, and the page regions carrying it.
type AnnotateUseCase struct {
	classifier  ports.SubTopicClassifier
	extractor   ports.AnswerExtractor
	locator     ports.SpanLocator
	concurrency int

	minSubTopicConfidence float64
	minAnswerConfidence   float64
}

func NewAnnotateUseCase(
	classifier ports.SubTopicClassifier,
	extractor ports.AnswerExtractor,
	locator ports.SpanLocator,
	concurrency int,
	minSubTopicConfidence float64,
	minAnswerConfidence float64,
) *AnnotateUseCase {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &AnnotateUseCase{
		classifier:            classifier,
		extractor:             extractor,
		locator:               locator,
		concurrency:           concurrency,
		minSubTopicConfidence: minSubTopicConfidence,
		minAnswerConfidence:   minAnswerConfidence,
	}
}

// Locate annotates one candidate. A record that already carries a sub-topic
// keeps it; otherwise the classifier infers one from the closed label set,
// falling back to Unclassified on a missing or low-confidence label. A nil
// result with nil error means no answer in the document cleared the
// confidence bar; the candidate is skipped, not failed.
func (uc *AnnotateUseCase) Locate(ctx context.Context, candidate domain.MatchCandidate, doc domain.DocumentText, labels []string) (*domain.AnnotationResult, error) {
	subTopic := candidate.Record.SubTopic
	if subTopic == "" {
		guess, err := uc.classifier.Classify(ctx, candidate.Record.Question, labels)
		if err != nil {
			return nil, fmt.Errorf("classify sub-topic: %w", err)
		}
		subTopic = guess.Label
		if subTopic == "" || guess.Confidence < uc.minSubTopicConfidence {
			subTopic = domain.SubTopicUnclassified
		}
	}

	span, err := uc.extractor.ExtractAnswer(ctx, candidate.Record.Question, doc.PlainText())
	if err != nil {
		return nil, fmt.Errorf("extract answer: %w", err)
	}
	if span.Text == "" || span.Confidence < uc.minAnswerConfidence {
		return nil, nil
	}

	// An answer whose text cannot be mapped back to any run keeps an empty
	// region list; the extracted text is still useful to the caller.
	regions := uc.locator.Locate(doc, span.Text)

	return &domain.AnnotationResult{
		Record:     candidate.Record,
		SubTopic:   subTopic,
		Answer:     span.Text,
		Confidence: span.Confidence,
		Regions:    regions,
		Rank:       candidate.Rank,
	}, nil
}

// LocateAll annotates candidates concurrently while preserving retrieval
// rank order in the output. Candidates without a qualifying answer are
// dropped silently; a candidate whose annotation fails is collected into
// the failed list; only cancellation aborts the whole batch.
func (uc *AnnotateUseCase) LocateAll(ctx context.Context, candidates []domain.MatchCandidate, doc domain.DocumentText, labels []string) ([]domain.AnnotationResult, []domain.FailedCandidate, error) {
	if len(candidates) == 0 {
		return []domain.AnnotationResult{}, nil, nil
	}

	type slot struct {
		result *domain.AnnotationResult
		failed *domain.FailedCandidate
	}
	slots := make([]slot, len(candidates))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(uc.concurrency)

	for i, candidate := range candidates {
		group.Go(func() error {
			result, err := uc.Locate(groupCtx, candidate, doc, labels)
			if err == nil {
				slots[i].result = result
				return nil
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || groupCtx.Err() != nil {
				return err
			}
			slots[i].failed = &domain.FailedCandidate{
				Rank:     candidate.Rank,
				Question: candidate.Record.Question,
				Reason:   err.Error(),
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	results := make([]domain.AnnotationResult, 0, len(candidates))
	var failed []domain.FailedCandidate
	for _, s := range slots {
		switch {
		case s.result != nil:
			results = append(results, *s.result)
		case s.failed != nil:
			failed = append(failed, *s.failed)
		}
	}
	return results, failed, nil
}
