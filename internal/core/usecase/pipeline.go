package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/intelliject/intelliject/internal/core/domain"
	"github.com/intelliject/intelliject/internal/core/ports"
)

// PipelineUseCase runs the whole matching flow for one document: retrieve
// candidate questions, then annotate each with sub-topic, answer, and
// highlight regions.
type PipelineUseCase struct {
	retriever ports.Retriever
	annotator ports.Annotator
	registry  ports.IndexRegistry
	topK      int
	minScore  float64
	logger    *slog.Logger
}

func NewPipelineUseCase(
	retriever ports.Retriever,
	annotator ports.Annotator,
	registry ports.IndexRegistry,
	topK int,
	minScore float64,
	logger *slog.Logger,
) *PipelineUseCase {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PipelineUseCase{
		retriever: retriever,
		annotator: annotator,
		registry:  registry,
		topK:      topK,
		minScore:  minScore,
		logger:    logger,
	}
}

func (uc *PipelineUseCase) Process(ctx context.Context, subject string, doc domain.DocumentText) (*domain.MatchReport, error) {
	candidates, err := uc.retriever.Retrieve(ctx, subject, doc, uc.topK, uc.minScore)
	if err != nil {
		return nil, fmt.Errorf("retrieve candidates: %w", err)
	}
	if len(candidates) == 0 {
		return &domain.MatchReport{Subject: subject, Results: []domain.AnnotationResult{}}, nil
	}

	var labels []string
	if index, ok := uc.registry.Get(subject); ok {
		labels = index.SubTopics()
	}

	results, failed, err := uc.annotator.LocateAll(ctx, candidates, doc, labels)
	if err != nil {
		return nil, fmt.Errorf("annotate candidates: %w", err)
	}

	uc.logger.Info("pipeline_run",
		"subject", subject,
		"candidates", len(candidates),
		"annotated", len(results),
		"failed", len(failed),
	)
	return &domain.MatchReport{
		Subject: subject,
		Results: results,
		Failed:  failed,
	}, nil
}
