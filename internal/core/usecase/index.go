package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/intelliject/intelliject/internal/core/domain"
	"github.com/intelliject/intelliject/internal/core/ports"
)

// embedBatchSize bounds one embedding request; large corpora are embedded
// in slices of this many questions.
const embedBatchSize = 64

// IndexUseCase rebuilds a subject's semantic index from the corpus store.
// The rebuild is all-or-nothing: any invalid record or collaborator failure
// leaves the previously registered index serving.
type IndexUseCase struct {
	store    ports.CorpusStore
	embedder ports.Embedder
	builder  ports.IndexBuilder
	registry ports.IndexRegistry
	logger   *slog.Logger
}

func NewIndexUseCase(
	store ports.CorpusStore,
	embedder ports.Embedder,
	builder ports.IndexBuilder,
	registry ports.IndexRegistry,
	logger *slog.Logger,
) *IndexUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexUseCase{
		store:    store,
		embedder: embedder,
		builder:  builder,
		registry: registry,
		logger:   logger,
	}
}

func (uc *IndexUseCase) Rebuild(ctx context.Context, subject string) (ports.SubjectIndex, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, domain.WrapError(domain.ErrInvalidArgument, "rebuild index", fmt.Errorf("empty subject"))
	}

	records, err := uc.store.ListBySubject(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("list corpus: %w", err)
	}
	if len(records) == 0 {
		return nil, domain.WrapError(domain.ErrIngestion, "rebuild index",
			fmt.Errorf("no records for subject %s", subject))
	}

	// Validate the whole batch up front so a bad record aborts before any
	// embedding work.
	for i, rec := range records {
		if err := rec.Validate(subject); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	questions := make([]string, len(records))
	for i, rec := range records {
		questions[i] = rec.Question
	}

	vectors := make([][]float32, 0, len(records))
	for start := 0; start < len(questions); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(questions) {
			end = len(questions)
		}
		batch, err := uc.embedder.Embed(ctx, questions[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed corpus batch: %w", err)
		}
		vectors = append(vectors, batch...)
	}

	index, err := uc.builder.Build(subject, uc.embedder.Identity(), records, vectors)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	uc.registry.Swap(index)
	uc.logger.Info("index_rebuilt",
		"subject", subject,
		"records", index.Len(),
		"embedder", index.EmbedderIdentity(),
	)
	return index, nil
}
