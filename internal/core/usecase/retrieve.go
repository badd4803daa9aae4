package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/intelliject/intelliject/internal/core/domain"
	"github.com/intelliject/intelliject/internal/core/ports"
)

// RetrieveUseCase finds the corpus questions a document plausibly answers.
// Each chunk of the document is embedded and searched independently; a
// record keeps its best score across all chunks.
type RetrieveUseCase struct {
	registry ports.IndexRegistry
	embedder ports.Embedder
	chunker  ports.Chunker
}

func NewRetrieveUseCase(registry ports.IndexRegistry, embedder ports.Embedder, chunker ports.Chunker) *RetrieveUseCase {
	return &RetrieveUseCase{
		registry: registry,
		embedder: embedder,
		chunker:  chunker,
	}
}

func (uc *RetrieveUseCase) Retrieve(ctx context.Context, subject string, doc domain.DocumentText, k int, minScore float64) ([]domain.MatchCandidate, error) {
	if k <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidArgument, "retrieve", fmt.Errorf("k = %d", k))
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, domain.WrapError(domain.ErrInvalidArgument, "retrieve", fmt.Errorf("empty subject"))
	}

	index, ok := uc.registry.Get(subject)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidArgument, "retrieve",
			fmt.Errorf("no index for subject %s", subject))
	}
	if index.EmbedderIdentity() != uc.embedder.Identity() {
		return nil, domain.WrapError(domain.ErrIndexMismatch, "retrieve",
			fmt.Errorf("index built with %s, querying with %s", index.EmbedderIdentity(), uc.embedder.Identity()))
	}

	chunks := uc.chunker.Split(doc.PlainText())
	if len(chunks) == 0 {
		return []domain.MatchCandidate{}, nil
	}

	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed document chunks: %w", err)
	}

	// best score per record ordinal across all chunks
	best := make(map[int]float64)
	for _, vector := range vectors {
		hits, err := index.Search(vector, k)
		if err != nil {
			return nil, fmt.Errorf("search index: %w", err)
		}
		for _, hit := range hits {
			if score, seen := best[hit.Ordinal]; !seen || hit.Score > score {
				best[hit.Ordinal] = hit.Score
			}
		}
	}

	merged := make([]domain.IndexHit, 0, len(best))
	for ordinal, score := range best {
		if score < minScore {
			continue
		}
		merged = append(merged, domain.IndexHit{Ordinal: ordinal, Score: score})
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].Ordinal < merged[j].Ordinal
	})
	if len(merged) > k {
		merged = merged[:k]
	}

	candidates := make([]domain.MatchCandidate, len(merged))
	for i, hit := range merged {
		candidates[i] = domain.MatchCandidate{
			Record: index.Record(hit.Ordinal),
			Score:  hit.Score,
			Rank:   i + 1,
		}
	}
	return candidates, nil
}
