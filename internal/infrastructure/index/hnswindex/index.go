// Package hnswindex implements the per-subject semantic index on a pure-Go
// HNSW graph. An Index is immutable after Build: re-ingestion builds a new
// one and swaps it into the Registry.
package hnswindex

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/coder/hnsw"

	"github.com/intelliject/intelliject/internal/core/domain"
	"github.com/intelliject/intelliject/internal/core/ports"
)

type Index struct {
	subject    string
	embedderID string
	dim        int
	records    []domain.PYQRecord
	subTopics  []string
	graph      *hnsw.Graph[int]
}

type Builder struct {
	M        int
	EfSearch int
}

func NewBuilder(m, efSearch int) *Builder {
	if m <= 0 {
		m = 16
	}
	if efSearch <= 0 {
		efSearch = 20
	}
	return &Builder{M: m, EfSearch: efSearch}
}

// Build constructs the index from records and their question vectors, in
// insertion order. Node keys are record ordinals, so search hits map back
// to records without an ID table.
func (b *Builder) Build(subject, embedderIdentity string, records []domain.PYQRecord, vectors [][]float32) (ports.SubjectIndex, error) {
	if len(records) == 0 {
		return nil, domain.WrapError(domain.ErrIngestion, "build index", errors.New("no records for subject"))
	}
	if len(records) != len(vectors) {
		return nil, domain.WrapError(domain.ErrIngestion, "build index",
			fmt.Errorf("records/vectors mismatch: %d/%d", len(records), len(vectors)))
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, domain.WrapError(domain.ErrIngestion, "build index", errors.New("zero-dimensional vector"))
	}

	graph := hnsw.NewGraph[int]()
	graph.Distance = hnsw.CosineDistance
	graph.M = b.M
	graph.EfSearch = b.EfSearch

	seen := make(map[string]bool)
	var subTopics []string

	for ordinal, vector := range vectors {
		if len(vector) != dim {
			return nil, domain.WrapError(domain.ErrIngestion, "build index",
				fmt.Errorf("inconsistent vector dimension at record %d: %d != %d", ordinal, len(vector), dim))
		}
		graph.Add(hnsw.MakeNode(ordinal, normalized(vector)))

		if topic := records[ordinal].SubTopic; topic != "" && !seen[topic] {
			seen[topic] = true
			subTopics = append(subTopics, topic)
		}
	}

	return &Index{
		subject:    subject,
		embedderID: embedderIdentity,
		dim:        dim,
		records:    append([]domain.PYQRecord(nil), records...),
		subTopics:  subTopics,
		graph:      graph,
	}, nil
}

func (idx *Index) Subject() string          { return idx.subject }
func (idx *Index) EmbedderIdentity() string { return idx.embedderID }
func (idx *Index) Len() int                 { return len(idx.records) }

func (idx *Index) Record(ordinal int) domain.PYQRecord { return idx.records[ordinal] }

// SubTopics returns the subject's closed label set, in corpus order.
func (idx *Index) SubTopics() []string {
	return append([]string(nil), idx.subTopics...)
}

// Search returns up to k nearest records by cosine similarity, sorted by
// score descending with ties broken by insertion ordinal.
func (idx *Index) Search(vector []float32, k int) ([]domain.IndexHit, error) {
	if k <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidArgument, "index search", fmt.Errorf("k = %d", k))
	}
	if len(vector) != idx.dim {
		return nil, domain.WrapError(domain.ErrIndexMismatch, "index search",
			fmt.Errorf("query dimension %d, index dimension %d", len(vector), idx.dim))
	}

	query := normalized(vector)
	nodes := idx.graph.Search(query, k)

	hits := make([]domain.IndexHit, 0, len(nodes))
	for _, node := range nodes {
		score := 1 - float64(idx.graph.Distance(query, node.Value))
		if score < 0 {
			score = 0
		}
		hits = append(hits, domain.IndexHit{Ordinal: node.Key, Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
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

func normalized(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vector))
	if norm == 0 {
		copy(out, vector)
		return out
	}
	for i, v := range vector {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
