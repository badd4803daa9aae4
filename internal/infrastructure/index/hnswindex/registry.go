package hnswindex

import (
	"sort"
	"sync"

	"github.com/intelliject/intelliject/internal/core/ports"
)

// Registry holds the live index per subject. Swap replaces a subject's
// index atomically, so readers see either the old corpus or the new one,
// never a half-built state.
type Registry struct {
	mu      sync.RWMutex
	indexes map[string]ports.SubjectIndex
}

func NewRegistry() *Registry {
	return &Registry{indexes: make(map[string]ports.SubjectIndex)}
}

func (r *Registry) Get(subject string) (ports.SubjectIndex, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.indexes[subject]
	return idx, ok
}

func (r *Registry) Swap(index ports.SubjectIndex) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexes[index.Subject()] = index
}

// Subjects returns the subjects with a live index, for health reporting.
func (r *Registry) Subjects() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.indexes))
	for subject := range r.indexes {
		out = append(out, subject)
	}
	sort.Strings(out)
	return out
}
