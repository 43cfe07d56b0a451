// Package memory implements an in-memory document repository.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/vshulcz/Golastic/internal/domain"
	"github.com/vshulcz/Golastic/internal/ports"
)

// Repo keeps templates and documents in memory with coarse-grained RW locking.
type Repo struct {
	templates map[string]domain.IndexTemplate
	docs      []domain.StoredDocument
	seq       int64
	mu        sync.RWMutex
}

var _ ports.DocumentRepo = (*Repo)(nil)

// New returns an empty in-memory repository.
func New() *Repo {
	return &Repo{
		templates: make(map[string]domain.IndexTemplate),
	}
}

// PutTemplate stores or replaces a template by name.
func (r *Repo) PutTemplate(_ context.Context, tpl domain.IndexTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[tpl.Name] = tpl
	return nil
}

// Templates returns every stored template ordered by name.
func (r *Repo) Templates(_ context.Context) ([]domain.IndexTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := slices.Sorted(maps.Keys(r.templates))
	out := make([]domain.IndexTemplate, 0, len(names))
	for _, n := range names {
		out = append(out, r.templates[n])
	}
	return out, nil
}

// Index appends documents, assigning increasing sequence numbers.
func (r *Repo) Index(_ context.Context, docs []domain.StoredDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range docs {
		r.seq++
		d.Seq = r.seq
		d.Source = slices.Clone(d.Source)
		r.docs = append(r.docs, d)
	}
	return nil
}

// Search returns matching documents in insertion order.
func (r *Repo) Search(_ context.Context, q domain.SearchQuery) ([]domain.StoredDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.StoredDocument
	for _, d := range r.docs {
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
		if q.Match(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Delete drops documents whose index matches any pattern.
func (r *Repo) Delete(_ context.Context, patterns []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := domain.SearchQuery{Patterns: patterns}
	before := len(r.docs)
	r.docs = slices.DeleteFunc(r.docs, func(d domain.StoredDocument) bool {
		return len(patterns) > 0 && q.Match(d)
	})
	return before - len(r.docs), nil
}

// Ping reports that the in-memory store is not backed by a real database.
func (*Repo) Ping(context.Context) error {
	return errors.New("db not configured")
}
