package ports

import (
	"context"

	"github.com/vshulcz/Golastic/internal/domain"
)

// DocumentRepo stores templates and documents for the development index server.
type DocumentRepo interface {
	PutTemplate(ctx context.Context, tpl domain.IndexTemplate) error
	Templates(ctx context.Context) ([]domain.IndexTemplate, error)
	Index(ctx context.Context, docs []domain.StoredDocument) error
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.StoredDocument, error)
	Delete(ctx context.Context, patterns []string) (int, error)
	Ping(ctx context.Context) error
}
