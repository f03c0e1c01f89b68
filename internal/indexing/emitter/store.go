package emitter

import (
	"context"

	"github.com/vietddude/tokenwatch/internal/core/domain"
	"github.com/vietddude/tokenwatch/internal/infra/storage"
)

// Store persists every admitted transaction.
type Store struct {
	repo storage.TransactionRepository
}

// NewStore creates a persisting emitter.
func NewStore(repo storage.TransactionRepository) *Store {
	return &Store{repo: repo}
}

func (s *Store) Emit(ctx context.Context, event *domain.Event) error {
	return s.repo.Save(ctx, event)
}

func (s *Store) Close() error {
	return s.repo.Close()
}
