package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/tokenwatch/internal/core/domain"
)

var (
	// ErrNotFound is returned when a transaction doesn't exist
	ErrNotFound = errors.New("transaction not found")
)

// TransactionRepository handles storage of admitted transactions.
//
// Saving an event whose signature is already stored replaces the stored
// event. Events without a signature are always appended.
type TransactionRepository interface {
	// Save saves an admitted transaction
	Save(ctx context.Context, event *domain.Event) error

	// GetBySignature retrieves a transaction by signature
	GetBySignature(ctx context.Context, signature string) (*domain.Event, error)

	// List returns the most recently stored transactions, newest first
	List(ctx context.Context, limit int) ([]*domain.Event, error)

	// Count returns the number of stored transactions
	Count(ctx context.Context) (int64, error)

	// DeleteOlderThan removes transactions emitted before cutoff and returns
	// how many were removed
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases the underlying connection
	Close() error
}
