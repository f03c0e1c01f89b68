package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/tokenwatch/internal/core/domain"
	"github.com/vietddude/tokenwatch/internal/infra/storage"
)

// TxRepo implements storage.TransactionRepository in memory.
type TxRepo struct {
	events []*domain.Event
	bySig  map[string]int
	mu     sync.RWMutex
}

// NewTxRepo creates an empty in-memory repository.
func NewTxRepo() *TxRepo {
	return &TxRepo{
		bySig: make(map[string]int),
	}
}

var _ storage.TransactionRepository = (*TxRepo)(nil)

func (r *TxRepo) Save(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sig := event.Signature()
	if sig != "" {
		if i, ok := r.bySig[sig]; ok {
			r.events[i] = event
			return nil
		}
		r.bySig[sig] = len(r.events)
	}
	r.events = append(r.events, event)
	return nil
}

func (r *TxRepo) GetBySignature(ctx context.Context, signature string) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if i, ok := r.bySig[signature]; ok && signature != "" {
		return r.events[i], nil
	}
	return nil, storage.ErrNotFound
}

func (r *TxRepo) List(ctx context.Context, limit int) ([]*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.events)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]*domain.Event, 0, n)
	for i := len(r.events) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, r.events[i])
	}
	return result, nil
}

func (r *TxRepo) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.events)), nil
}

func (r *TxRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.events[:0]
	clear(r.bySig)
	for _, e := range r.events {
		if e.EmittedAt.Before(cutoff) {
			continue
		}
		if sig := e.Signature(); sig != "" {
			r.bySig[sig] = len(kept)
		}
		kept = append(kept, e)
	}
	removed := int64(len(r.events) - len(kept))
	clear(r.events[len(kept):])
	r.events = kept
	return removed, nil
}

func (r *TxRepo) Close() error { return nil }
