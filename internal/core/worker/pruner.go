package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/tokenwatch/internal/infra/storage"
)

// Pruner deletes stored transactions older than the retention period.
type Pruner struct {
	retention time.Duration
	txRepo    storage.TransactionRepository
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, txRepo storage.TransactionRepository) *Pruner {
	return &Pruner{
		retention: retention,
		txRepo:    txRepo,
		now:       time.Now,
	}
}

// Interval is the pause between prune passes: a tenth of the retention
// period, clamped to [1m, 1h].
func (p *Pruner) Interval() time.Duration {
	interval := min(p.retention/10, time.Hour)
	return max(interval, time.Minute)
}

// Start runs the pruner loop until ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 || p.txRepo == nil {
		return // Retention disabled
	}

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	// Initial prune
	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune runs one pass and returns the number of removed transactions.
func (p *Pruner) Prune(ctx context.Context) int64 {
	cutoff := p.now().Add(-p.retention)

	removed, err := p.txRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to prune transactions", "cutoff", cutoff, "error", err)
		return 0
	}
	if removed > 0 {
		slog.Info("Pruned stored transactions", "removed", removed, "cutoff", cutoff)
	}
	return removed
}
