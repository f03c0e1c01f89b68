package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/tokenwatch/internal/core/domain"
	"github.com/vietddude/tokenwatch/internal/infra/storage/memory"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, repo *memory.TxRepo, ages ...time.Duration) {
	t.Helper()
	for i, age := range ages {
		require.NoError(t, repo.Save(context.Background(), &domain.Event{
			Seq:       uint64(i + 1),
			EmittedAt: now.Add(-age),
		}))
	}
}

func TestPruner_Prune(t *testing.T) {
	repo := memory.NewTxRepo()
	seed(t, repo, 48*time.Hour, 25*time.Hour, time.Hour)

	p := NewPruner(24*time.Hour, repo)
	p.now = func() time.Time { return now }

	assert.Equal(t, int64(2), p.Prune(context.Background()))

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

type brokenRepo struct {
	*memory.TxRepo
}

func (brokenRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestPruner_PruneError(t *testing.T) {
	p := NewPruner(time.Hour, brokenRepo{memory.NewTxRepo()})
	assert.Equal(t, int64(0), p.Prune(context.Background()))
}

func TestPruner_Interval(t *testing.T) {
	tests := []struct {
		retention time.Duration
		want      time.Duration
	}{
		{time.Minute, time.Minute},
		{30 * time.Minute, 3 * time.Minute},
		{72 * time.Hour, time.Hour},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewPruner(tt.retention, nil).Interval(), "retention %s", tt.retention)
	}
}

func TestPruner_DisabledReturnsImmediately(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewPruner(0, memory.NewTxRepo()).Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled pruner did not return")
	}
}
