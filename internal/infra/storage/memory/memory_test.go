package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/tokenwatch/internal/core/domain"
	"github.com/vietddude/tokenwatch/internal/infra/storage"
)

func eventWith(seq uint64, signature string) *domain.Event {
	summary := domain.NewTransactionSummary(time.Unix(1700000000, 0))
	if signature != "" {
		summary.Signature = &signature
	}
	return &domain.Event{Seq: seq, Summary: summary}
}

func TestTxRepo_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewTxRepo()

	require.NoError(t, repo.Save(ctx, eventWith(1, "sigA")))

	got, err := repo.GetBySignature(ctx, "sigA")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Seq)

	_, err = repo.GetBySignature(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTxRepo_UpsertBySignature(t *testing.T) {
	ctx := context.Background()
	repo := NewTxRepo()

	require.NoError(t, repo.Save(ctx, eventWith(1, "sigA")))
	require.NoError(t, repo.Save(ctx, eventWith(2, "sigA")))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := repo.GetBySignature(ctx, "sigA")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Seq)
}

func TestTxRepo_UnsignedAreAppended(t *testing.T) {
	ctx := context.Background()
	repo := NewTxRepo()

	require.NoError(t, repo.Save(ctx, eventWith(1, "")))
	require.NoError(t, repo.Save(ctx, eventWith(2, "")))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = repo.GetBySignature(ctx, "")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTxRepo_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewTxRepo()
	for i, sig := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Save(ctx, eventWith(uint64(i+1), sig)))
	}

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint64{3, 2, 1}, []uint64{all[0].Seq, all[1].Seq, all[2].Seq})

	limited, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, uint64(3), limited[0].Seq)
}

func TestTxRepo_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()
	repo := NewTxRepo()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, sig := range []string{"old", "", "new"} {
		e := eventWith(uint64(i+1), sig)
		e.EmittedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Save(ctx, e))
	}

	removed, err := repo.DeleteOlderThan(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = repo.GetBySignature(ctx, "old")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := repo.GetBySignature(ctx, "new")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.Seq)

	// The signature index must follow the compacted slice.
	replacement := eventWith(9, "new")
	replacement.EmittedAt = base.Add(3 * time.Hour)
	require.NoError(t, repo.Save(ctx, replacement))
	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
