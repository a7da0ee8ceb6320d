package snapshots

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coinrates/internal/domain"
)

func snapshotAt(ts time.Time, price int64) domain.QuoteSnapshot {
	return domain.QuoteSnapshot{
		Timestamp: ts,
		Data: []domain.Quote{
			{Symbol: "BTC", Price: decimal.NewFromInt(price), Change24h: decimal.RequireFromString("1.5")},
		},
	}
}

func TestWALStoreAppendAndStream(t *testing.T) {
	store, err := NewWALStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(snapshotAt(base.Add(time.Duration(i)*time.Minute), int64(50000+i))))
	}

	all, err := store.SnapshotsAfter(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, uint64(1), all[0].Index)
	assert.True(t, all[0].Snapshot.Data[0].Price.Equal(decimal.NewFromInt(50000)))
	assert.Equal(t, base, all[0].Snapshot.Timestamp)

	tail, err := store.SnapshotsAfter(all[0].Index)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, uint64(3), tail[1].Index)
	assert.Equal(t, base.Add(2*time.Minute), tail[1].Snapshot.Timestamp)

	none, err := store.SnapshotsAfter(tail[1].Index)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWALStoreCursorIgnoresTimestamps(t *testing.T) {
	store, err := NewWALStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	t0 := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(snapshotAt(t0, 1)))

	first, err := store.SnapshotsAfter(0)
	require.NoError(t, err)
	require.Len(t, first, 1)
	cursor := first[0].Index

	// same millisecond, then a clock step back
	require.NoError(t, store.Append(snapshotAt(t0, 2)))
	require.NoError(t, store.Append(snapshotAt(t0.Add(-time.Second), 3)))

	next, err := store.SnapshotsAfter(cursor)
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.True(t, next[0].Snapshot.Data[0].Price.Equal(decimal.NewFromInt(2)))
	assert.True(t, next[1].Snapshot.Data[0].Price.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, t0.Add(-time.Second), next[1].Snapshot.Timestamp)
}

func TestWALStoreEmpty(t *testing.T) {
	store, err := NewWALStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	records, err := store.SnapshotsAfter(0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWALStoreReopen(t *testing.T) {
	dir := t.TempDir()
	ts := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	store, err := NewWALStore(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Append(snapshotAt(ts, 42)))
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.Append(snapshotAt(ts, 43)))

	records, err := reopened.SnapshotsAfter(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ts, records[0].Snapshot.Timestamp)
	assert.Equal(t, uint64(2), records[1].Index)
}

func TestWALStoreNil(t *testing.T) {
	var store *WALStore
	assert.Error(t, store.Append(domain.QuoteSnapshot{}))
	_, err := store.SnapshotsAfter(0)
	assert.Error(t, err)
}
