package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_InsertAndStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []Entry{
		{SessionID: "a", Kind: KindAccept, Letter: "H", Buffer: "H", CommittedAt: base},
		{SessionID: "a", Kind: KindAccept, Letter: "I", Buffer: "HI", CommittedAt: base.Add(10 * time.Second)},
		{SessionID: "a", Kind: KindDelete, Buffer: "H", CommittedAt: base.Add(20 * time.Second)},
		{SessionID: "b", Kind: KindAccept, Letter: "H", Buffer: "H", CommittedAt: base.Add(24 * time.Hour)},
	}
	require.NoError(t, s.Insert(ctx, entries...))

	stats, err := s.LetterStats(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []LetterStat{{Letter: "H", Count: 2}, {Letter: "I", Count: 1}}, stats)

	stats, err = s.LetterStats(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []LetterStat{{Letter: "H", Count: 1}}, stats)

	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Sessions)
	assert.Equal(t, 3, sum.Accepts)
	assert.Equal(t, 1, sum.Deletes)
	assert.True(t, sum.First.Equal(base), "First = %v", sum.First)
	assert.True(t, sum.Last.Equal(base.Add(24*time.Hour)), "Last = %v", sum.Last)
}

func TestStore_EmptySummary(t *testing.T) {
	s := openTestStore(t)

	sum, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)

	stats, err := s.LetterStats(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Insert(context.Background(), Entry{
		SessionID: "x", Kind: KindAccept, Letter: "Q", Buffer: "Q", CommittedAt: time.Now(),
	}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	sum, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Accepts)
}

func TestWriter_FlushesOnClose(t *testing.T) {
	s := openTestStore(t)
	w := NewWriter(s, 256, nil)

	now := time.Now()
	for i := 0; i < 100; i++ {
		ok := w.Record(Entry{
			SessionID:   fmt.Sprintf("s%d", i%3),
			Kind:        KindAccept,
			Letter:      "A",
			Buffer:      "A",
			CommittedAt: now,
		})
		require.True(t, ok)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Close(ctx))

	sum, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, sum.Accepts)
	assert.Equal(t, 3, sum.Sessions)

	assert.False(t, w.Record(Entry{SessionID: "late"}), "Record after Close should be rejected")
	assert.NoError(t, w.Close(ctx), "second Close should be a no-op")
}
