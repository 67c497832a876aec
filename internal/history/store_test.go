package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	assert.NoError(t, s.verifyPragma(ctx, "journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma(ctx, "busy_timeout", "5000"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, s2.Close())
}

func TestAppendRun_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := Run{
		StartedAt: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
		ObsTotal:  12,
		RemTotal:  9,
		Matched:   7,
		New:       3,
		Updated:   4,
		Rejected:  1,
		LinkTotal: 7,
		Written:   true,
	}
	id, err := s.AppendRun(ctx, run)
	require.NoError(t, err)
	assert.Positive(t, id)

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, id, got.ID)
	assert.Equal(t, run.StartedAt, got.StartedAt)
	assert.Equal(t, 12, got.ObsTotal)
	assert.Equal(t, 7, got.Matched)
	assert.Equal(t, 1, got.Rejected)
	assert.True(t, got.Written)
}

func TestRecentRuns_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := s.AppendRun(ctx, Run{StartedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	runs, err := s.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
}

func TestRecentRuns_Empty(t *testing.T) {
	s := openTestStore(t)
	runs, err := s.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestAppendRun_AppendOnlyAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.AppendRun(ctx, Run{StartedAt: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	_, err = s2.AppendRun(ctx, Run{StartedAt: time.Date(2025, 1, 16, 10, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	runs, err := s2.RecentRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
