package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func record(id, input, output string, at time.Time) Record {
	return Record{
		BuildID:    id,
		StartedAt:  at,
		Duration:   1500 * time.Millisecond,
		Outcome:    "success",
		Docs:       12,
		Routes:     15,
		InputHash:  input,
		OutputHash: output,
	}
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, ok, err := s.Last(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.Record(ctx, record("b1", "in-1", "out-1", base)))
	require.NoError(t, s.Record(ctx, record("b2", "in-2", "out-2", base.Add(time.Minute))))
	failed := record("b3", "in-2", "", base.Add(2*time.Minute))
	failed.Outcome = "failed"
	failed.Error = "broken links found"
	require.NoError(t, s.Record(ctx, failed))

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []string{"b3", "b2", "b1"}, []string{all[0].BuildID, all[1].BuildID, all[2].BuildID})
	require.Equal(t, "broken links found", all[0].Error)
	require.Equal(t, 1500*time.Millisecond, all[1].Duration)
	require.True(t, base.Equal(all[2].StartedAt))

	limited, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)

	last, ok, err := s.Last(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b3", last.BuildID)

	prev, ok, err := s.LastWithInput(ctx, "in-2")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b2", prev.BuildID)

	_, ok, err = s.LastWithInput(ctx, "in-unknown")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDuplicateBuildIDRejected(t *testing.T) {
	ctx := context.Background()
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	r := record("same", "in", "out", time.Now())
	require.NoError(t, s.Record(ctx, r))
	require.Error(t, s.Record(ctx, r))
}

func TestPersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "history.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, record("b1", "in", "out", time.Now())))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	last, ok, err := s.Last(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "b1", last.BuildID)
}
