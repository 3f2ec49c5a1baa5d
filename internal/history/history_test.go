package history

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func record(cmd string, finished time.Time) RunRecord {
	return RunRecord{
		ID:         uuid.New(),
		Command:    cmd,
		Outcome:    "Completed",
		StartedAt:  finished.Add(-time.Second),
		FinishedAt: finished,
	}
}

func TestStore_RecordAndGet(t *testing.T) {
	s := NewStore(0, 0, 0)
	r := record("save", time.Now())

	s.Record(r)

	got, ok := s.Get(r.ID)
	require.True(t, ok)
	require.Equal(t, r, got)
	require.Equal(t, time.Second, got.Duration())

	_, ok = s.Get(uuid.New())
	require.False(t, ok)
}

func TestStore_RecentNewestFirst(t *testing.T) {
	s := NewStore(time.Minute, time.Minute, 10)
	base := time.Now()
	first := record("a", base)
	second := record("b", base.Add(time.Second))
	third := record("a", base.Add(2*time.Second))
	s.Record(first)
	s.Record(third)
	s.Record(second)

	recent := s.Recent(0)
	require.Equal(t, []uuid.UUID{third.ID, second.ID, first.ID},
		[]uuid.UUID{recent[0].ID, recent[1].ID, recent[2].ID})

	require.Len(t, s.Recent(2), 2)

	forA := s.ForCommand("a")
	require.Len(t, forA, 2)
	require.Equal(t, third.ID, forA[0].ID)
}

func TestStore_LimitEvictsOldest(t *testing.T) {
	s := NewStore(time.Minute, time.Minute, 2)
	base := time.Now()
	oldest := record("x", base)
	s.Record(oldest)
	s.Record(record("x", base.Add(time.Second)))
	s.Record(record("x", base.Add(2*time.Second)))

	require.Equal(t, 2, s.Len())
	_, ok := s.Get(oldest.ID)
	require.False(t, ok)
}

func TestStore_LimitWithExpiredNotYetCleaned(t *testing.T) {
	s := NewStore(time.Minute, time.Hour, 2)
	base := time.Now()
	for _, r := range []RunRecord{record("x", base), record("x", base.Add(time.Second))} {
		s.cache.Set(r.ID.String(), r, time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)

	fresh := record("x", base.Add(2*time.Second))
	require.NotPanics(t, func() { s.Record(fresh) })

	recent := s.Recent(0)
	require.Len(t, recent, 1)
	require.Equal(t, fresh.ID, recent[0].ID)
	require.Equal(t, 1, s.Len())

	s.Record(record("x", base.Add(3*time.Second)))
	s.Record(record("x", base.Add(4*time.Second)))
	require.Len(t, s.Recent(0), 2)
	_, ok := s.Get(fresh.ID)
	require.False(t, ok)
}

func TestStore_RecordReplacesSameRun(t *testing.T) {
	s := NewStore(time.Minute, time.Minute, 5)
	r := record("x", time.Now())
	s.Record(r)

	r.Outcome = "Faulted"
	r.Err = "boom"
	s.Record(r)

	require.Equal(t, 1, s.Len())
	got, _ := s.Get(r.ID)
	require.Equal(t, "Faulted", got.Outcome)
}

func TestStore_Flush(t *testing.T) {
	s := NewStore(time.Minute, time.Minute, 5)
	s.Record(record("x", time.Now()))
	s.Flush()
	require.Zero(t, s.Len())
}

func TestRunRecord_UnfinishedDuration(t *testing.T) {
	require.Zero(t, RunRecord{StartedAt: time.Now()}.Duration())
}
