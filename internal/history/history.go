// Package history keeps a short-lived journal of command runs, keyed by run ID.
package history

import (
	"sort"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/cmdgate/internal/log"
)

const (
	DefaultTTL             = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute
	DefaultLimit           = 100
)

// RunRecord describes one execution of a command.
type RunRecord struct {
	ID         uuid.UUID
	Command    string
	Outcome    string
	Err        string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the run took, or zero while it is unfinished.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store is a TTL-bounded run journal that also caps its size at limit entries,
// evicting the oldest finished runs first.
type Store struct {
	cache *gocache.Cache
	limit int
}

// NewStore creates a Store. Non-positive arguments fall back to the defaults.
func NewStore(ttl, cleanupInterval time.Duration, limit int) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		cache: gocache.New(ttl, cleanupInterval),
		limit: limit,
	}
}

// Record stores r under its run ID, replacing any earlier record of that run.
func (s *Store) Record(r RunRecord) {
	s.cache.SetDefault(r.ID.String(), r)
	log.Debug(log.CatHistory, "run recorded",
		"command", r.Command, "run", r.ID.String(), "outcome", r.Outcome)

	// ItemCount includes expired records that Items already skips.
	if s.cache.ItemCount() <= s.limit {
		return
	}
	live := s.sorted()
	if len(live) <= s.limit {
		s.cache.DeleteExpired()
		return
	}
	for _, old := range live[s.limit:] {
		s.cache.Delete(old.ID.String())
	}
}

// Get returns the record for id.
func (s *Store) Get(id uuid.UUID) (RunRecord, bool) {
	v, found := s.cache.Get(id.String())
	if !found {
		return RunRecord{}, false
	}
	r, ok := v.(RunRecord)
	if !ok {
		log.Error(log.CatHistory, "wrong type assertion when getting run", "run", id.String())
		return RunRecord{}, false
	}
	return r, true
}

// Recent returns up to n records, newest first. n <= 0 returns all of them.
func (s *Store) Recent(n int) []RunRecord {
	all := s.sorted()
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// ForCommand returns the records of one command, newest first.
func (s *Store) ForCommand(name string) []RunRecord {
	var out []RunRecord
	for _, r := range s.sorted() {
		if r.Command == name {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of stored records, including expired ones not yet
// cleaned up.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}

// Flush removes every record.
func (s *Store) Flush() {
	s.cache.Flush()
}

func (s *Store) sorted() []RunRecord {
	items := s.cache.Items()
	out := make([]RunRecord, 0, len(items))
	for _, item := range items {
		if r, ok := item.Object.(RunRecord); ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].FinishedAt.Equal(out[j].FinishedAt) {
			return out[i].FinishedAt.After(out[j].FinishedAt)
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}
