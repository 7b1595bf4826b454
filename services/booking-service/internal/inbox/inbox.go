// Package inbox deduplicates delivered events per consumer so at-least-once delivery is applied
// exactly once.
package inbox

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
)

type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Record claims eventID for consumer. It reports false when the event was already claimed.
// Run it in the same transaction as the event's effects.
func Record(ctx context.Context, q Execer, consumer, eventID, eventType string) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO inbox_events (consumer, event_id, event_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (consumer, event_id) DO NOTHING
	`, consumer, eventID, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Set is the process-local equivalent of the inbox_events table.
type Set struct {
	mu   sync.Mutex
	seen map[[2]string]struct{}
}

func NewSet() *Set {
	return &Set{seen: map[[2]string]struct{}{}}
}

func (s *Set) Record(consumer, eventID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := [2]string{consumer, eventID}
	if _, ok := s.seen[k]; ok {
		return false
	}
	s.seen[k] = struct{}{}
	return true
}

// Forget releases a claim whose effects were not applied.
func (s *Set) Forget(consumer, eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, [2]string{consumer, eventID})
}
