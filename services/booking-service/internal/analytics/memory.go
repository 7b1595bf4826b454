package analytics

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/bookly/services/booking-service/internal/inbox"
)

// Marker flags aggregated appointments; storage.Memory satisfies it.
type Marker interface {
	MarkAppointmentCounted(ctx context.Context, businessID, id string) error
}

type Memory struct {
	mu     sync.Mutex
	inbox  *inbox.Set
	days   map[[2]string]Day
	marker Marker
}

func NewMemory(marker Marker) *Memory {
	return &Memory{inbox: inbox.NewSet(), days: map[[2]string]Day{}, marker: marker}
}

func (m *Memory) Apply(ctx context.Context, eventID, _ string, ch Change) (bool, error) {
	if !m.inbox.Record(ConsumerName, eventID) {
		return false, nil
	}
	if ch.CountAppointmentID != "" && m.marker != nil {
		if err := m.marker.MarkAppointmentCounted(ctx, ch.BusinessID, ch.CountAppointmentID); err != nil {
			m.inbox.Forget(ConsumerName, eventID)
			return false, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range ch.Deltas {
		k := [2]string{ch.BusinessID, d.Day}
		cur := m.days[k]
		cur.Date = d.Day
		cur.Booked += d.Booked
		cur.Completed += d.Completed
		cur.Cancelled += d.Cancelled
		cur.RevenueCents += d.RevenueCents
		m.days[k] = cur
	}
	return true, nil
}

func (m *Memory) Daily(_ context.Context, businessID string, from, to time.Time) ([]Day, error) {
	lo, hi := from.Format(availability.DateLayout), to.Format(availability.DateLayout)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Day
	for k, d := range m.days {
		if k[0] == businessID && k[1] >= lo && k[1] <= hi {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b Day) int { return strings.Compare(a.Date, b.Date) })
	return out, nil
}
