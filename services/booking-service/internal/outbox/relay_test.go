package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type sliceSource struct {
	pending   []Record
	published []Record
}

func (s *sliceSource) ProcessUnpublished(ctx context.Context, limit int, fn func(context.Context, []Record) error) error {
	n := min(limit, len(s.pending))
	batch := s.pending[:n]
	if err := fn(ctx, batch); err != nil {
		return err
	}
	s.published = append(s.published, batch...)
	s.pending = s.pending[n:]
	return nil
}

func records(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{ID: int64(i + 1), Event: Event{EventType: TypeAppointmentBooked}}
	}
	return out
}

func TestRelayFlushDrainsInBatches(t *testing.T) {
	src := &sliceSource{pending: records(5)}
	var batches []int
	sink := SinkFunc(func(_ context.Context, rs []Record) error {
		batches = append(batches, len(rs))
		return nil
	})
	relay := NewRelay(src, sink, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, RelayConfig{BatchSize: 2})

	n, err := relay.Flush(context.Background())
	if err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if n != 5 || len(src.pending) != 0 || len(src.published) != 5 {
		t.Fatalf("expected everything relayed, got n=%d pending=%d", n, len(src.pending))
	}
	if len(batches) != 3 || batches[0] != 2 || batches[2] != 1 {
		t.Fatalf("unexpected batches %v", batches)
	}
}

func TestRelayKeepsRecordsWhenSinkFails(t *testing.T) {
	src := &sliceSource{pending: records(2)}
	sink := SinkFunc(func(context.Context, []Record) error { return errors.New("broker down") })
	relay := NewRelay(src, sink, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, RelayConfig{BatchSize: 10})

	if _, err := relay.Flush(context.Background()); err == nil {
		t.Fatal("expected sink error")
	}
	if len(src.pending) != 2 {
		t.Fatalf("records must stay unpublished, got %d pending", len(src.pending))
	}
}

func TestAppointmentEventRoundTrip(t *testing.T) {
	evt, err := NewAppointmentEvent(TypeAppointmentBooked, AppointmentPayload{
		AppointmentID: "a1",
		BusinessID:    "b1",
		Date:          "2024-01-10",
		Start:         "10:00",
		End:           "10:30",
		Price:         "25.00",
	})
	if err != nil {
		t.Fatalf("NewAppointmentEvent failed: %v", err)
	}
	if evt.EventID == "" || evt.AggregateID != "a1" || evt.BusinessID != "b1" {
		t.Fatalf("unexpected envelope %+v", evt)
	}
	p, err := DecodeAppointmentPayload(evt.Payload)
	if err != nil || p.Price != "25.00" || p.Start != "10:00" {
		t.Fatalf("unexpected payload %+v (%v)", p, err)
	}
}
