package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/bookly/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestRunRetriesUntilHandled(t *testing.T) {
	headers := kafkax.Headers(context.Background(), kafkax.EventMeta{EventID: "e1", EventType: "booking.appointment.booked.v1"})
	reader := &fakeReader{msgs: []kafka.Message{
		{Topic: "booking.appointment.booked.v1", Offset: 7, Headers: headers, Value: []byte(`{}`)},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu    sync.Mutex
		calls int
		seen  string
	)
	done := make(chan struct{})
	handler := func(_ context.Context, eventID, _ string, _ []byte) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		seen = eventID
		if calls < 3 {
			return errors.New("database unavailable")
		}
		close(done)
		return nil
	}

	c := NewWithReader(slog.New(slog.NewTextHandler(io.Discard, nil)), reader,
		Config{Topic: "booking.appointment.booked.v1", RetryDelay: time.Millisecond}, handler)
	stopped := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(stopped)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("handler never succeeded")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		reader.mu.Lock()
		n := len(reader.committed)
		reader.mu.Unlock()
		if n == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-stopped

	mu.Lock()
	defer mu.Unlock()
	if calls != 3 || seen != "e1" {
		t.Fatalf("expected 3 attempts for e1, got %d for %q", calls, seen)
	}
	reader.mu.Lock()
	defer reader.mu.Unlock()
	if len(reader.committed) != 1 || reader.committed[0] != 7 {
		t.Fatalf("expected offset 7 committed once, got %v", reader.committed)
	}
	if !reader.closed {
		t.Fatalf("reader should be closed on shutdown")
	}
}
