package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestExtractEventMetaFallsBackToKeyAndTopic(t *testing.T) {
	msg := kafka.Message{Topic: "booking.appointment.booked.v1", Key: []byte("evt-1")}
	meta := ExtractEventMeta(msg)
	if meta.EventID != "evt-1" || meta.EventType != "booking.appointment.booked.v1" {
		t.Fatalf("unexpected meta %+v", meta)
	}
}

func TestHeadersRoundTrip(t *testing.T) {
	headers := Headers(context.Background(), EventMeta{EventID: "e", EventType: "t", BusinessID: "b"})
	got := ExtractEventMeta(kafka.Message{Headers: headers, Topic: "other", Key: []byte("k")})
	if got.EventID != "e" || got.EventType != "t" || got.BusinessID != "b" {
		t.Fatalf("unexpected meta %+v", got)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" a:9092, ,b:9092 ")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}
