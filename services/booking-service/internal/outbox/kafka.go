package outbox

import (
	"context"

	"github.com/md-rashed-zaman/bookly/libs/kafkax"
	otelx "github.com/md-rashed-zaman/bookly/libs/otel"
	"github.com/segmentio/kafka-go"
)

// KafkaSink writes each record to the topic named by its event type, keyed by aggregate so
// events of one appointment stay ordered.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string) *KafkaSink {
	return &KafkaSink{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}}
}

func (s *KafkaSink) Publish(ctx context.Context, records []Record) error {
	msgs := make([]kafka.Message, 0, len(records))
	for _, r := range records {
		msgCtx := otelx.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
		msgs = append(msgs, kafka.Message{
			Topic: r.EventType,
			Key:   []byte(r.AggregateID),
			Value: r.Payload,
			Headers: kafkax.Headers(msgCtx, kafkax.EventMeta{
				EventID:    r.EventID,
				EventType:  r.EventType,
				BusinessID: r.BusinessID,
			}),
		})
	}
	return s.writer.WriteMessages(ctx, msgs...)
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
