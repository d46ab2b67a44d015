package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"spiceportal/internal/platform/config"
)

// KafkaSink mirrors audit events onto a Kafka topic for downstream
// consumers. Publishing is fire-and-forget; a broker outage never blocks or
// fails a portal mutation.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaSink connects to the configured brokers and ensures the topic
// exists. Returns (nil, nil) when no brokers are configured.
func NewKafkaSink(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
	)
	if err != nil {
		return nil, err
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, cfg.Topic); err != nil {
		// Topic probably exists already; creation is best-effort.
		logger.InfoContext(ctx, "audit topic not created", "topic", cfg.Topic, "error", err)
	}

	return &KafkaSink{client: client, topic: cfg.Topic, logger: logger}, nil
}

// Publish sends one event, keyed by entity so per-record ordering holds.
func (s *KafkaSink) Publish(ctx context.Context, e Event) {
	if s == nil {
		return
	}
	payload, err := json.Marshal(e)
	if err != nil {
		s.logger.ErrorContext(ctx, "audit event not encoded", "error", err)
		return
	}
	record := &kgo.Record{
		Key:   []byte(e.EntityID),
		Value: payload,
		Topic: s.topic,
	}
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.WarnContext(ctx, "audit event not published", "action", e.Action, "error", err)
		}
	})
}

// Close flushes buffered records and releases the connection.
func (s *KafkaSink) Close() {
	if s == nil {
		return
	}
	s.client.Close()
}
