package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pawsitter-settlement/internal/config"
	"github.com/pawsitter-settlement/internal/domain/outbox"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventID   = "event-id"
	HeaderEventType = "event-type"
)

// WalletEventProducer publishes settlement events. Messages are keyed by aggregate so that
// every event of one wallet lands on the same partition in commit order.
type WalletEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewWalletEventProducer ensures the topic exists and opens a synchronous writer.
// The relay only marks a row processed after the broker acknowledged it.
func NewWalletEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*WalletEventProducer, error) {
	if cfg.WalletEventsTopic == "" {
		return nil, fmt.Errorf("kafka wallet events topic is not configured")
	}

	if err := ensureTopic(ctx, cfg.Brokers, cfg.WalletEventsTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure wallet events topic %s exists: %w", cfg.WalletEventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.WalletEventsTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
	}

	return &WalletEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.WalletEventsTopic,
	}, nil
}

// PublishMessage writes the stored payload as is, so consumers see exactly what was committed
func (p *WalletEventProducer) PublishMessage(ctx context.Context, message *outbox.Message) error {
	msg := kafka.Message{
		Key:   []byte(message.AggregateID.String()),
		Value: message.Payload,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(message.EventID.String())},
			{Key: HeaderEventType, Value: []byte(message.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish wallet event",
			"topic", p.topic,
			"event_id", message.EventID.String(),
			"event_type", string(message.EventType),
			"error", err,
		)
		return fmt.Errorf("failed to publish event %s to %s: %w", message.EventID.String(), p.topic, err)
	}

	p.logger.Debug("Published wallet event",
		"topic", p.topic,
		"event_id", message.EventID.String(),
		"event_type", string(message.EventType),
	)
	return nil
}

func (p *WalletEventProducer) Close() error {
	p.logger.Info("Closing wallet event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
