package producers

import (
	"context"

	"github.com/pawsitter-settlement/internal/domain/outbox"
	"github.com/segmentio/kafka-go"
)

// EventPublisher hands stored outbox messages to the wallet events topic
type EventPublisher interface {
	PublishMessage(ctx context.Context, message *outbox.Message) error
	Close() error
}

// DeadLetterPublisher handles publishing messages to a Dead Letter Queue
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}
