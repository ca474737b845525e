package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kbehari1995/habit-snake-bot/internal/config"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/service"
)

// outboundMessage is the JSON envelope the chat adapter consumes.
type outboundMessage struct {
	Type     string           `json:"type"` // send | edit | channel
	UserID   int64            `json:"user_id,omitempty"`
	Text     string           `json:"text"`
	Keyboard service.Keyboard `json:"keyboard,omitempty"`
}

// Notifier publishes outbound chat messages to Kafka. The chat adapter
// on the other side of the topic renders them to the actual messenger.
type Notifier struct {
	writer *kafka.Writer
}

// NewNotifier creates a new Kafka-backed notifier
func NewNotifier(cfg *config.KafkaConfig) *Notifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.OutboundTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    10,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Notifier{writer: writer}
}

func (n *Notifier) SendToUser(ctx context.Context, userID int64, text string, kb service.Keyboard) error {
	return n.publish(ctx, outboundMessage{Type: "send", UserID: userID, Text: text, Keyboard: kb})
}

func (n *Notifier) EditLastMessage(ctx context.Context, userID int64, text string, kb service.Keyboard) error {
	return n.publish(ctx, outboundMessage{Type: "edit", UserID: userID, Text: text, Keyboard: kb})
}

func (n *Notifier) SendToChannel(ctx context.Context, text string) error {
	return n.publish(ctx, outboundMessage{Type: "channel", Text: text})
}

func (n *Notifier) publish(ctx context.Context, msg outboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal outbound message: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", msg.UserID)),
		Value: data,
		Time:  time.Now(),
	}

	if err := n.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to publish outbound message: %w", err)
	}

	return nil
}

// Close closes the Kafka writer
func (n *Notifier) Close() error {
	if n.writer != nil {
		return n.writer.Close()
	}
	return nil
}
