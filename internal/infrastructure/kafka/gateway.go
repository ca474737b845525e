package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kbehari1995/habit-snake-bot/internal/config"
	"github.com/kbehari1995/habit-snake-bot/internal/transport/chat"
)

// Gateway consumes inbound chat updates from Kafka and feeds them to
// the dispatcher. A failed event is logged and skipped; the loop never
// stops on a bad message.
type Gateway struct {
	reader  *kafka.Reader
	handler chat.Handler
}

// NewGateway creates a new Kafka inbound gateway
func NewGateway(cfg *config.KafkaConfig, handler chat.Handler) *Gateway {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.InboundTopic,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.LastOffset,
	})

	return &Gateway{reader: reader, handler: handler}
}

// Start starts consuming inbound events until ctx is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	log.Println("Starting chat gateway consumer...")

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping chat gateway consumer...")
			return g.reader.Close()
		default:
			message, err := g.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return g.reader.Close()
				}
				log.Printf("Error reading message: %v", err)
				continue
			}

			var ev chat.Event
			if err := json.Unmarshal(message.Value, &ev); err != nil {
				log.Printf("Dropping malformed inbound event: %v", err)
				continue
			}

			if err := g.handler.Handle(ctx, ev); err != nil {
				log.Printf("Error handling event for user %d: %v", ev.UserID, err)
			}
		}
	}
}

// Close closes the Kafka reader
func (g *Gateway) Close() error {
	if g.reader != nil {
		return g.reader.Close()
	}
	return nil
}
