package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type (
	Writer  = kafka.Writer
	Reader  = kafka.Reader
	Message = kafka.Message
)

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // mesma aposta -> mesma partição
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
}

func NewReader(brokers []string, topic string, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
}

// WriteJSON envia um payload já serializado com a chave informada
func WriteJSON(ctx context.Context, w *kafka.Writer, key string, payload []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	}
	if err := w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}
