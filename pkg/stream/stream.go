// Package stream taps persisted messages onto the platform's Kafka
// firehose for downstream consumers (archival, analytics). The tap runs
// after broadcast and its failures never reject a send.
package stream

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/edulink/supportchat/pkg/model"
)

type Publisher struct {
	writer *kafka.Writer
}

func New(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Publish writes the persisted message as JSON, keyed by conversation so
// one conversation stays on one partition in order.
func (p *Publisher) Publish(ctx context.Context, msg *model.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(model.ConversationKey(msg.Sender, msg.Receiver)),
		Value: value,
		Time:  msg.CreatedAt,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
