// Package publisher emits submitted-order events to Kafka so downstream
// consumers (analytics, fulfilment) see every checkout.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/ma5621/perf-working/internal/domain"
)

const ordersTopic = "orders-submitted"

type OrderPublisher struct {
	writer *kafka.Writer
}

func NewOrderPublisher(brokers ...string) *OrderPublisher {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    ordersTopic,
		Balancer: &kafka.LeastBytes{},
	}
	return &OrderPublisher{writer: writer}
}

func (p *OrderPublisher) PublishOrderSubmitted(ctx context.Context, event domain.OrderSubmitted) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.DeviceID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to write order event: %w", err)
	}
	return nil
}

func (p *OrderPublisher) Close() error {
	return p.writer.Close()
}
