package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prohmpiriya/studycafe-seatmap/internal/domain"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/kafka"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/retry"
)

// EventPublisher defines the interface for publishing seat assignment events
type EventPublisher interface {
	// PublishSeatAssigned publishes a seat assigned event
	PublishSeatAssigned(ctx context.Context, event *domain.AssignmentEvent) error

	// Close closes the event publisher
	Close() error
}

// MessageProducer is the part of kafka.Producer the publisher uses
type MessageProducer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
	Close()
}

// KafkaEventPublisher implements EventPublisher using Kafka. Records that
// still fail after retries are parked on the dead letter topic.
type KafkaEventPublisher struct {
	producer    MessageProducer
	dlq         *retry.DLQHandler
	topic       string
	serviceName string
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
	Retry       *retry.Config
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "seatmap-service-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	p := newKafkaEventPublisher(producer, cfg)
	p.dlq = retry.NewDLQHandler(
		retry.NewKafkaDLQPublisher(producer, &retry.DLQConfig{TopicSuffix: ".dlq", Source: p.serviceName}),
		&retry.DLQHandlerConfig{RetryConfig: cfg.Retry, Source: p.serviceName},
	)
	return p, nil
}

func newKafkaEventPublisher(producer MessageProducer, cfg *EventPublisherConfig) *KafkaEventPublisher {
	topic := cfg.Topic
	if topic == "" {
		topic = "seat-assignments"
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "seatmap-service"
	}

	return &KafkaEventPublisher{
		producer:    producer,
		topic:       topic,
		serviceName: serviceName,
	}
}

// PublishSeatAssigned publishes a seat assigned event
func (p *KafkaEventPublisher) PublishSeatAssigned(ctx context.Context, event *domain.AssignmentEvent) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := map[string]string{
		"event_type":   event.EventType,
		"event_id":     event.EventID,
		"source":       p.serviceName,
		"content_type": "application/json",
	}

	msg := &kafka.Message{
		Topic:     p.topic,
		Key:       []byte(event.Key()),
		Value:     value,
		Headers:   headers,
		Timestamp: time.Now(),
	}

	produce := func(ctx context.Context) error {
		return p.producer.Produce(ctx, msg)
	}

	if p.dlq == nil {
		err = produce(ctx)
	} else {
		err = p.dlq.ProcessWithDLQ(ctx, &retry.MessageContext{
			ID:      event.EventID,
			Topic:   p.topic,
			Key:     event.Key(),
			Payload: value,
			Headers: headers,
		}, produce)
	}
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.EventType, err)
	}

	return nil
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// NoOpEventPublisher is a no-op implementation of EventPublisher, used when
// Kafka is disabled or unreachable
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

// PublishSeatAssigned is a no-op
func (p *NoOpEventPublisher) PublishSeatAssigned(ctx context.Context, event *domain.AssignmentEvent) error {
	return nil
}

// Close is a no-op
func (p *NoOpEventPublisher) Close() error {
	return nil
}
