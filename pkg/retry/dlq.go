package retry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// DLQMessage is a message that could not be delivered after all retries
type DLQMessage struct {
	ID             string            `json:"id"`
	OriginalTopic  string            `json:"original_topic"`
	OriginalKey    string            `json:"original_key"`
	Payload        json.RawMessage   `json:"payload"`
	Headers        map[string]string `json:"headers,omitempty"`
	Error          string            `json:"error"`
	Attempts       int               `json:"attempts"`
	FirstAttemptAt time.Time         `json:"first_attempt_at"`
	LastAttemptAt  time.Time         `json:"last_attempt_at"`
	MovedToDLQAt   time.Time         `json:"moved_to_dlq_at"`
	Source         string            `json:"source"`
}

// DLQPublisher publishes failed messages to a dead letter queue
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg *DLQMessage) error
	GetDLQTopic(originalTopic string) string
}

// DLQConfig contains configuration for DLQ publishing
type DLQConfig struct {
	// TopicSuffix is appended to the original topic (default: ".dlq")
	TopicSuffix string
	// Source names the service that moved the message
	Source string
}

// DefaultDLQConfig returns default DLQ configuration
func DefaultDLQConfig() *DLQConfig {
	return &DLQConfig{
		TopicSuffix: ".dlq",
		Source:      "unknown",
	}
}

// JSONProducer is the part of a Kafka producer the DLQ needs
type JSONProducer interface {
	ProduceJSON(ctx context.Context, topic string, key string, data interface{}, headers map[string]string) error
}

// KafkaDLQPublisher publishes failed messages to Kafka DLQ topics
type KafkaDLQPublisher struct {
	producer JSONProducer
	config   *DLQConfig
}

// NewKafkaDLQPublisher creates a new Kafka DLQ publisher
func NewKafkaDLQPublisher(producer JSONProducer, config *DLQConfig) *KafkaDLQPublisher {
	if config == nil {
		config = DefaultDLQConfig()
	}
	return &KafkaDLQPublisher{producer: producer, config: config}
}

// PublishToDLQ publishes a message to the dead letter topic of its origin
func (p *KafkaDLQPublisher) PublishToDLQ(ctx context.Context, msg *DLQMessage) error {
	if msg == nil {
		return fmt.Errorf("DLQ message cannot be nil")
	}

	msg.MovedToDLQAt = time.Now()
	msg.Source = p.config.Source

	headers := map[string]string{
		"content_type":   "application/json",
		"original_topic": msg.OriginalTopic,
		"error":          msg.Error,
		"attempts":       fmt.Sprintf("%d", msg.Attempts),
		"source":         msg.Source,
	}
	// colliding headers of the failed record are kept under an original_ prefix
	for k, v := range msg.Headers {
		if _, exists := headers[k]; exists {
			headers["original_"+k] = v
		} else {
			headers[k] = v
		}
	}

	return p.producer.ProduceJSON(ctx, p.GetDLQTopic(msg.OriginalTopic), msg.OriginalKey, msg, headers)
}

// GetDLQTopic returns the DLQ topic name for a given original topic
func (p *KafkaDLQPublisher) GetDLQTopic(originalTopic string) string {
	return originalTopic + p.config.TopicSuffix
}

// DLQHandlerConfig contains configuration for DLQ handler
type DLQHandlerConfig struct {
	RetryConfig *Config
	Source      string
	// OnDLQ is called when a message is moved to DLQ
	OnDLQ func(msg *DLQMessage)
}

// DLQHandler retries an operation and parks the message in the DLQ when
// every attempt fails
type DLQHandler struct {
	retrier   *Retrier
	publisher DLQPublisher
	config    *DLQHandlerConfig
}

// NewDLQHandler creates a new DLQ handler
func NewDLQHandler(publisher DLQPublisher, config *DLQHandlerConfig) *DLQHandler {
	if config == nil {
		config = &DLQHandlerConfig{RetryConfig: DefaultConfig(), Source: "unknown"}
	}
	return &DLQHandler{
		retrier:   New(config.RetryConfig),
		publisher: publisher,
		config:    config,
	}
}

// MessageContext describes the message an operation delivers
type MessageContext struct {
	ID      string
	Topic   string
	Key     string
	Payload json.RawMessage
	Headers map[string]string
}

// ProcessWithDLQ runs op with retries. When it still fails the message is
// published to the DLQ and the retry error is returned.
func (h *DLQHandler) ProcessWithDLQ(ctx context.Context, msgCtx *MessageContext, op Operation) error {
	first := time.Now()

	result := h.retrier.Do(ctx, op)
	if result.Err == nil {
		return nil
	}

	errMsg := result.Err.Error()
	if result.LastError != nil {
		errMsg = result.LastError.Error()
	}

	dlqMsg := &DLQMessage{
		ID:             msgCtx.ID,
		OriginalTopic:  msgCtx.Topic,
		OriginalKey:    msgCtx.Key,
		Payload:        msgCtx.Payload,
		Headers:        msgCtx.Headers,
		Error:          errMsg,
		Attempts:       result.Attempts,
		FirstAttemptAt: first,
		LastAttemptAt:  time.Now(),
		Source:         h.config.Source,
	}

	if h.config.OnDLQ != nil {
		h.config.OnDLQ(dlqMsg)
	}

	if err := h.publisher.PublishToDLQ(context.WithoutCancel(ctx), dlqMsg); err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w (original error: %s)", err, errMsg)
	}

	return result.Err
}

// NoOpDLQPublisher drops messages
type NoOpDLQPublisher struct{}

// PublishToDLQ does nothing
func (NoOpDLQPublisher) PublishToDLQ(ctx context.Context, msg *DLQMessage) error {
	return nil
}

// GetDLQTopic returns the DLQ topic name
func (NoOpDLQPublisher) GetDLQTopic(originalTopic string) string {
	return originalTopic + DefaultDLQConfig().TopicSuffix
}
