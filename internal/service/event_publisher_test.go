package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prohmpiriya/studycafe-seatmap/internal/domain"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/kafka"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProducer is a mock implementation of MessageProducer
type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Produce(ctx context.Context, msg *kafka.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockProducer) Close() {
	m.Called()
}

// MockDLQPublisher is a mock implementation of retry.DLQPublisher
type MockDLQPublisher struct {
	mock.Mock
}

func (m *MockDLQPublisher) PublishToDLQ(ctx context.Context, msg *retry.DLQMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockDLQPublisher) GetDLQTopic(originalTopic string) string {
	return originalTopic + ".dlq"
}

var _ MessageProducer = (*MockProducer)(nil)
var _ retry.DLQPublisher = (*MockDLQPublisher)(nil)

func testEvent() *domain.AssignmentEvent {
	return domain.NewAssignmentEvent("cafe-1", "A1", "user-1", "sess-1", time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
}

func TestKafkaEventPublisher_PublishSeatAssigned(t *testing.T) {
	producer := new(MockProducer)
	p := newKafkaEventPublisher(producer, &EventPublisherConfig{})
	event := testEvent()

	producer.On("Produce", mock.Anything, mock.MatchedBy(func(msg *kafka.Message) bool {
		var decoded domain.AssignmentEvent
		if err := json.Unmarshal(msg.Value, &decoded); err != nil {
			return false
		}
		return msg.Topic == "seat-assignments" &&
			string(msg.Key) == "cafe-1" &&
			msg.Headers["event_type"] == domain.AssignmentEventType &&
			msg.Headers["event_id"] == event.EventID &&
			msg.Headers["source"] == "seatmap-service" &&
			decoded.SeatID == "A1"
	})).Return(nil).Once()

	require.NoError(t, p.PublishSeatAssigned(context.Background(), event))
	producer.AssertExpectations(t)
}

func TestKafkaEventPublisher_NilEvent(t *testing.T) {
	p := newKafkaEventPublisher(new(MockProducer), &EventPublisherConfig{Topic: "t"})

	assert.Error(t, p.PublishSeatAssigned(context.Background(), nil))
}

func TestKafkaEventPublisher_RetriesThenDLQ(t *testing.T) {
	producer := new(MockProducer)
	dlq := new(MockDLQPublisher)
	p := newKafkaEventPublisher(producer, &EventPublisherConfig{Topic: "assignments", ServiceName: "svc"})
	p.dlq = retry.NewDLQHandler(dlq, &retry.DLQHandlerConfig{
		RetryConfig: &retry.Config{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
		Source:      "svc",
	})

	brokerDown := errors.New("broker down")
	producer.On("Produce", mock.Anything, mock.Anything).Return(brokerDown).Times(3)
	dlq.On("PublishToDLQ", mock.Anything, mock.MatchedBy(func(msg *retry.DLQMessage) bool {
		return msg.OriginalTopic == "assignments" &&
			msg.OriginalKey == "cafe-1" &&
			msg.Attempts == 3 &&
			msg.Error == "broker down"
	})).Return(nil).Once()

	err := p.PublishSeatAssigned(context.Background(), testEvent())

	assert.ErrorIs(t, err, retry.ErrMaxRetriesExceeded)
	producer.AssertExpectations(t)
	dlq.AssertExpectations(t)
}

func TestKafkaEventPublisher_RecoversOnRetry(t *testing.T) {
	producer := new(MockProducer)
	dlq := new(MockDLQPublisher)
	p := newKafkaEventPublisher(producer, &EventPublisherConfig{})
	p.dlq = retry.NewDLQHandler(dlq, &retry.DLQHandlerConfig{
		RetryConfig: &retry.Config{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	})

	producer.On("Produce", mock.Anything, mock.Anything).Return(errors.New("leader moved")).Once()
	producer.On("Produce", mock.Anything, mock.Anything).Return(nil).Once()

	require.NoError(t, p.PublishSeatAssigned(context.Background(), testEvent()))
	dlq.AssertNotCalled(t, "PublishToDLQ", mock.Anything, mock.Anything)
}

func TestKafkaEventPublisher_Close(t *testing.T) {
	producer := new(MockProducer)
	producer.On("Close").Return().Once()

	p := newKafkaEventPublisher(producer, &EventPublisherConfig{})
	assert.NoError(t, p.Close())
	producer.AssertExpectations(t)
}

func TestNewKafkaEventPublisher_Validation(t *testing.T) {
	_, err := NewKafkaEventPublisher(context.Background(), nil)
	assert.Error(t, err)

	_, err = NewKafkaEventPublisher(context.Background(), &EventPublisherConfig{})
	assert.Error(t, err)
}

func TestNoOpEventPublisher(t *testing.T) {
	p := NewNoOpEventPublisher()

	assert.NoError(t, p.PublishSeatAssigned(context.Background(), testEvent()))
	assert.NoError(t, p.Close())
}
