package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prohmpiriya/studycafe-seatmap/internal/domain"
	"github.com/prohmpiriya/studycafe-seatmap/internal/repository"
	"github.com/prohmpiriya/studycafe-seatmap/internal/seatmap"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSeatRepository is a mock implementation of repository.SeatRepository
type MockSeatRepository struct {
	mock.Mock
}

func (m *MockSeatRepository) ListByCafe(ctx context.Context, cafeID string) ([]seatmap.RawSeat, error) {
	args := m.Called(ctx, cafeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]seatmap.RawSeat), args.Error(1)
}

// MockSessionRepository is a mock implementation of repository.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) ListActive(ctx context.Context, cafeID string) ([]seatmap.ActiveSession, error) {
	args := m.Called(ctx, cafeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]seatmap.ActiveSession), args.Error(1)
}

func (m *MockSessionRepository) Start(ctx context.Context, session seatmap.ActiveSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) End(ctx context.Context, cafeID, seatID string) error {
	args := m.Called(ctx, cafeID, seatID)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishSeatAssigned(ctx context.Context, event *domain.AssignmentEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	return nil
}

var _ repository.SeatRepository = (*MockSeatRepository)(nil)
var _ repository.SessionRepository = (*MockSessionRepository)(nil)
var _ EventPublisher = (*MockEventPublisher)(nil)

func catalog() []seatmap.RawSeat {
	return []seatmap.RawSeat{
		{ID: "A1", Label: "A-1", Placement: "0,0,40,40"},
		{ID: "A2", Label: "A-2", Placement: "60,0,40,40"},
		{ID: "W1", Label: "WALL-north", Placement: "0,-20,200,10"},
		{ID: "B1", Label: "B-1", Placement: "bad"},
	}
}

func newTestAssignmentService(seats *MockSeatRepository, sessions *MockSessionRepository, pub *MockEventPublisher) *assignmentService {
	svc := NewAssignmentService(seats, sessions, pub, logger.NewNop(), nil).(*assignmentService)
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestAssign_Success(t *testing.T) {
	seats := new(MockSeatRepository)
	sessions := new(MockSessionRepository)
	pub := new(MockEventPublisher)
	svc := newTestAssignmentService(seats, sessions, pub)

	seats.On("ListByCafe", mock.Anything, "cafe-1").Return(catalog(), nil)
	sessions.On("Start", mock.Anything, mock.MatchedBy(func(s seatmap.ActiveSession) bool {
		return s.SeatID == "A2" && s.UserID == "user-1" && s.CafeID == "cafe-1" && s.ID != ""
	})).Return(nil)
	pub.On("PublishSeatAssigned", mock.Anything, mock.MatchedBy(func(e *domain.AssignmentEvent) bool {
		return e.SeatID == "A2" && e.Key() == "cafe-1"
	})).Return(nil)

	session, err := svc.Assign(context.Background(), "user-1", "cafe-1", "A2")

	require.NoError(t, err)
	assert.Equal(t, "A2", session.SeatID)
	assert.Equal(t, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), session.StartedAt)
	seats.AssertExpectations(t)
	sessions.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestOnSessionsChanged(t *testing.T) {
	seats := new(MockSeatRepository)
	sessions := new(MockSessionRepository)
	pub := new(MockEventPublisher)
	svc := newTestAssignmentService(seats, sessions, pub)

	seats.On("ListByCafe", mock.Anything, "cafe-1").Return(catalog(), nil)
	sessions.On("Start", mock.Anything, mock.Anything).Return(nil)
	sessions.On("End", mock.Anything, "cafe-1", "A1").Return(nil)
	pub.On("PublishSeatAssigned", mock.Anything, mock.Anything).Return(nil)

	var changed []string
	unsubscribe := svc.OnSessionsChanged(func(_ context.Context, cafeID string) {
		changed = append(changed, cafeID)
	})

	_, err := svc.Assign(context.Background(), "user-1", "cafe-1", "A1")
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), "user-1", "cafe-1", "W1")
	require.ErrorIs(t, err, domain.ErrSeatIsWall)
	require.NoError(t, svc.Release(context.Background(), "cafe-1", "A1"))

	unsubscribe()
	require.NoError(t, svc.Release(context.Background(), "cafe-1", "A1"))

	assert.Equal(t, []string{"cafe-1", "cafe-1"}, changed)
}

func TestAssign_PublishFailureIsNotFatal(t *testing.T) {
	seats := new(MockSeatRepository)
	sessions := new(MockSessionRepository)
	pub := new(MockEventPublisher)
	svc := newTestAssignmentService(seats, sessions, pub)

	seats.On("ListByCafe", mock.Anything, "cafe-1").Return(catalog(), nil)
	sessions.On("Start", mock.Anything, mock.Anything).Return(nil)
	pub.On("PublishSeatAssigned", mock.Anything, mock.Anything).Return(errors.New("kafka down"))

	_, err := svc.Assign(context.Background(), "user-1", "cafe-1", "A1")

	assert.NoError(t, err)
}

func TestAssign_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		cafeID string
		seatID string
		want   error
	}{
		{"missing user", "", "cafe-1", "A1", domain.ErrInvalidUserID},
		{"missing cafe", "user-1", " ", "A1", domain.ErrInvalidCafeID},
		{"missing seat", "user-1", "cafe-1", "", domain.ErrInvalidSeatID},
		{"unknown seat", "user-1", "cafe-1", "Z9", domain.ErrSeatNotFound},
		{"wall", "user-1", "cafe-1", "W1", domain.ErrSeatIsWall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seats := new(MockSeatRepository)
			sessions := new(MockSessionRepository)
			svc := newTestAssignmentService(seats, sessions, new(MockEventPublisher))
			seats.On("ListByCafe", mock.Anything, "cafe-1").Return(catalog(), nil).Maybe()

			_, err := svc.Assign(context.Background(), tt.userID, tt.cafeID, tt.seatID)

			assert.ErrorIs(t, err, tt.want)
			sessions.AssertNotCalled(t, "Start", mock.Anything, mock.Anything)
		})
	}
}

func TestAssign_SeatOccupied(t *testing.T) {
	seats := new(MockSeatRepository)
	sessions := new(MockSessionRepository)
	pub := new(MockEventPublisher)
	svc := newTestAssignmentService(seats, sessions, pub)

	seats.On("ListByCafe", mock.Anything, "cafe-1").Return(catalog(), nil)
	sessions.On("Start", mock.Anything, mock.Anything).Return(domain.ErrSeatOccupied)

	_, err := svc.Assign(context.Background(), "user-1", "cafe-1", "A1")

	assert.True(t, domain.IsConflictError(err))
	pub.AssertNotCalled(t, "PublishSeatAssigned", mock.Anything, mock.Anything)
}

func TestAssign_CafeNotFound(t *testing.T) {
	seats := new(MockSeatRepository)
	svc := newTestAssignmentService(seats, new(MockSessionRepository), new(MockEventPublisher))
	seats.On("ListByCafe", mock.Anything, "nope").Return(nil, domain.ErrCafeNotFound)

	_, err := svc.Assign(context.Background(), "user-1", "nope", "A1")

	assert.ErrorIs(t, err, domain.ErrCafeNotFound)
}

func TestForUser_AssignSeat(t *testing.T) {
	seats := new(MockSeatRepository)
	sessions := new(MockSessionRepository)
	pub := new(MockEventPublisher)
	svc := newTestAssignmentService(seats, sessions, pub)

	seats.On("ListByCafe", mock.Anything, "cafe-1").Return(catalog(), nil)
	sessions.On("Start", mock.Anything, mock.MatchedBy(func(s seatmap.ActiveSession) bool {
		return s.UserID == "user-7" && s.SeatID == "A1"
	})).Return(nil)
	pub.On("PublishSeatAssigned", mock.Anything, mock.Anything).Return(nil)

	err := svc.ForUser("user-7").AssignSeat(context.Background(), "A1", "cafe-1")

	require.NoError(t, err)
	sessions.AssertExpectations(t)
}

func TestSeatStates(t *testing.T) {
	seats := new(MockSeatRepository)
	sessions := new(MockSessionRepository)
	svc := newTestAssignmentService(seats, sessions, new(MockEventPublisher))

	seats.On("ListByCafe", mock.Anything, "cafe-1").Return(catalog(), nil)
	sessions.On("ListActive", mock.Anything, "cafe-1").Return([]seatmap.ActiveSession{{SeatID: "A2"}}, nil)

	states, err := svc.SeatStates(context.Background(), "cafe-1")

	require.NoError(t, err)
	require.Len(t, states, 4)
	assert.Equal(t, seatmap.StatusAvailable, states[0].Status)
	assert.Equal(t, seatmap.StatusOccupied, states[1].Status)
	assert.True(t, states[2].Wall)
	assert.Equal(t, seatmap.DefaultSeatPosition, states[3].Position)
	assert.Equal(t, seatmap.DefaultSeatSize, states[3].Size)
}

func TestRelease(t *testing.T) {
	sessions := new(MockSessionRepository)
	svc := newTestAssignmentService(new(MockSeatRepository), sessions, new(MockEventPublisher))
	sessions.On("End", mock.Anything, "cafe-1", "A1").Return(nil).Once()

	require.NoError(t, svc.Release(context.Background(), "cafe-1", "A1"))
	assert.ErrorIs(t, svc.Release(context.Background(), "", "A1"), domain.ErrInvalidCafeID)
	assert.ErrorIs(t, svc.Release(context.Background(), "cafe-1", ""), domain.ErrInvalidSeatID)
	sessions.AssertExpectations(t)
}

func TestActiveSessions_InvalidCafe(t *testing.T) {
	svc := newTestAssignmentService(new(MockSeatRepository), new(MockSessionRepository), new(MockEventPublisher))

	_, err := svc.ActiveSessions(context.Background(), "")

	assert.ErrorIs(t, err, domain.ErrInvalidCafeID)
}
