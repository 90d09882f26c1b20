package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/studycafe-seatmap/internal/domain"
	"github.com/prohmpiriya/studycafe-seatmap/internal/repository"
	"github.com/prohmpiriya/studycafe-seatmap/internal/seatmap"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/logger"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// SeatState is a catalog seat with its derived occupancy
type SeatState struct {
	seatmap.Seat
	Status seatmap.Status `json:"status"`
	Wall   bool           `json:"wall"`
}

// AssignmentService starts and ends seat usage sessions
type AssignmentService interface {
	// Assign starts a session for userID on a seat
	Assign(ctx context.Context, userID, cafeID, seatID string) (*seatmap.ActiveSession, error)

	// Release ends the session on a seat
	Release(ctx context.Context, cafeID, seatID string) error

	// ActiveSessions lists the running sessions of a cafe
	ActiveSessions(ctx context.Context, cafeID string) ([]seatmap.ActiveSession, error)

	// Seats loads and parses the seat catalog of a cafe
	Seats(ctx context.Context, cafeID string) ([]seatmap.Seat, error)

	// SeatStates returns every seat of a cafe with its current status
	SeatStates(ctx context.Context, cafeID string) ([]SeatState, error)

	// ForUser binds the service to a user for use by a seat map panel
	ForUser(userID string) seatmap.Assigner

	// OnSessionsChanged registers fn for every successful Assign or Release.
	// The returned func removes it.
	OnSessionsChanged(fn SessionsChangedFunc) func()
}

// SessionsChangedFunc is called after the session list of a cafe changed
type SessionsChangedFunc func(ctx context.Context, cafeID string)

// AssignmentServiceConfig contains configuration for the assignment service
type AssignmentServiceConfig struct {
	WallPrefix string
}

type assignmentService struct {
	seatRepo    repository.SeatRepository
	sessionRepo repository.SessionRepository
	publisher   EventPublisher
	log         *logger.Logger
	wallPrefix  string
	now         func() time.Time

	mu           sync.RWMutex
	listeners    map[int]SessionsChangedFunc
	nextListener int
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(
	seatRepo repository.SeatRepository,
	sessionRepo repository.SessionRepository,
	publisher EventPublisher,
	log *logger.Logger,
	cfg *AssignmentServiceConfig,
) AssignmentService {
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	if log == nil {
		log = logger.Get()
	}
	wallPrefix := seatmap.DefaultWallPrefix
	if cfg != nil && cfg.WallPrefix != "" {
		wallPrefix = cfg.WallPrefix
	}
	return &assignmentService{
		seatRepo:    seatRepo,
		sessionRepo: sessionRepo,
		publisher:   publisher,
		log:         log,
		wallPrefix:  wallPrefix,
		now:         time.Now,
		listeners:   make(map[int]SessionsChangedFunc),
	}
}

func (s *assignmentService) OnSessionsChanged(fn SessionsChangedFunc) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *assignmentService) sessionsChanged(ctx context.Context, cafeID string) {
	s.mu.RLock()
	fns := make([]SessionsChangedFunc, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(ctx, cafeID)
	}
}

func (s *assignmentService) Assign(ctx context.Context, userID, cafeID, seatID string) (*seatmap.ActiveSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.assignment.assign")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("cafe_id", cafeID),
		attribute.String("seat_id", seatID),
	)

	if err := validateIDs(userID, cafeID, seatID); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	raw, err := s.seatRepo.ListByCafe(ctx, cafeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	seat, ok := findSeat(seatmap.Parse(raw), seatID)
	if !ok {
		span.SetStatus(codes.Error, domain.ErrSeatNotFound.Error())
		return nil, domain.ErrSeatNotFound
	}
	if seat.IsWall(s.wallPrefix) {
		span.SetStatus(codes.Error, domain.ErrSeatIsWall.Error())
		return nil, domain.ErrSeatIsWall
	}

	session := seatmap.ActiveSession{
		ID:        uuid.New().String(),
		CafeID:    cafeID,
		SeatID:    seatID,
		UserID:    userID,
		StartedAt: s.now().UTC(),
	}
	if err := s.sessionRepo.Start(ctx, session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	event := domain.NewAssignmentEvent(cafeID, seatID, userID, session.ID, session.StartedAt)
	if err := s.publisher.PublishSeatAssigned(ctx, event); err != nil {
		// the session is already started, the event is best effort
		span.RecordError(err)
		s.log.Warn("Failed to publish seat assigned event",
			zap.String("cafe_id", cafeID),
			zap.String("seat_id", seatID),
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	}

	s.sessionsChanged(ctx, cafeID)

	s.log.Info("Seat assigned",
		zap.String("cafe_id", cafeID),
		zap.String("seat_id", seatID),
		zap.String("user_id", userID),
		zap.String("session_id", session.ID),
	)

	span.SetAttributes(attribute.String("session_id", session.ID))
	span.SetStatus(codes.Ok, "")
	return &session, nil
}

func (s *assignmentService) Release(ctx context.Context, cafeID, seatID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.assignment.release")
	defer span.End()

	span.SetAttributes(
		attribute.String("cafe_id", cafeID),
		attribute.String("seat_id", seatID),
	)

	if strings.TrimSpace(cafeID) == "" {
		return domain.ErrInvalidCafeID
	}
	if strings.TrimSpace(seatID) == "" {
		return domain.ErrInvalidSeatID
	}

	if err := s.sessionRepo.End(ctx, cafeID, seatID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.sessionsChanged(ctx, cafeID)

	s.log.Info("Seat released", zap.String("cafe_id", cafeID), zap.String("seat_id", seatID))
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *assignmentService) ActiveSessions(ctx context.Context, cafeID string) ([]seatmap.ActiveSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.assignment.active_sessions")
	defer span.End()

	span.SetAttributes(attribute.String("cafe_id", cafeID))

	if strings.TrimSpace(cafeID) == "" {
		return nil, domain.ErrInvalidCafeID
	}

	sessions, err := s.sessionRepo.ListActive(ctx, cafeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return sessions, nil
}

func (s *assignmentService) Seats(ctx context.Context, cafeID string) ([]seatmap.Seat, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.assignment.seats")
	defer span.End()

	span.SetAttributes(attribute.String("cafe_id", cafeID))

	if strings.TrimSpace(cafeID) == "" {
		return nil, domain.ErrInvalidCafeID
	}

	raw, err := s.seatRepo.ListByCafe(ctx, cafeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if n := seatmap.CountMalformed(raw); n > 0 {
		s.log.Warn("Seat placements fell back to defaults",
			zap.String("cafe_id", cafeID),
			zap.Int("malformed", n),
			zap.Int("total", len(raw)),
		)
	}

	span.SetStatus(codes.Ok, "")
	return seatmap.Parse(raw), nil
}

func (s *assignmentService) SeatStates(ctx context.Context, cafeID string) ([]SeatState, error) {
	seats, err := s.Seats(ctx, cafeID)
	if err != nil {
		return nil, err
	}
	sessions, err := s.ActiveSessions(ctx, cafeID)
	if err != nil {
		return nil, err
	}

	states := make([]SeatState, 0, len(seats))
	for _, seat := range seats {
		states = append(states, SeatState{
			Seat:   seat,
			Status: seatmap.DeriveStatus(seat.ID, sessions),
			Wall:   seat.IsWall(s.wallPrefix),
		})
	}
	return states, nil
}

func (s *assignmentService) ForUser(userID string) seatmap.Assigner {
	return &userAssigner{svc: s, userID: userID}
}

// userAssigner adapts AssignmentService to seatmap.Assigner for one user
type userAssigner struct {
	svc    AssignmentService
	userID string
}

func (a *userAssigner) AssignSeat(ctx context.Context, seatID, cafeID string) error {
	_, err := a.svc.Assign(ctx, a.userID, cafeID, seatID)
	return err
}

func validateIDs(userID, cafeID, seatID string) error {
	if strings.TrimSpace(userID) == "" {
		return domain.ErrInvalidUserID
	}
	if strings.TrimSpace(cafeID) == "" {
		return domain.ErrInvalidCafeID
	}
	if strings.TrimSpace(seatID) == "" {
		return domain.ErrInvalidSeatID
	}
	return nil
}

func findSeat(seats []seatmap.Seat, id string) (seatmap.Seat, bool) {
	for _, s := range seats {
		if s.ID == id {
			return s, true
		}
	}
	return seatmap.Seat{}, false
}
