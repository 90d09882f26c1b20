package repository

import (
	"context"
	"sync"

	"github.com/prohmpiriya/studycafe-seatmap/internal/domain"
	"github.com/prohmpiriya/studycafe-seatmap/internal/seatmap"
)

// MemorySessionRepository keeps sessions in process memory. It follows the
// same rules as RedisSessionRepository.
type MemorySessionRepository struct {
	mu    sync.Mutex
	cafes map[string]map[string]seatmap.ActiveSession
}

// NewMemorySessionRepository creates an empty session store
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{cafes: make(map[string]map[string]seatmap.ActiveSession)}
}

// ListActive returns the sessions of a cafe ordered by start time
func (r *MemorySessionRepository) ListActive(_ context.Context, cafeID string) ([]seatmap.ActiveSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seats := r.cafes[cafeID]
	sessions := make([]seatmap.ActiveSession, 0, len(seats))
	for _, s := range seats {
		sessions = append(sessions, s)
	}
	sortSessions(sessions)
	return sessions, nil
}

// Start records a session unless the seat or the user is already taken
func (r *MemorySessionRepository) Start(_ context.Context, session seatmap.ActiveSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seats, ok := r.cafes[session.CafeID]
	if !ok {
		seats = make(map[string]seatmap.ActiveSession)
		r.cafes[session.CafeID] = seats
	}
	if _, taken := seats[session.SeatID]; taken {
		return domain.ErrSeatOccupied
	}
	if session.UserID != "" {
		for _, s := range seats {
			if s.UserID == session.UserID {
				return domain.ErrUserAlreadySeated
			}
		}
	}
	seats[session.SeatID] = session
	return nil
}

// End removes the session on a seat
func (r *MemorySessionRepository) End(_ context.Context, cafeID, seatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cafes[cafeID], seatID)
	return nil
}

var _ SessionRepository = (*MemorySessionRepository)(nil)
