package repository

import (
	"context"

	"github.com/prohmpiriya/studycafe-seatmap/internal/seatmap"
)

// SeatRepository reads the seat catalog of a cafe
type SeatRepository interface {
	// ListByCafe returns the raw seat records of a cafe in catalog order.
	// Returns domain.ErrCafeNotFound if the cafe does not exist.
	ListByCafe(ctx context.Context, cafeID string) ([]seatmap.RawSeat, error)
}

// SessionRepository stores the active usage sessions of every cafe
type SessionRepository interface {
	// ListActive returns the running sessions of a cafe
	ListActive(ctx context.Context, cafeID string) ([]seatmap.ActiveSession, error)

	// Start records a new session. Returns domain.ErrSeatOccupied when the
	// seat is taken and domain.ErrUserAlreadySeated when the user holds
	// another seat in the same cafe.
	Start(ctx context.Context, session seatmap.ActiveSession) error

	// End removes the session on a seat. Ending a free seat is a no-op.
	End(ctx context.Context, cafeID, seatID string) error
}
