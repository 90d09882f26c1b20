package repository

import (
	"context"
	"sync"

	"github.com/prohmpiriya/studycafe-seatmap/internal/domain"
	"github.com/prohmpiriya/studycafe-seatmap/internal/seatmap"
)

// MemorySeatRepository is an in-process seat catalog, used when PostgreSQL
// is disabled and in tests
type MemorySeatRepository struct {
	mu    sync.RWMutex
	cafes map[string][]seatmap.RawSeat
}

// NewMemorySeatRepository creates an empty catalog
func NewMemorySeatRepository() *MemorySeatRepository {
	return &MemorySeatRepository{cafes: make(map[string][]seatmap.RawSeat)}
}

// Put replaces the seats of a cafe
func (r *MemorySeatRepository) Put(cafeID string, seats []seatmap.RawSeat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cafes[cafeID] = append([]seatmap.RawSeat(nil), seats...)
}

// ListByCafe returns a copy of the seats of a cafe
func (r *MemorySeatRepository) ListByCafe(_ context.Context, cafeID string) ([]seatmap.RawSeat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seats, ok := r.cafes[cafeID]
	if !ok {
		return nil, domain.ErrCafeNotFound
	}
	return append([]seatmap.RawSeat(nil), seats...), nil
}

var _ SeatRepository = (*MemorySeatRepository)(nil)
