package di

import (
	"context"
	"testing"
	"time"

	"github.com/prohmpiriya/studycafe-seatmap/internal/middleware"
	"github.com/prohmpiriya/studycafe-seatmap/internal/repository"
	"github.com/prohmpiriya/studycafe-seatmap/internal/seatmap"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/logger"
)

func TestNewContainer_InMemory(t *testing.T) {
	seats := repository.NewMemorySeatRepository()
	seats.Put("cafe-1", []seatmap.RawSeat{{ID: "A1", Label: "A1", Placement: "0,0,40,40"}})

	c := NewContainer(&ContainerConfig{
		Log:         logger.NewNop(),
		SeatRepo:    seats,
		SessionRepo: repository.NewMemorySessionRepository(),
	})

	if c.EventPublisher == nil {
		t.Fatalf("expected a no-op publisher when none is configured")
	}
	if _, ok := c.IdempotencyStore.(*middleware.MemoryIdempotencyStore); !ok {
		t.Errorf("expected in-memory idempotency store without redis, got %T", c.IdempotencyStore)
	}
	if c.HealthHandler == nil || c.ViewerHandler == nil || c.CafeHandler == nil || c.ViewerSweeper == nil {
		t.Fatalf("handlers and workers must be built")
	}

	v, err := c.ViewerService.Open(context.Background(), "user-1", "cafe-1", seatmap.Size{Width: 100, Height: 100})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := c.ViewerService.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
	if v.CafeID != "cafe-1" {
		t.Errorf("CafeID = %q", v.CafeID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.ViewerService.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
