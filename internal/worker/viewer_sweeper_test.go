package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prohmpiriya/studycafe-seatmap/pkg/logger"
)

type fakeSweeper struct {
	calls   atomic.Int32
	lastTTL atomic.Int64
	expire  int
}

func (f *fakeSweeper) SweepIdle(olderThan time.Duration) int {
	f.calls.Add(1)
	f.lastTTL.Store(int64(olderThan))
	return f.expire
}

func (f *fakeSweeper) Count() int { return 0 }

func TestViewerSweeper_Sweep(t *testing.T) {
	fake := &fakeSweeper{expire: 2}
	w := NewViewerSweeper(fake, &ViewerSweeperConfig{Interval: time.Hour, IdleTTL: 10 * time.Minute}, logger.NewNop())

	if n := w.Sweep(); n != 2 {
		t.Errorf("Sweep() = %d, want 2", n)
	}
	w.Sweep()

	stats := w.Stats()
	if stats.TotalExpired != 4 {
		t.Errorf("TotalExpired = %d, want 4", stats.TotalExpired)
	}
	if stats.LastExpired != 2 {
		t.Errorf("LastExpired = %d, want 2", stats.LastExpired)
	}
	if time.Duration(fake.lastTTL.Load()) != 10*time.Minute {
		t.Errorf("idle ttl = %v, want 10m", time.Duration(fake.lastTTL.Load()))
	}
}

func TestViewerSweeper_StartStop(t *testing.T) {
	fake := &fakeSweeper{}
	w := NewViewerSweeper(fake, &ViewerSweeperConfig{Interval: 5 * time.Millisecond, IdleTTL: time.Minute}, logger.NewNop())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Errorf("second Start() should fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for fake.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()

	if fake.calls.Load() < 2 {
		t.Errorf("expected periodic sweeps, got %d", fake.calls.Load())
	}
	if w.Stats().Running {
		t.Errorf("sweeper should not be running after Stop")
	}
	w.Stop()
}

func TestNewViewerSweeper_Defaults(t *testing.T) {
	w := NewViewerSweeper(&fakeSweeper{}, &ViewerSweeperConfig{}, nil)

	if w.config.Interval != time.Minute || w.config.IdleTTL != 30*time.Minute {
		t.Errorf("unexpected defaults: %+v", w.config)
	}
}
