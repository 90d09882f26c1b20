package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prohmpiriya/studycafe-seatmap/pkg/logger"
	"go.uber.org/zap"
)

// IdleSweeper closes viewers that have not been used for a while
type IdleSweeper interface {
	SweepIdle(olderThan time.Duration) int
	Count() int
}

// ViewerSweeperConfig contains configuration for the viewer sweeper
type ViewerSweeperConfig struct {
	// Interval between sweeps
	Interval time.Duration
	// IdleTTL is how long a viewer may go unused before it is closed
	IdleTTL time.Duration
}

// DefaultViewerSweeperConfig returns default configuration
func DefaultViewerSweeperConfig() *ViewerSweeperConfig {
	return &ViewerSweeperConfig{
		Interval: time.Minute,
		IdleTTL:  30 * time.Minute,
	}
}

// ViewerSweeperStats reports sweeper activity
type ViewerSweeperStats struct {
	Running      bool      `json:"running"`
	TotalExpired int64     `json:"total_expired"`
	LastSweep    time.Time `json:"last_sweep"`
	LastExpired  int       `json:"last_expired"`
}

// ViewerSweeper periodically expires idle viewers
type ViewerSweeper struct {
	viewers IdleSweeper
	config  *ViewerSweeperConfig
	log     *logger.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	totalExpired int64
	lastSweep    time.Time
	lastExpired  int
}

// NewViewerSweeper creates a new viewer sweeper
func NewViewerSweeper(viewers IdleSweeper, config *ViewerSweeperConfig, log *logger.Logger) *ViewerSweeper {
	if config == nil {
		config = DefaultViewerSweeperConfig()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultViewerSweeperConfig().Interval
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultViewerSweeperConfig().IdleTTL
	}
	if log == nil {
		log = logger.Get()
	}
	return &ViewerSweeper{
		viewers: viewers,
		config:  config,
		log:     log,
		stopCh:  make(chan struct{}),
	}
}

// Start starts the sweeper
func (w *ViewerSweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("viewer sweeper already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("Starting viewer sweeper",
		zap.Duration("interval", w.config.Interval),
		zap.Duration("idle_ttl", w.config.IdleTTL),
	)

	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Stop stops the sweeper and waits for the current sweep
func (w *ViewerSweeper) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("Viewer sweeper stopped")
}

func (w *ViewerSweeper) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep closes idle viewers once and returns how many were closed
func (w *ViewerSweeper) Sweep() int {
	n := w.viewers.SweepIdle(w.config.IdleTTL)

	w.mu.Lock()
	w.lastSweep = time.Now()
	w.lastExpired = n
	w.totalExpired += int64(n)
	w.mu.Unlock()

	if n > 0 {
		w.log.Info("Expired idle viewers",
			zap.Int("expired", n),
			zap.Int("open", w.viewers.Count()),
		)
	}
	return n
}

// Stats returns sweeper statistics
func (w *ViewerSweeper) Stats() ViewerSweeperStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ViewerSweeperStats{
		Running:      w.running,
		TotalExpired: w.totalExpired,
		LastSweep:    w.lastSweep,
		LastExpired:  w.lastExpired,
	}
}
