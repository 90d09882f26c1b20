package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prohmpiriya/studycafe-seatmap/internal/domain"
	"github.com/prohmpiriya/studycafe-seatmap/internal/seatmap"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/logger"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/retry"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Zoom directions accepted by ViewerService.Zoom
const (
	ZoomIn  = "in"
	ZoomOut = "out"
)

// TapResult reports where a tap landed and the panel it left behind
type TapResult struct {
	SeatID   string            `json:"seat_id,omitempty"`
	Hit      bool              `json:"hit"`
	Selected string            `json:"selected,omitempty"`
	Panel    seatmap.PanelView `json:"panel"`
}

// ViewerService manages the open seat map viewers
type ViewerService interface {
	Open(ctx context.Context, userID, cafeID string, size seatmap.Size) (*Viewer, error)
	Get(id string) (*Viewer, error)
	Gesture(id string, centroid, pan seatmap.Point, zoom float64) (seatmap.Frame, error)
	Zoom(id, direction string, scale float64) (seatmap.Frame, error)
	Resize(id string, size seatmap.Size) (seatmap.Frame, error)
	Tap(id string, p seatmap.Point) (*TapResult, error)
	Frame(id string) (seatmap.Frame, error)
	Panel(id string) (seatmap.PanelView, error)
	Confirm(ctx context.Context, id string) (seatmap.PanelView, error)
	ClosePanel(id string) (seatmap.PanelView, error)
	Notices(id string) ([]seatmap.Notice, error)
	Close(id string) error
	SweepIdle(olderThan time.Duration) int
	Count() int
	Shutdown(ctx context.Context) error
}

// ViewerServiceConfig contains configuration for the viewer service
type ViewerServiceConfig struct {
	Map           seatmap.Options
	AssignTimeout time.Duration
	NoticeBuffer  int
	SessionRetry  *retry.Config
}

// DefaultViewerServiceConfig returns default configuration
func DefaultViewerServiceConfig() *ViewerServiceConfig {
	return &ViewerServiceConfig{
		Map:           seatmap.DefaultOptions(),
		AssignTimeout: 15 * time.Second,
		NoticeBuffer:  32,
		SessionRetry:  retry.DefaultConfig(),
	}
}

type viewerService struct {
	assignments AssignmentService
	config      *ViewerServiceConfig
	log         *logger.Logger
	now         func() time.Time

	mu      sync.RWMutex
	viewers map[string]*Viewer

	// in-flight assignments of closed viewers
	draining sync.WaitGroup

	unsubscribe func()
}

// NewViewerService creates a new viewer service
func NewViewerService(assignments AssignmentService, log *logger.Logger, cfg *ViewerServiceConfig) ViewerService {
	if cfg == nil {
		cfg = DefaultViewerServiceConfig()
	}
	if log == nil {
		log = logger.Get()
	}
	s := &viewerService{
		assignments: assignments,
		config:      cfg,
		log:         log,
		now:         time.Now,
		viewers:     make(map[string]*Viewer),
	}
	s.unsubscribe = assignments.OnSessionsChanged(s.refreshCafe)
	return s
}

// refreshCafe pushes the current session list into every open viewer of cafeID
func (s *viewerService) refreshCafe(ctx context.Context, cafeID string) {
	s.mu.RLock()
	var targets []*Viewer
	for _, v := range s.viewers {
		if v.CafeID == cafeID {
			targets = append(targets, v)
		}
	}
	s.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	sessions, err := s.assignments.ActiveSessions(ctx, cafeID)
	if err != nil {
		s.log.Warn("Failed to refresh viewer sessions",
			zap.String("cafe_id", cafeID),
			zap.Int("viewers", len(targets)),
			zap.Error(err),
		)
		return
	}
	for _, v := range targets {
		v.m.SetSessions(sessions)
	}
}

func (s *viewerService) Open(ctx context.Context, userID, cafeID string, size seatmap.Size) (*Viewer, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.viewer.open")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("cafe_id", cafeID),
	)

	if strings.TrimSpace(userID) == "" {
		span.SetStatus(codes.Error, domain.ErrInvalidUserID.Error())
		return nil, domain.ErrInvalidUserID
	}
	if strings.TrimSpace(cafeID) == "" {
		span.SetStatus(codes.Error, domain.ErrInvalidCafeID.Error())
		return nil, domain.ErrInvalidCafeID
	}
	if size.Width <= 0 || size.Height <= 0 {
		span.SetStatus(codes.Error, domain.ErrInvalidViewport.Error())
		return nil, domain.ErrInvalidViewport
	}

	seats, err := s.assignments.Seats(ctx, cafeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	sessions, err := s.loadSessions(ctx, cafeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := s.now()
	m := seatmap.NewMap(cafeID, seats, sessions, size, s.config.Map)
	v := newViewer(uuid.New().String(), userID, m, s.log, s.config.NoticeBuffer, now)
	v.attach(seatmap.NewPanel(m, s.assignments.ForUser(userID), s.assignments, v,
		seatmap.PanelOptions{Timeout: s.config.AssignTimeout}))

	s.mu.Lock()
	s.viewers[v.ID] = v
	s.mu.Unlock()

	s.log.Info("Viewer opened",
		zap.String("viewer_id", v.ID),
		zap.String("cafe_id", cafeID),
		zap.String("user_id", userID),
		zap.Int("seats", len(seats)),
		zap.Int("sessions", len(sessions)),
	)

	span.SetAttributes(attribute.String("viewer_id", v.ID))
	span.SetStatus(codes.Ok, "")
	return v, nil
}

// loadSessions fetches the session list with backoff. Validation and not
// found errors are not retried.
func (s *viewerService) loadSessions(ctx context.Context, cafeID string) ([]seatmap.ActiveSession, error) {
	var sessions []seatmap.ActiveSession
	result := retry.New(s.config.SessionRetry).DoWithCallback(ctx, func(ctx context.Context) error {
		var err error
		sessions, err = s.assignments.ActiveSessions(ctx, cafeID)
		if domain.IsValidationError(err) || domain.IsNotFoundError(err) {
			return retry.Permanent(err)
		}
		return err
	}, func(attempt int, err error, next time.Duration) {
		s.log.Warn("Retrying session list",
			zap.String("cafe_id", cafeID),
			zap.Int("attempt", attempt),
			zap.Duration("next", next),
			zap.Error(err),
		)
	})
	if result.Err != nil {
		if result.LastError != nil && !errors.Is(result.Err, result.LastError) {
			return nil, fmt.Errorf("failed to load sessions: %w: %w", result.Err, result.LastError)
		}
		return nil, result.Err
	}
	return sessions, nil
}

func (s *viewerService) Get(id string) (*Viewer, error) {
	s.mu.RLock()
	v, ok := s.viewers[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrViewerNotFound
	}
	v.touch(s.now())
	return v, nil
}

func (s *viewerService) Gesture(id string, centroid, pan seatmap.Point, zoom float64) (seatmap.Frame, error) {
	v, err := s.Get(id)
	if err != nil {
		return seatmap.Frame{}, err
	}
	v.m.ApplyGesture(centroid, pan, zoom)
	return v.m.Frame(), nil
}

func (s *viewerService) Zoom(id, direction string, scale float64) (seatmap.Frame, error) {
	v, err := s.Get(id)
	if err != nil {
		return seatmap.Frame{}, err
	}
	switch strings.ToLower(direction) {
	case ZoomIn:
		v.m.ZoomIn()
	case ZoomOut:
		v.m.ZoomOut()
	case "":
		if scale <= 0 {
			return seatmap.Frame{}, domain.ErrInvalidZoom
		}
		v.m.SetScale(scale)
	default:
		return seatmap.Frame{}, domain.ErrInvalidZoom
	}
	return v.m.Frame(), nil
}

func (s *viewerService) Resize(id string, size seatmap.Size) (seatmap.Frame, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return seatmap.Frame{}, domain.ErrInvalidViewport
	}
	v, err := s.Get(id)
	if err != nil {
		return seatmap.Frame{}, err
	}
	v.m.Resize(size)
	return v.m.Frame(), nil
}

func (s *viewerService) Tap(id string, p seatmap.Point) (*TapResult, error) {
	v, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	seatID, hit := v.m.Tap(p)
	result := &TapResult{SeatID: seatID, Hit: hit, Panel: v.panel.View()}
	if seat, ok := v.m.Selected(); ok {
		result.Selected = seat.ID
	}
	return result, nil
}

func (s *viewerService) Frame(id string) (seatmap.Frame, error) {
	v, err := s.Get(id)
	if err != nil {
		return seatmap.Frame{}, err
	}
	return v.m.Frame(), nil
}

func (s *viewerService) Panel(id string) (seatmap.PanelView, error) {
	v, err := s.Get(id)
	if err != nil {
		return seatmap.PanelView{}, err
	}
	return v.panel.View(), nil
}

func (s *viewerService) Confirm(ctx context.Context, id string) (seatmap.PanelView, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.viewer.confirm")
	defer span.End()

	span.SetAttributes(attribute.String("viewer_id", id))

	v, err := s.Get(id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return seatmap.PanelView{}, err
	}
	if err := v.panel.Confirm(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return v.panel.View(), err
	}

	view := v.panel.View()
	span.SetAttributes(attribute.String("seat_id", view.SeatID))
	span.SetStatus(codes.Ok, "")
	return view, nil
}

func (s *viewerService) ClosePanel(id string) (seatmap.PanelView, error) {
	v, err := s.Get(id)
	if err != nil {
		return seatmap.PanelView{}, err
	}
	v.panel.Close()
	return v.panel.View(), nil
}

func (s *viewerService) Notices(id string) ([]seatmap.Notice, error) {
	v, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return v.DrainNotices(), nil
}

func (s *viewerService) Close(id string) error {
	s.mu.Lock()
	v, ok := s.viewers[id]
	delete(s.viewers, id)
	s.mu.Unlock()
	if !ok {
		return domain.ErrViewerNotFound
	}
	s.retire(v)
	s.log.Info("Viewer closed", zap.String("viewer_id", id), zap.String("cafe_id", v.CafeID))
	return nil
}

// retire closes v and keeps track of its in-flight assignment
func (s *viewerService) retire(v *Viewer) {
	v.close()
	s.draining.Add(1)
	go func() {
		defer s.draining.Done()
		v.panel.Wait()
	}()
}

func (s *viewerService) SweepIdle(olderThan time.Duration) int {
	cutoff := s.now().Add(-olderThan)

	s.mu.Lock()
	var idle []*Viewer
	for id, v := range s.viewers {
		if v.LastSeen().Before(cutoff) {
			idle = append(idle, v)
			delete(s.viewers, id)
		}
	}
	s.mu.Unlock()

	for _, v := range idle {
		s.retire(v)
		s.log.Info("Viewer expired",
			zap.String("viewer_id", v.ID),
			zap.String("cafe_id", v.CafeID),
			zap.Time("last_seen", v.LastSeen()),
		)
	}
	return len(idle)
}

func (s *viewerService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.viewers)
}

// Shutdown closes every viewer and waits for in-flight assignments
func (s *viewerService) Shutdown(ctx context.Context) error {
	s.unsubscribe()

	s.mu.Lock()
	viewers := make([]*Viewer, 0, len(s.viewers))
	for id, v := range s.viewers {
		viewers = append(viewers, v)
		delete(s.viewers, id)
	}
	s.mu.Unlock()

	for _, v := range viewers {
		s.retire(v)
	}

	done := make(chan struct{})
	go func() {
		s.draining.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("viewer shutdown: %w", ctx.Err())
	}
}
