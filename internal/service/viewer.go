package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prohmpiriya/studycafe-seatmap/internal/seatmap"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/logger"
	"go.uber.org/zap"
)

// StreamEventType names the payload of a StreamEvent
type StreamEventType string

const (
	StreamFrame  StreamEventType = "frame"
	StreamPanel  StreamEventType = "panel"
	StreamNotice StreamEventType = "notice"
)

// StreamEvent is pushed to viewer watchers
type StreamEvent struct {
	Type StreamEventType `json:"type"`
	Data interface{}     `json:"data"`
}

// Viewer is one open seat map: the map state, its action panel and the
// notices raised by assignments
type Viewer struct {
	ID       string
	UserID   string
	CafeID   string
	OpenedAt time.Time

	m     *seatmap.Map
	panel *seatmap.Panel
	log   *logger.Logger

	lastSeen atomic.Int64

	mu        sync.Mutex
	notices   []seatmap.Notice
	noticeCap int
	watchers  map[int]chan StreamEvent
	nextWatch int
	closed    bool
	unsubs    []func()
}

func newViewer(id, userID string, m *seatmap.Map, log *logger.Logger, noticeCap int, now time.Time) *Viewer {
	if noticeCap <= 0 {
		noticeCap = 32
	}
	v := &Viewer{
		ID:        id,
		UserID:    userID,
		CafeID:    m.CafeID(),
		OpenedAt:  now,
		m:         m,
		log:       log.With(zap.String("viewer_id", id), zap.String("cafe_id", m.CafeID())),
		noticeCap: noticeCap,
		watchers:  make(map[int]chan StreamEvent),
	}
	v.touch(now)
	return v
}

// attach wires the panel and starts forwarding changes to watchers
func (v *Viewer) attach(panel *seatmap.Panel) {
	v.panel = panel
	v.unsubs = append(v.unsubs,
		v.m.Subscribe(func(seatmap.Change) {
			if v.hasWatchers() {
				v.broadcast(StreamEvent{Type: StreamFrame, Data: v.m.Frame()})
			}
		}),
		panel.OnChange(func(view seatmap.PanelView) {
			v.broadcast(StreamEvent{Type: StreamPanel, Data: view})
		}),
	)
}

// Map returns the viewer's seat map
func (v *Viewer) Map() *seatmap.Map {
	return v.m
}

// Panel returns the viewer's action panel
func (v *Viewer) Panel() *seatmap.Panel {
	return v.panel
}

// LastSeen returns the time of the last request on this viewer
func (v *Viewer) LastSeen() time.Time {
	return time.Unix(0, v.lastSeen.Load())
}

func (v *Viewer) touch(now time.Time) {
	v.lastSeen.Store(now.UnixNano())
}

// Notify queues a notice. When the queue is full the oldest notice is dropped.
func (v *Viewer) Notify(_ context.Context, n seatmap.Notice) {
	switch n.Kind {
	case seatmap.NoticeError:
		v.log.Warn("Seat assignment failed", zap.String("seat_id", n.SeatID), zap.String("message", n.Message))
	case seatmap.NoticeWarning:
		v.log.Warn("Seat assignment notice", zap.String("seat_id", n.SeatID), zap.String("message", n.Message))
	default:
		v.log.Info("Seat assignment notice", zap.String("seat_id", n.SeatID), zap.String("message", n.Message))
	}

	v.mu.Lock()
	v.notices = append(v.notices, n)
	if over := len(v.notices) - v.noticeCap; over > 0 {
		v.notices = append([]seatmap.Notice(nil), v.notices[over:]...)
	}
	v.mu.Unlock()

	v.broadcast(StreamEvent{Type: StreamNotice, Data: n})
}

// DrainNotices returns the queued notices and empties the queue
func (v *Viewer) DrainNotices() []seatmap.Notice {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.notices
	v.notices = nil
	if out == nil {
		out = []seatmap.Notice{}
	}
	return out
}

// Watch subscribes to frame, panel and notice events. Slow watchers lose
// events rather than block the map. The channel is closed by the returned
// func or when the viewer closes.
func (v *Viewer) Watch(buffer int) (<-chan StreamEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan StreamEvent, buffer)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := v.nextWatch
	v.nextWatch++
	v.watchers[id] = ch
	v.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			if c, ok := v.watchers[id]; ok {
				delete(v.watchers, id)
				close(c)
			}
		})
	}
}

func (v *Viewer) hasWatchers() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.watchers) > 0
}

func (v *Viewer) broadcast(ev StreamEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, ch := range v.watchers {
		select {
		case ch <- ev:
		default:
			v.log.Debug("Dropped stream event for slow watcher", zap.String("type", string(ev.Type)))
		}
	}
}

// close detaches the viewer from its map and ends every watch
func (v *Viewer) close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	for id, ch := range v.watchers {
		delete(v.watchers, id)
		close(ch)
	}
	unsubs := v.unsubs
	v.unsubs = nil
	v.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	if v.panel != nil {
		v.panel.Detach()
	}
}
