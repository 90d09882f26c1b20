package seatmap

import "sync"

// ChangeKind identifies what a Map mutation touched
type ChangeKind string

const (
	ChangeTransform ChangeKind = "transform"
	ChangeSelection ChangeKind = "selection"
	ChangeSessions  ChangeKind = "sessions"
	ChangeResize    ChangeKind = "resize"
)

// Change is delivered to Map subscribers after each mutation
type Change struct {
	Kind     ChangeKind
	Selected string
	Previous string
}

// Options configures a Map
type Options struct {
	Limits      ViewportLimits
	GridSpacing float64
	WallPrefix  string
}

// DefaultOptions returns the stock zoom range, grid spacing and wall marker
func DefaultOptions() Options {
	return Options{
		Limits:      DefaultViewportLimits(),
		GridSpacing: DefaultGridSpacing,
		WallPrefix:  DefaultWallPrefix,
	}
}

// Tile is one seat as it should be painted in the current frame
type Tile struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Rect     Rect   `json:"rect"`
	Status   Status `json:"status"`
	Wall     bool   `json:"wall"`
	Selected bool   `json:"selected"`
}

// Frame is a render snapshot: grid first, then tiles in paint order
type Frame struct {
	Viewport Viewport `json:"viewport"`
	Size     Size     `json:"size"`
	Grid     []Line   `json:"grid"`
	Tiles    []Tile   `json:"tiles"`
	Selected string   `json:"selected,omitempty"`
}

// Map is the seat-map state for one viewer: seats, active sessions, the
// viewport transform and the current selection.
// All methods are safe for concurrent use. Subscribers are called
// synchronously after the state lock is released.
type Map struct {
	mu       sync.RWMutex
	cafeID   string
	seats    []Seat
	index    map[string]int
	sessions []ActiveSession
	viewport Viewport
	size     Size
	selected string
	opts     Options

	listeners observers[Change]
}

// NewMap builds a Map over already parsed seats
func NewMap(cafeID string, seats []Seat, sessions []ActiveSession, size Size, opts Options) *Map {
	if opts.GridSpacing <= 0 {
		opts.GridSpacing = DefaultGridSpacing
	}
	index := make(map[string]int, len(seats))
	for i, s := range seats {
		if _, dup := index[s.ID]; !dup {
			index[s.ID] = i
		}
	}
	return &Map{
		cafeID:   cafeID,
		seats:    append([]Seat(nil), seats...),
		index:    index,
		sessions: append([]ActiveSession(nil), sessions...),
		viewport: NewViewport(opts.Limits),
		size:     size,
		opts:     opts,
	}
}

// Subscribe registers fn for every Change. The returned func unsubscribes.
func (m *Map) Subscribe(fn func(Change)) func() {
	return m.listeners.add(fn)
}

// CafeID returns the cafe this map belongs to
func (m *Map) CafeID() string {
	return m.cafeID
}

// Viewport returns a copy of the current transform
func (m *Map) Viewport() Viewport {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.viewport
}

// Size returns the viewport size in screen pixels
func (m *Map) Size() Size {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// Seats returns a copy of the seat list
func (m *Map) Seats() []Seat {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Seat(nil), m.seats...)
}

// Seat looks up a seat by id
func (m *Map) Seat(id string) (Seat, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[id]
	if !ok {
		return Seat{}, false
	}
	return m.seats[i], true
}

// Sessions returns a copy of the active session list
func (m *Map) Sessions() []ActiveSession {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]ActiveSession(nil), m.sessions...)
}

// Status derives a seat's occupancy from the current session list
func (m *Map) Status(seatID string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return DeriveStatus(seatID, m.sessions)
}

// Selected returns the selected seat, if any
func (m *Map) Selected() (Seat, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.selected == "" {
		return Seat{}, false
	}
	return m.seats[m.index[m.selected]], true
}

// ApplyGesture feeds one pinch/pan frame into the viewport
func (m *Map) ApplyGesture(centroid, pan Point, zoom float64) {
	m.mu.Lock()
	m.viewport.ApplyGesture(centroid, pan, zoom)
	m.mu.Unlock()
	m.listeners.emit(Change{Kind: ChangeTransform})
}

// SetScale sets the zoom level directly, keeping translation
func (m *Map) SetScale(scale float64) {
	m.mu.Lock()
	m.viewport.SetScale(scale)
	m.mu.Unlock()
	m.listeners.emit(Change{Kind: ChangeTransform})
}

// ZoomIn steps the zoom level up
func (m *Map) ZoomIn() {
	m.mu.Lock()
	m.viewport.ZoomIn()
	m.mu.Unlock()
	m.listeners.emit(Change{Kind: ChangeTransform})
}

// ZoomOut steps the zoom level down
func (m *Map) ZoomOut() {
	m.mu.Lock()
	m.viewport.ZoomOut()
	m.mu.Unlock()
	m.listeners.emit(Change{Kind: ChangeTransform})
}

// Resize changes the on-screen viewport size
func (m *Map) Resize(size Size) {
	m.mu.Lock()
	m.size = size
	m.mu.Unlock()
	m.listeners.emit(Change{Kind: ChangeResize})
}

// HitTest resolves a tap without changing the selection
func (m *Map) HitTest(p Point) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return HitTest(m.seats, m.viewport, m.sessions, m.selected, p, m.opts.WallPrefix)
}

// Tap selects the available seat under p. Taps on empty space, walls or
// occupied seats leave the selection as it is.
// It returns the seat id the tap landed on, if any.
func (m *Map) Tap(p Point) (string, bool) {
	m.mu.Lock()
	id, ok := HitTest(m.seats, m.viewport, m.sessions, m.selected, p, m.opts.WallPrefix)
	if !ok || id == m.selected {
		m.mu.Unlock()
		return id, ok
	}
	prev := m.selected
	m.selected = id
	m.mu.Unlock()

	m.listeners.emit(Change{Kind: ChangeSelection, Selected: id, Previous: prev})
	return id, true
}

// ClearSelection drops the current selection
func (m *Map) ClearSelection() {
	m.mu.Lock()
	prev := m.selected
	m.selected = ""
	m.mu.Unlock()

	if prev != "" {
		m.listeners.emit(Change{Kind: ChangeSelection, Previous: prev})
	}
}

// clearSelectionIf drops the selection only while it is still id
func (m *Map) clearSelectionIf(id string) bool {
	m.mu.Lock()
	if id == "" || m.selected != id {
		m.mu.Unlock()
		return false
	}
	m.selected = ""
	m.mu.Unlock()

	m.listeners.emit(Change{Kind: ChangeSelection, Previous: id})
	return true
}

// SetSessions replaces the active session list. Derived statuses follow.
func (m *Map) SetSessions(sessions []ActiveSession) {
	m.mu.Lock()
	m.sessions = append([]ActiveSession(nil), sessions...)
	m.mu.Unlock()
	m.listeners.emit(Change{Kind: ChangeSessions})
}

// Frame renders the current state into grid lines and tiles
func (m *Map) Frame() Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()

	frame := Frame{
		Viewport: m.viewport,
		Size:     m.size,
		Grid:     GridLines(m.viewport, m.size, m.opts.GridSpacing),
		Selected: m.selected,
	}

	order := DrawOrder(m.seats, m.selected)
	frame.Tiles = make([]Tile, 0, len(order))
	for _, i := range order {
		s := m.seats[i]
		frame.Tiles = append(frame.Tiles, Tile{
			ID:       s.ID,
			Label:    s.Label,
			Rect:     m.viewport.ScreenRect(s.Position, s.Size),
			Status:   DeriveStatus(s.ID, m.sessions),
			Wall:     s.IsWall(m.opts.WallPrefix),
			Selected: s.ID == m.selected && m.selected != "",
		})
	}
	return frame
}
