package seatmap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ButtonLabel is the caption of the panel's confirm button
const ButtonLabel = "이용 시작"

var (
	ErrPanelBusy   = errors.New("assignment already in progress")
	ErrPanelClosed = errors.New("no seat selected")
)

// Assigner starts a usage session on a seat
type Assigner interface {
	AssignSeat(ctx context.Context, seatID, cafeID string) error
}

// SessionSource provides the current active sessions of a cafe
type SessionSource interface {
	ActiveSessions(ctx context.Context, cafeID string) ([]ActiveSession, error)
}

// NoticeKind is the severity of a Notice
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeWarning NoticeKind = "warning"
)

// Notice is a user-facing message about an assignment outcome
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	SeatID  string     `json:"seat_id"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// Notifier receives assignment outcomes. The panel never shows errors inline.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// PanelState is the visual state of the action panel
type PanelState string

const (
	PanelClosed  PanelState = "closed"
	PanelIdle    PanelState = "idle"
	PanelLoading PanelState = "loading"
)

// PanelView is what the panel shows right now
type PanelView struct {
	State         PanelState `json:"state"`
	SeatID        string     `json:"seat_id,omitempty"`
	Label         string     `json:"label,omitempty"`
	ButtonLabel   string     `json:"button_label,omitempty"`
	ButtonEnabled bool       `json:"button_enabled"`
}

// PanelOptions configures a Panel
type PanelOptions struct {
	// Timeout bounds a dispatched assignment call. Zero means no bound.
	Timeout time.Duration
}

// Panel follows the selection of a Map and triggers seat assignment for it.
// A dispatched assignment always runs to completion; closing the panel or
// selecting another seat only detaches the result from the panel. The
// button stays disabled until the dispatch returns.
type Panel struct {
	m        *Map
	assigner Assigner
	sessions SessionSource
	notifier Notifier
	opts     PanelOptions

	mu     sync.Mutex
	state    PanelState
	seatID   string
	gen      uint64
	inflight int

	wg      sync.WaitGroup
	changes observers[PanelView]
	unsub   func()
}

// NewPanel attaches a panel to m. sessions and notifier may be nil.
func NewPanel(m *Map, assigner Assigner, sessions SessionSource, notifier Notifier, opts PanelOptions) *Panel {
	p := &Panel{
		m:        m,
		assigner: assigner,
		sessions: sessions,
		notifier: notifier,
		opts:     opts,
		state:    PanelClosed,
	}
	if seat, ok := m.Selected(); ok {
		p.state = PanelIdle
		p.seatID = seat.ID
	}
	p.unsub = m.Subscribe(p.onMapChange)
	return p
}

// OnChange registers fn for every panel view change
func (p *Panel) OnChange(fn func(PanelView)) func() {
	return p.changes.add(fn)
}

// Detach stops following the map
func (p *Panel) Detach() {
	p.unsub()
}

func (p *Panel) onMapChange(c Change) {
	if c.Kind != ChangeSelection {
		return
	}
	p.mu.Lock()
	p.gen++
	if c.Selected == "" {
		p.state = PanelClosed
		p.seatID = ""
	} else {
		p.state = PanelIdle
		p.seatID = c.Selected
	}
	p.mu.Unlock()
	p.changes.emit(p.View())
}

// View returns the current panel view
func (p *Panel) View() PanelView {
	p.mu.Lock()
	state, seatID, busy := p.state, p.seatID, p.inflight > 0
	p.mu.Unlock()

	if state == PanelClosed {
		return PanelView{State: PanelClosed}
	}
	view := PanelView{
		State:         state,
		SeatID:        seatID,
		ButtonLabel:   ButtonLabel,
		ButtonEnabled: state == PanelIdle && !busy,
	}
	if seat, ok := p.m.Seat(seatID); ok {
		view.Label = seat.Label
	}
	return view
}

// Confirm dispatches the assignment for the selected seat and returns
// immediately. The call is detached from ctx cancellation.
func (p *Panel) Confirm(ctx context.Context) error {
	p.mu.Lock()
	if p.state == PanelClosed {
		p.mu.Unlock()
		return ErrPanelClosed
	}
	if p.inflight > 0 {
		p.mu.Unlock()
		return ErrPanelBusy
	}
	p.state = PanelLoading
	p.inflight++
	gen, seatID := p.gen, p.seatID
	p.wg.Add(1)
	p.mu.Unlock()

	p.changes.emit(p.View())

	go p.dispatch(context.WithoutCancel(ctx), gen, seatID)
	return nil
}

// Close clears the selection, which closes the panel. An in-flight
// assignment keeps running.
func (p *Panel) Close() {
	p.m.ClearSelection()

	p.mu.Lock()
	changed := p.state != PanelClosed
	if changed {
		p.gen++
		p.state = PanelClosed
		p.seatID = ""
	}
	p.mu.Unlock()
	if changed {
		p.changes.emit(p.View())
	}
}

// Wait blocks until every dispatched assignment has finished
func (p *Panel) Wait() {
	p.wg.Wait()
}

func (p *Panel) dispatch(ctx context.Context, gen uint64, seatID string) {
	defer p.wg.Done()

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	cafeID := p.m.CafeID()
	label := seatID
	if seat, ok := p.m.Seat(seatID); ok && seat.Label != "" {
		label = seat.Label
	}

	if err := p.assigner.AssignSeat(ctx, seatID, cafeID); err != nil {
		p.settle(gen, true)
		p.notify(ctx, Notice{Kind: NoticeError, SeatID: seatID, Message: fmt.Sprintf("could not assign seat %s: %v", label, err)})
		return
	}

	if p.sessions != nil {
		sessions, err := p.sessions.ActiveSessions(ctx, cafeID)
		if err != nil {
			p.notify(ctx, Notice{Kind: NoticeWarning, SeatID: seatID, Message: fmt.Sprintf("seat %s assigned, refreshing seat status failed: %v", label, err)})
		} else {
			p.m.SetSessions(sessions)
		}
	}

	p.mu.Lock()
	current := p.gen == gen
	p.mu.Unlock()
	if current {
		p.m.clearSelectionIf(seatID)
	}
	p.settle(gen, false)

	p.notify(ctx, Notice{Kind: NoticeSuccess, SeatID: seatID, Message: fmt.Sprintf("seat %s assigned", label)})
}

// settle ends a dispatch. A failed dispatch for the current selection
// returns the panel to idle.
func (p *Panel) settle(gen uint64, failed bool) {
	p.mu.Lock()
	p.inflight--
	if failed && p.gen == gen && p.state == PanelLoading {
		p.state = PanelIdle
	}
	open := p.state != PanelClosed
	p.mu.Unlock()
	if open {
		p.changes.emit(p.View())
	}
}

func (p *Panel) notify(ctx context.Context, n Notice) {
	if p.notifier == nil {
		return
	}
	n.At = time.Now()
	p.notifier.Notify(ctx, n)
}
