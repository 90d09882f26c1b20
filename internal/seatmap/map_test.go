package seatmap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSeats() []Seat {
	return Parse([]RawSeat{
		{ID: "s1", Label: "A1", Placement: "0,0,40,40"},
		{ID: "s2", Label: "A2", Placement: "60,0,40,40"},
		{ID: "s3", Label: "A3", Placement: "120,0,40,40"},
		{ID: "w1", Label: "WALL-top", Placement: "0,-20,160,10"},
	})
}

func newTestMap(sessions ...ActiveSession) *Map {
	return NewMap("cafe-1", testSeats(), sessions, Size{Width: 320, Height: 240}, DefaultOptions())
}

func TestMap_TapSelectsAvailableSeat(t *testing.T) {
	m := newTestMap()

	id, ok := m.Tap(Point{X: 10, Y: 10})

	require.True(t, ok)
	assert.Equal(t, "s1", id)
	seat, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "A1", seat.Label)
}

func TestMap_TapReplacesSelection(t *testing.T) {
	m := newTestMap()
	var changes []Change
	m.Subscribe(func(c Change) { changes = append(changes, c) })

	m.Tap(Point{X: 10, Y: 10})
	m.Tap(Point{X: 70, Y: 10})

	seat, _ := m.Selected()
	assert.Equal(t, "s2", seat.ID)
	require.Len(t, changes, 2)
	assert.Equal(t, Change{Kind: ChangeSelection, Selected: "s2", Previous: "s1"}, changes[1])
}

func TestMap_TapOccupiedKeepsSelection(t *testing.T) {
	m := newTestMap(ActiveSession{ID: "x", SeatID: "s2"})
	m.Tap(Point{X: 10, Y: 10})

	_, ok := m.Tap(Point{X: 70, Y: 10})

	assert.False(t, ok)
	seat, _ := m.Selected()
	assert.Equal(t, "s1", seat.ID)
	assert.Equal(t, StatusOccupied, m.Status("s2"))
}

func TestMap_TapEmptySpaceOrWallIsNoop(t *testing.T) {
	m := newTestMap()
	m.Tap(Point{X: 10, Y: 10})

	_, ok := m.Tap(Point{X: 300, Y: 200})
	assert.False(t, ok)
	_, ok = m.Tap(Point{X: 50, Y: -15})
	assert.False(t, ok)

	seat, _ := m.Selected()
	assert.Equal(t, "s1", seat.ID)
}

func TestMap_TapSameSeatDoesNotNotify(t *testing.T) {
	m := newTestMap()
	m.Tap(Point{X: 10, Y: 10})
	calls := 0
	m.Subscribe(func(Change) { calls++ })

	id, ok := m.Tap(Point{X: 20, Y: 20})

	assert.True(t, ok)
	assert.Equal(t, "s1", id)
	assert.Zero(t, calls)
}

func TestMap_ClearSelection(t *testing.T) {
	m := newTestMap()
	m.Tap(Point{X: 10, Y: 10})

	m.ClearSelection()

	_, ok := m.Selected()
	assert.False(t, ok)
}

func TestMap_SetSessionsFlipsStatus(t *testing.T) {
	m := newTestMap()
	assert.Equal(t, StatusAvailable, m.Status("s3"))

	m.SetSessions([]ActiveSession{{ID: "x", SeatID: "s3"}})

	assert.Equal(t, StatusOccupied, m.Status("s3"))
	_, ok := m.Tap(Point{X: 130, Y: 10})
	assert.False(t, ok)
}

func TestMap_GestureMovesHitArea(t *testing.T) {
	m := newTestMap()

	m.ApplyGesture(Point{}, Point{}, 2)

	// s2 now spans x 120..200 on screen
	id, ok := m.HitTest(Point{X: 130, Y: 10})
	assert.True(t, ok)
	assert.Equal(t, "s2", id)
}

func TestMap_Frame(t *testing.T) {
	m := newTestMap(ActiveSession{ID: "x", SeatID: "s3"})
	m.Tap(Point{X: 10, Y: 10})

	f := m.Frame()

	require.Len(t, f.Tiles, 4)
	assert.Equal(t, "s1", f.Tiles[len(f.Tiles)-1].ID)
	assert.True(t, f.Tiles[len(f.Tiles)-1].Selected)
	assert.Equal(t, "s1", f.Selected)
	assert.NotEmpty(t, f.Grid)

	byID := map[string]Tile{}
	for _, tile := range f.Tiles {
		byID[tile.ID] = tile
	}
	assert.Equal(t, StatusOccupied, byID["s3"].Status)
	assert.True(t, byID["w1"].Wall)
	assert.Equal(t, Rect{X: 60, Y: 0, Width: 40, Height: 40}, byID["s2"].Rect)
}

func TestMap_FrameGridIgnoresSeats(t *testing.T) {
	size := Size{Width: 200, Height: 200}
	withSeats := NewMap("c", testSeats(), nil, size, DefaultOptions())
	empty := NewMap("c", nil, nil, size, DefaultOptions())

	assert.Equal(t, withSeats.Frame().Grid, empty.Frame().Grid)
}

func TestMap_ZoomAndResizeNotify(t *testing.T) {
	m := newTestMap()
	var kinds []ChangeKind
	unsub := m.Subscribe(func(c Change) { kinds = append(kinds, c.Kind) })

	m.ZoomIn()
	m.ZoomOut()
	m.SetScale(2)
	m.Resize(Size{Width: 10, Height: 10})
	unsub()
	m.ZoomIn()

	assert.Equal(t, []ChangeKind{ChangeTransform, ChangeTransform, ChangeTransform, ChangeResize}, kinds)
	assert.Equal(t, Size{Width: 10, Height: 10}, m.Size())
}

func TestMap_ConcurrentUse(t *testing.T) {
	m := newTestMap()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.ApplyGesture(Point{X: 10, Y: 10}, Point{X: 1}, 1.05)
				m.Tap(Point{X: float64(i * 10), Y: 10})
				_ = m.Frame()
			}
		}(i)
	}
	wg.Wait()

	vp := m.Viewport()
	assert.LessOrEqual(t, vp.Scale, DefaultMaxScale)
	assert.GreaterOrEqual(t, vp.Scale, DefaultMinScale)
}
