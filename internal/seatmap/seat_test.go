package seatmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlacement(t *testing.T) {
	tests := []struct {
		name     string
		packed   string
		wantPos  Point
		wantSize Size
	}{
		{"full", "10,20,30,40", Point{X: 10, Y: 20}, Size{Width: 30, Height: 40}},
		{"position only", "10,20", Point{X: 10, Y: 20}, DefaultSeatSize},
		{"empty", "", DefaultSeatPosition, DefaultSeatSize},
		{"blank", "   ", DefaultSeatPosition, DefaultSeatSize},
		{"spaces around tokens", " 1.5 , 2.5 ,3,4 ", Point{X: 1.5, Y: 2.5}, Size{Width: 3, Height: 4}},
		{"single number", "7", DefaultSeatPosition, DefaultSeatSize},
		{"three numbers", "1,2,3", Point{X: 1, Y: 2}, DefaultSeatSize},
		{"garbage", "abc", DefaultSeatPosition, DefaultSeatSize},
		{"stops at bad token", "1,x,3,4", DefaultSeatPosition, DefaultSeatSize},
		{"bad size token", "1,2,x,4", Point{X: 1, Y: 2}, DefaultSeatSize},
		{"nan rejected", "NaN,2,3,4", DefaultSeatPosition, DefaultSeatSize},
		{"extra tokens ignored", "1,2,3,4,5,6", Point{X: 1, Y: 2}, Size{Width: 3, Height: 4}},
		{"negative values", "-10,-20,30,40", Point{X: -10, Y: -20}, Size{Width: 30, Height: 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, size := ParsePlacement(tt.packed)
			assert.Equal(t, tt.wantPos, pos)
			assert.Equal(t, tt.wantSize, size)
		})
	}
}

func TestParse_KeepsOrderAndIsDeterministic(t *testing.T) {
	raw := []RawSeat{
		{ID: "s2", Label: "A2", Placement: "60,0,40,40"},
		{ID: "s1", Label: "A1", Placement: "0,0,40,40"},
		{ID: "w1", Label: "WALL-1", Placement: "bad"},
	}

	first := Parse(raw)
	second := Parse(raw)

	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
	assert.Equal(t, "s2", first[0].ID)
	assert.Equal(t, "s1", first[1].ID)
	assert.Equal(t, DefaultSeatPosition, first[2].Position)
}

func TestCountMalformed(t *testing.T) {
	raw := []RawSeat{
		{ID: "a", Placement: "1,2,3,4"},
		{ID: "b", Placement: "1,2"},
		{ID: "c", Placement: ""},
	}

	assert.Equal(t, 2, CountMalformed(raw))
	assert.Equal(t, 0, CountMalformed(nil))
}

func TestSeat_IsWall(t *testing.T) {
	assert.True(t, Seat{Label: "WALL-north"}.IsWall(DefaultWallPrefix))
	assert.False(t, Seat{Label: "A1"}.IsWall(DefaultWallPrefix))
	assert.False(t, Seat{Label: "wall"}.IsWall(DefaultWallPrefix))
	assert.False(t, Seat{Label: "WALL"}.IsWall(""))
}

func TestDeriveStatus(t *testing.T) {
	sessions := []ActiveSession{{ID: "x", SeatID: "s1"}}

	assert.Equal(t, StatusOccupied, DeriveStatus("s1", sessions))
	assert.Equal(t, StatusAvailable, DeriveStatus("s2", sessions))
	assert.Equal(t, StatusAvailable, DeriveStatus("s1", nil))
}
