package seatmap

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Fallback placement for seats whose packed "x,y,w,h" string is incomplete
var (
	DefaultSeatPosition = Point{X: 100, Y: 100}
	DefaultSeatSize     = Size{Width: 40, Height: 40}
)

// DefaultWallPrefix marks seat-list entries that are layout decoration
const DefaultWallPrefix = "WALL"

// RawSeat is a seat record as delivered by the seat catalog.
// Placement is the packed "x,y,w,h" string.
type RawSeat struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Placement string `json:"placement"`
}

// Seat is a parsed seat in model space. Occupancy is not stored here;
// use DeriveStatus.
type Seat struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Position Point  `json:"position"`
	Size     Size   `json:"size"`
}

// IsWall reports whether the seat is a wall segment under the given prefix
func (s Seat) IsWall(prefix string) bool {
	return prefix != "" && strings.HasPrefix(s.Label, prefix)
}

// Status is a seat's derived occupancy
type Status string

const (
	StatusAvailable Status = "available"
	StatusOccupied  Status = "occupied"
)

// ActiveSession is a running seat usage session
type ActiveSession struct {
	ID        string    `json:"id"`
	CafeID    string    `json:"cafe_id"`
	SeatID    string    `json:"seat_id"`
	UserID    string    `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
}

// DeriveStatus returns occupied if any session references seatID
func DeriveStatus(seatID string, sessions []ActiveSession) Status {
	for i := range sessions {
		if sessions[i].SeatID == seatID {
			return StatusOccupied
		}
	}
	return StatusAvailable
}

// ParsePlacement decodes a packed "x,y,w,h" string.
// Numeric tokens are read left to right until the first bad one. With fewer
// than two the position falls back to DefaultSeatPosition, with fewer than
// four the size falls back to DefaultSeatSize. It never fails.
func ParsePlacement(packed string) (Point, Size) {
	nums, n := scanPlacement(packed)

	pos := DefaultSeatPosition
	if n >= 2 {
		pos = Point{X: nums[0], Y: nums[1]}
	}
	size := DefaultSeatSize
	if n >= 4 {
		size = Size{Width: nums[2], Height: nums[3]}
	}
	return pos, size
}

// scanPlacement returns the leading finite numbers of packed, at most four
func scanPlacement(packed string) ([4]float64, int) {
	var nums [4]float64
	n := 0
	if strings.TrimSpace(packed) == "" {
		return nums, 0
	}
	for _, tok := range strings.SplitN(packed, ",", 5) {
		if n == len(nums) {
			break
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			break
		}
		nums[n] = f
		n++
	}
	return nums, n
}

// Parse converts raw catalog records into seats, keeping input order
func Parse(raw []RawSeat) []Seat {
	seats := make([]Seat, 0, len(raw))
	for _, r := range raw {
		pos, size := ParsePlacement(r.Placement)
		seats = append(seats, Seat{
			ID:       r.ID,
			Label:    r.Label,
			Position: pos,
			Size:     size,
		})
	}
	return seats
}

// CountMalformed returns how many records needed a fallback placement
func CountMalformed(raw []RawSeat) int {
	count := 0
	for _, r := range raw {
		if _, n := scanPlacement(r.Placement); n < 4 {
			count++
		}
	}
	return count
}
