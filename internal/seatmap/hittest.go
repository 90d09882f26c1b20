package seatmap

// DrawOrder returns seat indices in paint order: input order, with the
// selected seat moved to the end so it is drawn on top of everything.
func DrawOrder(seats []Seat, selectedID string) []int {
	order := make([]int, 0, len(seats))
	selected := -1
	for i := range seats {
		if selectedID != "" && seats[i].ID == selectedID && selected < 0 {
			selected = i
			continue
		}
		order = append(order, i)
	}
	if selected >= 0 {
		order = append(order, selected)
	}
	return order
}

// HitTest maps a screen-space tap to the id of the seat it selects.
// Seats are probed topmost first (see DrawOrder). Walls and occupied seats
// never capture a tap; the first available seat whose screen rectangle
// contains p wins.
func HitTest(seats []Seat, vp Viewport, sessions []ActiveSession, selectedID string, p Point, wallPrefix string) (string, bool) {
	order := DrawOrder(seats, selectedID)
	for k := len(order) - 1; k >= 0; k-- {
		seat := seats[order[k]]
		if seat.IsWall(wallPrefix) {
			continue
		}
		if !vp.ScreenRect(seat.Position, seat.Size).Contains(p) {
			continue
		}
		if DeriveStatus(seat.ID, sessions) != StatusAvailable {
			continue
		}
		return seat.ID, true
	}
	return "", false
}
