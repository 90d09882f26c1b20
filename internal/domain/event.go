package domain

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentEventType is the event type of a started seat session
const AssignmentEventType = "seat.assigned"

// AssignmentEvent is published after a seat has been assigned to a user
type AssignmentEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	CafeID     string    `json:"cafe_id"`
	SeatID     string    `json:"seat_id"`
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewAssignmentEvent creates an event for a started session
func NewAssignmentEvent(cafeID, seatID, userID, sessionID string, at time.Time) *AssignmentEvent {
	return &AssignmentEvent{
		EventID:    uuid.New().String(),
		EventType:  AssignmentEventType,
		CafeID:     cafeID,
		SeatID:     seatID,
		UserID:     userID,
		SessionID:  sessionID,
		OccurredAt: at,
	}
}

// Key returns the partition key. Events of one cafe stay ordered.
func (e *AssignmentEvent) Key() string {
	return e.CafeID
}
