package dto

import (
	"time"

	"github.com/prohmpiriya/studycafe-seatmap/internal/seatmap"
	"github.com/prohmpiriya/studycafe-seatmap/internal/service"
)

// OpenViewerRequest represents request to open a seat map viewer
type OpenViewerRequest struct {
	CafeID string  `json:"cafe_id" binding:"required"`
	Width  float64 `json:"width" binding:"required,gt=0"`
	Height float64 `json:"height" binding:"required,gt=0"`
}

// Size returns the requested viewport size
func (r *OpenViewerRequest) Size() seatmap.Size {
	return seatmap.Size{Width: r.Width, Height: r.Height}
}

// ResizeRequest represents a viewport size change
type ResizeRequest struct {
	Width  float64 `json:"width" binding:"required,gt=0"`
	Height float64 `json:"height" binding:"required,gt=0"`
}

// Size returns the requested viewport size
func (r *ResizeRequest) Size() seatmap.Size {
	return seatmap.Size{Width: r.Width, Height: r.Height}
}

// GestureRequest is one pinch/pan update in screen coordinates.
// Zoom is the incremental scale factor of this update; 0 means 1.
type GestureRequest struct {
	CentroidX float64 `json:"centroid_x"`
	CentroidY float64 `json:"centroid_y"`
	PanX      float64 `json:"pan_x"`
	PanY      float64 `json:"pan_y"`
	Zoom      float64 `json:"zoom"`
}

func (r *GestureRequest) Centroid() seatmap.Point {
	return seatmap.Point{X: r.CentroidX, Y: r.CentroidY}
}

func (r *GestureRequest) Pan() seatmap.Point {
	return seatmap.Point{X: r.PanX, Y: r.PanY}
}

// ZoomRequest steps the zoom ("in" or "out") or sets an absolute scale
type ZoomRequest struct {
	Direction string  `json:"direction,omitempty"`
	Scale     float64 `json:"scale,omitempty"`
}

// TapRequest is a tap in screen coordinates
type TapRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (r *TapRequest) Point() seatmap.Point {
	return seatmap.Point{X: r.X, Y: r.Y}
}

// ViewerResponse represents an opened viewer in API response
type ViewerResponse struct {
	ViewerID string            `json:"viewer_id"`
	CafeID   string            `json:"cafe_id"`
	UserID   string            `json:"user_id"`
	OpenedAt time.Time         `json:"opened_at"`
	Frame    seatmap.Frame     `json:"frame"`
	Panel    seatmap.PanelView `json:"panel"`
}

// FromViewer converts a viewer to ViewerResponse
func FromViewer(v *service.Viewer) *ViewerResponse {
	return &ViewerResponse{
		ViewerID: v.ID,
		CafeID:   v.CafeID,
		UserID:   v.UserID,
		OpenedAt: v.OpenedAt,
		Frame:    v.Map().Frame(),
		Panel:    v.Panel().View(),
	}
}

// NoticesResponse carries the notices drained from a viewer
type NoticesResponse struct {
	Notices []seatmap.Notice `json:"notices"`
}

// SeatsResponse lists the seats of a cafe with their status
type SeatsResponse struct {
	CafeID string              `json:"cafe_id"`
	Seats  []service.SeatState `json:"seats"`
}

// ReleaseSeatResponse represents response after ending a seat session
type ReleaseSeatResponse struct {
	CafeID string `json:"cafe_id"`
	SeatID string `json:"seat_id"`
	Status string `json:"status"`
}

// StreamCommand is a client-to-server websocket message
type StreamCommand struct {
	Type    string          `json:"type"`
	Gesture *GestureRequest `json:"gesture,omitempty"`
	Tap     *TapRequest     `json:"tap,omitempty"`
	Zoom    *ZoomRequest    `json:"zoom,omitempty"`
}

// Stream command types
const (
	CommandPing    = "ping"
	CommandGesture = "gesture"
	CommandTap     = "tap"
	CommandZoom    = "zoom"
	CommandConfirm = "confirm"
	CommandClose   = "close_panel"
)
