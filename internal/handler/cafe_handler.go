package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/studycafe-seatmap/internal/dto"
	"github.com/prohmpiriya/studycafe-seatmap/internal/middleware"
	"github.com/prohmpiriya/studycafe-seatmap/internal/service"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/response"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CafeHandler serves cafe seat catalogs and ends seat sessions
type CafeHandler struct {
	assignments service.AssignmentService
}

// NewCafeHandler creates a new cafe handler
func NewCafeHandler(assignments service.AssignmentService) *CafeHandler {
	return &CafeHandler{assignments: assignments}
}

// RegisterRoutes mounts the cafe routes
func (h *CafeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	cafes := rg.Group("/cafes/:cafe_id")
	{
		cafes.GET("/seats", h.ListSeats)
		cafes.DELETE("/seats/:seat_id/session", h.ReleaseSeat)
	}
}

// ListSeats handles GET /cafes/:cafe_id/seats
func (h *CafeHandler) ListSeats(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.cafe.seats")
	defer span.End()

	cafeID := c.Param("cafe_id")
	span.SetAttributes(attribute.String("cafe_id", cafeID))

	seats, err := h.assignments.SeatStates(ctx, cafeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("seats", len(seats)))
	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.SeatsResponse{CafeID: cafeID, Seats: seats})
}

// ReleaseSeat handles DELETE /cafes/:cafe_id/seats/:seat_id/session.
// Only the seated user may end a session.
func (h *CafeHandler) ReleaseSeat(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.cafe.release")
	defer span.End()

	userID, ok := middleware.GetUserID(c)
	if !ok {
		span.SetStatus(codes.Error, "unauthorized")
		response.Unauthorized(c, "unauthorized")
		return
	}

	cafeID, seatID := c.Param("cafe_id"), c.Param("seat_id")
	span.SetAttributes(
		attribute.String("cafe_id", cafeID),
		attribute.String("seat_id", seatID),
		attribute.String("user_id", userID),
	)

	sessions, err := h.assignments.ActiveSessions(ctx, cafeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}
	for _, s := range sessions {
		if s.SeatID == seatID && s.UserID != userID {
			span.SetStatus(codes.Error, "forbidden")
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "seat is used by another user", "")
			return
		}
	}

	if err := h.assignments.Release(ctx, cafeID, seatID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	response.Success(c, dto.ReleaseSeatResponse{CafeID: cafeID, SeatID: seatID, Status: "released"})
}
