package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/studycafe-seatmap/internal/domain"
	"github.com/prohmpiriya/studycafe-seatmap/internal/seatmap"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/response"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/telemetry"
)

// apiError is the status and code an error maps to
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func classify(err error) apiError {
	switch {
	case errors.Is(err, domain.ErrViewerNotFound):
		return apiError{http.StatusNotFound, "VIEWER_NOT_FOUND", err.Error()}
	case errors.Is(err, domain.ErrCafeNotFound):
		return apiError{http.StatusNotFound, "CAFE_NOT_FOUND", err.Error()}
	case errors.Is(err, domain.ErrSeatNotFound):
		return apiError{http.StatusNotFound, "SEAT_NOT_FOUND", err.Error()}
	case errors.Is(err, domain.ErrSeatIsWall):
		return apiError{http.StatusBadRequest, "SEAT_IS_WALL", err.Error()}
	case errors.Is(err, domain.ErrInvalidZoom):
		return apiError{http.StatusBadRequest, "INVALID_ZOOM", err.Error()}
	case domain.IsValidationError(err):
		return apiError{http.StatusBadRequest, "INVALID_REQUEST", err.Error()}
	case errors.Is(err, domain.ErrSeatOccupied):
		return apiError{http.StatusConflict, "SEAT_OCCUPIED", err.Error()}
	case errors.Is(err, domain.ErrUserAlreadySeated):
		return apiError{http.StatusConflict, "USER_ALREADY_SEATED", err.Error()}
	case errors.Is(err, seatmap.ErrPanelBusy):
		return apiError{http.StatusConflict, "PANEL_BUSY", err.Error()}
	case errors.Is(err, seatmap.ErrPanelClosed):
		return apiError{http.StatusConflict, "PANEL_CLOSED", err.Error()}
	default:
		return apiError{http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"}
	}
}

// handleError converts domain errors to HTTP responses. Internal errors
// carry the trace id as details.
func handleError(c *gin.Context, err error) {
	e := classify(err)
	details := ""
	if e.Status >= http.StatusInternalServerError {
		details = telemetry.GetTraceID(c.Request.Context())
	}
	response.Error(c, e.Status, e.Code, e.Message, details)
}

// NoRoute answers requests that match no route
func NoRoute(c *gin.Context) {
	response.NotFound(c, "route not found")
}

func invalidRequest(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request", err.Error())
}

var (
	errMissingPayload = fmt.Errorf("%w: missing command payload", domain.ErrInvalidRequest)
	errUnknownCommand = fmt.Errorf("%w: unknown command", domain.ErrInvalidRequest)
)
