package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/studycafe-seatmap/internal/domain"
	"github.com/prohmpiriya/studycafe-seatmap/internal/dto"
	"github.com/prohmpiriya/studycafe-seatmap/internal/middleware"
	"github.com/prohmpiriya/studycafe-seatmap/internal/service"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/logger"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/response"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ViewerHandler handles seat map viewer HTTP requests
type ViewerHandler struct {
	viewers service.ViewerService
	log     *logger.Logger
	stream  *StreamConfig
}

// NewViewerHandler creates a new viewer handler
func NewViewerHandler(viewers service.ViewerService, log *logger.Logger, stream *StreamConfig) *ViewerHandler {
	if log == nil {
		log = logger.Get()
	}
	if stream == nil {
		stream = DefaultStreamConfig()
	}
	return &ViewerHandler{viewers: viewers, log: log, stream: stream}
}

// RegisterRoutes mounts the viewer routes. confirm wraps the confirm route,
// typically with the idempotency middleware.
func (h *ViewerHandler) RegisterRoutes(rg *gin.RouterGroup, confirm ...gin.HandlerFunc) {
	viewers := rg.Group("/viewers")
	{
		viewers.POST("", h.Open)
		viewers.GET("/:id", h.Get)
		viewers.DELETE("/:id", h.Close)
		viewers.GET("/:id/frame", h.Frame)
		viewers.POST("/:id/gesture", h.Gesture)
		viewers.POST("/:id/zoom", h.Zoom)
		viewers.POST("/:id/resize", h.Resize)
		viewers.POST("/:id/tap", h.Tap)
		viewers.GET("/:id/panel", h.Panel)
		viewers.POST("/:id/panel/confirm", append(confirm, h.Confirm)...)
		viewers.POST("/:id/panel/close", h.ClosePanel)
		viewers.GET("/:id/notices", h.Notices)
		viewers.GET("/:id/stream", h.Stream)
	}
}

// owned resolves the :id viewer and checks it belongs to the caller.
// Viewers of other users are reported as not found.
func (h *ViewerHandler) owned(c *gin.Context) (*service.Viewer, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return nil, false
	}
	v, err := h.viewers.Get(c.Param("id"))
	if err == nil && v.UserID != userID {
		err = domain.ErrViewerNotFound
	}
	if err != nil {
		handleError(c, err)
		return nil, false
	}
	return v, true
}

// Open handles POST /viewers
func (h *ViewerHandler) Open(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.viewer.open")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		span.SetStatus(codes.Error, "unauthorized")
		response.Unauthorized(c, "unauthorized")
		return
	}

	var req dto.OpenViewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		invalidRequest(c, err)
		return
	}

	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("cafe_id", req.CafeID),
	)

	v, err := h.viewers.Open(ctx, userID, req.CafeID, req.Size())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("viewer_id", v.ID))
	span.SetStatus(codes.Ok, "")
	response.Created(c, dto.FromViewer(v))
}

// Get handles GET /viewers/:id
func (h *ViewerHandler) Get(c *gin.Context) {
	v, ok := h.owned(c)
	if !ok {
		return
	}
	response.Success(c, dto.FromViewer(v))
}

// Close handles DELETE /viewers/:id
func (h *ViewerHandler) Close(c *gin.Context) {
	v, ok := h.owned(c)
	if !ok {
		return
	}
	if err := h.viewers.Close(v.ID); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}

// Frame handles GET /viewers/:id/frame
func (h *ViewerHandler) Frame(c *gin.Context) {
	v, ok := h.owned(c)
	if !ok {
		return
	}
	frame, err := h.viewers.Frame(v.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, frame)
}

// Gesture handles POST /viewers/:id/gesture
func (h *ViewerHandler) Gesture(c *gin.Context) {
	v, ok := h.owned(c)
	if !ok {
		return
	}
	var req dto.GestureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	frame, err := h.viewers.Gesture(v.ID, req.Centroid(), req.Pan(), req.Zoom)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, frame)
}

// Zoom handles POST /viewers/:id/zoom
func (h *ViewerHandler) Zoom(c *gin.Context) {
	v, ok := h.owned(c)
	if !ok {
		return
	}
	var req dto.ZoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	frame, err := h.viewers.Zoom(v.ID, req.Direction, req.Scale)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, frame)
}

// Resize handles POST /viewers/:id/resize
func (h *ViewerHandler) Resize(c *gin.Context) {
	v, ok := h.owned(c)
	if !ok {
		return
	}
	var req dto.ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	frame, err := h.viewers.Resize(v.ID, req.Size())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, frame)
}

// Tap handles POST /viewers/:id/tap
func (h *ViewerHandler) Tap(c *gin.Context) {
	v, ok := h.owned(c)
	if !ok {
		return
	}
	var req dto.TapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err)
		return
	}
	result, err := h.viewers.Tap(v.ID, req.Point())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// Panel handles GET /viewers/:id/panel
func (h *ViewerHandler) Panel(c *gin.Context) {
	v, ok := h.owned(c)
	if !ok {
		return
	}
	view, err := h.viewers.Panel(v.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

// Confirm handles POST /viewers/:id/panel/confirm. The assignment runs in
// the background; its outcome arrives as a notice.
func (h *ViewerHandler) Confirm(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.viewer.confirm")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	v, ok := h.owned(c)
	if !ok {
		span.SetStatus(codes.Error, "viewer unavailable")
		return
	}
	span.SetAttributes(
		attribute.String("viewer_id", v.ID),
		attribute.String("user_id", v.UserID),
	)
	if key, ok := middleware.GetIdempotencyKey(c); ok {
		span.SetAttributes(attribute.String("idempotency_key", key))
	}

	view, err := h.viewers.Confirm(ctx, v.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("seat_id", view.SeatID))
	span.SetStatus(codes.Ok, "")
	response.Accepted(c, view)
}

// ClosePanel handles POST /viewers/:id/panel/close
func (h *ViewerHandler) ClosePanel(c *gin.Context) {
	v, ok := h.owned(c)
	if !ok {
		return
	}
	view, err := h.viewers.ClosePanel(v.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

// Notices handles GET /viewers/:id/notices. Returned notices are removed.
func (h *ViewerHandler) Notices(c *gin.Context) {
	v, ok := h.owned(c)
	if !ok {
		return
	}
	notices, err := h.viewers.Notices(v.ID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.NoticesResponse{Notices: notices})
}
