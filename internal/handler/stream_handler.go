package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prohmpiriya/studycafe-seatmap/internal/dto"
	"github.com/prohmpiriya/studycafe-seatmap/internal/service"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/logger"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 16 * 1024
)

// Stream message types sent besides the viewer events
const (
	messageTap   = "tap"
	messageError = "error"
)

// StreamConfig configures viewer websocket streams
type StreamConfig struct {
	// EventBuffer is the per-connection event backlog; when full, events drop
	EventBuffer int
	// AllowedOrigins restricts the Origin header; empty allows any origin
	AllowedOrigins []string
}

// DefaultStreamConfig returns default configuration
func DefaultStreamConfig() *StreamConfig {
	return &StreamConfig{EventBuffer: 64}
}

func (c *StreamConfig) upgrader() *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(c.AllowedOrigins))
	for _, o := range c.AllowedOrigins {
		allowed[o] = struct{}{}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}
			_, ok := allowed[r.Header.Get("Origin")]
			return ok
		},
	}
}

// streamClient pumps viewer events to one websocket connection and applies
// the commands it sends
type streamClient struct {
	conn    *websocket.Conn
	viewer  *service.Viewer
	viewers service.ViewerService
	log     *logger.Logger

	// replies to commands, outside the viewer event stream
	send chan []byte
	done chan struct{}
}

// Stream handles GET /viewers/:id/stream. The current frame and panel are
// sent first, then every change as it happens.
func (h *ViewerHandler) Stream(c *gin.Context) {
	v, ok := h.owned(c)
	if !ok {
		return
	}

	conn, err := h.stream.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", zap.String("viewer_id", v.ID), zap.Error(err))
		return
	}

	events, cancel := v.Watch(h.stream.EventBuffer)
	client := &streamClient{
		conn:    conn,
		viewer:  v,
		viewers: h.viewers,
		log:     h.log.With(zap.String("viewer_id", v.ID)),
		send:    make(chan []byte, 8),
		done:    make(chan struct{}),
	}
	client.log.Info("Stream connected")

	client.sendMessage(string(service.StreamFrame), v.Map().Frame())
	client.sendMessage(string(service.StreamPanel), v.Panel().View())

	go client.writePump(events)
	client.readPump()
	cancel()
}

// readPump applies client commands until the connection fails
func (s *streamClient) readPump() {
	defer func() {
		close(s.done)
		s.conn.Close()
		s.log.Info("Stream disconnected")
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn("Stream read failed", zap.Error(err))
			}
			return
		}

		var cmd dto.StreamCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			s.sendMessage(messageError, apiError{Code: "INVALID_MESSAGE", Message: "invalid message format"})
			continue
		}
		if err := s.handleCommand(&cmd); err != nil {
			s.sendMessage(messageError, classify(err))
		}
	}
}

func (s *streamClient) handleCommand(cmd *dto.StreamCommand) error {
	id := s.viewer.ID
	switch cmd.Type {
	case dto.CommandPing:
		_, err := s.viewers.Get(id)
		return err
	case dto.CommandGesture:
		if cmd.Gesture == nil {
			return errMissingPayload
		}
		_, err := s.viewers.Gesture(id, cmd.Gesture.Centroid(), cmd.Gesture.Pan(), cmd.Gesture.Zoom)
		return err
	case dto.CommandZoom:
		if cmd.Zoom == nil {
			return errMissingPayload
		}
		_, err := s.viewers.Zoom(id, cmd.Zoom.Direction, cmd.Zoom.Scale)
		return err
	case dto.CommandTap:
		if cmd.Tap == nil {
			return errMissingPayload
		}
		result, err := s.viewers.Tap(id, cmd.Tap.Point())
		if err != nil {
			return err
		}
		s.sendMessage(messageTap, result)
		return nil
	case dto.CommandConfirm:
		// the assignment outlives this connection
		_, err := s.viewers.Confirm(context.Background(), id)
		return err
	case dto.CommandClose:
		_, err := s.viewers.ClosePanel(id)
		return err
	default:
		return errUnknownCommand
	}
}

// writePump writes viewer events and command replies. It ends when the
// viewer closes or the read side goes away.
func (s *streamClient) writePump(events <-chan service.StreamEvent) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-events:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// viewer closed
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "viewer closed"))
				return
			}
			if err := s.conn.WriteJSON(ev); err != nil {
				return
			}

		case message := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := s.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			// an open stream keeps the viewer from expiring
			if _, err := s.viewers.Get(s.viewer.ID); err != nil {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "viewer closed"))
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}

func (s *streamClient) sendMessage(msgType string, data interface{}) {
	payload, err := json.Marshal(service.StreamEvent{Type: service.StreamEventType(msgType), Data: data})
	if err != nil {
		s.log.Error("Failed to marshal stream message", zap.Error(err))
		return
	}

	select {
	case s.send <- payload:
	default:
		s.log.Warn("Stream send buffer full", zap.String("type", msgType))
	}
}
