package shell

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/eternisai/notification-bridge/internal/bridge"
	apperrors "github.com/eternisai/notification-bridge/internal/errors"
	"github.com/eternisai/notification-bridge/internal/logger"
	"github.com/eternisai/notification-bridge/internal/notifications"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var wireSchema = sync.OnceValue(bridge.Schema)

// ContentView handles GET /. It renders the host page around the content
// when the content URL answers, and the fallback view otherwise. The fallback
// never retries on its own.
func (s *Server) ContentView(c *gin.Context) {
	log := s.logger.WithContext(c.Request.Context())

	if err := s.probeContent(c.Request.Context()); err != nil {
		log.Warn("content unavailable",
			slog.String("content_url", s.cfg.ContentURL),
			slog.String("error", err.Error()))

		c.HTML(http.StatusServiceUnavailable, "fallback.html", fallbackView{
			Title:     pageTitle,
			Message:   "The app could not be loaded. Check your connection and try again.",
			Details:   err.Error(),
			RetryPath: retryPath,
		})
		return
	}

	c.HTML(http.StatusOK, "host.html", hostView{
		Title:         pageTitle,
		ContentURL:    s.cfg.ContentURL,
		ContentOrigin: s.contentOrigin,
		BridgePath:    bridgePath,
	})
}

// BridgeConnection handles GET /bridge. Each connection gets its own Bridge.
// The host page connects once the content has loaded, so an open connection
// is the readiness signal.
func (s *Server) BridgeConnection(c *gin.Context) {
	connectionID := logger.GenerateID()
	ctx := logger.WithConnectionID(c.Request.Context(), connectionID)
	log := s.logger.WithContext(ctx)

	if s.ctx.Err() != nil {
		apperrors.AbortWithServiceUnavailable(c, "shutting down", nil)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn("failed to upgrade bridge connection", slog.String("error", err.Error()))
		return
	}

	s.connections.Add(1)
	defer s.connections.Done()

	transport := bridge.NewWebSocketTransport(conn)
	defer transport.Close()

	b := bridge.New(transport, s.deps.Gateway, s.deps.Relay, s.logger,
		bridge.WithMetrics(s.deps.Metrics),
		bridge.WithConnectionID(connectionID))
	b.Start()
	defer b.Close()

	s.deps.Metrics.ConnectionOpened()
	defer s.deps.Metrics.ConnectionClosed()

	log.Info("bridge connected", slog.String("remote_addr", c.Request.RemoteAddr))
	b.MarkReady(ctx)

	if err := transport.Serve(s.ctx, b); err != nil {
		log.Debug("bridge connection ended", slog.String("error", err.Error()))
	}
	log.Info("bridge disconnected")
}

// Schema handles GET /bridge/schema.json.
func (s *Server) Schema(c *gin.Context) {
	c.JSON(http.StatusOK, wireSchema())
}

// Health handles GET /health.
func (s *Server) Health(c *gin.Context) {
	state, _ := s.deps.Gateway.State()
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"registration": state,
		"instance_id":  logger.GetInstanceID(),
	})
}

// MetricsHandler serves the Prometheus registry.
func (s *Server) MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
}

// DeviceStatus handles GET /device/status.
func (s *Server) DeviceStatus(c *gin.Context) {
	state, reason := s.deps.Gateway.State()

	resp := DeviceStatusResponse{
		Device:    s.deps.Device.Device(),
		State:     state,
		Listeners: s.deps.Gateway.ListenerCount(),
	}
	if reason != nil {
		resp.Reason = reason.Error()
	}
	if token, ok := s.deps.Gateway.PushToken(); ok {
		resp.Token = &token
	}

	c.JSON(http.StatusOK, resp)
}

// RespondToNotification handles POST /device/notifications/:id/respond.
func (s *Server) RespondToNotification(c *gin.Context) {
	log := s.logger.WithContext(c.Request.Context())
	id := c.Param("id")

	var req RespondRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.AbortWithBadRequest(c, "invalid request body", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
	}

	if err := s.deps.Device.Respond(c.Request.Context(), id, req.ActionIdentifier); err != nil {
		if errors.Is(err, notifications.ErrNotificationNotFound) {
			apperrors.AbortWithNotFound(c, "notification not found", map[string]interface{}{
				"identifier": id,
			})
			return
		}
		log.Error("failed to respond to notification",
			slog.String("identifier", id),
			slog.String("error", err.Error()))
		apperrors.AbortWithInternal(c, "failed to respond to notification", nil)
		return
	}

	action := req.ActionIdentifier
	if action == "" {
		action = notifications.DefaultActionIdentifier
	}
	c.JSON(http.StatusAccepted, RespondResponse{
		Identifier:       id,
		ActionIdentifier: action,
	})
}
