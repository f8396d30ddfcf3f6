package shell

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/eternisai/notification-bridge/internal/bridge"
	"github.com/eternisai/notification-bridge/internal/config"
	"github.com/eternisai/notification-bridge/internal/logger"
	"github.com/eternisai/notification-bridge/internal/notifications"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	bridgePath = "/bridge"
	pageTitle  = "Notification Bridge"
	retryPath  = "/"
)

// Gateway is what the shell needs from the notification gateway.
type Gateway interface {
	bridge.Gateway
	State() (notifications.State, error)
	ListenerCount() int
}

// Device simulates user interaction with delivered notifications.
type Device interface {
	Respond(ctx context.Context, identifier, action string) error
	Device() notifications.DeviceInfo
}

// Dependencies are the collaborators the shell serves.
type Dependencies struct {
	Gateway Gateway
	Relay   bridge.Relay
	Device  Device

	Metrics  *bridge.Metrics
	Gatherer prometheus.Gatherer

	// ProbeClient checks whether the content URL is reachable. Defaults to a
	// client with the configured probe timeout.
	ProbeClient *http.Client
}

// Server is the host shell: it renders the content view, upgrades bridge
// connections and exposes the device simulation endpoints.
type Server struct {
	cfg           *config.Config
	deps          Dependencies
	logger        *logger.Logger
	contentOrigin string
	upgrader      websocket.Upgrader
	templates     *template.Template

	// connections outlive their HTTP handler's view of the request, so they
	// get their own lifetime.
	ctx         context.Context
	cancel      context.CancelFunc
	connections sync.WaitGroup
}

// NewServer builds the shell for cfg.
func NewServer(cfg *config.Config, deps Dependencies, logger *logger.Logger) (*Server, error) {
	contentURL, err := url.Parse(cfg.ContentURL)
	if err != nil || contentURL.Scheme == "" || contentURL.Host == "" {
		return nil, fmt.Errorf("invalid content URL %q", cfg.ContentURL)
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	if deps.ProbeClient == nil {
		deps.ProbeClient = &http.Client{Timeout: cfg.ContentProbeTimeout()}
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:           cfg,
		deps:          deps,
		logger:        logger.WithComponent("shell"),
		contentOrigin: contentURL.Scheme + "://" + contentURL.Host,
		templates:     templates,
		ctx:           ctx,
		cancel:        cancel,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	return s, nil
}

// Handler returns the HTTP handler for the shell, CORS included.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.SetHTMLTemplate(s.templates)

	router.GET("/", s.ContentView)
	router.GET(bridgePath, s.BridgeConnection)
	router.GET(bridgePath+"/schema.json", s.Schema)
	router.GET("/health", s.Health)
	router.GET("/metrics", s.MetricsHandler())

	device := router.Group("/device")
	{
		device.GET("/status", s.DeviceStatus)
		device.POST("/notifications/:id/respond", s.RespondToNotification)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
	})
	return c.Handler(router)
}

// Shutdown closes every open bridge connection and waits for them to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.connections.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("bridge connections still open: %w", ctx.Err())
	}
}

// checkOrigin accepts same-host pages, the content origin and configured CORS origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host || origin == s.contentOrigin {
		return true
	}

	for _, allowed := range s.cfg.AllowedOrigins() {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logger.WithRequestID(c.Request.Context(), logger.GenerateID())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		s.logger.WithContext(ctx).Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()))
	}
}
