package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eternisai/notification-bridge/internal/config"
	apperrors "github.com/eternisai/notification-bridge/internal/errors"
	"github.com/eternisai/notification-bridge/internal/logger"
	"golang.org/x/sync/singleflight"
)

const defaultReportTimeout = 30 * time.Second

// DefaultChannel is configured once after the first successful registration on Android.
var DefaultChannel = Channel{
	ID:               "default",
	Name:             "default",
	Importance:       "max",
	VibrationPattern: []int{0, 250, 250, 250},
	LightColor:       "#FF231F7C",
}

// TokenReporter receives newly registered tokens. Implemented by the backend relay.
type TokenReporter interface {
	SendTokenToBackend(ctx context.Context, token string)
}

// Gateway wraps the host notification service: registration, local
// notifications and listener fan-out.
type Gateway struct {
	host      Host
	tokens    *TokenStore
	reporter  TokenReporter
	projectID string
	logger    *logger.Logger

	mu     sync.Mutex
	state  State
	reason error

	group       singleflight.Group
	channelOnce sync.Once
	reports     sync.WaitGroup

	received  *registry[NotificationRecord]
	responses *registry[NotificationResponseRecord]

	ReportTimeout time.Duration
}

// NewGateway creates a gateway and attaches it to the host's event stream.
// reporter may be nil.
func NewGateway(host Host, tokens *TokenStore, reporter TokenReporter, projectID string, logger *logger.Logger) *Gateway {
	g := &Gateway{
		host:          host,
		tokens:        tokens,
		reporter:      reporter,
		projectID:     projectID,
		logger:        logger,
		state:         StateUninitialized,
		received:      newRegistry[NotificationRecord](),
		responses:     newRegistry[NotificationResponseRecord](),
		ReportTimeout: defaultReportTimeout,
	}
	host.SetEventHandler(g)
	return g
}

// State returns the registration state and, for StateUnregistered, the reason.
func (g *Gateway) State() (State, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state, g.reason
}

// PushToken returns the registered token without side effects.
func (g *Gateway) PushToken() (string, bool) {
	return g.tokens.Get()
}

// Register obtains a push token from the host. It never fails: when no token
// can be obtained the reason is logged, recorded in State and ok is false.
// Concurrent calls share one registration attempt. Once registered, the stored
// token is returned and nothing is repeated.
func (g *Gateway) Register(ctx context.Context) (string, bool) {
	if token, ok := g.tokens.Get(); ok {
		return token, true
	}

	v, _, _ := g.group.Do("register", func() (interface{}, error) {
		return g.register(ctx), nil
	})

	token, _ := v.(string)
	return token, token != ""
}

func (g *Gateway) register(ctx context.Context) string {
	log := g.logger.WithContext(ctx).WithComponent("push-notifications")

	if token, ok := g.tokens.Get(); ok {
		return token
	}

	g.setState(StateRegistering, nil)

	token, err := g.obtainToken(ctx)
	if err != nil {
		kind, _ := apperrors.KindOf(err)
		log.Warn("push registration failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
		g.setState(StateUnregistered, err)
		return ""
	}

	if !g.tokens.Set(token) {
		// Another token was stored first; it stays authoritative.
		token, _ = g.tokens.Get()
	}
	g.setState(StateRegistered, nil)

	log.Info("🔔 push token registered",
		slog.String("token_prefix", token[:min(10, len(token))]+"..."))

	g.configureChannel(ctx)
	g.reportToken(token)

	return token
}

func (g *Gateway) obtainToken(ctx context.Context) (string, error) {
	device := g.host.Device()
	if !device.Physical {
		return "", apperrors.New(apperrors.UnsupportedEnvironment, "push notifications require a physical device")
	}
	if device.DevClient {
		return "", apperrors.New(apperrors.UnsupportedEnvironment, "push notifications are not available in a development client")
	}

	status, err := g.host.PermissionStatus(ctx)
	if err != nil {
		return "", apperrors.Wrap(apperrors.PermissionDenied, "failed to read notification permission", err)
	}
	if status != PermissionGranted {
		status, err = g.host.RequestPermission(ctx)
		if err != nil {
			return "", apperrors.Wrap(apperrors.PermissionDenied, "failed to request notification permission", err)
		}
	}
	if status != PermissionGranted {
		return "", apperrors.New(apperrors.PermissionDenied, "notification permission not granted")
	}

	if g.projectID == "" {
		return "", apperrors.New(apperrors.MissingConfiguration, "push project ID is not configured")
	}

	token, err := g.host.IssuePushToken(ctx, g.projectID)
	if err != nil {
		return "", apperrors.Wrap(apperrors.Unregistered, "failed to obtain push token", err)
	}
	if token == "" {
		return "", apperrors.New(apperrors.Unregistered, "host issued an empty push token")
	}
	return token, nil
}

func (g *Gateway) configureChannel(ctx context.Context) {
	if g.host.Device().Platform != config.PlatformAndroid {
		return
	}

	g.channelOnce.Do(func() {
		if err := g.host.SetNotificationChannel(ctx, DefaultChannel); err != nil {
			g.logger.WithComponent("push-notifications").Warn("failed to configure notification channel",
				slog.String("channel_id", DefaultChannel.ID),
				slog.String("error", err.Error()))
		}
	})
}

// reportToken hands the token to the reporter in the background.
func (g *Gateway) reportToken(token string) {
	if g.reporter == nil {
		return
	}

	g.reports.Add(1)
	go func() {
		defer g.reports.Done()
		ctx, cancel := context.WithTimeout(context.Background(), g.ReportTimeout)
		defer cancel()
		g.reporter.SendTokenToBackend(ctx, token)
	}()
}

// Wait blocks until background token reports have finished.
func (g *Gateway) Wait() {
	g.reports.Wait()
}

func (g *Gateway) setState(state State, reason error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = state
	g.reason = reason
}

// SendLocalNotification presents a notification immediately. Failures are
// logged and not returned.
func (g *Gateway) SendLocalNotification(ctx context.Context, data NotificationData) {
	log := g.logger.WithContext(ctx).WithComponent("push-notifications")

	payload := data.Data
	if payload == nil {
		payload = map[string]any{}
	}
	title, body := data.Title, data.Body

	content := NotificationContent{
		Title: &title,
		Body:  &body,
		Data:  payload,
	}
	if g.host.Device().Platform == config.PlatformAndroid {
		content.ChannelID = DefaultChannel.ID
	}

	id, err := g.host.ScheduleNotification(ctx, content)
	if err != nil {
		log.Error("failed to schedule local notification",
			slog.String("title", title),
			slog.String("error", err.Error()))
		return
	}

	log.Debug("local notification scheduled",
		slog.String("identifier", id),
		slog.Int("data_fields", len(payload)))
}

// OnNotificationReceived registers fn for every notification the host delivers.
func (g *Gateway) OnNotificationReceived(fn func(NotificationRecord)) *Subscription {
	return g.received.add(fn)
}

// OnNotificationResponse registers fn for every user interaction with a notification.
func (g *Gateway) OnNotificationResponse(fn func(NotificationResponseRecord)) *Subscription {
	return g.responses.add(fn)
}

// RemoveSubscription disposes a listener handle. Idempotent.
func (g *Gateway) RemoveSubscription(sub *Subscription) {
	sub.Remove()
}

// ListenerCount returns the number of attached listeners of both kinds.
func (g *Gateway) ListenerCount() int {
	return g.received.len() + g.responses.len()
}

// HandleNotification implements EventHandler.
func (g *Gateway) HandleNotification(n Notification) {
	g.received.emit(NewNotificationRecord(n))
}

// HandleNotificationResponse implements EventHandler.
func (g *Gateway) HandleNotificationResponse(r NotificationResponse) {
	g.responses.emit(NewNotificationResponseRecord(r))
}
