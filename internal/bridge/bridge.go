package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eternisai/notification-bridge/internal/logger"
	"github.com/eternisai/notification-bridge/internal/notifications"
)

// Gateway is the part of the notification gateway the bridge uses.
type Gateway interface {
	PushToken() (string, bool)
	Register(ctx context.Context) (string, bool)
	SendLocalNotification(ctx context.Context, data notifications.NotificationData)
	OnNotificationReceived(fn func(notifications.NotificationRecord)) *notifications.Subscription
	OnNotificationResponse(fn func(notifications.NotificationResponseRecord)) *notifications.Subscription
}

// Relay is the part of the backend relay the bridge uses.
type Relay interface {
	SendPushNotification(ctx context.Context, data notifications.NotificationData) error
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithMetrics records requests and events in m.
func WithMetrics(m *Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// WithConnectionID tags the bridge's logs with a connection identifier.
func WithConnectionID(id string) Option {
	return func(b *Bridge) {
		b.connectionID = id
	}
}

// Bridge serves one embedded content view: it answers the view's requests and
// forwards gateway events to it.
type Bridge struct {
	transport Transport
	gateway   Gateway
	relay     Relay
	logger    *logger.Logger
	metrics   *Metrics

	connectionID string

	mu      sync.Mutex
	started bool
	closed  bool
	ready   bool
	subs    []*notifications.Subscription
}

// New creates a bridge that writes to transport.
func New(transport Transport, gateway Gateway, relay Relay, log *logger.Logger, opts ...Option) *Bridge {
	b := &Bridge{
		transport: transport,
		gateway:   gateway,
		relay:     relay,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.connectionID == "" {
		b.connectionID = logger.GenerateID()
	}
	b.logger = log.WithComponent("bridge")
	return b
}

// ConnectionID returns the identifier used in this bridge's logs.
func (b *Bridge) ConnectionID() string {
	return b.connectionID
}

func (b *Bridge) context(ctx context.Context) context.Context {
	return logger.WithConnectionID(ctx, b.connectionID)
}

// Start wires gateway events to the content view. Calling it again has no effect.
func (b *Bridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started || b.closed {
		return
	}
	b.started = true

	b.subs = append(b.subs,
		b.gateway.OnNotificationReceived(func(record notifications.NotificationRecord) {
			b.sendEvent(ResponseNotificationReceived, record)
		}),
		b.gateway.OnNotificationResponse(func(record notifications.NotificationResponseRecord) {
			b.sendEvent(ResponseNotificationResponse, record)
		}),
	)
}

// Close detaches the gateway listeners. Safe to call any number of times,
// including before Start.
func (b *Bridge) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.closed = true
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Remove()
	}
}

// MarkReady records that the content view finished loading. The first call
// pushes an already registered token as an unsolicited PUSH_TOKEN event;
// later calls do nothing.
func (b *Bridge) MarkReady(ctx context.Context) {
	b.mu.Lock()
	if b.ready {
		b.mu.Unlock()
		return
	}
	b.ready = true
	b.mu.Unlock()

	ctx = b.context(ctx)
	b.logger.WithContext(ctx).Debug("content ready")

	if token, ok := b.gateway.PushToken(); ok {
		b.send(ctx, Response{
			Type:    ResponsePushToken,
			Payload: PushTokenPayload{Token: &token},
		})
		b.metrics.event(ResponsePushToken)
	}
}

// Ready reports whether MarkReady was called.
func (b *Bridge) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// HandleMessage answers one raw message from the content view. Exactly one
// response is sent for it, carrying the request's id whenever one can be read.
// It is safe to call concurrently.
func (b *Bridge) HandleMessage(ctx context.Context, raw []byte) {
	ctx = b.context(ctx)
	resp := b.handle(ctx, raw)
	b.send(ctx, resp)
}

func (b *Bridge) handle(ctx context.Context, raw []byte) (resp Response) {
	req, err := decodeRequest(raw)
	if err != nil {
		requestID := recoverRequestID(raw)
		b.logger.WithContext(ctx).Warn("failed to decode bridge message",
			slog.String("recovered_request_id", requestID),
			slog.String("error", err.Error()))
		b.metrics.request("", outcomeError)
		return errorResponse(requestID, err)
	}

	ctx = logger.WithRequestID(ctx, req.RequestID)
	log := b.logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			log.Error("bridge request panicked",
				slog.String("type", string(req.Type)),
				slog.Any("panic", r))
			b.metrics.request(req.Type, outcomeError)
			resp = errorResponse(req.RequestID, fmt.Errorf("internal error handling %s", req.Type))
		}
	}()

	resp, err = b.dispatch(ctx, req)
	if err != nil {
		log.Warn("bridge request failed",
			slog.String("type", string(req.Type)),
			slog.String("error", err.Error()))
		b.metrics.request(req.Type, outcomeError)
		return errorResponse(req.RequestID, err)
	}

	log.Debug("bridge request handled",
		slog.String("type", string(req.Type)),
		slog.String("response", string(resp.Type)))
	b.metrics.request(req.Type, outcomeSuccess)
	resp.RequestID = req.RequestID
	return resp
}

func (b *Bridge) dispatch(ctx context.Context, req Request) (Response, error) {
	cmd, err := parseCommand(req)
	if err != nil {
		return Response{}, err
	}

	switch c := cmd.(type) {
	case pushTokenCommand:
		token, ok := b.gateway.PushToken()
		if !ok {
			token, ok = b.gateway.Register(ctx)
		}
		payload := PushTokenPayload{}
		if ok {
			payload.Token = &token
		}
		return Response{Type: ResponsePushToken, Payload: payload}, nil

	case sendPushCommand:
		if err := b.relay.SendPushNotification(ctx, c.data); err != nil {
			return Response{}, err
		}

	case sendLocalCommand:
		b.gateway.SendLocalNotification(ctx, c.data)
	}

	return Response{Type: ResponseSuccess, Payload: SuccessPayload{Request: cmd.requestType()}}, nil
}

func (b *Bridge) sendEvent(typ ResponseType, payload any) {
	ctx := b.context(context.Background())
	b.send(ctx, Response{Type: typ, Payload: payload})
	b.metrics.event(typ)
}

func (b *Bridge) send(ctx context.Context, resp Response) {
	log := b.logger.WithContext(ctx)

	data, err := encodeResponse(resp)
	if err != nil {
		log.Error("failed to encode bridge response",
			slog.String("type", string(resp.Type)),
			slog.String("error", err.Error()))
		if resp.Type == ResponseError || resp.RequestID == "" {
			return
		}
		// The caller is still owed an answer.
		data, err = encodeResponse(errorResponse(resp.RequestID, fmt.Errorf("failed to encode %s response", resp.Type)))
		if err != nil {
			return
		}
	}

	if err := b.transport.Send(ctx, data); err != nil {
		log.Warn("failed to send bridge message",
			slog.String("type", string(resp.Type)),
			slog.String("error", err.Error()))
	}
}
